package notification

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/shopspring/decimal"
	"github.com/steamtrust/backend/config"
	"github.com/steamtrust/backend/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const telegramBase = "https://api.telegram.org/bottest-token"

func newTestConfig(token string) *config.NotificationConfiguration {
	return &config.NotificationConfiguration{
		TelegramBotToken:    token,
		TelegramChatID:      42,
		TelegramAPIEndpoint: "https://api.telegram.org/bot%s/%s",
	}
}

func registerGetMe() {
	httpmock.RegisterResponder("POST", telegramBase+"/getMe",
		httpmock.NewStringResponder(200, `{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"alerts","username":"alerts_bot"}}`))
}

func TestTelegramNotifier(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	t.Run("disabled without a token", func(t *testing.T) {
		notifier, err := NewTelegramNotifier(newTestConfig(""), http.DefaultClient)
		require.NoError(t, err)
		assert.False(t, notifier.Enabled())

		notifier.SystemAlert(context.Background(), types.SystemAlert{Type: types.AlertInfo, Title: "noop"})
		notifier.Wait()
		assert.Equal(t, 0, httpmock.GetTotalCallCount())
	})

	t.Run("sends HTML messages to the chat", func(t *testing.T) {
		httpmock.Reset()
		registerGetMe()

		var mu sync.Mutex
		var texts []string
		httpmock.RegisterResponder("POST", telegramBase+"/sendMessage",
			func(r *http.Request) (*http.Response, error) {
				assert.NoError(t, r.ParseForm())
				assert.Equal(t, "42", r.PostForm.Get("chat_id"))
				assert.Equal(t, "HTML", r.PostForm.Get("parse_mode"))
				mu.Lock()
				texts = append(texts, r.PostForm.Get("text"))
				mu.Unlock()
				return httpmock.NewStringResponse(200, `{"ok":true,"result":{"message_id":7,"date":0,"chat":{"id":42,"type":"private"}}}`), nil
			})

		notifier, err := NewTelegramNotifier(newTestConfig("test-token"), http.DefaultClient)
		require.NoError(t, err)
		require.True(t, notifier.Enabled())

		notifier.PaymentCreated(context.Background(), &types.Payment{
			ID:        "pay-1",
			Amount:    decimal.RequireFromString("1029"),
			Currency:  "RUB",
			Provider:  types.ProviderCardlink,
			Status:    types.PaymentStatusPending,
			Account:   "<script>",
			CreatedAt: time.Now(),
		})
		notifier.SystemAlert(context.Background(), types.SystemAlert{
			Type:     types.AlertWarning,
			Title:    "Payment creation rejected",
			Message:  "B2B does not allow topping up account steamuser",
			Metadata: map[string]interface{}{"status": "INSUFFICIENT_FUNDS", "amount": "1000"},
		})
		notifier.Wait()

		require.Len(t, texts, 2)
		joined := strings.Join(texts, "\n")
		assert.Contains(t, joined, "1029.00 RUB")
		assert.Contains(t, joined, "&lt;script&gt;")
		assert.Contains(t, joined, "<b>status:</b> INSUFFICIENT_FUNDS")
	})

	t.Run("retries failed sends", func(t *testing.T) {
		httpmock.Reset()
		registerGetMe()
		httpmock.RegisterResponder("POST", telegramBase+"/sendMessage",
			httpmock.NewStringResponder(500, `{"ok":false,"error_code":500,"description":"Internal Server Error"}`))

		notifier, err := NewTelegramNotifier(newTestConfig("test-token"), http.DefaultClient)
		require.NoError(t, err)
		notifier.retryStep = time.Millisecond

		notifier.WebhookReceived(context.Background(), types.ProviderCryptopay, &types.DepositEvent{
			PaymentID: "pay-2",
			Amount:    decimal.NewFromInt(500),
			Currency:  "RUB",
		}, types.PaymentStatusSuccess)
		notifier.Wait()

		info := httpmock.GetCallCountInfo()
		assert.Equal(t, sendAttempts, info["POST "+telegramBase+"/sendMessage"])
	})
}
