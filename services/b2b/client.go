package b2b

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	fastshot "github.com/opus-domini/fast-shot"
	"github.com/shopspring/decimal"
	"github.com/steamtrust/backend/config"
	"github.com/steamtrust/backend/types"
	"github.com/steamtrust/backend/utils/logger"
)

// Client talks to the wallet custodian's B2B API
type Client struct {
	conf *config.B2BConfiguration
}

// NewClient creates a B2B gateway client
func NewClient(conf *config.B2BConfiguration) *Client {
	return &Client{conf: conf}
}

// TransactionQuery holds the optional transaction listing parameters
type TransactionQuery struct {
	Limit     *int
	Offset    *int
	SortBy    string
	SortOrder string
}

// readBody reads the response body and reports upstream failures. 5xx
// responses are returned as ErrB2BUnavailable; 4xx bodies are returned to the
// caller together with a non-nil error.
func readBody(res *http.Response) ([]byte, error) {
	if res == nil || res.Body == nil {
		return nil, types.ErrB2BUnavailable(fmt.Errorf("empty response"))
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, types.ErrB2BUnavailable(fmt.Errorf("failed to read response body: %w", err))
	}

	if res.StatusCode >= 500 {
		return body, types.ErrB2BUnavailable(fmt.Errorf("b2b server error: %d", res.StatusCode))
	}
	if res.StatusCode >= 400 {
		return body, fmt.Errorf("b2b client error %d: %s", res.StatusCode, upstreamMessage(body))
	}
	return body, nil
}

// upstreamMessage extracts the message field of an error body
func upstreamMessage(body []byte) string {
	var envelope struct {
		Message string      `json:"message"`
		Detail  interface{} `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		if envelope.Message != "" {
			return envelope.Message
		}
		if envelope.Detail != nil {
			return fmt.Sprintf("%v", envelope.Detail)
		}
	}
	return strings.TrimSpace(string(body))
}

func decodePaymentResponse(body []byte) (*types.B2BPaymentResponse, error) {
	var response types.B2BPaymentResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to parse B2B payment response: %w", err)
	}

	raw := map[string]interface{}{}
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()
	if err := decoder.Decode(&raw); err == nil {
		response.Raw = raw
	}

	return &response, nil
}

func decodeMap(body []byte) (map[string]interface{}, error) {
	var data map[string]interface{}
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("failed to parse B2B response: %w", err)
	}
	return data, nil
}

// PaymentVerify asks the custodian whether account can receive amount.
// The idempotency code becomes the B2B transaction id on acceptance.
func (c *Client) PaymentVerify(ctx context.Context, code, account string, amount decimal.Decimal, currency string) (*types.B2BPaymentResponse, error) {
	if currency == "" {
		currency = c.conf.Currency
	}
	account = strings.TrimSpace(account)

	payload := map[string]interface{}{
		"code":     code,
		"account":  account,
		"amount":   amount.String(),
		"currency": currency,
	}

	res, err := fastshot.NewClient(c.conf.APIURL).
		Config().SetTimeout(c.conf.Timeout).
		Header().Add("Content-Type", "application/json").
		Header().Add("X-API-Key", c.conf.APIKey).
		Build().
		POST("/payments").
		Context().Set(ctx).
		Query().AddParams(map[string]string{"service_id": strconv.Itoa(c.conf.ServiceID)}).
		Body().AsJSON(payload).
		Send()
	if err != nil {
		return nil, types.ErrB2BUnavailable(fmt.Errorf("payment verify request: %w", err))
	}

	body, err := readBody(res.RawResponse)
	if err != nil {
		if _, ok := types.AsAppError(err); ok {
			return nil, err
		}
		logger.WithFields(logger.Fields{
			"Error":   fmt.Sprintf("%v", err),
			"Account": account,
			"Code":    code,
		}).Warnf("B2B rejected payment verification")
		return nil, types.ErrB2BRejected(account, upstreamMessage(body), err)
	}

	return decodePaymentResponse(body)
}

// PaymentExecute asks the custodian to execute a pre-verified payment
func (c *Client) PaymentExecute(ctx context.Context, code string) (*types.B2BPaymentResponse, error) {
	res, err := fastshot.NewClient(c.conf.APIURL).
		Config().SetTimeout(c.conf.Timeout).
		Header().Add("Content-Type", "application/json").
		Header().Add("X-API-Key", c.conf.APIKey).
		Build().
		POST("/payments/" + code + "/execute").
		Context().Set(ctx).
		Send()
	if err != nil {
		return nil, types.ErrB2BUnavailable(fmt.Errorf("payment execute request: %w", err))
	}

	body, err := readBody(res.RawResponse)
	if err != nil {
		return nil, err
	}

	return decodePaymentResponse(body)
}

// GetPaymentStatus fetches the custodian's current view of a payment
func (c *Client) GetPaymentStatus(ctx context.Context, code string) (*types.B2BPaymentResponse, error) {
	res, err := fastshot.NewClient(c.conf.APIURL).
		Config().SetTimeout(c.conf.Timeout).
		Header().Add("Content-Type", "application/json").
		Header().Add("X-API-Key", c.conf.APIKey).
		Build().
		GET("/payments/" + code).
		Context().Set(ctx).
		Send()
	if err != nil {
		return nil, types.ErrB2BUnavailable(fmt.Errorf("payment status request: %w", err))
	}

	body, err := readBody(res.RawResponse)
	if err != nil {
		return nil, err
	}

	return decodePaymentResponse(body)
}

// GetBalance fetches the custodian wallet balances
func (c *Client) GetBalance(ctx context.Context) (map[string]interface{}, error) {
	res, err := fastshot.NewClient(c.conf.APIURL).
		Config().SetTimeout(c.conf.Timeout).
		Header().Add("Content-Type", "application/json").
		Header().Add("X-API-Key", c.conf.APIKey).
		Build().
		GET("/users/balance").
		Context().Set(ctx).
		Send()
	if err != nil {
		return nil, types.ErrB2BUnavailable(fmt.Errorf("balance request: %w", err))
	}

	body, err := readBody(res.RawResponse)
	if err != nil {
		return nil, err
	}
	return decodeMap(body)
}

// GetTransactions lists custodian transactions. Unset parameters fall back
// to the configured defaults.
func (c *Client) GetTransactions(ctx context.Context, query TransactionQuery) (map[string]interface{}, error) {
	params := map[string]string{
		"limit":      strconv.Itoa(c.conf.DefaultLimit),
		"offset":     strconv.Itoa(c.conf.DefaultOffset),
		"sort_by":    c.conf.DefaultSortBy,
		"sort_order": c.conf.DefaultSortOrder,
	}
	if query.Limit != nil {
		params["limit"] = strconv.Itoa(*query.Limit)
	}
	if query.Offset != nil {
		params["offset"] = strconv.Itoa(*query.Offset)
	}
	if query.SortBy != "" {
		params["sort_by"] = query.SortBy
	}
	if query.SortOrder != "" {
		params["sort_order"] = query.SortOrder
	}

	res, err := fastshot.NewClient(c.conf.APIURL).
		Config().SetTimeout(c.conf.Timeout).
		Header().Add("Content-Type", "application/json").
		Header().Add("X-API-Key", c.conf.APIKey).
		Build().
		GET("/transactions").
		Context().Set(ctx).
		Query().AddParams(params).
		Send()
	if err != nil {
		return nil, types.ErrB2BUnavailable(fmt.Errorf("transactions request: %w", err))
	}

	body, err := readBody(res.RawResponse)
	if err != nil {
		return nil, err
	}
	return decodeMap(body)
}

// GetCurrencies fetches all custodian currency rates
func (c *Client) GetCurrencies(ctx context.Context) (map[string]interface{}, error) {
	res, err := fastshot.NewClient(c.conf.APIURL).
		Config().SetTimeout(c.conf.Timeout).
		Header().Add("Content-Type", "application/json").
		Header().Add("X-API-Key", c.conf.APIKey).
		Build().
		GET("/currencies").
		Context().Set(ctx).
		Send()
	if err != nil {
		return nil, types.ErrB2BUnavailable(fmt.Errorf("currencies request: %w", err))
	}

	body, err := readBody(res.RawResponse)
	if err != nil {
		return nil, err
	}
	return decodeMap(body)
}

// ConvertCurrency converts amount between two currencies at the custodian's rate
func (c *Client) ConvertCurrency(ctx context.Context, from, to string, amount decimal.Decimal) (map[string]interface{}, error) {
	path := fmt.Sprintf("/currencies/%s:%s/%s", strings.ToUpper(from), strings.ToUpper(to), amount.String())

	logger.Debugf("Converting %s %s to %s", amount.String(), from, to)

	res, err := fastshot.NewClient(c.conf.APIURL).
		Config().SetTimeout(c.conf.Timeout).
		Header().Add("Content-Type", "application/json").
		Header().Add("X-API-Key", c.conf.APIKey).
		Build().
		GET(path).
		Context().Set(ctx).
		Send()
	if err != nil {
		return nil, types.ErrB2BUnavailable(fmt.Errorf("convert request: %w", err))
	}

	body, err := readBody(res.RawResponse)
	if err != nil {
		return nil, err
	}
	return decodeMap(body)
}
