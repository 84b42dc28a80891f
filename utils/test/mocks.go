package test

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/steamtrust/backend/types"
	"github.com/stretchr/testify/mock"
)

// MockB2BGateway mocks the wallet custodian
type MockB2BGateway struct {
	mock.Mock
}

// PaymentVerify mocks the PaymentVerify method
func (m *MockB2BGateway) PaymentVerify(ctx context.Context, code, account string, amount decimal.Decimal, currency string) (*types.B2BPaymentResponse, error) {
	args := m.Called(ctx, code, account, amount, currency)
	res, _ := args.Get(0).(*types.B2BPaymentResponse)
	return res, args.Error(1)
}

// PaymentExecute mocks the PaymentExecute method
func (m *MockB2BGateway) PaymentExecute(ctx context.Context, code string) (*types.B2BPaymentResponse, error) {
	args := m.Called(ctx, code)
	res, _ := args.Get(0).(*types.B2BPaymentResponse)
	return res, args.Error(1)
}

// GetPaymentStatus mocks the GetPaymentStatus method
func (m *MockB2BGateway) GetPaymentStatus(ctx context.Context, code string) (*types.B2BPaymentResponse, error) {
	args := m.Called(ctx, code)
	res, _ := args.Get(0).(*types.B2BPaymentResponse)
	return res, args.Error(1)
}

// MockProviderAdapter mocks a payment provider
type MockProviderAdapter struct {
	mock.Mock
	Provider types.PaymentProvider
}

// Name returns the configured provider tag
func (m *MockProviderAdapter) Name() types.PaymentProvider {
	return m.Provider
}

// CreatePayment mocks the CreatePayment method
func (m *MockProviderAdapter) CreatePayment(ctx context.Context, payment *types.Payment, method *types.PaymentMethod) (*types.ProviderPayment, error) {
	args := m.Called(ctx, payment, method)
	res, _ := args.Get(0).(*types.ProviderPayment)
	return res, args.Error(1)
}

// Validate mocks the Validate method
func (m *MockProviderAdapter) Validate(ctx context.Context, payload types.WebhookPayload) (types.WebhookPayload, error) {
	args := m.Called(ctx, payload)
	res, _ := args.Get(0).(types.WebhookPayload)
	return res, args.Error(1)
}

// ExtractDeposit mocks the ExtractDeposit method
func (m *MockProviderAdapter) ExtractDeposit(ctx context.Context, payload types.WebhookPayload) (*types.DepositEvent, error) {
	args := m.Called(ctx, payload)
	res, _ := args.Get(0).(*types.DepositEvent)
	return res, args.Error(1)
}

// MapStatus mocks the MapStatus method
func (m *MockProviderAdapter) MapStatus(providerStatus string) types.PaymentStatus {
	args := m.Called(providerStatus)
	return args.Get(0).(types.PaymentStatus)
}

// RecordingNotifier records every notification it receives
type RecordingNotifier struct {
	mu       sync.Mutex
	Created  []*types.Payment
	Deposits []*types.Payment
	Webhooks []types.PaymentStatus
	Alerts   []types.SystemAlert
}

// PaymentCreated records a created payment
func (n *RecordingNotifier) PaymentCreated(ctx context.Context, payment *types.Payment) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Created = append(n.Created, payment)
}

// DepositProcessed records a processed deposit
func (n *RecordingNotifier) DepositProcessed(ctx context.Context, payment *types.Payment) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Deposits = append(n.Deposits, payment)
}

// WebhookReceived records a webhook status
func (n *RecordingNotifier) WebhookReceived(ctx context.Context, provider types.PaymentProvider, event *types.DepositEvent, status types.PaymentStatus) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Webhooks = append(n.Webhooks, status)
}

// SystemAlert records an alert
func (n *RecordingNotifier) SystemAlert(ctx context.Context, alert types.SystemAlert) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Alerts = append(n.Alerts, alert)
}

// AlertCount returns the number of recorded alerts
func (n *RecordingNotifier) AlertCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.Alerts)
}

// RecordingReceiptSender records receipts instead of sending email
type RecordingReceiptSender struct {
	mu       sync.Mutex
	Receipts []string
	Err      error
}

// SendPaymentReceipt records the payment id
func (s *RecordingReceiptSender) SendPaymentReceipt(ctx context.Context, payment *types.Payment) (types.SendEmailResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return types.SendEmailResponse{}, s.Err
	}
	s.Receipts = append(s.Receipts, payment.ID)
	return types.SendEmailResponse{Id: payment.ID}, nil
}

// Count returns the number of recorded receipts
func (s *RecordingReceiptSender) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Receipts)
}
