package types

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentProvider is the payer-facing payment rail
type PaymentProvider string

const (
	ProviderCryptopay PaymentProvider = "cryptopay"
	ProviderCardlink  PaymentProvider = "cardlink"
)

// SupportedProviders lists every provider with a registered adapter
var SupportedProviders = []PaymentProvider{ProviderCryptopay, ProviderCardlink}

// IsValid reports whether p names a known provider
func (p PaymentProvider) IsValid() bool {
	for _, provider := range SupportedProviders {
		if p == provider {
			return true
		}
	}
	return false
}

// PaymentStatus is the state of a payment
type PaymentStatus string

const (
	PaymentStatusPending         PaymentStatus = "pending"
	PaymentStatusSuccess         PaymentStatus = "success"
	PaymentStatusFailed          PaymentStatus = "failed"
	PaymentStatusCompleted       PaymentStatus = "completed"
	PaymentStatusExternalProcess PaymentStatus = "externalProcess"
	PaymentStatusExternalError   PaymentStatus = "externalError"

	PaymentStatusInsufficientFunds    PaymentStatus = "insufficientFunds"
	PaymentStatusDuplicateTransaction PaymentStatus = "duplicateTransaction"
	PaymentStatusVerificationFailed   PaymentStatus = "paymentVerificationFailed"
	PaymentStatusConfirmationFailed   PaymentStatus = "paymentConfirmationFailed"
	PaymentStatusPurchaseNotFound     PaymentStatus = "purchaseNotFound"
	PaymentStatusCalculationError     PaymentStatus = "calculationError"
	PaymentStatusTopUpError           PaymentStatus = "topUpError"
)

var allPaymentStatuses = []PaymentStatus{
	PaymentStatusPending, PaymentStatusSuccess, PaymentStatusFailed, PaymentStatusCompleted,
	PaymentStatusExternalProcess, PaymentStatusExternalError, PaymentStatusInsufficientFunds,
	PaymentStatusDuplicateTransaction, PaymentStatusVerificationFailed, PaymentStatusConfirmationFailed,
	PaymentStatusPurchaseNotFound, PaymentStatusCalculationError, PaymentStatusTopUpError,
}

// IsValid reports whether s is a known payment status
func (s PaymentStatus) IsValid() bool {
	for _, status := range allPaymentStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no automated transition leaves s.
// externalError is terminal by convention: neither loop retries it.
func (s PaymentStatus) IsTerminal() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusSuccess, PaymentStatusExternalProcess:
		return false
	}
	return s.IsValid()
}

// Metadata is the free-form audit map stored with each payment
type Metadata map[string]interface{}

// Payment is one top-up attempt
type Payment struct {
	ID                    string          `json:"id"`
	Provider              PaymentProvider `json:"provider"`
	ProviderTransactionID string          `json:"providerTransactionId"`
	Email                 string          `json:"email"`
	Currency              string          `json:"currency"`
	Amount                decimal.Decimal `json:"amount"`
	PaidAmount            decimal.Decimal `json:"paidAmount"`
	FinalAmount           decimal.Decimal `json:"finalAmount"`
	Bonus                 decimal.Decimal `json:"bonus"`
	Commission            decimal.Decimal `json:"commission"`
	Status                PaymentStatus   `json:"status"`
	PaymentLink           string          `json:"paymentLink"`
	Account               string          `json:"account"`
	B2BTransactionID      string          `json:"b2bTransactionId"`
	Metadata              Metadata        `json:"metadata"`
	CreatedAt             time.Time       `json:"createdAt"`
	UpdatedAt             time.Time       `json:"updatedAt"`
}

// PaymentMethod is a fee and limit schedule for a provider and currency pair
type PaymentMethod struct {
	ID                         string          `json:"id"`
	ProviderMethod             string          `json:"providerMethod"`
	Provider                   PaymentProvider `json:"provider"`
	FromCurrencyCode           string          `json:"fromCurrencyCode"`
	ToCurrencyCode             string          `json:"toCurrencyCode"`
	Min                        int64           `json:"min"`
	Max                        int64           `json:"max"`
	RelativeCommission         decimal.Decimal `json:"relativeCommission"`
	RelativeProviderCommission decimal.Decimal `json:"relativeProviderCommission"`
	IsActive                   bool            `json:"isActive"`
	CreatedAt                  time.Time       `json:"createdAt"`
	UpdatedAt                  time.Time       `json:"updatedAt"`
}

// CommissionFor returns the service plus provider commission for amount
func (m *PaymentMethod) CommissionFor(amount decimal.Decimal) decimal.Decimal {
	percent := m.RelativeCommission.Add(m.RelativeProviderCommission)
	return amount.Mul(percent).Div(decimal.NewFromInt(100))
}

// PromoCode grants a percentage bonus on the next successful deposit
type PromoCode struct {
	ID           string          `json:"id"`
	Code         string          `json:"code"`
	BonusPercent decimal.Decimal `json:"bonusPercent"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// PromoActivationStatus is the state of a promo activation
type PromoActivationStatus string

const (
	PromoActivationActive  PromoActivationStatus = "active"
	PromoActivationApplied PromoActivationStatus = "applied"
	PromoActivationExpired PromoActivationStatus = "expired"
)

// PromoActivation links a promo code to a payer email
type PromoActivation struct {
	ID          string                `json:"id"`
	PromoCodeID string                `json:"promoCodeId"`
	Email       string                `json:"email"`
	Status      PromoActivationStatus `json:"status"`
	ActivatedAt time.Time             `json:"activatedAt"`
	AppliedAt   *time.Time            `json:"appliedAt,omitempty"`
}

// DepositEvent is the provider-independent view of a confirmed payer-side payment
type DepositEvent struct {
	PaymentID      string          `json:"paymentId"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	ProviderStatus string          `json:"providerStatus"`
}

// WebhookPayload is a decoded provider webhook body
type WebhookPayload map[string]interface{}

// String returns the trimmed string form of a payload field
func (p WebhookPayload) String(key string) string {
	value, ok := p[key]
	if !ok || value == nil {
		return ""
	}
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return decimal.NewFromFloat(v).String()
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", v))
	}
}

// WebhookResult is returned to the provider after a webhook is handled
type WebhookResult struct {
	Success   bool          `json:"success"`
	PaymentID string        `json:"paymentId"`
	Status    PaymentStatus `json:"status"`
	Message   string        `json:"message,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// ProviderPayment is what a provider returns for a created payable request
type ProviderPayment struct {
	PaymentLink           string   `json:"paymentLink"`
	ProviderTransactionID string   `json:"providerTransactionId"`
	Metadata              Metadata `json:"-"`
}

// ProviderAdapter creates payable requests with one provider and
// interprets that provider's webhooks
type ProviderAdapter interface {
	Name() PaymentProvider
	CreatePayment(ctx context.Context, payment *Payment, method *PaymentMethod) (*ProviderPayment, error)
	// Validate checks authenticity and returns the payload to trust from here on
	Validate(ctx context.Context, payload WebhookPayload) (WebhookPayload, error)
	ExtractDeposit(ctx context.Context, payload WebhookPayload) (*DepositEvent, error)
	MapStatus(providerStatus string) PaymentStatus
}

// B2BPayment is the custodian's view of a top-up transaction
type B2BPayment struct {
	ID         int64           `json:"id"`
	Code       string          `json:"code"`
	CodeAPI    string          `json:"code_api"`
	Currency   string          `json:"currency"`
	Date       string          `json:"date"`
	IssueDate  string          `json:"issue_date"`
	SteamLogin string          `json:"steam_login"`
	Amount     decimal.Decimal `json:"amount"`
	AmountUSD  decimal.Decimal `json:"amount_usd"`
	Cashback   decimal.Decimal `json:"cashback"`
	StatusCode string          `json:"status_code"`
	UserLogin  string          `json:"user_login"`
	ParentID   *int64          `json:"parent_id"`
}

// B2BPaymentResponse is the custodian envelope for payment endpoints
type B2BPaymentResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    *B2BPayment `json:"data"`

	// Raw is the undecoded response body, kept for the payment audit trail
	Raw map[string]interface{} `json:"-"`
}

// StatusCode returns the custodian status code, empty when absent
func (r *B2BPaymentResponse) StatusCode() string {
	if r == nil || r.Data == nil {
		return ""
	}
	return strings.TrimSpace(r.Data.StatusCode)
}

// RawData returns the raw data object of the response, or the whole raw body
func (r *B2BPaymentResponse) RawData() interface{} {
	if r == nil {
		return nil
	}
	if data, ok := r.Raw["data"]; ok && data != nil {
		return data
	}
	if r.Raw != nil {
		return r.Raw
	}
	return r.Data
}

// B2BGateway is the capability the core needs from the wallet custodian
type B2BGateway interface {
	PaymentVerify(ctx context.Context, code, account string, amount decimal.Decimal, currency string) (*B2BPaymentResponse, error)
	PaymentExecute(ctx context.Context, code string) (*B2BPaymentResponse, error)
	GetPaymentStatus(ctx context.Context, code string) (*B2BPaymentResponse, error)
}

// AlertType classifies operator alerts
type AlertType string

const (
	AlertInfo    AlertType = "info"
	AlertWarning AlertType = "warning"
	AlertError   AlertType = "error"
	AlertSuccess AlertType = "success"
)

// SystemAlert is an operator-facing alert
type SystemAlert struct {
	Type      AlertType
	Title     string
	Message   string
	Metadata  map[string]interface{}
	Timestamp time.Time
}

// Notifier delivers operator notifications. Implementations are best-effort.
type Notifier interface {
	PaymentCreated(ctx context.Context, payment *Payment)
	DepositProcessed(ctx context.Context, payment *Payment)
	WebhookReceived(ctx context.Context, provider PaymentProvider, event *DepositEvent, status PaymentStatus)
	SystemAlert(ctx context.Context, alert SystemAlert)
}

// ReceiptSender emails the payer once their top-up is credited
type ReceiptSender interface {
	SendPaymentReceipt(ctx context.Context, payment *Payment) (SendEmailResponse, error)
}

// SendEmailPayload is the payload for email providers
type SendEmailPayload struct {
	FromAddress string
	ToAddress   string
	Subject     string
	Body        string
	HTMLBody    string
	DynamicData map[string]interface{}
}

// SendEmailResponse is the response from email providers
type SendEmailResponse struct {
	Response string `json:"response"`
	Id       string `json:"id"`
}

// CreatePaymentPayload is the request body for creating a payment
type CreatePaymentPayload struct {
	Amount     string `json:"amount" binding:"required,numeric,max=10"`
	MethodCode string `json:"methodCode" binding:"required,min=3,max=50"`
	Account    string `json:"account" binding:"required,min=3,max=100"`
	Email      string `json:"email" binding:"required,email,max=255"`
	Meta       string `json:"meta" binding:"omitempty,max=1000"`
}

// CreatePaymentResponse is returned after a payment is created
type CreatePaymentResponse struct {
	PaymentID   string           `json:"paymentId"`
	PaymentLink string           `json:"paymentLink"`
	Amount      decimal.Decimal  `json:"amount"`
	Commission  decimal.Decimal  `json:"commission"`
	Currency    string           `json:"currency"`
	Details     *ProviderPayment `json:"details"`
}

// PaymentStatusResponse is the public view of a payment
type PaymentStatusResponse struct {
	ID          string          `json:"id"`
	Status      PaymentStatus   `json:"status"`
	PaymentLink string          `json:"paymentLink"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
}

// PaymentFilter narrows payment listings
type PaymentFilter struct {
	Status  PaymentStatus
	Email   string
	Account string
}

// MethodFilter narrows payment method listings
type MethodFilter struct {
	Provider PaymentProvider
	IsActive *bool
}

// CreateMethodPayload is the request body for creating a payment method
type CreateMethodPayload struct {
	ProviderMethod             string          `json:"providerMethod" binding:"required,min=3,max=50"`
	Provider                   PaymentProvider `json:"provider" binding:"required,oneof=cryptopay cardlink"`
	FromCurrencyCode           string          `json:"fromCurrencyCode" binding:"required,min=3,max=5"`
	ToCurrencyCode             string          `json:"toCurrencyCode" binding:"required,min=3,max=5"`
	Min                        int64           `json:"min" binding:"required,min=1,max=1000000"`
	Max                        int64           `json:"max" binding:"required,min=1,max=10000000,gtefield=Min"`
	RelativeCommission         decimal.Decimal `json:"relativeCommission"`
	RelativeProviderCommission decimal.Decimal `json:"relativeProviderCommission"`
	IsActive                   *bool           `json:"isActive"`
}

// UpdateMethodPayload is the request body for updating a payment method
type UpdateMethodPayload struct {
	RelativeCommission         decimal.Decimal `json:"relativeCommission"`
	RelativeProviderCommission decimal.Decimal `json:"relativeProviderCommission"`
	IsActive                   *bool           `json:"isActive"`
}

// CreatePromoCodePayload is the request body for creating or updating a promo code
type CreatePromoCodePayload struct {
	Code         string          `json:"code" binding:"required,min=3,max=50"`
	BonusPercent decimal.Decimal `json:"bonusPercent"`
}

// ActivatePromoCodePayload is the request body for activating a promo code
type ActivatePromoCodePayload struct {
	Email string `json:"email" binding:"required,email,max=255"`
}

// LoginPayload is the admin login request body
type LoginPayload struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse is returned after a successful admin login
type LoginResponse struct {
	AccessToken string `json:"accessToken"`
	ExpiresAt   int64  `json:"expiresAt"`
}

// Pagination holds normalized paging parameters
type Pagination struct {
	Page  int
	Limit int
	Desc  bool
}

// Offset returns the row offset for the page
func (p Pagination) Offset() int {
	return (p.Page - 1) * p.Limit
}

// PaginatedResponse wraps a page of items
type PaginatedResponse struct {
	Items           interface{} `json:"items"`
	Total           int         `json:"total"`
	Page            int         `json:"page"`
	Limit           int         `json:"limit"`
	PageCount       int         `json:"pageCount"`
	HasPreviousPage bool        `json:"hasPreviousPage"`
	HasNextPage     bool        `json:"hasNextPage"`
}

// NewPaginatedResponse builds the page envelope
func NewPaginatedResponse(items interface{}, total int, p Pagination) PaginatedResponse {
	pageCount := 0
	if p.Limit > 0 {
		pageCount = (total + p.Limit - 1) / p.Limit
	}
	return PaginatedResponse{
		Items:           items,
		Total:           total,
		Page:            p.Page,
		Limit:           p.Limit,
		PageCount:       pageCount,
		HasPreviousPage: p.Page > 1,
		HasNextPage:     p.Page < pageCount,
	}
}

// Response is the struct for an API response
type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// ErrorData is the struct for error data i.e when Status is "error"
type ErrorData struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}
