package types

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
)

// ErrorCode identifies a user-visible failure
type ErrorCode string

const (
	ErrCodeValidation          ErrorCode = "VALIDATION_ERROR"
	ErrCodeInternal            ErrorCode = "INTERNAL_SERVER_ERROR"
	ErrCodeNotFound            ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized        ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden           ErrorCode = "FORBIDDEN"
	ErrCodeRateLimitExceeded   ErrorCode = "RATE_LIMIT_EXCEEDED"
	ErrCodePaymentRequest      ErrorCode = "PAYMENT_REQUEST_ERROR"
	ErrCodeMethodNotFound      ErrorCode = "PAYMENT_METHOD_NOT_FOUND"
	ErrCodeMethodInactive      ErrorCode = "PAYMENT_METHOD_INACTIVE"
	ErrCodeInvalidAmount       ErrorCode = "INVALID_PAYMENT_AMOUNT"
	ErrCodeAmountTooLow        ErrorCode = "PAYMENT_AMOUNT_TOO_LOW"
	ErrCodeAmountTooHigh       ErrorCode = "PAYMENT_AMOUNT_TOO_HIGH"
	ErrCodeDailyLimitExceeded  ErrorCode = "DAILY_LIMIT_EXCEEDED"
	ErrCodeTooManyActive       ErrorCode = "TOO_MANY_ACTIVE_PAYMENTS"
	ErrCodeB2BVerification     ErrorCode = "B2B_VERIFICATION_FAILED"
	ErrCodeB2BRejected         ErrorCode = "B2B_REQUEST_REJECTED"
	ErrCodeB2BUnavailable      ErrorCode = "B2B_SERVICE_UNAVAILABLE"
	ErrCodePromoNotFound       ErrorCode = "PROMOCODE_NOT_FOUND"
	ErrCodePromoAlreadyUsed    ErrorCode = "PROMOCODE_ALREADY_USED"
	ErrCodePromoExists         ErrorCode = "PROMOCODE_EXISTS"
	ErrCodeSignatureInvalid    ErrorCode = "WEBHOOK_SIGNATURE_INVALID"
	ErrCodeWebhookDataInvalid  ErrorCode = "WEBHOOK_DATA_INVALID"
	ErrCodeProviderUnsupported ErrorCode = "WEBHOOK_PROVIDER_UNSUPPORTED"
	ErrCodeProviderUnavailable ErrorCode = "PROVIDER_SERVICE_UNAVAILABLE"
	ErrCodeProviderResponse    ErrorCode = "PROVIDER_INVALID_RESPONSE"
)

type localized struct {
	en string
	ru string
}

var errorMessages = map[ErrorCode]localized{
	ErrCodeValidation:          {"Validation error occurred", "Произошла ошибка валидации"},
	ErrCodeInternal:            {"Internal server error", "Внутренняя ошибка сервера"},
	ErrCodeNotFound:            {"Resource not found", "Ресурс не найден"},
	ErrCodeUnauthorized:        {"Unauthorized access", "Неавторизованный доступ"},
	ErrCodeForbidden:           {"Access forbidden", "Доступ запрещен"},
	ErrCodeRateLimitExceeded:   {"Rate limit exceeded", "Превышен лимит запросов"},
	ErrCodePaymentRequest:      {"Payment request error", "Ошибка платежа"},
	ErrCodeMethodNotFound:      {"Payment method not found", "Метод платежа не найден"},
	ErrCodeMethodInactive:      {"Payment method is not active", "Метод платежа неактивен"},
	ErrCodeInvalidAmount:       {"Invalid payment amount", "Некорректная сумма платежа"},
	ErrCodeAmountTooLow:        {"Payment amount is too low", "Сумма платежа слишком мала"},
	ErrCodeAmountTooHigh:       {"Payment amount is too high", "Сумма платежа слишком велика"},
	ErrCodeDailyLimitExceeded:  {"Daily limit exceeded. Please try again tomorrow", "Превышен дневной лимит. Попробуйте завтра"},
	ErrCodeTooManyActive:       {"Too many active payments. Please try again later", "Слишком много активных платежей. Попробуйте позже"},
	ErrCodeB2BVerification:     {"B2B verification failed", "Ошибка верификации B2B"},
	ErrCodeB2BRejected:         {"B2B request rejected", "Запрос B2B отклонен"},
	ErrCodeB2BUnavailable:      {"B2B service is unavailable", "Сервис B2B недоступен"},
	ErrCodePromoNotFound:       {"Promocode not found", "Промокод не найден"},
	ErrCodePromoAlreadyUsed:    {"Promocode has already been used", "Промокод уже использован"},
	ErrCodePromoExists:         {"Promocode already exists", "Промокод уже существует"},
	ErrCodeSignatureInvalid:    {"Invalid webhook signature", "Некорректная подпись webhook"},
	ErrCodeWebhookDataInvalid:  {"Invalid webhook data", "Некорректные данные webhook"},
	ErrCodeProviderUnsupported: {"Unsupported payment provider", "Неподдерживаемый платежный провайдер"},
	ErrCodeProviderUnavailable: {"Payment provider service unavailable", "Сервис провайдера платежей недоступен"},
	ErrCodeProviderResponse:    {"Invalid response from payment provider", "Некорректный ответ от провайдера платежей"},
}

// Supported response languages
const (
	LangEN = "en"
	LangRU = "ru"
)

// AppError is a classified error with an HTTP status and localizable message
type AppError struct {
	Code    ErrorCode
	Status  int
	Details map[string]interface{}
	Err     error
}

func (e *AppError) Error() string {
	msg := e.Message(LangEN)
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Message returns the message for lang ("en" or "ru"), English otherwise
func (e *AppError) Message(lang string) string {
	msg, ok := errorMessages[e.Code]
	if !ok {
		return string(e.Code)
	}
	if lang == LangRU {
		return msg.ru
	}
	return msg.en
}

// AsAppError extracts an AppError from err's chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsErrorCode reports whether err carries code
func IsErrorCode(err error, code ErrorCode) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}

// NewAppError builds an AppError
func NewAppError(code ErrorCode, status int, details map[string]interface{}, err error) *AppError {
	return &AppError{Code: code, Status: status, Details: details, Err: err}
}

func ErrValidation(details map[string]interface{}) *AppError {
	return NewAppError(ErrCodeValidation, http.StatusBadRequest, details, nil)
}

func ErrNotFound(resource string) *AppError {
	return NewAppError(ErrCodeNotFound, http.StatusNotFound, map[string]interface{}{"resource": resource}, nil)
}

func ErrInternal(err error) *AppError {
	return NewAppError(ErrCodeInternal, http.StatusInternalServerError, nil, err)
}

func ErrMethodNotFound(methodCode string) *AppError {
	return NewAppError(ErrCodeMethodNotFound, http.StatusNotFound, map[string]interface{}{"methodCode": methodCode}, nil)
}

func ErrMethodInactive(methodCode string) *AppError {
	return NewAppError(ErrCodeMethodInactive, http.StatusBadRequest, map[string]interface{}{"methodCode": methodCode}, nil)
}

func ErrInvalidAmount(amount string) *AppError {
	return NewAppError(ErrCodeInvalidAmount, http.StatusBadRequest, map[string]interface{}{"amount": amount}, nil)
}

func ErrAmountTooLow(amount decimal.Decimal, minAmount int64) *AppError {
	return NewAppError(ErrCodeAmountTooLow, http.StatusBadRequest, map[string]interface{}{
		"amount":    amount,
		"minAmount": minAmount,
	}, nil)
}

func ErrAmountTooHigh(amount decimal.Decimal, maxAmount int64) *AppError {
	return NewAppError(ErrCodeAmountTooHigh, http.StatusBadRequest, map[string]interface{}{
		"amount":    amount,
		"maxAmount": maxAmount,
	}, nil)
}

func ErrDailyLimitExceeded(currentAmount, limit decimal.Decimal) *AppError {
	return NewAppError(ErrCodeDailyLimitExceeded, http.StatusTooManyRequests, map[string]interface{}{
		"currentAmount": currentAmount,
		"limit":         limit,
	}, nil)
}

func ErrTooManyActivePayments(currentCount, maxCount int) *AppError {
	return NewAppError(ErrCodeTooManyActive, http.StatusTooManyRequests, map[string]interface{}{
		"currentCount": currentCount,
		"maxCount":     maxCount,
	}, nil)
}

func ErrB2BVerificationFailed(statusCode, account, reason string) *AppError {
	return NewAppError(ErrCodeB2BVerification, http.StatusBadRequest, map[string]interface{}{
		"b2bStatusCode": statusCode,
		"account":       account,
		"reason":        reason,
	}, nil)
}

func ErrB2BRejected(account, reason string, err error) *AppError {
	return NewAppError(ErrCodeB2BRejected, http.StatusBadRequest, map[string]interface{}{
		"account": account,
		"reason":  reason,
	}, err)
}

func ErrB2BUnavailable(err error) *AppError {
	return NewAppError(ErrCodeB2BUnavailable, http.StatusBadGateway, nil, err)
}

func ErrPaymentRequest(err error) *AppError {
	return NewAppError(ErrCodePaymentRequest, http.StatusBadGateway, nil, err)
}

func ErrPromoNotFound(code string) *AppError {
	return NewAppError(ErrCodePromoNotFound, http.StatusNotFound, map[string]interface{}{"code": code}, nil)
}

func ErrPromoAlreadyUsed(code string) *AppError {
	return NewAppError(ErrCodePromoAlreadyUsed, http.StatusConflict, map[string]interface{}{"code": code}, nil)
}

func ErrPromoExists(code string) *AppError {
	return NewAppError(ErrCodePromoExists, http.StatusConflict, map[string]interface{}{"code": code}, nil)
}

func ErrSignatureInvalid(provider PaymentProvider) *AppError {
	return NewAppError(ErrCodeSignatureInvalid, http.StatusUnauthorized, map[string]interface{}{"provider": provider}, nil)
}

func ErrWebhookDataInvalid(reason string) *AppError {
	return NewAppError(ErrCodeWebhookDataInvalid, http.StatusBadRequest, map[string]interface{}{"reason": reason}, nil)
}

func ErrProviderUnsupported(provider string) *AppError {
	return NewAppError(ErrCodeProviderUnsupported, http.StatusBadRequest, map[string]interface{}{
		"provider":           provider,
		"supportedProviders": SupportedProviders,
	}, nil)
}

func ErrProviderUnavailable(err error) *AppError {
	return NewAppError(ErrCodeProviderUnavailable, http.StatusBadGateway, nil, err)
}

func ErrProviderResponse(err error) *AppError {
	return NewAppError(ErrCodeProviderResponse, http.StatusBadGateway, nil, err)
}

func ErrUnauthorized() *AppError {
	return NewAppError(ErrCodeUnauthorized, http.StatusUnauthorized, nil, nil)
}
