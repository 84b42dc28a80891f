package b2b

import "github.com/steamtrust/backend/types"

// Custodian status codes
const (
	StatusRequestAccepted           = "REQUEST_ACCEPTED"
	StatusPaymentInProgress         = "PAYMENT_IN_PROGRESS"
	StatusPaymentSuccess            = "PAYMENT_SUCCESS"
	StatusDuplicateTransaction      = "DUPLICATE_TRANSACTION"
	StatusInsufficientFunds         = "INSUFFICIENT_FUNDS"
	StatusPaymentVerificationFailed = "PAYMENT_VERIFICATION_FAILED"
	StatusPaymentConfirmationFailed = "PAYMENT_CONFIRMATION_FAILED"
	StatusPurchaseNotFound          = "PURCHASE_NOT_FOUND"
	StatusCalculationError          = "CALCULATION_ERROR"
	StatusTopUpError                = "TOP_UP_ERROR"
)

var statusTable = map[string]types.PaymentStatus{
	StatusDuplicateTransaction:      types.PaymentStatusDuplicateTransaction,
	StatusInsufficientFunds:         types.PaymentStatusInsufficientFunds,
	StatusPaymentVerificationFailed: types.PaymentStatusVerificationFailed,
	StatusPaymentConfirmationFailed: types.PaymentStatusConfirmationFailed,
	StatusPurchaseNotFound:          types.PaymentStatusPurchaseNotFound,
	StatusCalculationError:          types.PaymentStatusCalculationError,
	StatusTopUpError:                types.PaymentStatusTopUpError,
	StatusPaymentSuccess:            types.PaymentStatusCompleted,
	StatusPaymentInProgress:         types.PaymentStatusExternalProcess,
	StatusRequestAccepted:           types.PaymentStatusExternalProcess,
}

// MapStatus maps a custodian status code to a payment status. ok is false
// for unrecognized codes.
func MapStatus(statusCode string) (status types.PaymentStatus, ok bool) {
	status, ok = statusTable[statusCode]
	return status, ok
}

var verificationReasons = map[string]string{
	"REQUEST_REJECTED":              "B2B rejected the top-up request",
	"REQUEST_FAILED":                "B2B could not process the top-up request",
	"REQUEST_TIMEOUT":               "B2B did not respond in time",
	"REQUEST_INVALID":               "B2B received an invalid top-up request",
	"REQUEST_UNAUTHORIZED":          "B2B is not authorized to process the top-up request",
	"REQUEST_FORBIDDEN":             "B2B forbade the top-up request",
	"REQUEST_NOT_FOUND":             "B2B could not find the account to top up",
	"REQUEST_CONFLICT":              "B2B received a conflicting top-up request",
	"REQUEST_TOO_MANY_REQUESTS":     "B2B received too many top-up requests",
	"REQUEST_INTERNAL_SERVER_ERROR": "B2B internal server error",
	"REQUEST_BAD_GATEWAY":           "B2B bad gateway",
	"REQUEST_SERVICE_UNAVAILABLE":   "B2B service unavailable",
	"REQUEST_GATEWAY_TIMEOUT":       "B2B gateway timeout",
	StatusPaymentVerificationFailed: "account cannot be topped up",
}

// ReasonFor returns a human readable reason for a rejected pre-verification
func ReasonFor(statusCode string) string {
	if reason, ok := verificationReasons[statusCode]; ok {
		return reason
	}
	return "unknown B2B error"
}
