package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	billingdomain "github.com/gridfare/gridfare/internal/billing/domain"
	paymentdomain "github.com/gridfare/gridfare/internal/payment/domain"
	payoutdomain "github.com/gridfare/gridfare/internal/payout/domain"
	roamingdomain "github.com/gridfare/gridfare/internal/roaming/domain"
	tariffdomain "github.com/gridfare/gridfare/internal/tariff/domain"
)

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrNotFound           = errors.New("not_found")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

// ValidationError names the request field that failed.
type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string { return e.Message }

func newValidationError(field, code, message string) error {
	return &ValidationError{Field: field, Code: code, Message: message}
}

func invalidRequestError() error {
	return newValidationError("body", "invalid_request", "request body is invalid")
}

// AbortWithError maps domain sentinels onto HTTP responses with a stable
// {"error": {...}} envelope.
func AbortWithError(c *gin.Context, err error) {
	status := statusFor(err)

	var validation *ValidationError
	if errors.As(err, &validation) {
		c.AbortWithStatusJSON(status, gin.H{"error": gin.H{
			"code":    validation.Code,
			"field":   validation.Field,
			"message": validation.Message,
		}})
		return
	}

	c.AbortWithStatusJSON(status, gin.H{"error": gin.H{
		"code": err.Error(),
	}})
}

func statusFor(err error) int {
	var validation *ValidationError
	if errors.As(err, &validation) {
		return http.StatusBadRequest
	}

	switch {
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrNotFound),
		errors.Is(err, billingdomain.ErrSessionNotFound),
		errors.Is(err, paymentdomain.ErrSessionNotFound),
		errors.Is(err, roamingdomain.ErrSessionNotFound),
		errors.Is(err, tariffdomain.ErrProfileNotFound),
		errors.Is(err, tariffdomain.ErrAssignmentNotFound),
		errors.Is(err, tariffdomain.ErrNoActiveTariff),
		errors.Is(err, payoutdomain.ErrStatementNotFound):
		return http.StatusNotFound
	case errors.Is(err, billingdomain.ErrAlreadyBilled),
		errors.Is(err, billingdomain.ErrSessionNotActive),
		errors.Is(err, billingdomain.ErrSessionNotComplete),
		errors.Is(err, paymentdomain.ErrHoldAlreadyOpen),
		errors.Is(err, paymentdomain.ErrNoOpenHold),
		errors.Is(err, paymentdomain.ErrPaymentTerminal),
		errors.Is(err, paymentdomain.ErrCaptureInFlight),
		errors.Is(err, paymentdomain.ErrCaptureExceedsHold),
		errors.Is(err, paymentdomain.ErrEventAlreadyProcessed),
		errors.Is(err, payoutdomain.ErrDuplicatePeriod),
		errors.Is(err, payoutdomain.ErrSessionsContended),
		errors.Is(err, payoutdomain.ErrInvalidStatus),
		errors.Is(err, roamingdomain.ErrAlreadyMatched),
		errors.Is(err, roamingdomain.ErrNotDisputed),
		errors.Is(err, tariffdomain.ErrProfileArchived):
		return http.StatusConflict
	case errors.Is(err, billingdomain.ErrMissingSnapshot),
		errors.Is(err, billingdomain.ErrInvalidMeterData),
		errors.Is(err, paymentdomain.ErrSessionNotBilled),
		errors.Is(err, paymentdomain.ErrMissingIntent),
		errors.Is(err, paymentdomain.ErrInvalidAmount),
		errors.Is(err, payoutdomain.ErrNoEligibleSessions),
		errors.Is(err, roamingdomain.ErrNotRoaming),
		errors.Is(err, roamingdomain.ErrInvalidCDR):
		return http.StatusUnprocessableEntity
	case errors.Is(err, paymentdomain.ErrInvalidSignature),
		errors.Is(err, paymentdomain.ErrInvalidPayload),
		errors.Is(err, paymentdomain.ErrInvalidEvent),
		errors.Is(err, paymentdomain.ErrInvalidProvider),
		errors.Is(err, paymentdomain.ErrProviderNotFound),
		errors.Is(err, tariffdomain.ErrInvalidTime),
		errors.Is(err, tariffdomain.ErrInvalidWorkspace),
		errors.Is(err, tariffdomain.ErrInvalidStation),
		errors.Is(err, tariffdomain.ErrInvalidPrice),
		errors.Is(err, tariffdomain.ErrInvalidFeePercent),
		errors.Is(err, tariffdomain.ErrInvalidWindow),
		errors.Is(err, tariffdomain.ErrProfileNotReferable),
		errors.Is(err, billingdomain.ErrInvalidWorkspace),
		errors.Is(err, billingdomain.ErrInvalidStation),
		errors.Is(err, billingdomain.ErrInvalidEndUser),
		errors.Is(err, payoutdomain.ErrInvalidWorkspace),
		errors.Is(err, payoutdomain.ErrInvalidPeriod),
		errors.Is(err, payoutdomain.ErrInvalidMode):
		return http.StatusBadRequest
	case errors.Is(err, paymentdomain.ErrProcessorUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, paymentdomain.ErrProcessorDeclined):
		return http.StatusPaymentRequired
	case errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
