package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	batchdomain "github.com/mediasign/licenza/internal/batchlicense/domain"
	gatewaydomain "github.com/mediasign/licenza/internal/gateway/domain"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrConflict       = errors.New("conflict")
	ErrInternal       = errors.New("internal_error")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: "invalid value",
				},
			},
		}
	}

	switch {
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: err.Error(),
		}
	case isUpstreamError(err):
		return http.StatusBadGateway, errorPayload{
			Type:    "upstream_error",
			Message: "payment gateway unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, batchdomain.ErrUserRequired),
		errors.Is(err, batchdomain.ErrNoDevicesSelected),
		errors.Is(err, batchdomain.ErrDuplicateDevice),
		errors.Is(err, batchdomain.ErrUnknownDevice),
		errors.Is(err, batchdomain.ErrInvalidValue),
		errors.Is(err, batchdomain.ErrInvalidDayOfPayment):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, batchdomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, ErrConflict),
		errors.Is(err, batchdomain.ErrInvoiceAlreadyOpen),
		errors.Is(err, batchdomain.ErrAlreadyPaid),
		errors.Is(err, batchdomain.ErrNoGatewayInvoice),
		errors.Is(err, batchdomain.ErrActivationConflict):
		return true
	default:
		return false
	}
}

func isUpstreamError(err error) bool {
	switch {
	case errors.Is(err, batchdomain.ErrGatewayUnavailable),
		errors.Is(err, gatewaydomain.ErrUnavailable),
		errors.Is(err, gatewaydomain.ErrInvalidResponse),
		errors.Is(err, gatewaydomain.ErrNotConfigured):
		return true
	default:
		return false
	}
}

func validationErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	default:
		return err.Error()
	}
}

func validationErrorField(code string) string {
	switch code {
	case "invalid_request":
		return "request"
	case "user_required":
		return "user_id"
	case "no_devices_selected", "duplicate_device", "unknown_device":
		return "device_ids"
	case "invalid_value":
		return "value"
	case "invalid_day_of_payment":
		return "day_of_payment"
	default:
		if strings.HasPrefix(code, "invalid_") {
			return strings.TrimPrefix(code, "invalid_")
		}
		return ""
	}
}

// classifyErrorForLog keeps request logs low-cardinality: a coarse type plus
// the sentinel code, never the raw error text.
func classifyErrorForLog(err error) (string, string) {
	if err == nil {
		return "", ""
	}
	switch {
	case asValidationErrors(err) != nil, isValidationError(err):
		return "validation_error", validationErrorCode(err)
	case isNotFoundError(err):
		return "not_found", "not_found"
	case isConflictError(err):
		return "conflict", err.Error()
	case isUpstreamError(err):
		return "upstream_error", "gateway"
	default:
		return "internal_error", "internal"
	}
}
