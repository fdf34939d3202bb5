package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	allocationdomain "github.com/fintraq/fintraq/internal/allocation/domain"
	baselinedomain "github.com/fintraq/fintraq/internal/baseline/domain"
	householddomain "github.com/fintraq/fintraq/internal/household/domain"
	perioddomain "github.com/fintraq/fintraq/internal/period/domain"
	pipelinedomain "github.com/fintraq/fintraq/internal/pipeline/domain"
	transactiondomain "github.com/fintraq/fintraq/internal/transaction/domain"
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
	ErrUnauthorized   = errors.New("unauthorized")
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

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
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
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrConflict),
		errors.Is(err, perioddomain.ErrVersionConflict):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "conflict",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrInternal):
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
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
	case errors.Is(err, ErrInvalidRequest):
		return true
	case isHouseholdValidationError(err),
		isPeriodValidationError(err),
		isTransactionValidationError(err),
		isAllocationValidationError(err):
		return true
	default:
		return false
	}
}

func isHouseholdValidationError(err error) bool {
	return errors.Is(err, householddomain.ErrInvalidHouseholdCounts) ||
		errors.Is(err, householddomain.ErrInvalidRegionTier) ||
		errors.Is(err, householddomain.ErrInvalidIncomeBand) ||
		errors.Is(err, householddomain.ErrInvalidNetIncome)
}

func isPeriodValidationError(err error) bool {
	return errors.Is(err, perioddomain.ErrInvalidPeriod) ||
		errors.Is(err, perioddomain.ErrInvalidAmount)
}

func isTransactionValidationError(err error) bool {
	return errors.Is(err, transactiondomain.ErrEmptyBatch) ||
		errors.Is(err, transactiondomain.ErrInvalidAmount) ||
		errors.Is(err, transactiondomain.ErrInvalidDate) ||
		errors.Is(err, transactiondomain.ErrInvalidCategory) ||
		errors.Is(err, transactiondomain.ErrInvalidDirection) ||
		errors.Is(err, baselinedomain.ErrInvalidTier)
}

func isAllocationValidationError(err error) bool {
	return errors.Is(err, allocationdomain.ErrInvalidRuleType) ||
		errors.Is(err, allocationdomain.ErrInvalidRuleTarget) ||
		errors.Is(err, allocationdomain.ErrDuplicateRuleName) ||
		errors.Is(err, allocationdomain.ErrInvalidConsentKey) ||
		errors.Is(err, allocationdomain.ErrEmptyConsent) ||
		errors.Is(err, allocationdomain.ErrInvalidConsentAmount) ||
		errors.Is(err, allocationdomain.ErrConsentExceedsAvailable) ||
		errors.Is(err, allocationdomain.ErrTaxHeadroomExceeded)
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, householddomain.ErrNotFound),
		errors.Is(err, perioddomain.ErrNotFound),
		errors.Is(err, pipelinedomain.ErrDerivedProfileMissing),
		errors.Is(err, allocationdomain.ErrRuleNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorCode(err error) string {
	if errors.Is(err, ErrInvalidRequest) {
		return "invalid_request"
	}
	return err.Error()
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case "consent_exceeds_available":
		return "consent total exceeds the available fund"
	case "tax_headroom_exceeded":
		return "tax lines exceed the remaining annual headroom"
	default:
		return "invalid value"
	}
}
