package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/backoffice/internal/authorization"
	costdomain "github.com/smallbiznis/backoffice/internal/cost/domain"
	debtdomain "github.com/smallbiznis/backoffice/internal/debt/domain"
	"github.com/smallbiznis/backoffice/internal/debtlock"
	partnerdomain "github.com/smallbiznis/backoffice/internal/partner/domain"
	registrydomain "github.com/smallbiznis/backoffice/internal/registry/domain"
	transactiondomain "github.com/smallbiznis/backoffice/internal/transaction/domain"
	"github.com/smallbiznis/backoffice/pkg/db/unit"
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
	Failure *failureDetail    `json:"failure,omitempty"`
}

// failureDetail describes a write unit that could not be fully undone.
type failureDetail struct {
	Invariant string `json:"invariant"`
	Entity    string `json:"entity"`
	EntityID  string `json:"entity_id"`
	Step      string `json:"step"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrServiceUnavailable = errors.New("service_unavailable")
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

	// A partial failure wraps the step error, so it is checked before the
	// sentinels that error may carry.
	if pf, ok := unit.AsPartialFailure(err); ok {
		return http.StatusInternalServerError, errorPayload{
			Type:    "partial_failure",
			Message: "write was not fully applied",
			Failure: &failureDetail{
				Invariant: pf.Target.Invariant,
				Entity:    pf.Target.Entity,
				EntityID:  pf.Target.EntityID,
				Step:      pf.Step,
			},
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
	case errors.Is(err, ErrForbidden),
		errors.Is(err, authorization.ErrForbidden):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: conflictMessage(err),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// classifyErrorForLog feeds the request logger the same type and code the
// client sees.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	code := payload.Type
	if len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	} else if err != nil && payload.Type != "internal_error" {
		code = err.Error()
	}
	return payload.Type, code
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
		errors.Is(err, authorization.ErrInvalidRole):
		return true
	case isPartnerValidationError(err),
		isRegistryValidationError(err),
		isCostValidationError(err),
		isDebtValidationError(err),
		isTransactionValidationError(err):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, partnerdomain.ErrNotFound),
		errors.Is(err, registrydomain.ErrParentNotFound),
		errors.Is(err, costdomain.ErrCostNotFound),
		errors.Is(err, costdomain.ErrParentNotFound),
		errors.Is(err, costdomain.ErrSupplierNotFound),
		errors.Is(err, debtdomain.ErrDebtNotFound),
		errors.Is(err, debtdomain.ErrPartnerNotFound),
		errors.Is(err, transactiondomain.ErrTransactionNotFound),
		errors.Is(err, transactiondomain.ErrDebtNotFound),
		errors.Is(err, transactiondomain.ErrPartnerNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, ErrConflict),
		errors.Is(err, partnerdomain.ErrPartnerInUse),
		errors.Is(err, registrydomain.ErrDuplicateCode),
		errors.Is(err, debtdomain.ErrDebtHasTransactions),
		errors.Is(err, debtdomain.ErrDebtOwnedByCost),
		errors.Is(err, debtlock.ErrDebtBusy):
		return true
	default:
		return false
	}
}

func conflictMessage(err error) string {
	switch {
	case errors.Is(err, debtdomain.ErrDebtHasTransactions):
		return "debt still has transactions"
	case errors.Is(err, debtdomain.ErrDebtOwnedByCost):
		return "debt is maintained by its cost"
	case errors.Is(err, debtlock.ErrDebtBusy):
		return "debt is being modified, retry"
	case errors.Is(err, partnerdomain.ErrPartnerInUse):
		return "partner is still referenced"
	case errors.Is(err, registrydomain.ErrDuplicateCode):
		return "code already exists"
	default:
		return "conflict"
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
	if code == "invalid_request" {
		return "request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	if strings.HasSuffix(code, "_type_mismatch") {
		return "type"
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case "transaction_type_mismatch":
		return "transaction type does not match the debt type"
	default:
		return "invalid value"
	}
}
