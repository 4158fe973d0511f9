package httpx

import (
	"errors"
	"net/http"

	ledger "github.com/meridian-books/meridian/internal/ledger/shared"
)

// RespondError maps ledger domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ledger.ErrDuplicateCode),
		errors.Is(err, ledger.ErrIdempotencyConflict),
		errors.Is(err, ledger.ErrOverlappingPeriod):
		Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ledger.ErrValidation),
		errors.Is(err, ledger.ErrBadAmount),
		errors.Is(err, ledger.ErrUnbalancedEntry),
		errors.Is(err, ledger.ErrTooFewLines),
		errors.Is(err, ledger.ErrInvalidParent),
		errors.Is(err, ledger.ErrDateOutOfRange):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ledger.ErrInvalidStateTransition),
		errors.Is(err, ledger.ErrNotApprovable),
		errors.Is(err, ledger.ErrApprovalRequired),
		errors.Is(err, ledger.ErrAccountInactive),
		errors.Is(err, ledger.ErrPeriodClosed),
		errors.Is(err, ledger.ErrNoOpenPeriod),
		errors.Is(err, ledger.ErrPeriodNotClosable),
		errors.Is(err, ledger.ErrReconciliationMismatch):
		Problem(w, http.StatusUnprocessableEntity, "Unprocessable", err.Error())
	case errors.Is(err, ledger.ErrApprovalForbidden):
		Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
