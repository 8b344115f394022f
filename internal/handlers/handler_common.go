package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/finbooks/ledger-core/internal/apperrors"
)

// statusForError maps the error taxonomy to HTTP status codes.
// Validation -> 400, forbidden -> 403, not found -> 404, conflict/duplicate
// -> 409, business rule -> 422, everything else -> 500.
func statusForError(err error) int {
	switch {
	case errors.Is(err, apperrors.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperrors.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperrors.ErrConflict), errors.Is(err, apperrors.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, apperrors.ErrBusinessRule):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	status := statusForError(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		// Never leak internals to the client.
		msg = "Internal server error"
	}
	c.JSON(status, gin.H{"error": msg})
}
