package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ndewijer/portfolio-performance/internal/api/response"
	"github.com/ndewijer/portfolio-performance/internal/apperrors"
	"github.com/ndewijer/portfolio-performance/internal/model"
	"github.com/ndewijer/portfolio-performance/internal/validation"
)

// parseJSON decodes the request body into T, rejecting unknown fields.
func parseJSON[T any](r *http.Request) (T, error) {
	var v T
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil {
		return v, fmt.Errorf("failed to decode request body: %w", err)
	}
	return v, nil
}

// dateQuery reads an optional YYYY-MM-DD query parameter, defaulting to today.
func dateQuery(r *http.Request, name string) (time.Time, error) {
	return validation.ParseOptionalDate(name, r.URL.Query().Get(name), model.Today())
}

// respondServiceError maps service errors onto HTTP statuses. message is
// used for anything that is not a client or upstream error.
func respondServiceError(w http.ResponseWriter, err error, message string) {
	var vErr *validation.Error
	switch {
	case errors.As(err, &vErr):
		response.RespondError(w, http.StatusBadRequest, "validation failed", vErr.Fields)
	case errors.Is(err, apperrors.ErrPortfolioNotFound),
		errors.Is(err, apperrors.ErrTransactionNotFound),
		errors.Is(err, apperrors.ErrLedgerNotFound):
		response.RespondError(w, http.StatusNotFound, err.Error(), "")
	case errors.Is(err, apperrors.ErrInvalidDateRange),
		errors.Is(err, apperrors.ErrInvalidUUID):
		response.RespondError(w, http.StatusBadRequest, message, err.Error())
	case errors.Is(err, apperrors.ErrInsufficientShares),
		errors.Is(err, apperrors.ErrInsufficientBalance):
		response.RespondError(w, http.StatusUnprocessableEntity, message, err.Error())
	case errors.Is(err, apperrors.ErrRateLimited):
		response.RespondRateLimited(w, err.Error())
	default:
		response.RespondError(w, http.StatusInternalServerError, message, err.Error())
	}
}
