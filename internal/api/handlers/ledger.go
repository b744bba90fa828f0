package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ndewijer/portfolio-performance/internal/api/response"
	"github.com/ndewijer/portfolio-performance/internal/apperrors"
	"github.com/ndewijer/portfolio-performance/internal/service"
)

// LedgerHandler handles HTTP requests for currency ledgers.
type LedgerHandler struct {
	ledgerService *service.LedgerService
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(ledgerService *service.LedgerService) *LedgerHandler {
	return &LedgerHandler{
		ledgerService: ledgerService,
	}
}

// Summary handles GET requests for a ledger's replayed state.
//
// Endpoint: GET /api/ledger/{uuid}/summary?date=YYYY-MM-DD
// Response: 200 OK with service.LedgerSummary
// Error: 400 Bad Request if the date is malformed
// Error: 404 Not Found if the ledger does not exist
// Error: 422 Unprocessable Entity if the stored history overdraws the ledger
func (h *LedgerHandler) Summary(w http.ResponseWriter, r *http.Request) {
	ledgerID := chi.URLParam(r, "uuid")

	asOf, err := dateQuery(r, "date")
	if err != nil {
		respondServiceError(w, err, "")
		return
	}

	summary, err := h.ledgerService.GetSummary(r.Context(), ledgerID, asOf)
	if err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToRetrieveLedger.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, summary)
}
