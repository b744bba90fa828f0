package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ndewijer/portfolio-performance/internal/api/response"
	"github.com/ndewijer/portfolio-performance/internal/apperrors"
	"github.com/ndewijer/portfolio-performance/internal/service"
	"github.com/ndewijer/portfolio-performance/internal/validation"
)

// SnapshotHandler handles HTTP requests that maintain transaction snapshots.
type SnapshotHandler struct {
	snapshotService *service.SnapshotService
}

// NewSnapshotHandler creates a new SnapshotHandler.
func NewSnapshotHandler(snapshotService *service.SnapshotService) *SnapshotHandler {
	return &SnapshotHandler{
		snapshotService: snapshotService,
	}
}

// EnsureForDate handles POST requests that bring one portfolio day's
// snapshots up to date. Repeating the call is harmless.
//
// Endpoint: POST /api/portfolio/{uuid}/snapshots/{date}
// Response: 200 OK with service.SnapshotResult; incomplete is true when
// prices or rates were missing and nothing was stored; provisional is true
// for a day that has not closed, whose live-quote snapshots are not stored
// Error: 400 Bad Request if the date is malformed
// Error: 404 Not Found if the portfolio does not exist
// Error: 503 Service Unavailable if market data is rate limited
func (h *SnapshotHandler) EnsureForDate(w http.ResponseWriter, r *http.Request) {
	portfolioID := chi.URLParam(r, "uuid")

	date, err := validation.ParseDate("date", chi.URLParam(r, "date"))
	if err != nil {
		respondServiceError(w, err, "")
		return
	}

	result, err := h.snapshotService.EnsureSnapshotsForDate(r.Context(), portfolioID, date)
	if err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToRefreshSnapshots.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, result)
}
