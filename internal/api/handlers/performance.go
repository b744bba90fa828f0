package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ndewijer/portfolio-performance/internal/api/response"
	"github.com/ndewijer/portfolio-performance/internal/apperrors"
	"github.com/ndewijer/portfolio-performance/internal/service"
	"github.com/ndewijer/portfolio-performance/internal/validation"
)

// PerformanceHandler handles HTTP requests for portfolio positions and
// returns. It parses query parameters and delegates the calculations to
// the PerformanceService.
type PerformanceHandler struct {
	performanceService *service.PerformanceService
}

// NewPerformanceHandler creates a new PerformanceHandler.
func NewPerformanceHandler(performanceService *service.PerformanceService) *PerformanceHandler {
	return &PerformanceHandler{
		performanceService: performanceService,
	}
}

// Positions handles GET requests for the positions of a portfolio.
//
// Endpoint: GET /api/portfolio/{uuid}/positions?date=YYYY-MM-DD
// Response: 200 OK with service.PositionsReport
// Error: 400 Bad Request if the date is malformed
// Error: 404 Not Found if the portfolio does not exist
// Error: 503 Service Unavailable if market data is rate limited
func (h *PerformanceHandler) Positions(w http.ResponseWriter, r *http.Request) {
	portfolioID := chi.URLParam(r, "uuid")

	asOf, err := dateQuery(r, "date")
	if err != nil {
		respondServiceError(w, err, "")
		return
	}

	report, err := h.performanceService.GetPositions(r.Context(), portfolioID, asOf)
	if err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToRetrievePositions.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, report)
}

// XIRR handles GET requests for the annualized money-weighted return.
//
// Endpoint: GET /api/portfolio/{uuid}/xirr?date=YYYY-MM-DD&currency=home|source
// Response: 200 OK with service.XIRRResult; rate is null when no root exists
// Error: 400 Bad Request if a parameter is malformed
// Error: 404 Not Found if the portfolio does not exist
// Error: 503 Service Unavailable if market data is rate limited
func (h *PerformanceHandler) XIRR(w http.ResponseWriter, r *http.Request) {
	portfolioID := chi.URLParam(r, "uuid")

	asOf, err := dateQuery(r, "date")
	if err != nil {
		respondServiceError(w, err, "")
		return
	}

	currency := service.ReportCurrency(r.URL.Query().Get("currency"))
	if currency != "" && currency != service.CurrencyHome && currency != service.CurrencySource {
		response.RespondError(w, http.StatusBadRequest, "validation failed",
			map[string]string{"currency": "must be home or source"})
		return
	}

	result, err := h.performanceService.CalculateXIRR(r.Context(), portfolioID, asOf, currency)
	if err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToCalculateXIRR.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, result)
}

// TWR handles GET requests for the time-weighted and Modified Dietz returns.
//
// Endpoint: GET /api/portfolio/{uuid}/twr?from=YYYY-MM-DD&to=YYYY-MM-DD
// Response: 200 OK with service.TWRResult
// Error: 400 Bad Request if from is missing or not before to
// Error: 404 Not Found if the portfolio does not exist
// Error: 503 Service Unavailable if market data is rate limited
func (h *PerformanceHandler) TWR(w http.ResponseWriter, r *http.Request) {
	portfolioID := chi.URLParam(r, "uuid")

	from, err := validation.ParseDate("from", r.URL.Query().Get("from"))
	if err != nil {
		respondServiceError(w, err, "")
		return
	}
	to, err := dateQuery(r, "to")
	if err != nil {
		respondServiceError(w, err, "")
		return
	}

	result, err := h.performanceService.CalculateTWR(r.Context(), portfolioID, from, to)
	if err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToCalculateTWR.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, result)
}

// NetWorth handles GET requests for the net worth series.
//
// Endpoint: GET /api/portfolio/{uuid}/networth?from=YYYY-MM-DD&to=YYYY-MM-DD&granularity=monthly|annual
// Response: 200 OK with array of service.NetWorthPoint
// Error: 400 Bad Request if a parameter is malformed
// Error: 404 Not Found if the portfolio does not exist
// Error: 503 Service Unavailable if market data is rate limited
func (h *PerformanceHandler) NetWorth(w http.ResponseWriter, r *http.Request) {
	portfolioID := chi.URLParam(r, "uuid")

	from, err := validation.ParseDate("from", r.URL.Query().Get("from"))
	if err != nil {
		respondServiceError(w, err, "")
		return
	}
	to, err := dateQuery(r, "to")
	if err != nil {
		respondServiceError(w, err, "")
		return
	}
	if err := validation.ValidateDateRange(from, to); err != nil {
		respondServiceError(w, err, "invalid date range")
		return
	}

	granularity := service.Granularity(r.URL.Query().Get("granularity"))
	if granularity != "" && granularity != service.GranularityMonthly && granularity != service.GranularityAnnual {
		response.RespondError(w, http.StatusBadRequest, "validation failed",
			map[string]string{"granularity": "must be monthly or annual"})
		return
	}

	points, err := h.performanceService.NetWorthSeries(r.Context(), portfolioID, from, to, granularity)
	if err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToRetrieveNetWorth.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, points)
}
