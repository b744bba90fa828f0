package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ndewijer/portfolio-performance/internal/api/request"
	"github.com/ndewijer/portfolio-performance/internal/api/response"
	"github.com/ndewijer/portfolio-performance/internal/apperrors"
	"github.com/ndewijer/portfolio-performance/internal/service"
	"github.com/ndewijer/portfolio-performance/internal/validation"
)

// TransactionHandler handles HTTP requests for transaction endpoints.
// It serves as the HTTP layer adapter, parsing requests and delegating
// business logic to the transactionService.
type TransactionHandler struct {
	transactionService *service.TransactionService
}

// NewTransactionHandler creates a new TransactionHandler with the provided service dependency.
func NewTransactionHandler(transactionService *service.TransactionService) *TransactionHandler {
	return &TransactionHandler{
		transactionService: transactionService,
	}
}

// CreateTransaction handles POST requests to create a new transaction.
// Validates the request body and creates a transaction record in the database.
//
// Endpoint: POST /api/transaction
// Request Body: CreateTransactionRequest (portfolioId, date, symbol, market, type, quantity, unitPrice, ...)
// Response: 201 Created with Transaction
// Error: 400 Bad Request if validation fails or request body is invalid
// Error: 404 Not Found if the portfolio does not exist
// Error: 422 Unprocessable Entity if a sell exceeds the shares held
// Error: 500 Internal Server Error if creation fails
func (h *TransactionHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[request.CreateTransactionRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	params, err := validation.ValidateCreateTransaction(req)
	if err != nil {
		respondServiceError(w, err, "validation failed")
		return
	}

	transaction, err := h.transactionService.Create(r.Context(), params)
	if err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToCreateTransaction.Error())
		return
	}

	response.RespondJSON(w, http.StatusCreated, transaction)
}

// DeleteTransaction handles DELETE requests to remove a transaction.
//
// Endpoint: DELETE /api/transaction/{uuid}
// Response: 204 No Content on successful deletion
// Error: 400 Bad Request if transaction ID is invalid (validated by middleware)
// Error: 404 Not Found if transaction not found
// Error: 422 Unprocessable Entity if a later sell depends on the transaction
// Error: 500 Internal Server Error if deletion fails
func (h *TransactionHandler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	transactionID := chi.URLParam(r, "uuid")

	if err := h.transactionService.Delete(r.Context(), transactionID); err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToDeleteTransaction.Error())
		return
	}

	response.RespondJSON(w, http.StatusNoContent, nil)
}
