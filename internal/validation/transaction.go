package validation

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/portfolio-performance/internal/api/request"
	"github.com/ndewijer/portfolio-performance/internal/apperrors"
	"github.com/ndewijer/portfolio-performance/internal/model"
)

// ValidateCreateTransaction validates a transaction creation request and
// converts it into factory parameters.
//
// Required fields:
//   - portfolioId: Must be a valid UUID
//   - date: Must be in YYYY-MM-DD format
//   - symbol: Non-empty
//   - market: One of the supported markets
//   - type: buy or sell
//   - quantity: Positive decimal
//   - unitPrice: Non-negative decimal
//
// Optional fields:
//   - fees: Non-negative decimal, defaults to zero
//   - exchangeRate: Positive decimal
//   - currencyLedgerId: Must be a valid UUID if provided
//
// Returns a validation Error with field-specific error messages if validation fails.
func ValidateCreateTransaction(req request.CreateTransactionRequest) (model.TransactionParams, error) {
	if err := ValidateUUID(req.PortfolioID); err != nil {
		return model.TransactionParams{}, err
	}

	errors := make(map[string]string)
	params := model.TransactionParams{
		PortfolioID: req.PortfolioID,
		Symbol:      strings.TrimSpace(req.Symbol),
		Type:        model.TransactionType(req.Type),
	}

	if strings.TrimSpace(req.Date) == "" {
		errors["date"] = "date is required"
	} else if d, err := time.Parse(model.DateLayout, req.Date); err != nil {
		errors["date"] = "must be in YYYY-MM-DD format"
	} else {
		params.Date = d
	}

	if params.Symbol == "" {
		errors["symbol"] = "symbol is required"
	}

	if m, err := model.ParseMarket(req.Market); err != nil {
		errors["market"] = err.Error()
	} else {
		params.Market = m
	}

	switch strings.TrimSpace(req.Type) {
	case "":
		errors["type"] = "type is required"
	case string(model.TransactionBuy), string(model.TransactionSell):
	default:
		errors["type"] = fmt.Sprintf("invalid type: %s", req.Type)
	}

	if q, err := decimal.NewFromString(req.Quantity); err != nil {
		errors["quantity"] = "quantity must be a decimal number"
	} else if !q.IsPositive() {
		errors["quantity"] = "quantity must be positive"
	} else {
		params.Quantity = q
	}

	if p, err := decimal.NewFromString(req.UnitPrice); err != nil {
		errors["unitPrice"] = "unitPrice must be a decimal number"
	} else if p.IsNegative() {
		errors["unitPrice"] = "unitPrice cannot be negative"
	} else {
		params.UnitPrice = p
	}

	if req.Fees != "" {
		if f, err := decimal.NewFromString(req.Fees); err != nil {
			errors["fees"] = "fees must be a decimal number"
		} else if f.IsNegative() {
			errors["fees"] = "fees cannot be negative"
		} else {
			params.Fees = f
		}
	}

	params.ExchangeRate = model.Unknown()
	if req.ExchangeRate != nil {
		if r, err := decimal.NewFromString(*req.ExchangeRate); err != nil {
			errors["exchangeRate"] = "exchangeRate must be a decimal number"
		} else if !r.IsPositive() {
			errors["exchangeRate"] = "exchangeRate must be positive"
		} else {
			params.ExchangeRate = model.Known(r)
		}
	}

	if req.CurrencyLedgerID != nil && *req.CurrencyLedgerID != "" {
		if err := ValidateUUID(*req.CurrencyLedgerID); err != nil {
			errors["currencyLedgerId"] = "must be a valid UUID"
		} else {
			params.CurrencyLedgerID = *req.CurrencyLedgerID
		}
	}

	if len(errors) > 0 {
		return model.TransactionParams{}, &Error{Fields: errors}
	}

	return params, nil
}

// ValidateTransactionStream checks that no sell exceeds the quantity held
// when it executes. txs must be ordered and split-adjusted.
//
// Returns apperrors.ErrInsufficientShares naming the first offending sell.
func ValidateTransactionStream(txs []model.Transaction) error {
	held := make(map[model.PositionKey]decimal.Decimal)
	for _, t := range txs {
		if t.IsDeleted {
			continue
		}
		switch t.Type {
		case model.TransactionBuy:
			held[t.Key()] = held[t.Key()].Add(t.Quantity)
		case model.TransactionSell:
			if t.Quantity.GreaterThan(held[t.Key()]) {
				return fmt.Errorf("%w: %s sells %s on %s but holds %s",
					apperrors.ErrInsufficientShares, t.Key(), t.Quantity,
					t.Date.Format(model.DateLayout), held[t.Key()])
			}
			held[t.Key()] = held[t.Key()].Sub(t.Quantity)
		}
	}
	return nil
}
