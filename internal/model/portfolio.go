package model

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Portfolio is a user's collection of holdings. BaseCurrency is the
// source-side reporting currency, HomeCurrency the user's own.
type Portfolio struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	BaseCurrency  string `json:"baseCurrency"`
	HomeCurrency  string `json:"homeCurrency"`
	BoundLedgerID string `json:"boundLedgerId,omitempty"`
}

// NewPortfolio validates currencies and builds a portfolio.
func NewPortfolio(id, name, baseCurrency, homeCurrency, boundLedgerID string) (Portfolio, error) {
	if err := ValidateCurrency(baseCurrency); err != nil {
		return Portfolio{}, fmt.Errorf("base currency: %w", err)
	}
	if err := ValidateCurrency(homeCurrency); err != nil {
		return Portfolio{}, fmt.Errorf("home currency: %w", err)
	}
	return Portfolio{
		ID:            id,
		Name:          name,
		BaseCurrency:  baseCurrency,
		HomeCurrency:  homeCurrency,
		BoundLedgerID: boundLedgerID,
	}, nil
}

// Position is a holding derived by folding transactions. It is never stored.
// Home-currency figures are Unknown when any contributing buy lacked a rate.
type Position struct {
	Symbol            string          `json:"symbol"`
	Market            Market          `json:"market"`
	TotalQuantity     decimal.Decimal `json:"totalQuantity"`
	TotalCostSource   decimal.Decimal `json:"totalCostSource"`
	TotalCostHome     Optional        `json:"totalCostHome"`
	AverageCostSource Optional        `json:"averageCostSource"`
	AverageCostHome   Optional        `json:"averageCostHome"`
	RealizedPnLSource decimal.Decimal `json:"realizedPnlSource"`
	RealizedPnLHome   Optional        `json:"realizedPnlHome"`
}

// Key returns the holding identity.
func (p Position) Key() PositionKey { return PositionKey{Symbol: p.Symbol, Market: p.Market} }

// IsOpen reports whether shares are still held.
func (p Position) IsOpen() bool { return p.TotalQuantity.IsPositive() }
