package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionSnapshot records portfolio value immediately before and after a
// transaction, in home and source currency. Same-day snapshots are chained:
// each after equals the next before, and both equal the end-of-day value.
type TransactionSnapshot struct {
	ID                string          `json:"id"`
	PortfolioID       string          `json:"portfolioId"`
	TransactionID     string          `json:"transactionId"`
	SnapshotDate      time.Time       `json:"snapshotDate"`
	ValueBeforeHome   decimal.Decimal `json:"valueBeforeHome"`
	ValueAfterHome    decimal.Decimal `json:"valueAfterHome"`
	ValueBeforeSource decimal.Decimal `json:"valueBeforeSource"`
	ValueAfterSource  decimal.Decimal `json:"valueAfterSource"`
	CreatedAt         time.Time       `json:"createdAt"`
}

// Valuation is a portfolio value in both reporting currencies.
type Valuation struct {
	Home   decimal.Decimal `json:"home"`
	Source decimal.Decimal `json:"source"`
}
