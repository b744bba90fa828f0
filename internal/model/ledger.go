package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/portfolio-performance/internal/precision"
)

// CurrencyLedger is a foreign-currency cash account.
type CurrencyLedger struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Currency     string `json:"currency"`
	HomeCurrency string `json:"homeCurrency"`
}

// CurrencyTransactionType is the kind of a ledger movement.
type CurrencyTransactionType string

const (
	CurrencyExchangeBuy  CurrencyTransactionType = "exchange_buy"
	CurrencyExchangeSell CurrencyTransactionType = "exchange_sell"
	CurrencyInterest     CurrencyTransactionType = "interest"
	CurrencySpend        CurrencyTransactionType = "spend"
)

var validCurrencyTransactionTypes = map[CurrencyTransactionType]bool{
	CurrencyExchangeBuy:  true,
	CurrencyExchangeSell: true,
	CurrencyInterest:     true,
	CurrencySpend:        true,
}

// CurrencyTransaction moves foreign currency in or out of a ledger.
// ExchangeRate is home currency per unit of foreign currency.
type CurrencyTransaction struct {
	ID            string                  `json:"id"`
	LedgerID      string                  `json:"ledgerId"`
	Date          time.Time               `json:"date"`
	Type          CurrencyTransactionType `json:"type"`
	ForeignAmount decimal.Decimal         `json:"foreignAmount"`
	HomeAmount    Optional                `json:"homeAmount"`
	ExchangeRate  Optional                `json:"exchangeRate"`
	CreatedAt     time.Time               `json:"createdAt"`
}

// CurrencyTransactionParams carries the raw fields for NewCurrencyTransaction.
type CurrencyTransactionParams struct {
	ID            string
	LedgerID      string
	Date          time.Time
	Type          CurrencyTransactionType
	ForeignAmount decimal.Decimal
	HomeAmount    Optional
	ExchangeRate  Optional
	CreatedAt     time.Time
}

// NewCurrencyTransaction validates p and rounds amounts and rates.
func NewCurrencyTransaction(p CurrencyTransactionParams) (CurrencyTransaction, error) {
	if !validCurrencyTransactionTypes[p.Type] {
		return CurrencyTransaction{}, fmt.Errorf("invalid currency transaction type %q", p.Type)
	}
	amount := precision.Money(p.ForeignAmount)
	if !amount.IsPositive() {
		return CurrencyTransaction{}, fmt.Errorf("foreign amount must be positive")
	}
	return CurrencyTransaction{
		ID:            p.ID,
		LedgerID:      p.LedgerID,
		Date:          Day(p.Date),
		Type:          p.Type,
		ForeignAmount: amount,
		HomeAmount:    p.HomeAmount.Map(precision.Money),
		ExchangeRate:  p.ExchangeRate.Map(precision.Rate),
		CreatedAt:     p.CreatedAt,
	}, nil
}

// CurrencyLedgerWithTransactions is the aggregate read by the accountant.
type CurrencyLedgerWithTransactions struct {
	Ledger       CurrencyLedger
	Transactions []CurrencyTransaction
}
