package request

// CreateTransactionRequest is the body of POST /api/transaction.
// Numeric fields are decimal strings to avoid binary rounding.
type CreateTransactionRequest struct {
	PortfolioID      string  `json:"portfolioId"`
	Date             string  `json:"date"`
	Symbol           string  `json:"symbol"`
	Market           string  `json:"market"`
	Type             string  `json:"type"`
	Quantity         string  `json:"quantity"`
	UnitPrice        string  `json:"unitPrice"`
	Fees             string  `json:"fees"`
	ExchangeRate     *string `json:"exchangeRate,omitempty"`
	CurrencyLedgerID *string `json:"currencyLedgerId,omitempty"`
}
