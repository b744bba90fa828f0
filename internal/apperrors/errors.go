package apperrors

import "errors"

// Domain entity errors represent missing or invalid entities in the system.
// These errors indicate that a requested resource does not exist.
var (
	// ErrPortfolioNotFound indicates that a portfolio with the given ID does not exist.
	ErrPortfolioNotFound = errors.New("portfolio not found")

	// ErrTransactionNotFound indicates that a transaction with the given ID does not exist.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrLedgerNotFound indicates that a currency ledger with the given ID does not exist.
	ErrLedgerNotFound = errors.New("currency ledger not found")
)

// Business logic errors represent validation failures or constraint violations.
// These errors indicate that an operation cannot be completed due to business rules.
var (
	// ErrInsufficientShares indicates that a sell transaction cannot be completed
	// because the portfolio does not hold enough shares of the symbol.
	ErrInsufficientShares = errors.New("insufficient shares for sale")

	// ErrInsufficientBalance indicates that a currency ledger withdrawal exceeds its balance.
	ErrInsufficientBalance = errors.New("insufficient currency balance")

	// ErrMissingExchangeData indicates that an exchange-buy or exchange-sell lacks
	// the home amount or rate it needs.
	ErrMissingExchangeData = errors.New("exchange transaction requires home amount and rate")

	// ErrInvalidDateRange indicates that the provided date range is invalid
	// (e.g., start date is after end date).
	ErrInvalidDateRange = errors.New("invalid date range")

	// ErrInvalidUUID indicates that a provided ID is not a valid UUID format.
	ErrInvalidUUID = errors.New("invalid UUID format")

	// ErrUnknownTransactionType indicates a transaction type the engine cannot fold.
	ErrUnknownTransactionType = errors.New("unknown transaction type")

	// ErrDuplicateEntry indicates that an entity with the same unique constraint already exists.
	ErrDuplicateEntry = errors.New("duplicate entry")
)

// Upstream market data errors. Providers return these so the cache can tell a
// permanent gap from a transient refusal.
var (
	// ErrNoData indicates the upstream has no value for the requested key and date.
	ErrNoData = errors.New("no market data for key and date")

	// ErrRateLimited indicates the upstream refused the request because of rate limiting.
	// It is never cached and callers should back off.
	ErrRateLimited = errors.New("market data provider rate limit exceeded")
)

// Operation failure errors represent system-level failures when retrieving or processing data.
var (
	ErrFailedToRetrievePositions    = errors.New("failed to retrieve positions")
	ErrFailedToCalculateXIRR        = errors.New("failed to calculate annualized return")
	ErrFailedToCalculateTWR         = errors.New("failed to calculate time-weighted return")
	ErrFailedToRetrieveNetWorth     = errors.New("failed to retrieve net worth series")
	ErrFailedToRefreshSnapshots     = errors.New("failed to refresh snapshots")
	ErrFailedToCreateTransaction    = errors.New("failed to create transaction")
	ErrFailedToDeleteTransaction    = errors.New("failed to delete transaction")
	ErrFailedToRetrieveLedger       = errors.New("failed to retrieve currency ledger")
	ErrMarketDataTemporarilyLimited = errors.New("market data temporarily unavailable, retry later")
)
