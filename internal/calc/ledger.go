package calc

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/portfolio-performance/internal/apperrors"
	"github.com/ndewijer/portfolio-performance/internal/model"
	"github.com/ndewijer/portfolio-performance/internal/precision"
)

// LedgerState is the running position of a foreign-currency ledger.
// AverageCost is home currency per foreign unit and is Unknown exactly when
// Balance is zero.
type LedgerState struct {
	Balance       decimal.Decimal `json:"balance"`
	TotalCostHome decimal.Decimal `json:"totalCostHome"`
	AverageCost   model.Optional  `json:"averageCost"`
	RealizedPnL   decimal.Decimal `json:"realizedPnl"`
	TotalInterest decimal.Decimal `json:"totalInterest"`
	TotalSpent    decimal.Decimal `json:"totalSpent"`
}

// exchangeTerms resolves the home amount and rate of an exchange sell,
// deriving whichever one is missing from the other.
func exchangeTerms(tx model.CurrencyTransaction) (decimal.Decimal, decimal.Decimal, error) {
	home, homeOK := tx.HomeAmount.Get()
	rate, rateOK := tx.ExchangeRate.Get()
	switch {
	case homeOK && rateOK:
		return home, rate, nil
	case homeOK:
		return home, precision.Rate(home.Div(tx.ForeignAmount)), nil
	case rateOK:
		return precision.Money(tx.ForeignAmount.Mul(rate)), rate, nil
	default:
		return decimal.Zero, decimal.Zero, fmt.Errorf("%w: transaction %s", apperrors.ErrMissingExchangeData, tx.ID)
	}
}

// Apply returns the state after tx. The receiver is not modified.
func (s LedgerState) Apply(tx model.CurrencyTransaction) (LedgerState, error) {
	amount := tx.ForeignAmount

	switch tx.Type {
	case model.CurrencyExchangeBuy:
		home, homeOK := tx.HomeAmount.Get()
		if !homeOK || !tx.ExchangeRate.IsKnown() {
			return s, fmt.Errorf("%w: exchange buy %s needs home amount and rate", apperrors.ErrMissingExchangeData, tx.ID)
		}
		s.Balance = s.Balance.Add(amount)
		s.TotalCostHome = s.TotalCostHome.Add(home)
		s.AverageCost = model.Known(precision.Rate(s.TotalCostHome.Div(s.Balance)))

	case model.CurrencyInterest:
		// Zero-cost addition: the home cost stays, the balance grows.
		s.Balance = s.Balance.Add(amount)
		s.TotalInterest = s.TotalInterest.Add(amount)
		s.AverageCost = model.Known(precision.Rate(s.TotalCostHome.Div(s.Balance)))

	case model.CurrencyExchangeSell:
		if err := s.checkWithdrawal(tx); err != nil {
			return s, err
		}
		_, rate, err := exchangeTerms(tx)
		if err != nil {
			return s, err
		}
		avg := s.AverageCost.Or(decimal.Zero)
		s.RealizedPnL = s.RealizedPnL.Add(precision.Money(amount.Mul(rate.Sub(avg))))
		s = s.withdraw(amount, avg)

	case model.CurrencySpend:
		if err := s.checkWithdrawal(tx); err != nil {
			return s, err
		}
		s.TotalSpent = s.TotalSpent.Add(amount)
		s = s.withdraw(amount, s.AverageCost.Or(decimal.Zero))

	default:
		return s, fmt.Errorf("%w: %s", apperrors.ErrUnknownTransactionType, tx.Type)
	}

	return s, nil
}

func (s LedgerState) checkWithdrawal(tx model.CurrencyTransaction) error {
	if tx.ForeignAmount.GreaterThan(s.Balance) {
		return fmt.Errorf("%w: %s %s exceeds balance %s on %s",
			apperrors.ErrInsufficientBalance, tx.Type, tx.ForeignAmount, s.Balance, tx.Date.Format(model.DateLayout))
	}
	return nil
}

// withdraw removes amount at the unchanged average cost.
func (s LedgerState) withdraw(amount, avg decimal.Decimal) LedgerState {
	s.Balance = s.Balance.Sub(amount)
	if s.Balance.IsZero() {
		s.TotalCostHome = decimal.Zero
		s.AverageCost = model.Unknown()
		return s
	}
	s.TotalCostHome = precision.Money(s.Balance.Mul(avg))
	return s
}

// ReplayLedger folds ledger transactions dated on or before asOf. A zero
// asOf replays everything. Transactions must be in chronological order.
func ReplayLedger(txs []model.CurrencyTransaction, asOf time.Time) (LedgerState, error) {
	var state LedgerState
	for _, tx := range txs {
		if !asOf.IsZero() && tx.Date.After(asOf) {
			break
		}
		next, err := state.Apply(tx)
		if err != nil {
			return state, err
		}
		state = next
	}
	return state, nil
}

// AverageCostAt returns the ledger's average cost after all movements dated
// on or before date. It is the implied home rate for purchases funded from
// the ledger that day.
func AverageCostAt(txs []model.CurrencyTransaction, date time.Time) (model.Optional, error) {
	state, err := ReplayLedger(txs, date)
	if err != nil {
		return model.Unknown(), err
	}
	return state.AverageCost, nil
}
