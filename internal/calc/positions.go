package calc

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/portfolio-performance/internal/apperrors"
	"github.com/ndewijer/portfolio-performance/internal/model"
	"github.com/ndewijer/portfolio-performance/internal/precision"
)

// PositionOptions narrows a position calculation. Zero values disable the
// corresponding filter.
type PositionOptions struct {
	Symbol string
	Market model.Market
	AsOf   time.Time // inclusive cutoff
}

func (o PositionOptions) includes(tx model.Transaction) bool {
	if o.Symbol != "" && tx.Symbol != o.Symbol {
		return false
	}
	if o.Market != "" && tx.Market != o.Market {
		return false
	}
	if !o.AsOf.IsZero() && tx.Date.After(o.AsOf) {
		return false
	}
	return true
}

// holding is the running state of one symbol during the fold.
type holding struct {
	key               model.PositionKey
	quantity          decimal.Decimal
	costSource        decimal.Decimal
	costHome          decimal.Decimal
	homeKnown         bool
	realizedSource    decimal.Decimal
	realizedHome      decimal.Decimal
	realizedHomeKnown bool
}

func newHolding(key model.PositionKey) *holding {
	return &holding{key: key, homeKnown: true, realizedHomeKnown: true}
}

func (h *holding) buy(tx model.Transaction) {
	cost := tx.Amount()
	h.quantity = h.quantity.Add(tx.Quantity)
	h.costSource = h.costSource.Add(cost)

	if rate, ok := tx.ExchangeRate.Get(); ok && h.homeKnown {
		h.costHome = h.costHome.Add(precision.Money(cost.Mul(rate)))
	} else {
		h.homeKnown = false
	}
}

func (h *holding) sell(tx model.Transaction) error {
	if tx.Quantity.GreaterThan(h.quantity) {
		return fmt.Errorf("%w: %s sells %s but holds %s on %s",
			apperrors.ErrInsufficientShares, h.key, tx.Quantity, h.quantity, tx.Date.Format(model.DateLayout))
	}

	closing := tx.Quantity.Equal(h.quantity)
	proceeds := tx.Amount()

	removedSource := h.costSource
	if !closing {
		removedSource = precision.Money(h.costSource.Div(h.quantity).Mul(tx.Quantity))
	}
	h.realizedSource = h.realizedSource.Add(proceeds.Sub(removedSource))

	removedHome := h.costHome
	if !closing {
		removedHome = precision.Money(h.costHome.Div(h.quantity).Mul(tx.Quantity))
	}
	rate, rateKnown := tx.ExchangeRate.Get()
	if h.homeKnown && rateKnown && h.realizedHomeKnown {
		h.realizedHome = h.realizedHome.Add(precision.Money(proceeds.Mul(rate)).Sub(removedHome))
	} else {
		h.realizedHomeKnown = false
	}

	h.quantity = h.quantity.Sub(tx.Quantity)
	h.costSource = h.costSource.Sub(removedSource)
	h.costHome = h.costHome.Sub(removedHome)

	if h.quantity.IsZero() {
		// A closed position starts over: the next buy defines a fresh basis.
		h.costSource = decimal.Zero
		h.costHome = decimal.Zero
		h.homeKnown = true
	}
	return nil
}

func (h *holding) position() model.Position {
	p := model.Position{
		Symbol:            h.key.Symbol,
		Market:            h.key.Market,
		TotalQuantity:     h.quantity,
		TotalCostSource:   h.costSource,
		TotalCostHome:     model.Unknown(),
		AverageCostSource: model.Unknown(),
		AverageCostHome:   model.Unknown(),
		RealizedPnLSource: h.realizedSource,
		RealizedPnLHome:   model.Unknown(),
	}
	if h.homeKnown {
		p.TotalCostHome = model.Known(h.costHome)
	}
	if h.realizedHomeKnown {
		p.RealizedPnLHome = model.Known(h.realizedHome)
	}
	if h.quantity.IsPositive() {
		p.AverageCostSource = model.Known(precision.Shares(h.costSource.Div(h.quantity)))
		if h.homeKnown {
			p.AverageCostHome = model.Known(precision.Shares(h.costHome.Div(h.quantity)))
		}
	}
	return p
}

// CalculatePositions folds an ordered, split-adjusted transaction stream into
// per-symbol positions using the weighted-average cost method.
//
// Buys add quantity and cost (fees included). Sells remove cost at the
// current average and realize proceeds minus that cost. A fully closed
// position reports an Unknown average. Soft-deleted transactions are skipped.
//
// Returns apperrors.ErrInsufficientShares if a sell exceeds the held
// quantity; streams are expected to be validated before they reach here.
func CalculatePositions(txs []model.Transaction, opts PositionOptions) ([]model.Position, error) {
	holdings := make(map[model.PositionKey]*holding)

	for _, tx := range txs {
		if tx.IsDeleted || !opts.includes(tx) {
			continue
		}

		h, ok := holdings[tx.Key()]
		if !ok {
			h = newHolding(tx.Key())
			holdings[tx.Key()] = h
		}

		switch tx.Type {
		case model.TransactionBuy:
			h.buy(tx)
		case model.TransactionSell:
			if err := h.sell(tx); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("%w: %s", apperrors.ErrUnknownTransactionType, tx.Type)
		}
	}

	positions := make([]model.Position, 0, len(holdings))
	for _, h := range holdings {
		positions = append(positions, h.position())
	}
	slices.SortFunc(positions, func(a, b model.Position) int {
		return cmp.Or(cmp.Compare(a.Market, b.Market), cmp.Compare(a.Symbol, b.Symbol))
	})
	return positions, nil
}

// OpenPositions filters to positions that still hold shares.
func OpenPositions(positions []model.Position) []model.Position {
	open := make([]model.Position, 0, len(positions))
	for _, p := range positions {
		if p.IsOpen() {
			open = append(open, p)
		}
	}
	return open
}

// SortTransactions orders transactions by date and then creation sequence.
func SortTransactions(txs []model.Transaction) {
	slices.SortStableFunc(txs, func(a, b model.Transaction) int {
		return cmp.Or(a.Date.Compare(b.Date), a.CreatedAt.Compare(b.CreatedAt))
	})
}
