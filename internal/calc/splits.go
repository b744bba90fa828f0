package calc

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/portfolio-performance/internal/model"
	"github.com/ndewijer/portfolio-performance/internal/precision"
)

// CumulativeSplitRatio multiplies the ratios of every split of the
// transaction's symbol effective in (tx.Date, asOf], oldest first.
func CumulativeSplitRatio(tx model.Transaction, splits []model.StockSplit, asOf time.Time) decimal.Decimal {
	applicable := make([]model.StockSplit, 0, len(splits))
	for _, s := range splits {
		if s.Symbol != tx.Symbol || s.Market != tx.Market {
			continue
		}
		if !s.EffectiveDate.After(tx.Date) || s.EffectiveDate.After(asOf) {
			continue
		}
		applicable = append(applicable, s)
	}
	slices.SortFunc(applicable, func(a, b model.StockSplit) int {
		return a.EffectiveDate.Compare(b.EffectiveDate)
	})

	ratio := decimal.NewFromInt(1)
	for _, s := range applicable {
		ratio = ratio.Mul(s.Ratio)
	}
	return ratio
}

// AdjustForSplits restates a transaction in post-split shares as of asOf:
// quantity is multiplied and unit price divided by the cumulative ratio.
func AdjustForSplits(tx model.Transaction, splits []model.StockSplit, asOf time.Time) model.Transaction {
	ratio := CumulativeSplitRatio(tx, splits, asOf)
	if ratio.Equal(decimal.NewFromInt(1)) {
		return tx
	}
	return tx.WithAdjusted(
		precision.Shares(tx.Quantity.Mul(ratio)),
		precision.Shares(tx.UnitPrice.Div(ratio)),
	)
}

// AdjustAll applies AdjustForSplits to every transaction, preserving order.
func AdjustAll(txs []model.Transaction, splits []model.StockSplit, asOf time.Time) []model.Transaction {
	out := make([]model.Transaction, len(txs))
	for i, tx := range txs {
		out[i] = AdjustForSplits(tx, splits, asOf)
	}
	return out
}
