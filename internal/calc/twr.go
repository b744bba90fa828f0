package calc

import (
	"math"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/ndewijer/portfolio-performance/internal/model"
)

// Boundary is the portfolio value on either side of an external cash flow.
type Boundary struct {
	Date   time.Time
	Before float64
	After  float64
}

// BoundariesFromSnapshots converts ordered snapshots into boundaries in the
// home or source currency.
func BoundariesFromSnapshots(snapshots []model.TransactionSnapshot, home bool) []Boundary {
	out := make([]Boundary, len(snapshots))
	for i, s := range snapshots {
		before, after := s.ValueBeforeSource, s.ValueAfterSource
		if home {
			before, after = s.ValueBeforeHome, s.ValueAfterHome
		}
		out[i] = Boundary{Date: s.SnapshotDate, Before: before.InexactFloat64(), After: after.InexactFloat64()}
	}
	return out
}

// TimeWeightedReturn chain-links the sub-period returns between start,
// every boundary, and end. A sub-period whose opening value is zero carries
// no return and is skipped. Returns nil when no sub-period is measurable.
func TimeWeightedReturn(start float64, boundaries []Boundary, end float64) *float64 {
	ratios := make([]float64, 0, len(boundaries)+1)
	opening := start
	for _, b := range boundaries {
		if opening != 0 {
			ratios = append(ratios, b.Before/opening)
		}
		opening = b.After
	}
	if opening != 0 {
		ratios = append(ratios, end/opening)
	}
	if len(ratios) == 0 {
		return nil
	}

	r := floats.Prod(ratios) - 1
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return nil
	}
	return &r
}

// ModifiedDietz returns the money-weighted return over [from, to]:
//
//	(end - start - ΣF) / (start + Σ w·F),  w = (to - date) / (to - from)
//
// Flows are contributions into the portfolio, so buys are positive and
// sells negative. Flows outside (from, to] are ignored. Returns nil when the period is
// empty or the weighted capital is not positive.
func ModifiedDietz(start, end float64, flows []CashFlow, from, to time.Time) *float64 {
	totalDays := to.Sub(from).Hours() / 24
	if totalDays <= 0 {
		return nil
	}

	var net, weighted float64
	for _, cf := range flows {
		if !cf.Date.After(from) || cf.Date.After(to) {
			continue
		}
		net += cf.Amount
		weighted += cf.Amount * (to.Sub(cf.Date).Hours() / 24 / totalDays)
	}

	denominator := start + weighted
	if denominator <= 0 {
		return nil
	}
	r := (end - start - net) / denominator
	return &r
}

// Annualize converts a period return into a compound annual rate.
func Annualize(r float64, from, to time.Time) *float64 {
	years := to.Sub(from).Hours() / 24 / daysPerYear
	if years <= 0 || r <= -1 {
		return nil
	}
	a := math.Pow(1+r, 1/years) - 1
	return &a
}
