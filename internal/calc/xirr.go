package calc

import (
	"math"
	"slices"
	"time"
)

// CashFlow is a dated signed amount. Contributions are negative and the
// terminal market value is a positive flow on the as-of date.
type CashFlow struct {
	Date   time.Time
	Amount float64
}

const (
	xirrLowerBound       = -0.999
	xirrUpperBound       = 10.0
	xirrTolerance        = 1e-7
	xirrNewtonMaxIter    = 100
	xirrBisectionMaxIter = 200
	xirrInitialGuess     = 0.1
	xirrMinDerivative    = 1e-12
	daysPerYear          = 365.0
)

type xirrTerms struct {
	years   []float64
	amounts []float64
}

func (t xirrTerms) npv(rate float64) float64 {
	var sum float64
	for i, y := range t.years {
		sum += t.amounts[i] / math.Pow(1+rate, y)
	}
	return sum
}

func (t xirrTerms) derivative(rate float64) float64 {
	var sum float64
	for i, y := range t.years {
		sum -= y * t.amounts[i] / math.Pow(1+rate, y+1)
	}
	return sum
}

// SolveXIRR finds the annualized rate r with Σ CF/(1+r)^(days/365) = 0.
//
// Newton-Raphson is tried first; when it diverges, leaves the bounds or meets
// a flat derivative the solver falls back to bisection over [-0.999, 10].
// Returns nil when fewer than two distinct dates exist, when the flows do
// not change sign, or when no root lies within the bounds.
func SolveXIRR(flows []CashFlow) *float64 {
	if len(flows) < 2 {
		return nil
	}
	sorted := slices.Clone(flows)
	slices.SortStableFunc(sorted, func(a, b CashFlow) int { return a.Date.Compare(b.Date) })

	first := sorted[0].Date
	distinct := map[time.Time]bool{}
	var hasPositive, hasNegative bool
	terms := xirrTerms{
		years:   make([]float64, len(sorted)),
		amounts: make([]float64, len(sorted)),
	}
	for i, f := range sorted {
		distinct[f.Date] = true
		hasPositive = hasPositive || f.Amount > 0
		hasNegative = hasNegative || f.Amount < 0
		terms.years[i] = f.Date.Sub(first).Hours() / 24 / daysPerYear
		terms.amounts[i] = f.Amount
	}
	if len(distinct) < 2 || !hasPositive || !hasNegative {
		return nil
	}

	if r, ok := newton(terms); ok {
		return &r
	}
	if r, ok := bisect(terms); ok {
		return &r
	}
	return nil
}

func newton(t xirrTerms) (float64, bool) {
	rate := xirrInitialGuess
	for range xirrNewtonMaxIter {
		f := t.npv(rate)
		df := t.derivative(rate)
		if math.Abs(df) < xirrMinDerivative {
			return 0, false
		}
		next := rate - f/df
		if math.IsNaN(next) || math.IsInf(next, 0) || next <= xirrLowerBound || next > xirrUpperBound {
			return 0, false
		}
		if math.Abs(next-rate) < xirrTolerance {
			return next, true
		}
		rate = next
	}
	return 0, false
}

func bisect(t xirrTerms) (float64, bool) {
	low, high := xirrLowerBound, xirrUpperBound
	fLow, fHigh := t.npv(low), t.npv(high)
	if math.IsNaN(fLow) || math.IsNaN(fHigh) || fLow*fHigh > 0 {
		return 0, false
	}
	for range xirrBisectionMaxIter {
		mid := (low + high) / 2
		fMid := t.npv(mid)
		if math.Abs(fMid) < xirrTolerance || (high-low)/2 < xirrTolerance {
			return mid, true
		}
		if fLow*fMid < 0 {
			high = mid
		} else {
			low, fLow = mid, fMid
		}
	}
	return 0, false
}
