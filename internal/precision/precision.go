// Package precision holds the fixed-point rounding rules used across the engine.
//
// Every boundary rounds half away from zero: quantities and unit prices to 4
// decimal places, money to 2 and exchange rates to 6. Transaction subtotals
// additionally follow a market-keyed policy table.
package precision

import "github.com/shopspring/decimal"

// Decimal places at each precision boundary.
const (
	SharePlaces int32 = 4
	MoneyPlaces int32 = 2
	RatePlaces  int32 = 6
)

// Shares rounds a quantity or unit price to share precision.
func Shares(d decimal.Decimal) decimal.Decimal { return d.Round(SharePlaces) }

// Money rounds a monetary amount to money precision.
func Money(d decimal.Decimal) decimal.Decimal { return d.Round(MoneyPlaces) }

// Rate rounds an exchange rate to rate precision.
func Rate(d decimal.Decimal) decimal.Decimal { return d.Round(RatePlaces) }

// RoundingMode selects how a subtotal is brought to its policy precision.
type RoundingMode int

const (
	// HalfAwayFromZero is the default commercial rounding.
	HalfAwayFromZero RoundingMode = iota
	// Floor truncates toward negative infinity.
	Floor
)

// SubtotalPolicy describes how quantity × price is rounded for one market.
type SubtotalPolicy struct {
	Mode   RoundingMode
	Places int32
}

// Apply rounds d according to the policy.
func (p SubtotalPolicy) Apply(d decimal.Decimal) decimal.Decimal {
	if p.Mode == Floor {
		return d.RoundFloor(p.Places)
	}
	return d.Round(p.Places)
}

// DefaultSubtotalPolicy applies to every market without an explicit entry.
var DefaultSubtotalPolicy = SubtotalPolicy{Mode: HalfAwayFromZero, Places: MoneyPlaces}

// subtotalPolicies is keyed by market code. Taiwan brokers floor the
// subtotal to whole dollars before fees are added; no other market is known
// to deviate from the default, so none is listed.
var subtotalPolicies = map[string]SubtotalPolicy{
	"TW": {Mode: Floor, Places: 0},
}

// PolicyFor returns the subtotal policy for a market code.
func PolicyFor(market string) SubtotalPolicy {
	if p, ok := subtotalPolicies[market]; ok {
		return p
	}
	return DefaultSubtotalPolicy
}

// Subtotal computes quantity × price under the market's policy.
func Subtotal(market string, quantity, price decimal.Decimal) decimal.Decimal {
	return PolicyFor(market).Apply(quantity.Mul(price))
}

// BuyCost is the total paid for a purchase: subtotal plus fees.
func BuyCost(market string, quantity, price, fees decimal.Decimal) decimal.Decimal {
	return Money(Subtotal(market, quantity, price).Add(fees))
}

// SellProceeds is the net received for a sale: subtotal minus fees.
func SellProceeds(market string, quantity, price, fees decimal.Decimal) decimal.Decimal {
	return Money(Subtotal(market, quantity, price).Sub(fees))
}
