package model

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Optional is a decimal that may be unknown, such as an exchange rate that was
// never recorded or an average cost of an empty position. Callers branch on
// Get instead of comparing against zero.
type Optional struct {
	value decimal.Decimal
	known bool
}

// Known wraps a present value.
func Known(d decimal.Decimal) Optional { return Optional{value: d, known: true} }

// Unknown is the absent value.
func Unknown() Optional { return Optional{} }

// OptionalFromNull converts a scanned nullable column.
func OptionalFromNull(n decimal.NullDecimal) Optional {
	if !n.Valid {
		return Unknown()
	}
	return Known(n.Decimal)
}

// Get returns the value and whether it is known.
func (o Optional) Get() (decimal.Decimal, bool) { return o.value, o.known }

// IsKnown reports whether a value is present.
func (o Optional) IsKnown() bool { return o.known }

// Or returns the value, or fallback when unknown.
func (o Optional) Or(fallback decimal.Decimal) decimal.Decimal {
	if o.known {
		return o.value
	}
	return fallback
}

// Null converts to a nullable column value for persistence.
func (o Optional) Null() decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: o.value, Valid: o.known}
}

// Map applies f to a known value and keeps Unknown otherwise.
func (o Optional) Map(f func(decimal.Decimal) decimal.Decimal) Optional {
	if !o.known {
		return o
	}
	return Known(f(o.value))
}

// Equal reports whether both are unknown or both hold equal values.
func (o Optional) Equal(other Optional) bool {
	if o.known != other.known {
		return false
	}
	return !o.known || o.value.Equal(other.value)
}

func (o Optional) String() string {
	if !o.known {
		return "unknown"
	}
	return o.value.String()
}

// MarshalJSON renders unknown values as null.
func (o Optional) MarshalJSON() ([]byte, error) {
	if !o.known {
		return []byte("null"), nil
	}
	return o.value.MarshalJSON()
}

// UnmarshalJSON accepts null or a decimal.
func (o *Optional) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*o = Unknown()
		return nil
	}
	var d decimal.Decimal
	if err := json.Unmarshal(data, &d); err != nil {
		return err
	}
	*o = Known(d)
	return nil
}
