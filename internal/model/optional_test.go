package model

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptional(t *testing.T) {
	t.Run("unknown never reads as zero", func(t *testing.T) {
		o := Unknown()
		_, ok := o.Get()
		assert.False(t, ok)
		assert.False(t, o.Null().Valid)
		assert.True(t, o.Or(decimal.NewFromInt(7)).Equal(decimal.NewFromInt(7)))
		assert.False(t, o.Equal(Known(decimal.Zero)))
	})

	t.Run("map skips unknown", func(t *testing.T) {
		double := func(d decimal.Decimal) decimal.Decimal { return d.Mul(decimal.NewFromInt(2)) }
		assert.False(t, Unknown().Map(double).IsKnown())
		assert.True(t, Known(decimal.NewFromInt(2)).Map(double).Equal(Known(decimal.NewFromInt(4))))
	})

	t.Run("json", func(t *testing.T) {
		out, err := json.Marshal(struct {
			A Optional `json:"a"`
			B Optional `json:"b"`
		}{A: Known(decimal.RequireFromString("31.5")), B: Unknown()})
		require.NoError(t, err)
		assert.JSONEq(t, `{"a":"31.5","b":null}`, string(out))

		var in struct {
			A Optional `json:"a"`
			B Optional `json:"b"`
		}
		require.NoError(t, json.Unmarshal(out, &in))
		assert.True(t, in.A.Equal(Known(decimal.RequireFromString("31.5"))))
		assert.False(t, in.B.IsKnown())
	})

	t.Run("from null", func(t *testing.T) {
		assert.False(t, OptionalFromNull(decimal.NullDecimal{}).IsKnown())
		assert.True(t, OptionalFromNull(decimal.NewNullDecimal(decimal.NewFromInt(1))).IsKnown())
	})
}
