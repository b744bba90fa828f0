package precision

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestRounding_HalfAwayFromZero(t *testing.T) {
	assert.Equal(t, "2.35", Money(d("2.345")).String())
	assert.Equal(t, "-2.35", Money(d("-2.345")).String())
	assert.Equal(t, "1.2346", Shares(d("1.23455")).String())
	assert.Equal(t, "31.123457", Rate(d("31.1234565")).String())
}

func TestSubtotal_TaiwanFloorsBeforeFees(t *testing.T) {
	// 3 × 10.55 = 31.65 → floored to 31 on TW, fees then added on top.
	assert.Equal(t, "31", Subtotal("TW", d("3"), d("10.55")).String())
	assert.Equal(t, "51", BuyCost("TW", d("3"), d("10.55"), d("20")).String())
	assert.Equal(t, "11", SellProceeds("TW", d("3"), d("10.55"), d("20")).String())
}

func TestSubtotal_DefaultMarketsRoundToMoney(t *testing.T) {
	// 3.5 × 123.4567 = 432.09845
	assert.Equal(t, "432.1", Subtotal("US", d("3.5"), d("123.4567")).String())
	assert.Equal(t, "433.1", BuyCost("US", d("3.5"), d("123.4567"), d("1")).String())
	assert.Equal(t, DefaultSubtotalPolicy, PolicyFor("XX"))
}
