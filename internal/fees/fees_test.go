package fees

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"fenrir/internal/decimal"
)

func TestCompute_DefaultRates(t *testing.T) {
	c := Default()
	maker, taker := c.Compute(decimal.MustParse("10000"))

	assert.Equal(t, "10.0", decimal.String(maker)) // 10 bps of 10000 = 10
	assert.Equal(t, "20.0", decimal.String(taker)) // 20 bps of 10000 = 20
}

func TestCompute_NegativeRebate(t *testing.T) {
	c := NewCalculator(-5, 20)
	maker, _ := c.Compute(decimal.MustParse("10000"))

	assert.True(t, decimal.IsNegative(maker))
	assert.Equal(t, "-5.0", decimal.String(maker))
}

func TestCompute_NegativeRebateRoundsCorrectlyWithFractionalRemainder(t *testing.T) {
	c := NewCalculator(-10, 20)
	maker, _ := c.Compute(decimal.MustParse("1.123456789"))

	// -11.23456789/10000 = -0.001123456789, which rounds (away from zero,
	// since the 9th decimal digit is not a tie) to -0.00112346, not the
	// truncated-toward-zero -0.00112345.
	assert.Equal(t, "-0.00112346", decimal.String(maker))
}

func TestCompute_ZeroNotional(t *testing.T) {
	c := Default()
	maker, taker := c.Compute(decimal.Zero)

	assert.True(t, decimal.IsZero(maker))
	assert.True(t, decimal.IsZero(taker))
}

func TestCompute_RoundsToEightDecimalPlaces(t *testing.T) {
	c := NewCalculator(1, 1) // 1 bps
	maker, _ := c.Compute(decimal.MustParse("1"))

	// 1 * 1/10000 = 0.0001, well within 8dp, no rounding needed.
	assert.Equal(t, "0.0001", decimal.String(maker))
}
