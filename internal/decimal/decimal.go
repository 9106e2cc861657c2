// Package decimal wraps shopspring/decimal with the fixed-precision
// arithmetic the exchange core requires: exact prices, quantities and
// fees, a basis-points helper, and banker's rounding to a fixed scale.
//
// NOTE: might want to compare with `Float` from `math/big`: more precise
// but slower. Decimal keeps us exact without the bignum ceremony.
package decimal

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Scale is the number of fractional digits fees are rounded to (spec:
// "banker's rounding to 8 decimal places").
const Scale = 8

// Decimal is a fixed-precision decimal value. The zero value is zero.
type Decimal = decimal.Decimal

// Zero and One are the additive and multiplicative identities.
var (
	Zero = decimal.Zero
	One  = decimal.NewFromInt(1)
)

// NewFromString parses a canonical decimal string (no scientific notation).
func NewFromString(s string) (Decimal, error) {
	if strings.ContainsAny(s, "eE") {
		return Zero, fmt.Errorf("decimal: scientific notation not accepted: %q", s)
	}
	return decimal.NewFromString(s)
}

// NewFromInt builds a Decimal from an int64.
func NewFromInt(i int64) Decimal {
	return decimal.NewFromInt(i)
}

// Add returns a + b.
func Add(a, b Decimal) Decimal { return a.Add(b) }

// Sub returns a - b.
func Sub(a, b Decimal) Decimal { return a.Sub(b) }

// Mul returns a * b.
func Mul(a, b Decimal) Decimal { return a.Mul(b) }

// Div returns a / b, rounded to Scale fractional digits using the
// same rounding mode as Div itself (half away from zero); callers that
// need banker's rounding (fees) must use RoundBankers.
func Div(a, b Decimal) Decimal { return a.DivRound(b, Scale) }

// Cmp compares a and b: -1 if a<b, 0 if a==b, 1 if a>b.
func Cmp(a, b Decimal) int { return a.Cmp(b) }

// Min returns the smaller of a and b.
func Min(a, b Decimal) Decimal {
	if a.Cmp(b) <= 0 {
		return a
	}
	return b
}

// IsPositive reports whether d > 0.
func IsPositive(d Decimal) bool { return d.Sign() > 0 }

// IsZero reports whether d == 0.
func IsZero(d Decimal) bool { return d.Sign() == 0 }

// IsNegative reports whether d < 0.
func IsNegative(d Decimal) bool { return d.Sign() < 0 }

// BasisPoints returns notional * bps / 10000, unrounded. Callers that need
// the fee-specific 8dp banker's rounding should pipe the result through
// RoundBankers.
func BasisPoints(notional Decimal, bps int64) Decimal {
	return notional.Mul(decimal.NewFromInt(bps)).Shift(-4)
}

// RoundBankers rounds d to `places` fractional digits using round-half-to-even
// (banker's rounding), the rounding mode spec.md prescribes for fees.
// shopspring/decimal's own Round/DivRound use round-half-away-from-zero, so
// this reimplements the half-to-even tie-break on top of it.
//
// Works on d.Abs() and reapplies the sign at the end: Truncate(0) truncates
// toward zero, not floor, so for a negative scaled value the naive "floor,
// then compare diff to 0.5" logic below would never see a diff above zero
// and silently degenerate into plain truncation for every negative input.
func RoundBankers(d Decimal, places int32) Decimal {
	neg := d.IsNegative()
	abs := d.Abs()

	factor := decimal.New(1, places)
	scaled := abs.Mul(factor)

	floor := scaled.Truncate(0)
	diff := scaled.Sub(floor)
	half := decimal.NewFromFloat(0.5)

	var rounded Decimal
	switch diff.Cmp(half) {
	case -1:
		rounded = floor
	case 1:
		rounded = floor.Add(One)
	default:
		// Exactly halfway: round to even.
		two := decimal.NewFromInt(2)
		if floor.Mod(two).IsZero() {
			rounded = floor
		} else {
			rounded = floor.Add(One)
		}
	}

	result := rounded.DivRound(factor, places)
	if neg {
		result = result.Neg()
	}
	return result
}

// String renders d in canonical form (spec.md §6): no scientific
// notation, no trailing zeros beyond the minimum one digit after the
// decimal point, negative sign only when negative. shopspring's own
// String() drops every trailing fractional zero (a value parsed from
// "2.00" prints as "2"), so this renders d at its own exponent instead
// (a value parsed from "2.00" or produced by DivRound(_, 8) keeps its
// fractional digits) and then trims down to the canonical form. A value
// whose exponent is not negative prints with no decimal point.
func String(d Decimal) string {
	s := d.String()
	if exp := d.Exponent(); exp < 0 {
		s = d.StringFixed(-exp)
	}
	dot := strings.IndexByte(s, '.')
	if dot < 0 {
		return s
	}
	s = strings.TrimRight(s, "0")
	if strings.HasSuffix(s, ".") {
		s += "0"
	}
	return s
}

// MustParse parses s and panics on error; intended for test fixtures and
// compile-time constants, never for request-path parsing.
func MustParse(s string) Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(fmt.Sprintf("decimal: invalid literal %q: %v", s, err))
	}
	return d
}
