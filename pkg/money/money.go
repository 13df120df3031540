package money

import (
	"encoding/json"
	"fmt"
)

// Amount is a currency amount in minor units (cents). All ledger arithmetic
// is integer arithmetic on this type; float64 appears only at the API
// boundary when converting to and from display decimals.
type Amount int64

// Epsilon is the smallest representable currency unit. A debt at or below
// Epsilon is treated as settled so rounding can never leave a receipt
// permanently one cent short of "paid".
const Epsilon Amount = 1

// FromFloat converts a display decimal (e.g. 12.34) to minor units,
// rounding half up. This is a boundary conversion only; never round-trip
// amounts through float64 inside the ledger.
func FromFloat(f float64) Amount {
	if f < 0 {
		return -FromFloat(-f)
	}
	return Amount(f*100 + 0.5)
}

// Float64 converts an amount to its display decimal.
func (a Amount) Float64() float64 {
	return float64(a) / 100
}

// Add returns a + b.
func (a Amount) Add(b Amount) Amount {
	return a + b
}

// Sub returns a - b.
func (a Amount) Sub(b Amount) Amount {
	return a - b
}

// MulRational multiplies the amount by num/den, rounding half up to the
// nearest minor unit. This is the single rounding point in the system;
// tax-rate application and any other fractional scaling must go through it.
func (a Amount) MulRational(num, den int64) Amount {
	if den == 0 {
		panic("money: zero denominator")
	}
	if den < 0 {
		num, den = -num, -den
	}
	n := int64(a) * num
	if n >= 0 {
		return Amount((n + den/2) / den)
	}
	return Amount(-((-n + den/2) / den))
}

// Compare returns -1, 0 or 1 as a is less than, equal to or greater than b.
func (a Amount) Compare(b Amount) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// IsZeroOrNegative reports whether the amount is zero or below.
func (a Amount) IsZeroOrNegative() bool {
	return a <= 0
}

// IsPositive reports whether the amount is strictly above zero.
func (a Amount) IsPositive() bool {
	return a > 0
}

// ClampNonNegative returns the amount, floored at zero.
func (a Amount) ClampNonNegative() Amount {
	if a < 0 {
		return 0
	}
	return a
}

// Min returns the smaller of a and b.
func Min(a, b Amount) Amount {
	if a < b {
		return a
	}
	return b
}

// String formats the amount as a decimal for logs and error messages.
func (a Amount) String() string {
	return fmt.Sprintf("%.2f", a.Float64())
}

// MarshalJSON emits the display decimal. Minor units never appear on the
// wire.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.Float64())
}

// UnmarshalJSON parses a display decimal back into minor units.
func (a *Amount) UnmarshalJSON(data []byte) error {
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*a = FromFloat(f)
	return nil
}
