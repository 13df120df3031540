package money

import (
	"encoding/json"
	"testing"
)

func TestFromFloat(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want Amount
	}{
		{"whole", 12.00, 1200},
		{"cents", 12.34, 1234},
		{"half rounds up", 0.005, 1},
		{"just below half", 0.004, 0},
		{"classic float drift", 19.99, 1999},
		{"zero", 0, 0},
		{"negative", -12.34, -1234},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FromFloat(tt.in); got != tt.want {
				t.Errorf("FromFloat(%v) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestMulRational(t *testing.T) {
	tests := []struct {
		name     string
		a        Amount
		num, den int64
		want     Amount
	}{
		{"16 percent VAT", 10000, 16, 100, 1600},
		{"rounds half up", 125, 1, 2, 63}, // 62.5 -> 63
		{"rounds down below half", 124, 1, 3, 41},
		{"identity", 9999, 1, 1, 9999},
		{"zero amount", 0, 16, 100, 0},
		{"inclusive VAT extraction", 11600, 16, 116, 1600},
		{"negative numerator", 100, -1, 2, -50},
		{"negative denominator", 100, 1, -2, -50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.MulRational(tt.num, tt.den); got != tt.want {
				t.Errorf("%d.MulRational(%d, %d) = %d, want %d", tt.a, tt.num, tt.den, got, tt.want)
			}
		})
	}
}

func TestMulRationalDeterministic(t *testing.T) {
	a := Amount(333333)
	first := a.MulRational(7, 13)
	for i := 0; i < 1000; i++ {
		if got := a.MulRational(7, 13); got != first {
			t.Fatalf("iteration %d: got %d, want %d", i, got, first)
		}
	}
}

func TestCompareAndClamp(t *testing.T) {
	if Amount(100).Compare(200) != -1 || Amount(200).Compare(100) != 1 || Amount(5).Compare(5) != 0 {
		t.Error("Compare ordering is wrong")
	}
	if Amount(-50).ClampNonNegative() != 0 {
		t.Error("ClampNonNegative should floor negatives at zero")
	}
	if Amount(50).ClampNonNegative() != 50 {
		t.Error("ClampNonNegative must not change positive amounts")
	}
	if !Amount(0).IsZeroOrNegative() || Amount(1).IsZeroOrNegative() {
		t.Error("IsZeroOrNegative is wrong")
	}
	if Min(3, 7) != 3 || Min(7, 3) != 3 {
		t.Error("Min is wrong")
	}
}

func TestJSONRoundTrip(t *testing.T) {
	for _, a := range []Amount{0, 1, 99, 100, 12760, -550} {
		data, err := json.Marshal(a)
		if err != nil {
			t.Fatalf("marshal %d: %v", a, err)
		}

		var back Amount
		if err := json.Unmarshal(data, &back); err != nil {
			t.Fatalf("unmarshal %s: %v", data, err)
		}
		if back != a {
			t.Errorf("round trip %d -> %s -> %d", a, data, back)
		}
	}
}
