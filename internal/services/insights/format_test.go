package insights

import (
	"math"
	"testing"
)

func TestToFixed(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{0, "0.00"},
		{150, "150.00"},
		{311.142857142857, "311.14"},
		{0.125, "0.13"},   // exact tie, away from zero
		{1.005, "1.00"},   // binary value sits just below the tie
		{-1.005, "-1.00"}, // same, mirrored
		{-2.5, "-2.50"},
		{98.00000000000001, "98.00"},
		{101.995, "102.00"},
	}
	for _, tc := range cases {
		if got := ToFixed(tc.in, 2); got != tc.want {
			t.Fatalf("ToFixed(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestToFixedNonFinite(t *testing.T) {
	if got := ToFixed(math.NaN(), 2); got != "NaN" {
		t.Fatalf("NaN -> %q", got)
	}
	if got := ToFixed(math.Inf(1), 2); got != "Infinity" {
		t.Fatalf("+Inf -> %q", got)
	}
	if got := ToFixed(math.Inf(-1), 2); got != "-Infinity" {
		t.Fatalf("-Inf -> %q", got)
	}
}

func TestRound2(t *testing.T) {
	if got := Round2(311.142857142857); got != 311.14 {
		t.Fatalf("Round2 = %v", got)
	}
	if got := Round2(0.125); got != 0.13 {
		t.Fatalf("Round2 = %v", got)
	}
}
