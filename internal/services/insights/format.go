package insights

import (
	"math"
	"math/big"

	"github.com/shopspring/decimal"
)

// exactDigits is enough fractional digits that a float64 within display range
// never collapses onto a rounding tie it does not actually sit on.
const exactDigits = 80

// ToFixed formats x with exactly places fractional digits. The decision is made on
// the exact binary value of x with ties going away from zero, so 1.005 gives "1.00"
// (its double is 1.00499999...) while 0.125 gives "0.13".
func ToFixed(x float64, places int32) string {
	switch {
	case math.IsNaN(x):
		return "NaN"
	case math.IsInf(x, 1):
		return "Infinity"
	case math.IsInf(x, -1):
		return "-Infinity"
	}

	exact := new(big.Float).SetFloat64(x).Text('f', exactDigits)
	d, err := decimal.NewFromString(exact)
	if err != nil {
		// Text('f') output always parses; keep a sane value regardless
		d = decimal.NewFromFloat(x)
	}
	return d.StringFixed(places)
}

// Round2 is ToFixed(x, 2) parsed back, the way the average feeds the summary band.
func Round2(x float64) float64 {
	d, err := decimal.NewFromString(ToFixed(x, 2))
	if err != nil {
		return x
	}
	f, _ := d.Float64()
	return f
}
