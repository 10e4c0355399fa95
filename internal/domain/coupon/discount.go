package coupon

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// ValidPercent reports whether p is a usable discount percent.
func ValidPercent(p int) bool {
	return p > 0 && p <= 100
}

// ApplyPercent returns total reduced by percent, i.e. total * (1 - percent/100).
// A percent outside (0, 100] leaves the total unchanged. The result is not
// rounded; callers round once at the end.
func ApplyPercent(total decimal.Decimal, percent int) decimal.Decimal {
	if !ValidPercent(percent) {
		return total
	}
	keep := hundred.Sub(decimal.NewFromInt(int64(percent)))
	return total.Mul(keep).Div(hundred)
}
