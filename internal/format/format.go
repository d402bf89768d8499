package format

import "github.com/shopspring/decimal"

var (
	tierMicro = decimal.NewFromFloat(0.0001)
	tierCent  = decimal.NewFromFloat(0.01)
	tierUnit  = decimal.NewFromInt(1)
)

// Price renders a price with precision scaled to its magnitude, so
// sub-cent symbols keep meaningful digits while large caps stay readable.
func Price(p decimal.Decimal) string {
	abs := p.Abs()
	switch {
	case abs.LessThan(tierMicro):
		return "$" + p.StringFixed(8)
	case abs.LessThan(tierCent):
		return "$" + p.StringFixed(6)
	case abs.LessThan(tierUnit):
		return "$" + p.StringFixed(4)
	default:
		return "$" + p.StringFixed(2)
	}
}

// Percent renders a signed percentage with two decimals and a % suffix.
func Percent(p decimal.Decimal) string {
	return p.StringFixed(2) + "%"
}
