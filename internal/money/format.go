// Package money formats storefront prices.
package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultCurrency is the store's currency when none is configured.
const DefaultCurrency = "EGP"

var symbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
}

// Format renders v in en-US currency style with two fraction digits:
// "$1,234.50" for currencies with a known symbol, "EGP 1,234.50" otherwise.
func Format(v decimal.Decimal, currency string) string {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		currency = DefaultCurrency
	}

	neg := v.IsNegative()
	digits := v.Abs().StringFixed(2)
	whole, frac, _ := strings.Cut(digits, ".")
	amount := groupThousands(whole) + "." + frac

	prefix := currency + " "
	if sym, ok := symbols[currency]; ok {
		prefix = sym
	}
	if neg {
		return "-" + prefix + amount
	}
	return prefix + amount
}

func groupThousands(s string) string {
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
