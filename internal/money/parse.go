package money

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// Parse extracts a number from display text such as "EGP 1,234.50" or
// "-$20". Grouping commas and currency marks are ignored.
func Parse(s string) (decimal.Decimal, bool) {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r == '.':
			b.WriteRune(r)
		case r == '-' && b.Len() == 0:
			b.WriteRune(r)
		}
	}
	v, err := decimal.NewFromString(b.String())
	if err != nil {
		return decimal.Zero, false
	}
	return v, true
}

// amountKeys are the fields read from an amount sent as an object, e.g.
// {"amount": 10, "currency": "SAR"}.
var amountKeys = []string{"amount", "value", "raw"}

// FromJSON reads an amount the storefront may send as a number, a formatted
// string or an object carrying the number. Anything else is zero, false.
func FromJSON(raw json.RawMessage) (decimal.Decimal, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return decimal.Zero, false
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return decimal.Zero, false
		}
		return Parse(s)
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil {
			return decimal.Zero, false
		}
		for _, k := range amountKeys {
			if v, ok := obj[k]; ok {
				return FromJSON(v)
			}
		}
		return decimal.Zero, false
	}
	v, err := decimal.NewFromString(string(raw))
	if err != nil {
		return decimal.Zero, false
	}
	return v, true
}

// Lenient is FromJSON without the flag.
func Lenient(raw json.RawMessage) decimal.Decimal {
	v, _ := FromJSON(raw)
	return v
}
