package money

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"EGP 1,234.50", "1234.50", true},
		{"-$20", "-20", true},
		{"12-3", "123", true},
		{"free", "", false},
	}
	for _, tt := range tests {
		got, ok := Parse(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		if tt.ok {
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), tt.in)
		}
	}
}

func TestFromJSON(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
		ok   bool
	}{
		{"number", `1200.5`, "1200.5", true},
		{"numeric string", `"999.50"`, "999.50", true},
		{"formatted string", `"SAR 1,200.00"`, "1200", true},
		{"object amount", `{"amount":10,"currency":"SAR"}`, "10", true},
		{"object value string", `{"value":"EGP 5.25"}`, "5.25", true},
		{"object without amount", `{"currency":"SAR"}`, "0", false},
		{"null", `null`, "0", false},
		{"empty", ``, "0", false},
		{"array", `[1,2]`, "0", false},
		{"bool", `true`, "0", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FromJSON(json.RawMessage(tt.raw))
			assert.Equal(t, tt.ok, ok)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), got.String())
			assert.True(t, got.Equal(Lenient(json.RawMessage(tt.raw))))
		})
	}
}
