package common

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"0", "0.00"},
		{"12.5", "12.50"},
		{"1000", "1000.00"},
		{"0.015", "0.02"},
		{"-3.456", "-3.46"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, FormatAmount(decimal.RequireFromString(tt.in)), "input %s", tt.in)
	}
}

func TestFormatPercent(t *testing.T) {
	assert.Equal(t, "+12.50%", FormatPercent(decimal.RequireFromString("12.5")))
	assert.Equal(t, "-3.00%", FormatPercent(decimal.NewFromInt(-3)))
	assert.Equal(t, "0.00%", FormatPercent(decimal.Zero))
}

func TestFormatTimestamp(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	ts := time.Date(2024, 3, 2, 5, 15, 42, 0, ist)
	assert.Equal(t, "2024-03-01 23:45", FormatTimestamp(ts))
}

func TestBoxPrefixes(t *testing.T) {
	assert.Equal(t, "└  ", BoxPrefix(true))
	assert.Equal(t, "│  ", BoxPrefix(false))
	assert.Equal(t, "   ", BoxDetailPrefix(true))
	assert.Equal(t, "│  ", BoxDetailPrefix(false))
}
