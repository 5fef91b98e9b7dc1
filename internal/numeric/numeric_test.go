package numeric

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"1234.56", "1234.56", true},
		{"$1,234.56", "1234.56", true},
		{"(1,234.56)", "-1234.56", true},
		{"($1,234.56)", "-1234.56", true},
		{"£99.99", "99.99", true},
		{"€0.01", "0.01", true},
		{"  42  ", "42", true},
		{"-17.5", "-17.5", true},
		{"", "", false},
		{"abc", "", false},
		{"()", "", false},
		{"$", "", false},
	}
	for _, tc := range cases {
		got, ok := Parse(tc.in)
		assert.Equal(t, tc.ok, ok, "Parse(%q) ok", tc.in)
		if tc.ok {
			want, err := decimal.NewFromString(tc.want)
			require.NoError(t, err)
			assert.True(t, got.Equal(want), "Parse(%q) = %s, want %s", tc.in, got, want)
		}
	}
}

func TestRoundIsBankers(t *testing.T) {
	cases := []struct {
		in     string
		places int
		want   string
	}{
		{"2.5", 0, "2"},
		{"3.5", 0, "4"},
		{"2.125", 2, "2.12"},
		{"2.135", 2, "2.14"},
		{"-2.5", 0, "-2"},
	}
	for _, tc := range cases {
		d := decimal.RequireFromString(tc.in)
		assert.Equal(t, tc.want, Round(d, tc.places).String(), "Round(%s, %d)", tc.in, tc.places)
	}
}

func TestFormatCurrency(t *testing.T) {
	assert.Equal(t, "$1,234.56", FormatCurrency(decimal.RequireFromString("1234.56")))
	assert.Equal(t, "$0.50", FormatCurrency(decimal.RequireFromString("0.5")))
	assert.Equal(t, "$198,543.21", FormatCurrency(decimal.RequireFromString("198543.21")))
	assert.Equal(t, "-$650.00", FormatCurrency(decimal.RequireFromString("-650")))
	assert.Equal(t, "$1,000,000.00", FormatCurrency(decimal.RequireFromString("1000000")))
}

func TestParseRoundTrip(t *testing.T) {
	for _, s := range []string{"0.01", "-42", "198543.21", "1000001"} {
		d, ok := Parse(s)
		require.True(t, ok)
		assert.Equal(t, decimal.RequireFromString(s).String(), d.String())
	}
}
