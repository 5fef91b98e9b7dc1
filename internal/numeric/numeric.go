// Package numeric parses the decimal strings that come off green screens
// and business files: currency symbols, thousands separators and
// parenthesized negatives are all tolerated. Arithmetic rides on
// shopspring/decimal so money math stays exact.
package numeric

import (
	"strings"

	"github.com/shopspring/decimal"
)

var currencyReplacer = strings.NewReplacer("$", "", "£", "", "€", "", ",", "")

// Parse converts a display string to a decimal. Outer parentheses mean
// negative; "$", "£", "€" and "," are stripped. Empty or non-numeric input
// returns false.
func Parse(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	s = strings.TrimSpace(currencyReplacer.Replace(s))
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	if negative {
		d = d.Neg()
	}
	return d, true
}

// ParseFloat is Parse with a float64 result, for callers that only compare.
func ParseFloat(s string) (float64, bool) {
	d, ok := Parse(s)
	if !ok {
		return 0, false
	}
	f, _ := d.Float64()
	return f, true
}

// Round applies banker's rounding to the given number of decimal places.
func Round(d decimal.Decimal, places int) decimal.Decimal {
	return d.RoundBank(int32(places))
}

// FormatCurrency renders a decimal as "$1,234.56" (negative values as
// "-$1,234.56"), the convention the mock host's screens display.
func FormatCurrency(d decimal.Decimal) string {
	negative := d.IsNegative()
	s := d.Abs().RoundBank(2).StringFixed(2)
	dot := strings.IndexByte(s, '.')
	intPart, fracPart := s[:dot], s[dot:]
	var b strings.Builder
	if negative {
		b.WriteByte('-')
	}
	b.WriteByte('$')
	for i, ch := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(ch)
	}
	b.WriteString(fracPart)
	return b.String()
}
