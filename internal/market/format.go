package market

import (
	"strings"

	"github.com/shopspring/decimal"
)

// FormatAmount renders v with a fixed number of decimals and thousands separators,
// e.g. FormatAmount(1234567.891, 2) == "1,234,567.89".
func FormatAmount(v float64, places int32) string {
	s := decimal.NewFromFloat(v).StringFixed(places)

	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	whole, frac, hasFrac := strings.Cut(s, ".")

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if hasFrac {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	return b.String()
}
