// Package utils provides shared utility functions.
package utils

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// FormatUSD formats a monetary amount as US dollars with thousands
// separators, e.g. -1234567.8 -> "-$1,234,567.80".
func FormatUSD(amount decimal.Decimal) string {
	negative := amount.IsNegative()
	if negative {
		amount = amount.Neg()
	}

	str := amount.StringFixed(2)
	parts := strings.SplitN(str, ".", 2)
	intPart, decPart := parts[0], parts[1]

	result := "$" + groupThousands(intPart) + "." + decPart
	if negative {
		result = "-" + result
	}
	return result
}

func groupThousands(s string) string {
	n := len(s)
	if n <= 3 {
		return s
	}

	var b strings.Builder
	lead := n % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < n; i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// FormatPercent formats a percentage with an explicit sign, e.g. "+12.34%".
func FormatPercent(value decimal.Decimal) string {
	sign := ""
	if value.IsPositive() {
		sign = "+"
	}
	return sign + value.StringFixed(2) + "%"
}

// FormatShares renders a share count alongside its symbol, e.g.
// "25 x AAPL".
func FormatShares(shares int64, symbol string) string {
	return strconv.FormatInt(shares, 10) + " x " + symbol
}
