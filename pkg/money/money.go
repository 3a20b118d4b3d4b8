// Package money renders integer currency amounts for display.
package money

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// VNDSymbol is the Vietnamese dong sign.
const VNDSymbol = "₫"

// FormatVND renders an amount of dong with Vietnamese digit grouping and the
// symbol suffixed, e.g. 1250000 -> "1.250.000 ₫".
func FormatVND(amount int64) string {
	return Format(amount, language.Vietnamese, VNDSymbol)
}

// Format renders amount with the grouping rules of tag followed by symbol.
// An empty symbol yields the bare number.
func Format(amount int64, tag language.Tag, symbol string) string {
	s := message.NewPrinter(tag).Sprintf("%d", amount)
	if symbol == "" {
		return s
	}
	return s + " " + symbol
}
