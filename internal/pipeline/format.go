package pipeline

import (
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// FormatCount renders n with thousands separators, e.g. 183412 -> "183,412"
func FormatCount(n int) string {
	return printer.Sprintf("%d", n)
}

// FormatMinutes renders a mean duration as "11.7 min"
func FormatMinutes(m float64) string {
	return fmt.Sprintf("%.1f min", m)
}

// FormatPercent renders a 0-100 share with one decimal, e.g. "89.3%"
func FormatPercent(p float64) string {
	return fmt.Sprintf("%.1f%%", p)
}

// TruncateLabel shortens s to width runes, marking the cut with an ellipsis
func TruncateLabel(s string, width int) string {
	if width <= 0 || utf8.RuneCountInString(s) <= width {
		return s
	}
	runes := []rune(s)
	return string(runes[:width]) + "…"
}
