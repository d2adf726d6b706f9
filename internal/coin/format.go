package coin

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// PricePlaceholder is shown before any price is known.
const PricePlaceholder = "…"

// FormatPrice renders a price as "$1,234.56" without passing through float64.
func FormatPrice(price *decimal.Decimal) string {
	if price == nil {
		return PricePlaceholder
	}

	p := price.Round(2)
	sign := ""
	if p.IsNegative() {
		sign = "-"
		p = p.Abs()
	}

	whole := p.Truncate(0)
	cents := p.Sub(whole).Shift(2).IntPart()
	return fmt.Sprintf("%s$%s.%02d", sign, humanize.Comma(whole.IntPart()), cents)
}

// LastUpdatedText renders the age of a quote: "just now", "5m ago", "2h ago".
func LastUpdatedText(at *time.Time, now time.Time) string {
	if at == nil {
		return "–"
	}
	age := now.Sub(*at)
	switch {
	case age < time.Minute:
		return "just now"
	case age < time.Hour:
		return fmt.Sprintf("%dm ago", int(age.Minutes()))
	default:
		return fmt.Sprintf("%dh ago", int(age.Hours()))
	}
}
