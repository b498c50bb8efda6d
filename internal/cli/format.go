package cli

import (
	"fmt"
	"strings"
)

// CurrencySymbol is the display currency for all amounts. The job service
// reports naira amounts.
const CurrencySymbol = "₦"

// FormatCurrency renders an amount as ₦1,234,567.89. Negative amounts keep
// their sign in front of the symbol.
func FormatCurrency(amount float64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	whole := fmt.Sprintf("%.2f", amount)
	dot := strings.IndexByte(whole, '.')
	return sign + CurrencySymbol + groupThousands(whole[:dot]) + whole[dot:]
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// FormatConfidence renders a confidence as a percentage with one decimal.
func FormatConfidence(c float64) string {
	return fmt.Sprintf("%.1f%%", c*100)
}
