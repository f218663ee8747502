package money

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var indianEnglish = language.MustParse("en-IN")

// FormatINR renders amount as rupees with en-IN digit grouping and no
// fraction digits, e.g. ₹1,25,000.
func FormatINR(amount float64) string {
	p := message.NewPrinter(indianEnglish)
	rounded := math.Round(amount)
	sign := ""
	if rounded < 0 {
		sign = "-"
		rounded = -rounded
	}
	return sign + "₹" + p.Sprint(number.Decimal(rounded, number.MaxFractionDigits(0)))
}
