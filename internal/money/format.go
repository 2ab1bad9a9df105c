package money

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var usPrinter = message.NewPrinter(language.AmericanEnglish)

// FormatUSD renders m the way en-US displays dollars, e.g. "$1,234.56" or
// "-$5.00".
func FormatUSD(m Money) string {
	d := m.d.Round(Scale)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}

	whole := d.IntPart()
	cents := d.Sub(d.Truncate(0)).Shift(Scale).IntPart()

	return sign + "$" + usPrinter.Sprintf("%d", whole) + fmt.Sprintf(".%02d", cents)
}
