// Package format renders amounts, dates and durations for display.
package format

import (
	"math"
	"strings"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// Currency renders amount with two decimals, English digit grouping and the
// symbol of the ISO 4217 code, e.g. Currency(1234.5, "USD") == "$1,234.50".
// Unknown codes are printed as a prefix: "XYZ 1,234.50".
func Currency(amount float64, code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		code = "USD"
	}
	sign := ""
	if amount < 0 {
		sign = "-"
	}
	digits := printer.Sprintf("%.2f", math.Abs(amount))
	if digits == "0.00" {
		sign = ""
	}

	unit, err := currency.ParseISO(code)
	if err != nil {
		return sign + code + " " + digits
	}
	symbol := printer.Sprint(currency.Symbol(unit))
	if symbol == "" {
		symbol = code + " "
	}
	return sign + symbol + digits
}
