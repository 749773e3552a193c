package invoice

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// FormatMoney prints an amount with two decimals, thousands separators and
// the currency symbol, e.g. "$1,234.50".
func FormatMoney(amount decimal.Decimal, code string) string {
	digits := FormatAmount(amount)
	return CurrencySymbol(code) + digits
}

// FormatAmount prints two decimals with thousands separators. It works on the
// decimal string so large amounts keep every digit.
func FormatAmount(amount decimal.Decimal) string {
	fixed := amount.StringFixed(2)
	sign := ""
	if strings.HasPrefix(fixed, "-") {
		sign, fixed = "-", fixed[1:]
	}
	whole, frac, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	b.WriteString(sign)
	for i, d := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(d)
	}
	b.WriteByte('.')
	b.WriteString(frac)
	return b.String()
}

// CurrencySymbol returns the narrow symbol for an ISO code, or the code
// followed by a space when it is unknown.
func CurrencySymbol(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return ""
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		return code + " "
	}
	// x/text prints "<symbol> <amount>"; keep the symbol only.
	fields := strings.Fields(printer.Sprint(currency.NarrowSymbol(unit.Amount(0))))
	if len(fields) < 2 || fields[0] == code || strings.ContainsAny(fields[0], "0123456789") {
		return code + " "
	}
	return fields[0]
}
