package invoice

import (
	"fmt"
	"regexp"
	"strings"
)

const numberPrefix = "INV-"

var numberPattern = regexp.MustCompile(`^INV-[0-9]+$`)

// NumberFor maps a quote id to its invoice number. Distinct ids give
// distinct numbers.
func NumberFor(quoteID int64) string {
	return fmt.Sprintf("%s%d", numberPrefix, quoteID)
}

// ValidNumber reports whether s has the shape produced by NumberFor. It
// keeps caller-supplied numbers from escaping the invoice directory.
func ValidNumber(s string) bool {
	return numberPattern.MatchString(s)
}

// NormalizeNumber accepts "inv-12", "INV-12" or "INV-12.pdf".
func NormalizeNumber(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, ".pdf")
	if len(s) >= len(numberPrefix) && strings.EqualFold(s[:len(numberPrefix)], numberPrefix) {
		s = numberPrefix + s[len(numberPrefix):]
	}
	return s
}
