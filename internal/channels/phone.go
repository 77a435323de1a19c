package channels

import (
	"regexp"
	"strings"
)

var (
	phoneSeparators = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", "\t", "")
	e164            = regexp.MustCompile(`^\+[1-9]\d{9,14}$`)
)

// NormalizePhone strips separators and prefixes countryCode when the number
// has no leading "+".
func NormalizePhone(raw, countryCode string) string {
	n := phoneSeparators.Replace(strings.TrimSpace(raw))
	if n == "" || strings.HasPrefix(n, "+") {
		return n
	}
	if !strings.HasPrefix(countryCode, "+") {
		countryCode = "+" + countryCode
	}
	return countryCode + n
}

// ValidPhone reports whether raw normalizes to a plausible E.164 number.
func ValidPhone(raw, countryCode string) bool {
	return e164.MatchString(NormalizePhone(raw, countryCode))
}
