// utils/validation.go
package utils

import (
	"regexp"
	"strings"
)

var (
	intlPhone = regexp.MustCompile(`^\+?[1-9]\d{1,14}$`)
	uzPhone   = regexp.MustCompile(`^\+998\d{9}$`)
)

func cleanPhone(phone string) string {
	return strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(phone)
}

// ValidatePhone checks if a phone number is in a valid international format
func ValidatePhone(phone string) bool {
	return intlPhone.MatchString(cleanPhone(phone))
}

// NormalizeUzPhone returns the E.164 form (+998XXXXXXXXX) of an Uzbek number.
func NormalizeUzPhone(phone string) (string, bool) {
	cleaned := cleanPhone(phone)
	switch {
	case strings.HasPrefix(cleaned, "998"):
		cleaned = "+" + cleaned
	case len(cleaned) == 9:
		cleaned = "+998" + cleaned
	}
	if !uzPhone.MatchString(cleaned) {
		return "", false
	}
	return cleaned, true
}
