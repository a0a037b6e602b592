package services

import (
	"strings"
	"unicode"

	"go.mau.fi/whatsmeow/types"
)

// BrazilCountryCode is prepended to phone numbers that do not already start with it
const BrazilCountryCode = "55"

// NormalizePhone turns a free-form phone number into the backend's user JID.
// Every non-digit character is stripped and the country code is prepended unless already present.
// No length or format validation is done: callers reject empty input.
func NormalizePhone(phone string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, phone)

	if !strings.HasPrefix(digits, BrazilCountryCode) {
		digits = BrazilCountryCode + digits
	}

	return types.NewJID(digits, types.DefaultUserServer).String()
}

// HasDigits reports whether a phone input contains at least one ASCII digit
func HasDigits(phone string) bool {
	return strings.IndexFunc(phone, func(r rune) bool {
		return r < unicode.MaxASCII && unicode.IsDigit(r)
	}) >= 0
}
