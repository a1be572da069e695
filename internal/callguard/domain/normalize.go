package domain

import "strings"

const (
	countryCode     = "33"
	intlCountryCode = "+" + countryCode
)

// Normalize canonicalizes a phone number for prefix comparison.
//
// Every character other than ASCII digits is dropped, except a '+' that would
// become the first character of the result. French numbers are then rewritten
// to international form: a local "0X..." becomes "+33X...", and a bare
// "33XX..." gains its '+'. Anything else is returned cleaned but unchanged.
//
// Normalize is total and idempotent.
func Normalize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw) + 2)
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		switch {
		case c >= '0' && c <= '9':
			b.WriteByte(c)
		case c == '+' && b.Len() == 0:
			b.WriteByte(c)
		}
	}
	cleaned := b.String()

	switch {
	case strings.HasPrefix(cleaned, "0") && len(cleaned) >= 2:
		return intlCountryCode + cleaned[1:]
	case strings.HasPrefix(cleaned, intlCountryCode):
		return cleaned
	case strings.HasPrefix(cleaned, countryCode) && len(cleaned) >= 4:
		return "+" + cleaned
	default:
		return cleaned
	}
}
