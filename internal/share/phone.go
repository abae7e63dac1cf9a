package share

import (
	"errors"
	"strings"
)

// CountryCode is prepended to local numbers.
const CountryCode = "62"

// ErrInvalidPhone is returned for numbers that cannot be normalized.
var ErrInvalidPhone = errors.New("invalid phone number")

// NormalizePhone converts a phone number to international digits without a
// plus sign. Local Indonesian forms are rewritten:
//
//	0812-3456-7890   -> 6281234567890
//	+62 812 3456 789 -> 628123456789
//	62 0812...       -> 62812...
//	812...           -> 62812...
func NormalizePhone(phone string) (string, error) {
	var b strings.Builder
	for _, r := range phone {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' || r == ' ' || r == '-' || r == '(' || r == ')' || r == '.':
		default:
			return "", ErrInvalidPhone
		}
	}
	digits := b.String()

	switch {
	case strings.HasPrefix(digits, CountryCode+"0"):
		digits = CountryCode + digits[len(CountryCode)+1:]
	case strings.HasPrefix(digits, "0"):
		digits = CountryCode + digits[1:]
	case strings.HasPrefix(digits, "8"):
		digits = CountryCode + digits
	}

	if len(digits) < 10 || len(digits) > 15 {
		return "", ErrInvalidPhone
	}
	return digits, nil
}
