package contacts

import (
	"strings"
	"unicode"
)

const nationalNumberLen = 9

// NormalizePhone strips everything but digits and prepends prefix to
// national numbers that do not carry it yet. It does not validate.
func NormalizePhone(phone, prefix string) string {
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) && r < unicode.MaxASCII {
			return r
		}
		return -1
	}, phone)
	if prefix != "" && len(digits) == nationalNumberLen && !strings.HasPrefix(digits, prefix) {
		digits = prefix + digits
	}
	return digits
}

// DialString returns the E.164 form used when placing a call.
func DialString(phone, prefix string) string {
	n := NormalizePhone(phone, prefix)
	if n == "" {
		return ""
	}
	return "+" + n
}
