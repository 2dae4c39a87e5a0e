package domain

import "strings"

// NormalizePhone reduces a phone number to its digit-only lookup key.
// Formatting characters are stripped and a leading country code 1 is dropped
// from 11-digit numbers so "+1 (616) 555-0123" and "6165550123" collapse to
// the same key. Normalizing an already-normalized number is a no-op.
func NormalizePhone(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) == 11 && digits[0] == '1' {
		digits = digits[1:]
	}
	return digits
}
