package accounts

import (
	"strings"
	"unicode/utf8"
)

// MinPasswordLength is the minimum password length, counted in characters.
const MinPasswordLength = 6

// PasswordSpecialChars is the fixed set of accepted special characters.
const PasswordSpecialChars = "!@#$%^&*"

// Password policy violation messages, reported in this order.
const (
	ViolationTooShort  = "password must be at least 6 characters long"
	ViolationNoUpper   = "password must contain at least one uppercase letter"
	ViolationNoLower   = "password must contain at least one lowercase letter"
	ViolationNoDigit   = "password must contain at least one digit"
	ViolationNoSpecial = "password must contain at least one special character (!@#$%^&*)"
)

// ValidatePassword checks p against every password rule and returns one message per
// violated rule. An empty result means p is acceptable.
func ValidatePassword(p string) []string {
	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range p {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= '0' && r <= '9':
			hasDigit = true
		case strings.ContainsRune(PasswordSpecialChars, r):
			hasSpecial = true
		}
	}

	violations := []string{}
	if utf8.RuneCountInString(p) < MinPasswordLength {
		violations = append(violations, ViolationTooShort)
	}
	if !hasUpper {
		violations = append(violations, ViolationNoUpper)
	}
	if !hasLower {
		violations = append(violations, ViolationNoLower)
	}
	if !hasDigit {
		violations = append(violations, ViolationNoDigit)
	}
	if !hasSpecial {
		violations = append(violations, ViolationNoSpecial)
	}
	return violations
}
