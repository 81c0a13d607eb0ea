package domain

import "strings"

// NormalizeHumanName trims leading/trailing whitespace and collapses internal whitespace runs.
func NormalizeHumanName(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// NormalizeEmail trims surrounding whitespace and case-folds the address.
// Email uniqueness is case-insensitive, so every lookup and insert goes through this.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
