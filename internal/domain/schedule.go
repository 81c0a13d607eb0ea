package domain

import (
	"regexp"
	"strings"
	"time"
)

var scheduleTimePattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// ParseWeekday returns the canonical English name of a weekday label, matched case-insensitively.
func ParseWeekday(s string) (string, bool) {
	s = strings.TrimSpace(s)
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(s, d.String()) {
			return d.String(), true
		}
	}
	return "", false
}

// NormalizeScheduleDays canonicalizes weekday labels and drops duplicates, keeping first occurrence.
// It returns the labels that are not weekdays, if any.
func NormalizeScheduleDays(days []string) (out []string, invalid []string) {
	out = make([]string, 0, len(days))
	seen := make(map[string]bool, len(days))
	for _, raw := range days {
		d, ok := ParseWeekday(raw)
		if !ok {
			invalid = append(invalid, raw)
			continue
		}
		if seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	return out, invalid
}

// ValidScheduleTime reports whether s is a 24-hour "HH:mm" time of day.
func ValidScheduleTime(s string) bool {
	return scheduleTimePattern.MatchString(s)
}
