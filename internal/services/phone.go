package services

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	reLetters = regexp.MustCompile(`\pL`)
	// Only allow digits, spaces, +, -, (, ), dots
	reAllowed = regexp.MustCompile(`^[0-9+\-\s\(\)\.]+$`)
)

// FormatPhone writes ten digit Turkish mobile numbers as "530 456 78 90".
// Anything else is returned untouched so foreign numbers survive.
func FormatPhone(p string) string {
	d := DigitsOnly(p)
	if len(d) == 11 && strings.HasPrefix(d, "0") {
		d = d[1:]
	}
	if len(d) != 10 {
		return strings.TrimSpace(p)
	}
	return d[:3] + " " + d[3:6] + " " + d[6:8] + " " + d[8:10]
}

// NormPhone normalizes phone numbers to +E.164-like form for messaging.
// Rules: strip separators; 00.. -> +..; 90.. (12 digits) -> +90..; 0.. -> +90..; bare 10 digits -> +90..
func NormPhone(p string) string {
	s := strings.TrimSpace(p)
	if s == "" || reLetters.MatchString(s) || !reAllowed.MatchString(s) {
		return ""
	}
	plus := strings.HasPrefix(s, "+")
	s = DigitsOnly(s)
	if s == "" {
		return ""
	}

	switch {
	case plus:
	case strings.HasPrefix(s, "00"):
		s = s[2:]
	case strings.HasPrefix(s, "90") && len(s) == 12:
	case strings.HasPrefix(s, "0"):
		s = "90" + s[1:]
	default:
		s = "90" + s
	}
	return "+" + s
}

func DigitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// SamePhone compares numbers ignoring formatting. Empty numbers never match.
func SamePhone(a, b string) bool {
	da, db := DigitsOnly(a), DigitsOnly(b)
	if da == "" || db == "" {
		return false
	}
	return strings.TrimPrefix(da, "0") == strings.TrimPrefix(db, "0")
}
