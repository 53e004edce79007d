package validation

import (
	"regexp"
	"strings"
	"time"
)

// MinimumAge is the youngest account age accepted at write time.
const MinimumAge = 18

var (
	nameRe  = regexp.MustCompile(`^[a-zA-Z\s]+$`)
	emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

	// websiteRe is the canonical permissive shape used by the signup and
	// admin paths: optional scheme, a non-space host containing a dot,
	// anything after.
	websiteRe = regexp.MustCompile(`^(https?://)?[^\s]+\.[^\s]+$`)

	// importWebsiteRe is the stricter shape the bulk-import path has always
	// required: scheme mandatory, dotted host, optional path segments.
	importWebsiteRe = regexp.MustCompile(`^https?://(www\.)?[a-zA-Z0-9-]+(\.[a-zA-Z]{2,})+(/[a-zA-Z0-9#?&=._~-]*)*/?$`)
)

// IsValidName reports whether s is non-empty and contains only letters and
// whitespace.
func IsValidName(s string) bool {
	return strings.TrimSpace(s) != "" && nameRe.MatchString(s)
}

// IsValidEmail reports whether s has a simple mailbox shape
// (local@domain.tld, no whitespace).
func IsValidEmail(s string) bool {
	return emailRe.MatchString(s)
}

// IsStrongPassword applies the signup-time strength rule: at least 8
// characters with a lowercase letter, an uppercase letter, a digit and one
// of @$!%*?&.
func IsStrongPassword(s string) bool {
	if len(s) < 8 {
		return false
	}
	return strings.ContainsAny(s, "abcdefghijklmnopqrstuvwxyz") &&
		strings.ContainsAny(s, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") &&
		strings.ContainsAny(s, "0123456789") &&
		strings.ContainsAny(s, "@$!%*?&")
}

// HasMinPasswordLength is the weaker rule the admin and bulk-import paths
// use: length only. The two entry points have never shared a password rule.
func HasMinPasswordLength(s string) bool {
	return len(s) >= 8
}

// ParseDob parses a date of birth submitted as a bare date or as an RFC3339
// timestamp.
func ParseDob(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

// IsAdult reports whether the age requirement holds at now. The age is a
// calendar-year subtraction, not an exact birthday calculation: someone whose
// birthday has not yet occurred this year is counted a year older than they
// are. Callers rely on that exact arithmetic.
func IsAdult(dob, now time.Time) bool {
	return now.Year()-dob.Year() >= MinimumAge
}

// IsValidGender reports case-insensitive membership in the gender enum.
func IsValidGender(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "male", "female", "other":
		return true
	}
	return false
}

// NormalizeGender lowercases a gender value for storage.
func NormalizeGender(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// IsValidWebsite reports whether the trimmed value matches the permissive
// URL shape. Empty input is valid; the field is optional on this rule.
func IsValidWebsite(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return true
	}
	return websiteRe.MatchString(s)
}

// IsValidImportWebsite applies the strict http(s)-required pattern. Empty
// input is not valid; the import path requires a website on every row.
func IsValidImportWebsite(s string) bool {
	return importWebsiteRe.MatchString(strings.TrimSpace(s))
}
