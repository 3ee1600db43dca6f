package auth

import (
	"regexp"
	"strings"
)

const (
	// PlaceholderDomain is the canonical domain for synthetic login emails.
	PlaceholderDomain = "members.memberwell.org"
	// LegacyPlaceholderDomain appears on rows created by the old importer.
	// Recognized on reads, never produced for new accounts.
	LegacyPlaceholderDomain = "memberwell.local"
)

var memberNumberRegex = regexp.MustCompile(`^[A-Z]{2}\d{5}$`)

// ValidationError represents a validation error on user input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NormalizeMemberNumber trims whitespace and uppercases a member number as typed.
func NormalizeMemberNumber(number string) string {
	return strings.ToUpper(strings.TrimSpace(number))
}

// ValidateMemberNumber validates the normalized member number format
// Rules: exactly 2 uppercase letters followed by 5 digits (e.g. TM10003)
func ValidateMemberNumber(number string) error {
	if !memberNumberRegex.MatchString(number) {
		return &ValidationError{
			Field:   "member_number",
			Message: "Member number must be 2 letters followed by 5 digits (e.g. TM10003)",
		}
	}
	return nil
}

// PlaceholderEmail builds the synthetic login email for a member number.
// The mapping is deterministic and injective: the local part is the
// lower-cased member number itself.
func PlaceholderEmail(number string) string {
	return strings.ToLower(number) + "@" + PlaceholderDomain
}

// IsPlaceholderEmail reports whether an email is a synthetic login address
// (canonical or legacy domain) rather than a real personal mailbox.
func IsPlaceholderEmail(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	return strings.HasSuffix(email, "@"+PlaceholderDomain) ||
		strings.HasSuffix(email, "@"+LegacyPlaceholderDomain)
}
