// Package address parses sender headers into email, display name, and domain.
package address

import (
	"regexp"
	"strings"
)

// headerRe matches `"Name" <email>` and `Name <email>` forms. The name
// group may be empty, which covers the bare `<email>` form as well.
var headerRe = regexp.MustCompile(`^"?([^"<]*)"?\s*<([^>]+)>$`)

// Parse splits a From header into its email, display name, and domain parts.
//
// Recognized forms are `"Name" <email>`, `Name <email>`, and a bare email.
// The email is lower-cased; the domain is the substring after the last "@",
// or empty when the email has none. Parse never fails: unrecognized input is
// treated as a bare email with no display name.
func Parse(header string) (email, name, domain string) {
	trimmed := strings.TrimSpace(header)

	if m := headerRe.FindStringSubmatch(trimmed); m != nil {
		name = strings.TrimSpace(m[1])
		email = strings.ToLower(m[2])
	} else {
		email = strings.ToLower(trimmed)
	}

	if idx := strings.LastIndex(email, "@"); idx >= 0 {
		domain = email[idx+1:]
	}
	return email, name, domain
}
