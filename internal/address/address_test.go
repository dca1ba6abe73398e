package address_test

import (
	"testing"

	"github.com/mailstash/mailstash/internal/address"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name   string
		header string
		email  string
		dname  string
		domain string
	}{
		{"name and email", "John Doe <john@example.com>", "john@example.com", "John Doe", "example.com"},
		{"quoted name", `"Doe, John" <john@example.com>`, "john@example.com", "Doe, John", "example.com"},
		{"bare email", "john@example.com", "john@example.com", "", "example.com"},
		{"angle brackets only", "<john@example.com>", "john@example.com", "", "example.com"},
		{"empty", "", "", "", ""},
		{"uppercase lowered", "John <JOHN@Example.COM>", "john@example.com", "John", "example.com"},
		{"no domain", "john", "john", "", ""},
		{"surrounding whitespace", "  Jane <jane@x.org>  ", "jane@x.org", "Jane", "x.org"},
		{"multiple ats", "odd <a@b@c.net>", "a@b@c.net", "odd", "c.net"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			email, name, domain := address.Parse(tt.header)
			if email != tt.email || name != tt.dname || domain != tt.domain {
				t.Errorf("Parse(%q) = (%q, %q, %q), want (%q, %q, %q)",
					tt.header, email, name, domain, tt.email, tt.dname, tt.domain)
			}
		})
	}
}
