// Package redact provides the single code path by which connection strings
// and other credential-shaped values are allowed to reach logs, error
// messages, or the output document. Every other package that might touch a
// DSN routes through URL before formatting it anywhere.
package redact

import (
	"net/url"
	"regexp"
	"strings"
	"sync"
)

// placeholder replaces a redacted password or secret value.
const placeholder = "****"

// fallback is returned for any string that looks credential-shaped but does
// not parse as a URL, so a partially-formed DSN is never echoed verbatim.
const fallback = "<redacted>"

// URL redacts the password component of a connection string.
//
// If s parses as a URL with a password, the password is replaced with
// "****" and the reconstructed URL is returned. If s parses as a URL with no
// password, s is returned unchanged. Otherwise the constant "<redacted>" is
// returned — never the original string.
func URL(s string) string {
	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" {
		// Not a real URL (just a bare string, a malformed fragment, etc.) —
		// never echo it back, even unchanged, since it might be a
		// partially-formed DSN.
		return fallback
	}

	if u.User != nil {
		if _, hasPassword := u.User.Password(); hasPassword {
			u.User = url.UserPassword(u.User.Username(), placeholder)
		}
	}

	return u.String()
}

// Patterns is the process-wide, lazily-initialised, read-only-thereafter set
// of credential-shaped regular expressions used by the output validator
// (internal/output) and by anything that needs a quick "does this string
// smell like a secret" check. It is not mutable global state: once built on
// first use it never changes.
type Patterns struct {
	dsnWithCreds *regexp.Regexp
	bareSecret   *regexp.Regexp
}

var (
	patternsOnce sync.Once
	patterns     *Patterns
)

// ValidationPatterns returns the process-wide pattern set, building it on
// first call.
func ValidationPatterns() *Patterns {
	patternsOnce.Do(func() {
		schemeAlt := strings.Join([]string{
			"postgres", "postgresql", "mysql", "mongodb", "mongodb\\+srv", "mssql", "sqlserver",
		}, "|")
		patterns = &Patterns{
			dsnWithCreds: regexp.MustCompile(`(?i)(` + schemeAlt + `)://[^:/@\s]+:[^@/\s]+@`),
			bareSecret:   regexp.MustCompile(`(?i)(?:\b|_)(password|secret|api_key|token|key)\s*=\s*\S+`),
		}
	})
	return patterns
}

// ContainsCredentials reports whether s matches any known DSN-with-password
// shape or secret-assignment fragment (a bare or underscore-prefixed name
// such as password= or db_password=).
func (p *Patterns) ContainsCredentials(s string) bool {
	return p.dsnWithCreds.MatchString(s) || p.bareSecret.MatchString(s)
}

// ContainsCredentials is a package-level convenience wrapping the global
// Patterns instance.
func ContainsCredentials(s string) bool {
	return ValidationPatterns().ContainsCredentials(s)
}
