package redirect

import (
	"net/url"
	"strings"

	"github.com/dtroode/composite-gateway/internal/model"
)

var _ model.RedirectPolicy = (*Sanitizer)(nil)

// Sanitizer restricts post-login redirects to an origin allowlist.
type Sanitizer struct {
	allowed  map[string]struct{}
	fallback string
}

// NewSanitizer creates a Sanitizer. Origins are compared as lower-case scheme://host[:port].
func NewSanitizer(allowedOrigins []string, fallback string) *Sanitizer {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		o = strings.ToLower(strings.TrimRight(strings.TrimSpace(o), "/"))
		if o != "" {
			allowed[o] = struct{}{}
		}
	}
	return &Sanitizer{allowed: allowed, fallback: fallback}
}

// Sanitize strips query and fragment, trims the trailing slash and returns
// the result when its origin is allowed, the fallback otherwise.
func (s *Sanitizer) Sanitize(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return s.fallback
	}

	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" || u.User != nil {
		return s.fallback
	}

	origin := strings.ToLower(u.Scheme + "://" + u.Host)
	if _, ok := s.allowed[origin]; !ok {
		return s.fallback
	}

	return origin + strings.TrimRight(u.EscapedPath(), "/")
}

// Validate re-checks a stored target at use time.
func (s *Sanitizer) Validate(stored string) string {
	return s.Sanitize(stored)
}

// Fallback returns the default frontend URL.
func (s *Sanitizer) Fallback() string {
	return s.fallback
}
