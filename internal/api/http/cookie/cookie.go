// Package cookie writes and clears the session cookies.
package cookie

import (
	"net/http"

	"github.com/dtroode/composite-gateway/internal/model"
)

// Cookie names.
const (
	AccessToken  = "access_token"
	RefreshToken = "refresh_token"
)

// Policy sets cookie attributes for the current environment.
type Policy struct {
	secure   bool
	sameSite http.SameSite
}

// NewPolicy returns Secure, SameSite=None cookies in production and Lax
// cookies elsewhere.
func NewPolicy(production bool) *Policy {
	if production {
		return &Policy{secure: true, sameSite: http.SameSiteNoneMode}
	}
	return &Policy{sameSite: http.SameSiteLaxMode}
}

// SetSession writes both session cookies with Max-Age equal to token lifetime.
func (p *Policy) SetSession(w http.ResponseWriter, session model.Session) {
	http.SetCookie(w, p.cookie(AccessToken, session.AccessToken, int(session.AccessTTL.Seconds())))
	http.SetCookie(w, p.cookie(RefreshToken, session.RefreshToken, int(session.RefreshTTL.Seconds())))
}

// Clear expires both session cookies.
func (p *Policy) Clear(w http.ResponseWriter) {
	http.SetCookie(w, p.cookie(AccessToken, "", -1))
	http.SetCookie(w, p.cookie(RefreshToken, "", -1))
}

func (p *Policy) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   p.secure,
		SameSite: p.sameSite,
	}
}

// Tokens returns the session cookie values present on r.
func Tokens(r *http.Request) (access, refresh string) {
	if c, err := r.Cookie(AccessToken); err == nil {
		access = c.Value
	}
	if c, err := r.Cookie(RefreshToken); err == nil {
		refresh = c.Value
	}
	return access, refresh
}
