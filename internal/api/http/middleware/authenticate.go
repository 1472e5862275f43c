package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dtroode/composite-gateway/internal/api/http/cookie"
	"github.com/dtroode/composite-gateway/internal/logger"
	"github.com/dtroode/composite-gateway/internal/model"
)

// TokenResolver resolves the caller from session cookie values.
type TokenResolver interface {
	Resolve(ctx context.Context, accessToken, refreshToken string) (model.Identity, error)
}

// Authenticate resolves session cookies and injects the identity into the request context.
type Authenticate struct {
	tokens         TokenResolver
	contextManager model.ContextManager
	cookies        *cookie.Policy
	logger         *logger.Logger
}

// NewAuthenticate creates a new Authenticate middleware instance.
func NewAuthenticate(tokens TokenResolver, contextManager model.ContextManager, cookies *cookie.Policy, logger *logger.Logger) *Authenticate {
	return &Authenticate{
		tokens:         tokens,
		contextManager: contextManager,
		cookies:        cookies,
		logger:         logger,
	}
}

// Handle rejects requests without a usable session. Stale cookies are
// cleared on rejection.
func (m *Authenticate) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		access, refresh := cookie.Tokens(r)

		identity, err := m.tokens.Resolve(r.Context(), access, refresh)
		if err != nil {
			if !errors.Is(err, model.ErrUnauthenticated) {
				m.logger.Error("Authenticate middleware: failed to resolve session",
					"path", r.URL.Path,
					"error", err.Error())
				writeDetail(w, http.StatusInternalServerError, "internal server error")
				return
			}

			if access != "" || refresh != "" {
				m.cookies.Clear(w)
			}
			writeDetail(w, http.StatusUnauthorized, "Not authenticated")
			return
		}

		ctx := m.contextManager.SetIdentityToContext(r.Context(), identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}
