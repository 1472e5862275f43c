package handler

import (
	"context"
	"net/http"
	"net/http/httptest"

	"github.com/google/uuid"

	httpctx "github.com/dtroode/composite-gateway/internal/api/http/context"
	"github.com/dtroode/composite-gateway/internal/model"
)

var ctxMgr = httpctx.NewManager()

func withIdentity(r *http.Request, id uuid.UUID) *http.Request {
	return r.WithContext(ctxMgr.SetIdentityToContext(r.Context(), model.Identity{UserID: id, Email: "a@b.com"}))
}

func cookieMap(rec *httptest.ResponseRecorder) map[string]*http.Cookie {
	out := map[string]*http.Cookie{}
	for _, c := range rec.Result().Cookies() {
		out[c.Name] = c
	}
	return out
}

// ctxWithIdentity matches any context carrying the given user id.
func ctxWithIdentity(id uuid.UUID) func(ctx context.Context) bool {
	return func(ctx context.Context) bool {
		identity, ok := ctxMgr.GetIdentityFromContext(ctx)
		return ok && identity.UserID == id
	}
}
