package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/composite-gateway/internal/api/http/cookie"
	"github.com/dtroode/composite-gateway/internal/mocks"
	"github.com/dtroode/composite-gateway/internal/model"
	"github.com/dtroode/composite-gateway/internal/testutil"
)

func newUserRouter(t *testing.T) (http.Handler, *mocks.UserService) {
	t.Helper()
	svc := mocks.NewUserService(t)
	h := NewUser(svc, ctxMgr, cookie.NewPolicy(false), NewValidator(), testutil.MakeNoopLogger())

	r := chi.NewRouter()
	r.Post("/users", h.Create)
	r.Get("/users", h.List)
	r.Get("/users/{userID}", h.Get)
	r.Patch("/users/{userID}", h.Update)
	r.Delete("/users/{userID}", h.Delete)
	return r, svc
}

func sampleUser(id uuid.UUID) model.User {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return model.User{
		ID:          id,
		Email:       "ada@example.com",
		FirstName:   "Ada",
		LastName:    "Lovelace",
		LoginMethod: model.LoginMethodCredentials,
		IsActive:    true,
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}
}

func TestUser_Create(t *testing.T) {
	t.Parallel()

	id := uuid.New()

	t.Run("created with session", func(t *testing.T) {
		r, svc := newUserRouter(t)
		svc.On("Signup", mock.Anything, model.SignupParams{
			Email: "ada@example.com", Password: "s3cret-pass", FirstName: "Ada", LastName: "Lovelace",
		}).Return(sampleUser(id), testSession, nil).Once()

		body := `{"email":"ada@example.com","plaintext_password":"s3cret-pass","first_name":"Ada","last_name":"Lovelace"}`
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/users", strings.NewReader(body)))

		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Len(t, rec.Result().Cookies(), 2)
		assert.JSONEq(t, `{
			"id":"`+id.String()+`",
			"email":"ada@example.com",
			"first_name":"Ada",
			"last_name":"Lovelace",
			"login_method":"credentials",
			"is_active":true,
			"created_at":"2026-03-01T12:00:00Z",
			"updated_at":"2026-03-01T12:00:00Z",
			"links":[
				{"rel":"self","href":"/users/`+id.String()+`","method":"GET"},
				{"rel":"update","href":"/users/`+id.String()+`","method":"PATCH"},
				{"rel":"delete","href":"/users/`+id.String()+`","method":"DELETE"},
				{"rel":"collection","href":"/users","method":"GET"}
			]
		}`, rec.Body.String())
	})

	t.Run("email taken", func(t *testing.T) {
		r, svc := newUserRouter(t)
		svc.On("Signup", mock.Anything, mock.Anything).Return(model.User{}, model.Session{}, model.ErrEmailTaken).Once()

		body := `{"email":"ada@example.com","plaintext_password":"s3cret-pass","first_name":"Ada","last_name":"Lovelace"}`
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/users", strings.NewReader(body)))

		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("short password", func(t *testing.T) {
		r, _ := newUserRouter(t)

		body := `{"email":"ada@example.com","plaintext_password":"short","first_name":"Ada","last_name":"Lovelace"}`
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/users", strings.NewReader(body)))

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Contains(t, rec.Body.String(), "plaintext_password failed on min=8")
	})
}

func TestUser_List(t *testing.T) {
	t.Parallel()

	t.Run("defaults", func(t *testing.T) {
		r, svc := newUserRouter(t)
		svc.On("List", mock.Anything, model.UserFilter{
			Limit: 100, SortBy: "created_at", SortOrder: "desc",
		}).Return([]model.User{sampleUser(uuid.New()), sampleUser(uuid.New())}, nil).Once()

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 2, strings.Count(rec.Body.String(), `"rel":"self"`))
	})

	t.Run("filters", func(t *testing.T) {
		r, svc := newUserRouter(t)
		after := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		active := false
		svc.On("List", mock.Anything, model.UserFilter{
			Skip: 10, Limit: 5, Search: "ada", IsActive: &active, CreatedAfter: &after,
			SortBy: "email", SortOrder: "asc",
		}).Return([]model.User{}, nil).Once()

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
			"/users?skip=10&limit=5&search=ada&is_active=false&created_after=2026-01-01T00:00:00Z&sort_by=email&sort_order=asc", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `[]`, rec.Body.String())
	})

	for _, q := range []string{"limit=0", "limit=1001", "skip=-1", "sort_by=password", "sort_order=up", "is_active=maybe", "created_before=yesterday"} {
		t.Run("rejects "+q, func(t *testing.T) {
			r, _ := newUserRouter(t)
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users?"+q, nil))

			assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		})
	}
}

func TestUser_Get(t *testing.T) {
	t.Parallel()

	id := uuid.New()

	t.Run("found", func(t *testing.T) {
		r, svc := newUserRouter(t)
		svc.On("Get", mock.Anything, id, true).Return(sampleUser(id), nil).Once()

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/"+id.String()+"?include_inactive=true", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), id.String())
	})

	t.Run("not found", func(t *testing.T) {
		r, svc := newUserRouter(t)
		svc.On("Get", mock.Anything, id, false).Return(model.User{}, model.ErrNotFound).Once()

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/"+id.String(), nil))

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("bad id", func(t *testing.T) {
		r, _ := newUserRouter(t)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/42", nil))

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})
}

func TestUser_Update(t *testing.T) {
	t.Parallel()

	id := uuid.New()

	t.Run("own profile", func(t *testing.T) {
		r, svc := newUserRouter(t)
		svc.On("Update", mock.Anything, id, mock.MatchedBy(func(u model.UserUpdate) bool {
			return u.FirstName != nil && *u.FirstName == "Augusta" && u.Email == nil && u.NewPassword == nil
		}), true).Return(sampleUser(id), nil).Once()

		req := httptest.NewRequest(http.MethodPatch, "/users/"+id.String()+"?force_update=true", strings.NewReader(`{"first_name":"Augusta"}`))
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, withIdentity(req, id))

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("someone else", func(t *testing.T) {
		r, _ := newUserRouter(t)
		req := httptest.NewRequest(http.MethodPatch, "/users/"+id.String(), strings.NewReader(`{"first_name":"X"}`))
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, withIdentity(req, uuid.New()))

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("wrong current password", func(t *testing.T) {
		r, svc := newUserRouter(t)
		svc.On("Update", mock.Anything, id, mock.Anything, false).Return(model.User{}, model.ErrIncorrectPassword).Once()

		req := httptest.NewRequest(http.MethodPatch, "/users/"+id.String(),
			strings.NewReader(`{"current_password":"wrong-one","new_password":"new-password"}`))
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, withIdentity(req, id))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("oauth user email change", func(t *testing.T) {
		r, svc := newUserRouter(t)
		svc.On("Update", mock.Anything, id, mock.Anything, false).Return(model.User{}, model.ErrCredentialsRequired).Once()

		req := httptest.NewRequest(http.MethodPatch, "/users/"+id.String(), strings.NewReader(`{"email":"new@example.com"}`))
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, withIdentity(req, id))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestUser_Delete(t *testing.T) {
	t.Parallel()

	id := uuid.New()

	tests := []struct {
		name       string
		query      string
		soft       bool
		force      bool
		svcErr     error
		wantStatus int
	}{
		{name: "soft by default", soft: true, wantStatus: http.StatusNoContent},
		{name: "hard", query: "?soft_delete=false", soft: false, wantStatus: http.StatusNoContent},
		{name: "force inactive", query: "?force_delete=true", soft: true, force: true, wantStatus: http.StatusNoContent},
		{name: "already inactive", soft: true, svcErr: model.ErrUserInactive, wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r, svc := newUserRouter(t)
			svc.On("Delete", mock.Anything, id, tt.soft, tt.force).Return(tt.svcErr).Once()

			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, withIdentity(httptest.NewRequest(http.MethodDelete, "/users/"+id.String()+tt.query, nil), id))

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusNoContent {
				cookies := cookieMap(rec)
				require.Len(t, cookies, 2)
				assert.Empty(t, rec.Body.String())
			}
		})
	}
}
