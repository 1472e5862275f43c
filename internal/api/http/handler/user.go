package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/dtroode/composite-gateway/internal/api/http/cookie"
	"github.com/dtroode/composite-gateway/internal/logger"
	"github.com/dtroode/composite-gateway/internal/model"
)

// UserService defines user management operations.
type UserService interface {
	Signup(ctx context.Context, params model.SignupParams) (model.User, model.Session, error)
	Get(ctx context.Context, id uuid.UUID, includeInactive bool) (model.User, error)
	List(ctx context.Context, filter model.UserFilter) ([]model.User, error)
	Update(ctx context.Context, id uuid.UUID, update model.UserUpdate, force bool) (model.User, error)
	Delete(ctx context.Context, id uuid.UUID, soft, force bool) error
}

// User handles the users resource.
type User struct {
	userService    UserService
	contextManager model.ContextManager
	cookies        *cookie.Policy
	validate       *validator.Validate
	logger         *logger.Logger
}

// NewUser creates a new User handler.
func NewUser(
	userService UserService,
	contextManager model.ContextManager,
	cookies *cookie.Policy,
	validate *validator.Validate,
	logger *logger.Logger,
) *User {
	return &User{
		userService:    userService,
		contextManager: contextManager,
		cookies:        cookies,
		validate:       validate,
		logger:         logger,
	}
}

type link struct {
	Rel    string `json:"rel"`
	Href   string `json:"href"`
	Method string `json:"method"`
}

type userResponse struct {
	ID          uuid.UUID         `json:"id"`
	Email       string            `json:"email"`
	FirstName   string            `json:"first_name"`
	LastName    string            `json:"last_name"`
	LoginMethod model.LoginMethod `json:"login_method"`
	IsActive    bool              `json:"is_active"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	Links       []link            `json:"links"`
}

func newUserResponse(u model.User) userResponse {
	self := "/users/" + u.ID.String()
	return userResponse{
		ID:          u.ID,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		LoginMethod: u.LoginMethod,
		IsActive:    u.IsActive,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
		Links: []link{
			{Rel: "self", Href: self, Method: http.MethodGet},
			{Rel: "update", Href: self, Method: http.MethodPatch},
			{Rel: "delete", Href: self, Method: http.MethodDelete},
			{Rel: "collection", Href: "/users", Method: http.MethodGet},
		},
	}
}

type createUserRequest struct {
	Email             string `json:"email" validate:"required,email"`
	PlaintextPassword string `json:"plaintext_password" validate:"required,min=8,max=72"`
	FirstName         string `json:"first_name" validate:"required,max=100"`
	LastName          string `json:"last_name" validate:"required,max=100"`
}

type updateUserRequest struct {
	FirstName       *string `json:"first_name" validate:"omitempty,max=100"`
	LastName        *string `json:"last_name" validate:"omitempty,max=100"`
	Email           *string `json:"email" validate:"omitempty,email"`
	IsActive        *bool   `json:"is_active"`
	CurrentPassword *string `json:"current_password"`
	NewPassword     *string `json:"new_password" validate:"omitempty,min=8,max=72"`
}

type listUsersQuery struct {
	Skip          int        `json:"skip" validate:"min=0"`
	Limit         int        `json:"limit" validate:"min=1,max=1000"`
	SortBy        string     `json:"sort_by" validate:"oneof=created_at updated_at email first_name last_name"`
	SortOrder     string     `json:"sort_order" validate:"oneof=asc desc"`
	Search        string     `json:"search"`
	IsActive      *bool      `json:"is_active"`
	CreatedAfter  *time.Time `json:"created_after"`
	CreatedBefore *time.Time `json:"created_before"`
}

// Create registers a credentials user and signs them in.
func (h *User) Create(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(w, r, h.validate, &req); err != nil {
		handleError(w, err)
		return
	}

	user, session, err := h.userService.Signup(r.Context(), model.SignupParams{
		Email:     req.Email,
		Password:  req.PlaintextPassword,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		h.logger.Info("User handler: signup failed",
			"error", err.Error())
		handleError(w, err)
		return
	}

	h.cookies.SetSession(w, session)
	writeJSON(w, http.StatusCreated, newUserResponse(user))
}

// List returns users matching the query filters.
func (h *User) List(w http.ResponseWriter, r *http.Request) {
	q, err := h.parseListQuery(r)
	if err != nil {
		handleError(w, err)
		return
	}

	users, err := h.userService.List(r.Context(), model.UserFilter{
		Skip:          q.Skip,
		Limit:         q.Limit,
		Search:        q.Search,
		IsActive:      q.IsActive,
		CreatedAfter:  q.CreatedAfter,
		CreatedBefore: q.CreatedBefore,
		SortBy:        q.SortBy,
		SortOrder:     q.SortOrder,
	})
	if err != nil {
		h.logger.Error("User handler: list failed",
			"error", err.Error())
		handleError(w, err)
		return
	}

	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, newUserResponse(u))
	}
	writeJSON(w, http.StatusOK, out)
}

// Get returns one user.
func (h *User) Get(w http.ResponseWriter, r *http.Request) {
	id, err := userID(r)
	if err != nil {
		handleError(w, err)
		return
	}
	includeInactive, err := queryBool(r, "include_inactive", false)
	if err != nil {
		handleError(w, err)
		return
	}

	user, err := h.userService.Get(r.Context(), id, includeInactive)
	if err != nil {
		handleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, newUserResponse(user))
}

// Update applies a partial profile change to the caller's own account.
func (h *User) Update(w http.ResponseWriter, r *http.Request) {
	id, err := h.ownUserID(r)
	if err != nil {
		handleError(w, err)
		return
	}
	force, err := queryBool(r, "force_update", false)
	if err != nil {
		handleError(w, err)
		return
	}

	var req updateUserRequest
	if err := decodeJSON(w, r, h.validate, &req); err != nil {
		handleError(w, err)
		return
	}

	user, err := h.userService.Update(r.Context(), id, model.UserUpdate{
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Email:           req.Email,
		IsActive:        req.IsActive,
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
	}, force)
	if err != nil {
		h.logger.Info("User handler: update failed",
			"user_id", id,
			"error", err.Error())
		handleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, newUserResponse(user))
}

// Delete deactivates or removes the caller's own account and ends the session.
func (h *User) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := h.ownUserID(r)
	if err != nil {
		handleError(w, err)
		return
	}
	soft, err := queryBool(r, "soft_delete", true)
	if err != nil {
		handleError(w, err)
		return
	}
	force, err := queryBool(r, "force_delete", false)
	if err != nil {
		handleError(w, err)
		return
	}

	if err := h.userService.Delete(r.Context(), id, soft, force); err != nil {
		h.logger.Info("User handler: delete failed",
			"user_id", id,
			"error", err.Error())
		handleError(w, err)
		return
	}

	h.cookies.Clear(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *User) parseListQuery(r *http.Request) (listUsersQuery, error) {
	q := listUsersQuery{
		Search:    r.URL.Query().Get("search"),
		SortBy:    r.URL.Query().Get("sort_by"),
		SortOrder: r.URL.Query().Get("sort_order"),
	}
	if q.SortBy == "" {
		q.SortBy = "created_at"
	}
	if q.SortOrder == "" {
		q.SortOrder = "desc"
	}

	var err error
	if q.Skip, err = queryInt(r, "skip", 0); err != nil {
		return q, err
	}
	if q.Limit, err = queryInt(r, "limit", 100); err != nil {
		return q, err
	}
	if raw := r.URL.Query().Get("is_active"); raw != "" {
		v, err := queryBool(r, "is_active", false)
		if err != nil {
			return q, err
		}
		q.IsActive = &v
	}
	if q.CreatedAfter, err = queryTime(r, "created_after"); err != nil {
		return q, err
	}
	if q.CreatedBefore, err = queryTime(r, "created_before"); err != nil {
		return q, err
	}

	return q, validateStruct(h.validate, q)
}

// ownUserID returns the path user id after checking it is the caller.
func (h *User) ownUserID(r *http.Request) (uuid.UUID, error) {
	id, err := userID(r)
	if err != nil {
		return uuid.Nil, err
	}

	identity, ok := h.contextManager.GetIdentityFromContext(r.Context())
	if !ok {
		return uuid.Nil, model.ErrUnauthenticated
	}
	if identity.UserID != id {
		return uuid.Nil, model.ErrForbidden
	}

	return id, nil
}

func userID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: user id must be a uuid", errInvalidRequest)
	}
	return id, nil
}

func queryTime(r *http.Request, name string) (*time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be an RFC 3339 timestamp", errInvalidRequest, name)
	}
	return &t, nil
}
