package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/dtroode/composite-gateway/internal/api/http/cookie"
	"github.com/dtroode/composite-gateway/internal/logger"
	"github.com/dtroode/composite-gateway/internal/model"
)

const (
	googleLoginCallbackPath = "/oauth/callback/google/login"
	gmailCallbackPath       = "/oauth/callback/google/gmail"
)

// AuthService defines login and account linking operations.
type AuthService interface {
	LoginCredentials(ctx context.Context, email, password string) (model.User, model.Session, error)
	StartGoogleLogin(ctx context.Context, callbackURI, redirectTarget string) (string, error)
	CompleteGoogleLogin(ctx context.Context, cb model.OAuthCallback) (string, model.Session, error)
	StartGmailLink(ctx context.Context, identity model.Identity, callbackURI, redirectTarget string) (model.LinkStart, error)
	CompleteGmailLink(ctx context.Context, cb model.OAuthCallback) (string, error)
}

// TokenService defines session refresh and revoke operations.
type TokenService interface {
	Refresh(ctx context.Context, refreshToken string) (model.Session, error)
	Revoke(ctx context.Context, userID uuid.UUID) error
}

// Auth handles authentication endpoints and OAuth callbacks.
type Auth struct {
	authService    AuthService
	tokenService   TokenService
	contextManager model.ContextManager
	cookies        *cookie.Policy
	validate       *validator.Validate
	logger         *logger.Logger
}

// NewAuth creates a new Auth handler.
func NewAuth(
	authService AuthService,
	tokenService TokenService,
	contextManager model.ContextManager,
	cookies *cookie.Policy,
	validate *validator.Validate,
	logger *logger.Logger,
) *Auth {
	return &Auth{
		authService:    authService,
		tokenService:   tokenService,
		contextManager: contextManager,
		cookies:        cookies,
		validate:       validate,
		logger:         logger,
	}
}

type authURLResponse struct {
	AuthURL string `json:"auth_url"`
}

type credentialsRequest struct {
	Email             string `json:"email" validate:"required,email"`
	PlaintextPassword string `json:"plaintext_password" validate:"required"`
}

// LoginGoogle starts Google sign-in and returns the consent URL.
func (h *Auth) LoginGoogle(w http.ResponseWriter, r *http.Request) {
	authURL, err := h.authService.StartGoogleLogin(r.Context(),
		callbackURI(r, googleLoginCallbackPath), redirectTarget(r))
	if err != nil {
		h.logger.Error("Auth handler: google login start failed",
			"error", err.Error())
		handleError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, authURLResponse{AuthURL: authURL})
}

// GoogleCallback completes Google sign-in, sets session cookies and
// redirects to the frontend.
func (h *Auth) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	target, session, err := h.authService.CompleteGoogleLogin(r.Context(), callbackFrom(r, googleLoginCallbackPath))
	if err != nil {
		h.logger.Warn("Auth handler: google login callback failed",
			"error", err.Error())
		handleError(w, err)
		return
	}

	h.cookies.SetSession(w, session)
	http.Redirect(w, r, target, http.StatusFound)
}

// LoginCredentials logs in with email and password.
func (h *Auth) LoginCredentials(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, h.validate, &req); err != nil {
		handleError(w, err)
		return
	}

	user, session, err := h.authService.LoginCredentials(r.Context(), req.Email, req.PlaintextPassword)
	if err != nil {
		h.logger.Info("Auth handler: credentials login rejected",
			"error", err.Error())
		handleError(w, err)
		return
	}

	h.cookies.SetSession(w, session)
	writeJSON(w, http.StatusOK, newUserResponse(user))
}

// Refresh rotates the session presented in the refresh cookie.
func (h *Auth) Refresh(w http.ResponseWriter, r *http.Request) {
	_, refresh := cookie.Tokens(r)

	session, err := h.tokenService.Refresh(r.Context(), refresh)
	if err != nil {
		if errors.Is(err, model.ErrInvalidSession) || errors.Is(err, model.ErrMissingCredential) {
			h.cookies.Clear(w)
		}
		handleError(w, err)
		return
	}

	h.cookies.SetSession(w, session)
	writeJSON(w, http.StatusOK, map[string]string{"status": "refreshed"})
}

// Me returns the resolved caller.
func (h *Auth) Me(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.contextManager.GetIdentityFromContext(r.Context())
	if !ok {
		handleError(w, model.ErrUnauthenticated)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"user_id": identity.UserID.String()})
}

// Logout revokes the stored session and clears cookies.
func (h *Auth) Logout(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.contextManager.GetIdentityFromContext(r.Context())
	if !ok {
		handleError(w, model.ErrUnauthenticated)
		return
	}

	if err := h.tokenService.Revoke(r.Context(), identity.UserID); err != nil {
		h.logger.Error("Auth handler: logout failed",
			"user_id", identity.UserID,
			"error", err.Error())
		handleError(w, err)
		return
	}

	h.cookies.Clear(w)
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

// LinkGmail starts linking a Gmail account to the caller.
func (h *Auth) LinkGmail(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.contextManager.GetIdentityFromContext(r.Context())
	if !ok {
		handleError(w, model.ErrUnauthenticated)
		return
	}

	start, err := h.authService.StartGmailLink(r.Context(), identity,
		callbackURI(r, gmailCallbackPath), redirectTarget(r))
	if err != nil {
		h.logger.Error("Auth handler: gmail link start failed",
			"user_id", identity.UserID,
			"error", err.Error())
		handleError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, start)
}

// GmailCallback completes account linking and redirects to the frontend.
func (h *Auth) GmailCallback(w http.ResponseWriter, r *http.Request) {
	target, err := h.authService.CompleteGmailLink(r.Context(), callbackFrom(r, gmailCallbackPath))
	if err != nil {
		h.logger.Warn("Auth handler: gmail link callback failed",
			"error", err.Error())
		handleError(w, err)
		return
	}

	http.Redirect(w, r, target, http.StatusFound)
}

// redirectTarget is where the frontend wants to land after the flow: the
// redirect query parameter, else the Origin header.
func redirectTarget(r *http.Request) string {
	if target := r.URL.Query().Get("redirect"); target != "" {
		return target
	}
	return r.Header.Get("Origin")
}

func callbackFrom(r *http.Request, path string) model.OAuthCallback {
	q := r.URL.Query()
	return model.OAuthCallback{
		Code:        q.Get("code"),
		State:       q.Get("state"),
		Error:       q.Get("error"),
		CallbackURI: callbackURI(r, path),
	}
}
