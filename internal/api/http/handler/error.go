package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dtroode/composite-gateway/internal/model"
)

var errInvalidRequest = errors.New("invalid request")

type errorResponse struct {
	Detail string `json:"detail"`
}

// errorStatuses maps domain errors to HTTP status codes. Order matters only
// for errors that wrap one another.
var errorStatuses = []struct {
	err    error
	status int
}{
	{errInvalidRequest, http.StatusUnprocessableEntity},
	{model.ErrUnauthenticated, http.StatusUnauthorized},
	{model.ErrMissingCredential, http.StatusUnauthorized},
	{model.ErrInvalidSession, http.StatusUnauthorized},
	{model.ErrInvalidCredentials, http.StatusUnauthorized},
	{model.ErrIncorrectPassword, http.StatusUnauthorized},
	{model.ErrAccountDisabled, http.StatusForbidden},
	{model.ErrForbidden, http.StatusForbidden},
	{model.ErrLoginMethodConflict, http.StatusConflict},
	{model.ErrProviderAccountMismatch, http.StatusConflict},
	{model.ErrEmailTaken, http.StatusConflict},
	{model.ErrCredentialsRequired, http.StatusBadRequest},
	{model.ErrAuthorizationDenied, http.StatusBadRequest},
	{model.ErrMissingAuthorizationCode, http.StatusBadRequest},
	{model.ErrMissingIdentityFields, http.StatusBadRequest},
	{model.ErrInvalidOAuthState, http.StatusBadRequest},
	{model.ErrOrphanedOAuthState, http.StatusBadRequest},
	{model.ErrAuthFailed, http.StatusBadRequest},
	{model.ErrInvalidIdentityToken, http.StatusBadRequest},
	{model.ErrRedirectNotAllowed, http.StatusInternalServerError},
	{model.ErrUnknownAuth, http.StatusInternalServerError},
	{model.ErrNotFound, http.StatusNotFound},
	{model.ErrUserInactive, http.StatusNotFound},
	{model.ErrConnectionNotOwned, http.StatusNotFound},
	{model.ErrAggregateTimeout, http.StatusGatewayTimeout},
	{model.ErrGatewayTimeout, http.StatusGatewayTimeout},
	{model.ErrBadGateway, http.StatusBadGateway},
}

func statusFor(err error) (int, bool) {
	for _, e := range errorStatuses {
		if errors.Is(err, e.err) {
			return e.status, true
		}
	}
	return http.StatusInternalServerError, false
}

// handleError writes err as a JSON error body. Backend failures are relayed
// with the backend's own status and body.
func handleError(w http.ResponseWriter, err error) {
	var upstream *model.UpstreamError
	if errors.As(err, &upstream) {
		writeUpstream(w, upstream)
		return
	}

	status, known := statusFor(err)
	detail := err.Error()
	if !known {
		detail = "internal server error"
	}

	writeJSON(w, status, errorResponse{Detail: detail})
}

func writeUpstream(w http.ResponseWriter, upstream *model.UpstreamError) {
	if json.Valid(upstream.Body) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(upstream.StatusCode)
		_, _ = w.Write(upstream.Body)
		return
	}
	writeJSON(w, upstream.StatusCode, errorResponse{Detail: upstream.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
