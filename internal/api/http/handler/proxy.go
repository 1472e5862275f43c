package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dtroode/composite-gateway/internal/backend"
	"github.com/dtroode/composite-gateway/internal/logger"
	"github.com/dtroode/composite-gateway/internal/model"
)

// Backend names used in the route table.
const (
	BackendIntegrations   = "integrations"
	BackendActions        = "actions"
	BackendClassification = "classification"
)

// Forwarder sends one request to a backend.
type Forwarder interface {
	Forward(ctx context.Context, req backend.Request) (*backend.Response, error)
}

// ConnectionValidator checks that a connection belongs to a user.
type ConnectionValidator interface {
	ConnectionBelongsTo(ctx context.Context, connectionID, userID uuid.UUID) (bool, error)
}

// Route maps a gateway endpoint onto a backend endpoint.
type Route struct {
	Method  string
	Pattern string
	Backend string
	// Target is the backend path. {name} segments are filled from the
	// matching chi URL parameters.
	Target string
	Mode   backend.Mode
	// CheckConnection rejects bodies whose connection_id is not owned by
	// their user_id.
	CheckConnection bool
}

// Routes is the passthrough table served by Proxy.
var Routes = []Route{
	{Method: http.MethodGet, Pattern: "/health/integrations", Backend: BackendIntegrations, Target: "/health"},
	{Method: http.MethodGet, Pattern: "/health/integrations/{echo}", Backend: BackendIntegrations, Target: "/health/{echo}"},
	{Method: http.MethodGet, Pattern: "/health/actions", Backend: BackendActions, Target: "/health"},
	{Method: http.MethodGet, Pattern: "/health/actions/{echo}", Backend: BackendActions, Target: "/health/{echo}"},
	{Method: http.MethodGet, Pattern: "/health/classifications", Backend: BackendClassification, Target: "/health"},
	{Method: http.MethodGet, Pattern: "/health/classifications/{echo}", Backend: BackendClassification, Target: "/health/{echo}"},

	{Method: http.MethodGet, Pattern: "/connections", Backend: BackendIntegrations, Target: "/connections"},
	{Method: http.MethodPost, Pattern: "/connections", Backend: BackendIntegrations, Target: "/connections", Mode: backend.ModeCreate},
	{Method: http.MethodGet, Pattern: "/connections/{id}", Backend: BackendIntegrations, Target: "/connections/{id}"},
	{Method: http.MethodPatch, Pattern: "/connections/{id}", Backend: BackendIntegrations, Target: "/connections/{id}"},
	{Method: http.MethodDelete, Pattern: "/connections/{id}", Backend: BackendIntegrations, Target: "/connections/{id}"},
	{Method: http.MethodPost, Pattern: "/connections/{id}/test", Backend: BackendIntegrations, Target: "/connections/{id}/test", Mode: backend.ModeAsync},
	{Method: http.MethodPost, Pattern: "/connections/{id}/refresh", Backend: BackendIntegrations, Target: "/connections/{id}/refresh", Mode: backend.ModeAsync},

	{Method: http.MethodGet, Pattern: "/messages", Backend: BackendIntegrations, Target: "/messages"},
	{Method: http.MethodPost, Pattern: "/messages", Backend: BackendIntegrations, Target: "/messages"},
	{Method: http.MethodDelete, Pattern: "/messages", Backend: BackendIntegrations, Target: "/messages"},
	{Method: http.MethodGet, Pattern: "/messages/{id}", Backend: BackendIntegrations, Target: "/messages/{id}"},
	{Method: http.MethodPatch, Pattern: "/messages/{id}", Backend: BackendIntegrations, Target: "/messages/{id}"},
	{Method: http.MethodDelete, Pattern: "/messages/{id}", Backend: BackendIntegrations, Target: "/messages/{id}"},

	{Method: http.MethodGet, Pattern: "/syncs", Backend: BackendIntegrations, Target: "/syncs"},
	{Method: http.MethodPost, Pattern: "/syncs", Backend: BackendIntegrations, Target: "/syncs", Mode: backend.ModeCreate, CheckConnection: true},
	{Method: http.MethodGet, Pattern: "/syncs/{id}", Backend: BackendIntegrations, Target: "/syncs/{id}"},
	{Method: http.MethodGet, Pattern: "/syncs/{id}/status", Backend: BackendIntegrations, Target: "/syncs/{id}/status"},
	{Method: http.MethodPatch, Pattern: "/syncs/{id}", Backend: BackendIntegrations, Target: "/syncs/{id}"},
	{Method: http.MethodDelete, Pattern: "/syncs/{id}", Backend: BackendIntegrations, Target: "/syncs/{id}"},

	{Method: http.MethodGet, Pattern: "/tasks", Backend: BackendActions, Target: "/tasks"},
	{Method: http.MethodPost, Pattern: "/tasks", Backend: BackendActions, Target: "/tasks", Mode: backend.ModeCreate},
	{Method: http.MethodPost, Pattern: "/tasks/batch", Backend: BackendActions, Target: "/tasks/batch", Mode: backend.ModeAsync},
	{Method: http.MethodGet, Pattern: "/tasks/{id}", Backend: BackendActions, Target: "/tasks/{id}"},
	{Method: http.MethodPut, Pattern: "/tasks/{id}", Backend: BackendActions, Target: "/tasks/{id}"},
	{Method: http.MethodDelete, Pattern: "/tasks/{id}", Backend: BackendActions, Target: "/tasks/{id}"},

	{Method: http.MethodGet, Pattern: "/classifications", Backend: BackendClassification, Target: "/classifications"},
	{Method: http.MethodPost, Pattern: "/classifications", Backend: BackendClassification, Target: "/classifications"},
	{Method: http.MethodPost, Pattern: "/classifications/batch", Backend: BackendClassification, Target: "/classifications/batch", Mode: backend.ModeAsync},
	{Method: http.MethodGet, Pattern: "/classifications/{id}", Backend: BackendClassification, Target: "/classifications/{id}"},
	{Method: http.MethodPut, Pattern: "/classifications/{id}", Backend: BackendClassification, Target: "/classifications/{id}"},
	{Method: http.MethodDelete, Pattern: "/classifications/{id}", Backend: BackendClassification, Target: "/classifications/{id}"},

	{Method: http.MethodGet, Pattern: "/briefs", Backend: BackendClassification, Target: "/briefs"},
	{Method: http.MethodPost, Pattern: "/briefs", Backend: BackendClassification, Target: "/briefs"},
	{Method: http.MethodGet, Pattern: "/briefs/{id}", Backend: BackendClassification, Target: "/briefs/{id}"},
	{Method: http.MethodDelete, Pattern: "/briefs/{id}", Backend: BackendClassification, Target: "/briefs/{id}"},
}

// Proxy forwards passthrough routes to their backends.
type Proxy struct {
	backends    map[string]Forwarder
	connections ConnectionValidator
	logger      *logger.Logger
}

// NewProxy creates a new Proxy handler.
func NewProxy(backends map[string]Forwarder, connections ConnectionValidator, logger *logger.Logger) *Proxy {
	return &Proxy{
		backends:    backends,
		connections: connections,
		logger:      logger,
	}
}

// Handler returns the handler serving route.
func (p *Proxy) Handler(route Route) (http.HandlerFunc, error) {
	fwd, ok := p.backends[route.Backend]
	if !ok {
		return nil, fmt.Errorf("no backend %q for %s %s", route.Backend, route.Method, route.Pattern)
	}

	return func(w http.ResponseWriter, r *http.Request) {
		body, err := readBody(w, r)
		if err != nil {
			handleError(w, err)
			return
		}

		if route.CheckConnection {
			if err := p.checkConnection(r.Context(), body); err != nil {
				handleError(w, err)
				return
			}
		}

		resp, err := fwd.Forward(r.Context(), backend.Request{
			Method: r.Method,
			Path:   expandTarget(route.Target, r),
			Query:  r.URL.Query(),
			Body:   body,
			Header: r.Header,
			Mode:   route.Mode,
		})
		if err != nil {
			handleError(w, err)
			return
		}

		if err := resp.Relay(w); err != nil {
			p.logger.Warn("Proxy handler: failed to write response",
				"path", r.URL.Path,
				"error", err.Error())
		}
	}, nil
}

// checkConnection verifies the connection referenced by a sync body. Bodies
// without both ids are forwarded unchecked.
func (p *Proxy) checkConnection(ctx context.Context, body []byte) error {
	var ref struct {
		ConnectionID string `json:"connection_id"`
		UserID       string `json:"user_id"`
	}
	if len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, &ref); err != nil {
		return fmt.Errorf("%w: malformed body: %s", errInvalidRequest, err.Error())
	}
	if ref.ConnectionID == "" || ref.UserID == "" {
		return nil
	}

	connectionID, err := uuid.Parse(ref.ConnectionID)
	if err != nil {
		return fmt.Errorf("%w: connection_id must be a uuid", errInvalidRequest)
	}
	userID, err := uuid.Parse(ref.UserID)
	if err != nil {
		return fmt.Errorf("%w: user_id must be a uuid", errInvalidRequest)
	}

	owned, err := p.connections.ConnectionBelongsTo(ctx, connectionID, userID)
	if err != nil {
		return err
	}
	if !owned {
		return fmt.Errorf("%w: connection %s, user %s", model.ErrConnectionNotOwned, connectionID, userID)
	}

	return nil
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, nil
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, fmt.Errorf("%w: body exceeds %d bytes", errInvalidRequest, tooLarge.Limit)
		}
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}

	return body, nil
}

// expandTarget fills {name} segments of target from the request's URL params.
func expandTarget(target string, r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return target
	}
	for i, key := range rctx.URLParams.Keys {
		if key == "*" {
			continue
		}
		target = strings.ReplaceAll(target, "{"+key+"}", url.PathEscape(rctx.URLParams.Values[i]))
	}
	return target
}
