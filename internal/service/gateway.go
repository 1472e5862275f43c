package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/composite-gateway/internal/aggregate"
	"github.com/dtroode/composite-gateway/internal/backend"
	"github.com/dtroode/composite-gateway/internal/logger"
	"github.com/dtroode/composite-gateway/internal/model"
)

var _ model.ConnectionCreator = (*Gateway)(nil)

// Backend is one downstream service.
type Backend interface {
	Name() string
	Get(ctx context.Context, path string, query url.Values) (*backend.Response, error)
	PostJSON(ctx context.Context, path string, body any, mode backend.Mode) (*backend.Response, error)
}

// Backends groups the services behind the gateway.
type Backends struct {
	Integrations   Backend
	Actions        Backend
	Classification Backend
}

// Gateway composes backend calls into composite views.
type Gateway struct {
	backends         Backends
	aggregateTimeout time.Duration
	logger           *logger.Logger
}

func NewGateway(backends Backends, aggregateTimeout time.Duration, logger *logger.Logger) *Gateway {
	return &Gateway{
		backends:         backends,
		aggregateTimeout: aggregateTimeout,
		logger:           logger,
	}
}

// Dashboard fetches the caller's connections, messages and classifications
// concurrently. Any failing call fails the whole view.
func (g *Gateway) Dashboard(ctx context.Context, identity model.Identity) (model.Dashboard, error) {
	query := url.Values{"user_id": {identity.UserID.String()}}

	fetch := func(b Backend, path string) aggregate.Task[json.RawMessage] {
		return func(ctx context.Context) (json.RawMessage, error) {
			resp, err := b.Get(ctx, path, query)
			if err != nil {
				return nil, err
			}
			return rawJSON(resp.Body), nil
		}
	}

	results, err := aggregate.Run(ctx, []aggregate.Task[json.RawMessage]{
		fetch(g.backends.Integrations, "/connections"),
		fetch(g.backends.Integrations, "/messages"),
		fetch(g.backends.Classification, "/classifications"),
	}, g.runOptions()...)
	if err != nil {
		g.logger.Error("Gateway service: error fetching dashboard data",
			"user_id", identity.UserID,
			"error", err.Error())
		return model.Dashboard{}, err
	}

	return model.Dashboard{
		Status:          "success",
		UserID:          identity.UserID,
		Connections:     results[0],
		Messages:        results[1],
		Classifications: results[2],
	}, nil
}

// Health probes every backend. Failures downgrade the report instead of
// failing it.
func (g *Gateway) Health(ctx context.Context) aggregate.Report {
	probe := func(b Backend) aggregate.Check {
		return aggregate.Check{
			Name: b.Name(),
			Run: func(ctx context.Context) (any, error) {
				resp, err := b.Get(ctx, "/health", nil)
				if err != nil {
					return nil, err
				}
				if len(bytes.TrimSpace(resp.Body)) == 0 {
					return nil, nil
				}
				return json.RawMessage(resp.Body), nil
			},
		}
	}

	report := aggregate.RunDegraded(ctx, []aggregate.Check{
		probe(g.backends.Integrations),
		probe(g.backends.Actions),
		probe(g.backends.Classification),
	}, g.runOptions()...)

	if report.OverallStatus != aggregate.StatusHealthy {
		g.logger.Warn("Gateway service: backends not healthy",
			"overall_status", report.OverallStatus)
	}

	return report
}

// ConnectionBelongsTo reports whether the integrations backend holds the
// connection and it is owned by userID.
func (g *Gateway) ConnectionBelongsTo(ctx context.Context, connectionID, userID uuid.UUID) (bool, error) {
	resp, err := g.backends.Integrations.Get(ctx, "/connections/"+connectionID.String(), nil)
	if err != nil {
		var upstream *model.UpstreamError
		if errors.As(err, &upstream) && upstream.StatusCode == http.StatusNotFound {
			return false, nil
		}
		return false, err
	}

	var conn struct {
		UserID string `json:"user_id"`
	}
	if err := resp.JSON(&conn); err != nil {
		return false, err
	}

	return strings.EqualFold(conn.UserID, userID.String()), nil
}

// CreateConnection registers a linked account with the integrations backend.
func (g *Gateway) CreateConnection(ctx context.Context, record model.ConnectionRecord) error {
	if _, err := g.backends.Integrations.PostJSON(ctx, "/connections", record, backend.ModeCreate); err != nil {
		return fmt.Errorf("failed to create connection: %w", err)
	}
	return nil
}

// rawJSON embeds a backend body verbatim. The backend client has already
// rejected malformed JSON; an empty body becomes null.
func rawJSON(body []byte) json.RawMessage {
	if len(bytes.TrimSpace(body)) == 0 {
		return json.RawMessage("null")
	}
	return json.RawMessage(body)
}

func (g *Gateway) runOptions() []aggregate.Option {
	if g.aggregateTimeout <= 0 {
		return nil
	}
	return []aggregate.Option{aggregate.WithTimeout(g.aggregateTimeout)}
}
