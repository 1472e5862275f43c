package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/dtroode/composite-gateway/internal/aggregate"
	"github.com/dtroode/composite-gateway/internal/logger"
	"github.com/dtroode/composite-gateway/internal/model"
)

// GatewayService defines composite views over the backends.
type GatewayService interface {
	Dashboard(ctx context.Context, identity model.Identity) (model.Dashboard, error)
	Health(ctx context.Context) aggregate.Report
}

// Gateway handles composite endpoints and the service descriptor.
type Gateway struct {
	gatewayService GatewayService
	contextManager model.ContextManager
	serviceName    string
	version        string
	logger         *logger.Logger
}

// NewGateway creates a new Gateway handler.
func NewGateway(
	gatewayService GatewayService,
	contextManager model.ContextManager,
	serviceName, version string,
	logger *logger.Logger,
) *Gateway {
	return &Gateway{
		gatewayService: gatewayService,
		contextManager: contextManager,
		serviceName:    serviceName,
		version:        version,
		logger:         logger,
	}
}

type healthResponse struct {
	Status         string           `json:"status"`
	Service        string           `json:"service"`
	Version        string           `json:"version"`
	AtomicServices aggregate.Report `json:"atomic_services"`
}

type rootResponse struct {
	Message     string            `json:"message"`
	Description string            `json:"description"`
	Version     string            `json:"version"`
	Endpoints   map[string]string `json:"endpoints"`
}

// Dashboard returns the caller's composite dashboard. Any failed backend call
// fails the whole response.
func (h *Gateway) Dashboard(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.contextManager.GetIdentityFromContext(r.Context())
	if !ok {
		handleError(w, model.ErrUnauthenticated)
		return
	}

	dashboard, err := h.gatewayService.Dashboard(r.Context(), identity)
	if err != nil {
		if errors.Is(err, model.ErrAggregateTimeout) {
			handleError(w, err)
			return
		}
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Detail: "Error fetching dashboard data: " + err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, dashboard)
}

// Health reports the gateway and every backend. It always answers 200.
func (h *Gateway) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:         aggregate.StatusHealthy,
		Service:        h.serviceName,
		Version:        h.version,
		AtomicServices: h.gatewayService.Health(r.Context()),
	})
}

// Root describes the service and its entry points.
func (h *Gateway) Root(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, rootResponse{
		Message:     "Welcome to the Composite Gateway API",
		Description: "This service coordinates and delegates requests to atomic microservices",
		Version:     h.version,
		Endpoints: map[string]string{
			"auth":            "/auth",
			"users":           "/users",
			"connections":     "/connections",
			"messages":        "/messages",
			"syncs":           "/syncs",
			"tasks":           "/tasks",
			"classifications": "/classifications",
			"briefs":          "/briefs",
			"dashboard":       "/api/dashboard",
			"health":          "/health",
			"metrics":         "/metrics",
		},
	})
}
