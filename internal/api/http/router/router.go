package router

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/dtroode/composite-gateway/internal/api/http/cookie"
	"github.com/dtroode/composite-gateway/internal/api/http/handler"
	"github.com/dtroode/composite-gateway/internal/api/http/middleware"
	"github.com/dtroode/composite-gateway/internal/logger"
	"github.com/dtroode/composite-gateway/internal/model"
)

// TokenService resolves, refreshes and revokes sessions.
type TokenService interface {
	middleware.TokenResolver
	handler.TokenService
}

// GatewayService serves composite views and connection ownership checks.
type GatewayService interface {
	handler.GatewayService
	handler.ConnectionValidator
}

// Metrics records requests and exposes the registry.
type Metrics interface {
	middleware.RequestRecorder
	Handler() http.Handler
}

// Options holds transport settings.
type Options struct {
	Production     bool
	AllowedOrigins []string
	ServiceName    string
	Version        string
}

// Router wires handlers and middleware into a chi mux.
type Router struct {
	authService    handler.AuthService
	tokenService   TokenService
	userService    handler.UserService
	gatewayService GatewayService
	backends       map[string]handler.Forwarder
	contextManager model.ContextManager
	metrics        Metrics
	opts           Options
	logger         *logger.Logger
}

// New creates new Router instance.
func New(
	authService handler.AuthService,
	tokenService TokenService,
	userService handler.UserService,
	gatewayService GatewayService,
	backends map[string]handler.Forwarder,
	contextManager model.ContextManager,
	metrics Metrics,
	opts Options,
	logger *logger.Logger,
) *Router {
	return &Router{
		authService:    authService,
		tokenService:   tokenService,
		userService:    userService,
		gatewayService: gatewayService,
		backends:       backends,
		contextManager: contextManager,
		metrics:        metrics,
		opts:           opts,
		logger:         logger,
	}
}

// Register builds the HTTP handler with all routes.
func (r *Router) Register() (http.Handler, error) {
	cookies := cookie.NewPolicy(r.opts.Production)
	validate := handler.NewValidator()

	logging := middleware.NewLogging(r.logger)
	metrics := middleware.NewMetrics(r.metrics)
	authenticate := middleware.NewAuthenticate(r.tokenService, r.contextManager, cookies, r.logger)

	mux := chi.NewRouter()
	mux.Use(chimw.RequestID)
	mux.Use(chimw.RealIP)
	mux.Use(logging.Handle)
	mux.Use(metrics.Handle)
	mux.Use(chimw.Recoverer)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins:   r.opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "If-None-Match", "X-Request-ID"},
		ExposedHeaders:   []string{"ETag", "Location", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	authHandler := handler.NewAuth(r.authService, r.tokenService, r.contextManager, cookies, validate, r.logger)
	userHandler := handler.NewUser(r.userService, r.contextManager, cookies, validate, r.logger)
	gatewayHandler := handler.NewGateway(r.gatewayService, r.contextManager, r.opts.ServiceName, r.opts.Version, r.logger)
	proxyHandler := handler.NewProxy(r.backends, r.gatewayService, r.logger)

	mux.Get("/", gatewayHandler.Root)
	mux.Get("/health", gatewayHandler.Health)
	mux.Method(http.MethodGet, "/metrics", r.metrics.Handler())

	mux.Route("/auth", func(ar chi.Router) {
		ar.Post("/login/google", authHandler.LoginGoogle)
		ar.Post("/login/credentials", authHandler.LoginCredentials)
		ar.Post("/refresh", authHandler.Refresh)
		ar.Group(func(pr chi.Router) {
			pr.Use(authenticate.Handle)
			pr.Get("/me", authHandler.Me)
			pr.Post("/logout", authHandler.Logout)
		})
	})
	mux.Get("/oauth/callback/google/login", authHandler.GoogleCallback)
	mux.Get("/oauth/callback/google/gmail", authHandler.GmailCallback)

	mux.Post("/users", userHandler.Create)
	mux.Group(func(pr chi.Router) {
		pr.Use(authenticate.Handle)
		pr.Post("/external/gmail", authHandler.LinkGmail)
		pr.Get("/api/dashboard", gatewayHandler.Dashboard)
		pr.Get("/users", userHandler.List)
		pr.Get("/users/{userID}", userHandler.Get)
		pr.Patch("/users/{userID}", userHandler.Update)
		pr.Delete("/users/{userID}", userHandler.Delete)
	})

	for _, route := range handler.Routes {
		h, err := proxyHandler.Handler(route)
		if err != nil {
			return nil, fmt.Errorf("failed to register passthrough route: %w", err)
		}
		mux.Method(route.Method, route.Pattern, h)
	}

	return mux, nil
}
