package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	httpctx "github.com/dtroode/composite-gateway/internal/api/http/context"
	"github.com/dtroode/composite-gateway/internal/api/http/handler"
	"github.com/dtroode/composite-gateway/internal/api/http/router"
	httpServer "github.com/dtroode/composite-gateway/internal/api/http/server"
	"github.com/dtroode/composite-gateway/internal/backend"
	"github.com/dtroode/composite-gateway/internal/cipher"
	"github.com/dtroode/composite-gateway/internal/config"
	"github.com/dtroode/composite-gateway/internal/logger"
	"github.com/dtroode/composite-gateway/internal/metrics"
	"github.com/dtroode/composite-gateway/internal/model"
	"github.com/dtroode/composite-gateway/internal/oauth"
	"github.com/dtroode/composite-gateway/internal/password"
	"github.com/dtroode/composite-gateway/internal/redirect"
	"github.com/dtroode/composite-gateway/internal/repository/postgres"
	redisrepo "github.com/dtroode/composite-gateway/internal/repository/redis"
	"github.com/dtroode/composite-gateway/internal/server"
	"github.com/dtroode/composite-gateway/internal/service"
	"github.com/dtroode/composite-gateway/internal/token"
)

var (
	buildVersion = "N/A" // set by ldflags
	buildDate    = "N/A" // set by ldflags
	buildCommit  = "N/A" // set by ldflags
)

const (
	bcryptCost       = 12
	redisStatePrefix = "oauth_state:"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, os.Interrupt)
	defer stop()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	logger := logger.NewForEnvironment(cfg.LogLevel, cfg.IsProduction())

	db, err := postgres.NewConection(ctx, cfg.Database.DSN)
	if err != nil {
		logger.Fatal("failed to initialize storage", "error", err)
	}
	defer db.Close()

	userRepo := postgres.NewUserRepository(db)

	tokenManager, err := token.NewJWT(cfg.JWT.Secret, cfg.JWT.Algorithm, cfg.JWT.AccessTTL(), cfg.JWT.RefreshTTL())
	if err != nil {
		logger.Fatal("failed to create token manager", "error", err)
	}
	hasher := password.NewBcrypt(bcryptCost)

	tokenCipher, err := newTokenCipher(cfg, logger)
	if err != nil {
		logger.Fatal("failed to create token cipher", "error", err)
	}

	googleClient, err := oauth.NewGoogle(ctx, oauth.Config{
		ClientID:     cfg.Google.ClientID,
		ClientSecret: cfg.Google.ClientSecret,
		AuthURL:      cfg.Google.AuthURI,
		TokenURL:     cfg.Google.TokenURI,
		JWKSURL:      cfg.Google.JWKSURI,
		Issuers:      cfg.Google.Issuers,
		RedirectURIs: cfg.Google.RedirectURIs,
		LoginScopes:  cfg.Google.LoginScopes,
		GmailScopes:  cfg.Google.GmailScopes,
	})
	if err != nil {
		logger.Fatal("failed to create google client", "error", err)
	}

	m := metrics.New()

	var (
		stateStore model.OAuthStateStore
		sweeper    *service.StateSweeper
	)
	switch cfg.OAuthState.Store {
	case config.StateStoreRedis:
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Fatal("failed to connect to redis", "error", err)
		}
		stateStore = redisrepo.NewOAuthStateRepository(redisClient, redisStatePrefix)
	default:
		stateRepo := postgres.NewOAuthStateRepository(db)
		stateStore = stateRepo
		sweeper = service.NewStateSweeper(stateRepo, cfg.OAuthState.SweepInterval(), m, logger)
	}

	timeout := cfg.Backend.RequestTimeout()
	integrations := backend.NewClient(handler.BackendIntegrations, cfg.Backend.IntegrationsURL, timeout, logger,
		backend.WithRecorder(m), backend.WithCollectionPaths("/connections", "/messages", "/syncs"))
	actions := backend.NewClient(handler.BackendActions, cfg.Backend.ActionsURL, timeout, logger,
		backend.WithRecorder(m))
	classification := backend.NewClient(handler.BackendClassification, cfg.Backend.ClassificationURL, timeout, logger,
		backend.WithRecorder(m))

	gatewayService := service.NewGateway(service.Backends{
		Integrations:   integrations,
		Actions:        actions,
		Classification: classification,
	}, cfg.Backend.AggregateTimeout(), logger)
	tokenService := service.NewTokenService(tokenManager, userRepo, userRepo, logger)
	authService := service.NewAuth(
		userRepo,
		stateStore,
		googleClient,
		redirect.NewSanitizer(cfg.Redirect.AllowedOrigins, cfg.Redirect.DefaultFrontendURL),
		tokenCipher,
		gatewayService,
		hasher,
		tokenService,
		logger,
	)
	userService := service.NewUser(userRepo, hasher, tokenService, logger)

	r := router.New(
		authService,
		tokenService,
		userService,
		gatewayService,
		map[string]handler.Forwarder{
			handler.BackendIntegrations:   integrations,
			handler.BackendActions:        actions,
			handler.BackendClassification: classification,
		},
		httpctx.NewManager(),
		m,
		router.Options{
			Production:     cfg.IsProduction(),
			AllowedOrigins: cfg.CORS.AllowedOrigins,
			ServiceName:    cfg.ServiceName,
			Version:        cfg.ServiceVersion,
		},
		logger,
	)
	h, err := r.Register()
	if err != nil {
		logger.Fatal("failed to register routes", "error", err)
	}
	srv := httpServer.NewHTTPServer(h, fmt.Sprintf(":%s", cfg.HTTP.Port))

	var sl model.SecurityLayer
	if cfg.HTTP.EnableHTTPS {
		sl = server.NewTLSListener(cfg.HTTP.CertFileName, cfg.HTTP.PrivateKeyFileName)
	} else {
		sl = server.NewPlainListener()
	}

	var wg sync.WaitGroup
	if sweeper != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sweeper.Run(ctx)
		}()
	}

	wg.Add(1)
	go func(s model.Server) {
		defer wg.Done()
		logger.Info("Starting server on", "address", s.Address())
		if err := s.Start(sl); err != nil {
			logger.Error("failed to start server", "error", err)
			stop()
		}
	}(srv)

	logAppVersion()

	<-ctx.Done()
	logger.Info("received interruption signal, shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Error("error during server shutdown", "error", err, "address", srv.Address())
	}

	wg.Wait()
	logger.Info("shutdown complete")
}

// newTokenCipher uses the configured key, or a throwaway key outside production.
// Tokens sealed with a throwaway key cannot be read after a restart.
func newTokenCipher(cfg *config.Config, logger *logger.Logger) (*cipher.TokenCipher, error) {
	if cfg.TokenCipherKey != "" {
		return cipher.NewFromBase64(cfg.TokenCipherKey)
	}
	if cfg.IsProduction() {
		return nil, fmt.Errorf("token cipher key must be set in production")
	}

	logger.Warn("TOKEN_CIPHER_KEY is not set, using a random key")
	return cipher.Generate()
}

func logAppVersion() {
	tmpl := `
Build version: %s
Build date: %s
Build commit: %s
`

	fmt.Printf(tmpl, buildVersion, buildDate, buildCommit)
}
