package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vculp/identity-server/internal/application"
	"github.com/vculp/identity-server/internal/infrastructure/config"
	"github.com/vculp/identity-server/internal/infrastructure/cookie"
	"github.com/vculp/identity-server/internal/infrastructure/database"
	"github.com/vculp/identity-server/internal/infrastructure/keys"
	"github.com/vculp/identity-server/internal/infrastructure/oidc"
	"github.com/vculp/identity-server/internal/infrastructure/registry"
	"github.com/vculp/identity-server/internal/infrastructure/repository"
	httprouter "github.com/vculp/identity-server/internal/interfaces/http"
	"github.com/vculp/identity-server/internal/interfaces/http/middleware/reauth"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Create database connection
	db, err := database.NewPostgres(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	userRepo := repository.NewUserRepository(db, logger)
	userManager := application.NewUserManager(userRepo, logger)

	signingKey, err := keys.Load(cfg.SigningKeyPath, logger)
	if err != nil {
		logger.Fatal("Failed to load signing key", zap.Error(err))
	}

	provider, err := oidc.NewProvider(cfg, signingKey, registry.Default(cfg.NativeClientID), logger)
	if err != nil {
		logger.Fatal("Failed to initialize identity provider", zap.Error(err))
	}

	scheme, err := newSessionScheme(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize session cookie", zap.Error(err))
	}

	router := httprouter.NewRouter(ctx, httprouter.Dependencies{
		Config:   cfg,
		DB:       db,
		SignIn:   userManager,
		Users:    userRepo,
		Provider: provider,
		Key:      signingKey,
		Scheme:   scheme,
		Logger:   logger,
	})

	// Start server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("Starting server", zap.Int("port", cfg.ServerPort), zap.String("issuer", cfg.IssuerURL))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	<-ctx.Done()

	// Graceful shutdown
	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
		return
	}

	logger.Info("Server exited properly")
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsDevelopment() {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// newSessionScheme builds the cookie scheme with the native client guard
// installed as its events.
func newSessionScheme(cfg *config.Config, logger *zap.Logger) (*cookie.Scheme, error) {
	key := cfg.CookieEncryptionKey
	if len(key) == 0 {
		logger.Warn("no cookie encryption key configured, sessions will not survive a restart")
		generated, err := cookie.GenerateKey()
		if err != nil {
			return nil, err
		}
		key = generated
	}

	codec, err := cookie.NewJWECodec(key)
	if err != nil {
		return nil, err
	}

	matcher := reauth.ContainsPath(cfg.AuthorizePath)
	if cfg.AuthorizePathMatch == config.MatchPrefix {
		matcher = reauth.PrefixPath(cfg.AuthorizePath)
	}
	guard := reauth.NewGuard(cfg.NativeClientID, reauth.WithPathMatcher(matcher))

	return cookie.NewScheme(codec, guard, cookie.Options{
		Lifetime: cfg.CookieLifetime,
		Secure:   cfg.CookieSecure,
	}, logger), nil
}
