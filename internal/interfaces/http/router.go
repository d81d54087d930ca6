package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/vculp/identity-server/internal/infrastructure/config"
	"github.com/vculp/identity-server/internal/infrastructure/keys"
	"github.com/vculp/identity-server/internal/infrastructure/oidc"
	"github.com/vculp/identity-server/internal/interfaces/http/handlers"
	"github.com/vculp/identity-server/internal/interfaces/http/middleware/auth"
	"github.com/vculp/identity-server/internal/interfaces/http/middleware/ratelimit"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Dependencies are the collaborators the router serves requests with
type Dependencies struct {
	Config   *config.Config
	DB       handlers.Pinger
	SignIn   handlers.SignInManager
	Users    handlers.UserReader
	Provider handlers.IdentityProvider
	Key      *keys.SigningKey
	Scheme   handlers.SessionScheme
	Logger   *zap.Logger
}

type Router struct {
	router *chi.Mux
}

// NewRouter wires the account pages, the protocol endpoints and the health
// probes. ctx bounds background work such as rate limiter cleanup.
func NewRouter(ctx context.Context, deps Dependencies) *Router {
	cfg, logger := deps.Config, deps.Logger

	accountHandler := handlers.NewAccountHandler(deps.SignIn, deps.Scheme, logger)
	connectHandler := handlers.NewConnectHandler(deps.Provider, deps.Scheme, logger)
	discoveryHandler := handlers.NewDiscoveryHandler(deps.Provider, logger)
	userInfoHandler := handlers.NewUserInfoHandler(deps.Users, logger)
	healthHandler := handlers.NewHealthHandler(deps.DB, logger)

	authMiddleware := auth.NewAuthMiddleware(keys.Algorithm, deps.Key.Public(), deps.Provider.Issuer(), logger)
	loginLimiter := ratelimit.NewRateLimiter(ctx, rate.Limit(cfg.LoginRateLimit), cfg.LoginRateBurst, 10*time.Minute)

	router := createRouter(cfg.RequestTimeout)

	// Health check endpoints
	router.Group(func(r chi.Router) {
		r.Get("/health", healthHandler.Health)
		r.Get("/health/ready", healthHandler.Ready)
		r.Get("/health/live", healthHandler.Live)
	})

	// Interactive login
	router.Get("/", accountHandler.HomeHandler)
	router.Route("/account", func(r chi.Router) {
		r.Get("/login", accountHandler.LoginPageHandler)
		r.With(loginLimiter.Middleware).Post("/login", accountHandler.LoginHandler)
		r.Post("/logout", accountHandler.LogoutHandler)
	})

	// Discovery
	router.Get(oidc.PathDiscovery, discoveryHandler.ConfigurationHandler)
	router.Get(oidc.PathJWKS, discoveryHandler.JWKSHandler)

	// Protocol endpoints
	router.Get(oidc.PathAuthorize, connectHandler.AuthorizeHandler)
	router.Post(oidc.PathAuthorize, connectHandler.AuthorizeHandler)
	router.Post(oidc.PathToken, connectHandler.TokenHandler)
	router.Post(oidc.PathRevocation, connectHandler.RevocationHandler)
	router.Get(oidc.PathEndSession, connectHandler.EndSessionHandler)
	router.Post(oidc.PathEndSession, connectHandler.EndSessionHandler)

	router.Group(func(r chi.Router) {
		r.Use(authMiddleware.Verifier, authMiddleware.Authenticator)
		r.Get(oidc.PathUserInfo, userInfoHandler.UserInfo)
		r.Post(oidc.PathUserInfo, userInfoHandler.UserInfo)
	})

	return &Router{router: router}
}

func createRouter(timeout time.Duration) *chi.Mux {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	router := chi.NewRouter()

	// Add middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(timeout))

	return router
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.router.ServeHTTP(w, req)
}
