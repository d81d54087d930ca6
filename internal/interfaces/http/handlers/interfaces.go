package handlers

import (
	"context"
	"net/http"

	"github.com/go-jose/go-jose/v4"
	"github.com/oklog/ulid/v2"
	"github.com/ory/fosite"
	"github.com/vculp/identity-server/internal/domain"
	"github.com/vculp/identity-server/internal/infrastructure/keys"
	"github.com/vculp/identity-server/internal/infrastructure/oidc"
	"github.com/vculp/identity-server/internal/infrastructure/registry"
)

// SessionScheme issues and reads the session cookie
type SessionScheme interface {
	SignIn(w http.ResponseWriter, r *http.Request, principal *domain.Principal, props map[string]string) error
	Authenticate(r *http.Request) *domain.Ticket
	SignOut(w http.ResponseWriter)
}

// IdentityProvider is the protocol engine behind the /connect endpoints
type IdentityProvider interface {
	fosite.OAuth2Provider
	Issuer() string
	Registry() *registry.Registry
	Discovery() oidc.Discovery
	JWKS() jose.JSONWebKeySet
	ParseIDTokenHint(token string) (*keys.IDTokenHint, error)
}

// SignInManager verifies credentials entered on the login page
type SignInManager interface {
	CheckPassword(ctx context.Context, userName, password string) (*domain.User, []domain.Claim, error)
}

// UserReader loads the profile returned from the userinfo endpoint
type UserReader interface {
	FindByID(ctx context.Context, id ulid.ULID) (*domain.User, error)
	ListClaims(ctx context.Context, userID ulid.ULID) ([]domain.Claim, error)
}

// Pinger reports whether the database is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}
