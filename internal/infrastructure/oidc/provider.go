package oidc

import (
	"context"
	"crypto/rand"
	"fmt"

	"github.com/go-jose/go-jose/v4"
	"github.com/ory/fosite"
	"github.com/ory/fosite/compose"
	"github.com/ory/fosite/storage"
	fositejwt "github.com/ory/fosite/token/jwt"
	"github.com/vculp/identity-server/internal/infrastructure/config"
	"github.com/vculp/identity-server/internal/infrastructure/keys"
	"github.com/vculp/identity-server/internal/infrastructure/registry"
	"go.uber.org/zap"
)

// Endpoint paths served by the provider.
const (
	PathAuthorize  = "/connect/authorize"
	PathToken      = "/connect/token"
	PathUserInfo   = "/connect/userinfo"
	PathEndSession = "/connect/endsession"
	PathRevocation = "/connect/revocation"
	PathDiscovery  = "/.well-known/openid-configuration"
	PathJWKS       = "/.well-known/openid-configuration/jwks"
)

// Provider is the OAuth2 and OpenID Connect engine. Protocol handling is
// done by the embedded fosite provider.
type Provider struct {
	fosite.OAuth2Provider

	config   *fosite.Config
	issuer   string
	key      *keys.SigningKey
	registry *registry.Registry
	store    *storage.MemoryStore
}

// NewProvider wires fosite with the registry clients and the signing key
func NewProvider(cfg *config.Config, key *keys.SigningKey, reg *registry.Registry, logger *zap.Logger) (*Provider, error) {
	secret := cfg.GlobalSecret
	if len(secret) == 0 {
		logger.Warn("no global secret configured, authorization codes and refresh tokens will not survive a restart")
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("generating global secret: %w", err)
		}
	}

	fositeConfig := &fosite.Config{
		AccessTokenIssuer:              cfg.IssuerURL,
		IDTokenIssuer:                  cfg.IssuerURL,
		TokenURL:                       cfg.IssuerURL + PathToken,
		AccessTokenLifespan:            cfg.AccessTokenLifespan,
		RefreshTokenLifespan:           cfg.RefreshTokenLifespan,
		AuthorizeCodeLifespan:          cfg.AuthorizeCodeLifespan,
		IDTokenLifespan:                cfg.IDTokenLifespan,
		GlobalSecret:                   secret,
		ScopeStrategy:                  fosite.ExactScopeStrategy,
		AudienceMatchingStrategy:       fosite.DefaultAudienceMatchingStrategy,
		EnforcePKCEForPublicClients:    true,
		EnablePKCEPlainChallengeMethod: false,
		SendDebugMessagesToClients:     cfg.IsDevelopment(),
	}

	store := storage.NewMemoryStore()
	for id, c := range reg.FositeClients() {
		store.Clients[id] = c
	}

	keyGetter := func(context.Context) (interface{}, error) {
		return key.FositeJWK(), nil
	}

	strategy := &compose.CommonStrategy{
		CoreStrategy: compose.NewOAuth2JWTStrategy(
			keyGetter,
			compose.NewOAuth2HMACStrategy(fositeConfig),
			fositeConfig,
		),
		OpenIDConnectTokenStrategy: compose.NewOpenIDConnectStrategy(keyGetter, fositeConfig),
		Signer:                     &fositejwt.DefaultSigner{GetPrivateKey: keyGetter},
	}

	provider := compose.Compose(
		fositeConfig,
		store,
		strategy,
		compose.OAuth2AuthorizeExplicitFactory,
		compose.OAuth2AuthorizeImplicitFactory,
		compose.OAuth2RefreshTokenGrantFactory,
		compose.OAuth2PKCEFactory,
		compose.OAuth2TokenRevocationFactory,
		compose.OpenIDConnectExplicitFactory,
		compose.OpenIDConnectImplicitFactory,
		compose.OpenIDConnectRefreshFactory,
	)

	logger.Info("identity provider configured",
		zap.String("issuer", cfg.IssuerURL),
		zap.String("kid", key.KeyID),
		zap.Int("clients", len(store.Clients)))

	return &Provider{
		OAuth2Provider: provider,
		config:         fositeConfig,
		issuer:         cfg.IssuerURL,
		key:            key,
		registry:       reg,
		store:          store,
	}, nil
}

// Issuer returns the issuer identifier
func (p *Provider) Issuer() string {
	return p.issuer
}

// Registry returns the client registry
func (p *Provider) Registry() *registry.Registry {
	return p.registry
}

// JWKS returns the public key set
func (p *Provider) JWKS() jose.JSONWebKeySet {
	return p.key.PublicJWKS()
}

// ParseIDTokenHint verifies an ID token previously issued by this provider
func (p *Provider) ParseIDTokenHint(token string) (*keys.IDTokenHint, error) {
	return p.key.ParseIDTokenHint(token, p.issuer)
}
