package registry

import (
	"slices"

	"github.com/ory/fosite"
)

// Well known client ids.
const (
	NativeClientID    = "c16a7279-738c-458f-8e77-25e42eb965ff"
	SwaggerUIClientID = "vculp-swagger-ui"
)

// Scope names.
const (
	ScopeOpenID        = "openid"
	ScopeProfile       = "profile"
	ScopeRead          = "read"
	ScopeWrite         = "write"
	ScopeOfflineAccess = "offline_access"
)

// IdentityResource is a named group of identity claims
type IdentityResource struct {
	Name       string
	UserClaims []string
}

// APIScope is a scope a client can request for the API
type APIScope struct {
	Name        string
	DisplayName string
}

// APIResource is a protected API and the scopes and claims it uses
type APIResource struct {
	Name        string
	Description string
	Scopes      []string
	UserClaims  []string
}

// Client is a registered OAuth client
type Client struct {
	ID                          string
	Name                        string
	Secret                      []byte
	Public                      bool
	GrantTypes                  []string
	ResponseTypes               []string
	RedirectURIs                []string
	PostLogoutRedirectURIs      []string
	AllowedScopes               []string
	RequirePKCE                 bool
	RequireConsent              bool
	AllowAccessTokensViaBrowser bool
	AllowOfflineAccess          bool
}

// Registry is the fixed set of clients, scopes and resources known to the
// server. It is built once and never mutated.
type Registry struct {
	identityResources []IdentityResource
	apiResources      []APIResource
	apiScopes         []APIScope
	clients           map[string]Client
	clientOrder       []string
}

// New builds a registry from the given definitions
func New(identity []IdentityResource, apis []APIResource, scopes []APIScope, clients []Client) *Registry {
	r := &Registry{
		identityResources: slices.Clone(identity),
		apiResources:      slices.Clone(apis),
		apiScopes:         slices.Clone(scopes),
		clients:           make(map[string]Client, len(clients)),
	}
	for _, c := range clients {
		r.clients[c.ID] = c
		r.clientOrder = append(r.clientOrder, c.ID)
	}
	return r
}

// Default returns the server's built-in registry. nativeClientID overrides
// the id of the native app client when it is not empty.
func Default(nativeClientID string) *Registry {
	if nativeClientID == "" {
		nativeClientID = NativeClientID
	}

	return New(
		[]IdentityResource{
			{Name: ScopeOpenID, UserClaims: []string{"sub"}},
			{Name: ScopeProfile, UserClaims: []string{"name", "family_name", "given_name", "preferred_username", "updated_at"}},
		},
		[]APIResource{
			{
				Name:        "Vculp.Api",
				Description: "Vculp",
				Scopes:      []string{ScopeRead, ScopeWrite},
				UserClaims:  []string{"name", "admin_id"},
			},
		},
		[]APIScope{
			{Name: ScopeRead, DisplayName: "Read"},
			{Name: ScopeWrite, DisplayName: "Write"},
		},
		[]Client{
			{
				ID:                 nativeClientID,
				Name:               "Vculp",
				Public:             true,
				GrantTypes:         []string{"authorization_code", "refresh_token"},
				ResponseTypes:      []string{"code"},
				RedirectURIs:       []string{"vculp://auth"},
				AllowedScopes:      []string{ScopeOpenID, ScopeProfile, ScopeRead, ScopeWrite, ScopeOfflineAccess},
				RequirePKCE:        true,
				RequireConsent:     false,
				AllowOfflineAccess: true,
			},
			{
				ID:            SwaggerUIClientID,
				Name:          "Swagger UI",
				Public:        true,
				GrantTypes:    []string{"implicit"},
				ResponseTypes: []string{"token"},
				RedirectURIs: []string{
					"http://localhost:5000/swagger/o2c.html",
					"http://localhost:5000/swagger/oauth2-redirect.html",
				},
				PostLogoutRedirectURIs:      []string{"http://localhost:5000"},
				AllowedScopes:               []string{ScopeRead, ScopeWrite},
				RequireConsent:              false,
				AllowAccessTokensViaBrowser: true,
			},
		},
	)
}

// Client returns the client with the given id
func (r *Registry) Client(id string) (Client, bool) {
	c, ok := r.clients[id]
	return c, ok
}

// Clients returns all clients in registration order
func (r *Registry) Clients() []Client {
	out := make([]Client, 0, len(r.clientOrder))
	for _, id := range r.clientOrder {
		out = append(out, r.clients[id])
	}
	return out
}

// IdentityResources returns the identity resources
func (r *Registry) IdentityResources() []IdentityResource {
	return slices.Clone(r.identityResources)
}

// APIResources returns the API resources
func (r *Registry) APIResources() []APIResource {
	return slices.Clone(r.apiResources)
}

// APIScopes returns the API scopes
func (r *Registry) APIScopes() []APIScope {
	return slices.Clone(r.apiScopes)
}

// ScopesSupported lists every scope name, identity scopes first
func (r *Registry) ScopesSupported() []string {
	var scopes []string
	for _, ir := range r.identityResources {
		scopes = append(scopes, ir.Name)
	}
	for _, s := range r.apiScopes {
		scopes = append(scopes, s.Name)
	}
	return append(scopes, ScopeOfflineAccess)
}

// ClaimsSupported lists every user claim named by a resource
func (r *Registry) ClaimsSupported() []string {
	var claims []string
	add := func(names []string) {
		for _, n := range names {
			if !slices.Contains(claims, n) {
				claims = append(claims, n)
			}
		}
	}
	for _, ir := range r.identityResources {
		add(ir.UserClaims)
	}
	for _, api := range r.apiResources {
		add(api.UserClaims)
	}
	return claims
}

// AudienceFor returns the API resources whose scopes appear in scopes
func (r *Registry) AudienceFor(scopes []string) []string {
	var audience []string
	for _, api := range r.apiResources {
		for _, s := range api.Scopes {
			if slices.Contains(scopes, s) {
				audience = append(audience, api.Name)
				break
			}
		}
	}
	return audience
}

// IdentityClaimsFor returns the user claims released by the identity
// resources named in scopes. They may appear in ID tokens.
func (r *Registry) IdentityClaimsFor(scopes []string) []string {
	var claims []string
	for _, ir := range r.identityResources {
		if slices.Contains(scopes, ir.Name) {
			claims = appendMissing(claims, ir.UserClaims)
		}
	}
	return claims
}

// APIClaimsFor returns the user claims of the API resources reachable through
// scopes. They belong in access tokens only.
func (r *Registry) APIClaimsFor(scopes []string) []string {
	var claims []string
	for _, api := range r.apiResources {
		if slices.ContainsFunc(api.Scopes, func(s string) bool { return slices.Contains(scopes, s) }) {
			claims = appendMissing(claims, api.UserClaims)
		}
	}
	return claims
}

func appendMissing(dst, src []string) []string {
	for _, c := range src {
		if !slices.Contains(dst, c) {
			dst = append(dst, c)
		}
	}
	return dst
}

// PostLogoutRedirectAllowed reports whether uri is registered as a post
// logout redirect for the client.
func (r *Registry) PostLogoutRedirectAllowed(clientID, uri string) bool {
	c, ok := r.clients[clientID]
	if !ok || uri == "" {
		return false
	}
	return slices.Contains(c.PostLogoutRedirectURIs, uri)
}

// FositeClients converts the registry into clients for the fosite store
func (r *Registry) FositeClients() map[string]fosite.Client {
	out := make(map[string]fosite.Client, len(r.clients))
	for _, c := range r.Clients() {
		out[c.ID] = toFositeClient(c, r.AudienceFor(c.AllowedScopes))
	}
	return out
}

func toFositeClient(c Client, audience []string) *fosite.DefaultClient {
	grantTypes := slices.Clone(c.GrantTypes)
	if c.AllowOfflineAccess && !slices.Contains(grantTypes, "refresh_token") {
		grantTypes = append(grantTypes, "refresh_token")
	}

	responseTypes := slices.Clone(c.ResponseTypes)
	if slices.Contains(c.AllowedScopes, ScopeOpenID) {
		for _, rt := range c.ResponseTypes {
			switch rt {
			case "token":
				responseTypes = append(responseTypes, "id_token", "id_token token", "token id_token")
			}
		}
	}

	return &fosite.DefaultClient{
		ID:            c.ID,
		Secret:        c.Secret,
		RedirectURIs:  slices.Clone(c.RedirectURIs),
		GrantTypes:    grantTypes,
		ResponseTypes: responseTypes,
		Scopes:        slices.Clone(c.AllowedScopes),
		Audience:      audience,
		Public:        c.Public,
	}
}
