package registry

import (
	"testing"

	"github.com/ory/fosite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	r := Default("")

	native, ok := r.Client(NativeClientID)
	require.True(t, ok)
	assert.True(t, native.Public)
	assert.True(t, native.RequirePKCE)
	assert.False(t, native.RequireConsent)
	assert.True(t, native.AllowOfflineAccess)
	assert.Equal(t, []string{"vculp://auth"}, native.RedirectURIs)
	assert.ElementsMatch(t, []string{"openid", "profile", "read", "write", "offline_access"}, native.AllowedScopes)

	swagger, ok := r.Client(SwaggerUIClientID)
	require.True(t, ok)
	assert.Equal(t, "Swagger UI", swagger.Name)
	assert.Equal(t, []string{"implicit"}, swagger.GrantTypes)
	assert.True(t, swagger.AllowAccessTokensViaBrowser)
	assert.False(t, swagger.AllowOfflineAccess)

	_, ok = r.Client("unknown")
	assert.False(t, ok)

	assert.Equal(t, []string{"openid", "profile", "read", "write", "offline_access"}, r.ScopesSupported())
	assert.Contains(t, r.ClaimsSupported(), "admin_id")
	assert.Len(t, r.Clients(), 2)
	assert.Equal(t, NativeClientID, r.Clients()[0].ID)
}

func TestDefault_NativeClientOverride(t *testing.T) {
	r := Default("native-dev")

	_, ok := r.Client("native-dev")
	assert.True(t, ok)
	_, ok = r.Client(NativeClientID)
	assert.False(t, ok)
}

func TestRegistry_AccessorsReturnCopies(t *testing.T) {
	r := Default("")

	scopes := r.APIScopes()
	scopes[0].Name = "changed"
	assert.Equal(t, "read", r.APIScopes()[0].Name)

	resources := r.APIResources()
	require.Len(t, resources, 1)
	assert.Equal(t, "Vculp.Api", resources[0].Name)
	assert.Equal(t, "Vculp", resources[0].Description)
	assert.Len(t, r.IdentityResources(), 2)
}

func TestRegistry_AudienceFor(t *testing.T) {
	r := Default("")

	assert.Equal(t, []string{"Vculp.Api"}, r.AudienceFor([]string{"openid", "read"}))
	assert.Empty(t, r.AudienceFor([]string{"openid", "profile"}))
}

func TestRegistry_ClaimsFor(t *testing.T) {
	r := Default("")

	tests := []struct {
		name         string
		scopes       []string
		wantIdentity []string
		wantAPI      []string
	}{
		{
			name:         "openid only",
			scopes:       []string{"openid"},
			wantIdentity: []string{"sub"},
		},
		{
			name:         "profile",
			scopes:       []string{"openid", "profile"},
			wantIdentity: []string{"sub", "name", "family_name", "given_name", "preferred_username", "updated_at"},
		},
		{
			name:         "api scopes",
			scopes:       []string{"openid", "read", "write"},
			wantIdentity: []string{"sub"},
			wantAPI:      []string{"name", "admin_id"},
		},
		{
			name:    "api scope without openid",
			scopes:  []string{"read"},
			wantAPI: []string{"name", "admin_id"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantIdentity, r.IdentityClaimsFor(tt.scopes))
			assert.Equal(t, tt.wantAPI, r.APIClaimsFor(tt.scopes))
		})
	}
}

func TestRegistry_PostLogoutRedirectAllowed(t *testing.T) {
	r := Default("")

	tests := []struct {
		name     string
		clientID string
		uri      string
		want     bool
	}{
		{name: "registered uri", clientID: SwaggerUIClientID, uri: "http://localhost:5000", want: true},
		{name: "unregistered uri", clientID: SwaggerUIClientID, uri: "http://evil.example", want: false},
		{name: "client without post logout uris", clientID: NativeClientID, uri: "vculp://auth", want: false},
		{name: "unknown client", clientID: "nope", uri: "http://localhost:5000", want: false},
		{name: "empty uri", clientID: SwaggerUIClientID, uri: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.PostLogoutRedirectAllowed(tt.clientID, tt.uri))
		})
	}
}

func TestRegistry_FositeClients(t *testing.T) {
	clients := Default("").FositeClients()
	require.Len(t, clients, 2)

	native, ok := clients[NativeClientID].(*fosite.DefaultClient)
	require.True(t, ok)
	assert.True(t, native.IsPublic())
	assert.ElementsMatch(t, []string{"authorization_code", "refresh_token"}, native.GetGrantTypes())
	assert.Equal(t, fosite.Arguments{"code"}, native.GetResponseTypes())
	assert.Equal(t, fosite.Arguments{"Vculp.Api"}, native.GetAudience())

	swagger, ok := clients[SwaggerUIClientID].(*fosite.DefaultClient)
	require.True(t, ok)
	assert.Equal(t, fosite.Arguments{"implicit"}, swagger.GetGrantTypes())
	assert.Equal(t, fosite.Arguments{"token"}, swagger.GetResponseTypes())
	assert.Equal(t, fosite.Arguments{"read", "write"}, swagger.GetScopes())
}
