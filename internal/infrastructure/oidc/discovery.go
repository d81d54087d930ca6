package oidc

import "github.com/vculp/identity-server/internal/infrastructure/keys"

// Discovery is the OpenID Provider metadata document
type Discovery struct {
	Issuer                            string   `json:"issuer"`
	AuthorizationEndpoint             string   `json:"authorization_endpoint"`
	TokenEndpoint                     string   `json:"token_endpoint"`
	UserInfoEndpoint                  string   `json:"userinfo_endpoint"`
	EndSessionEndpoint                string   `json:"end_session_endpoint"`
	RevocationEndpoint                string   `json:"revocation_endpoint"`
	JWKSURI                           string   `json:"jwks_uri"`
	ScopesSupported                   []string `json:"scopes_supported"`
	ClaimsSupported                   []string `json:"claims_supported"`
	ResponseTypesSupported            []string `json:"response_types_supported"`
	ResponseModesSupported            []string `json:"response_modes_supported"`
	GrantTypesSupported               []string `json:"grant_types_supported"`
	SubjectTypesSupported             []string `json:"subject_types_supported"`
	IDTokenSigningAlgValuesSupported  []string `json:"id_token_signing_alg_values_supported"`
	CodeChallengeMethodsSupported     []string `json:"code_challenge_methods_supported"`
	TokenEndpointAuthMethodsSupported []string `json:"token_endpoint_auth_methods_supported"`
}

// Discovery returns the provider metadata
func (p *Provider) Discovery() Discovery {
	return Discovery{
		Issuer:                p.issuer,
		AuthorizationEndpoint: p.issuer + PathAuthorize,
		TokenEndpoint:         p.issuer + PathToken,
		UserInfoEndpoint:      p.issuer + PathUserInfo,
		EndSessionEndpoint:    p.issuer + PathEndSession,
		RevocationEndpoint:    p.issuer + PathRevocation,
		JWKSURI:               p.issuer + PathJWKS,
		ScopesSupported:       p.registry.ScopesSupported(),
		ClaimsSupported:       p.registry.ClaimsSupported(),
		ResponseTypesSupported: []string{
			"code", "token", "id_token", "id_token token",
		},
		ResponseModesSupported:            []string{"query", "fragment"},
		GrantTypesSupported:               []string{"authorization_code", "implicit", "refresh_token"},
		SubjectTypesSupported:             []string{"public"},
		IDTokenSigningAlgValuesSupported:  []string{keys.Algorithm},
		CodeChallengeMethodsSupported:     []string{"S256"},
		TokenEndpointAuthMethodsSupported: []string{"client_secret_basic", "client_secret_post", "none"},
	}
}
