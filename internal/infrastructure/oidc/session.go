package oidc

import (
	"time"

	"github.com/mohae/deepcopy"
	"github.com/ory/fosite"
	"github.com/ory/fosite/handler/openid"
	fositejwt "github.com/ory/fosite/token/jwt"
	"github.com/vculp/identity-server/internal/domain"
)

// Session carries the identity of a signed-in user through fosite. It
// satisfies openid.Session for ID tokens and oauth2.JWTSessionContainer for
// JWT access tokens.
type Session struct {
	*openid.DefaultSession `json:"id_token"`

	JWTClaims *fositejwt.JWTClaims `json:"jwt_claims,omitempty"`
	JWTHeader *fositejwt.Headers   `json:"jwt_header,omitempty"`
}

// NewEmptySession returns the session template passed to fosite when the
// stored session is restored from a code or refresh token.
func NewEmptySession() *Session {
	return &Session{
		DefaultSession: &openid.DefaultSession{
			Claims:  &fositejwt.IDTokenClaims{},
			Headers: &fositejwt.Headers{},
		},
		JWTClaims: &fositejwt.JWTClaims{},
		JWTHeader: &fositejwt.Headers{},
	}
}

// NewSession builds the session for principal authorizing clientID.
// idTokenClaims and accessTokenClaims name the user claims each token may
// carry, usually Registry.IdentityClaimsFor and Registry.APIClaimsFor of the
// granted scopes.
func NewSession(principal *domain.Principal, clientID string, idTokenClaims, accessTokenClaims []string, now time.Time) *Session {
	s := NewEmptySession()
	s.Subject = principal.Subject
	s.Username = principal.Name
	s.Claims.Subject = principal.Subject
	s.Claims.AuthTime = principal.AuthTime
	s.Claims.RequestedAt = now.UTC()
	s.Claims.Extra = userClaims(principal, idTokenClaims)

	s.JWTClaims.Subject = principal.Subject
	s.JWTClaims.Extra = userClaims(principal, accessTokenClaims)
	s.JWTClaims.Extra["client_id"] = clientID
	return s
}

// userClaims picks the principal's values for the allowed claim types. sub is
// set by the token strategies and skipped here.
func userClaims(principal *domain.Principal, allowed []string) map[string]interface{} {
	extra := map[string]interface{}{}
	for _, claimType := range allowed {
		if claimType == "sub" {
			continue
		}
		if claimType == domain.ClaimName && principal.Name != "" {
			extra[claimType] = principal.Name
			continue
		}
		if v, ok := principal.FindClaim(claimType); ok {
			extra[claimType] = v
		}
	}
	return extra
}

// GetJWTClaims implements oauth2.JWTSessionContainer
func (s *Session) GetJWTClaims() fositejwt.JWTClaimsContainer {
	if s.JWTClaims == nil {
		s.JWTClaims = &fositejwt.JWTClaims{}
	}
	return s.JWTClaims
}

// GetJWTHeader implements oauth2.JWTSessionContainer
func (s *Session) GetJWTHeader() *fositejwt.Headers {
	if s.JWTHeader == nil {
		s.JWTHeader = &fositejwt.Headers{}
	}
	return s.JWTHeader
}

// Clone implements fosite.Session
func (s *Session) Clone() fosite.Session {
	if s == nil {
		return nil
	}
	return deepcopy.Copy(s).(fosite.Session)
}
