package auth

import (
	"crypto/rsa"
	"net/http"
	"strings"

	"github.com/go-chi/jwtauth/v5"
	"github.com/vculp/identity-server/internal/domain"
	httperrors "github.com/vculp/identity-server/internal/interfaces/http/errors"
	"go.uber.org/zap"
)

// AuthMiddleware authenticates access tokens issued by this server. The
// signature and expiry are checked by jwtauth; the issuer and subject here.
type AuthMiddleware struct {
	tokenAuth *jwtauth.JWTAuth
	issuer    string
	logger    *zap.Logger
}

func NewAuthMiddleware(algorithm string, verifyKey *rsa.PublicKey, issuer string, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		tokenAuth: jwtauth.New(algorithm, nil, verifyKey),
		issuer:    issuer,
		logger:    logger,
	}
}

// Verifier extracts and verifies the bearer token of the request
func (m *AuthMiddleware) Verifier(next http.Handler) http.Handler {
	return jwtauth.Verify(m.tokenAuth, jwtauth.TokenFromHeader)(next)
}

// Authenticator rejects requests without a valid token and stores the
// subject and scopes of accepted tokens in the request context.
func (m *AuthMiddleware) Authenticator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, claims, err := jwtauth.FromContext(r.Context())
		if err != nil || token == nil {
			m.unauthorized(w, "Invalid token")
			return
		}

		if iss, _ := claims["iss"].(string); iss != m.issuer {
			m.logger.Info("token from another issuer", zap.String("iss", iss))
			m.unauthorized(w, "Invalid token")
			return
		}

		sub, _ := claims["sub"].(string)
		userID, err := domain.ParseULID(sub)
		if err != nil {
			m.unauthorized(w, "Token does not identify a user")
			return
		}

		ctx := domain.WithSubject(r.Context(), userID)
		ctx = domain.WithScopes(ctx, tokenScopes(claims))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *AuthMiddleware) unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
	httperrors.RespondWithError(w, httperrors.ErrCodeAuthentication, message, nil, http.StatusUnauthorized)
}

// tokenScopes reads the scopes of an access token, carried either as a list
// in "scp" or as a space separated "scope" string.
func tokenScopes(claims map[string]interface{}) []string {
	var scopes []string
	switch v := claims["scp"].(type) {
	case []interface{}:
		for _, s := range v {
			if str, ok := s.(string); ok {
				scopes = append(scopes, str)
			}
		}
	case []string:
		scopes = append(scopes, v...)
	}
	if s, ok := claims["scope"].(string); ok {
		scopes = append(scopes, strings.Fields(s)...)
	}
	return scopes
}
