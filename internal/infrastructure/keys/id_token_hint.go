package keys

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidIDTokenHint is returned when an id_token_hint cannot be trusted
var ErrInvalidIDTokenHint = errors.New("invalid id_token_hint")

// IDTokenHint holds the parts of an id_token_hint used at logout
type IDTokenHint struct {
	Subject  string
	Audience []string
}

// ParseIDTokenHint verifies the signature and issuer of an ID token issued
// by this server. Expired tokens are accepted.
func (k *SigningKey) ParseIDTokenHint(token, issuer string) (*IDTokenHint, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(t *jwt.Token) (interface{}, error) {
			if kid, ok := t.Header["kid"].(string); ok && kid != k.KeyID {
				return nil, fmt.Errorf("unknown key id %q", kid)
			}
			return k.Public(), nil
		},
		jwt.WithValidMethods([]string{Algorithm}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidIDTokenHint, err)
	}

	if claims.Issuer != issuer {
		return nil, fmt.Errorf("%w: issuer %q", ErrInvalidIDTokenHint, claims.Issuer)
	}

	return &IDTokenHint{Subject: claims.Subject, Audience: claims.Audience}, nil
}
