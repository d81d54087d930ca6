package domain

import "time"

// Ticket property keys written by the server.
const (
	PropertyClientList = "client_list"
)

// Principal is the authenticated identity carried by a session cookie
type Principal struct {
	Subject  string    `json:"sub"`
	Name     string    `json:"name,omitempty"`
	AuthTime time.Time `json:"auth_time"`
	Claims   []Claim   `json:"claims,omitempty"`
}

// NewPrincipal builds the principal for a user that has just signed in
func NewPrincipal(user *User, claims []Claim, authTime time.Time) *Principal {
	p := &Principal{
		Subject:  user.ID.String(),
		Name:     user.UserName,
		AuthTime: authTime.UTC(),
		Claims:   append([]Claim(nil), claims...),
	}
	if name, ok := p.FindClaim(ClaimName); ok && name != "" {
		p.Name = name
	}
	return p
}

// FindClaim returns the first claim value of the given type
func (p *Principal) FindClaim(claimType string) (string, bool) {
	if p == nil {
		return "", false
	}
	for _, c := range p.Claims {
		if c.Type == claimType {
			return c.Value, true
		}
	}
	return "", false
}

// Ticket is the payload of the authentication cookie: the principal plus a
// string properties bag persisted alongside it.
type Ticket struct {
	Principal  *Principal        `json:"principal,omitempty"`
	Properties map[string]string `json:"properties,omitempty"`
	IssuedAt   time.Time         `json:"iat"`
	ExpiresAt  time.Time         `json:"exp"`
}

// IsAuthenticated reports whether the ticket still carries a principal
func (t *Ticket) IsAuthenticated() bool {
	return t != nil && t.Principal != nil
}

// Expired reports whether the ticket is past its expiry at now
func (t *Ticket) Expired(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && !now.Before(t.ExpiresAt)
}
