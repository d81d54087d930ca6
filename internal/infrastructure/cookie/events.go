package cookie

import (
	"net/http"

	"github.com/vculp/identity-server/internal/domain"
)

// Events are invoked by the Scheme at two points of the cookie lifecycle:
// before a ticket is written and after an incoming ticket is decoded.
type Events interface {
	SigningIn(ctx *SigningInContext) error
	ValidatePrincipal(ctx *ValidatePrincipalContext) error
}

// SigningInContext exposes the ticket about to be persisted.
type SigningInContext struct {
	Request *http.Request
	Ticket  *domain.Ticket
}

// Properties returns the ticket's properties bag, creating it when empty
func (c *SigningInContext) Properties() map[string]string {
	if c.Ticket.Properties == nil {
		c.Ticket.Properties = make(map[string]string)
	}
	return c.Ticket.Properties
}

// ValidatePrincipalContext exposes a decoded ticket on an incoming request.
type ValidatePrincipalContext struct {
	Request *http.Request
	Ticket  *domain.Ticket

	rejected bool
}

// Properties returns the ticket's properties bag; it may be nil
func (c *ValidatePrincipalContext) Properties() map[string]string {
	return c.Ticket.Properties
}

// Principal returns the principal under validation
func (c *ValidatePrincipalContext) Principal() *domain.Principal {
	return c.Ticket.Principal
}

// RejectPrincipal clears the principal so the request is treated as
// unauthenticated.
func (c *ValidatePrincipalContext) RejectPrincipal() {
	c.Ticket.Principal = nil
	c.rejected = true
}

// Rejected reports whether RejectPrincipal was called
func (c *ValidatePrincipalContext) Rejected() bool {
	return c.rejected
}

// DefaultEvents is the pass-through implementation.
type DefaultEvents struct{}

func (DefaultEvents) SigningIn(*SigningInContext) error { return nil }

func (DefaultEvents) ValidatePrincipal(*ValidatePrincipalContext) error { return nil }
