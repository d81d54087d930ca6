// Package reauth keeps the native app client from reusing a browser session
// that was established during an earlier authorize request. A session signed
// in at the authorize endpoint is flagged, and a flagged session is not
// accepted when the native client comes back to the authorize endpoint, so
// the user has to sign in again.
package reauth

import (
	"net/http"
	"slices"
	"strings"

	"github.com/vculp/identity-server/internal/infrastructure/cookie"
)

const (
	// HasAuthenticatedKey is the properties bag key of the flag
	HasAuthenticatedKey = "has-authenticated"
	hasAuthenticatedSet = "true"

	// DefaultAuthorizePath is the authorize endpoint segment
	DefaultAuthorizePath = "connect/authorize"

	clientIDParam = "client_id"
)

// PathMatcher decides whether a request path targets the authorize endpoint
type PathMatcher func(path string) bool

// ContainsPath matches any path containing segment.
func ContainsPath(segment string) PathMatcher {
	return func(path string) bool {
		return segment != "" && strings.Contains(path, segment)
	}
}

// PrefixPath matches "/"+segment exactly or followed by a further path
// element.
func PrefixPath(segment string) PathMatcher {
	route := "/" + strings.Trim(segment, "/")
	return func(path string) bool {
		return path == route || strings.HasPrefix(path, route+"/")
	}
}

// Guard implements cookie.Events. It wraps another Events value and always
// delegates to it unless a principal is rejected.
type Guard struct {
	next        cookie.Events
	clientID    string
	isAuthorize PathMatcher
}

// Option configures a Guard
type Option func(*Guard)

// WithPathMatcher replaces the authorize path matcher
func WithPathMatcher(m PathMatcher) Option {
	return func(g *Guard) {
		if m != nil {
			g.isAuthorize = m
		}
	}
}

// WithNext sets the events delegated to; the default is cookie.DefaultEvents
func WithNext(next cookie.Events) Option {
	return func(g *Guard) {
		if next != nil {
			g.next = next
		}
	}
}

// NewGuard returns a guard for the given native client id
func NewGuard(clientID string, opts ...Option) *Guard {
	g := &Guard{
		next:        cookie.DefaultEvents{},
		clientID:    clientID,
		isAuthorize: ContainsPath(DefaultAuthorizePath),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// SigningIn flags the ticket when the sign-in happens at the authorize endpoint
func (g *Guard) SigningIn(ctx *cookie.SigningInContext) error {
	if g.authorizeRequest(ctx.Request) {
		props := ctx.Properties()
		if _, ok := props[HasAuthenticatedKey]; !ok {
			props[HasAuthenticatedKey] = hasAuthenticatedSet
		}
	}
	return g.next.SigningIn(ctx)
}

// ValidatePrincipal rejects a flagged ticket presented by the native client
// at the authorize endpoint.
func (g *Guard) ValidatePrincipal(ctx *cookie.ValidatePrincipalContext) error {
	if g.restrictedClient(ctx.Request) && hasFlag(ctx.Properties()) {
		ctx.RejectPrincipal()
		return nil
	}
	return g.next.ValidatePrincipal(ctx)
}

func (g *Guard) authorizeRequest(r *http.Request) bool {
	if r == nil || r.URL == nil {
		return false
	}
	return g.isAuthorize(r.URL.Path)
}

func (g *Guard) restrictedClient(r *http.Request) bool {
	if !g.authorizeRequest(r) || g.clientID == "" {
		return false
	}
	return slices.Contains(clientIDs(r), g.clientID)
}

// clientIDs collects client_id from the query and, for a POSTed authorize
// request, from the form body. A body that does not parse adds nothing.
func clientIDs(r *http.Request) []string {
	ids := r.URL.Query()[clientIDParam]
	if r.Method == http.MethodPost {
		_ = r.ParseForm()
		ids = append(ids, r.PostForm[clientIDParam]...)
	}
	return ids
}

func hasFlag(props map[string]string) bool {
	_, ok := props[HasAuthenticatedKey]
	return ok
}
