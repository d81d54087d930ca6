package reauth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vculp/identity-server/internal/domain"
	"github.com/vculp/identity-server/internal/infrastructure/cookie"
)

const nativeClientID = "c16a7279-738c-458f-8e77-25e42eb965ff"

func newRequest(t *testing.T, target string) *http.Request {
	t.Helper()
	return httptest.NewRequest(http.MethodGet, target, nil)
}

func signingIn(t *testing.T, target string, props map[string]string) *cookie.SigningInContext {
	return &cookie.SigningInContext{
		Request: newRequest(t, target),
		Ticket:  &domain.Ticket{Principal: &domain.Principal{Subject: "user-1"}, Properties: props},
	}
}

func validating(t *testing.T, target string, props map[string]string) *cookie.ValidatePrincipalContext {
	return &cookie.ValidatePrincipalContext{
		Request: newRequest(t, target),
		Ticket:  &domain.Ticket{Principal: &domain.Principal{Subject: "user-1"}, Properties: props},
	}
}

func flagged() map[string]string {
	return map[string]string{HasAuthenticatedKey: "true"}
}

func TestGuard_SigningIn(t *testing.T) {
	tests := []struct {
		name   string
		target string
		props  map[string]string
		want   map[string]string
	}{
		{
			name:   "authorize path adds the flag",
			target: "/connect/authorize",
			props:  nil,
			want:   map[string]string{HasAuthenticatedKey: "true"},
		},
		{
			name:   "authorize path with query adds the flag",
			target: "/connect/authorize?client_id=" + nativeClientID + "&response_type=code",
			props:  map[string]string{},
			want:   map[string]string{HasAuthenticatedKey: "true"},
		},
		{
			name:   "flag is added next to existing properties",
			target: "/connect/authorize",
			props:  map[string]string{domain.PropertyClientList: "a"},
			want:   map[string]string{domain.PropertyClientList: "a", HasAuthenticatedKey: "true"},
		},
		{
			name:   "other path leaves the bag unchanged",
			target: "/my-test-request-path",
			props:  map[string]string{},
			want:   map[string]string{},
		},
		{
			name:   "login path leaves the bag unchanged",
			target: "/account/login?ReturnUrl=%2Fconnect%2Fauthorize",
			props:  map[string]string{},
			want:   map[string]string{},
		},
		{
			name:   "existing flag is left alone",
			target: "/connect/authorize",
			props:  flagged(),
			want:   flagged(),
		},
		{
			name:   "existing flag value is not overwritten",
			target: "/connect/authorize",
			props:  map[string]string{HasAuthenticatedKey: "yes"},
			want:   map[string]string{HasAuthenticatedKey: "yes"},
		},
		{
			name:   "substring match on a nested path",
			target: "/tenant/connect/authorize/callback",
			props:  map[string]string{},
			want:   map[string]string{HasAuthenticatedKey: "true"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := signingIn(t, tt.target, tt.props)
			require.NoError(t, NewGuard(nativeClientID).SigningIn(ctx))

			if len(tt.want) == 0 {
				assert.Empty(t, ctx.Ticket.Properties)
				return
			}
			assert.Equal(t, tt.want, ctx.Ticket.Properties)
		})
	}
}

func TestGuard_SigningInIsIdempotent(t *testing.T) {
	guard := NewGuard(nativeClientID)
	ctx := signingIn(t, "/connect/authorize", nil)

	require.NoError(t, guard.SigningIn(ctx))
	require.NoError(t, guard.SigningIn(ctx))

	assert.Equal(t, map[string]string{HasAuthenticatedKey: "true"}, ctx.Ticket.Properties)
}

func TestGuard_ValidatePrincipal(t *testing.T) {
	tests := []struct {
		name         string
		target       string
		props        map[string]string
		wantRejected bool
	}{
		{
			name:         "native client with flag is rejected",
			target:       "/connect/authorize?client_id=" + nativeClientID,
			props:        flagged(),
			wantRejected: true,
		},
		{
			name:         "native client without flag is accepted",
			target:       "/connect/authorize?client_id=" + nativeClientID,
			props:        map[string]string{},
			wantRejected: false,
		},
		{
			name:         "native client with nil bag is accepted",
			target:       "/connect/authorize?client_id=" + nativeClientID,
			props:        nil,
			wantRejected: false,
		},
		{
			name:         "other client with flag is accepted",
			target:       "/connect/authorize?client_id=other-client",
			props:        flagged(),
			wantRejected: false,
		},
		{
			name:         "no client id with flag is accepted",
			target:       "/connect/authorize",
			props:        flagged(),
			wantRejected: false,
		},
		{
			name:         "empty client id with flag is accepted",
			target:       "/connect/authorize?client_id=",
			props:        flagged(),
			wantRejected: false,
		},
		{
			name:         "multi valued client id containing the native client",
			target:       "/connect/authorize?client_id=other-client&client_id=" + nativeClientID,
			props:        flagged(),
			wantRejected: true,
		},
		{
			name:         "client id match is exact",
			target:       "/connect/authorize?client_id=" + nativeClientID + "x",
			props:        flagged(),
			wantRejected: false,
		},
		{
			name:         "client id match is case sensitive",
			target:       "/connect/authorize?client_id=C16A7279-738C-458F-8E77-25E42EB965FF",
			props:        flagged(),
			wantRejected: false,
		},
		{
			name:         "native client on another path is accepted",
			target:       "/connect/token?client_id=" + nativeClientID,
			props:        flagged(),
			wantRejected: false,
		},
		{
			name:         "native client on the login page is accepted",
			target:       "/account/login?client_id=" + nativeClientID,
			props:        flagged(),
			wantRejected: false,
		},
		{
			name:         "malformed query fails open",
			target:       "/connect/authorize?%zz",
			props:        flagged(),
			wantRejected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := validating(t, tt.target, tt.props)
			require.NoError(t, NewGuard(nativeClientID).ValidatePrincipal(ctx))

			assert.Equal(t, tt.wantRejected, ctx.Rejected())
			assert.Equal(t, tt.wantRejected, ctx.Principal() == nil)
		})
	}
}

func TestGuard_ValidatePrincipalPostedForm(t *testing.T) {
	tests := []struct {
		name         string
		target       string
		form         url.Values
		contentType  string
		wantRejected bool
	}{
		{
			name:         "native client in the form body is rejected",
			target:       "/connect/authorize",
			form:         url.Values{"client_id": {nativeClientID}, "response_type": {"code"}},
			contentType:  "application/x-www-form-urlencoded",
			wantRejected: true,
		},
		{
			name:         "other client in the form body is accepted",
			target:       "/connect/authorize",
			form:         url.Values{"client_id": {"other-client"}},
			contentType:  "application/x-www-form-urlencoded",
			wantRejected: false,
		},
		{
			name:         "native client in the query of a POST is rejected",
			target:       "/connect/authorize?client_id=" + nativeClientID,
			form:         url.Values{},
			contentType:  "application/x-www-form-urlencoded",
			wantRejected: true,
		},
		{
			name:         "body that is not a form is ignored",
			target:       "/connect/authorize",
			form:         url.Values{"client_id": {nativeClientID}},
			contentType:  "application/json",
			wantRejected: false,
		},
		{
			name:         "form body on another path is ignored",
			target:       "/connect/token",
			form:         url.Values{"client_id": {nativeClientID}},
			contentType:  "application/x-www-form-urlencoded",
			wantRejected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, tt.target, strings.NewReader(tt.form.Encode()))
			req.Header.Set("Content-Type", tt.contentType)
			ctx := &cookie.ValidatePrincipalContext{
				Request: req,
				Ticket:  &domain.Ticket{Principal: &domain.Principal{Subject: "user-1"}, Properties: flagged()},
			}

			require.NoError(t, NewGuard(nativeClientID).ValidatePrincipal(ctx))
			assert.Equal(t, tt.wantRejected, ctx.Rejected())
		})
	}
}

func TestGuard_MissingRequestFailsOpen(t *testing.T) {
	guard := NewGuard(nativeClientID)

	sctx := &cookie.SigningInContext{Ticket: &domain.Ticket{}}
	require.NoError(t, guard.SigningIn(sctx))
	assert.Empty(t, sctx.Ticket.Properties)

	vctx := &cookie.ValidatePrincipalContext{
		Request: &http.Request{},
		Ticket:  &domain.Ticket{Principal: &domain.Principal{Subject: "s"}, Properties: flagged()},
	}
	require.NoError(t, guard.ValidatePrincipal(vctx))
	assert.NotNil(t, vctx.Principal())
}

// The properties below are checked over a grid of paths, client ids and flag
// states.
func TestGuard_Properties(t *testing.T) {
	guard := NewGuard(nativeClientID)
	paths := []string{"/connect/authorize", "/connect/authorize/callback", "/connect/token", "/account/login", "/", "/my-test-request-path"}
	clients := [][]string{nil, {nativeClientID}, {"other-client"}, {"other-client", nativeClientID}, {""}}

	isAuthorize := func(p string) bool { return ContainsPath(DefaultAuthorizePath)(p) }
	hasNative := func(ids []string) bool {
		for _, id := range ids {
			if id == nativeClientID {
				return true
			}
		}
		return false
	}

	for _, path := range paths {
		for _, ids := range clients {
			q := url.Values{}
			for _, id := range ids {
				q.Add("client_id", id)
			}
			target := path
			if len(q) > 0 {
				target += "?" + q.Encode()
			}

			for _, withFlag := range []bool{false, true} {
				props := map[string]string{}
				if withFlag {
					props = flagged()
				}

				sctx := signingIn(t, target, props)
				require.NoError(t, guard.SigningIn(sctx))
				if isAuthorize(path) {
					assert.Equal(t, map[string]string{HasAuthenticatedKey: "true"}, sctx.Ticket.Properties, target)
				} else {
					assert.Equal(t, withFlag, hasFlag(sctx.Ticket.Properties), target)
					assert.Len(t, sctx.Ticket.Properties, len(props), target)
				}

				vprops := map[string]string{}
				if withFlag {
					vprops = flagged()
				}
				vctx := validating(t, target, vprops)
				require.NoError(t, guard.ValidatePrincipal(vctx))
				wantRejected := isAuthorize(path) && hasNative(ids) && withFlag
				assert.Equal(t, wantRejected, vctx.Principal() == nil, "%s flag=%v", target, withFlag)
			}
		}
	}
}

type spyEvents struct {
	signingIn int
	validate  int
	err       error
}

func (s *spyEvents) SigningIn(*cookie.SigningInContext) error {
	s.signingIn++
	return s.err
}

func (s *spyEvents) ValidatePrincipal(*cookie.ValidatePrincipalContext) error {
	s.validate++
	return s.err
}

func TestGuard_Delegation(t *testing.T) {
	t.Run("sign in always delegates", func(t *testing.T) {
		next := &spyEvents{}
		guard := NewGuard(nativeClientID, WithNext(next))

		require.NoError(t, guard.SigningIn(signingIn(t, "/connect/authorize", nil)))
		require.NoError(t, guard.SigningIn(signingIn(t, "/elsewhere", nil)))
		assert.Equal(t, 2, next.signingIn)
	})

	t.Run("accepted principals are delegated", func(t *testing.T) {
		next := &spyEvents{}
		guard := NewGuard(nativeClientID, WithNext(next))

		require.NoError(t, guard.ValidatePrincipal(validating(t, "/connect/authorize?client_id=other", flagged())))
		assert.Equal(t, 1, next.validate)
	})

	t.Run("rejection skips further validation", func(t *testing.T) {
		next := &spyEvents{}
		guard := NewGuard(nativeClientID, WithNext(next))

		require.NoError(t, guard.ValidatePrincipal(validating(t, "/connect/authorize?client_id="+nativeClientID, flagged())))
		assert.Zero(t, next.validate)
	})

	t.Run("delegate errors are returned", func(t *testing.T) {
		boom := errors.New("boom")
		guard := NewGuard(nativeClientID, WithNext(&spyEvents{err: boom}))

		assert.ErrorIs(t, guard.SigningIn(signingIn(t, "/connect/authorize", nil)), boom)
		assert.ErrorIs(t, guard.ValidatePrincipal(validating(t, "/", nil)), boom)
	})
}

func TestPathMatchers(t *testing.T) {
	tests := []struct {
		path     string
		contains bool
		prefix   bool
	}{
		{"/connect/authorize", true, true},
		{"/connect/authorize/callback", true, true},
		{"/connect/authorizex", true, false},
		{"/tenant/connect/authorize", true, false},
		{"/connect/token", false, false},
		{"", false, false},
	}

	contains := ContainsPath(DefaultAuthorizePath)
	prefix := PrefixPath(DefaultAuthorizePath)
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.contains, contains(tt.path))
			assert.Equal(t, tt.prefix, prefix(tt.path))
		})
	}

	assert.False(t, ContainsPath("")("/anything"))
}

func TestGuard_PrefixMode(t *testing.T) {
	guard := NewGuard(nativeClientID, WithPathMatcher(PrefixPath("/connect/authorize/")))

	ctx := signingIn(t, "/tenant/connect/authorize", nil)
	require.NoError(t, guard.SigningIn(ctx))
	assert.Empty(t, ctx.Ticket.Properties)

	vctx := validating(t, "/connect/authorize?client_id="+nativeClientID, flagged())
	require.NoError(t, guard.ValidatePrincipal(vctx))
	assert.True(t, vctx.Rejected())
}
