package handlers

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vculp/identity-server/internal/domain"
	"github.com/vculp/identity-server/internal/infrastructure/config"
	"github.com/vculp/identity-server/internal/infrastructure/cookie"
	"github.com/vculp/identity-server/internal/infrastructure/keys"
	"github.com/vculp/identity-server/internal/infrastructure/oidc"
	"github.com/vculp/identity-server/internal/infrastructure/registry"
	"github.com/vculp/identity-server/internal/interfaces/http/middleware/reauth"
	"go.uber.org/zap"
)

const (
	testIssuer       = "http://localhost:5001"
	testState        = "state-123456789"
	testCodeVerifier = "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
)

type mockSignInManager struct {
	mock.Mock
}

func (m *mockSignInManager) CheckPassword(ctx context.Context, userName, password string) (*domain.User, []domain.Claim, error) {
	args := m.Called(ctx, userName, password)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*domain.User), args.Get(1).([]domain.Claim), args.Error(2)
}

type mockUserReader struct {
	mock.Mock
}

func (m *mockUserReader) FindByID(ctx context.Context, id ulid.ULID) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserReader) ListClaims(ctx context.Context, userID ulid.ULID) ([]domain.Claim, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Claim), args.Error(1)
}

type mockPinger struct {
	mock.Mock
}

func (m *mockPinger) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// testServer holds the collaborators shared by the protocol handler tests
type testServer struct {
	key      *keys.SigningKey
	provider *oidc.Provider
	scheme   *cookie.Scheme
	connect  *ConnectHandler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	key, err := keys.Generate()
	require.NoError(t, err)

	cfg := &config.Config{
		Environment:           "development",
		IssuerURL:             testIssuer,
		GlobalSecret:          []byte(strings.Repeat("s", 32)),
		AccessTokenLifespan:   time.Hour,
		RefreshTokenLifespan:  24 * time.Hour,
		AuthorizeCodeLifespan: 5 * time.Minute,
		IDTokenLifespan:       5 * time.Minute,
	}
	provider, err := oidc.NewProvider(cfg, key, registry.Default(""), zap.NewNop())
	require.NoError(t, err)

	codecKey, err := cookie.GenerateKey()
	require.NoError(t, err)
	codec, err := cookie.NewJWECodec(codecKey)
	require.NoError(t, err)

	scheme := cookie.NewScheme(codec, reauth.NewGuard(registry.NativeClientID), cookie.Options{}, zap.NewNop())

	return &testServer{
		key:      key,
		provider: provider,
		scheme:   scheme,
		connect:  NewConnectHandler(provider, scheme, zap.NewNop()),
	}
}

func testPrincipal() *domain.Principal {
	return &domain.Principal{
		Subject:  ulid.Make().String(),
		Name:     "Jane Doe",
		AuthTime: time.Now().Add(-time.Minute).UTC(),
		Claims:   []domain.Claim{{Type: domain.ClaimName, Value: "Jane Doe"}},
	}
}

// signIn issues a session cookie the way the login page does
func (s *testServer) signIn(t *testing.T, principal *domain.Principal) *http.Cookie {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/account/login", nil)
	require.NoError(t, s.scheme.SignIn(rec, req, principal, nil))
	return sessionCookie(t, rec)
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == cookie.DefaultCookieName {
			return c
		}
	}
	t.Fatalf("no %s cookie in response", cookie.DefaultCookieName)
	return nil
}

// ticketOf decodes a session cookie outside the authorize path
func (s *testServer) ticketOf(t *testing.T, c *http.Cookie) *domain.Ticket {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(c)
	ticket := s.scheme.Authenticate(req)
	require.NotNil(t, ticket)
	return ticket
}

func codeChallenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

func nativeAuthorizeURL(extra url.Values) string {
	q := url.Values{
		"client_id":             {registry.NativeClientID},
		"response_type":         {"code"},
		"redirect_uri":          {"vculp://auth"},
		"scope":                 {"openid profile read offline_access"},
		"state":                 {testState},
		"code_challenge":        {codeChallenge(testCodeVerifier)},
		"code_challenge_method": {"S256"},
	}
	for k, v := range extra {
		q[k] = v
	}
	return oidc.PathAuthorize + "?" + q.Encode()
}

func swaggerAuthorizeURL() string {
	q := url.Values{
		"client_id":     {registry.SwaggerUIClientID},
		"response_type": {"token"},
		"redirect_uri":  {"http://localhost:5000/swagger/oauth2-redirect.html"},
		"scope":         {"read"},
		"state":         {testState},
	}
	return oidc.PathAuthorize + "?" + q.Encode()
}

func (s *testServer) authorize(t *testing.T, target string, c *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if c != nil {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	s.connect.AuthorizeHandler(rec, req)
	return rec
}
