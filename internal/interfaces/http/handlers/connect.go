package handlers

import (
	"maps"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/ory/fosite"
	"github.com/vculp/identity-server/internal/domain"
	"github.com/vculp/identity-server/internal/infrastructure/oidc"
	"go.uber.org/zap"
)

// ConnectHandler serves the OAuth2 and OpenID Connect protocol endpoints
type ConnectHandler struct {
	provider IdentityProvider
	scheme   SessionScheme
	logger   *zap.Logger
	now      func() time.Time
}

func NewConnectHandler(provider IdentityProvider, scheme SessionScheme, logger *zap.Logger) *ConnectHandler {
	return &ConnectHandler{
		provider: provider,
		scheme:   scheme,
		logger:   logger,
		now:      time.Now,
	}
}

// AuthorizeHandler handles the authorization endpoint. Without an accepted
// session the browser is sent to the login page and comes back here once
// signed in.
func (h *ConnectHandler) AuthorizeHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ar, err := h.provider.NewAuthorizeRequest(ctx, r)
	if err != nil {
		h.logger.Info("rejected authorize request", zap.Error(err))
		h.provider.WriteAuthorizeError(ctx, w, ar, err)
		return
	}

	prompt := strings.Fields(ar.GetRequestForm().Get("prompt"))
	ticket := h.scheme.Authenticate(r)

	if !ticket.IsAuthenticated() || slices.Contains(prompt, "login") {
		if slices.Contains(prompt, "none") {
			h.provider.WriteAuthorizeError(ctx, w, ar, fosite.ErrLoginRequired)
			return
		}
		h.redirectToLogin(w, r)
		return
	}

	for _, scope := range ar.GetRequestedScopes() {
		ar.GrantScope(scope)
	}
	for _, aud := range h.provider.Registry().AudienceFor(ar.GetGrantedScopes()) {
		ar.GrantAudience(aud)
	}

	clientID := ar.GetClient().GetID()
	reg := h.provider.Registry()
	granted := ar.GetGrantedScopes()
	session := oidc.NewSession(ticket.Principal, clientID,
		reg.IdentityClaimsFor(granted), reg.APIClaimsFor(granted), h.now())

	resp, err := h.provider.NewAuthorizeResponse(ctx, ar, session)
	if err != nil {
		h.logger.Info("authorize response failed", zap.String("client_id", clientID), zap.Error(err))
		h.provider.WriteAuthorizeError(ctx, w, ar, err)
		return
	}

	// Re-issue the session cookie with the client recorded. This sign-in
	// happens on the authorize path.
	props := maps.Clone(ticket.Properties)
	if props == nil {
		props = make(map[string]string)
	}
	props[domain.PropertyClientList] = addClient(props[domain.PropertyClientList], clientID)
	if err := h.scheme.SignIn(w, r, ticket.Principal, props); err != nil {
		h.logger.Warn("failed to re-issue session cookie", zap.Error(err))
	}

	h.logger.Info("authorization granted",
		zap.String("client_id", clientID),
		zap.String("sub", ticket.Principal.Subject),
		zap.Strings("scopes", ar.GetGrantedScopes()))
	h.provider.WriteAuthorizeResponse(ctx, w, ar, resp)
}

// redirectToLogin sends the browser to the login page with the authorize
// request as the return URL. A POSTed request is turned into its GET form. A
// prompt=login parameter is dropped from the return URL so the request is not
// repeated forever.
func (h *ConnectHandler) redirectToLogin(w http.ResponseWriter, r *http.Request) {
	returnURL := *r.URL
	q := returnURL.Query()
	changed := false
	if r.Method == http.MethodPost {
		for k, v := range r.PostForm {
			q[k] = v
		}
		changed = true
	}
	if prompts := strings.Fields(q.Get("prompt")); slices.Contains(prompts, "login") {
		prompts = slices.DeleteFunc(prompts, func(p string) bool { return p == "login" })
		if len(prompts) == 0 {
			q.Del("prompt")
		} else {
			q.Set("prompt", strings.Join(prompts, " "))
		}
		changed = true
	}
	if changed {
		returnURL.RawQuery = q.Encode()
	}

	target := loginPath + "?" + url.Values{returnURLParam: {returnURL.RequestURI()}}.Encode()
	http.Redirect(w, r, target, http.StatusFound)
}

func addClient(list, clientID string) string {
	clients := strings.Fields(list)
	if !slices.Contains(clients, clientID) {
		clients = append(clients, clientID)
	}
	return strings.Join(clients, " ")
}

// TokenHandler handles the token endpoint
func (h *ConnectHandler) TokenHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	accessRequest, err := h.provider.NewAccessRequest(ctx, r, oidc.NewEmptySession())
	if err != nil {
		h.logger.Info("rejected token request", zap.Error(err))
		h.provider.WriteAccessError(ctx, w, accessRequest, err)
		return
	}

	response, err := h.provider.NewAccessResponse(ctx, accessRequest)
	if err != nil {
		h.logger.Error("failed to create token response", zap.Error(err))
		h.provider.WriteAccessError(ctx, w, accessRequest, err)
		return
	}

	h.provider.WriteAccessResponse(ctx, w, accessRequest, response)
}

// RevocationHandler handles token revocation
func (h *ConnectHandler) RevocationHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	err := h.provider.NewRevocationRequest(ctx, r)
	if err != nil {
		h.logger.Info("revocation request failed", zap.Error(err))
	}
	h.provider.WriteRevocationResponse(ctx, w, err)
}

// EndSessionHandler signs the user out. When the id_token_hint names a client
// that registered post_logout_redirect_uri, the browser is sent back there.
func (h *ConnectHandler) EndSessionHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.logger.Info("malformed end session request", zap.Error(err))
	}

	h.scheme.SignOut(w)

	redirectURI := r.Form.Get("post_logout_redirect_uri")
	if hint := r.Form.Get("id_token_hint"); hint != "" && redirectURI != "" {
		parsed, err := h.provider.ParseIDTokenHint(hint)
		if err != nil {
			h.logger.Info("ignoring id_token_hint", zap.Error(err))
		} else if target, ok := h.postLogoutRedirect(parsed.Audience, redirectURI, r.Form.Get("state")); ok {
			http.Redirect(w, r, target, http.StatusFound)
			return
		}
	}

	renderMessage(w, h.logger, http.StatusOK, MessagePageData{
		Title:   "Signed out",
		Message: "You are now signed out.",
	})
}

func (h *ConnectHandler) postLogoutRedirect(audience []string, redirectURI, state string) (string, bool) {
	for _, clientID := range audience {
		if !h.provider.Registry().PostLogoutRedirectAllowed(clientID, redirectURI) {
			continue
		}
		target, err := url.Parse(redirectURI)
		if err != nil {
			return "", false
		}
		if state != "" {
			q := target.Query()
			q.Set("state", state)
			target.RawQuery = q.Encode()
		}
		return target.String(), true
	}
	return "", false
}
