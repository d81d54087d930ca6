package handlers

import (
	"errors"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/vculp/identity-server/internal/domain"
	"go.uber.org/zap"
)

const (
	loginPath       = "/account/login"
	returnURLParam  = "ReturnUrl"
	defaultRedirect = "/"
)

// loginForm is the posted login page
type loginForm struct {
	Username  string `validate:"required"`
	Password  string `validate:"required"`
	ReturnURL string `validate:"omitempty,max=2048"`
}

// AccountHandler serves the interactive login and logout pages
type AccountHandler struct {
	signIn   SignInManager
	scheme   SessionScheme
	validate *validator.Validate
	logger   *zap.Logger
	now      func() time.Time
}

func NewAccountHandler(signIn SignInManager, scheme SessionScheme, logger *zap.Logger) *AccountHandler {
	return &AccountHandler{
		signIn:   signIn,
		scheme:   scheme,
		validate: validator.New(),
		logger:   logger,
		now:      time.Now,
	}
}

// LoginPageHandler renders the login form
func (h *AccountHandler) LoginPageHandler(w http.ResponseWriter, r *http.Request) {
	h.renderLogin(w, http.StatusOK, LoginPageData{ReturnURL: r.URL.Query().Get(returnURLParam)})
}

// LoginHandler checks the posted credentials and issues a fresh session cookie
func (h *AccountHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderLogin(w, http.StatusBadRequest, LoginPageData{Errors: []string{"Invalid request."}})
		return
	}

	form := loginForm{
		Username:  strings.TrimSpace(r.PostForm.Get("username")),
		Password:  r.PostForm.Get("password"),
		ReturnURL: r.PostForm.Get(returnURLParam),
	}
	page := LoginPageData{Username: form.Username, ReturnURL: form.ReturnURL}

	if err := h.validate.Struct(form); err != nil {
		page.Errors = formErrors(err)
		h.renderLogin(w, http.StatusBadRequest, page)
		return
	}

	user, claims, err := h.signIn.CheckPassword(r.Context(), form.Username, form.Password)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidCredentials):
			page.Errors = []string{"Invalid username or password."}
			h.renderLogin(w, http.StatusUnauthorized, page)
		case errors.Is(err, domain.ErrUserLockedOut):
			h.logger.Info("login attempt for locked out user", zap.String("username", form.Username))
			page.Errors = []string{"This account has been locked out, please try again later."}
			h.renderLogin(w, http.StatusForbidden, page)
		default:
			h.logger.Error("login failed", zap.Error(err))
			page.Errors = []string{"Sign in is not available right now."}
			h.renderLogin(w, http.StatusInternalServerError, page)
		}
		return
	}

	principal := domain.NewPrincipal(user, claims, h.now())
	if err := h.scheme.SignIn(w, r, principal, nil); err != nil {
		h.logger.Error("failed to issue session cookie", zap.Error(err))
		page.Errors = []string{"Sign in is not available right now."}
		h.renderLogin(w, http.StatusInternalServerError, page)
		return
	}

	h.logger.Info("user signed in", zap.String("sub", principal.Subject))
	http.Redirect(w, r, safeReturnURL(form.ReturnURL), http.StatusFound)
}

// LogoutHandler clears the session cookie
func (h *AccountHandler) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	h.scheme.SignOut(w)
	http.Redirect(w, r, loginPath, http.StatusFound)
}

// HomeHandler shows who is signed in
func (h *AccountHandler) HomeHandler(w http.ResponseWriter, r *http.Request) {
	ticket := h.scheme.Authenticate(r)
	if !ticket.IsAuthenticated() {
		http.Redirect(w, r, loginPath, http.StatusFound)
		return
	}
	renderMessage(w, h.logger, http.StatusOK, MessagePageData{
		Title:   "Signed in",
		Message: "You are signed in as " + ticket.Principal.Name + ".",
	})
}

func (h *AccountHandler) renderLogin(w http.ResponseWriter, status int, data LoginPageData) {
	render(w, h.logger, loginPageTemplate, status, data)
}

func renderMessage(w http.ResponseWriter, logger *zap.Logger, status int, data MessagePageData) {
	render(w, logger, messagePageTemplate, status, data)
}

func render(w http.ResponseWriter, logger *zap.Logger, tmpl *template.Template, status int, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := tmpl.Execute(w, data); err != nil {
		logger.Error("failed to render page", zap.String("template", tmpl.Name()), zap.Error(err))
	}
}

func formErrors(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{"Invalid request."}
	}

	var out []string
	for _, fe := range verrs {
		switch fe.Field() {
		case "Username":
			out = append(out, "The username is required.")
		case "Password":
			out = append(out, "The password is required.")
		default:
			out = append(out, "Invalid request.")
		}
	}
	return out
}

// safeReturnURL only allows local paths so the login page cannot be used as
// an open redirect.
func safeReturnURL(u string) string {
	if u == "" || !strings.HasPrefix(u, "/") || strings.HasPrefix(u, "//") || strings.HasPrefix(u, "/\\") {
		return defaultRedirect
	}
	return u
}
