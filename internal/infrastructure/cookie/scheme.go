package cookie

import (
	"errors"
	"fmt"
	"maps"
	"net/http"
	"time"

	"github.com/vculp/identity-server/internal/domain"
	"go.uber.org/zap"
)

// DefaultCookieName is the name of the session cookie
const DefaultCookieName = "idsrv.session"

// Options configure the session cookie
type Options struct {
	Name     string
	Path     string
	Lifetime time.Duration
	Secure   bool
}

// Scheme is cookie based authentication: it issues, reads and clears the
// encrypted session cookie and runs the registered Events.
type Scheme struct {
	opts   Options
	codec  Codec
	events Events
	logger *zap.Logger
	now    func() time.Time
}

// NewScheme creates a scheme. A nil events value installs DefaultEvents.
func NewScheme(codec Codec, events Events, opts Options, logger *zap.Logger) *Scheme {
	if events == nil {
		events = DefaultEvents{}
	}
	if opts.Name == "" {
		opts.Name = DefaultCookieName
	}
	if opts.Path == "" {
		opts.Path = "/"
	}
	if opts.Lifetime <= 0 {
		opts.Lifetime = 14 * 24 * time.Hour
	}
	return &Scheme{
		opts:   opts,
		codec:  codec,
		events: events,
		logger: logger,
		now:    time.Now,
	}
}

// CookieName returns the configured cookie name
func (s *Scheme) CookieName() string {
	return s.opts.Name
}

// SignIn issues a new session cookie for principal. The properties map is
// copied before the SigningIn event sees it.
func (s *Scheme) SignIn(w http.ResponseWriter, r *http.Request, principal *domain.Principal, props map[string]string) error {
	if principal == nil {
		return errors.New("cannot sign in without a principal")
	}

	now := s.now().UTC()
	ticket := &domain.Ticket{
		Principal:  principal,
		Properties: maps.Clone(props),
		IssuedAt:   now,
		ExpiresAt:  now.Add(s.opts.Lifetime),
	}

	if err := s.events.SigningIn(&SigningInContext{Request: r, Ticket: ticket}); err != nil {
		return fmt.Errorf("signing in event: %w", err)
	}

	value, err := s.codec.Encode(ticket)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     s.opts.Name,
		Value:    value,
		Path:     s.opts.Path,
		Expires:  ticket.ExpiresAt,
		HttpOnly: true,
		Secure:   s.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Authenticate reads the session cookie of r. It returns nil when there is no
// usable cookie, and a ticket with a nil principal when the ValidatePrincipal
// event rejected it.
func (s *Scheme) Authenticate(r *http.Request) *domain.Ticket {
	c, err := r.Cookie(s.opts.Name)
	if err != nil || c.Value == "" {
		return nil
	}

	ticket, err := s.codec.Decode(c.Value)
	if err != nil {
		s.logger.Debug("discarding unreadable session cookie", zap.Error(err))
		return nil
	}
	if ticket.Expired(s.now()) || ticket.Principal == nil {
		return nil
	}

	vctx := &ValidatePrincipalContext{Request: r, Ticket: ticket}
	if err := s.events.ValidatePrincipal(vctx); err != nil {
		s.logger.Warn("session validation failed", zap.Error(err))
		ticket.Principal = nil
		return ticket
	}
	if vctx.Rejected() {
		s.logger.Debug("session principal rejected",
			zap.String("path", r.URL.Path))
	}
	return ticket
}

// SignOut clears the session cookie
func (s *Scheme) SignOut(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.opts.Name,
		Value:    "",
		Path:     s.opts.Path,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
