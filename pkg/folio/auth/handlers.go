package auth

import (
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// Redirect targets of the sign-in flow.
const (
	LoginPath     = "/admin"
	DashboardPath = "/admin/dashboard"
)

// ErrUntrustedRequest is returned when a sign-in did not pass through the
// authenticating proxy.
var ErrUntrustedRequest = errors.New("request did not come through the identity proxy")

// IdentityVerifier yields the verified e-mail of the caller. An OAuth proxy
// or identity provider sits in front of it.
type IdentityVerifier interface {
	VerifiedEmail(r *http.Request) (string, error)
}

// HeaderVerifier trusts an e-mail header set by an authenticating proxy,
// e.g. X-Forwarded-Email from oauth2-proxy. The proxy must also send a shared
// secret; without it the e-mail header is ignored.
type HeaderVerifier struct {
	header       string
	secretHeader string
	secret       []byte
}

// NewHeaderVerifier creates a verifier reading the e-mail from header once
// secretHeader carries secret.
func NewHeaderVerifier(header, secretHeader, secret string) (*HeaderVerifier, error) {
	if header == "" || secretHeader == "" {
		return nil, errors.New("identity and proxy secret headers are required")
	}
	if secret == "" {
		return nil, errors.New("proxy secret is required")
	}
	return &HeaderVerifier{
		header:       header,
		secretHeader: secretHeader,
		secret:       []byte(secret),
	}, nil
}

func (v *HeaderVerifier) VerifiedEmail(r *http.Request) (string, error) {
	presented := []byte(r.Header.Get(v.secretHeader))
	if subtle.ConstantTimeCompare(presented, v.secret) != 1 {
		return "", ErrUntrustedRequest
	}

	email := strings.TrimSpace(r.Header.Get(v.header))
	if email == "" {
		return "", errors.New("no verified identity on request")
	}
	return email, nil
}

// Handler serves the sign-in callback and sign-out.
type Handler struct {
	sessions     *Sessions
	verifier     IdentityVerifier
	secureCookie bool
}

// NewHandler creates the auth handler. secureCookie marks the session cookie
// Secure, which production deployments behind TLS want.
func NewHandler(sessions *Sessions, verifier IdentityVerifier, secureCookie bool) *Handler {
	return &Handler{
		sessions:     sessions,
		verifier:     verifier,
		secureCookie: secureCookie,
	}
}

// Routes mounts the auth endpoints. Sign-in is only mounted when a verifier
// is configured; sessions can still be minted out of band.
func (h *Handler) Routes(r chi.Router) {
	if h.verifier != nil {
		r.Get("/signin", h.SignIn)
	}
	r.Post("/signout", h.SignOut)
}

// SignIn checks the verified identity against the allow-list. Allowed users
// get a session cookie and land on the dashboard, everyone else is sent back
// to the login page with the reason in the error query parameter.
func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) {
	email, err := h.verifier.VerifiedEmail(r)
	if errors.Is(err, ErrUntrustedRequest) {
		slog.Warn("Sign-in bypassing the identity proxy refused", "remote_addr", r.RemoteAddr)
		render.Status(r, http.StatusForbidden)
		render.JSON(w, r, map[string]string{"message": "Forbidden", "error": err.Error()})
		return
	}
	if err != nil {
		slog.Warn("Sign-in without verified identity", "error", err)
		redirectWithError(w, r, err.Error())
		return
	}

	token, err := h.sessions.Issue(email)
	if err != nil {
		var rejected *RejectedError
		if errors.As(err, &rejected) {
			slog.Warn("Sign-in rejected", "email", email)
			redirectWithError(w, r, rejected.Error())
			return
		}
		slog.Error("Failed to issue session", "error", err)
		http.Error(w, "failed to issue session", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.sessions.TTL().Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	slog.Info("Admin signed in", "email", email)
	http.Redirect(w, r, DashboardPath, http.StatusFound)
}

// SignOut expires the session cookie.
func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	render.JSON(w, r, map[string]string{"message": "Signed out"})
}

func redirectWithError(w http.ResponseWriter, r *http.Request, message string) {
	http.Redirect(w, r, LoginPath+"?error="+url.QueryEscape(message), http.StatusFound)
}
