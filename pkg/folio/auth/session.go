package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/jwtauth"
	"github.com/go-chi/render"
)

// CookieName is the session cookie, the one jwtauth.TokenFromCookie reads.
const CookieName = "jwt"

const claimEmail = "email"

// Sessions issues and verifies HS256 session tokens for allow-listed admins.
type Sessions struct {
	tokenAuth *jwtauth.JWTAuth
	allow     AllowList
	ttl       time.Duration
}

// NewSessions creates a session manager. secret must not be empty.
func NewSessions(secret string, ttl time.Duration, allow AllowList) (*Sessions, error) {
	if secret == "" {
		return nil, errors.New("auth secret is required")
	}
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Sessions{
		tokenAuth: jwtauth.New("HS256", []byte(secret), nil),
		allow:     allow,
		ttl:       ttl,
	}, nil
}

// AllowList returns the allow-list sessions are checked against.
func (s *Sessions) AllowList() AllowList {
	return s.allow
}

// TTL returns the session lifetime.
func (s *Sessions) TTL() time.Duration {
	return s.ttl
}

// Issue mints a token for email. Addresses outside the allow-list get a
// *RejectedError.
func (s *Sessions) Issue(email string) (string, error) {
	if err := s.allow.Check(email); err != nil {
		return "", err
	}

	claims := map[string]interface{}{
		claimEmail: normalize(email),
		"sub":      normalize(email),
	}
	jwtauth.SetIssuedNow(claims)
	jwtauth.SetExpiryIn(claims, s.ttl)

	_, token, err := s.tokenAuth.Encode(claims)
	if err != nil {
		return "", fmt.Errorf("failed to sign session: %w", err)
	}
	return token, nil
}

// Verifier extracts and verifies a token from the Authorization header or
// the session cookie. Authenticator must run after it.
func (s *Sessions) Verifier() func(http.Handler) http.Handler {
	return jwtauth.Verifier(s.tokenAuth)
}

// Authenticator rejects requests without a valid session for an e-mail that
// is still on the allow-list.
func (s *Sessions) Authenticator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, claims, err := jwtauth.FromContext(r.Context())
		if err != nil || token == nil {
			unauthorized(w, r, "Authentication required", err)
			return
		}

		email, _ := claims[claimEmail].(string)
		if err := s.allow.Check(email); err != nil {
			slog.Warn("Session for e-mail outside allow-list", "email", email)
			unauthorized(w, r, "Forbidden", err)
			return
		}

		next.ServeHTTP(w, r.WithContext(withEmail(r.Context(), email)))
	})
}

// Middleware chains Verifier and Authenticator.
func (s *Sessions) Middleware(next http.Handler) http.Handler {
	return s.Verifier()(s.Authenticator(next))
}

func unauthorized(w http.ResponseWriter, r *http.Request, message string, err error) {
	detail := "missing session"
	if err != nil {
		detail = err.Error()
	}
	render.Status(r, http.StatusUnauthorized)
	render.JSON(w, r, map[string]string{
		"message": message,
		"error":   detail,
	})
}
