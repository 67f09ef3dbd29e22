// Package auth gates admin writes behind an e-mail allow-list and a signed
// session cookie.
package auth

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotAllowed is wrapped by every RejectedError.
var ErrNotAllowed = errors.New("email not in admin allow-list")

// RejectedError reports a sign-in or request by an e-mail outside the allow-list.
type RejectedError struct {
	Email string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("Login failed: User email '%s' is not in the allowed list of admin emails.", e.Email)
}

func (e *RejectedError) Unwrap() error {
	return ErrNotAllowed
}

// AllowList is the set of admin e-mails. Comparison ignores case and
// surrounding whitespace.
type AllowList struct {
	emails map[string]struct{}
}

// ParseAllowList reads a comma-separated list such as the ADMIN_EMAIL
// variable. Empty entries are ignored.
func ParseAllowList(raw string) AllowList {
	list := AllowList{emails: make(map[string]struct{})}
	for _, part := range strings.Split(raw, ",") {
		if email := normalize(part); email != "" {
			list.emails[email] = struct{}{}
		}
	}
	return list
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Allowed reports whether email may act as admin.
func (l AllowList) Allowed(email string) bool {
	email = normalize(email)
	if email == "" {
		return false
	}
	_, ok := l.emails[email]
	return ok
}

// Check returns a *RejectedError when email is not allowed.
func (l AllowList) Check(email string) error {
	if !l.Allowed(email) {
		return &RejectedError{Email: email}
	}
	return nil
}

// Len returns the number of distinct admin e-mails.
func (l AllowList) Len() int {
	return len(l.emails)
}
