// Assist Move - Real-time Messaging Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/assistmove

package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/tomtom215/assistmove/internal/logging"
)

type contextKey string

// IdentityContextKey stores the *Identity of an authenticated request.
const IdentityContextKey contextKey = "identity"

// TokenValidator is satisfied by *JWTManager.
type TokenValidator interface {
	ValidateToken(tokenString string) (*Claims, error)
}

// Middleware enforces bearer-token authentication on REST routes.
type Middleware struct {
	validator TokenValidator
	onFailure func(w http.ResponseWriter, status int, message string)
	audit     *logging.SecurityLogger
}

// NewMiddleware creates the REST authentication middleware. onFailure writes
// the error response; nil falls back to http.Error.
func NewMiddleware(validator TokenValidator, onFailure func(w http.ResponseWriter, status int, message string)) *Middleware {
	if onFailure == nil {
		onFailure = func(w http.ResponseWriter, status int, message string) {
			http.Error(w, message, status)
		}
	}
	return &Middleware{validator: validator, onFailure: onFailure, audit: logging.NewSecurityLogger()}
}

// Authenticate rejects requests without a valid bearer token and stores the
// Identity in the request context.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := BearerToken(r.Header.Get("Authorization"))
		if err != nil {
			m.onFailure(w, http.StatusUnauthorized, err.Error())
			return
		}

		claims, err := m.validator.ValidateToken(token)
		if err != nil {
			m.audit.LogTokenRejected(r.URL.Path, r.RemoteAddr, err.Error())
			m.onFailure(w, http.StatusUnauthorized, "unauthorized: invalid token")
			return
		}

		identity := claims.Identity()
		next.ServeHTTP(w, r.WithContext(ContextWithIdentity(r.Context(), &identity)))
	})
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	if header == "" {
		return "", fmt.Errorf("unauthorized: missing token")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", fmt.Errorf("unauthorized: invalid authorization header")
	}
	return strings.TrimSpace(parts[1]), nil
}

// ContextWithIdentity returns a context carrying identity.
func ContextWithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, IdentityContextKey, identity)
}

// IdentityFromContext returns the authenticated identity, if any.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	identity, ok := ctx.Value(IdentityContextKey).(*Identity)
	return identity, ok && identity != nil
}
