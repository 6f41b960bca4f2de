// Assist Move - Real-time Messaging Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/assistmove

// Package gate admits or rejects WebSocket handshakes.
//
// Two checks run before a socket is upgraded and before it can join any
// room: the Origin header must be on the configured allow-list, and the
// handshake must carry a valid access token. A request without an Origin
// header (non-browser clients) passes the origin check.
package gate

import (
	"errors"
	"net/http"
	"strings"

	"github.com/tomtom215/assistmove/internal/auth"
	"github.com/tomtom215/assistmove/internal/logging"
	"github.com/tomtom215/assistmove/internal/metrics"
)

// CorsRejectedMessage is the text every transport reports for a disallowed origin.
const CorsRejectedMessage = "CORS: Origin not allowed"

// AuthError rejects a handshake with a missing, invalid or expired token.
// The client must obtain a new token and reconnect.
type AuthError struct {
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	return "authentication failed: " + e.Reason
}

func (e *AuthError) Unwrap() error { return e.Err }

// CorsRejectionError rejects a handshake from an origin outside the allow-list.
type CorsRejectionError struct {
	Origin string
}

func (e *CorsRejectionError) Error() string {
	return CorsRejectedMessage
}

// Gate evaluates handshakes against the origin allow-list and token validator.
type Gate struct {
	origins   map[string]struct{}
	allowAll  bool
	validator auth.TokenValidator
	audit     *logging.SecurityLogger
}

// New creates a Gate. An origin of "*" allows every origin.
func New(allowedOrigins []string, validator auth.TokenValidator) *Gate {
	g := &Gate{
		origins:   make(map[string]struct{}, len(allowedOrigins)),
		validator: validator,
		audit:     logging.NewSecurityLogger(),
	}
	for _, origin := range allowedOrigins {
		origin = strings.TrimRight(strings.TrimSpace(origin), "/")
		if origin == "" {
			continue
		}
		if origin == "*" {
			g.allowAll = true
			continue
		}
		g.origins[origin] = struct{}{}
	}
	return g
}

// OriginAllowed reports whether origin may open a socket.
func (g *Gate) OriginAllowed(origin string) bool {
	if origin == "" || g.allowAll {
		return true
	}
	_, ok := g.origins[strings.TrimRight(origin, "/")]
	return ok
}

// CheckOrigin returns *CorsRejectionError for a disallowed Origin header.
func (g *Gate) CheckOrigin(r *http.Request) error {
	origin := r.Header.Get("Origin")
	if g.OriginAllowed(origin) {
		return nil
	}
	return &CorsRejectionError{Origin: origin}
}

// Authenticate extracts and verifies the handshake token.
func (g *Gate) Authenticate(r *http.Request) (*auth.Identity, error) {
	token := HandshakeToken(r)
	if token == "" {
		return nil, &AuthError{Reason: "token not provided"}
	}

	claims, err := g.validator.ValidateToken(token)
	if err != nil {
		return nil, &AuthError{Reason: "invalid token", Err: err}
	}

	identity := claims.Identity()
	return &identity, nil
}

// Admit runs the origin check and then authentication. Both must pass before
// the connection is upgraded.
func (g *Gate) Admit(r *http.Request) (*auth.Identity, error) {
	origin := r.Header.Get("Origin")
	if err := g.CheckOrigin(r); err != nil {
		metrics.RecordHandshake("cors_rejected")
		g.audit.LogHandshakeRejected("cors", origin, r.RemoteAddr, r.UserAgent(), err.Error())
		return nil, err
	}

	identity, err := g.Authenticate(r)
	if err != nil {
		metrics.RecordHandshake("auth_rejected")
		g.audit.LogHandshakeRejected("auth", origin, r.RemoteAddr, r.UserAgent(), err.Error())
		return nil, err
	}

	metrics.RecordHandshake("accepted")
	g.audit.LogHandshakeAccepted(identity.ID, identity.Email, origin, r.RemoteAddr)
	return identity, nil
}

// HandshakeToken returns the bearer token of a handshake. Sources in order:
// the token query parameter, the Authorization header, and a
// Sec-WebSocket-Protocol pair "bearer, <token>" for browsers that cannot set
// headers.
func HandshakeToken(r *http.Request) string {
	if token := strings.TrimSpace(r.URL.Query().Get("token")); token != "" {
		return token
	}
	if token, err := auth.BearerToken(r.Header.Get("Authorization")); err == nil {
		return token
	}
	protocols := websocketProtocols(r)
	for i := 0; i+1 < len(protocols); i++ {
		if strings.EqualFold(protocols[i], "bearer") {
			return protocols[i+1]
		}
	}
	return ""
}

func websocketProtocols(r *http.Request) []string {
	var out []string
	for _, header := range r.Header.Values("Sec-WebSocket-Protocol") {
		for _, p := range strings.Split(header, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

// StatusFor maps a rejection to its HTTP status.
func StatusFor(err error) int {
	var corsErr *CorsRejectionError
	if errors.As(err, &corsErr) {
		return http.StatusForbidden
	}
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return http.StatusUnauthorized
	}
	return http.StatusBadRequest
}
