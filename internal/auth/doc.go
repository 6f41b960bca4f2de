// Assist Move - Real-time Messaging Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/assistmove

/*
Package auth verifies the access tokens issued by the Assist Move login
service and turns them into an Identity.

Token issuance belongs to the login service. GenerateToken exists for tests
and local tooling only.

Key Components:

  - JWTManager: HS256 validation with the shared JWT_SECRET
  - Claims: token payload; the id claim may be a number or a numeric string
  - Identity: the authenticated user attached to a socket or request
  - Middleware: bearer-token authentication for the REST routes

Claims:

	{"id": 7, "nome": "Ana", "email": "ana@example.com", "exp": 1767348000}

A token without an id claim falls back to a numeric "sub". A token that
carries neither is rejected with ErrMissingIdentity.

Usage Example:

	manager, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
	    log.Fatal(err)
	}

	mw := auth.NewMiddleware(manager, nil)
	r.With(mw.Authenticate).Get("/api/mensagens/usuarios", handler)

	// inside the handler
	identity, ok := auth.IdentityFromContext(r.Context())

WebSocket handshakes do not use Middleware. The connection gate checks the
origin first and then validates the token through the TokenValidator
interface.

Thread Safety:

JWTManager and Middleware are immutable after construction and safe for
concurrent use.
*/
package auth
