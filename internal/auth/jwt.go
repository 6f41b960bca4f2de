// Assist Move - Real-time Messaging Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/assistmove

package auth

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tomtom215/assistmove/internal/config"
)

// ErrMissingIdentity is returned for a validly signed token without a user id.
var ErrMissingIdentity = errors.New("token carries no user id")

// UserID decodes a JSON number or a numeric string. The login service has
// shipped both shapes.
type UserID int64

// UnmarshalJSON implements json.Unmarshaler.
func (u *UserID) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if len(data) == 0 || string(data) == "null" {
		*u = 0
		return nil
	}
	id, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid user id %q: %w", data, err)
	}
	*u = UserID(id)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (u UserID) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatInt(int64(u), 10)), nil
}

// Claims represents the access token claims.
type Claims struct {
	ID    UserID `json:"id"`
	Nome  string `json:"nome"`
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Identity is the authenticated user attached to a socket or request.
type Identity struct {
	ID    int64  `json:"id"`
	Name  string `json:"nome"`
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
}

// Identity converts verified claims into an Identity.
func (c *Claims) Identity() Identity {
	return Identity{ID: int64(c.ID), Name: c.Nome, Email: c.Email, Role: c.Role}
}

// JWTManager validates HS256 tokens with the shared secret.
type JWTManager struct {
	secret []byte
}

// NewJWTManager creates a manager from the security configuration.
//
// Returns an error if JWT_SECRET is empty.
func NewJWTManager(cfg *config.SecurityConfig) (*JWTManager, error) {
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required but was empty")
	}
	return &JWTManager{secret: []byte(cfg.JWTSecret)}, nil
}

// GenerateToken signs a token for identity valid for ttl.
func (m *JWTManager) GenerateToken(identity Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		ID:    UserID(identity.ID),
		Nome:  identity.Name,
		Email: identity.Email,
		Role:  identity.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(identity.ID, 10),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken verifies signature, algorithm and expiry, then returns the
// claims. Tokens signed with anything other than HMAC are rejected.
//
// A token whose id claim is missing falls back to a numeric subject.
func (m *JWTManager) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	if claims.ID == 0 && claims.Subject != "" {
		if id, convErr := strconv.ParseInt(claims.Subject, 10, 64); convErr == nil {
			claims.ID = UserID(id)
		}
	}
	if claims.ID == 0 {
		return nil, ErrMissingIdentity
	}

	return claims, nil
}

// compile-time checks
var (
	_ json.Unmarshaler = (*UserID)(nil)
	_ json.Marshaler   = UserID(0)
)
