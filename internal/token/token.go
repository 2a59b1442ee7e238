// Copyright 2026 The Factora Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package token issues and verifies the signed bearer credential. The
// credential is the full authorization context: the server keeps no
// session state, and a changed role or permission set only takes
// effect on the next issuance.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Domain errors
var (
	ErrInvalidToken = errors.New("invalid or expired credential")
)

// DefaultTTL is the fixed credential expiry window.
const DefaultTTL = 24 * time.Hour

// Claims is the credential payload. RoleCategory is the single
// canonical category field written at issuance; the two legacy names
// are accepted on decode only (see Category).
type Claims struct {
	DisplayName string   `json:"name,omitempty"`
	Role        string   `json:"role,omitempty"`
	RoleCat     string   `json:"role_category,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
	TenantID    string   `json:"tenant_id,omitempty"`
	TenantName  string   `json:"tenant_name,omitempty"`

	// Legacy category spellings emitted by the previous system.
	// Never written by Sign; narrow compatibility decode only.
	LegacyRoleCategory string `json:"roleCategory,omitempty"`
	LegacyPanel        string `json:"panel,omitempty"`

	jwt.RegisteredClaims
}

// Category returns the raw category claim, checking the legacy field
// names in priority order: roleCategory, role_category, panel. The
// result still needs normalization through the panel resolver.
func (c *Claims) Category() string {
	if c.LegacyRoleCategory != "" {
		return c.LegacyRoleCategory
	}
	if c.RoleCat != "" {
		return c.RoleCat
	}
	return c.LegacyPanel
}

// Signer signs and verifies credentials with an HMAC secret.
type Signer struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewSigner creates a signer. A zero ttl falls back to DefaultTTL.
func NewSigner(secret, issuer string, ttl time.Duration) *Signer {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Signer{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
	}
}

// TTL returns the signer's expiry window.
func (s *Signer) TTL() time.Duration {
	return s.ttl
}

// Sign stamps issuer, issue time, and the fixed expiry window onto the
// claims and returns the signed compact serialization.
func (s *Signer) Sign(claims Claims) (string, error) {
	now := time.Now()
	claims.Issuer = s.issuer
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(s.ttl))

	// The canonical field is the only one written.
	claims.LegacyRoleCategory = ""
	claims.LegacyPanel = ""

	return jwt.NewWithClaims(jwt.SigningMethodHS256, &claims).SignedString(s.secret)
}

// Verify parses and validates a compact credential. Any failure,
// signature, expiry, or algorithm mismatch, collapses into
// ErrInvalidToken: a malformed credential must look exactly like a
// missing one to downstream callers.
func (s *Signer) Verify(raw string) (*Claims, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !tok.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
