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

package gate

import (
	"strings"

	"github.com/factora/factora/internal/panel"
	"github.com/factora/factora/internal/token"
)

// Membership is the normalized authorization view of one request's
// credential claims. The zero value is the anonymous caller.
type Membership struct {
	Authenticated  bool
	Subject        string
	Category       panel.Category
	Permissions    []string
	HasAdminPanel  bool
	HasClientPanel bool
}

// NewMembership normalizes verified claims into panel membership. A
// nil claims value (missing, malformed, or expired credential) yields
// the anonymous membership; the distinction is decided later by route
// class, not here.
func NewMembership(claims *token.Claims) Membership {
	if claims == nil {
		return Membership{}
	}

	perms := make([]string, 0, len(claims.Permissions))
	for _, p := range claims.Permissions {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			perms = append(perms, p)
		}
	}

	m := Membership{
		Authenticated: true,
		Subject:       claims.Subject,
		Permissions:   perms,
	}

	// The category claim goes through the non-failing resolver: one
	// malformed legacy record must not take the whole request down.
	if c, ok := panel.Detect(claims.Category()); ok {
		m.Category = c
	}

	m.HasAdminPanel = m.Category == panel.CategoryAdmin || contains(perms, "admin")
	m.HasClientPanel = m.Category == panel.CategoryClient ||
		contains(perms, "client") || contains(perms, "cliente")

	return m
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
