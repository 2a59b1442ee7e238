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

// Package capability holds the per-request permission snapshot used by
// UI-facing code to hide or show affordances. It is advisory only: the
// gate and the store-side checks are the security boundary, never this
// package.
package capability

import (
	"context"
	"strings"
)

// Set is an immutable, normalized permission membership. It is built
// once per request from verified credential claims and passed down
// explicitly; it is never mutated in place.
type Set struct {
	perms map[string]struct{}
}

// NewSet builds a Set from permission names, trimming and
// lower-casing each entry.
func NewSet(permissions []string) Set {
	perms := make(map[string]struct{}, len(permissions))
	for _, p := range permissions {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		perms[p] = struct{}{}
	}
	return Set{perms: perms}
}

// Can reports whether the set carries the given capability token.
func (s Set) Can(token string) bool {
	_, ok := s.perms[strings.ToLower(strings.TrimSpace(token))]
	return ok
}

// CanAny reports whether the set carries at least one of the tokens.
func (s Set) CanAny(tokens ...string) bool {
	for _, t := range tokens {
		if s.Can(t) {
			return true
		}
	}
	return false
}

// CanAll reports whether the set carries every one of the tokens.
func (s Set) CanAll(tokens ...string) bool {
	for _, t := range tokens {
		if !s.Can(t) {
			return false
		}
	}
	return true
}

// Len returns the number of distinct capabilities in the set.
func (s Set) Len() int {
	return len(s.perms)
}

// List returns the normalized capability tokens, order unspecified.
func (s Set) List() []string {
	out := make([]string, 0, len(s.perms))
	for p := range s.perms {
		out = append(out, p)
	}
	return out
}

type contextKey struct{}

// WithSet returns a context carrying the capability set.
func WithSet(ctx context.Context, s Set) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext retrieves the capability set from context. A request
// that carried no credential yields the empty set.
func FromContext(ctx context.Context) Set {
	if s, ok := ctx.Value(contextKey{}).(Set); ok {
		return s
	}
	return Set{}
}
