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

package panel

import (
	"errors"
	"strings"
)

// Domain errors
var (
	ErrInvalidCategory = errors.New("invalid panel category")
)

// Category is one of the two canonical audiences a role serves.
// Only the canonical values are persisted or emitted on the wire;
// aliases are an input-normalization concern.
type Category string

const (
	CategoryAdmin  Category = "admin"
	CategoryClient Category = "client"

	// CategoryGeneral is a fallback bucket used only at credential
	// issuance when neither the role's category field nor its
	// permission names resolve. It is never stored on a role.
	CategoryGeneral Category = "general"
)

// Accepted aliases per canonical category, matched after trim and
// lower-casing. Legacy data seeded from the earlier system carries
// the panel_-prefixed and Spanish variants.
var aliases = map[string]Category{
	"admin":        CategoryAdmin,
	"panel_admin":  CategoryAdmin,
	"client":       CategoryClient,
	"cliente":      CategoryClient,
	"panel_client": CategoryClient,
}

// Normalize maps a free-form category label to its canonical Category.
// It returns ErrInvalidCategory when the input, after trimming and
// lower-casing, matches no known alias (including empty input).
func Normalize(raw string) (Category, error) {
	if c, ok := Detect(raw); ok {
		return c, nil
	}
	return "", ErrInvalidCategory
}

// Detect is the non-failing variant of Normalize for call sites that
// must tolerate a malformed record without aborting the whole
// operation. The second return is false when no alias matches.
func Detect(raw string) (Category, bool) {
	c, ok := aliases[strings.ToLower(strings.TrimSpace(raw))]
	return c, ok
}

// DetectFromPermission infers a category from a bare permission token.
// It performs the same alias lookup as Detect and exists only as a
// legacy fallback for roles that predate the explicit category column.
func DetectFromPermission(name string) (Category, bool) {
	return Detect(name)
}

// Valid reports whether c is a canonical storable category.
func Valid(c Category) bool {
	return c == CategoryAdmin || c == CategoryClient
}
