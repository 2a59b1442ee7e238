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

// Package catalog holds the static capability-permission catalog.
// Entries are created and removed only by schema migration, never by
// request-time flows. The catalog is read-only once the process is up.
package catalog

import (
	"context"
	"errors"
	"time"
)

// Domain errors
var (
	ErrPermissionNotFound = errors.New("permission not found")
)

// Permission is a single capability token. Name is the unique display
// token carried in credentials; Section is an optional grouping label
// for the administration UI.
type Permission struct {
	ID        string
	Name      string
	Section   string
	CreatedAt time.Time
}

// Section groups catalog entries for the grouped read used by the
// role-editing surface.
type Section struct {
	Name        string
	Permissions []*Permission
}

// Repository defines the interface for catalog reads.
type Repository interface {
	// List retrieves the full catalog ordered by section, then name.
	List(ctx context.Context) ([]*Permission, error)

	// ListBySection retrieves the catalog grouped by section label.
	ListBySection(ctx context.Context) ([]*Section, error)

	// GetByIDs retrieves the permissions for a set of ids. Ids absent
	// from the catalog are simply missing from the result; the caller
	// decides whether that is an error.
	GetByIDs(ctx context.Context, ids []string) ([]*Permission, error)

	// GetByNames retrieves the permissions matching the given names.
	GetByNames(ctx context.Context, names []string) ([]*Permission, error)
}
