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

package catalog

// Section labels used by the seeded catalog.
const (
	SectionBilling        = "billing"
	SectionAdministration = "administration"
	SectionPortal         = "portal"
)

// Seeded permission names. "admin" and "client" are the bare panel
// tokens; the gate also honors them when a credential predates the
// explicit category claim.
const (
	PermAdminPanel  = "admin"
	PermClientPanel = "client"

	PermUsersManage = "users.manage"
	PermRolesManage = "roles.manage"

	PermInvoicesView   = "invoices.view"
	PermInvoicesManage = "invoices.manage"
	PermPaymentsView   = "payments.view"
	PermPaymentsManage = "payments.manage"
	PermQuotesView     = "quotes.view"
	PermQuotesManage   = "quotes.manage"
	PermServicesView   = "services.view"
	PermServicesManage = "services.manage"
)

// System-defined permission IDs from the initial schema migration
// (001_initial_schema.up.sql). Seeded during database initialization
// and must remain stable.
const (
	PermissionIDAdminPanel     = "10000000-0000-0000-0000-000000000001"
	PermissionIDClientPanel    = "10000000-0000-0000-0000-000000000002"
	PermissionIDUsersManage    = "10000000-0000-0000-0000-000000000003"
	PermissionIDRolesManage    = "10000000-0000-0000-0000-000000000004"
	PermissionIDInvoicesView   = "10000000-0000-0000-0000-000000000005"
	PermissionIDInvoicesManage = "10000000-0000-0000-0000-000000000006"
	PermissionIDPaymentsView   = "10000000-0000-0000-0000-000000000007"
	PermissionIDPaymentsManage = "10000000-0000-0000-0000-000000000008"
	PermissionIDQuotesView     = "10000000-0000-0000-0000-000000000009"
	PermissionIDQuotesManage   = "10000000-0000-0000-0000-00000000000a"
	PermissionIDServicesView   = "10000000-0000-0000-0000-00000000000b"
	PermissionIDServicesManage = "10000000-0000-0000-0000-00000000000c"
)

// System-defined role IDs from the initial schema migration.
const (
	RoleIDAdministrator = "20000000-0000-0000-0000-000000000001"
	RoleIDClientPortal  = "20000000-0000-0000-0000-000000000002"
)

// SystemTenantID is the pre-seeded tenant used for initial bootstrap.
const SystemTenantID = "30000000-0000-0000-0000-000000000000"
