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

package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/factora/factora/internal/audit"
	"github.com/factora/factora/internal/catalog"
	"github.com/factora/factora/internal/gate"
	"github.com/factora/factora/internal/identity"
	"github.com/factora/factora/internal/panel"
	"github.com/factora/factora/internal/role"
	"github.com/factora/factora/internal/tenant"
	"github.com/factora/factora/internal/token"
)

const testSecret = "test-signing-secret-for-http-tests"

// In-memory repositories backing the full router under test.

type memUserRepo struct {
	users map[string]*identity.User
}

func (m *memUserRepo) Create(ctx context.Context, u *identity.User) error {
	for _, existing := range m.users {
		if existing.Username == u.Username || existing.DisplayName == u.DisplayName {
			return identity.ErrUserAlreadyExists
		}
	}
	m.users[u.ID] = u
	return nil
}

func (m *memUserRepo) GetByIdentifier(ctx context.Context, identifier string) (*identity.User, error) {
	for _, u := range m.users {
		if u.Username == identifier || u.DisplayName == identifier {
			return u, nil
		}
	}
	return nil, identity.ErrUserNotFound
}

func (m *memUserRepo) GetByID(ctx context.Context, id string) (*identity.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, identity.ErrUserNotFound
	}
	return u, nil
}

func (m *memUserRepo) TouchActivity(ctx context.Context, userID string, at time.Time) error {
	return nil
}

type memRoleRepo struct {
	roles       map[string]*role.Role
	assignments map[string][]string
	permNames   map[string][]string
}

func (m *memRoleRepo) Create(ctx context.Context, r *role.Role) error {
	m.roles[r.ID] = r
	m.assignments[r.ID] = []string{}
	return nil
}

func (m *memRoleRepo) GetByID(ctx context.Context, id string) (*role.Role, error) {
	r, ok := m.roles[id]
	if !ok {
		return nil, role.ErrRoleNotFound
	}
	return r, nil
}

func (m *memRoleRepo) Update(ctx context.Context, r *role.Role) error {
	if _, ok := m.roles[r.ID]; !ok {
		return role.ErrRoleNotFound
	}
	m.roles[r.ID] = r
	return nil
}

func (m *memRoleRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.roles[id]; !ok {
		return role.ErrRoleNotFound
	}
	delete(m.roles, id)
	delete(m.assignments, id)
	return nil
}

func (m *memRoleRepo) List(ctx context.Context) ([]*role.Role, error) {
	out := []*role.Role{}
	for _, r := range m.roles {
		out = append(out, r)
	}
	return out, nil
}

func (m *memRoleRepo) ListPermissionIDs(ctx context.Context, roleID string) ([]string, error) {
	ids, ok := m.assignments[roleID]
	if !ok {
		return nil, role.ErrRoleNotFound
	}
	sorted := append([]string{}, ids...)
	sort.Strings(sorted)
	return sorted, nil
}

func (m *memRoleRepo) ListPermissionNames(ctx context.Context, roleID string) ([]string, error) {
	return m.permNames[roleID], nil
}

func (m *memRoleRepo) ReplacePermissions(ctx context.Context, roleID string, target []string) (bool, error) {
	if _, ok := m.roles[roleID]; !ok {
		return false, role.ErrRoleNotFound
	}
	m.assignments[roleID] = append([]string{}, target...)
	return true, nil
}

type memCatalogRepo struct {
	perms []*catalog.Permission
}

func (m *memCatalogRepo) List(ctx context.Context) ([]*catalog.Permission, error) {
	return m.perms, nil
}

func (m *memCatalogRepo) ListBySection(ctx context.Context) ([]*catalog.Section, error) {
	return []*catalog.Section{{Name: "test", Permissions: m.perms}}, nil
}

func (m *memCatalogRepo) GetByIDs(ctx context.Context, ids []string) ([]*catalog.Permission, error) {
	out := []*catalog.Permission{}
	for _, pid := range ids {
		for _, p := range m.perms {
			if p.ID == pid {
				out = append(out, p)
			}
		}
	}
	return out, nil
}

func (m *memCatalogRepo) GetByNames(ctx context.Context, names []string) ([]*catalog.Permission, error) {
	return []*catalog.Permission{}, nil
}

type memTenantRepo struct{}

func (m *memTenantRepo) GetByID(ctx context.Context, id string) (*tenant.Tenant, error) {
	return &tenant.Tenant{ID: id, Name: "Acme SA"}, nil
}
func (m *memTenantRepo) Create(ctx context.Context, t *tenant.Tenant) error { return nil }

type testEnv struct {
	router http.Handler
	signer *token.Signer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	userRepo := &memUserRepo{users: make(map[string]*identity.User)}
	roleRepo := &memRoleRepo{
		roles:       make(map[string]*role.Role),
		assignments: make(map[string][]string),
		permNames:   make(map[string][]string),
	}
	catalogRepo := &memCatalogRepo{perms: []*catalog.Permission{
		{ID: "p1", Name: "admin"},
		{ID: "p2", Name: "users.manage"},
		{ID: "p3", Name: "roles.manage"},
		{ID: "p4", Name: "client"},
	}}

	auditLogger := audit.NewSlogLogger()
	hasher := identity.NewPasswordHasher(8192, 1, 1, 16, 32)
	identityService := identity.NewService(userRepo, hasher, auditLogger)
	roleService := role.NewService(roleRepo, catalogRepo, auditLogger)

	signer := token.NewSigner(testSecret, "factora", time.Hour)
	issuer := token.NewIssuer(identityService, roleRepo, &memTenantRepo{}, signer, auditLogger)

	// Seed an administrator role and account.
	adminRole := &role.Role{ID: "role-admin", Name: "Administrator", Active: true, Category: panel.CategoryAdmin}
	require.NoError(t, roleRepo.Create(context.Background(), adminRole))
	roleRepo.permNames["role-admin"] = []string{"admin", "users.manage", "roles.manage"}

	_, err := identityService.Register(context.Background(), "tenant-1", "role-admin", "mgarcia", "Maria Garcia", "SecurePassword123")
	require.NoError(t, err)

	handler := NewHandler(
		identityService, roleService, catalogRepo, issuer, signer,
		gate.New(gate.Config{DefaultLocale: "es", Locales: []string{"es", "en"}}),
		auditLogger,
		TokenConfig{CookieName: "factora_token", CookiePath: "/", CookieHTTPOnly: true},
	)

	return &testEnv{
		router: NewRouter(handler, NewRateLimiter(1000, 1000)),
		signer: signer,
	}
}

func (e *testEnv) signToken(t *testing.T, category string, permissions []string) string {
	t.Helper()
	signed, err := e.signer.Sign(token.Claims{
		DisplayName: "Maria Garcia",
		Role:        "Administrator",
		RoleCat:     category,
		Permissions: permissions,
		TenantID:    "tenant-1",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: "user-1",
		},
	})
	require.NoError(t, err)
	return signed
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func TestHealthCheck(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)

	body, _ := json.Marshal(map[string]string{
		"identifier": "mgarcia",
		"password":   "SecurePassword123",
	})
	rec := env.do(httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Token     string        `json:"token"`
		User      identity.View `json:"user"`
		ExpiresIn int           `json:"expires_in"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "mgarcia", resp.User.Username)
	assert.Equal(t, 3600, resp.ExpiresIn)

	// The credential is also set as an HTTP-only cookie.
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "factora_token", cookies[0].Name)
	assert.Equal(t, resp.Token, cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)

	// The issued credential verifies and carries the role snapshot.
	claims, err := env.signer.Verify(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Category())
	assert.Contains(t, claims.Permissions, "roles.manage")
}

func TestLogin_Failures(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"wrong password", `{"identifier":"mgarcia","password":"nope-nope"}`, http.StatusUnauthorized},
		{"unknown user", `{"identifier":"ghost","password":"SecurePassword123"}`, http.StatusUnauthorized},
		{"missing fields", `{"identifier":"mgarcia"}`, http.StatusBadRequest},
		{"malformed body", `{`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
				bytes.NewReader([]byte(tt.body))))
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Empty(t, rec.Result().Cookies(), "no cookie on failed login")
		})
	}
}

func TestGate_AnonymousRedirectedToSignIn(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/admin/users", "/es/admin/users", "/client/invoices", "/"} {
		rec := env.do(httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusFound, rec.Code, "path %s", path)
		assert.Equal(t, "/es/sign-in", rec.Header().Get("Location"), "path %s", path)
	}
}

func TestGate_RootRedirectsByPanel(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+env.signToken(t, "admin", []string{"admin"}))
	rec := env.do(req)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/es/admin/dashboard", rec.Header().Get("Location"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+env.signToken(t, "client", []string{"client"}))
	rec = env.do(req)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/es/client/dashboard", rec.Header().Get("Location"))
}

func TestGate_AliasRewriteForAdmin(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/cotizaciones", nil)
	req.AddCookie(&http.Cookie{Name: "factora_token", Value: env.signToken(t, "admin", []string{"admin"})})
	rec := env.do(req)

	// Rewrites serve at the original URL; the panel shell sees the
	// canonical path.
	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "/es/admin/quotes", resp["path"])
}

func TestGate_AliasSendsClientToDashboard(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/facturas", nil)
	req.AddCookie(&http.Cookie{Name: "factora_token", Value: env.signToken(t, "client", []string{"client"})})
	rec := env.do(req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "/es/client/dashboard", resp["path"])
}

func TestGate_WrongPanelRedirected(t *testing.T) {
	env := newTestEnv(t)

	// Client credential on an admin path bounces to the client
	// dashboard, never a 403.
	req := httptest.NewRequest(http.MethodGet, "/es/admin/users", nil)
	req.Header.Set("Authorization", "Bearer "+env.signToken(t, "client", []string{"client"}))
	rec := env.do(req)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/es/client/dashboard", rec.Header().Get("Location"))

	req = httptest.NewRequest(http.MethodGet, "/es/client/invoices", nil)
	req.Header.Set("Authorization", "Bearer "+env.signToken(t, "admin", []string{"admin"}))
	rec = env.do(req)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/es/admin/dashboard", rec.Header().Get("Location"))
}

func TestGate_ExpiredCredentialIsAnonymous(t *testing.T) {
	env := newTestEnv(t)

	past := time.Now().Add(-2 * time.Hour)
	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, &token.Claims{
		RoleCat: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			IssuedAt:  jwt.NewNumericDate(past),
			ExpiresAt: jwt.NewNumericDate(past.Add(time.Hour)),
		},
	})
	signed, err := expired.SignedString([]byte(testSecret))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/es/admin/users", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rec := env.do(req)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/es/sign-in", rec.Header().Get("Location"))
}

func TestGate_UnclassifiedPathPasses(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/about", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthMiddleware_RejectsAnonymousAPI(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/v1/roles/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/roles/", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec = env.do(req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequirePermission(t *testing.T) {
	env := newTestEnv(t)

	// A client credential without roles.manage is refused.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/roles/", nil)
	req.Header.Set("Authorization", "Bearer "+env.signToken(t, "client", []string{"client"}))
	rec := env.do(req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/roles/", nil)
	req.Header.Set("Authorization", "Bearer "+env.signToken(t, "admin", []string{"admin", "roles.manage"}))
	rec = env.do(req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRoleAPI_CRUDAndReplace(t *testing.T) {
	env := newTestEnv(t)
	auth := "Bearer " + env.signToken(t, "admin", []string{"admin", "roles.manage"})

	post := func(path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader([]byte(body)))
		req.Header.Set("Authorization", auth)
		return env.do(req)
	}
	put := func(path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPut, path, bytes.NewReader([]byte(body)))
		req.Header.Set("Authorization", auth)
		return env.do(req)
	}
	get := func(path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Authorization", auth)
		return env.do(req)
	}

	// Create
	rec := post("/api/v1/roles/", `{"name":"Contador","category":"admin"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created RoleResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "admin", created.Category)
	assert.True(t, created.Active)

	// Create rejections
	assert.Equal(t, http.StatusBadRequest, post("/api/v1/roles/", `{"name":"X","category":"superuser"}`).Code)
	assert.Equal(t, http.StatusBadRequest, post("/api/v1/roles/", `{"category":"admin"}`).Code)

	// Replace permissions
	rec = put("/api/v1/roles/"+created.ID+"/permissions", `{"permission_ids":["p1","p2"]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = get("/api/v1/roles/" + created.ID + "/permissions")
	require.Equal(t, http.StatusOK, rec.Code)
	var perms struct {
		PermissionIDs []string `json:"permission_ids"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &perms))
	assert.Equal(t, []string{"p1", "p2"}, perms.PermissionIDs)

	// Replace rejections
	assert.Equal(t, http.StatusBadRequest,
		put("/api/v1/roles/"+created.ID+"/permissions", `{"permission_ids":[]}`).Code)
	assert.Equal(t, http.StatusBadRequest,
		put("/api/v1/roles/"+created.ID+"/permissions", `{"permission_ids":["p1","not-a-uuid-or-known"]}`).Code)
	assert.Equal(t, http.StatusNotFound,
		put("/api/v1/roles/role-missing/permissions", `{"permission_ids":["p1"]}`).Code)

	// Update
	rec = put("/api/v1/roles/"+created.ID+"/", `{"category":"client","active":false}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var updated RoleResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, "client", updated.Category)
	assert.False(t, updated.Active)

	// Delete
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/roles/"+created.ID+"/", nil)
	req.Header.Set("Authorization", auth)
	assert.Equal(t, http.StatusOK, env.do(req).Code)
	assert.Equal(t, http.StatusNotFound, get("/api/v1/roles/"+created.ID+"/").Code)
}

func TestRegisterAPI(t *testing.T) {
	env := newTestEnv(t)
	auth := "Bearer " + env.signToken(t, "admin", []string{"admin", "users.manage"})

	body := `{"tenant_id":"30000000-0000-0000-0000-000000000000","role_id":"20000000-0000-0000-0000-000000000001","username":"jlopez","display_name":"Juan Lopez","password":"AnotherSecret99"}`

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", bytes.NewReader([]byte(body)))
	req.Header.Set("Authorization", auth)
	rec := env.do(req)
	require.Equal(t, http.StatusCreated, rec.Code)

	// Duplicate
	req = httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", bytes.NewReader([]byte(body)))
	req.Header.Set("Authorization", auth)
	assert.Equal(t, http.StatusConflict, env.do(req).Code)

	// Missing permission
	req = httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", bytes.NewReader([]byte(body)))
	req.Header.Set("Authorization", "Bearer "+env.signToken(t, "client", []string{"client"}))
	assert.Equal(t, http.StatusForbidden, env.do(req).Code)
}

func TestGetCurrentUser(t *testing.T) {
	env := newTestEnv(t)

	// Log in for a credential whose subject exists in the repo.
	body, _ := json.Marshal(map[string]string{
		"identifier": "mgarcia",
		"password":   "SecurePassword123",
	})
	rec := env.do(httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)
	var login struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &login))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+login.Token)
	rec = env.do(req)
	require.Equal(t, http.StatusOK, rec.Code)

	var me struct {
		User        identity.View `json:"user"`
		Role        string        `json:"role"`
		Category    string        `json:"role_category"`
		Permissions []string      `json:"permissions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	assert.Equal(t, "mgarcia", me.User.Username)
	assert.Equal(t, "Administrator", me.Role)
	assert.Equal(t, "admin", me.Category)
	assert.Contains(t, me.Permissions, "roles.manage")
}
