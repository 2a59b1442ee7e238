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
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/factora/factora/internal/audit"
	"github.com/factora/factora/internal/capability"
	"github.com/factora/factora/internal/catalog"
	"github.com/factora/factora/internal/gate"
	"github.com/factora/factora/internal/identity"
	"github.com/factora/factora/internal/observability/logger"
	"github.com/factora/factora/internal/role"
	"github.com/factora/factora/internal/token"
)

// Handler holds HTTP handlers and dependencies
type Handler struct {
	identityService *identity.Service
	roleService     *role.Service
	catalogRepo     catalog.Repository
	issuer          *token.Issuer
	signer          *token.Signer
	gate            *gate.Gate
	auditLogger     audit.Logger
	tokenConfig     TokenConfig
	validate        *validator.Validate
}

// TokenConfig holds credential cookie configuration
type TokenConfig struct {
	CookieName     string
	CookieDomain   string
	CookiePath     string
	CookieSecure   bool
	CookieHTTPOnly bool
}

// NewHandler creates a new HTTP handler
func NewHandler(
	identityService *identity.Service,
	roleService *role.Service,
	catalogRepo catalog.Repository,
	issuer *token.Issuer,
	signer *token.Signer,
	g *gate.Gate,
	auditLogger audit.Logger,
	tokenConfig TokenConfig,
) *Handler {
	return &Handler{
		identityService: identityService,
		roleService:     roleService,
		catalogRepo:     catalogRepo,
		issuer:          issuer,
		signer:          signer,
		gate:            g,
		auditLogger:     auditLogger,
		tokenConfig:     tokenConfig,
		validate:        validator.New(validator.WithRequiredStructEnabled()),
	}
}

// NewRouter creates a new HTTP router
func NewRouter(h *Handler, rateLimiter *RateLimiter) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(RateLimitMiddleware(rateLimiter))
	r.Use(func(handler http.Handler) http.Handler {
		return otelhttp.NewHandler(handler, "http_request",
			otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}),
		)
	})
	r.Use(LoggingMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// Health check
	r.Get("/health", h.HealthCheck)

	// JSON API
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", h.Login)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(h.AuthMiddleware)

			r.Get("/auth/me", h.GetCurrentUser)

			// Account provisioning is an administrator action, not
			// self-service signup.
			r.With(h.RequirePermission(catalog.PermUsersManage)).
				Post("/auth/register", h.Register)

			// Role administration
			r.Group(func(r chi.Router) {
				r.Use(h.RequirePermission(catalog.PermRolesManage))

				r.Get("/permissions", h.ListPermissions)
				r.Get("/permissions/sections", h.ListPermissionSections)

				r.Route("/roles", func(r chi.Router) {
					r.Get("/", h.ListRoles)
					r.Post("/", h.CreateRole)
					r.Route("/{roleID}", func(r chi.Router) {
						r.Get("/", h.GetRole)
						r.Put("/", h.UpdateRole)
						r.Delete("/", h.DeleteRole)
						r.Get("/permissions", h.GetRolePermissions)
						r.Put("/permissions", h.ReplaceRolePermissions)
					})
				})
			})
		})
	})

	// Everything else is panel navigation and goes through the gate.
	r.Group(func(r chi.Router) {
		r.Use(h.GateMiddleware)
		r.HandleFunc("/*", h.PanelPage)
		r.HandleFunc("/", h.PanelPage)
	})

	return r
}

// HealthCheck returns the health status
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "factora",
	})
}

// LoginRequest represents login credentials. Identifier matches a
// username or a display name.
type LoginRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

// Login authenticates the caller and issues the signed credential,
// returned in the body and set as an HTTP-only cookie for browser
// navigation through the gate.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		respondError(w, http.StatusBadRequest, "identifier and password are required")
		return
	}

	signed, user, err := h.issuer.Issue(r.Context(), req.Identifier, req.Password)
	if err != nil {
		h.auditLogger.Log(r.Context(), audit.Event{
			Type:      audit.TypeLoginFailed,
			Resource:  req.Identifier,
			IPAddress: getIPAddress(r),
			UserAgent: r.UserAgent(),
			Metadata:  map[string]any{"reason": "invalid_credentials"},
		})
		// Unknown identifier and wrong password are deliberately
		// indistinguishable to the caller.
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	h.setTokenCookie(w, signed)

	h.auditLogger.Log(r.Context(), audit.Event{
		Type:      audit.TypeLoginSuccess,
		TenantID:  user.TenantID,
		ActorID:   user.ID,
		Resource:  "credential",
		IPAddress: getIPAddress(r),
		UserAgent: r.UserAgent(),
	})

	respondJSON(w, http.StatusOK, map[string]any{
		"token":      signed,
		"user":       user,
		"expires_in": int(h.signer.TTL().Seconds()),
	})
}

// RegisterRequest represents account provisioning data
type RegisterRequest struct {
	TenantID    string `json:"tenant_id" validate:"required,uuid"`
	RoleID      string `json:"role_id" validate:"required,uuid"`
	Username    string `json:"username" validate:"required,min=3"`
	DisplayName string `json:"display_name" validate:"required"`
	Password    string `json:"password" validate:"required,min=8"`
}

// Register provisions a new user account
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		respondError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	user, err := h.identityService.Register(
		r.Context(), req.TenantID, req.RoleID,
		req.Username, req.DisplayName, req.Password,
	)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to provision user",
			logger.Error(err),
			logger.Username(req.Username),
		)

		switch {
		case errors.Is(err, identity.ErrUserAlreadyExists):
			respondError(w, http.StatusConflict, "user already exists")
		case errors.Is(err, identity.ErrWeakPassword):
			respondError(w, http.StatusBadRequest, "password does not meet security requirements")
		default:
			respondError(w, http.StatusInternalServerError, "failed to create user")
		}
		return
	}

	respondJSON(w, http.StatusCreated, user.Redacted())
}

// GetCurrentUser returns the authenticated identity together with the
// capability context carried by the credential.
func (h *Handler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	set := capability.FromContext(r.Context())

	user, err := h.identityService.GetUser(r.Context(), claims.Subject)
	if err != nil {
		respondError(w, http.StatusNotFound, "user not found")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"user":          user.Redacted(),
		"role":          claims.Role,
		"role_category": claims.Category(),
		"tenant_name":   claims.TenantName,
		"permissions":   set.List(),
	})
}

// PanelPage answers a gated navigation request with the resolved
// route. The single-page panel shell bootstraps itself from this
// payload: resolved module, locale, and the caller's capability set.
func (h *Handler) PanelPage(w http.ResponseWriter, r *http.Request) {
	set := capability.FromContext(r.Context())
	claims := GetClaims(r.Context())

	payload := map[string]any{
		"path":        r.URL.Path,
		"permissions": set.List(),
	}
	if claims != nil {
		payload["user"] = claims.DisplayName
		payload["role"] = claims.Role
		payload["role_category"] = claims.Category()
		payload["tenant_name"] = claims.TenantName
	}

	respondJSON(w, http.StatusOK, payload)
}

// Helper functions
func (h *Handler) setTokenCookie(w http.ResponseWriter, signed string) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.tokenConfig.CookieName,
		Value:    signed,
		Path:     h.tokenConfig.CookiePath,
		Domain:   h.tokenConfig.CookieDomain,
		Secure:   h.tokenConfig.CookieSecure,
		HttpOnly: h.tokenConfig.CookieHTTPOnly,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(h.signer.TTL().Seconds()),
	})
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// validationMessage flattens the first field error into a stable,
// non-reflective message.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return "invalid field: " + verrs[0].Field()
	}
	return "invalid request"
}

func getIPAddress(r *http.Request) string {
	// Check X-Forwarded-For header first
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	// Check X-Real-IP header
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}
