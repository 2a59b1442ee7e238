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
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/factora/factora/internal/audit"
	"github.com/factora/factora/internal/capability"
	"github.com/factora/factora/internal/gate"
	"github.com/factora/factora/internal/observability/logger"
	"github.com/factora/factora/internal/token"
)

// LoggingMiddleware logs HTTP requests
func LoggingMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			slog.InfoContext(r.Context(), "http_request_start",
				logger.RequestID(middleware.GetReqID(r.Context())),
				logger.Method(r.Method),
				logger.Path(r.URL.Path),
				logger.RemoteAddr(r.RemoteAddr),
			)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				slog.InfoContext(r.Context(), "http_request_end",
					logger.RequestID(middleware.GetReqID(r.Context())),
					logger.Method(r.Method),
					logger.Path(r.URL.Path),
					logger.RemoteAddr(r.RemoteAddr),
					logger.UserAgent(r.UserAgent()),
					logger.StatusCode(ww.Status()),
					logger.Duration(time.Since(start).Milliseconds()),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

// GateMiddleware runs every panel navigation request through the
// authorization gate. The gate never answers 401/403 on these routes;
// a caller who may not see a path is redirected to sign-in or to the
// dashboard of the panel they do hold.
//
// A credential that fails verification for any reason (absent,
// malformed, expired, bad signature) degrades to the anonymous
// membership rather than producing an error response.
func (h *Handler) GateMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := h.verifiedClaims(r)
		m := gate.NewMembership(claims)
		decision := h.gate.Evaluate(r.URL.Path, m)

		slog.DebugContext(r.Context(), "gate_decision",
			logger.Path(r.URL.Path),
			logger.RouteClass(decision.Route.Class.String()),
			logger.Decision(decision.Action.String()),
			logger.Target(decision.Target),
			logger.Locale(decision.Route.Locale),
		)

		// Verbose diagnostics go to the audit sink, never to the
		// response body.
		if decision.Action != gate.ActionPass {
			h.auditLogger.Log(r.Context(), audit.Event{
				Type:      audit.TypeGateDecision,
				ActorID:   m.Subject,
				Resource:  r.URL.Path,
				IPAddress: getIPAddress(r),
				UserAgent: r.UserAgent(),
				Metadata: map[string]any{
					"route_class":   decision.Route.Class.String(),
					"action":        decision.Action.String(),
					"target":        decision.Target,
					"authenticated": m.Authenticated,
					"category":      string(m.Category),
					"admin_panel":   m.HasAdminPanel,
					"client_panel":  m.HasClientPanel,
				},
			})
		}

		switch decision.Action {
		case gate.ActionRedirect:
			http.Redirect(w, r, decision.Target, http.StatusFound)
			return
		case gate.ActionRewrite:
			// Served at the original URL; only the routed path changes.
			r.URL.Path = decision.Target
		}

		next.ServeHTTP(w, r.WithContext(h.injectIdentity(r.Context(), claims)))
	})
}

// AuthMiddleware protects the JSON API. Unlike the gate, API routes
// answer 401 directly: their callers are scripts, not browsers
// navigating panels.
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := h.verifiedClaims(r)
		if claims == nil {
			respondError(w, http.StatusUnauthorized, "not authenticated")
			return
		}

		next.ServeHTTP(w, r.WithContext(h.injectIdentity(r.Context(), claims)))
	})
}

// RequirePermission gates an API route on one capability token.
func (h *Handler) RequirePermission(perm string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			set := capability.FromContext(r.Context())
			if !set.Can(perm) {
				h.auditLogger.Log(r.Context(), audit.Event{
					Type:      audit.TypeCapabilityCheck,
					ActorID:   GetUserID(r.Context()),
					Resource:  r.URL.Path,
					IPAddress: getIPAddress(r),
					Metadata:  map[string]any{"permission": perm, "granted": false},
				})
				respondError(w, http.StatusForbidden, "insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// verifiedClaims extracts and verifies the credential from the
// Authorization header or the token cookie. Nil on any failure.
func (h *Handler) verifiedClaims(r *http.Request) *token.Claims {
	raw := ""
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		raw = strings.TrimPrefix(auth, "Bearer ")
	} else if cookie, err := r.Cookie(h.tokenConfig.CookieName); err == nil {
		raw = cookie.Value
	}
	if raw == "" {
		return nil
	}

	claims, err := h.signer.Verify(raw)
	if err != nil {
		return nil
	}
	return claims
}

// injectIdentity places the verified claims, user id, and capability
// set on the context. A nil claims value leaves the context untouched.
func (h *Handler) injectIdentity(ctx context.Context, claims *token.Claims) context.Context {
	if claims == nil {
		return ctx
	}
	ctx = context.WithValue(ctx, claimsKey, claims)
	ctx = context.WithValue(ctx, userIDKey, claims.Subject)
	return capability.WithSet(ctx, capability.NewSet(claims.Permissions))
}
