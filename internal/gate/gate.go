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

// Package gate decides, per request, which panel a caller may reach
// and how the path is rewritten or redirected. Classification and the
// decision procedure are pure; the HTTP middleware in transport/http
// applies the resulting Decision. Authorization failures are always
// expressed as redirects to sign-in or to the permitted panel's
// dashboard, never as 401/403 bodies, so route existence is not
// leaked.
package gate

import (
	"strings"
)

// RouteClass is the bucket a request path falls into before any
// authorization decision is made.
type RouteClass int

const (
	RouteUnclassified RouteClass = iota
	RouteRoot
	RouteAdminModule
	RouteClientModule
	RoutePublicAlias
	RouteAuthPage
)

func (c RouteClass) String() string {
	switch c {
	case RouteRoot:
		return "root"
	case RouteAdminModule:
		return "admin_module"
	case RouteClientModule:
		return "client_module"
	case RoutePublicAlias:
		return "public_alias"
	case RouteAuthPage:
		return "auth_page"
	default:
		return "unclassified"
	}
}

// Action is what the middleware does with the request.
type Action int

const (
	ActionPass Action = iota
	ActionRewrite
	ActionRedirect
)

func (a Action) String() string {
	switch a {
	case ActionRewrite:
		return "rewrite"
	case ActionRedirect:
		return "redirect"
	default:
		return "pass"
	}
}

// Route is the classification of one request path.
type Route struct {
	Class     RouteClass
	Locale    string // detected, or the configured fallback
	HasLocale bool   // whether the path carried a locale prefix
	Head      string // first segment after the locale strip
	Canonical string // alias-resolved head; equals Head when unmapped
	Path      string // locale-stripped path, leading slash, no trailing slash
	Rest      string // Path minus the head segment
}

// Decision is the outcome of evaluating one request. Target is set for
// rewrites (served at the same URL) and redirects (browser navigates).
type Decision struct {
	Action Action
	Target string
	Route  Route
}

// Config holds the gate's only configuration inputs.
type Config struct {
	// DefaultLocale is used when the path carries no locale prefix.
	DefaultLocale string

	// Locales is the set of recognized locale path prefixes.
	Locales []string

	// DevBypass skips the protected-route credential check. Panel
	// membership enforcement still runs.
	DevBypass bool
}

// Public aliases mapping legacy and localized slugs to canonical
// module names. Unmapped heads pass through unchanged.
var defaultAliases = map[string]string{
	"cotizaciones": "quotes",
	"facturas":     "invoices",
	"pagos":        "payments",
	"servicios":    "services",
	"inicio":       "dashboard",
}

// Gate evaluates request paths against panel membership.
type Gate struct {
	cfg     Config
	locales map[string]struct{}
	aliases map[string]string
}

// New creates a gate from config. The default locale is always part of
// the recognized set.
func New(cfg Config) *Gate {
	if cfg.DefaultLocale == "" {
		cfg.DefaultLocale = "es"
	}
	locales := make(map[string]struct{}, len(cfg.Locales)+1)
	locales[cfg.DefaultLocale] = struct{}{}
	for _, l := range cfg.Locales {
		locales[strings.ToLower(l)] = struct{}{}
	}
	return &Gate{
		cfg:     cfg,
		locales: locales,
		aliases: defaultAliases,
	}
}

// Classify buckets a request path into a route class, detecting the
// locale prefix and resolving the public-alias table.
func (g *Gate) Classify(path string) Route {
	segs := splitPath(path)

	rt := Route{
		Locale: g.cfg.DefaultLocale,
		Path:   "/",
	}

	if len(segs) > 0 {
		if _, ok := g.locales[strings.ToLower(segs[0])]; ok {
			rt.Locale = strings.ToLower(segs[0])
			rt.HasLocale = true
			segs = segs[1:]
		}
	}

	if len(segs) == 0 {
		rt.Class = RouteRoot
		return rt
	}

	rt.Head = strings.ToLower(segs[0])
	rt.Canonical = rt.Head
	rt.Rest = joinPath(segs[1:])
	rt.Path = "/" + rt.Head + rt.Rest

	aliased := false
	if canonical, ok := g.aliases[rt.Head]; ok {
		rt.Canonical = canonical
		aliased = true
	}

	switch {
	case rt.Head == "admin":
		rt.Class = RouteAdminModule
	case rt.Head == "client":
		rt.Class = RouteClientModule
	case rt.Head == "sign-in" || rt.Head == "sign-up":
		rt.Class = RouteAuthPage
	case aliased:
		rt.Class = RoutePublicAlias
	default:
		rt.Class = RouteUnclassified
	}

	return rt
}

// Evaluate runs the decision procedure: shortcuts, root resolution,
// alias rewrite, protection, panel-membership enforcement, and
// auth-page locale normalization, in that order, short-circuiting on
// the first redirect.
func (g *Gate) Evaluate(path string, m Membership) Decision {
	rt := g.Classify(path)
	locale := rt.Locale

	// A bare module root always bounces to its dashboard; authorization
	// is re-checked on the follow-up request.
	if rt.Class == RouteAdminModule && rt.Rest == "" {
		return redirect(rt, adminDashboard(locale))
	}
	if rt.Class == RouteClientModule && rt.Rest == "" {
		return redirect(rt, clientDashboard(locale))
	}

	if rt.Class == RouteRoot {
		switch {
		case m.HasAdminPanel:
			return redirect(rt, adminDashboard(locale))
		case m.HasClientPanel:
			return redirect(rt, clientDashboard(locale))
		default:
			return redirect(rt, signIn(locale))
		}
	}

	// Alias rewrite: compute the effective target conditioned on panel
	// membership. The response stays a rewrite (URL bar unchanged)
	// unless the caller has no panel at all.
	effective := rt.Path
	rewriteTarget := ""
	if rt.Class == RoutePublicAlias && rt.Canonical != "dashboard" {
		switch {
		case m.HasAdminPanel:
			effective = "/admin/" + rt.Canonical
			rewriteTarget = "/" + locale + effective
		case m.HasClientPanel:
			effective = "/client/dashboard"
			rewriteTarget = "/" + locale + effective
		default:
			return redirect(rt, signIn(locale))
		}
	}

	// Protected-route check. Paths are compared locale-stripped, which
	// covers the locale-prefixed variants as well.
	if g.protected(effective) && !m.Authenticated && !g.cfg.DevBypass {
		return redirect(rt, signIn(locale))
	}

	// Panel-membership enforcement on the effective path.
	if isAdminPath(effective) && !m.HasAdminPanel {
		if m.HasClientPanel {
			return redirect(rt, clientDashboard(locale))
		}
		return redirect(rt, signIn(locale))
	}
	if isClientPath(effective) && !m.HasClientPanel {
		if m.HasAdminPanel {
			return redirect(rt, adminDashboard(locale))
		}
		return redirect(rt, signIn(locale))
	}

	if rewriteTarget != "" {
		return Decision{Action: ActionRewrite, Target: rewriteTarget, Route: rt}
	}

	// Auth pages get the fallback locale prefixed. No redirect away
	// from sign-in for authenticated callers: re-auth stays reachable.
	if rt.Class == RouteAuthPage && !rt.HasLocale {
		return redirect(rt, "/"+locale+rt.Path)
	}

	return Decision{Action: ActionPass, Route: rt}
}

func (g *Gate) protected(effective string) bool {
	return effective == "/" || isAdminPath(effective) || isClientPath(effective)
}

func isAdminPath(p string) bool {
	return p == "/admin" || strings.HasPrefix(p, "/admin/")
}

func isClientPath(p string) bool {
	return p == "/client" || strings.HasPrefix(p, "/client/")
}

func signIn(locale string) string {
	return "/" + locale + "/sign-in"
}

func adminDashboard(locale string) string {
	return "/" + locale + "/admin/dashboard"
}

func clientDashboard(locale string) string {
	return "/" + locale + "/client/dashboard"
}

func redirect(rt Route, target string) Decision {
	return Decision{Action: ActionRedirect, Target: target, Route: rt}
}

func splitPath(path string) []string {
	var segs []string
	for _, s := range strings.Split(path, "/") {
		if s != "" {
			segs = append(segs, s)
		}
	}
	return segs
}

func joinPath(segs []string) string {
	if len(segs) == 0 {
		return ""
	}
	return "/" + strings.Join(segs, "/")
}
