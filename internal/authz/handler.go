package authz

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/steward/internal/platform/httpx"
	"github.com/odyssey-erp/steward/internal/rbac"
)

// Handler exposes the engine's queries over HTTP.
type Handler struct {
	engine *Engine
}

// NewHandler builds a Handler.
func NewHandler(engine *Engine) *Handler {
	return &Handler{engine: engine}
}

// MountRoutes registers permission routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.listPermissions)
	r.Get("/check", h.check)
}

type checkResult struct {
	Authenticated bool            `json:"authenticated"`
	Active        bool            `json:"active"`
	Permissions   map[string]bool `json:"permissions,omitempty"`
	Any           *bool           `json:"any,omitempty"`
	All           *bool           `json:"all,omitempty"`
	Route         *target         `json:"route,omitempty"`
	Action        *target         `json:"action,omitempty"`
}

type target struct {
	Name    string `json:"name"`
	Allowed bool   `json:"allowed"`
}

func (h *Handler) listPermissions(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]any{
		"permissions": rbac.Registered(),
		"routes":      h.engine.Routes().List(),
		"actions":     h.engine.Actions().List(),
	})
}

// check answers ?permission=..&route=..&action=.. for the signed-in identity.
// Repeated permission parameters are combined into the any and all results.
func (h *Handler) check(w http.ResponseWriter, r *http.Request) {
	identity := h.engine.CurrentIdentity()
	checker := h.engine.For(identity)
	query := r.URL.Query()

	result := checkResult{Authenticated: identity != nil, Active: checker.Active()}
	if names := query["permission"]; len(names) > 0 {
		perms := make([]rbac.Permission, 0, len(names))
		result.Permissions = make(map[string]bool, len(names))
		for _, name := range names {
			p := rbac.Permission(name)
			perms = append(perms, p)
			result.Permissions[name] = checker.HasPermission(p)
		}
		anyOK := checker.HasAnyPermission(perms...)
		allOK := checker.HasAllPermissions(perms...)
		result.Any = &anyOK
		result.All = &allOK
	}
	if query.Has("route") {
		path := query.Get("route")
		result.Route = &target{Name: rbac.NormalizePath(path), Allowed: checker.CanAccessRoute(path)}
	}
	if query.Has("action") {
		action := query.Get("action")
		result.Action = &target{Name: action, Allowed: checker.CanPerformAction(action, ActionContext{})}
	}
	httpx.JSON(w, http.StatusOK, result)
}
