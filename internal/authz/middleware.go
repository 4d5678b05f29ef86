package authz

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/odyssey-erp/steward/internal/platform/httpx"
	"github.com/odyssey-erp/steward/internal/rbac"
)

// Middleware wires authorization checks into HTTP handlers.
type Middleware struct {
	Engine *Engine
	Logger *slog.Logger
}

// RequireAny ensures the current identity holds at least one of perms.
func (m Middleware) RequireAny(perms ...rbac.Permission) func(http.Handler) http.Handler {
	required := normalizePermissions(perms)
	return m.require("require any", func(c Checker) bool {
		return c.HasAnyPermission(required...)
	})
}

// RequireAll ensures the current identity holds all of perms.
func (m Middleware) RequireAll(perms ...rbac.Permission) func(http.Handler) http.Handler {
	required := normalizePermissions(perms)
	return m.require("require all", func(c Checker) bool {
		return c.HasAllPermissions(required...)
	})
}

// RequireAction ensures the current identity may perform action.
func (m Middleware) RequireAction(action string) func(http.Handler) http.Handler {
	return m.require("require action", func(c Checker) bool {
		return c.CanPerformAction(action, ActionContext{})
	})
}

func (m Middleware) require(op string, allowed func(Checker) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := m.Engine.CurrentIdentity()
			if identity == nil {
				httpx.RespondError(w, httpx.ErrUnauthorized)
				return
			}
			if allowed(m.Engine.For(identity)) {
				next.ServeHTTP(w, r)
				return
			}
			if m.Logger != nil {
				m.Logger.Debug("authz "+op+" denied",
					slog.Int64("identity_id", identity.ID),
					slog.String("path", r.URL.Path),
				)
			}
			httpx.RespondError(w, httpx.ErrForbidden)
		})
	}
}

func normalizePermissions(perms []rbac.Permission) []rbac.Permission {
	seen := make(map[rbac.Permission]struct{}, len(perms))
	normalized := make([]rbac.Permission, 0, len(perms))
	for _, p := range perms {
		p = rbac.Permission(strings.ToLower(strings.TrimSpace(string(p))))
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		normalized = append(normalized, p)
	}
	return normalized
}
