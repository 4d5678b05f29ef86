// Package authz answers permission, route and action queries for the
// signed-in identity.
package authz

import (
	"github.com/odyssey-erp/steward/internal/rbac"
	"github.com/odyssey-erp/steward/internal/roles"
	"github.com/odyssey-erp/steward/internal/users"
)

// IdentitySource yields the identity currently signed in, or nil.
type IdentitySource interface {
	CurrentIdentity() *users.Identity
}

// ActionContext describes the resource an action targets. It is carried
// through CanPerformAction for instance-level rules and is not evaluated yet.
type ActionContext struct {
	ResourceType string
	ResourceID   string
	OwnerID      int64
	Attributes   map[string]any
}

// Engine evaluates queries against the live session. Every query reads the
// current identity afresh; nothing is cached.
type Engine struct {
	source  IdentitySource
	catalog *roles.Catalog
	routes  rbac.RouteRules
	actions rbac.ActionRules
}

// NewEngine constructs an Engine.
func NewEngine(source IdentitySource, catalog *roles.Catalog, routes rbac.RouteRules, actions rbac.ActionRules) *Engine {
	return &Engine{source: source, catalog: catalog, routes: routes, actions: actions}
}

// NewDefaultEngine wires the stock route and action tables.
func NewDefaultEngine(source IdentitySource, catalog *roles.Catalog) *Engine {
	return NewEngine(source, catalog, rbac.DefaultRouteRules(), rbac.DefaultActionRules())
}

// CurrentIdentity exposes the identity the engine evaluates against.
func (e *Engine) CurrentIdentity() *users.Identity {
	if e.source == nil {
		return nil
	}
	return e.source.CurrentIdentity()
}

// Routes returns the route table the engine evaluates.
func (e *Engine) Routes() rbac.RouteRules {
	return e.routes
}

// Actions returns the action table the engine evaluates.
func (e *Engine) Actions() rbac.ActionRules {
	return e.actions
}

// For returns a Checker bound to identity. Callers holding a session snapshot
// use it so that every query of one decision sees the same identity.
func (e *Engine) For(identity *users.Identity) Checker {
	c := Checker{routes: e.routes, actions: e.actions}
	if identity == nil || !identity.IsActive() {
		return c
	}
	c.active = true
	c.granted = identity.EffectivePermissions(e.catalog)
	return c
}

func (e *Engine) current() Checker {
	return e.For(e.CurrentIdentity())
}

// HasPermission reports whether the current identity holds p.
func (e *Engine) HasPermission(p rbac.Permission) bool {
	return e.current().HasPermission(p)
}

// HasAnyPermission reports whether the current identity holds one of perms.
func (e *Engine) HasAnyPermission(perms ...rbac.Permission) bool {
	return e.current().HasAnyPermission(perms...)
}

// HasAllPermissions reports whether the current identity holds every one of perms.
func (e *Engine) HasAllPermissions(perms ...rbac.Permission) bool {
	return e.current().HasAllPermissions(perms...)
}

// CanAccessRoute reports whether the current identity may open path.
func (e *Engine) CanAccessRoute(path string) bool {
	return e.current().CanAccessRoute(path)
}

// CanPerformAction reports whether the current identity may run action.
func (e *Engine) CanPerformAction(action string, actx ActionContext) bool {
	return e.current().CanPerformAction(action, actx)
}

// Checker is an immutable evaluation over one identity. The zero value
// denies everything.
type Checker struct {
	active  bool
	granted rbac.PermissionSet
	routes  rbac.RouteRules
	actions rbac.ActionRules
}

// Active reports whether the bound identity exists and is active.
func (c Checker) Active() bool {
	return c.active
}

// HasPermission reports whether p is granted.
func (c Checker) HasPermission(p rbac.Permission) bool {
	if !c.active {
		return false
	}
	return c.granted.Contains(p)
}

// HasAnyPermission reports whether one of perms is granted. An empty list
// is false unless the identity holds everything.
func (c Checker) HasAnyPermission(perms ...rbac.Permission) bool {
	if !c.active {
		return false
	}
	return c.granted.ContainsAny(perms)
}

// HasAllPermissions reports whether every one of perms is granted. An empty
// list is true.
func (c Checker) HasAllPermissions(perms ...rbac.Permission) bool {
	if !c.active {
		return false
	}
	return c.granted.ContainsAll(perms)
}

// CanAccessRoute grants paths without a rule. Routes are open by default.
func (c Checker) CanAccessRoute(path string) bool {
	if !c.active {
		return false
	}
	if c.granted.IsAll() {
		return true
	}
	required, ok := c.routes.Lookup(path)
	if !ok {
		return true
	}
	return c.granted.ContainsAny(required)
}

// CanPerformAction denies actions without a rule. Actions are closed by
// default, the opposite of routes.
func (c Checker) CanPerformAction(action string, _ ActionContext) bool {
	if !c.active {
		return false
	}
	if c.granted.IsAll() {
		return true
	}
	required, ok := c.actions.Lookup(action)
	if !ok {
		return false
	}
	return c.granted.ContainsAny(required)
}
