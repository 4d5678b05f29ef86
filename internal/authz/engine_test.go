package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/odyssey-erp/steward/internal/rbac"
	"github.com/odyssey-erp/steward/internal/roles"
	"github.com/odyssey-erp/steward/internal/users"
)

type stubSource struct {
	identity *users.Identity
}

func (s *stubSource) CurrentIdentity() *users.Identity {
	return s.identity
}

func newEngine(identity *users.Identity) *Engine {
	return NewDefaultEngine(&stubSource{identity: identity}, roles.NewDefaultCatalog())
}

func identity(role string, status users.Status) *users.Identity {
	return &users.Identity{ID: 7, Username: "u", Role: role, Status: status}
}

func overrides(perms ...rbac.Permission) *rbac.PermissionSet {
	set := rbac.NewPermissionSet(perms...)
	return &set
}

func TestNoIdentityDeniesEverything(t *testing.T) {
	e := newEngine(nil)

	assert.False(t, e.HasPermission(rbac.PermDashboardView))
	assert.False(t, e.HasAllPermissions())
	assert.False(t, e.HasAnyPermission())
	assert.False(t, e.CanAccessRoute("/unlisted"))
	assert.False(t, e.CanPerformAction(rbac.ActionMembersCreate, ActionContext{}))
}

func TestInactiveIdentityDeniesEverything(t *testing.T) {
	all := rbac.All()
	cases := map[string]*users.Identity{
		"admin role":        identity(roles.KeyAdmin, users.StatusInactive),
		"wildcard override": {ID: 3, Username: "x", Role: roles.KeyViewer, Status: users.StatusInactive, Permissions: &all},
		"unknown status":    identity(roles.KeyManager, users.Status("suspended")),
	}
	for name, who := range cases {
		t.Run(name, func(t *testing.T) {
			e := newEngine(who)
			for _, p := range append(rbac.Registered(), "made.up") {
				assert.False(t, e.HasPermission(p), "permission %s", p)
			}
			assert.False(t, e.HasAllPermissions(), "vacuous all still needs an active identity")
			for _, path := range []string{rbac.RouteDashboard, rbac.RouteUsers, "/unlisted", "/"} {
				assert.False(t, e.CanAccessRoute(path), "route %s", path)
			}
			for _, rule := range rbac.DefaultActionRules().List() {
				assert.False(t, e.CanPerformAction(rule.Action, ActionContext{}), "action %s", rule.Action)
			}
			assert.False(t, e.CanPerformAction("unlisted.action", ActionContext{}))
		})
	}
}

func TestWildcardRoleGrantsEverything(t *testing.T) {
	e := newEngine(identity(roles.KeyAdmin, users.StatusActive))

	assert.True(t, e.HasPermission(rbac.PermSettingsManage))
	assert.True(t, e.HasPermission("not.in.registry"))
	assert.True(t, e.HasAnyPermission())
	assert.True(t, e.HasAllPermissions("a", "b"))
	assert.True(t, e.CanAccessRoute(rbac.RouteUsers))
	assert.True(t, e.CanPerformAction("unlisted.action", ActionContext{}))
}

func TestEmptyListSemantics(t *testing.T) {
	e := newEngine(identity(roles.KeyViewer, users.StatusActive))

	assert.True(t, e.HasAllPermissions())
	assert.False(t, e.HasAnyPermission())
}

func TestAsymmetricDefaults(t *testing.T) {
	for _, role := range []string{roles.KeyManager, roles.KeyTreasurer, roles.KeyVolunteer, roles.KeyViewer, "ghost"} {
		e := newEngine(identity(role, users.StatusActive))
		assert.True(t, e.CanAccessRoute("/about"), "role %s", role)
		assert.True(t, e.CanAccessRoute("/members/12"), "role %s", role)
		assert.False(t, e.CanPerformAction("members.archive", ActionContext{}), "role %s", role)
	}
}

func TestRouteAndActionRulesUseAnyOf(t *testing.T) {
	viewOnly := identity(roles.KeyViewer, users.StatusActive)
	viewOnly.Permissions = overrides(rbac.PermDonationsView)
	e := newEngine(viewOnly)

	assert.True(t, e.CanAccessRoute(rbac.RouteDonations))
	assert.True(t, e.CanAccessRoute(rbac.RouteDonations+"/"))
	assert.False(t, e.CanAccessRoute(rbac.RouteMembers))
	assert.False(t, e.CanPerformAction(rbac.ActionDonationsRecord, ActionContext{ResourceType: "donation", ResourceID: "9"}))

	manager := identity(roles.KeyViewer, users.StatusActive)
	manager.Permissions = overrides(rbac.PermDonationsManage)
	e = newEngine(manager)

	assert.True(t, e.CanAccessRoute(rbac.RouteDonations))
	assert.True(t, e.CanPerformAction(rbac.ActionDonationsRecord, ActionContext{}))
}

func TestOverridesReplaceRolePermissions(t *testing.T) {
	who := identity(roles.KeyManager, users.StatusActive)
	who.Permissions = overrides(rbac.PermEventsView)
	e := newEngine(who)

	assert.True(t, e.HasPermission(rbac.PermEventsView))
	assert.False(t, e.HasPermission(rbac.PermMembersManage), "role permissions are not merged with overrides")

	empty := identity(roles.KeyAdmin, users.StatusActive)
	empty.Permissions = overrides()
	e = newEngine(empty)
	assert.False(t, e.HasPermission(rbac.PermDashboardView))
	assert.True(t, e.CanAccessRoute("/unlisted"))
}

func TestUnknownRoleHasNoPermissions(t *testing.T) {
	e := newEngine(identity("ghost", users.StatusActive))

	assert.False(t, e.HasPermission(rbac.PermDashboardView))
	assert.False(t, e.CanAccessRoute(rbac.RouteDashboard))
}

func TestEngineFollowsSessionChanges(t *testing.T) {
	source := &stubSource{}
	e := NewDefaultEngine(source, roles.NewDefaultCatalog())

	assert.False(t, e.CanAccessRoute(rbac.RouteDashboard))
	source.identity = identity(roles.KeyVolunteer, users.StatusActive)
	assert.True(t, e.CanAccessRoute(rbac.RouteDashboard))
	source.identity = nil
	assert.False(t, e.CanAccessRoute(rbac.RouteDashboard))
}

func TestCheckerZeroValueDenies(t *testing.T) {
	var c Checker
	assert.False(t, c.Active())
	assert.False(t, c.HasAllPermissions())
	assert.False(t, c.CanAccessRoute("/"))
}
