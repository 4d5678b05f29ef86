package rbac

import (
	"path"
	"strings"
)

// RouteRule maps a navigable path to the permissions that open it (OR).
type RouteRule struct {
	Path        string       `json:"path"`
	Permissions []Permission `json:"permissions"`
}

// ActionRule maps a named operation to the permissions that allow it (OR).
type ActionRule struct {
	Action      string       `json:"action"`
	Permissions []Permission `json:"permissions"`
}

// ruleTable is an insertion-ordered key -> permissions map shared by both
// rule kinds.
type ruleTable struct {
	keys  []string
	perms map[string][]Permission
}

func (t *ruleTable) put(key string, perms []Permission) {
	if t.perms == nil {
		t.perms = make(map[string][]Permission)
	}
	if _, ok := t.perms[key]; !ok {
		t.keys = append(t.keys, key)
	}
	cp := make([]Permission, len(perms))
	copy(cp, perms)
	t.perms[key] = cp
}

func (t ruleTable) lookup(key string) ([]Permission, bool) {
	perms, ok := t.perms[key]
	if !ok {
		return nil, false
	}
	out := make([]Permission, len(perms))
	copy(out, perms)
	return out, true
}

// RouteRules is the read-only route table. A path with no rule is open.
type RouteRules struct {
	table ruleTable
}

// NewRouteRules builds a route table. Later duplicates replace earlier ones.
func NewRouteRules(rules ...RouteRule) RouteRules {
	var r RouteRules
	for _, rule := range rules {
		r.table.put(NormalizePath(rule.Path), rule.Permissions)
	}
	return r
}

// Lookup returns the permissions guarding path and whether a rule exists.
func (r RouteRules) Lookup(path string) ([]Permission, bool) {
	return r.table.lookup(NormalizePath(path))
}

// List returns the rules in registration order.
func (r RouteRules) List() []RouteRule {
	out := make([]RouteRule, 0, len(r.table.keys))
	for _, key := range r.table.keys {
		perms, _ := r.table.lookup(key)
		out = append(out, RouteRule{Path: key, Permissions: perms})
	}
	return out
}

// ActionRules is the read-only action table. An action with no rule is denied.
type ActionRules struct {
	table ruleTable
}

// NewActionRules builds an action table. Later duplicates replace earlier ones.
func NewActionRules(rules ...ActionRule) ActionRules {
	var a ActionRules
	for _, rule := range rules {
		a.table.put(strings.TrimSpace(rule.Action), rule.Permissions)
	}
	return a
}

// Lookup returns the permissions guarding action and whether a rule exists.
func (a ActionRules) Lookup(action string) ([]Permission, bool) {
	return a.table.lookup(strings.TrimSpace(action))
}

// List returns the rules in registration order.
func (a ActionRules) List() []ActionRule {
	out := make([]ActionRule, 0, len(a.table.keys))
	for _, key := range a.table.keys {
		perms, _ := a.table.lookup(key)
		out = append(out, ActionRule{Action: key, Permissions: perms})
	}
	return out
}

// NormalizePath returns the canonical form of a request path: leading "/"
// added, then cleaned so that "//users", "/./users" and "/settings/../users"
// all become "/users". "/" and "" both become "/". Matching is otherwise
// exact: "/members/12" has no rule of its own even when "/members" does.
func NormalizePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}

// Route paths of the back office.
const (
	RouteDashboard       = "/dashboard"
	RouteMembers         = "/members"
	RouteEvents          = "/events"
	RouteProjects        = "/projects"
	RouteDonations       = "/donations"
	RouteFinancialReport = "/reports/financial"
	RouteCommunications  = "/communications"
	RouteContent         = "/content"
	RouteUsers           = "/users"
	RouteSettings        = "/settings"
)

// DefaultRouteRules returns the stock route table.
func DefaultRouteRules() RouteRules {
	return NewRouteRules(
		RouteRule{Path: RouteDashboard, Permissions: []Permission{PermDashboardView}},
		RouteRule{Path: RouteMembers, Permissions: []Permission{PermMembersView, PermMembersManage}},
		RouteRule{Path: RouteEvents, Permissions: []Permission{PermEventsView, PermEventsManage}},
		RouteRule{Path: RouteProjects, Permissions: []Permission{PermProjectsView, PermProjectsManage}},
		RouteRule{Path: RouteDonations, Permissions: []Permission{PermDonationsView, PermDonationsManage}},
		RouteRule{Path: RouteFinancialReport, Permissions: []Permission{PermReportsFinancial}},
		RouteRule{Path: RouteCommunications, Permissions: []Permission{PermCommunicationsView, PermCommunicationsSend}},
		RouteRule{Path: RouteContent, Permissions: []Permission{PermContentManage}},
		RouteRule{Path: RouteUsers, Permissions: []Permission{PermUsersManage}},
		RouteRule{Path: RouteSettings, Permissions: []Permission{PermSettingsView, PermSettingsManage}},
	)
}

// Named actions.
const (
	ActionMembersCreate      = "members.create"
	ActionMembersUpdate      = "members.update"
	ActionMembersDelete      = "members.delete"
	ActionEventsCreate       = "events.create"
	ActionEventsUpdate       = "events.update"
	ActionEventsDelete       = "events.delete"
	ActionProjectsCreate     = "projects.create"
	ActionProjectsUpdate     = "projects.update"
	ActionDonationsRecord    = "donations.record"
	ActionDonationsUpdate    = "donations.update"
	ActionReportsExport      = "reports.export"
	ActionCommunicationsSend = "communications.send"
	ActionContentPublish     = "content.publish"
	ActionUsersView          = "users.view"
	ActionUsersCreate        = "users.create"
	ActionUsersUpdate        = "users.update"
	ActionUsersDelete        = "users.delete"
	ActionSettingsUpdate     = "settings.update"
)

// DefaultActionRules returns the stock action table.
func DefaultActionRules() ActionRules {
	return NewActionRules(
		ActionRule{Action: ActionMembersCreate, Permissions: []Permission{PermMembersManage}},
		ActionRule{Action: ActionMembersUpdate, Permissions: []Permission{PermMembersManage}},
		ActionRule{Action: ActionMembersDelete, Permissions: []Permission{PermMembersManage}},
		ActionRule{Action: ActionEventsCreate, Permissions: []Permission{PermEventsManage}},
		ActionRule{Action: ActionEventsUpdate, Permissions: []Permission{PermEventsManage}},
		ActionRule{Action: ActionEventsDelete, Permissions: []Permission{PermEventsManage}},
		ActionRule{Action: ActionProjectsCreate, Permissions: []Permission{PermProjectsManage}},
		ActionRule{Action: ActionProjectsUpdate, Permissions: []Permission{PermProjectsManage}},
		ActionRule{Action: ActionDonationsRecord, Permissions: []Permission{PermDonationsManage}},
		ActionRule{Action: ActionDonationsUpdate, Permissions: []Permission{PermDonationsManage}},
		ActionRule{Action: ActionReportsExport, Permissions: []Permission{PermReportsExport, PermReportsFinancial}},
		ActionRule{Action: ActionCommunicationsSend, Permissions: []Permission{PermCommunicationsSend}},
		ActionRule{Action: ActionContentPublish, Permissions: []Permission{PermContentManage}},
		ActionRule{Action: ActionUsersView, Permissions: []Permission{PermUsersView, PermUsersManage}},
		ActionRule{Action: ActionUsersCreate, Permissions: []Permission{PermUsersManage}},
		ActionRule{Action: ActionUsersUpdate, Permissions: []Permission{PermUsersManage}},
		ActionRule{Action: ActionUsersDelete, Permissions: []Permission{PermUsersManage}},
		ActionRule{Action: ActionSettingsUpdate, Permissions: []Permission{PermSettingsManage}},
	)
}
