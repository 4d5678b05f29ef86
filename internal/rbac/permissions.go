package rbac

import (
	"sort"
	"strings"
)

// Registered permissions.
const (
	PermDashboardView Permission = "dashboard.view"

	PermMembersView   Permission = "members.view"
	PermMembersManage Permission = "members.manage"

	PermEventsView   Permission = "events.view"
	PermEventsManage Permission = "events.manage"

	PermProjectsView   Permission = "projects.view"
	PermProjectsManage Permission = "projects.manage"

	PermDonationsView   Permission = "donations.view"
	PermDonationsManage Permission = "donations.manage"

	PermReportsFinancial Permission = "reports.financial"
	PermReportsExport    Permission = "reports.export"

	PermCommunicationsView Permission = "communications.view"
	PermCommunicationsSend Permission = "communications.send"

	PermContentManage Permission = "content.manage"

	PermUsersView   Permission = "users.view"
	PermUsersManage Permission = "users.manage"

	PermSettingsView   Permission = "settings.view"
	PermSettingsManage Permission = "settings.manage"
)

var registry = []Permission{
	PermDashboardView,
	PermMembersView, PermMembersManage,
	PermEventsView, PermEventsManage,
	PermProjectsView, PermProjectsManage,
	PermDonationsView, PermDonationsManage,
	PermReportsFinancial, PermReportsExport,
	PermCommunicationsView, PermCommunicationsSend,
	PermContentManage,
	PermUsersView, PermUsersManage,
	PermSettingsView, PermSettingsManage,
}

var registered = buildRegistered()

func buildRegistered() map[Permission]struct{} {
	out := make(map[Permission]struct{}, len(registry))
	for _, p := range registry {
		out[p] = struct{}{}
	}
	return out
}

// Registered lists every known permission in declaration order.
func Registered() []Permission {
	out := make([]Permission, len(registry))
	copy(out, registry)
	return out
}

// IsRegistered reports whether p belongs to the closed registry.
func IsRegistered(p Permission) bool {
	_, ok := registered[p]
	return ok
}

// NormalizePermissionNames trims and lowercases names and splits them into
// registered and unknown lists, both sorted and deduplicated. The wildcard
// token is reported as valid.
func NormalizePermissionNames(in []string) ([]string, []string) {
	validSet := map[string]struct{}{}
	invalidSet := map[string]struct{}{}
	for _, raw := range in {
		p := strings.ToLower(strings.TrimSpace(raw))
		if p == "" {
			continue
		}
		if p == wildcardToken || IsRegistered(Permission(p)) {
			validSet[p] = struct{}{}
			continue
		}
		invalidSet[p] = struct{}{}
	}
	return sortedKeys(validSet), sortedKeys(invalidSet)
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
