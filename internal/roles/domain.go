package roles

import "github.com/odyssey-erp/steward/internal/rbac"

// Metadata carries presentation hints for a role.
type Metadata struct {
	Color string `json:"color"`
	Icon  string `json:"icon"`
	Rank  int    `json:"rank"`
}

// Role is a named bundle of permissions assignable to an identity.
type Role struct {
	Key         string             `json:"key"`
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Permissions rbac.PermissionSet `json:"permissions"`
	Metadata    Metadata           `json:"metadata"`
}

// EffectivePermissions returns the permissions the role grants.
func (r Role) EffectivePermissions() rbac.PermissionSet {
	return r.Permissions
}

// Role keys seeded at startup.
const (
	KeyAdmin       = "admin"
	KeyManager     = "manager"
	KeyTreasurer   = "treasurer"
	KeyCoordinator = "coordinator"
	KeyVolunteer   = "volunteer"
	KeyViewer      = "viewer"
)

// DefaultRoles returns the stock role table, highest rank first.
func DefaultRoles() []Role {
	return []Role{
		{
			Key:         KeyAdmin,
			Name:        "Administrator",
			Description: "Full access to every area and action.",
			Permissions: rbac.All(),
			Metadata:    Metadata{Color: "red", Icon: "shield", Rank: 100},
		},
		{
			Key:         KeyManager,
			Name:        "Manager",
			Description: "Runs day-to-day operations across members, events and projects.",
			Permissions: rbac.NewPermissionSet(
				rbac.PermDashboardView,
				rbac.PermMembersView, rbac.PermMembersManage,
				rbac.PermEventsView, rbac.PermEventsManage,
				rbac.PermProjectsView, rbac.PermProjectsManage,
				rbac.PermDonationsView,
				rbac.PermReportsFinancial,
				rbac.PermCommunicationsView, rbac.PermCommunicationsSend,
				rbac.PermContentManage,
				rbac.PermUsersView,
				rbac.PermSettingsView,
			),
			Metadata: Metadata{Color: "purple", Icon: "briefcase", Rank: 80},
		},
		{
			Key:         KeyTreasurer,
			Name:        "Treasurer",
			Description: "Records donations and reviews financial reports.",
			Permissions: rbac.NewPermissionSet(
				rbac.PermDashboardView,
				rbac.PermMembersView,
				rbac.PermDonationsView, rbac.PermDonationsManage,
				rbac.PermReportsFinancial, rbac.PermReportsExport,
			),
			Metadata: Metadata{Color: "green", Icon: "coins", Rank: 60},
		},
		{
			Key:         KeyCoordinator,
			Name:        "Coordinator",
			Description: "Plans events and projects and reaches out to members.",
			Permissions: rbac.NewPermissionSet(
				rbac.PermDashboardView,
				rbac.PermMembersView,
				rbac.PermEventsView, rbac.PermEventsManage,
				rbac.PermProjectsView, rbac.PermProjectsManage,
				rbac.PermCommunicationsView, rbac.PermCommunicationsSend,
			),
			Metadata: Metadata{Color: "blue", Icon: "calendar", Rank: 40},
		},
		{
			Key:         KeyVolunteer,
			Name:        "Volunteer",
			Description: "Sees upcoming events and projects.",
			Permissions: rbac.NewPermissionSet(
				rbac.PermDashboardView,
				rbac.PermEventsView,
				rbac.PermProjectsView,
			),
			Metadata: Metadata{Color: "teal", Icon: "hand", Rank: 20},
		},
		{
			Key:         KeyViewer,
			Name:        "Viewer",
			Description: "Read-only dashboard access.",
			Permissions: rbac.NewPermissionSet(rbac.PermDashboardView),
			Metadata:    Metadata{Color: "gray", Icon: "eye", Rank: 10},
		},
	}
}
