package users

import (
	"context"
	"fmt"

	"github.com/odyssey-erp/steward/internal/roles"
)

// DefaultIdentities is the directory content a fresh install starts with.
func DefaultIdentities() []Identity {
	return []Identity{
		{Username: "admin", Email: "admin@steward.local", DisplayName: "Site Administrator", Role: roles.KeyAdmin, Status: StatusActive},
		{Username: "manager", Email: "manager@steward.local", DisplayName: "Operations Manager", Role: roles.KeyManager, Status: StatusActive},
		{Username: "treasurer", Email: "treasurer@steward.local", DisplayName: "Treasurer", Role: roles.KeyTreasurer, Status: StatusActive},
		{Username: "coordinator", Email: "events@steward.local", DisplayName: "Event Coordinator", Role: roles.KeyCoordinator, Status: StatusActive},
		{Username: "volunteer", Email: "volunteer@steward.local", DisplayName: "New Volunteer", Role: roles.KeyVolunteer, Status: StatusActive, TemporaryPassword: "welcome", ForcePasswordChange: true},
		{Username: "alumni", Email: "alumni@steward.local", DisplayName: "Former Staff", Role: roles.KeyManager, Status: StatusInactive},
	}
}

// Seed inserts identities whose usernames are not yet present and returns how
// many were added.
func Seed(ctx context.Context, svc *Service, identities []Identity) (int, error) {
	added := 0
	for _, identity := range identities {
		existing, err := svc.LookupByUsername(ctx, identity.Username)
		if err != nil {
			return added, fmt.Errorf("users: seed lookup %s: %w", identity.Username, err)
		}
		if existing != nil {
			continue
		}
		if _, err := svc.Insert(ctx, identity); err != nil {
			return added, fmt.Errorf("users: seed %s: %w", identity.Username, err)
		}
		added++
	}
	return added, nil
}
