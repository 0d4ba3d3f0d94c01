package permissions

import "github.com/ascendhq/ascend/internal/models"

// HasCapability evaluates a resolved permission record against a required
// capability. Owner and admin levels allow everything; a specific override
// for the capability takes precedence over level defaults; otherwise editor
// grants view and edit, viewer grants only view.
func HasCapability(grant *models.HierarchicalPermissions, capability string) bool {
	if grant == nil || capability == "" {
		return false
	}

	if grant.Level == models.LevelOwner || grant.Level == models.LevelAdmin {
		return true
	}

	if allowed, ok := grant.SpecificOverrides[capability]; ok {
		return allowed
	}

	switch grant.Level {
	case models.LevelEditor:
		return capability == models.CapabilityView || capability == models.CapabilityEdit
	case models.LevelViewer:
		return capability == models.CapabilityView
	default:
		return false
	}
}

// HasPermission resolves the user's effective record against the resource and
// its ancestry, then checks the capability. Owner short-circuiting happens
// before this call.
func HasPermission(userID string, resource ResourceGrants, ancestry []ResourceGrants, capability string) bool {
	return HasCapability(Resolve(userID, resource, ancestry), capability)
}
