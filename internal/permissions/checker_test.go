package permissions

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ascendhq/ascend/internal/models"
)

func TestHasCapabilityLevelDefaults(t *testing.T) {
	editor := &models.HierarchicalPermissions{Level: models.LevelEditor}
	require.True(t, HasCapability(editor, models.CapabilityView))
	require.True(t, HasCapability(editor, models.CapabilityEdit))
	require.False(t, HasCapability(editor, models.CapabilityManageSharing))
	require.False(t, HasCapability(editor, models.CapabilityInvite))

	viewer := &models.HierarchicalPermissions{Level: models.LevelViewer}
	require.True(t, HasCapability(viewer, models.CapabilityView))
	require.False(t, HasCapability(viewer, models.CapabilityEdit))
}

func TestHasCapabilityOwnerAndAdminAllowEverything(t *testing.T) {
	for _, level := range []models.PermissionLevel{models.LevelOwner, models.LevelAdmin} {
		grant := &models.HierarchicalPermissions{Level: level}
		require.True(t, HasCapability(grant, models.CapabilityView))
		require.True(t, HasCapability(grant, models.CapabilityEdit))
		require.True(t, HasCapability(grant, models.CapabilityManageSharing))
		require.True(t, HasCapability(grant, "anything_else"))
	}
}

func TestHasCapabilityOverridesTakePrecedence(t *testing.T) {
	grant := &models.HierarchicalPermissions{
		Level: models.LevelViewer,
		SpecificOverrides: models.SpecificOverrides{
			models.CapabilityEditTasks: true,
			models.CapabilityView:      false,
		},
	}

	require.True(t, HasCapability(grant, models.CapabilityEditTasks))
	// An explicit false override beats the level default.
	require.False(t, HasCapability(grant, models.CapabilityView))
	// Capabilities without overrides fall back to level defaults.
	require.False(t, HasCapability(grant, models.CapabilityEdit))
}

func TestHasCapabilityNilGrant(t *testing.T) {
	require.False(t, HasCapability(nil, models.CapabilityView))

	grant := &models.HierarchicalPermissions{Level: models.LevelEditor}
	require.False(t, HasCapability(grant, ""))
}

func TestHasPermissionComposesResolution(t *testing.T) {
	area := ResourceGrants{Type: "area", ID: "area-1", Grants: grants("user-1", models.LevelViewer)}
	goal := ResourceGrants{Type: "goal", ID: "goal-1"}

	require.True(t, HasPermission("user-1", goal, []ResourceGrants{area}, models.CapabilityView))
	require.False(t, HasPermission("user-1", goal, []ResourceGrants{area}, models.CapabilityEdit))
	require.False(t, HasPermission("user-2", goal, []ResourceGrants{area}, models.CapabilityView))
}
