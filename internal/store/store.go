package store

import (
	"context"
	"errors"

	"github.com/ascendhq/ascend/internal/hierarchy"
	"github.com/ascendhq/ascend/internal/models"
)

// ErrNotFound indicates the requested resource does not exist. Read-then-write
// operations treat this as terminal for the resource in question.
var ErrNotFound = errors.New("store: resource not found")

// Document is the sharing projection of a resource row, independent of which
// collection it lives in.
type Document struct {
	Type        hierarchy.ResourceType
	ID          string
	Name        string
	OwnerUserID string

	// Parents maps parent-linking field names (e.g. "area_id") to ids,
	// establishing the document's position in the hierarchy.
	Parents map[string]string

	SharedWith  []string
	Permissions models.PermissionMap
	Inheritance models.InheritanceSettings
}

// DirectGrant returns the persisted grant for the user, if any.
func (d *Document) DirectGrant(userID string) (models.HierarchicalPermissions, bool) {
	if d == nil || d.Permissions == nil {
		return models.HierarchicalPermissions{}, false
	}
	grant, ok := d.Permissions[userID]
	return grant, ok
}

// SharedWithUser reports whether the user appears in the membership list.
func (d *Document) SharedWithUser(userID string) bool {
	if d == nil {
		return false
	}
	for _, id := range d.SharedWith {
		if id == userID {
			return true
		}
	}
	return false
}

// Store is the adapter the permission core reads from and writes to. Grant
// writes merge a single permission-map key and union the membership list;
// removals delete the key and shrink the list. Implementations normalize
// records at this boundary: persisted grants never carry an inherited-from
// marker.
type Store interface {
	// Get fetches one resource's sharing projection, or ErrNotFound.
	Get(ctx context.Context, rt hierarchy.ResourceType, id string) (*Document, error)

	// QueryByParent lists every resource of the given type whose
	// parent-linking field equals parentID.
	QueryByParent(ctx context.Context, rt hierarchy.ResourceType, parentField, parentID string) ([]Document, error)

	// MergeGrant sets permissions[userID] to the supplied record and adds
	// userID to the membership list. Calling it twice with the same value is
	// a no-op the second time.
	MergeGrant(ctx context.Context, rt hierarchy.ResourceType, id, userID string, grant models.HierarchicalPermissions) error

	// RemoveGrant deletes permissions[userID] and removes userID from the
	// membership list. Removing an absent grant succeeds.
	RemoveGrant(ctx context.Context, rt hierarchy.ResourceType, id, userID string) error

	// UpdateInheritance replaces the resource's inheritance settings.
	UpdateInheritance(ctx context.Context, rt hierarchy.ResourceType, id string, settings models.InheritanceSettings) error
}
