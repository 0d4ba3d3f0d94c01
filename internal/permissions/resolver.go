package permissions

import (
	"github.com/ascendhq/ascend/internal/hierarchy"
	"github.com/ascendhq/ascend/internal/models"
)

// ResourceGrants is the resolver's view of one resource: its identity plus
// the direct grants persisted on it. Callers supply the ancestry chain
// ordered nearest parent first; the resolver has no traversal capability of
// its own and only inspects what it is given.
type ResourceGrants struct {
	Type   hierarchy.ResourceType
	ID     string
	Grants models.PermissionMap
}

// Resolve computes the single effective permission record for the user on
// the resource, or nil when no direct or inheritable grant exists anywhere in
// the chain.
//
// A direct grant on the resource always wins, regardless of what ancestors
// say. Otherwise the nearest ancestor with an inheritable grant contributes a
// synthesized copy marked with its origin. Ownership is the caller's concern;
// the resolver is ownership-agnostic and pure.
func Resolve(userID string, resource ResourceGrants, ancestry []ResourceGrants) *models.HierarchicalPermissions {
	if userID == "" {
		return nil
	}

	if grant, ok := resource.Grants[userID]; ok {
		out := grant.Clone()
		out.InheritedFrom = nil
		return &out
	}

	for _, ancestor := range ancestry {
		grant, ok := ancestor.Grants[userID]
		if !ok {
			continue
		}
		if !inheritsDownward(grant) {
			continue
		}
		out := grant.Clone()
		out.InheritedFrom = &models.InheritedFrom{Type: ancestor.Type, ID: ancestor.ID}
		return &out
	}

	return nil
}

// inheritsDownward reports whether an ancestor grant is eligible to flow to
// descendants. Every level currently inherits; the hook exists so that a
// per-grant opt-out can be added without touching Resolve.
func inheritsDownward(grant models.HierarchicalPermissions) bool {
	return grant.Level.Valid()
}
