package models

import (
	"gorm.io/datatypes"

	"github.com/ascendhq/ascend/internal/hierarchy"
)

// PermissionLevel is the coarse access tier granted to a collaborator.
type PermissionLevel string

const (
	LevelOwner  PermissionLevel = "owner"
	LevelAdmin  PermissionLevel = "admin"
	LevelEditor PermissionLevel = "editor"
	LevelViewer PermissionLevel = "viewer"
)

// Valid reports whether the level belongs to the ordered set.
func (l PermissionLevel) Valid() bool {
	switch l {
	case LevelOwner, LevelAdmin, LevelEditor, LevelViewer:
		return true
	}
	return false
}

// Rank orders levels so that higher values carry more authority.
func (l PermissionLevel) Rank() int {
	switch l {
	case LevelOwner:
		return 4
	case LevelAdmin:
		return 3
	case LevelEditor:
		return 2
	case LevelViewer:
		return 1
	default:
		return 0
	}
}

// AtLeast reports whether the level meets or exceeds the required tier.
func (l PermissionLevel) AtLeast(required PermissionLevel) bool {
	return l.Rank() >= required.Rank()
}

// Capability names understood by the access checker. "view" and "edit" map to
// level defaults; the rest only matter as specific overrides.
const (
	CapabilityView          = "view"
	CapabilityEdit          = "edit"
	CapabilityEditTasks     = "edit_tasks"
	CapabilityEditRoutines  = "edit_routines"
	CapabilityInvite        = "invite"
	CapabilityManageSharing = "manage_sharing"
)

// SpecificOverrides is a sparse capability-to-boolean map layered on top of a
// collaborator's level when the coarse tier is not precise enough.
type SpecificOverrides map[string]bool

// Clone returns an independent copy of the overrides map.
func (o SpecificOverrides) Clone() SpecificOverrides {
	if o == nil {
		return nil
	}
	out := make(SpecificOverrides, len(o))
	for k, v := range o {
		out[k] = v
	}
	return out
}

// InheritedFrom marks a permission record whose authority traces to an
// ancestor resource. It is only ever set on records synthesized at resolution
// time, never on persisted grants.
type InheritedFrom struct {
	Type hierarchy.ResourceType `json:"type"`
	ID   string                 `json:"id"`
}

// HierarchicalPermissions is the per-(resource, user) permission record.
type HierarchicalPermissions struct {
	Level             PermissionLevel   `json:"level"`
	SpecificOverrides SpecificOverrides `json:"specific_overrides,omitempty"`
	InheritedFrom     *InheritedFrom    `json:"inherited_from,omitempty"`
}

// Clone returns a deep copy so resolver output never aliases stored state.
func (p HierarchicalPermissions) Clone() HierarchicalPermissions {
	out := p
	out.SpecificOverrides = p.SpecificOverrides.Clone()
	if p.InheritedFrom != nil {
		ref := *p.InheritedFrom
		out.InheritedFrom = &ref
	}
	return out
}

// PermissionMap holds the direct grants on a resource keyed by user id.
type PermissionMap map[string]HierarchicalPermissions

// InheritanceSettings controls which descendant collections a permission
// change on this resource fans out to. The four flags are independent.
type InheritanceSettings struct {
	PropagateToGoals      bool `json:"goals"`
	PropagateToMilestones bool `json:"milestones"`
	PropagateToTasks      bool `json:"tasks"`
	PropagateToRoutines   bool `json:"routines"`
}

// Allows reports whether the settings open the given gate.
func (s InheritanceSettings) Allows(gate hierarchy.Gate) bool {
	switch gate {
	case hierarchy.GateGoals:
		return s.PropagateToGoals
	case hierarchy.GateMilestones:
		return s.PropagateToMilestones
	case hierarchy.GateTasks:
		return s.PropagateToTasks
	case hierarchy.GateRoutines:
		return s.PropagateToRoutines
	}
	return false
}

// FullInheritance returns settings with every gate open, the default for
// newly created areas and goals.
func FullInheritance() InheritanceSettings {
	return InheritanceSettings{
		PropagateToGoals:      true,
		PropagateToMilestones: true,
		PropagateToTasks:      true,
		PropagateToRoutines:   true,
	}
}

// Sharing carries the denormalized sharing state embedded in every shareable
// resource row. SharedWith mirrors the key set of Permissions; the owner is
// implicit and never appears in either.
type Sharing struct {
	OwnerUserID string                                 `gorm:"type:uuid;not null;index" json:"owner_user_id"`
	SharedWith  datatypes.JSONSlice[string]            `json:"shared_with"`
	Permissions datatypes.JSONType[PermissionMap]      `json:"permissions"`
	Inheritance datatypes.JSONType[InheritanceSettings] `json:"inheritance"`
}
