package hierarchy

import (
	"fmt"
	"strings"
)

// ResourceType identifies one of the shareable collections.
type ResourceType string

const (
	TypeArea      ResourceType = "area"
	TypeGoal      ResourceType = "goal"
	TypeMilestone ResourceType = "milestone"
	TypeTask      ResourceType = "task"
	TypeRoutine   ResourceType = "routine"
)

// Types lists every shareable resource type in containment order.
func Types() []ResourceType {
	return []ResourceType{TypeArea, TypeGoal, TypeMilestone, TypeTask, TypeRoutine}
}

// Parse converts an external identifier (e.g. a URL segment) into a ResourceType.
func Parse(value string) (ResourceType, error) {
	rt := ResourceType(strings.ToLower(strings.TrimSpace(value)))
	if !rt.Valid() {
		return "", fmt.Errorf("hierarchy: unknown resource type %q", value)
	}
	return rt, nil
}

// Valid reports whether the type belongs to the closed set of collections.
func (rt ResourceType) Valid() bool {
	switch rt {
	case TypeArea, TypeGoal, TypeMilestone, TypeTask, TypeRoutine:
		return true
	}
	return false
}

// Collection returns the logical collection name for the type.
func (rt ResourceType) Collection() string {
	return string(rt) + "s"
}

// Gate names the inheritance-settings flag controlling propagation into a
// descendant collection.
type Gate string

const (
	GateGoals      Gate = "goals"
	GateMilestones Gate = "milestones"
	GateTasks      Gate = "tasks"
	GateRoutines   Gate = "routines"
)

// DescendantRule describes one child collection reachable from a parent type:
// which collection it is, the column on the child pointing back at the parent,
// and which settings flag gates permission writes into it.
type DescendantRule struct {
	Type        ResourceType
	ParentField string
	Gate        Gate
}

// descendants is the static containment table. Tasks always carry a goal_id,
// even when they also belong to a milestone, so goal-level traversal reaches
// them without consulting milestones.
var descendants = map[ResourceType][]DescendantRule{
	TypeArea: {
		{Type: TypeGoal, ParentField: "area_id", Gate: GateGoals},
	},
	TypeGoal: {
		{Type: TypeMilestone, ParentField: "goal_id", Gate: GateMilestones},
		{Type: TypeTask, ParentField: "goal_id", Gate: GateTasks},
		{Type: TypeRoutine, ParentField: "goal_id", Gate: GateRoutines},
	},
	TypeMilestone: {
		{Type: TypeTask, ParentField: "milestone_id", Gate: GateTasks},
	},
	TypeTask:    nil,
	TypeRoutine: nil,
}

// Descendants returns the child collection rules for the given type. Task and
// Routine have none, making propagation from them a no-op.
func Descendants(rt ResourceType) []DescendantRule {
	rules, ok := descendants[rt]
	if !ok {
		return nil
	}
	out := make([]DescendantRule, len(rules))
	copy(out, rules)
	return out
}

// HasDescendants reports whether propagation from the type can touch anything.
func HasDescendants(rt ResourceType) bool {
	return len(descendants[rt]) > 0
}
