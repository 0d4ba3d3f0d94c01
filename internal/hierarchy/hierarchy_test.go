package hierarchy

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTypesAndCollections(t *testing.T) {
	require.Equal(t, []ResourceType{TypeArea, TypeGoal, TypeMilestone, TypeTask, TypeRoutine}, Types())

	for _, rt := range Types() {
		require.True(t, rt.Valid())
	}
	require.False(t, ResourceType("folder").Valid())

	require.Equal(t, "areas", TypeArea.Collection())
	require.Equal(t, "routines", TypeRoutine.Collection())
}

func TestParse(t *testing.T) {
	rt, err := Parse("  Goal ")
	require.NoError(t, err)
	require.Equal(t, TypeGoal, rt)

	_, err = Parse("goals")
	require.Error(t, err)
}

func TestDescendantTable(t *testing.T) {
	require.Equal(t, []DescendantRule{
		{Type: TypeGoal, ParentField: "area_id", Gate: GateGoals},
	}, Descendants(TypeArea))

	require.Equal(t, []DescendantRule{
		{Type: TypeMilestone, ParentField: "goal_id", Gate: GateMilestones},
		{Type: TypeTask, ParentField: "goal_id", Gate: GateTasks},
		{Type: TypeRoutine, ParentField: "goal_id", Gate: GateRoutines},
	}, Descendants(TypeGoal))

	require.Equal(t, []DescendantRule{
		{Type: TypeTask, ParentField: "milestone_id", Gate: GateTasks},
	}, Descendants(TypeMilestone))

	require.Empty(t, Descendants(TypeTask))
	require.Empty(t, Descendants(TypeRoutine))

	require.True(t, HasDescendants(TypeArea))
	require.True(t, HasDescendants(TypeMilestone))
	require.False(t, HasDescendants(TypeTask))
	require.False(t, HasDescendants(TypeRoutine))
}

func TestDescendantsReturnsCopy(t *testing.T) {
	rules := Descendants(TypeGoal)
	rules[0].ParentField = "mutated"
	require.Equal(t, "goal_id", Descendants(TypeGoal)[0].ParentField)
}
