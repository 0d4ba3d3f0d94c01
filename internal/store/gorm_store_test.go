package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/ascendhq/ascend/internal/database/testutil"
	"github.com/ascendhq/ascend/internal/hierarchy"
	"github.com/ascendhq/ascend/internal/models"
)

func newTestStore(t *testing.T) (*GormStore, *gorm.DB) {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	st, err := NewGormStore(db)
	require.NoError(t, err)
	return st, db
}

func createArea(t *testing.T, db *gorm.DB, sharing models.Sharing) *models.Area {
	t.Helper()

	area := &models.Area{Sharing: sharing, Name: "Health"}
	require.NoError(t, db.Create(area).Error)
	return area
}

func TestGetReturnsSharingProjection(t *testing.T) {
	st, db := newTestStore(t)

	perms := models.PermissionMap{
		"user-2": {Level: models.LevelViewer},
	}
	area := createArea(t, db, models.Sharing{
		OwnerUserID: "owner-1",
		SharedWith:  datatypes.NewJSONSlice([]string{"user-2"}),
		Permissions: datatypes.NewJSONType(perms),
		Inheritance: datatypes.NewJSONType(models.FullInheritance()),
	})

	doc, err := st.Get(context.Background(), hierarchy.TypeArea, area.ID)
	require.NoError(t, err)
	require.Equal(t, hierarchy.TypeArea, doc.Type)
	require.Equal(t, area.ID, doc.ID)
	require.Equal(t, "Health", doc.Name)
	require.Equal(t, "owner-1", doc.OwnerUserID)
	require.Equal(t, []string{"user-2"}, doc.SharedWith)
	require.Equal(t, models.LevelViewer, doc.Permissions["user-2"].Level)
	require.True(t, doc.Inheritance.PropagateToGoals)
	require.Nil(t, doc.Parents)
}

func TestGetNotFound(t *testing.T) {
	st, _ := newTestStore(t)

	_, err := st.Get(context.Background(), hierarchy.TypeArea, "missing")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = st.Get(context.Background(), "folder", "some-id")
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrNotFound)
}

func TestQueryByParent(t *testing.T) {
	st, db := newTestStore(t)
	ctx := context.Background()

	area := createArea(t, db, models.Sharing{OwnerUserID: "owner-1"})
	goal := &models.Goal{Sharing: models.Sharing{OwnerUserID: "owner-1"}, AreaID: area.ID, Name: "Run a marathon"}
	require.NoError(t, db.Create(goal).Error)
	otherGoal := &models.Goal{Sharing: models.Sharing{OwnerUserID: "owner-1"}, AreaID: "area-elsewhere", Name: "Read more"}
	require.NoError(t, db.Create(otherGoal).Error)

	milestone := &models.Milestone{Sharing: models.Sharing{OwnerUserID: "owner-1"}, GoalID: goal.ID, Name: "Half marathon"}
	require.NoError(t, db.Create(milestone).Error)
	attached := &models.Task{Sharing: models.Sharing{OwnerUserID: "owner-1"}, GoalID: goal.ID, MilestoneID: &milestone.ID, Title: "Sign up"}
	require.NoError(t, db.Create(attached).Error)
	loose := &models.Task{Sharing: models.Sharing{OwnerUserID: "owner-1"}, GoalID: goal.ID, Title: "Buy shoes"}
	require.NoError(t, db.Create(loose).Error)

	goals, err := st.QueryByParent(ctx, hierarchy.TypeGoal, "area_id", area.ID)
	require.NoError(t, err)
	require.Len(t, goals, 1)
	require.Equal(t, goal.ID, goals[0].ID)
	require.Equal(t, area.ID, goals[0].Parents["area_id"])

	// Goal-scoped task queries see milestone tasks too.
	tasks, err := st.QueryByParent(ctx, hierarchy.TypeTask, "goal_id", goal.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 2)

	tasks, err = st.QueryByParent(ctx, hierarchy.TypeTask, "milestone_id", milestone.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	require.Equal(t, attached.ID, tasks[0].ID)

	tasks, err = st.QueryByParent(ctx, hierarchy.TypeTask, "goal_id", "no-such-goal")
	require.NoError(t, err)
	require.Empty(t, tasks)
}

func TestQueryByParentRejectsUnknownFields(t *testing.T) {
	st, _ := newTestStore(t)
	ctx := context.Background()

	// Only field/type pairs from the containment table are queryable.
	_, err := st.QueryByParent(ctx, hierarchy.TypeGoal, "owner_user_id", "owner-1")
	require.Error(t, err)

	_, err = st.QueryByParent(ctx, hierarchy.TypeTask, "area_id", "area-1")
	require.Error(t, err)

	_, err = st.QueryByParent(ctx, hierarchy.TypeArea, "area_id", "area-1")
	require.Error(t, err)
}

func TestMergeGrantUnionsMembershipAndStripsMarkers(t *testing.T) {
	st, db := newTestStore(t)
	ctx := context.Background()

	area := createArea(t, db, models.Sharing{
		OwnerUserID: "owner-1",
		SharedWith:  datatypes.NewJSONSlice([]string{"user-2"}),
		Permissions: datatypes.NewJSONType(models.PermissionMap{
			"user-2": {Level: models.LevelViewer},
		}),
	})

	grant := models.HierarchicalPermissions{
		Level:             models.LevelEditor,
		SpecificOverrides: models.SpecificOverrides{"manage_sharing": true},
		InheritedFrom:     &models.InheritedFrom{Type: hierarchy.TypeArea, ID: "elsewhere"},
	}
	require.NoError(t, st.MergeGrant(ctx, hierarchy.TypeArea, area.ID, "user-3", grant))

	doc, err := st.Get(ctx, hierarchy.TypeArea, area.ID)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"user-2", "user-3"}, doc.SharedWith)

	stored, ok := doc.DirectGrant("user-3")
	require.True(t, ok)
	require.Equal(t, models.LevelEditor, stored.Level)
	require.True(t, stored.SpecificOverrides["manage_sharing"])
	require.Nil(t, stored.InheritedFrom, "inherited markers must not be persisted")

	// The pre-existing grant is untouched.
	existing, ok := doc.DirectGrant("user-2")
	require.True(t, ok)
	require.Equal(t, models.LevelViewer, existing.Level)
}

func TestMergeGrantIsIdempotent(t *testing.T) {
	st, db := newTestStore(t)
	ctx := context.Background()

	area := createArea(t, db, models.Sharing{OwnerUserID: "owner-1"})
	grant := models.HierarchicalPermissions{Level: models.LevelEditor}

	require.NoError(t, st.MergeGrant(ctx, hierarchy.TypeArea, area.ID, "user-2", grant))
	require.NoError(t, st.MergeGrant(ctx, hierarchy.TypeArea, area.ID, "user-2", grant))

	doc, err := st.Get(ctx, hierarchy.TypeArea, area.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"user-2"}, doc.SharedWith)
	require.Len(t, doc.Permissions, 1)
}

func TestMergeGrantMissingResource(t *testing.T) {
	st, _ := newTestStore(t)

	err := st.MergeGrant(context.Background(), hierarchy.TypeArea, "missing", "user-2", models.HierarchicalPermissions{Level: models.LevelViewer})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRemoveGrant(t *testing.T) {
	st, db := newTestStore(t)
	ctx := context.Background()

	area := createArea(t, db, models.Sharing{
		OwnerUserID: "owner-1",
		SharedWith:  datatypes.NewJSONSlice([]string{"user-2", "user-3"}),
		Permissions: datatypes.NewJSONType(models.PermissionMap{
			"user-2": {Level: models.LevelViewer},
			"user-3": {Level: models.LevelEditor},
		}),
	})

	require.NoError(t, st.RemoveGrant(ctx, hierarchy.TypeArea, area.ID, "user-2"))

	doc, err := st.Get(ctx, hierarchy.TypeArea, area.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"user-3"}, doc.SharedWith)
	_, ok := doc.DirectGrant("user-2")
	require.False(t, ok)
	_, ok = doc.DirectGrant("user-3")
	require.True(t, ok)

	// Removing a user that holds nothing succeeds without writing.
	require.NoError(t, st.RemoveGrant(ctx, hierarchy.TypeArea, area.ID, "user-9"))

	require.ErrorIs(t, st.RemoveGrant(ctx, hierarchy.TypeArea, "missing", "user-2"), ErrNotFound)
}

func TestRemoveGrantClearsMembershipOnlyDrift(t *testing.T) {
	st, db := newTestStore(t)
	ctx := context.Background()

	// A row where the membership list drifted ahead of the permission map.
	area := createArea(t, db, models.Sharing{
		OwnerUserID: "owner-1",
		SharedWith:  datatypes.NewJSONSlice([]string{"user-2"}),
		Permissions: datatypes.NewJSONType(models.PermissionMap{}),
	})

	require.NoError(t, st.RemoveGrant(ctx, hierarchy.TypeArea, area.ID, "user-2"))

	doc, err := st.Get(ctx, hierarchy.TypeArea, area.ID)
	require.NoError(t, err)
	require.Empty(t, doc.SharedWith)
}

func TestUpdateInheritance(t *testing.T) {
	st, db := newTestStore(t)
	ctx := context.Background()

	area := createArea(t, db, models.Sharing{
		OwnerUserID: "owner-1",
		Inheritance: datatypes.NewJSONType(models.FullInheritance()),
	})

	settings := models.InheritanceSettings{PropagateToGoals: true}
	require.NoError(t, st.UpdateInheritance(ctx, hierarchy.TypeArea, area.ID, settings))

	doc, err := st.Get(ctx, hierarchy.TypeArea, area.ID)
	require.NoError(t, err)
	require.Equal(t, settings, doc.Inheritance)

	require.ErrorIs(t, st.UpdateInheritance(ctx, hierarchy.TypeArea, "missing", settings), ErrNotFound)
}
