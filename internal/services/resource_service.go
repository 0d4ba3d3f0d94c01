package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/ascendhq/ascend/internal/hierarchy"
	"github.com/ascendhq/ascend/internal/models"
	apperrors "github.com/ascendhq/ascend/pkg/errors"
)

// CreateAreaInput carries the fields for a new area.
type CreateAreaInput struct {
	Name        string
	Description string
	Color       string
	Icon        string
}

// CreateGoalInput carries the fields for a new goal within an area.
type CreateGoalInput struct {
	AreaID      string
	Name        string
	Description string
	TargetDate  *time.Time
}

// CreateMilestoneInput carries the fields for a new milestone within a goal.
type CreateMilestoneInput struct {
	GoalID      string
	Name        string
	Description string
	DueDate     *time.Time
}

// CreateTaskInput carries the fields for a new task. MilestoneID is optional
// and must reference a milestone of the same goal when set.
type CreateTaskInput struct {
	GoalID      string
	MilestoneID *string
	Title       string
	Notes       string
	DueDate     *time.Time
	Priority    int
}

// CreateRoutineInput carries the fields for a new routine within a goal.
type CreateRoutineInput struct {
	GoalID   string
	Name     string
	Cadence  string
	TimesPer int
}

// ResourceService creates, reads, and deletes the shareable resources. The
// creator becomes the owner; creating inside a container requires edit access
// to it.
type ResourceService struct {
	db     *gorm.DB
	access *AccessService
}

// NewResourceService constructs a resource service.
func NewResourceService(db *gorm.DB, access *AccessService) (*ResourceService, error) {
	if db == nil {
		return nil, errors.New("resource service: db is required")
	}
	if access == nil {
		return nil, errors.New("resource service: access service is required")
	}
	return &ResourceService{db: db, access: access}, nil
}

// CreateArea creates a top-level area owned by the user. New areas start with
// every propagation gate open.
func (s *ResourceService) CreateArea(ctx context.Context, userID string, input CreateAreaInput) (*models.Area, error) {
	ctx = ensureContext(ctx)

	userID = normaliseID(userID)
	if userID == "" {
		return nil, apperrors.ErrUnauthorized
	}
	if input.Name == "" {
		return nil, apperrors.NewBadRequest("name is required")
	}

	area := &models.Area{
		Sharing:     newSharing(userID),
		Name:        input.Name,
		Description: input.Description,
		Color:       input.Color,
		Icon:        input.Icon,
	}
	if err := s.db.WithContext(ctx).Create(area).Error; err != nil {
		return nil, fmt.Errorf("resource service: create area: %w", err)
	}
	return area, nil
}

// CreateGoal creates a goal inside the area. The caller needs edit access to
// the area and becomes the goal's owner.
func (s *ResourceService) CreateGoal(ctx context.Context, userID string, input CreateGoalInput) (*models.Goal, error) {
	ctx = ensureContext(ctx)

	userID = normaliseID(userID)
	if userID == "" {
		return nil, apperrors.ErrUnauthorized
	}
	if input.Name == "" {
		return nil, apperrors.NewBadRequest("name is required")
	}
	areaID := normaliseID(input.AreaID)
	if areaID == "" {
		return nil, apperrors.NewBadRequest("area id is required")
	}

	if err := s.access.Require(ctx, userID, hierarchy.TypeArea, areaID, models.CapabilityEdit); err != nil {
		return nil, err
	}

	goal := &models.Goal{
		Sharing:     newSharing(userID),
		AreaID:      areaID,
		Name:        input.Name,
		Description: input.Description,
		TargetDate:  input.TargetDate,
	}
	if err := s.db.WithContext(ctx).Create(goal).Error; err != nil {
		return nil, fmt.Errorf("resource service: create goal: %w", err)
	}
	return goal, nil
}

// CreateMilestone creates a milestone inside the goal.
func (s *ResourceService) CreateMilestone(ctx context.Context, userID string, input CreateMilestoneInput) (*models.Milestone, error) {
	ctx = ensureContext(ctx)

	userID = normaliseID(userID)
	if userID == "" {
		return nil, apperrors.ErrUnauthorized
	}
	if input.Name == "" {
		return nil, apperrors.NewBadRequest("name is required")
	}
	goalID := normaliseID(input.GoalID)
	if goalID == "" {
		return nil, apperrors.NewBadRequest("goal id is required")
	}

	if err := s.access.Require(ctx, userID, hierarchy.TypeGoal, goalID, models.CapabilityEdit); err != nil {
		return nil, err
	}

	milestone := &models.Milestone{
		Sharing:     newSharing(userID),
		GoalID:      goalID,
		Name:        input.Name,
		Description: input.Description,
		DueDate:     input.DueDate,
	}
	if err := s.db.WithContext(ctx).Create(milestone).Error; err != nil {
		return nil, fmt.Errorf("resource service: create milestone: %w", err)
	}
	return milestone, nil
}

// CreateTask creates a task inside the goal, optionally attached to one of
// the goal's milestones.
func (s *ResourceService) CreateTask(ctx context.Context, userID string, input CreateTaskInput) (*models.Task, error) {
	ctx = ensureContext(ctx)

	userID = normaliseID(userID)
	if userID == "" {
		return nil, apperrors.ErrUnauthorized
	}
	if input.Title == "" {
		return nil, apperrors.NewBadRequest("title is required")
	}
	goalID := normaliseID(input.GoalID)
	if goalID == "" {
		return nil, apperrors.NewBadRequest("goal id is required")
	}

	if err := s.access.Require(ctx, userID, hierarchy.TypeGoal, goalID, models.CapabilityEdit); err != nil {
		return nil, err
	}

	var milestoneID *string
	if input.MilestoneID != nil && normaliseID(*input.MilestoneID) != "" {
		id := normaliseID(*input.MilestoneID)

		var milestone models.Milestone
		if err := s.db.WithContext(ctx).First(&milestone, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperrors.NewBadRequest("milestone does not exist")
			}
			return nil, fmt.Errorf("resource service: load milestone %s: %w", id, err)
		}
		if milestone.GoalID != goalID {
			return nil, apperrors.NewBadRequest("milestone belongs to a different goal")
		}
		milestoneID = &id
	}

	task := &models.Task{
		Sharing:     newSharing(userID),
		GoalID:      goalID,
		MilestoneID: milestoneID,
		Title:       input.Title,
		Notes:       input.Notes,
		DueDate:     input.DueDate,
		Priority:    input.Priority,
	}
	if err := s.db.WithContext(ctx).Create(task).Error; err != nil {
		return nil, fmt.Errorf("resource service: create task: %w", err)
	}
	return task, nil
}

// CreateRoutine creates a routine inside the goal.
func (s *ResourceService) CreateRoutine(ctx context.Context, userID string, input CreateRoutineInput) (*models.Routine, error) {
	ctx = ensureContext(ctx)

	userID = normaliseID(userID)
	if userID == "" {
		return nil, apperrors.ErrUnauthorized
	}
	if input.Name == "" {
		return nil, apperrors.NewBadRequest("name is required")
	}
	goalID := normaliseID(input.GoalID)
	if goalID == "" {
		return nil, apperrors.NewBadRequest("goal id is required")
	}

	if err := s.access.Require(ctx, userID, hierarchy.TypeGoal, goalID, models.CapabilityEdit); err != nil {
		return nil, err
	}

	cadence := input.Cadence
	if cadence == "" {
		cadence = "weekly"
	}
	timesPer := input.TimesPer
	if timesPer <= 0 {
		timesPer = 1
	}

	routine := &models.Routine{
		Sharing:  newSharing(userID),
		GoalID:   goalID,
		Name:     input.Name,
		Cadence:  cadence,
		TimesPer: timesPer,
		Active:   true,
	}
	if err := s.db.WithContext(ctx).Create(routine).Error; err != nil {
		return nil, fmt.Errorf("resource service: create routine: %w", err)
	}
	return routine, nil
}

// Get loads one resource after checking view access. The result is the
// concrete model for the type.
func (s *ResourceService) Get(ctx context.Context, userID string, rt hierarchy.ResourceType, id string) (any, error) {
	ctx = ensureContext(ctx)

	if err := s.access.Require(ctx, userID, rt, id, models.CapabilityView); err != nil {
		return nil, err
	}

	out := modelFor(rt)
	if out == nil {
		return nil, apperrors.NewBadRequest(fmt.Sprintf("unknown resource type %q", rt))
	}
	if err := s.db.WithContext(ctx).First(out, "id = ?", normaliseID(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("resource service: load %s %s: %w", rt, id, err)
	}
	return out, nil
}

// List returns the resources of one type the user owns or has been shared
// into, newest first.
func (s *ResourceService) List(ctx context.Context, userID string, rt hierarchy.ResourceType) (any, error) {
	ctx = ensureContext(ctx)

	userID = normaliseID(userID)
	if userID == "" {
		return nil, apperrors.ErrUnauthorized
	}

	tx := s.db.WithContext(ctx)
	query := tx.
		Where(tx.Where("owner_user_id = ?", userID).
			Or(datatypes.JSONArrayQuery("shared_with").Contains(userID))).
		Order("created_at DESC")

	var err error
	var out any
	switch rt {
	case hierarchy.TypeArea:
		var rows []models.Area
		err = query.Find(&rows).Error
		out = rows
	case hierarchy.TypeGoal:
		var rows []models.Goal
		err = query.Find(&rows).Error
		out = rows
	case hierarchy.TypeMilestone:
		var rows []models.Milestone
		err = query.Find(&rows).Error
		out = rows
	case hierarchy.TypeTask:
		var rows []models.Task
		err = query.Find(&rows).Error
		out = rows
	case hierarchy.TypeRoutine:
		var rows []models.Routine
		err = query.Find(&rows).Error
		out = rows
	default:
		return nil, apperrors.NewBadRequest(fmt.Sprintf("unknown resource type %q", rt))
	}
	if err != nil {
		return nil, fmt.Errorf("resource service: list %s: %w", rt.Collection(), err)
	}
	return out, nil
}

// Delete removes a resource. Only the owner or an admin-level collaborator
// may delete; contained resources are left in place and keep their own
// sharing state.
func (s *ResourceService) Delete(ctx context.Context, userID string, rt hierarchy.ResourceType, id string) error {
	ctx = ensureContext(ctx)

	access, err := s.access.Effective(ctx, userID, rt, id)
	if err != nil {
		return err
	}
	if !access.IsOwner && !access.Level.AtLeast(models.LevelAdmin) {
		return apperrors.ErrForbidden
	}

	target := modelFor(rt)
	if target == nil {
		return apperrors.NewBadRequest(fmt.Sprintf("unknown resource type %q", rt))
	}
	if err := s.db.WithContext(ctx).Delete(target, "id = ?", normaliseID(id)).Error; err != nil {
		return fmt.Errorf("resource service: delete %s %s: %w", rt, id, err)
	}
	return nil
}

func modelFor(rt hierarchy.ResourceType) any {
	switch rt {
	case hierarchy.TypeArea:
		return &models.Area{}
	case hierarchy.TypeGoal:
		return &models.Goal{}
	case hierarchy.TypeMilestone:
		return &models.Milestone{}
	case hierarchy.TypeTask:
		return &models.Task{}
	case hierarchy.TypeRoutine:
		return &models.Routine{}
	default:
		return nil
	}
}

func newSharing(ownerID string) models.Sharing {
	return models.Sharing{
		OwnerUserID: ownerID,
		SharedWith:  datatypes.JSONSlice[string]{},
		Permissions: datatypes.NewJSONType(models.PermissionMap{}),
		Inheritance: datatypes.NewJSONType(models.FullInheritance()),
	}
}
