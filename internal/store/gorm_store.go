package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/ascendhq/ascend/internal/hierarchy"
	"github.com/ascendhq/ascend/internal/models"
)

// GormStore persists sharing state in the relational collections managed by
// gorm. Sharing columns are read-modify-write with no compare-and-swap; the
// last write per row wins, which is the accepted consistency model for the
// single-actor workload this serves.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore constructs a store over the provided database handle.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if db == nil {
		return nil, errors.New("store: db is required")
	}
	return &GormStore{db: db}, nil
}

func tableFor(rt hierarchy.ResourceType) string {
	return rt.Collection()
}

// Get fetches one resource's sharing projection.
func (s *GormStore) Get(ctx context.Context, rt hierarchy.ResourceType, id string) (*Document, error) {
	if !rt.Valid() {
		return nil, fmt.Errorf("store: invalid resource type %q", rt)
	}

	switch rt {
	case hierarchy.TypeArea:
		var m models.Area
		if err := s.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
			return nil, s.readErr(rt, id, err)
		}
		return areaDoc(&m), nil
	case hierarchy.TypeGoal:
		var m models.Goal
		if err := s.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
			return nil, s.readErr(rt, id, err)
		}
		return goalDoc(&m), nil
	case hierarchy.TypeMilestone:
		var m models.Milestone
		if err := s.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
			return nil, s.readErr(rt, id, err)
		}
		return milestoneDoc(&m), nil
	case hierarchy.TypeTask:
		var m models.Task
		if err := s.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
			return nil, s.readErr(rt, id, err)
		}
		return taskDoc(&m), nil
	default:
		var m models.Routine
		if err := s.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
			return nil, s.readErr(rt, id, err)
		}
		return routineDoc(&m), nil
	}
}

// QueryByParent lists every resource of the given type linked to parentID
// through parentField. The field name must come from the hierarchy table.
func (s *GormStore) QueryByParent(ctx context.Context, rt hierarchy.ResourceType, parentField, parentID string) ([]Document, error) {
	if err := validateParentField(rt, parentField); err != nil {
		return nil, err
	}

	cond := fmt.Sprintf("%s = ?", parentField)

	switch rt {
	case hierarchy.TypeGoal:
		var rows []models.Goal
		if err := s.db.WithContext(ctx).Where(cond, parentID).Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("store: query %s by %s: %w", rt, parentField, err)
		}
		docs := make([]Document, 0, len(rows))
		for i := range rows {
			docs = append(docs, *goalDoc(&rows[i]))
		}
		return docs, nil
	case hierarchy.TypeMilestone:
		var rows []models.Milestone
		if err := s.db.WithContext(ctx).Where(cond, parentID).Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("store: query %s by %s: %w", rt, parentField, err)
		}
		docs := make([]Document, 0, len(rows))
		for i := range rows {
			docs = append(docs, *milestoneDoc(&rows[i]))
		}
		return docs, nil
	case hierarchy.TypeTask:
		var rows []models.Task
		if err := s.db.WithContext(ctx).Where(cond, parentID).Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("store: query %s by %s: %w", rt, parentField, err)
		}
		docs := make([]Document, 0, len(rows))
		for i := range rows {
			docs = append(docs, *taskDoc(&rows[i]))
		}
		return docs, nil
	case hierarchy.TypeRoutine:
		var rows []models.Routine
		if err := s.db.WithContext(ctx).Where(cond, parentID).Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("store: query %s by %s: %w", rt, parentField, err)
		}
		docs := make([]Document, 0, len(rows))
		for i := range rows {
			docs = append(docs, *routineDoc(&rows[i]))
		}
		return docs, nil
	default:
		return nil, fmt.Errorf("store: resource type %q has no parent collection", rt)
	}
}

// MergeGrant adds the user to the membership list and writes the grant under
// permissions[userID], leaving other keys untouched. Any inherited-from
// marker on the incoming record is stripped before persisting.
func (s *GormStore) MergeGrant(ctx context.Context, rt hierarchy.ResourceType, id, userID string, grant models.HierarchicalPermissions) error {
	row, err := s.loadSharing(ctx, rt, id)
	if err != nil {
		return err
	}

	grant = grant.Clone()
	grant.InheritedFrom = nil

	perms := row.Permissions.Data()
	if perms == nil {
		perms = models.PermissionMap{}
	}
	perms[userID] = grant

	shared := []string(row.SharedWith)
	found := false
	for _, existing := range shared {
		if existing == userID {
			found = true
			break
		}
	}
	if !found {
		shared = append(shared, userID)
	}

	return s.writeSharing(ctx, rt, id, shared, perms)
}

// RemoveGrant deletes the user's grant and membership entry. Removing a user
// that holds neither is a no-op.
func (s *GormStore) RemoveGrant(ctx context.Context, rt hierarchy.ResourceType, id, userID string) error {
	row, err := s.loadSharing(ctx, rt, id)
	if err != nil {
		return err
	}

	perms := row.Permissions.Data()
	_, hadGrant := perms[userID]
	if hadGrant {
		delete(perms, userID)
	}

	shared := make([]string, 0, len(row.SharedWith))
	removed := false
	for _, existing := range row.SharedWith {
		if existing == userID {
			removed = true
			continue
		}
		shared = append(shared, existing)
	}

	if !hadGrant && !removed {
		return nil
	}
	if perms == nil {
		perms = models.PermissionMap{}
	}

	return s.writeSharing(ctx, rt, id, shared, perms)
}

// UpdateInheritance replaces the inheritance settings on the resource.
func (s *GormStore) UpdateInheritance(ctx context.Context, rt hierarchy.ResourceType, id string, settings models.InheritanceSettings) error {
	if _, err := s.loadSharing(ctx, rt, id); err != nil {
		return err
	}

	err := s.db.WithContext(ctx).
		Table(tableFor(rt)).
		Where("id = ?", id).
		Update("inheritance", datatypes.NewJSONType(settings)).Error
	if err != nil {
		return fmt.Errorf("store: update inheritance %s %s: %w", rt, id, err)
	}
	return nil
}

type sharingRow struct {
	ID          string
	OwnerUserID string
	SharedWith  datatypes.JSONSlice[string]
	Permissions datatypes.JSONType[models.PermissionMap]
	Inheritance datatypes.JSONType[models.InheritanceSettings]
}

func (s *GormStore) loadSharing(ctx context.Context, rt hierarchy.ResourceType, id string) (*sharingRow, error) {
	if !rt.Valid() {
		return nil, fmt.Errorf("store: invalid resource type %q", rt)
	}

	var row sharingRow
	err := s.db.WithContext(ctx).
		Table(tableFor(rt)).
		Select("id", "owner_user_id", "shared_with", "permissions", "inheritance").
		Where("id = ?", id).
		Take(&row).Error
	if err != nil {
		return nil, s.readErr(rt, id, err)
	}
	return &row, nil
}

func (s *GormStore) writeSharing(ctx context.Context, rt hierarchy.ResourceType, id string, shared []string, perms models.PermissionMap) error {
	err := s.db.WithContext(ctx).
		Table(tableFor(rt)).
		Where("id = ?", id).
		Updates(map[string]any{
			"shared_with": datatypes.NewJSONSlice(shared),
			"permissions": datatypes.NewJSONType(perms),
		}).Error
	if err != nil {
		return fmt.Errorf("store: write sharing %s %s: %w", rt, id, err)
	}
	return nil
}

func (s *GormStore) readErr(rt hierarchy.ResourceType, id string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("store: %s %s: %w", rt, id, ErrNotFound)
	}
	return fmt.Errorf("store: load %s %s: %w", rt, id, err)
}

func validateParentField(rt hierarchy.ResourceType, parentField string) error {
	for _, parent := range hierarchy.Types() {
		for _, rule := range hierarchy.Descendants(parent) {
			if rule.Type == rt && rule.ParentField == parentField {
				return nil
			}
		}
	}
	return fmt.Errorf("store: %q is not a parent field of %s", parentField, rt)
}

func sharingDoc(rt hierarchy.ResourceType, id, name string, sh *models.Sharing, parents map[string]string) *Document {
	return &Document{
		Type:        rt,
		ID:          id,
		Name:        name,
		OwnerUserID: sh.OwnerUserID,
		Parents:     parents,
		SharedWith:  append([]string(nil), sh.SharedWith...),
		Permissions: sh.Permissions.Data(),
		Inheritance: sh.Inheritance.Data(),
	}
}

func areaDoc(m *models.Area) *Document {
	return sharingDoc(hierarchy.TypeArea, m.ID, m.Name, &m.Sharing, nil)
}

func goalDoc(m *models.Goal) *Document {
	return sharingDoc(hierarchy.TypeGoal, m.ID, m.Name, &m.Sharing, map[string]string{
		"area_id": m.AreaID,
	})
}

func milestoneDoc(m *models.Milestone) *Document {
	return sharingDoc(hierarchy.TypeMilestone, m.ID, m.Name, &m.Sharing, map[string]string{
		"goal_id": m.GoalID,
	})
}

func taskDoc(m *models.Task) *Document {
	parents := map[string]string{"goal_id": m.GoalID}
	if m.MilestoneID != nil && *m.MilestoneID != "" {
		parents["milestone_id"] = *m.MilestoneID
	}
	return sharingDoc(hierarchy.TypeTask, m.ID, m.Title, &m.Sharing, parents)
}

func routineDoc(m *models.Routine) *Document {
	return sharingDoc(hierarchy.TypeRoutine, m.ID, m.Name, &m.Sharing, map[string]string{
		"goal_id": m.GoalID,
	})
}
