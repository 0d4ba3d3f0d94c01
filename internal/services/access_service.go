package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/ascendhq/ascend/internal/hierarchy"
	"github.com/ascendhq/ascend/internal/models"
	"github.com/ascendhq/ascend/internal/permissions"
	"github.com/ascendhq/ascend/internal/store"
	apperrors "github.com/ascendhq/ascend/pkg/errors"
	"github.com/ascendhq/ascend/pkg/metrics"
)

// EffectiveAccess is the computed view of what one user can do on one
// resource. Owners get every capability regardless of the grant maps.
type EffectiveAccess struct {
	ResourceType hierarchy.ResourceType `json:"resource_type"`
	ResourceID   string                 `json:"resource_id"`

	IsOwner       bool                   `json:"is_owner"`
	Level         models.PermissionLevel `json:"level,omitempty"`
	InheritedFrom *models.InheritedFrom  `json:"inherited_from,omitempty"`

	CanView          bool `json:"can_view"`
	CanEdit          bool `json:"can_edit"`
	CanInvite        bool `json:"can_invite"`
	CanManageSharing bool `json:"can_manage_sharing"`
}

// AccessService answers capability questions by combining stored grants with
// the resource's ancestor chain.
type AccessService struct {
	store store.Store
}

// NewAccessService constructs an access service over the supplied store.
func NewAccessService(st store.Store) (*AccessService, error) {
	if st == nil {
		return nil, errors.New("access service: store is required")
	}
	return &AccessService{store: st}, nil
}

// Effective loads the resource and its ancestors and computes the user's
// effective access.
func (s *AccessService) Effective(ctx context.Context, userID string, rt hierarchy.ResourceType, resourceID string) (*EffectiveAccess, error) {
	ctx = ensureContext(ctx)

	userID = normaliseID(userID)
	if userID == "" {
		return nil, apperrors.ErrUnauthorized
	}

	doc, err := s.loadDocument(ctx, rt, resourceID)
	if err != nil {
		return nil, err
	}

	return s.effectiveForDocument(ctx, userID, doc)
}

// Can reports whether the user holds the capability on the resource.
func (s *AccessService) Can(ctx context.Context, userID string, rt hierarchy.ResourceType, resourceID, capability string) (bool, error) {
	ctx = ensureContext(ctx)

	userID = normaliseID(userID)
	if userID == "" {
		return false, apperrors.ErrUnauthorized
	}

	doc, err := s.loadDocument(ctx, rt, resourceID)
	if err != nil {
		return false, err
	}

	allowed := doc.OwnerUserID == userID
	if !allowed {
		ancestry, err := s.ancestry(ctx, doc)
		if err != nil {
			return false, err
		}
		allowed = permissions.HasPermission(userID, grantsOf(doc), ancestry, capability)
	}

	result := "denied"
	if allowed {
		result = "allowed"
	}
	metrics.PermissionChecks.WithLabelValues(capability, result).Inc()

	return allowed, nil
}

// Require returns ErrForbidden unless the user holds the capability.
func (s *AccessService) Require(ctx context.Context, userID string, rt hierarchy.ResourceType, resourceID, capability string) error {
	allowed, err := s.Can(ctx, userID, rt, resourceID, capability)
	if err != nil {
		return err
	}
	if !allowed {
		return apperrors.ErrForbidden
	}
	return nil
}

func (s *AccessService) effectiveForDocument(ctx context.Context, userID string, doc *store.Document) (*EffectiveAccess, error) {
	access := &EffectiveAccess{
		ResourceType: doc.Type,
		ResourceID:   doc.ID,
	}

	if doc.OwnerUserID == userID {
		access.IsOwner = true
		access.Level = models.LevelOwner
		access.CanView = true
		access.CanEdit = true
		access.CanInvite = true
		access.CanManageSharing = true
		return access, nil
	}

	ancestry, err := s.ancestry(ctx, doc)
	if err != nil {
		return nil, err
	}

	grant := permissions.Resolve(userID, grantsOf(doc), ancestry)
	if grant == nil {
		return access, nil
	}

	access.Level = grant.Level
	access.InheritedFrom = grant.InheritedFrom
	access.CanView = permissions.HasCapability(grant, models.CapabilityView)
	access.CanEdit = permissions.HasCapability(grant, models.CapabilityEdit)
	access.CanInvite = permissions.HasCapability(grant, models.CapabilityInvite)
	access.CanManageSharing = permissions.HasCapability(grant, models.CapabilityManageSharing)

	return access, nil
}

// ancestry walks parent links upward and returns the chain ordered nearest
// parent first. A dangling parent reference ends the walk without error.
func (s *AccessService) ancestry(ctx context.Context, doc *store.Document) ([]permissions.ResourceGrants, error) {
	var chain []permissions.ResourceGrants

	current := doc
	for {
		parentType, parentID, ok := nearestParent(current)
		if !ok {
			return chain, nil
		}

		parent, err := s.store.Get(ctx, parentType, parentID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return chain, nil
			}
			return nil, fmt.Errorf("access service: load %s %s: %w", parentType, parentID, err)
		}

		chain = append(chain, grantsOf(parent))
		current = parent
	}
}

// nearestParent picks the closest containing resource. Tasks attached to a
// milestone resolve through it; everything else goes straight to its single
// parent link.
func nearestParent(doc *store.Document) (hierarchy.ResourceType, string, bool) {
	switch doc.Type {
	case hierarchy.TypeGoal:
		if id := doc.Parents["area_id"]; id != "" {
			return hierarchy.TypeArea, id, true
		}
	case hierarchy.TypeMilestone, hierarchy.TypeRoutine:
		if id := doc.Parents["goal_id"]; id != "" {
			return hierarchy.TypeGoal, id, true
		}
	case hierarchy.TypeTask:
		if id := doc.Parents["milestone_id"]; id != "" {
			return hierarchy.TypeMilestone, id, true
		}
		if id := doc.Parents["goal_id"]; id != "" {
			return hierarchy.TypeGoal, id, true
		}
	}
	return "", "", false
}

func grantsOf(doc *store.Document) permissions.ResourceGrants {
	return permissions.ResourceGrants{
		Type:   doc.Type,
		ID:     doc.ID,
		Grants: doc.Permissions,
	}
}

func (s *AccessService) loadDocument(ctx context.Context, rt hierarchy.ResourceType, resourceID string) (*store.Document, error) {
	resourceID = normaliseID(resourceID)
	if resourceID == "" {
		return nil, apperrors.NewBadRequest("resource id is required")
	}
	if !rt.Valid() {
		return nil, apperrors.NewBadRequest(fmt.Sprintf("unknown resource type %q", rt))
	}

	doc, err := s.store.Get(ctx, rt, resourceID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("access service: load %s %s: %w", rt, resourceID, err)
	}
	return doc, nil
}
