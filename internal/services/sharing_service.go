package services

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ascendhq/ascend/internal/hierarchy"
	"github.com/ascendhq/ascend/internal/models"
	"github.com/ascendhq/ascend/internal/permissions"
	"github.com/ascendhq/ascend/internal/store"
	apperrors "github.com/ascendhq/ascend/pkg/errors"
	"github.com/ascendhq/ascend/pkg/logger"
)

// ShareInput describes a grant to create or replace for one collaborator.
type ShareInput struct {
	UserID    string
	Level     models.PermissionLevel
	Overrides models.SpecificOverrides
}

// ShareResult reports the applied grant plus what the fan-out reached. When
// the accompanying error is a *permissions.PartialPropagationError the direct
// grant and the writes in Propagation.Applied are in place regardless.
type ShareResult struct {
	ResourceType hierarchy.ResourceType         `json:"resource_type"`
	ResourceID   string                         `json:"resource_id"`
	UserID       string                         `json:"user_id"`
	Grant        models.HierarchicalPermissions `json:"grant"`
	Propagation  *permissions.PropagationResult `json:"propagation,omitempty"`
}

// Collaborator is one entry in a resource's sharing list.
type Collaborator struct {
	UserID      string                   `json:"user_id"`
	Username    string                   `json:"username,omitempty"`
	DisplayName string                   `json:"display_name,omitempty"`
	Email       string                   `json:"email,omitempty"`
	Level       models.PermissionLevel   `json:"level"`
	Overrides   models.SpecificOverrides `json:"overrides,omitempty"`
	IsOwner     bool                     `json:"is_owner"`
}

// SharingService manages collaborator grants on resources and fans changes
// out to descendants.
type SharingService struct {
	db         *gorm.DB
	store      store.Store
	access     *AccessService
	propagator *permissions.Propagator
	notifier   *ShareNotifier
	log        *zap.Logger
}

// NewSharingService constructs a sharing service. The notifier may be nil,
// in which case no share emails are sent.
func NewSharingService(db *gorm.DB, st store.Store, access *AccessService, propagator *permissions.Propagator, notifier *ShareNotifier) (*SharingService, error) {
	if db == nil {
		return nil, errors.New("sharing service: db is required")
	}
	if st == nil {
		return nil, errors.New("sharing service: store is required")
	}
	if access == nil {
		return nil, errors.New("sharing service: access service is required")
	}
	if propagator == nil {
		return nil, errors.New("sharing service: propagator is required")
	}
	return &SharingService{
		db:         db,
		store:      st,
		access:     access,
		propagator: propagator,
		notifier:   notifier,
		log:        logger.WithModule("sharing"),
	}, nil
}

// Share grants (or replaces) a collaborator's permission on the resource and
// propagates the grant to descendants per the resource's inheritance
// settings. The requester needs sharing authority on the resource.
func (s *SharingService) Share(ctx context.Context, requesterID string, rt hierarchy.ResourceType, resourceID string, input ShareInput) (*ShareResult, error) {
	ctx = ensureContext(ctx)

	targetID := normaliseID(input.UserID)
	if targetID == "" {
		return nil, apperrors.NewBadRequest("target user id is required")
	}
	if !input.Level.Valid() || input.Level == models.LevelOwner {
		return nil, apperrors.NewBadRequest("level must be admin, editor, or viewer")
	}

	if err := s.access.Require(ctx, requesterID, rt, resourceID, models.CapabilityManageSharing); err != nil {
		return nil, err
	}

	doc, err := s.loadDocument(ctx, rt, resourceID)
	if err != nil {
		return nil, err
	}
	if doc.OwnerUserID == targetID {
		return nil, apperrors.NewBadRequest("resource owner already has full access")
	}

	target, err := s.lookupUser(ctx, targetID)
	if err != nil {
		return nil, err
	}

	grant := models.HierarchicalPermissions{
		Level:             input.Level,
		SpecificOverrides: input.Overrides.Clone(),
	}

	if err := s.store.MergeGrant(ctx, rt, doc.ID, targetID, grant); err != nil {
		return nil, fmt.Errorf("sharing service: apply grant: %w", err)
	}

	result := &ShareResult{
		ResourceType: rt,
		ResourceID:   doc.ID,
		UserID:       targetID,
		Grant:        grant,
	}

	propagation, propErr := s.propagator.Propagate(ctx, permissions.PropagationRequest{
		ResourceType: rt,
		ResourceID:   doc.ID,
		UserID:       targetID,
		Grant:        &grant,
		Settings:     doc.Inheritance,
	})
	result.Propagation = propagation

	s.notifyShared(ctx, requesterID, doc, target, grant)

	if propErr != nil {
		return result, fmt.Errorf("sharing service: share %s %s: %w", rt, doc.ID, propErr)
	}
	return result, nil
}

// Revoke removes a collaborator's grant from the resource and from every
// descendant the inheritance settings reach. Revoking an absent grant still
// fans out, clearing stale descendant grants left by earlier shares.
func (s *SharingService) Revoke(ctx context.Context, requesterID string, rt hierarchy.ResourceType, resourceID, targetUserID string) (*permissions.PropagationResult, error) {
	ctx = ensureContext(ctx)

	targetID := normaliseID(targetUserID)
	if targetID == "" {
		return nil, apperrors.NewBadRequest("target user id is required")
	}

	if err := s.access.Require(ctx, requesterID, rt, resourceID, models.CapabilityManageSharing); err != nil {
		return nil, err
	}

	doc, err := s.loadDocument(ctx, rt, resourceID)
	if err != nil {
		return nil, err
	}
	if doc.OwnerUserID == targetID {
		return nil, apperrors.NewBadRequest("cannot revoke the resource owner")
	}

	if err := s.store.RemoveGrant(ctx, rt, doc.ID, targetID); err != nil {
		return nil, fmt.Errorf("sharing service: remove grant: %w", err)
	}

	propagation, propErr := s.propagator.Propagate(ctx, permissions.PropagationRequest{
		ResourceType: rt,
		ResourceID:   doc.ID,
		UserID:       targetID,
		Grant:        nil,
		Settings:     doc.Inheritance,
	})
	if propErr != nil {
		return propagation, fmt.Errorf("sharing service: revoke %s %s: %w", rt, doc.ID, propErr)
	}
	return propagation, nil
}

// ListCollaborators returns the owner plus every direct grant on the
// resource. The requester needs view access.
func (s *SharingService) ListCollaborators(ctx context.Context, requesterID string, rt hierarchy.ResourceType, resourceID string) ([]Collaborator, error) {
	ctx = ensureContext(ctx)

	if err := s.access.Require(ctx, requesterID, rt, resourceID, models.CapabilityView); err != nil {
		return nil, err
	}

	doc, err := s.loadDocument(ctx, rt, resourceID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(doc.Permissions)+1)
	ids = append(ids, doc.OwnerUserID)
	for userID := range doc.Permissions {
		ids = append(ids, userID)
	}

	users, err := s.lookupUsers(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]Collaborator, 0, len(ids))

	owner := Collaborator{UserID: doc.OwnerUserID, Level: models.LevelOwner, IsOwner: true}
	owner.fill(users[doc.OwnerUserID])
	out = append(out, owner)

	for userID, grant := range doc.Permissions {
		entry := Collaborator{
			UserID:    userID,
			Level:     grant.Level,
			Overrides: grant.SpecificOverrides.Clone(),
		}
		entry.fill(users[userID])
		out = append(out, entry)
	}

	// Owner first, then collaborators in a stable order.
	sort.SliceStable(out[1:], func(i, j int) bool {
		return out[i+1].UserID < out[j+1].UserID
	})

	return out, nil
}

// SetInheritance replaces the resource's propagation gates. Existing
// descendant grants are untouched; the new settings only shape future
// permission changes.
func (s *SharingService) SetInheritance(ctx context.Context, requesterID string, rt hierarchy.ResourceType, resourceID string, settings models.InheritanceSettings) error {
	ctx = ensureContext(ctx)

	if err := s.access.Require(ctx, requesterID, rt, resourceID, models.CapabilityManageSharing); err != nil {
		return err
	}

	if err := s.store.UpdateInheritance(ctx, rt, resourceID, settings); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperrors.ErrNotFound
		}
		return fmt.Errorf("sharing service: update inheritance: %w", err)
	}
	return nil
}

func (s *SharingService) loadDocument(ctx context.Context, rt hierarchy.ResourceType, resourceID string) (*store.Document, error) {
	doc, err := s.store.Get(ctx, rt, normaliseID(resourceID))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("sharing service: load %s %s: %w", rt, resourceID, err)
	}
	return doc, nil
}

func (s *SharingService) lookupUser(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewBadRequest("target user does not exist")
		}
		return nil, fmt.Errorf("sharing service: load user %s: %w", userID, err)
	}
	return &user, nil
}

func (s *SharingService) lookupUsers(ctx context.Context, ids []string) (map[string]models.User, error) {
	var users []models.User
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("sharing service: load users: %w", err)
	}

	// Deleted accounts simply render without profile details.
	out := make(map[string]models.User, len(users))
	for _, user := range users {
		out[user.ID] = user
	}
	return out, nil
}

func (s *SharingService) notifyShared(ctx context.Context, requesterID string, doc *store.Document, target *models.User, grant models.HierarchicalPermissions) {
	if s.notifier == nil || target == nil {
		return
	}

	granterName, granterEmail := requesterID, ""
	if requester, err := s.lookupUser(ctx, requesterID); err == nil {
		granterName = displayName(requester)
		granterEmail = requester.Email
	}

	s.notifier.NotifyShared(ctx, ShareNotification{
		RecipientEmail: target.Email,
		RecipientName:  displayName(target),
		GranterName:    granterName,
		GranterEmail:   granterEmail,
		ResourceType:   doc.Type,
		ResourceID:     doc.ID,
		ResourceName:   doc.Name,
		Grant:          grant,
	})
}

func (c *Collaborator) fill(user models.User) {
	if user.ID == "" {
		return
	}
	c.Username = user.Username
	c.DisplayName = user.DisplayName
	c.Email = user.Email
}

func displayName(user *models.User) string {
	if user.DisplayName != "" {
		return user.DisplayName
	}
	return user.Username
}
