package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ascendhq/ascend/internal/hierarchy"
	"github.com/ascendhq/ascend/internal/models"
	"github.com/ascendhq/ascend/internal/permissions"
	"github.com/ascendhq/ascend/internal/services"
	"github.com/ascendhq/ascend/pkg/response"
)

// SharingHandler exposes collaborator, access, and inheritance endpoints for
// one shareable collection.
type SharingHandler struct {
	sharing *services.SharingService
	access  *services.AccessService
}

func NewSharingHandler(sharing *services.SharingService, access *services.AccessService) *SharingHandler {
	return &SharingHandler{sharing: sharing, access: access}
}

type shareRequest struct {
	Level     string          `json:"level" validate:"required,permission_level"`
	Overrides map[string]bool `json:"overrides"`
}

type inheritanceRequest struct {
	Goals      bool `json:"goals"`
	Milestones bool `json:"milestones"`
	Tasks      bool `json:"tasks"`
	Routines   bool `json:"routines"`
}

// ListCollaborators handles GET /api/<collection>/:id/collaborators.
func (h *SharingHandler) ListCollaborators(rt hierarchy.ResourceType) gin.HandlerFunc {
	return func(c *gin.Context) {
		collaborators, err := h.sharing.ListCollaborators(requestContext(c), currentUserID(c), rt, c.Param("id"))
		if err != nil {
			response.Error(c, err)
			return
		}
		response.Success(c, http.StatusOK, collaborators)
	}
}

// Share handles PUT /api/<collection>/:id/collaborators/:userID. A partial
// propagation failure still reports the applied writes, with a 207 status.
func (h *SharingHandler) Share(rt hierarchy.ResourceType) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req shareRequest
		if !bindAndValidate(c, &req) {
			return
		}

		result, err := h.sharing.Share(requestContext(c), currentUserID(c), rt, c.Param("id"), services.ShareInput{
			UserID:    c.Param("userID"),
			Level:     models.PermissionLevel(req.Level),
			Overrides: models.SpecificOverrides(req.Overrides),
		})
		if err != nil {
			var partial *permissions.PartialPropagationError
			if errors.As(err, &partial) {
				response.Success(c, http.StatusMultiStatus, gin.H{
					"result":   result,
					"failures": partial.Failures,
				})
				return
			}
			response.Error(c, err)
			return
		}
		response.Success(c, http.StatusOK, result)
	}
}

// Revoke handles DELETE /api/<collection>/:id/collaborators/:userID.
func (h *SharingHandler) Revoke(rt hierarchy.ResourceType) gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := h.sharing.Revoke(requestContext(c), currentUserID(c), rt, c.Param("id"), c.Param("userID"))
		if err != nil {
			var partial *permissions.PartialPropagationError
			if errors.As(err, &partial) {
				response.Success(c, http.StatusMultiStatus, gin.H{
					"result":   result,
					"failures": partial.Failures,
				})
				return
			}
			response.Error(c, err)
			return
		}
		response.Success(c, http.StatusOK, gin.H{"revoked": true, "propagation": result})
	}
}

// Access handles GET /api/<collection>/:id/access, returning the caller's
// effective capabilities on the resource.
func (h *SharingHandler) Access(rt hierarchy.ResourceType) gin.HandlerFunc {
	return func(c *gin.Context) {
		access, err := h.access.Effective(requestContext(c), currentUserID(c), rt, c.Param("id"))
		if err != nil {
			response.Error(c, err)
			return
		}
		response.Success(c, http.StatusOK, access)
	}
}

// SetInheritance handles PUT /api/<collection>/:id/inheritance.
func (h *SharingHandler) SetInheritance(rt hierarchy.ResourceType) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req inheritanceRequest
		if !bindAndValidate(c, &req) {
			return
		}

		settings := models.InheritanceSettings{
			PropagateToGoals:      req.Goals,
			PropagateToMilestones: req.Milestones,
			PropagateToTasks:      req.Tasks,
			PropagateToRoutines:   req.Routines,
		}
		if err := h.sharing.SetInheritance(requestContext(c), currentUserID(c), rt, c.Param("id"), settings); err != nil {
			response.Error(c, err)
			return
		}
		response.Success(c, http.StatusOK, settings)
	}
}
