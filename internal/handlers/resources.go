package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ascendhq/ascend/internal/hierarchy"
	"github.com/ascendhq/ascend/internal/services"
	"github.com/ascendhq/ascend/pkg/response"
)

// ResourceHandler exposes CRUD endpoints for the five shareable collections.
type ResourceHandler struct {
	resources *services.ResourceService
}

func NewResourceHandler(resources *services.ResourceService) *ResourceHandler {
	return &ResourceHandler{resources: resources}
}

type createAreaRequest struct {
	Name        string `json:"name" validate:"required,max=128"`
	Description string `json:"description" validate:"max=1024"`
	Color       string `json:"color" validate:"max=32"`
	Icon        string `json:"icon" validate:"max=64"`
}

type createGoalRequest struct {
	AreaID      string     `json:"area_id" validate:"required"`
	Name        string     `json:"name" validate:"required,max=128"`
	Description string     `json:"description" validate:"max=1024"`
	TargetDate  *time.Time `json:"target_date"`
}

type createMilestoneRequest struct {
	GoalID      string     `json:"goal_id" validate:"required"`
	Name        string     `json:"name" validate:"required,max=128"`
	Description string     `json:"description" validate:"max=1024"`
	DueDate     *time.Time `json:"due_date"`
}

type createTaskRequest struct {
	GoalID      string     `json:"goal_id" validate:"required"`
	MilestoneID *string    `json:"milestone_id"`
	Title       string     `json:"title" validate:"required,max=256"`
	Notes       string     `json:"notes" validate:"max=4096"`
	DueDate     *time.Time `json:"due_date"`
	Priority    int        `json:"priority" validate:"min=0,max=3"`
}

type createRoutineRequest struct {
	GoalID   string `json:"goal_id" validate:"required"`
	Name     string `json:"name" validate:"required,max=128"`
	Cadence  string `json:"cadence" validate:"omitempty,oneof=daily weekly monthly"`
	TimesPer int    `json:"times_per" validate:"min=0,max=100"`
}

// POST /api/areas
func (h *ResourceHandler) CreateArea(c *gin.Context) {
	var req createAreaRequest
	if !bindAndValidate(c, &req) {
		return
	}

	area, err := h.resources.CreateArea(requestContext(c), currentUserID(c), services.CreateAreaInput{
		Name:        req.Name,
		Description: req.Description,
		Color:       req.Color,
		Icon:        req.Icon,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, area)
}

// POST /api/goals
func (h *ResourceHandler) CreateGoal(c *gin.Context) {
	var req createGoalRequest
	if !bindAndValidate(c, &req) {
		return
	}

	goal, err := h.resources.CreateGoal(requestContext(c), currentUserID(c), services.CreateGoalInput{
		AreaID:      req.AreaID,
		Name:        req.Name,
		Description: req.Description,
		TargetDate:  req.TargetDate,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, goal)
}

// POST /api/milestones
func (h *ResourceHandler) CreateMilestone(c *gin.Context) {
	var req createMilestoneRequest
	if !bindAndValidate(c, &req) {
		return
	}

	milestone, err := h.resources.CreateMilestone(requestContext(c), currentUserID(c), services.CreateMilestoneInput{
		GoalID:      req.GoalID,
		Name:        req.Name,
		Description: req.Description,
		DueDate:     req.DueDate,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, milestone)
}

// POST /api/tasks
func (h *ResourceHandler) CreateTask(c *gin.Context) {
	var req createTaskRequest
	if !bindAndValidate(c, &req) {
		return
	}

	task, err := h.resources.CreateTask(requestContext(c), currentUserID(c), services.CreateTaskInput{
		GoalID:      req.GoalID,
		MilestoneID: req.MilestoneID,
		Title:       req.Title,
		Notes:       req.Notes,
		DueDate:     req.DueDate,
		Priority:    req.Priority,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, task)
}

// POST /api/routines
func (h *ResourceHandler) CreateRoutine(c *gin.Context) {
	var req createRoutineRequest
	if !bindAndValidate(c, &req) {
		return
	}

	routine, err := h.resources.CreateRoutine(requestContext(c), currentUserID(c), services.CreateRoutineInput{
		GoalID:   req.GoalID,
		Name:     req.Name,
		Cadence:  req.Cadence,
		TimesPer: req.TimesPer,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, routine)
}

// List handles GET /api/<collection> for the given type.
func (h *ResourceHandler) List(rt hierarchy.ResourceType) gin.HandlerFunc {
	return func(c *gin.Context) {
		rows, err := h.resources.List(requestContext(c), currentUserID(c), rt)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.Success(c, http.StatusOK, rows)
	}
}

// Get handles GET /api/<collection>/:id for the given type.
func (h *ResourceHandler) Get(rt hierarchy.ResourceType) gin.HandlerFunc {
	return func(c *gin.Context) {
		resource, err := h.resources.Get(requestContext(c), currentUserID(c), rt, c.Param("id"))
		if err != nil {
			response.Error(c, err)
			return
		}
		response.Success(c, http.StatusOK, resource)
	}
}

// Delete handles DELETE /api/<collection>/:id for the given type.
func (h *ResourceHandler) Delete(rt hierarchy.ResourceType) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := h.resources.Delete(requestContext(c), currentUserID(c), rt, c.Param("id")); err != nil {
			response.Error(c, err)
			return
		}
		response.Success(c, http.StatusOK, gin.H{"deleted": true})
	}
}
