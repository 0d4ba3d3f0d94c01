package api

import (
	"github.com/gin-gonic/gin"

	"github.com/ascendhq/ascend/internal/handlers"
	"github.com/ascendhq/ascend/internal/hierarchy"
)

// registerResourceRoutes mounts the CRUD and sharing endpoints for each of
// the five shareable collections under /api/<collection>.
func registerResourceRoutes(api *gin.RouterGroup, resources *handlers.ResourceHandler, sharing *handlers.SharingHandler) {
	creators := map[hierarchy.ResourceType]gin.HandlerFunc{
		hierarchy.TypeArea:      resources.CreateArea,
		hierarchy.TypeGoal:      resources.CreateGoal,
		hierarchy.TypeMilestone: resources.CreateMilestone,
		hierarchy.TypeTask:      resources.CreateTask,
		hierarchy.TypeRoutine:   resources.CreateRoutine,
	}

	for _, rt := range hierarchy.Types() {
		group := api.Group("/" + rt.Collection())
		{
			group.POST("", creators[rt])
			group.GET("", resources.List(rt))
			group.GET("/:id", resources.Get(rt))
			group.DELETE("/:id", resources.Delete(rt))

			group.GET("/:id/collaborators", sharing.ListCollaborators(rt))
			group.PUT("/:id/collaborators/:userID", sharing.Share(rt))
			group.DELETE("/:id/collaborators/:userID", sharing.Revoke(rt))

			group.GET("/:id/access", sharing.Access(rt))
			group.PUT("/:id/inheritance", sharing.SetInheritance(rt))
		}
	}
}
