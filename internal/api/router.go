package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	iauth "github.com/ascendhq/ascend/internal/auth"
	"github.com/ascendhq/ascend/internal/handlers"
	"github.com/ascendhq/ascend/internal/middleware"
	"github.com/ascendhq/ascend/internal/services"
)

// Deps bundles everything the router needs to assemble the API surface.
type Deps struct {
	JWT       *iauth.JWTService
	Users     *services.UserService
	Resources *services.ResourceService
	Sharing   *services.SharingService
	Access    *services.AccessService
}

// NewRouter builds the Gin engine, wires middleware, and registers routes.
func NewRouter(deps Deps) (*gin.Engine, error) {
	if deps.JWT == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}
	if deps.Users == nil {
		return nil, fmt.Errorf("user service must be provided")
	}
	if deps.Resources == nil {
		return nil, fmt.Errorf("resource service must be provided")
	}
	if deps.Sharing == nil {
		return nil, fmt.Errorf("sharing service must be provided")
	}
	if deps.Access == nil {
		return nil, fmt.Errorf("access service must be provided")
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())

	r.NoRoute(middleware.NotFoundHandler)

	// Public endpoints
	r.GET("/health", handlers.Health())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authHandler := handlers.NewAuthHandler(deps.Users, deps.JWT)

	auth := r.Group("/api/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
	}

	// Protected routes
	api := r.Group("/api")
	api.Use(middleware.Auth(deps.JWT))

	api.GET("/auth/me", authHandler.Me)

	resourceHandler := handlers.NewResourceHandler(deps.Resources)
	sharingHandler := handlers.NewSharingHandler(deps.Sharing, deps.Access)
	registerResourceRoutes(api, resourceHandler, sharingHandler)

	return r, nil
}
