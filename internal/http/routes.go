package http

import (
	"github.com/gin-gonic/gin"
	"github.com/router-for-me/RoutingEngine/internal/cache"
	"github.com/router-for-me/RoutingEngine/internal/catalog"
	"github.com/router-for-me/RoutingEngine/internal/config"
	"github.com/router-for-me/RoutingEngine/internal/estimator"
	"github.com/router-for-me/RoutingEngine/internal/http/handlers"
	"github.com/router-for-me/RoutingEngine/internal/router"
	"github.com/router-for-me/RoutingEngine/internal/selector"
	"github.com/router-for-me/RoutingEngine/internal/steering"
	"gorm.io/gorm"
)

// Deps carries everything the HTTP surface needs.
type Deps struct {
	Config       *config.Config
	DB           *gorm.DB
	Cache        *cache.Store
	Catalog      *catalog.Store
	Estimator    *estimator.Estimator
	Selector     *selector.Selector
	Orchestrator *router.Orchestrator
	Reloader     *steering.Reloader
}

// Register attaches all routes to the engine.
func Register(engine *gin.Engine, deps Deps) {
	health := handlers.NewHealthHandler(deps.DB)
	engine.GET("/healthz", health.Check)

	route := handlers.NewRouteHandler(deps.Orchestrator, deps.Selector, deps.Estimator, deps.Catalog)
	v1 := engine.Group("/v1/route", APIKeyAuth(deps.Config.Auth.APIKeyHashes))
	{
		v1.POST("/select", route.Select)
		v1.POST("/estimate", route.Estimate)
		v1.GET("/fallbacks/:modelID", route.Fallbacks)
	}

	rules := handlers.NewSteeringRuleHandler(deps.DB, deps.Reloader)
	profiles := handlers.NewModelProfileHandler(deps.DB)
	cacheAdmin := handlers.NewCacheAdminHandler(deps.Cache)
	admin := engine.Group("/v0/admin", AdminJWTAuth(deps.Config.Auth.JWTSecret))
	{
		admin.GET("/steering-rules", rules.List)
		admin.POST("/steering-rules", rules.Create)
		admin.GET("/steering-rules/:id", rules.Get)
		admin.PUT("/steering-rules/:id", rules.Update)
		admin.DELETE("/steering-rules/:id", rules.Delete)
		admin.POST("/steering-rules/test", rules.Test)

		admin.GET("/model-profiles", profiles.List)
		admin.POST("/cache/invalidate", cacheAdmin.Invalidate)
	}
}
