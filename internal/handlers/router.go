package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"customer-portal-backend/internal/config"
	"customer-portal-backend/internal/metrics"
	"customer-portal-backend/internal/middleware"
)

// RouterDeps are the handlers mounted by NewRouter.
type RouterDeps struct {
	Config   *config.Config
	Health   *HealthHandler
	Projects *ProjectsHandler
	Portal   *PortalHandler
	Messages *MessagesHandler
	Offers   *OffersHandler
}

func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()
	// public ids contain slashes and arrive escaped
	router.UseRawPath = true
	router.UnescapePathValues = true

	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(metrics.Middleware())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/health", deps.Health.Health)

	api := router.Group("/api/v1")

	// Storefront (no auth)
	api.GET("/catalog", deps.Offers.GetCatalog)
	api.POST("/offers", deps.Offers.SubmitOffer)

	authed := api.Group("")
	authed.Use(middleware.AuthMiddleware(deps.Config))

	// Projects
	authed.GET("/projects", deps.Projects.ListProjects)
	authed.GET("/projects/:project_id", deps.Projects.GetProject)

	// Folders
	authed.GET("/projects/:project_id/folders/files", deps.Portal.ListFiles)
	authed.GET("/projects/:project_id/folders/stream", deps.Portal.StreamFiles)

	// Files
	authed.POST("/projects/:project_id/files", deps.Portal.Upload)
	authed.DELETE("/projects/:project_id/files/:public_id", deps.Portal.DeleteFile)
	authed.POST("/projects/:project_id/files/:public_id/read", deps.Portal.MarkAsRead)
	authed.POST("/projects/:project_id/files/:public_id/approve", deps.Portal.Approve)
	authed.POST("/projects/:project_id/files/:public_id/view", deps.Portal.View)
	authed.POST("/projects/:project_id/files/:public_id/download", deps.Portal.Download)

	// Messages
	authed.GET("/projects/:project_id/messages", deps.Messages.ListMessages)
	authed.POST("/projects/:project_id/messages", deps.Messages.CreateMessage)
	authed.PUT("/projects/:project_id/messages/:message_id", deps.Messages.UpdateMessage)
	authed.DELETE("/projects/:project_id/messages/:message_id", deps.Messages.DeleteMessage)

	return router
}
