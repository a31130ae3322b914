package http

import (
	"github.com/gin-gonic/gin"

	"gopherform/internal/bootstrap"
	"gopherform/internal/transport/http/handler"
	"gopherform/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.MaxMultipartMemory = app.Config.MultipartMemory()
	router.Use(middleware.RequestID(), middleware.Logger(), gin.Recovery())

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/", healthHandler.Live)
	router.GET("/healthz", healthHandler.Check)
	router.GET("/readyz", healthHandler.Ready)
	router.Static(app.Uploads.URLPrefix(), app.Uploads.Dir())

	submissionHandler := handler.NewSubmissionHandler(app.Submissions)

	api := router.Group("/api")
	api.Use(middleware.RequireReady(app.Ready))
	api.GET("/submissions", submissionHandler.List)
	api.POST("/submit", submissionHandler.Create)
	api.DELETE("/submissions/:id", submissionHandler.Delete)
	api.GET("/submissions/:id/events", submissionHandler.Events)

	return router
}
