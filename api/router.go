package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/freesound-sampler-go/api/handlers"
	"github.com/yourusername/freesound-sampler-go/api/middleware"
	"github.com/yourusername/freesound-sampler-go/internal/domain"
	"github.com/yourusername/freesound-sampler-go/internal/events"
	"github.com/yourusername/freesound-sampler-go/pkg/logger"
)

// Services groups everything the HTTP API drives
type Services struct {
	Searcher  handlers.Searcher
	Batches   handlers.BatchController
	Bookmarks handlers.BookmarkService
	Pads      handlers.PadProvider
	History   domain.BatchRepository
	DB        handlers.Pinger
	Fabric    *events.Fabric
	LogsDir   string
}

// SetupRouterWithMultiLogger sets up the HTTP router with multi-logger support
func SetupRouterWithMultiLogger(services Services, logAdapter *logger.LoggerAdapter) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Middleware
	router.Use(middleware.LoggerWithAdapter(logAdapter))
	router.Use(middleware.RecoveryWithAdapter(logAdapter))
	router.Use(middleware.CORS())

	// Health endpoints
	healthHandler := handlers.NewHealthHandler(services.Batches, services.DB)
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		downloadHandler := handlers.NewDownloadHandler(services.Searcher, services.Batches, services.History, logAdapter.App())
		logHandler := handlers.NewLogHandler(services.LogsDir)

		v1.GET("/search", downloadHandler.Search)

		batches := v1.Group("/batches")
		{
			batches.POST("", downloadHandler.StartBatch)
			batches.GET("", downloadHandler.ListBatches)
			batches.GET("/stats", downloadHandler.GetStats)
			batches.GET("/current", downloadHandler.GetCurrent)
			batches.POST("/current/cancel", downloadHandler.CancelCurrent)
			batches.GET("/:id", downloadHandler.GetBatch)
			batches.GET("/:id/log", logHandler.GetBatchLog)
		}

		bookmarkHandler := handlers.NewBookmarkHandler(services.Bookmarks)
		bookmarks := v1.Group("/bookmarks")
		{
			bookmarks.GET("", bookmarkHandler.List)
			bookmarks.POST("", bookmarkHandler.Add)
			bookmarks.POST("/load", bookmarkHandler.Load)
			bookmarks.DELETE("/:id", bookmarkHandler.Remove)
		}

		samplerHandler := handlers.NewSamplerHandler(services.Pads)
		v1.GET("/pads", samplerHandler.GetPads)
		v1.GET("/pads/note/:note", samplerHandler.GetPadForNote)

		logs := v1.Group("/logs")
		{
			logs.GET("/categories", logHandler.GetCategories)
			logs.GET("/:category", logHandler.GetLogs)
			logs.GET("/:category/export", logHandler.ExportLogs)
		}

		eventHandler := handlers.NewEventWebSocketHandler(services.Fabric, services.Batches, logAdapter.App())
		v1.GET("/events", eventHandler.HandleWebSocket)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	return router
}
