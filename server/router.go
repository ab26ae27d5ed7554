package server

import (
	"time"

	httpHandler "brandhub/interfaces/http"
	"brandhub/interfaces/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func InitiateRouter(
	secretKey string,
	allowedOrigins []string,
	healthHandler httpHandler.IHealthHandler,
	publishHandler httpHandler.IPublishHandler,
	accountHandler httpHandler.ISocialAccountHandler,
	stream gin.HandlerFunc,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestMetrics())
	router.Use(cors.New(corsConfig(allowedOrigins)))

	router.GET("/healthz", healthHandler.Healthz)
	router.GET("/metrics", healthHandler.Metrics)

	api := router.Group("api")
	api.Use(middleware.Auth(secretKey))

	content := api.Group("/content/:contentId")
	{
		content.POST("/publish", publishHandler.Publish)
		content.GET("/publish-results", publishHandler.GetResults)
		content.GET("/publish-events", publishHandler.GetEvents)
	}

	api.POST("/publish/scheduled", publishHandler.PublishScheduled)
	if stream != nil {
		api.GET("/publish/stream", stream)
	}

	accounts := api.Group("/social-accounts")
	{
		accounts.GET("", accountHandler.List)
		accounts.POST("/connect", accountHandler.Connect)
		accounts.POST("/:accountId/disconnect", accountHandler.Disconnect)
	}

	return router
}

func corsConfig(allowedOrigins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) == 0 {
		// Any origin may call, so browser credentials are never sent along.
		cfg.AllowCredentials = false
		cfg.AllowOriginFunc = func(string) bool { return true }
		return cfg
	}
	cfg.AllowOrigins = allowedOrigins
	return cfg
}
