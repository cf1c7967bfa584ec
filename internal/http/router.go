package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/sproutline/social-connector/internal/config"
	"github.com/sproutline/social-connector/internal/http/handler"
	httpmiddleware "github.com/sproutline/social-connector/internal/http/middleware"
	"github.com/sproutline/social-connector/internal/middleware"
)

// NewRouter wires Gin routes and middleware.
func NewRouter(cfg config.Config, social *handler.SocialHandler, health *handler.HealthHandler, rateLimiter *middleware.RateLimiter) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpmiddleware.RequestLogger(nil))
	if rateLimiter != nil {
		r.Use(rateLimiter.Handler())
	}
	r.Use(middleware.CORS(cfg))
	r.Use(otelgin.Middleware(cfg.ServiceName))

	auth := r.Group("/auth")
	{
		auth.GET("/:platform/connect", social.Connect)
		auth.GET("/:platform/callback", social.Callback)
	}

	api := r.Group("/api/social")
	{
		api.POST("/post", social.Post)
		api.GET("/connections", social.ListConnections)
		api.GET("/connections/:platform", social.GetConnection)
		api.DELETE("/connections/:platform", social.Disconnect)
	}

	r.GET("/healthz", health.Healthz)

	return r
}
