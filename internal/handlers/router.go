package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// RouterConfig holds the options of the HTTP router
type RouterConfig struct {
	ServiceName    string
	TracingEnabled bool
	Logger         *slog.Logger
}

// NewRouter creates the HTTP router.
// Accepts only GET requests for the analysis endpoint and returns a JSON 404 for all other routes.
func NewRouter(analysisHandler *ConversationAnalysisHandler, cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.HandleMethodNotAllowed = true

	// Order matters: OTel creates the span, request IDs enrich the context, recovery catches panics
	if cfg.TracingEnabled {
		router.Use(otelgin.Middleware(cfg.ServiceName))
	}
	router.Use(RequestID())
	router.Use(Recovery(cfg.Logger))
	router.Use(Logger(cfg.Logger))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	{
		v1.GET("/analysis", analysisHandler.HandleAnalysis)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})
	router.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "only GET method is allowed"})
	})

	return router
}
