// Package http serves the climate index catalog and computations over HTTP.
package http

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// SetupRouter creates and configures the Gin router. An empty allowedOrigins
// allows all origins.
func SetupRouter(computer Computer, dataDir string, allowedOrigins []string, log logrus.FieldLogger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(log))

	// Setup CORS middleware.
	corsConfig := cors.DefaultConfig()
	if len(allowedOrigins) > 0 {
		corsConfig.AllowOrigins = allowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	router.Use(cors.New(corsConfig))

	handler := NewHandler(computer, dataDir)

	// API v1 routes.
	v1 := router.Group("/v1")
	indices := v1.Group("/indices")
	indices.GET("", handler.GetIndices)
	indices.GET("/:name", handler.GetIndex)
	indices.POST("/:name", handler.Compute)

	v1.GET("/regions", handler.GetRegions)

	// Health check.
	router.GET("/health", handler.HealthCheck)

	return router
}

// requestLogger logs one line per request.
func requestLogger(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := log.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"elapsed": time.Since(start),
		})
		if len(c.Errors) > 0 {
			entry.WithError(c.Errors.Last()).Warn("request failed")
			return
		}
		entry.Debug("request")
	}
}
