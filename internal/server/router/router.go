package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/agromarket/internal/server/handlers"
)

// New wires the Gin engine with required routes and middlewares.
func New(recs *handlers.RecommendationHandler, transport *handlers.TransportHandler, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(zapLoggerMiddleware(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := r.Group("/api/v1")
	api.GET("/farms/:farmId/recommendations", recs.ForFarm)
	api.POST("/recommendations/batch", recs.Batch)

	api.GET("/routes/:routeId/capacity", transport.Capacity)
	api.POST("/routes/:routeId/participants", transport.Join)
	api.POST("/routes/:routeId/close", transport.Close)
	api.PATCH("/transport-requests/:requestId/status", transport.UpdateRequestStatus)

	if logger != nil {
		logger.Info("router initialized")
	}

	return r
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.String("caller", c.GetHeader(handlers.CallerHeader)))
	}
}
