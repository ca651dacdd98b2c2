package api

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

func NewRouter(h *Handler, logger *slog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))

	router.GET("/health", h.Health)

	digests := router.Group("/digests")
	{
		digests.GET("/", h.ListDigests)
		digests.GET("/fresh/", h.FreshDigest)
		digests.GET("/sections/", h.DigestSections)
	}

	router.GET("/articles/", h.ListArticles)

	return router
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	logger = logger.With("component", "http")

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		level := slog.LevelInfo
		if c.Writer.Status() >= 500 {
			level = slog.LevelError
		}
		logger.Log(c.Request.Context(), level, "request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
		)
	}
}
