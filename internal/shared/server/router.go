package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"cvforge-backend/internal/materials"
	"cvforge-backend/internal/resumes"
	"cvforge-backend/internal/shared/config"
	"cvforge-backend/internal/shared/metrics"
	"cvforge-backend/internal/shared/server/middleware"
	"cvforge-backend/internal/shared/server/respond"
)

// RouterDeps carries the handlers the router mounts.
type RouterDeps struct {
	Config           config.Config
	ResumesHandler   *resumes.Handler
	MaterialsHandler *materials.Handler
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	r.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})
	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.Use(
		middleware.Auth(),
		middleware.RateLimit(rateLimitConfig()),
	)
	if deps.ResumesHandler != nil {
		deps.ResumesHandler.Register(api)
	}
	if deps.MaterialsHandler != nil {
		deps.MaterialsHandler.Register(api)
	}

	return r
}

// rateLimitConfig throttles the expensive LLM-backed endpoints harder than
// plain CRUD traffic.
func rateLimitConfig() middleware.RateLimitConfig {
	return middleware.RateLimitConfig{
		Rules: map[string]middleware.RateLimitRule{
			"DEFAULT": {Rate: 10, Burst: 20},
			"PROCESS": {Rate: 0.5, Burst: 3},
		},
		DefaultGroup: "DEFAULT",
		GroupFor: func(c *gin.Context) string {
			path := c.FullPath()
			if strings.HasSuffix(path, "/process") || strings.HasSuffix(path, "/materials") {
				return "PROCESS"
			}
			return ""
		},
	}
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
