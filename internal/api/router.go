package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter builds the gin engine. The resources are served at the root and
// again under /api.
func NewRouter(h *Handlers) *gin.Engine {
	router := gin.New()

	router.Use(cors.Default())
	router.Use(gin.Recovery())
	router.Use(RequestLogger(h.Logger))
	router.Use(RequestMetrics())
	router.Use(LimitBody(h.MaxRequestSize))

	router.GET("/health", health(h))
	if h.MetricsPath != "" {
		router.GET(h.MetricsPath, gin.WrapH(promhttp.Handler()))
	}

	registerResources(&router.RouterGroup, h)
	registerResources(router.Group("/api"), h)

	return router
}

func registerResources(rg *gin.RouterGroup, h *Handlers) {
	taskRoutes := rg.Group("/tasks")
	{
		taskRoutes.GET("", listTasks(h))
		taskRoutes.POST("", createTask(h))
		taskRoutes.GET("/:id", getTask(h))
		taskRoutes.PUT("/:id", replaceTask(h))
		taskRoutes.DELETE("/:id", deleteTask(h))
	}

	userRoutes := rg.Group("/users")
	{
		userRoutes.GET("", listUsers(h))
		userRoutes.POST("", createUser(h))
		userRoutes.GET("/:id", getUser(h))
		userRoutes.PUT("/:id", replaceUser(h))
		userRoutes.DELETE("/:id", deleteUser(h))
	}
}

func health(h *Handlers) gin.HandlerFunc {
	return func(c *gin.Context) {
		services := gin.H{}
		healthy := true

		if h.Health != nil {
			for name, err := range h.Health.RuntimeHealthCheck(c.Request.Context()) {
				if err != nil {
					healthy = false
					services[name] = err.Error()
					continue
				}
				services[name] = "healthy"
			}
		}

		status, state := http.StatusOK, "healthy"
		if !healthy {
			status, state = http.StatusServiceUnavailable, "unhealthy"
		}
		c.JSON(status, gin.H{
			"status":    state,
			"timestamp": time.Now().Format(time.RFC3339),
			"services":  services,
		})
	}
}
