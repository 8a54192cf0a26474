package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"habitbot/pkg/otel"
)

// Pinger reports whether the database is reachable. *pgxpool.Pool satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ReadyCheck is an extra readiness probe, e.g. the broker connection in queue mode.
type ReadyCheck struct {
	Name  string
	Ready func() bool
}

type Router struct {
	Engine *gin.Engine
}

// NewRouter builds the engine with health, readiness and metrics endpoints. Feature routes are
// added by the caller on Engine.
func NewRouter(db Pinger, logger *zap.Logger, checks ...ReadyCheck) *Router {
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(logger), Metrics(), otel.GinMiddleware())

	// Health endpoints
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.HEAD("/healthz", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 1*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db_not_ready", "error": err.Error()})
			return
		}
		for _, check := range checks {
			if !check.Ready() {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": check.Name + "_not_ready"})
				return
			}
		}

		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return &Router{Engine: r}
}
