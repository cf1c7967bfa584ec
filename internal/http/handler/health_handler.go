package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Pinger is satisfied by anything with a liveness check, notably the
// pgx pool and a go-redis wrapper.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports liveness of the connector's backing stores.
type HealthHandler struct {
	db    Pinger
	redis Pinger
}

// NewHealthHandler creates the health endpoint handler.
func NewHealthHandler(db, redis Pinger) *HealthHandler {
	return &HealthHandler{db: db, redis: redis}
}

// Healthz checks the database and Redis.
func (h *HealthHandler) Healthz(c *gin.Context) {
	ctx := c.Request.Context()
	if h.db != nil {
		if err := h.db.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": err.Error()})
			return
		}
	}
	if h.redis != nil {
		if err := h.redis.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "redis": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
