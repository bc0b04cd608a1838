package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oddscope/matchpulse/internal/database"
	"github.com/oddscope/matchpulse/internal/engine"
	"github.com/oddscope/matchpulse/internal/services"
)

var startTime = time.Now()

// UpstreamChecker is the connectivity probe of the fixtures feed.
type UpstreamChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthHandler reports dependency connectivity and process health.
// Database and redis may be nil when the process runs degraded.
type HealthHandler struct {
	db       *database.PostgresDB
	redis    *database.RedisClient
	upstream UpstreamChecker
	monitor  *services.ResourceMonitor
}

type HealthResponse struct {
	Status    string                     `json:"status"`
	Timestamp time.Time                  `json:"timestamp"`
	Engine    string                     `json:"engine"`
	Uptime    string                     `json:"uptime"`
	Services  map[string]string          `json:"services"`
	Resources *services.ResourceSnapshot `json:"resources,omitempty"`
}

func NewHealthHandler(db *database.PostgresDB, redis *database.RedisClient, upstream UpstreamChecker, monitor *services.ResourceMonitor) *HealthHandler {
	return &HealthHandler{db: db, redis: redis, upstream: upstream, monitor: monitor}
}

// HealthCheck handles GET /health. Missing optional dependencies mark
// the process degraded, not down: predictions still serve without
// persistence.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string)

	if h.db != nil {
		if err := h.db.HealthCheck(ctx); err != nil {
			checks["database"] = "unhealthy: " + err.Error()
		} else {
			checks["database"] = "healthy"
		}
	} else {
		checks["database"] = "disabled"
	}

	if h.redis != nil {
		if err := h.redis.HealthCheck(ctx); err != nil {
			checks["redis"] = "unhealthy: " + err.Error()
		} else {
			checks["redis"] = "healthy"
		}
	} else {
		checks["redis"] = "disabled"
	}

	if h.upstream != nil {
		if err := h.upstream.HealthCheck(ctx); err != nil {
			checks["upstream"] = "unhealthy: " + err.Error()
		} else {
			checks["upstream"] = "healthy"
		}
	} else {
		checks["upstream"] = "disabled"
	}

	status := "healthy"
	for _, state := range checks {
		if state != "healthy" {
			status = "degraded"
			break
		}
	}

	response := HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC(),
		Engine:    engine.AlgorithmLive,
		Uptime:    time.Since(startTime).Round(time.Second).String(),
		Services:  checks,
	}
	if h.monitor != nil {
		snapshot := h.monitor.Snapshot()
		response.Resources = &snapshot
	}

	code := http.StatusOK
	if status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, response)
}
