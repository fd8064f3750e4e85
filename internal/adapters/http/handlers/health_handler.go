package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agentpay/walletd/internal/infrastructure/persistence/postgres"
)

// HealthHandler serves the liveness and readiness probes.
type HealthHandler struct {
	pool      *pgxpool.Pool
	version   string
	startTime time.Time
}

func NewHealthHandler(pool *pgxpool.Pool, version string) *HealthHandler {
	return &HealthHandler{
		pool:      pool,
		version:   version,
		startTime: time.Now(),
	}
}

// HealthResponse is the /health body.
type HealthResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version"`
	Uptime    string            `json:"uptime"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// Health reports overall status, including the database check.
func (h *HealthHandler) Health(c *gin.Context) {
	checks := map[string]string{"database": "ok"}
	status := "healthy"
	code := http.StatusOK
	if err := postgres.HealthCheck(c.Request.Context(), h.pool); err != nil {
		checks["database"] = err.Error()
		status = "unhealthy"
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, HealthResponse{
		Status:    status,
		Version:   h.version,
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Timestamp: time.Now().UTC(),
		Checks:    checks,
	})
}

// Live answers as long as the process runs.
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

// Ready answers 200 once dependencies accept traffic.
func (h *HealthHandler) Ready(c *gin.Context) {
	if err := postgres.HealthCheck(c.Request.Context(), h.pool); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"ready": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ready": true})
}

func (h *HealthHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/health", h.Health)
	router.GET("/live", h.Live)
	router.GET("/ready", h.Ready)
}
