package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/snackpdf/pdf-api/internal/service"
)

// StatusHandler exposes observability endpoints.
type StatusHandler struct {
	metrics *service.MetricsService
	started time.Time
	version string
}

// NewStatusHandler constructs the handler.
func NewStatusHandler(metrics *service.MetricsService, version string) *StatusHandler {
	return &StatusHandler{metrics: metrics, started: time.Now().UTC(), version: version}
}

// Prometheus serves the Prometheus metrics endpoint.
func (h *StatusHandler) Prometheus(c *gin.Context) {
	if h.metrics == nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// Health responds with a generic OK payload for liveness usage.
func (h *StatusHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Status godoc
// @Summary Processing service status and aggregate counters
// @Tags Status
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /pdf/status [get]
func (h *StatusHandler) Status(c *gin.Context) {
	body := gin.H{
		"status":         "operational",
		"version":        h.version,
		"uptime_seconds": int64(time.Since(h.started).Seconds()),
		"tools":          []string{"merge", "split"},
	}
	if h.metrics != nil {
		body["metrics"] = h.metrics.Snapshot()
	}
	c.JSON(http.StatusOK, body)
}
