package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/springdom/solace/pkg/response"
)

func (h *Handlers) Health(c *gin.Context) {
	response.OK(c, gin.H{"status": "ok", "service": "solace"})
}

// Ready verifies the database is reachable.
func (h *Handlers) Ready(c *gin.Context) {
	if err := h.db.Ping(c.Request.Context()); err != nil {
		response.Error(c, 503, "Database unavailable")
		return
	}
	response.OK(c, gin.H{"status": "ready"})
}

func (h *Handlers) DashboardStats(c *gin.Context) {
	stats, err := h.stats.Dashboard(c.Request.Context())
	if err != nil {
		response.ServerError(c, "Failed to compute statistics")
		return
	}
	response.OK(c, stats)
}

// Settings exposes the read-only runtime configuration the dashboard
// needs. Secrets stay out.
func (h *Handlers) Settings(c *gin.Context) {
	response.OK(c, gin.H{
		"app_env":                       h.cfg.AppEnv,
		"api_prefix":                    h.cfg.APIPrefix,
		"dedup_window_seconds":          h.cfg.DedupWindowSeconds,
		"correlation_window_seconds":    h.cfg.CorrelationWindowSeconds,
		"notification_cooldown_seconds": h.cfg.NotificationCooldownSecs,
		"dashboard_url":                 h.cfg.DashboardURL,
	})
}
