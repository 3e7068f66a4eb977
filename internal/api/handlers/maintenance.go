package handlers

import (
	"context"
	"net/http"

	"github.com/clearviewcrm/clearview/internal/api/middleware"
	"github.com/clearviewcrm/clearview/internal/metrics"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// GraceSweeper clears expired rotation grace keys.
type GraceSweeper interface {
	SweepExpiredGracePeriods(ctx context.Context) (int, error)
}

// MaintenanceHandler exposes operator maintenance actions.
type MaintenanceHandler struct {
	sweeper GraceSweeper
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

// NewMaintenanceHandler creates a new MaintenanceHandler.
func NewMaintenanceHandler(sweeper GraceSweeper, m *metrics.Metrics, logger zerolog.Logger) *MaintenanceHandler {
	return &MaintenanceHandler{
		sweeper: sweeper,
		metrics: m,
		logger:  logger.With().Str("component", "maintenance_handler").Logger(),
	}
}

// RegisterRoutes registers maintenance routes on the given router group.
func (h *MaintenanceHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/maintenance/sweep", h.Sweep)
}

// Sweep runs the grace-key sweep immediately. Same code path as the cron job.
// POST /api/v1/maintenance/sweep
func (h *MaintenanceHandler) Sweep(c *gin.Context) {
	if middleware.RequireSuperAdmin(c) == nil {
		return
	}

	cleared, err := h.sweeper.SweepExpiredGracePeriods(c.Request.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("manual sweep failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "sweep failed"})
		return
	}

	if h.metrics != nil {
		h.metrics.ObserveGraceKeysSwept(cleared)
	}

	c.JSON(http.StatusOK, gin.H{"cleared": cleared})
}
