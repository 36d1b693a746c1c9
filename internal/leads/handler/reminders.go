package handler

import (
	"time"

	"lead_pipeline_backend/internal/leads/reminder"
	"lead_pipeline_backend/internal/leads/transport"
	"lead_pipeline_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// ReminderHandler exposes the reminder sweep to an external cron. The route
// is guarded by a shared secret, not by user authentication.
type ReminderHandler struct {
	sweep *reminder.Sweep
	now   func() time.Time
}

func NewReminderHandler(sweep *reminder.Sweep) *ReminderHandler {
	return &ReminderHandler{sweep: sweep, now: time.Now}
}

func (h *ReminderHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/reminders/sweep", h.Sweep)
}

func (h *ReminderHandler) Sweep(c *gin.Context) {
	summary, err := h.sweep.Run(c.Request.Context(), h.now())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.SweepResponse{
		Scanned:        summary.Scanned,
		RemindersSent:  summary.RemindersSent,
		Skipped:        summary.Skipped,
		AlreadyRunning: summary.AlreadyRunning,
	})
}
