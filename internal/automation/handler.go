package automation

import (
	"github.com/gin-gonic/gin"

	"advisorhub_backend/platform/httpkit"
)

// Handler exposes the manual scan triggers. Operational use only; the
// scans normally run on their scheduled cadence.
type Handler struct {
	runner *Runner
}

func NewHandler(runner *Runner) *Handler {
	return &Handler{runner: runner}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/reminders/run", h.RunReminders)
	rg.POST("/followups/run", h.RunFollowUps)
}

func (h *Handler) RunReminders(c *gin.Context) {
	result, err := h.runner.ReminderScan(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) RunFollowUps(c *gin.Context) {
	result, err := h.runner.FollowUpScan(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}
