// Package handler exposes the notifications HTTP API.
package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"advisorhub_backend/internal/notification/repository"
	"advisorhub_backend/internal/notification/service"
	"advisorhub_backend/internal/notification/transport"
	"advisorhub_backend/platform/httpkit"
)

const msgInvalidRequest = "invalid request"

type Handler struct {
	svc *service.Service
}

func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.GET("/unread-count", h.UnreadCount)
	rg.PATCH("/:id/read", h.MarkRead)
	rg.POST("/read-all", h.MarkAllRead)
	rg.DELETE("/:id", h.Delete)
}

// recipientSpec resolves the addressed inbox from query parameters. The
// admin inbox is the default; a user inbox needs an explicit id.
func recipientSpec(c *gin.Context) (repository.RecipientSpec, bool) {
	if c.Query("recipient") != repository.RecipientUser {
		return repository.AdminSpec(), true
	}
	userID, err := uuid.Parse(c.Query("recipientId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "user inbox requires a valid recipientId", nil)
		return repository.RecipientSpec{}, false
	}
	return repository.UserSpec(userID), true
}

func (h *Handler) List(c *gin.Context) {
	spec, ok := recipientSpec(c)
	if !ok {
		return
	}
	unreadOnly := c.Query("unread") == "true"
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))

	notifications, err := h.svc.List(c.Request.Context(), spec, unreadOnly, page, pageSize)
	if httpkit.HandleError(c, err) {
		return
	}

	out := make([]transport.NotificationResponse, 0, len(notifications))
	for i := range notifications {
		out = append(out, transport.FromNotification(&notifications[i]))
	}
	httpkit.OK(c, out)
}

func (h *Handler) UnreadCount(c *gin.Context) {
	spec, ok := recipientSpec(c)
	if !ok {
		return
	}

	count, err := h.svc.UnreadCount(c.Request.Context(), spec)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.UnreadCountResponse{Unread: count})
}

func (h *Handler) MarkRead(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	if httpkit.HandleError(c, h.svc.MarkRead(c.Request.Context(), id)) {
		return
	}
	httpkit.OK(c, gin.H{"status": "read"})
}

func (h *Handler) MarkAllRead(c *gin.Context) {
	spec, ok := recipientSpec(c)
	if !ok {
		return
	}

	updated, err := h.svc.MarkAllRead(c.Request.Context(), spec)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.MarkAllReadResponse{Updated: updated})
}

func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	if httpkit.HandleError(c, h.svc.Delete(c.Request.Context(), id)) {
		return
	}
	httpkit.OK(c, gin.H{"status": "deleted"})
}
