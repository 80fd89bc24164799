package handler

import (
	"zawaj/backend/internal/api/response"

	"github.com/gin-gonic/gin"
)

// ListNotifications pages the caller's notifications, newest first.
// ?unread=true limits the list to unread ones.
func (h *Handler) ListNotifications(c *gin.Context) {
	p := pageParams(c)
	items, total, err := h.Notifications.List(c.Request.Context(), userID(c), c.Query("unread") == "true", p)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Page(c, items, p, total)
}

func (h *Handler) UnreadCount(c *gin.Context) {
	n, err := h.Notifications.UnreadCount(c.Request.Context(), userID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"count": n})
}

func (h *Handler) MarkAsRead(c *gin.Context) {
	n, err := h.Notifications.MarkAsRead(c.Request.Context(), c.Param("id"), userID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, n)
}

func (h *Handler) MarkAllAsRead(c *gin.Context) {
	updated, err := h.Notifications.MarkAllAsRead(c.Request.Context(), userID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"updated": updated})
}
