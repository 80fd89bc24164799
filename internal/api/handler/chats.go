package handler

import (
	"zawaj/backend/internal/api/response"
	"zawaj/backend/internal/models"
	"zawaj/backend/internal/validation"

	"github.com/gin-gonic/gin"
)

// SendMessage stores a message for moderation. The receiver gets it once a
// moderator approves it.
func (h *Handler) SendMessage(c *gin.Context) {
	var in validation.MessageInput
	if !bind(c, &in) {
		return
	}
	msg, err := h.Requests.SendMessage(c.Request.Context(), c.Param("roomId"), userID(c), in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, msg.View(), "message sent for review")
}

func (h *Handler) ListMessages(c *gin.Context) {
	p := pageParams(c)
	rows, total, err := h.Requests.ListMessages(c.Request.Context(), c.Param("roomId"), userID(c), p)
	if err != nil {
		response.Error(c, err)
		return
	}
	views := make([]models.MessageView, 0, len(rows))
	for i := range rows {
		views = append(views, rows[i].View())
	}
	response.Page(c, views, p, total)
}

// CreateReport files a report about another member.
func (h *Handler) CreateReport(c *gin.Context) {
	var in validation.ReportInput
	if !bind(c, &in) {
		return
	}
	report, err := h.Moderation.CreateReport(c.Request.Context(), userID(c), in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, report, "report submitted")
}
