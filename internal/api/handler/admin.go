package handler

import (
	"time"

	"zawaj/backend/internal/api/middleware"
	"zawaj/backend/internal/api/response"
	"zawaj/backend/internal/apperr"
	"zawaj/backend/internal/moderation"
	"zawaj/backend/internal/storage"

	"github.com/gin-gonic/gin"
)

// ListPending returns a moderation queue. The resource is fixed per route.
func (h *Handler) ListPending(resourceType string) gin.HandlerFunc {
	return func(c *gin.Context) {
		filter, err := moderationFilter(c)
		if err != nil {
			response.Error(c, err)
			return
		}
		p := pageParams(c)
		items, total, err := h.Moderation.ListPending(c.Request.Context(), middleware.Session(c), resourceType, filter, p)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.Page(c, items, p, total)
	}
}

func moderationFilter(c *gin.Context) (storage.ModerationFilter, error) {
	filter := storage.ModerationFilter{
		UserID: c.Query("userId"),
		Reason: c.Query("reason"),
	}
	for _, q := range []struct {
		name string
		dst  **time.Time
	}{{"from", &filter.From}, {"to", &filter.To}} {
		raw := c.Query(q.name)
		if raw == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, apperr.Validation("invalid filter",
				apperr.FieldError{Field: q.name, Message: "must be an RFC 3339 timestamp"})
		}
		*q.dst = &t
	}
	return filter, nil
}

type actionBody struct {
	UserID        string `json:"userId"`
	Action        string `json:"action"`
	Notes         string `json:"notes"`
	DurationHours int    `json:"durationHours"`
}

// UserAction handles POST /admin/users/action with the target in the body.
func (h *Handler) UserAction(c *gin.Context) {
	var body actionBody
	if !bind(c, &body) {
		return
	}
	h.performAction(c, moderation.ActionInput{
		ResourceType:  moderation.ResourceUsers,
		ResourceID:    body.UserID,
		Action:        body.Action,
		Notes:         body.Notes,
		DurationHours: body.DurationHours,
	})
}

// ResourceAction handles POST /admin/<resource>/:id/action.
func (h *Handler) ResourceAction(resourceType string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body actionBody
		if !bind(c, &body) {
			return
		}
		h.performAction(c, moderation.ActionInput{
			ResourceType:  resourceType,
			ResourceID:    c.Param("id"),
			Action:        body.Action,
			Notes:         body.Notes,
			DurationHours: body.DurationHours,
		})
	}
}

func (h *Handler) performAction(c *gin.Context, in moderation.ActionInput) {
	res, err := h.Moderation.PerformAction(c.Request.Context(), middleware.Session(c), in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, res)
}

func (h *Handler) ListAudit(c *gin.Context) {
	p := pageParams(c)
	entries, total, err := h.Moderation.ListAudit(c.Request.Context(), middleware.Session(c), p)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Page(c, entries, p, total)
}
