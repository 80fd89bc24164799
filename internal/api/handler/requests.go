package handler

import (
	"context"

	"zawaj/backend/internal/api/middleware"
	"zawaj/backend/internal/api/response"
	"zawaj/backend/internal/apperr"
	"zawaj/backend/internal/models"
	"zawaj/backend/internal/paging"
	"zawaj/backend/internal/validation"
	"zawaj/backend/internal/workflow"

	"github.com/gin-gonic/gin"
)

// SendRequest handles POST /requests/send.
func (h *Handler) SendRequest(c *gin.Context) {
	var in validation.RequestInput
	if !bind(c, &in) {
		return
	}
	req, err := h.Requests.SendRequest(c.Request.Context(), userID(c), in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, req.View(), "request sent")
}

type respondBody struct {
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

// RespondToRequest handles POST /requests/respond/:id/:action where action is
// accept or reject. The body is optional.
func (h *Handler) RespondToRequest(c *gin.Context) {
	decision := workflow.Decision(c.Param("action"))
	if decision != workflow.DecisionAccept && decision != workflow.DecisionReject {
		response.Error(c, apperr.Validation("invalid action",
			apperr.FieldError{Field: "action", Message: "must be one of: accept, reject"}))
		return
	}

	var body respondBody
	if c.Request.ContentLength > 0 && !bind(c, &body) {
		return
	}

	req, err := h.Requests.RespondToRequest(c.Request.Context(), c.Param("id"), userID(c), decision, body.Reason, body.Message)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, req.View())
}

func (h *Handler) CancelRequest(c *gin.Context) {
	req, err := h.Requests.CancelRequest(c.Request.Context(), c.Param("id"), userID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, req.View())
}

func (h *Handler) GetRequest(c *gin.Context) {
	session := middleware.Session(c)
	req, err := h.Requests.Get(c.Request.Context(), c.Param("id"), session.UserID, session.IsStaff())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, req.View())
}

type listFunc func(ctx context.Context, userID string, status models.RequestStatus, p paging.Params) ([]models.MarriageRequest, int64, error)

func (h *Handler) listRequests(c *gin.Context, list listFunc) {
	p := pageParams(c)
	rows, total, err := list(c.Request.Context(), userID(c), models.RequestStatus(c.Query("status")), p)
	if err != nil {
		response.Error(c, err)
		return
	}
	views := make([]models.RequestView, 0, len(rows))
	for i := range rows {
		views = append(views, rows[i].View())
	}
	response.Page(c, views, p, total)
}

func (h *Handler) ListReceived(c *gin.Context) {
	h.listRequests(c, h.Requests.ListReceived)
}

func (h *Handler) ListSent(c *gin.Context) {
	h.listRequests(c, h.Requests.ListSent)
}

func (h *Handler) RequestStats(c *gin.Context) {
	stats, err := h.Requests.Stats(c.Request.Context(), userID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, stats)
}

func (h *Handler) ArrangeMeeting(c *gin.Context) {
	var in validation.MeetingInput
	if !bind(c, &in) {
		return
	}
	req, err := h.Requests.ArrangeMeeting(c.Request.Context(), c.Param("id"), userID(c), in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, req.View())
}

func (h *Handler) ConfirmMeeting(c *gin.Context) {
	req, err := h.Requests.ConfirmMeeting(c.Request.Context(), c.Param("id"), userID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, req.View())
}
