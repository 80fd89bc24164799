package handler

import (
	"zawaj/backend/internal/account"
	"zawaj/backend/internal/api/middleware"
	"zawaj/backend/internal/api/response"
	"zawaj/backend/internal/apperr"
	"zawaj/backend/internal/chathub"
	"zawaj/backend/internal/moderation"
	"zawaj/backend/internal/notification"
	"zawaj/backend/internal/paging"
	"zawaj/backend/internal/workflow"

	"github.com/gin-gonic/gin"
)

// Handler holds the services behind the HTTP endpoints.
type Handler struct {
	Accounts      *account.Service
	Requests      *workflow.Service
	Moderation    *moderation.Service
	Notifications *notification.Service
	Hub           *chathub.ManagerService
}

func NewHandler(accounts *account.Service, requests *workflow.Service, mod *moderation.Service, notifications *notification.Service, hub *chathub.ManagerService) *Handler {
	return &Handler{
		Accounts:      accounts,
		Requests:      requests,
		Moderation:    mod,
		Notifications: notifications,
		Hub:           hub,
	}
}

// bind decodes the JSON body into dst and reports a malformed body as a
// validation error. Field rules are checked by the services.
func bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		response.Error(c, apperr.Validation("malformed request body",
			apperr.FieldError{Field: "body", Message: err.Error()}))
		return false
	}
	return true
}

func pageParams(c *gin.Context) paging.Params {
	return paging.Parse(c.Query("page"), c.Query("limit"))
}

func userID(c *gin.Context) string {
	return middleware.Session(c).UserID
}
