package handler

import (
	"zawaj/backend/internal/api/response"
	"zawaj/backend/internal/validation"

	"github.com/gin-gonic/gin"
)

// Register creates an account and returns a session token.
func (h *Handler) Register(c *gin.Context) {
	var in validation.RegisterInput
	if !bind(c, &in) {
		return
	}
	res, err := h.Accounts.Register(c.Request.Context(), in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, res, "account created")
}

// Login exchanges credentials for a session token.
func (h *Handler) Login(c *gin.Context) {
	var in validation.LoginInput
	if !bind(c, &in) {
		return
	}
	res, err := h.Accounts.Login(c.Request.Context(), in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, res)
}
