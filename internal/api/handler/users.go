package handler

import (
	"zawaj/backend/internal/api/response"
	"zawaj/backend/internal/validation"

	"github.com/gin-gonic/gin"
)

func (h *Handler) GetMe(c *gin.Context) {
	user, err := h.Accounts.Me(c.Request.Context(), userID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, user)
}

func (h *Handler) UpdateMe(c *gin.Context) {
	var in validation.ProfileUpdate
	if !bind(c, &in) {
		return
	}
	user, err := h.Accounts.UpdateProfile(c.Request.Context(), userID(c), in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, user)
}

// GetProfile returns another member's public profile.
func (h *Handler) GetProfile(c *gin.Context) {
	profile, err := h.Accounts.Profile(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, profile)
}

// CreateTelegramLink issues a one-time code for the Telegram bot.
func (h *Handler) CreateTelegramLink(c *gin.Context) {
	code, err := h.Accounts.IssueTelegramLinkCode(c.Request.Context(), userID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, code, "send /start <code> to the bot")
}

func (h *Handler) ListBookmarks(c *gin.Context) {
	p := pageParams(c)
	items, total, err := h.Accounts.ListBookmarks(c.Request.Context(), userID(c), p)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Page(c, items, p, total)
}

func (h *Handler) AddBookmark(c *gin.Context) {
	var in validation.BookmarkInput
	// The body is optional.
	if c.Request.ContentLength > 0 && !bind(c, &in) {
		return
	}
	bookmark, err := h.Accounts.AddBookmark(c.Request.Context(), userID(c), c.Param("userId"), in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, bookmark.View(), "profile bookmarked")
}

func (h *Handler) RemoveBookmark(c *gin.Context) {
	if err := h.Accounts.RemoveBookmark(c.Request.Context(), userID(c), c.Param("userId")); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, "bookmark removed")
}
