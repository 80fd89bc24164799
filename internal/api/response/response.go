// Package response writes the JSON envelope shared by every endpoint:
// {success, data, message, errors, meta}.
package response

import (
	"net/http"

	"zawaj/backend/internal/apperr"
	"zawaj/backend/internal/logger"
	"zawaj/backend/internal/paging"

	"github.com/gin-gonic/gin"
)

// Envelope is the body of every API response.
type Envelope struct {
	Success bool                `json:"success"`
	Data    any                 `json:"data,omitempty"`
	Message string              `json:"message,omitempty"`
	Code    string              `json:"code,omitempty"`
	Errors  []apperr.FieldError `json:"errors,omitempty"`
	Meta    *paging.Meta        `json:"meta,omitempty"`
}

func OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Envelope{Success: true, Data: data})
}

func Created(c *gin.Context, data any, message string) {
	c.JSON(http.StatusCreated, Envelope{Success: true, Data: data, Message: message})
}

// Message answers with a success envelope carrying only a message.
func Message(c *gin.Context, message string) {
	c.JSON(http.StatusOK, Envelope{Success: true, Message: message})
}

// Page answers with one page of a list.
func Page(c *gin.Context, data any, p paging.Params, total int64) {
	meta := p.Meta(total)
	c.JSON(http.StatusOK, Envelope{Success: true, Data: data, Meta: &meta})
}

// Error maps err to its status and aborts the chain. Internal errors are
// logged with the request path and answered with a generic message.
func Error(c *gin.Context, err error) {
	appErr := apperr.From(err)
	if appErr.Kind == apperr.KindInternal {
		logger.Error().Err(err).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Msg("request failed")
	}
	c.AbortWithStatusJSON(appErr.Status(), Envelope{
		Success: false,
		Message: appErr.Message,
		Code:    appErr.Code,
		Errors:  appErr.Fields,
	})
}
