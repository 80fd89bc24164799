package middleware

import (
	"context"
	"strings"

	"zawaj/backend/internal/api/response"
	"zawaj/backend/internal/apperr"
	"zawaj/backend/internal/auth"

	"github.com/gin-gonic/gin"
)

const sessionKey = "session"

// SuspensionChecker reports whether a user may not act right now.
type SuspensionChecker interface {
	IsUserSuspended(ctx context.Context, userID string) (bool, error)
}

// Auth authenticates the caller from "Authorization: Bearer <jwt>" or, for
// WebSocket upgrades that cannot set headers, the "token" query parameter.
// Suspended accounts are rejected with 403 and deleted ones with 401.
func Auth(tokens *auth.TokenManager, suspensions SuspensionChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" {
			response.Error(c, apperr.Unauthenticated("authorization token missing"))
			return
		}

		session, err := tokens.Parse(raw)
		if err != nil {
			response.Error(c, err)
			return
		}

		suspended, err := suspensions.IsUserSuspended(c.Request.Context(), session.UserID)
		if apperr.HasCode(err, apperr.CodeNotFound) {
			response.Error(c, apperr.Unauthenticated("account no longer exists"))
			return
		}
		if err != nil {
			response.Error(c, err)
			return
		}
		if suspended {
			response.Error(c, apperr.Forbidden("your account is suspended"))
			return
		}

		c.Set(sessionKey, session)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") {
			return ""
		}
		return strings.TrimSpace(token)
	}
	return c.Query("token")
}

// RequireStaff lets only admins and moderators through. It runs before any
// handler reads the request body.
func RequireStaff() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !Session(c).IsStaff() {
			response.Error(c, apperr.Forbidden("admin or moderator role required"))
			return
		}
		c.Next()
	}
}

// Session returns the authenticated caller set by Auth, or the zero Session.
func Session(c *gin.Context) auth.Session {
	if v, ok := c.Get(sessionKey); ok {
		if s, ok := v.(auth.Session); ok {
			return s
		}
	}
	return auth.Session{}
}
