// Package api assembles the HTTP routes.
package api

import (
	"net/http"

	"zawaj/backend/internal/api/handler"
	"zawaj/backend/internal/api/middleware"
	"zawaj/backend/internal/auth"
	"zawaj/backend/internal/moderation"

	"github.com/gin-gonic/gin"
)

// RouterConfig carries what the router needs besides the handlers.
type RouterConfig struct {
	Tokens      *auth.TokenManager
	Suspensions middleware.SuspensionChecker
	FrontendURL string
	AuthLimiter *middleware.IPRateLimiter
	APILimiter  *middleware.IPRateLimiter
}

// NewRouter wires every endpoint onto a gin engine.
func NewRouter(h *handler.Handler, cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recovery(), middleware.Logging(), middleware.CORS(cfg.FrontendURL))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authGroup := r.Group("/auth", middleware.RateLimit(cfg.AuthLimiter))
	authGroup.POST("/register", h.Register)
	authGroup.POST("/login", h.Login)

	private := r.Group("/", middleware.RateLimit(cfg.APILimiter), middleware.Auth(cfg.Tokens, cfg.Suspensions))

	private.GET("/ws", h.ServeWebSocket)

	users := private.Group("/users")
	users.GET("/me", h.GetMe)
	users.PUT("/me", h.UpdateMe)
	users.POST("/me/telegram-link", h.CreateTelegramLink)
	users.GET("/:id", h.GetProfile)

	bookmarks := private.Group("/bookmarks")
	bookmarks.GET("", h.ListBookmarks)
	bookmarks.POST("/:userId", h.AddBookmark)
	bookmarks.DELETE("/:userId", h.RemoveBookmark)

	requests := private.Group("/requests")
	requests.POST("/send", h.SendRequest)
	requests.POST("/respond/:id/:action", h.RespondToRequest)
	requests.POST("/cancel/:id", h.CancelRequest)
	requests.GET("/received", h.ListReceived)
	requests.GET("/sent", h.ListSent)
	requests.GET("/stats", h.RequestStats)
	requests.GET("/:id", h.GetRequest)
	requests.POST("/:id/meeting", h.ArrangeMeeting)
	requests.POST("/:id/meeting/confirm", h.ConfirmMeeting)

	notifications := private.Group("/notifications")
	notifications.GET("", h.ListNotifications)
	notifications.GET("/unread-count", h.UnreadCount)
	notifications.PUT("/read-all", h.MarkAllAsRead)
	notifications.PUT("/:id/read", h.MarkAsRead)

	private.POST("/reports", h.CreateReport)

	chats := private.Group("/chats/:roomId")
	chats.GET("/messages", h.ListMessages)
	chats.POST("/messages", h.SendMessage)

	admin := private.Group("/admin", middleware.RequireStaff())
	admin.GET("/requests", h.ListPending(moderation.ResourceRequests))
	admin.GET("/messages", h.ListPending(moderation.ResourceMessages))
	admin.GET("/reports", h.ListPending(moderation.ResourceReports))
	admin.GET("/audit", h.ListAudit)
	admin.POST("/users/action", h.UserAction)
	admin.POST("/reports/:id/action", h.ResourceAction(moderation.ResourceReports))
	admin.POST("/requests/:id/action", h.ResourceAction(moderation.ResourceRequests))
	admin.POST("/messages/:id/action", h.ResourceAction(moderation.ResourceMessages))

	return r
}
