// Package api is the local gateway: a loopback HTTP surface over the query
// client that serves view-ready JSON to local tools.
package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/Marga-Ghale/ora-scrum-client/internal/api/handlers"
	"github.com/Marga-Ghale/ora-scrum-client/internal/api/middleware"
	"github.com/Marga-Ghale/ora-scrum-client/internal/query"
)

type Options struct {
	// Token, when set, is required as a bearer token on every route but
	// /health.
	Token string
	// RateLimit is requests per second per client; zero disables it.
	RateLimit   int
	CORSOrigins []string
	Logger      zerolog.Logger
	Now         func() time.Time
}

// NewRouter builds the gateway engine.
func NewRouter(q *query.Client, opts Options) *gin.Engine {
	log := opts.Logger
	h := handlers.NewHandlers(q, log, opts.Now)

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(log))
	if opts.RateLimit > 0 {
		r.Use(middleware.RateLimit(opts.RateLimit))
	}

	// Configure CORS
	corsCfg := cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", "http://localhost:5173"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "X-Cache-Stale", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(opts.CORSOrigins) > 0 {
		corsCfg.AllowOrigins = opts.CORSOrigins
	}
	r.Use(cors.New(corsCfg))

	// Health check
	r.GET("/health", h.Health.Check)

	protected := r.Group("")
	if opts.Token != "" {
		protected.Use(middleware.TokenGuard(opts.Token, log))
	}
	{
		protected.GET("/me", h.User.Me)
		protected.GET("/users/search", h.User.Search)

		workspaces := protected.Group("/workspaces")
		{
			workspaces.GET("", h.Workspace.List)
			workspaces.GET("/:id", h.Workspace.Get)
			workspaces.GET("/:id/spaces", h.Space.ListByWorkspace)
		}

		spaces := protected.Group("/spaces")
		{
			spaces.GET("/:id", h.Space.Get)
			spaces.GET("/:id/projects", h.Project.ListBySpace)
			spaces.GET("/:id/folders", h.Folder.ListBySpace)
		}

		folders := protected.Group("/folders")
		{
			folders.GET("/my", h.Folder.ListMine)
			folders.GET("/:id", h.Folder.Get)
			folders.GET("/:id/projects", h.Folder.ListProjects)
		}

		projects := protected.Group("/projects")
		{
			projects.GET("/:id", h.Project.Get)
			projects.GET("/:id/board", h.Task.Board)
			projects.GET("/:id/sprints", h.Sprint.List)
			projects.GET("/:id/sprints/active", h.Sprint.Active)
			projects.GET("/:id/labels", h.Label.ListByProject)
		}

		sprints := protected.Group("/sprints")
		{
			sprints.POST("/:id/start", h.Sprint.Start)
			sprints.POST("/:id/complete", h.Sprint.Complete)
		}

		tasks := protected.Group("/tasks")
		{
			tasks.GET("/my", h.Task.Mine)
			tasks.GET("/:id", h.Task.Get)
			tasks.PATCH("/:id/status", h.Task.UpdateStatus)
			tasks.GET("/:id/comments", h.Comment.List)
			tasks.POST("/:id/comments", h.Comment.Create)
		}

		notifications := protected.Group("/notifications")
		{
			notifications.GET("/grouped", h.Notification.Grouped)
			notifications.GET("/count", h.Notification.Count)
			notifications.PUT("/read-all", h.Notification.MarkAllRead)
			notifications.PUT("/:id/read", h.Notification.MarkRead)
			notifications.DELETE("/:id", h.Notification.Delete)
		}

		members := protected.Group("/members")
		{
			members.GET("/:entityType/:entityId", h.Member.ListEffectiveMembers)
			members.GET("/:entityType/:entityId/direct", h.Member.ListDirectMembers)
		}

		chat := protected.Group("/chat")
		{
			chat.GET("/channels", h.Chat.ListChannels)
			chat.GET("/unread", h.Chat.Unread)
			chat.POST("/channels/:id/read", h.Chat.MarkAsRead)
			chat.GET("/channels/:id/messages/grouped", h.Chat.GroupedMessages)
			chat.POST("/channels/:id/messages", h.Chat.SendMessage)
			chat.GET("/channels/:id/search", h.Chat.Search)
			chat.GET("/messages/:messageId/thread", h.Chat.Thread)
		}

		invitations := protected.Group("/invitations")
		{
			invitations.GET("/pending", h.Invitation.ListPending)
			invitations.POST("/accept", h.Invitation.Accept)
			invitations.DELETE("/:id", h.Invitation.Decline)
		}
	}

	return r
}
