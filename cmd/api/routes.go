package main

import (
	"whatsapp-console/internal/config"
	"whatsapp-console/internal/httpapi"
	"whatsapp-console/internal/push"
	"whatsapp-console/internal/rbac"
	"whatsapp-console/internal/upload"

	"github.com/gin-gonic/gin"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, h httpapi.Handlers, hub *push.Hub, uploads *upload.Store, cfg config.Config, authMW gin.HandlerFunc) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Business API callback, protected by signature validation inside
	// the handler rather than by the token middleware.
	r.POST("/webhooks/whatsapp", h.IngestWebhook)

	// Uploaded media is served straight off disk.
	r.Static(cfg.Upload.PublicBase, cfg.Upload.Dir)

	r.POST("/v1/auth/login", h.Login)
	r.POST("/v1/auth/refresh", h.Refresh)

	// protected API group
	v1 := r.Group("/v1")
	v1.Use(authMW)
	{
		v1.GET("/me", h.Me)

		// The push stream; the middleware also accepts the token as a
		// query param since browsers cannot set headers on websockets.
		v1.GET("/events", push.Handler(hub))

		conversations := v1.Group("/conversations")
		{
			conversations.GET("", h.ListConversations)
			conversations.POST("", h.CreateConversation)
			conversations.GET("/:id", h.GetConversation)
			conversations.PATCH("/:id/name", h.RenameConversation)
			conversations.PATCH("/:id/archive", h.ArchiveConversation)
			conversations.PATCH("/:id/mute", h.MuteConversation)
			conversations.GET("/:id/messages", h.ListMessages)
			conversations.POST("/:id/messages", h.SendMessage)
		}

		messages := v1.Group("/messages")
		{
			messages.DELETE("/:id", h.DeleteMessage)
			messages.PATCH("/:id/media", h.UpdateMessageMedia)
			messages.PATCH("/:id/status", h.UpdateMessageStatus)
		}

		pins := v1.Group("/pins")
		{
			pins.GET("", h.ListPins)
			pins.PUT("/:id", h.PinConversation)
			pins.DELETE("/:id", h.UnpinConversation)
		}

		templates := v1.Group("/templates")
		{
			templates.GET("", h.ListTemplates)
			templates.POST("", h.CreateTemplate)
			templates.PATCH("/:id", h.UpdateTemplate)
			templates.DELETE("/:id", h.DeleteTemplate)
		}

		v1.POST("/uploads", uploads.Handler)

		v1.GET("/stats/activity", h.ActivityStats)

		// ADMIN routes
		admin := v1.Group("/admin")
		admin.Use(rbac.RequireAnyRole(rbac.RoleAdmin))
		{
			admin.GET("/users", h.ListUsers)
			admin.POST("/users", h.CreateUser)
			admin.PATCH("/users/:id/disabled", h.SetUserDisabled)
			admin.PATCH("/users/:id/password", h.SetUserPassword)
			admin.DELETE("/users/:id", h.DeleteUser)

			admin.GET("/webhook-events", h.ListWebhookEvents)
		}
	}
}
