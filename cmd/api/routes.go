package main

import (
	"net/http"
	"time"

	"voiceagent-platform/internal/config"
	"voiceagent-platform/internal/conversation"
	"voiceagent-platform/internal/httpapi"
	"voiceagent-platform/internal/lifecycle"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, cfg config.Config, h httpapi.Handlers, webhook *lifecycle.WebhookHandler, turns *conversation.Handler) {
	r.GET("/healthz", h.Health)

	// Provider callbacks (public). The webhook trusts call identity from the
	// echoed metadata, not from the caller; the LLM socket is dialed
	// server-to-server by the provider.
	r.POST("/api/webhook/retell", webhook.Handle)
	r.GET("/llm-websocket", turns.Serve)

	// Browser-facing API under CORS for the dashboard origin.
	api := r.Group("/api")
	api.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.App.FrontendOrigin},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	{
		agents := api.Group("/agents")
		{
			agents.POST("", h.CreateAgent)
			agents.GET("", h.ListAgents)
			agents.GET("/:agent_id", h.GetAgent)
			agents.PUT("/:agent_id", h.UpdateAgent)
			agents.DELETE("/:agent_id", h.DeleteAgent)
		}

		calls := api.Group("/calls")
		{
			calls.POST("/trigger", h.TriggerCall)
			calls.GET("", h.ListCalls)
			calls.GET("/:call_id", h.GetCall)
			calls.GET("/:call_id/summary", h.GetCallSummary)
		}

		api.GET("/retell/status", h.RetellStatus)
	}
}
