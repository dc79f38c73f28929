package httpapi

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"time"

	"voiceagent-platform/internal/agents"
	"voiceagent-platform/internal/calls"
	"voiceagent-platform/internal/retell"
	"voiceagent-platform/internal/summary"
	"voiceagent-platform/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.

type Handlers struct {
	Agents    *agents.Service
	Calls     *calls.Service
	Summaries *summary.Processor
	Retell    *retell.Client

	// Optional liveness dependencies for /healthz.
	DB    *sql.DB
	Redis *redis.Client
}

// Health reports process liveness plus backing-store reachability. A failing
// dependency turns the probe into a 503 so the orchestrator stops routing.
func (h Handlers) Health(c *gin.Context) {
	ctx := c.Request.Context()

	if h.DB != nil {
		if err := utils.PingPostgres(ctx, h.DB, 2*time.Second); err != nil {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "postgres": err.Error()})
			return
		}
	}
	if h.Redis != nil {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := h.Redis.Ping(pingCtx).Err(); err != nil {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "redis": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// --- Agents ---

func (h Handlers) CreateAgent(c *gin.Context) {
	var req agents.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	a, err := h.Agents.Create(c.Request.Context(), req)
	if err != nil {
		abortForAgentErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

func (h Handlers) GetAgent(c *gin.Context) {
	a, err := h.Agents.Get(c.Request.Context(), c.Param("agent_id"))
	if err != nil {
		abortForAgentErr(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (h Handlers) ListAgents(c *gin.Context) {
	includeInactive := c.Query("include_inactive") == "true"
	list, err := h.Agents.List(c.Request.Context(), includeInactive)
	if err != nil {
		abortForAgentErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"agents": list, "count": len(list)})
}

func (h Handlers) UpdateAgent(c *gin.Context) {
	var req agents.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	a, err := h.Agents.Update(c.Request.Context(), c.Param("agent_id"), req)
	if err != nil {
		abortForAgentErr(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (h Handlers) DeleteAgent(c *gin.Context) {
	a, err := h.Agents.SoftDelete(c.Request.Context(), c.Param("agent_id"))
	if err != nil {
		abortForAgentErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted", "agent": a})
}

// --- Calls ---

func (h Handlers) TriggerCall(c *gin.Context) {
	var req calls.TriggerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	call, err := h.Calls.Trigger(c.Request.Context(), req)
	if err != nil {
		abortForCallErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, call)
}

func (h Handlers) GetCall(c *gin.Context) {
	call, err := h.Calls.Get(c.Request.Context(), c.Param("call_id"))
	if err != nil {
		abortForCallErr(c, err)
		return
	}
	c.JSON(http.StatusOK, call)
}

func (h Handlers) ListCalls(c *gin.Context) {
	limit := 50
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 500 {
			c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": "limit must be an integer in [1,500]"})
			return
		}
		limit = n
	}
	list, err := h.Calls.List(c.Request.Context(), limit)
	if err != nil {
		abortForCallErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"calls": list, "count": len(list)})
}

// GetCallSummary returns the structured extraction for a completed call.
// 404 distinguishes "call unknown" from "summary not (yet) available" in the
// error message only; both are not-found to the client.
func (h Handlers) GetCallSummary(c *gin.Context) {
	callID := c.Param("call_id")

	if _, err := h.Calls.Get(c.Request.Context(), callID); err != nil {
		abortForCallErr(c, err)
		return
	}

	s, err := h.Summaries.GetByCallID(c.Request.Context(), callID)
	if err != nil {
		if errors.Is(err, summary.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "summary not available for call"})
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "summary lookup failed"})
		return
	}
	c.JSON(http.StatusOK, s)
}

// --- Provider status ---

func (h Handlers) RetellStatus(c *gin.Context) {
	if h.Retell == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "provider client not configured"})
		return
	}
	c.JSON(http.StatusOK, h.Retell.Status(c.Request.Context()))
}

// --- error mapping ---

func abortForAgentErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, agents.ErrInvalidArgument):
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, agents.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "agent not found"})
	case errors.Is(err, context.Canceled):
		c.AbortWithStatus(http.StatusRequestTimeout)
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func abortForCallErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, calls.ErrInvalidArgument):
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, calls.ErrTooManyActiveCalls):
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "agent has too many active calls"})
	case errors.Is(err, calls.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "call not found"})
	case errors.Is(err, agents.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "agent not found"})
	case errors.Is(err, context.Canceled):
		c.AbortWithStatus(http.StatusRequestTimeout)
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
