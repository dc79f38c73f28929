package lifecycle

import (
	"io"
	"net/http"

	"voiceagent-platform/internal/deadletter"
	"voiceagent-platform/internal/retell"
	"voiceagent-platform/pkg/logger"

	"github.com/gin-gonic/gin"
)

const maxWebhookBody = 1 << 20 // 1 MiB

// WebhookHandler is the HTTP boundary for provider lifecycle events.
//
// Acknowledgement policy: only an unparsable body earns a 400. Everything
// else is acknowledged with 200 so the provider never retries events we have
// already classified; processing failures go to the dead-letter trail
// instead.
type WebhookHandler struct {
	reconciler *Reconciler
	deadletter *deadletter.Service
}

func NewWebhookHandler(r *Reconciler, dl *deadletter.Service) *WebhookHandler {
	return &WebhookHandler{reconciler: r, deadletter: dl}
}

func (h *WebhookHandler) Handle(c *gin.Context) {
	log := logger.FromGin(c)

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	ev, err := retell.DecodeEvent(body)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	ctx := logger.With(c.Request.Context(), log)
	if err := h.reconciler.Apply(ctx, ev); err != nil {
		log.Error("webhook processing failed", "event", ev.RawKind, "retell_call_id", ev.RetellCallID, "err", err)
		h.recordFailure(c, ev, body, err)
		c.JSON(http.StatusOK, gin.H{"status": "error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *WebhookHandler) recordFailure(c *gin.Context, ev retell.Event, body []byte, cause error) {
	if h.deadletter == nil {
		return
	}
	err := h.deadletter.RecordFailure(c.Request.Context(), ev.RawKind, ev.RetellCallID, ev.InternalCallID, cause.Error(), body)
	if err != nil {
		logger.FromGin(c).Error("dead-letter append failed", "event", ev.RawKind, "err", err)
	}
}
