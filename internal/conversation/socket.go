package conversation

import (
	"encoding/json"
	"net/http"

	"voiceagent-platform/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// The provider connects server-to-server; browser origin checks do not
	// apply to this endpoint.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Serve upgrades the request and pumps provider frames through HandleTurn
// until the peer disconnects.
func (h *Handler) Serve(c *gin.Context) {
	log := logger.FromGin(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	log.Info("llm websocket connected", "remote", conn.RemoteAddr().String())
	ctx := logger.With(c.Request.Context(), log)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn("llm websocket read failed", "err", err)
			} else {
				log.Info("llm websocket disconnected")
			}
			return
		}

		var msg Inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Warn("unparsable llm websocket frame", "err", err)
			h.writeError(conn, "invalid json")
			continue
		}

		out := h.HandleTurn(ctx, msg)
		if out == nil {
			continue
		}
		if err := conn.WriteJSON(out); err != nil {
			log.Warn("llm websocket write failed", "err", err)
			return
		}
	}
}

// writeError is best-effort: a failed error frame is not worth tearing the
// socket down for.
func (h *Handler) writeError(conn *websocket.Conn, message string) {
	_ = conn.WriteJSON(Outbound{ResponseType: "error", Error: message})
}
