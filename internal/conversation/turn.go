package conversation

import (
	"context"
	"strings"

	"voiceagent-platform/internal/agents"
	"voiceagent-platform/internal/calls"
	"voiceagent-platform/internal/llm"
	"voiceagent-platform/pkg/logger"
)

// Handler implements the provider's custom-LLM turn protocol. Each inbound
// frame is classified once into a closed interaction set; the socket layer
// only moves bytes.
//
// Degradation ladder for response_required: full agent context when the call
// and agent resolve, generic persona when they do not, and a canned apology
// when the model call itself fails. A live caller never hears silence because
// of an internal error.
type Handler struct {
	calls     calls.Repository
	agents    agents.Repository
	responder llm.Responder
}

func NewHandler(callRepo calls.Repository, agentRepo agents.Repository, responder llm.Responder) *Handler {
	return &Handler{calls: callRepo, agents: agentRepo, responder: responder}
}

// Inbound is a decoded provider frame. Unknown interaction types keep their
// raw tag for logging.
type Inbound struct {
	InteractionType string        `json:"interaction_type"`
	ResponseID      int           `json:"response_id"`
	CallID          string        `json:"call_id"`
	Conversation    []TurnMessage `json:"conversation"`
	Call            InboundCall   `json:"call"`
}

type InboundCall struct {
	Metadata map[string]any `json:"metadata"`
}

type TurnMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Outbound mirrors the provider's response frame shape. ContentComplete and
// EndCall are always serialized for response frames.
type Outbound struct {
	ResponseType    string `json:"response_type"`
	ResponseID      int    `json:"response_id,omitempty"`
	Content         string `json:"content,omitempty"`
	ContentComplete *bool  `json:"content_complete,omitempty"`
	EndCall         *bool  `json:"end_call,omitempty"`
	Error           string `json:"error,omitempty"`
}

const turnFailureReply = "I'm sorry, I'm having trouble processing that right now."

// HandleTurn routes one inbound frame. A nil Outbound means no reply frame
// is owed for this interaction type.
func (h *Handler) HandleTurn(ctx context.Context, msg Inbound) *Outbound {
	log := logger.From(ctx)

	switch msg.InteractionType {
	case "ping":
		return &Outbound{ResponseType: "pong"}
	case "reminder_required":
		return h.reminder(msg)
	case "response_required":
		return h.respond(ctx, msg)
	case "update_only":
		if n := len(msg.Conversation); n > 0 {
			last := msg.Conversation[n-1]
			log.Info("conversation update",
				"retell_call_id", msg.CallID,
				"role", last.Role,
				"content", truncate(last.Content, 100),
			)
		}
		return nil
	default:
		log.Warn("unknown interaction type", "interaction_type", msg.InteractionType, "retell_call_id", msg.CallID)
		return nil
	}
}

func (h *Handler) reminder(msg Inbound) *Outbound {
	driverName := metadataString(msg.Call.Metadata, "driver_name", "Driver")
	loadNumber := metadataString(msg.Call.Metadata, "load_number", "Unknown")
	content := "Remember, you are speaking with " + driverName + " about load " + loadNumber +
		". Stay focused on getting the required dispatch information."
	return &Outbound{ResponseType: "reminder_required", Content: content}
}

func (h *Handler) respond(ctx context.Context, msg Inbound) *Outbound {
	log := logger.From(ctx)

	prompt := h.systemPrompt(ctx, msg)

	content, err := h.responder.GenerateTurn(ctx, llm.TurnRequest{
		SystemPrompt: prompt,
		History:      toHistory(msg.Conversation),
	})
	if err != nil {
		log.Warn("turn generation failed", "retell_call_id", msg.CallID, "err", err)
		content = turnFailureReply
	}

	return &Outbound{
		ResponseType:    "response",
		ResponseID:      msg.ResponseID,
		Content:         content,
		ContentComplete: boolPtr(true),
		EndCall:         boolPtr(false),
	}
}

// systemPrompt resolves the agent prompt for this call with placeholders
// substituted from the call record. Any resolution failure degrades to the
// generic persona.
func (h *Handler) systemPrompt(ctx context.Context, msg Inbound) string {
	log := logger.From(ctx)

	call, err := h.lookupCall(ctx, msg)
	if err != nil {
		log.Warn("call lookup failed for turn, using generic persona", "retell_call_id", msg.CallID, "err", err)
		return llm.FallbackPersona()
	}
	agent, err := h.agents.GetByID(ctx, call.AgentID)
	if err != nil {
		log.Warn("agent lookup failed for turn, using generic persona", "call_id", call.ID, "agent_id", call.AgentID, "err", err)
		return llm.FallbackPersona()
	}

	prompt := strings.ReplaceAll(agent.SystemPrompt, agents.PlaceholderDriverName, call.DriverName)
	prompt = strings.ReplaceAll(prompt, agents.PlaceholderLoadNumber, call.LoadNumber)
	return prompt
}

// lookupCall prefers the internal id carried in call metadata and falls back
// to the provider's call id, which is recorded once call_started arrives.
func (h *Handler) lookupCall(ctx context.Context, msg Inbound) (calls.Call, error) {
	if id := metadataString(msg.Call.Metadata, "call_id", ""); id != "" {
		return h.calls.GetByID(ctx, id)
	}
	return h.calls.GetByRetellID(ctx, msg.CallID)
}

func toHistory(conv []TurnMessage) []llm.Utterance {
	out := make([]llm.Utterance, 0, len(conv))
	for _, m := range conv {
		out = append(out, llm.Utterance{Role: m.Role, Content: m.Content})
	}
	return out
}

func metadataString(metadata map[string]any, key, fallback string) string {
	if v, ok := metadata[key]; ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return fallback
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func boolPtr(b bool) *bool { return &b }
