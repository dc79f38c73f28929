package conversation

import (
	"context"
	"errors"
	"testing"
	"time"

	"voiceagent-platform/internal/agents"
	"voiceagent-platform/internal/calls"
	"voiceagent-platform/internal/llm"
)

type stubResponder struct {
	lastReq llm.TurnRequest
	reply   string
	err     error
}

func (s *stubResponder) GenerateTurn(ctx context.Context, req llm.TurnRequest) (string, error) {
	s.lastReq = req
	return s.reply, s.err
}

func seedConversation(t *testing.T) (*calls.MemoryRepo, *agents.MemoryRepo, calls.Call) {
	t.Helper()
	now := time.Now().UTC()

	agentRepo := agents.NewMemoryRepo()
	a := agents.Agent{
		ID:           "agent-1",
		Name:         "dispatch check-in",
		SystemPrompt: "You are calling {driver_name} about load {load_number}.",
		ScenarioType: agents.ScenarioDispatch,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := agentRepo.Insert(context.Background(), a); err != nil {
		t.Fatalf("seed agent: %v", err)
	}

	callRepo := calls.NewMemoryRepo()
	c := calls.Call{
		ID:         "call-1",
		AgentID:    a.ID,
		DriverName: "Mike",
		LoadNumber: "L-7788",
		Status:     calls.StatusInProgress,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := callRepo.Insert(context.Background(), c); err != nil {
		t.Fatalf("seed call: %v", err)
	}
	return callRepo, agentRepo, c
}

func TestPing(t *testing.T) {
	h := NewHandler(calls.NewMemoryRepo(), agents.NewMemoryRepo(), &stubResponder{})
	out := h.HandleTurn(context.Background(), Inbound{InteractionType: "ping"})
	if out == nil || out.ResponseType != "pong" {
		t.Fatalf("expected pong, got %+v", out)
	}
}

func TestReminderUsesMetadata(t *testing.T) {
	h := NewHandler(calls.NewMemoryRepo(), agents.NewMemoryRepo(), &stubResponder{})
	out := h.HandleTurn(context.Background(), Inbound{
		InteractionType: "reminder_required",
		Call:            InboundCall{Metadata: map[string]any{"driver_name": "Mike", "load_number": "L-7788"}},
	})
	if out == nil || out.ResponseType != "reminder_required" {
		t.Fatalf("expected reminder frame, got %+v", out)
	}
	want := "Remember, you are speaking with Mike about load L-7788. Stay focused on getting the required dispatch information."
	if out.Content != want {
		t.Fatalf("unexpected reminder content: %q", out.Content)
	}
}

func TestReminderDefaultsWithoutMetadata(t *testing.T) {
	h := NewHandler(calls.NewMemoryRepo(), agents.NewMemoryRepo(), &stubResponder{})
	out := h.HandleTurn(context.Background(), Inbound{InteractionType: "reminder_required"})
	want := "Remember, you are speaking with Driver about load Unknown. Stay focused on getting the required dispatch information."
	if out == nil || out.Content != want {
		t.Fatalf("unexpected reminder content: %+v", out)
	}
}

func TestResponseSubstitutesAgentPrompt(t *testing.T) {
	callRepo, agentRepo, c := seedConversation(t)
	resp := &stubResponder{reply: "Thanks Mike, where are you now?"}
	h := NewHandler(callRepo, agentRepo, resp)

	out := h.HandleTurn(context.Background(), Inbound{
		InteractionType: "response_required",
		ResponseID:      4,
		CallID:          "retell-abc",
		Conversation: []TurnMessage{
			{Role: "agent", Content: "Hi Mike"},
			{Role: "user", Content: "Hello"},
		},
		Call: InboundCall{Metadata: map[string]any{"call_id": c.ID}},
	})
	if out == nil || out.ResponseType != "response" {
		t.Fatalf("expected response frame, got %+v", out)
	}
	if out.ResponseID != 4 {
		t.Fatalf("response_id must be echoed, got %d", out.ResponseID)
	}
	if out.Content != "Thanks Mike, where are you now?" {
		t.Fatalf("unexpected content: %q", out.Content)
	}
	if out.ContentComplete == nil || !*out.ContentComplete {
		t.Fatalf("content_complete must be true")
	}
	if out.EndCall == nil || *out.EndCall {
		t.Fatalf("end_call must be false")
	}

	wantPrompt := "You are calling Mike about load L-7788."
	if resp.lastReq.SystemPrompt != wantPrompt {
		t.Fatalf("placeholders not substituted: %q", resp.lastReq.SystemPrompt)
	}
	if len(resp.lastReq.History) != 2 || resp.lastReq.History[1].Content != "Hello" {
		t.Fatalf("history not forwarded: %+v", resp.lastReq.History)
	}
}

func TestResponseResolvesCallByProviderID(t *testing.T) {
	callRepo, agentRepo, c := seedConversation(t)
	c.RetellCallID = "retell-abc"
	if err := callRepo.Update(context.Background(), c); err != nil {
		t.Fatalf("attach retell id: %v", err)
	}
	resp := &stubResponder{reply: "Got it."}
	h := NewHandler(callRepo, agentRepo, resp)

	// No metadata at all; only the provider's call id identifies the call.
	out := h.HandleTurn(context.Background(), Inbound{
		InteractionType: "response_required",
		CallID:          "retell-abc",
	})
	if out == nil || out.Content != "Got it." {
		t.Fatalf("expected generated reply, got %+v", out)
	}
	wantPrompt := "You are calling Mike about load L-7788."
	if resp.lastReq.SystemPrompt != wantPrompt {
		t.Fatalf("expected agent prompt via provider id, got %q", resp.lastReq.SystemPrompt)
	}
}

func TestResponseFallsBackToGenericPersona(t *testing.T) {
	resp := &stubResponder{reply: "How can I help?"}
	h := NewHandler(calls.NewMemoryRepo(), agents.NewMemoryRepo(), resp)

	// Metadata without call_id: context is unresolvable.
	out := h.HandleTurn(context.Background(), Inbound{
		InteractionType: "response_required",
		Call:            InboundCall{Metadata: map[string]any{}},
	})
	if out == nil || out.Content != "How can I help?" {
		t.Fatalf("expected generated reply, got %+v", out)
	}
	if resp.lastReq.SystemPrompt != llm.FallbackPersona() {
		t.Fatalf("expected generic persona, got %q", resp.lastReq.SystemPrompt)
	}
}

func TestResponseModelFailureGetsCannedReply(t *testing.T) {
	callRepo, agentRepo, c := seedConversation(t)
	h := NewHandler(callRepo, agentRepo, &stubResponder{err: errors.New("anthropic: timeout")})

	out := h.HandleTurn(context.Background(), Inbound{
		InteractionType: "response_required",
		Call:            InboundCall{Metadata: map[string]any{"call_id": c.ID}},
	})
	if out == nil || out.Content != turnFailureReply {
		t.Fatalf("model failure must produce the canned reply, got %+v", out)
	}
}

func TestUpdateOnlyAndUnknownProduceNoFrame(t *testing.T) {
	h := NewHandler(calls.NewMemoryRepo(), agents.NewMemoryRepo(), &stubResponder{})
	if out := h.HandleTurn(context.Background(), Inbound{
		InteractionType: "update_only",
		Conversation:    []TurnMessage{{Role: "user", Content: "still driving"}},
	}); out != nil {
		t.Fatalf("update_only must not reply, got %+v", out)
	}
	if out := h.HandleTurn(context.Background(), Inbound{InteractionType: "call_details"}); out != nil {
		t.Fatalf("unknown interaction must not reply, got %+v", out)
	}
}
