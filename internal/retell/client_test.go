package retell

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"voiceagent-platform/internal/agents"
	"voiceagent-platform/internal/calls"
)

func newTestServer(t *testing.T) (*httptest.Server, *[]string) {
	t.Helper()
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("missing auth header, got %q", got)
		}
		switch r.URL.Path {
		case "/list-phone-numbers":
			_ = json.NewEncoder(w).Encode([]PhoneNumber{{PhoneNumber: "+15550001111"}})
		case "/create-retell-llm":
			var req createLLMRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			if req.GeneralPrompt == "" {
				t.Errorf("expected general_prompt")
			}
			if req.LLMWebsocketURL != "wss://example.app/llm-websocket" {
				t.Errorf("unexpected socket url: %q", req.LLMWebsocketURL)
			}
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"llm_id": "llm_1"}`))
		case "/create-agent":
			var req createAgentRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			if req.ResponseEngine.LLMID != "llm_1" {
				t.Errorf("expected llm id wired through")
			}
			if req.VoiceID != "11labs-Sophia" {
				t.Errorf("unexpected voice id: %q", req.VoiceID)
			}
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"agent_id": "agent_1"}`))
		case "/create-phone-call":
			var req createCallRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			if req.Metadata["call_id"] != "int_1" {
				t.Errorf("metadata must carry the internal call id, got %v", req.Metadata)
			}
			if req.FromNumber != "+15550001111" || req.ToNumber != "+15551234567" {
				t.Errorf("unexpected numbers: %q %q", req.FromNumber, req.ToNumber)
			}
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"call_id": "ret_1"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	return srv, &paths
}

func TestDial_ProvisionsAndPlacesCall(t *testing.T) {
	srv, _ := newTestServer(t)
	defer srv.Close()

	c := NewClient(ClientConfig{
		APIKey:       "test-key",
		BaseURL:      srv.URL,
		WebhookURL:   "https://example.app/api/webhook/retell",
		LLMSocketURL: "wss://example.app/llm-websocket",
	})

	res, err := c.Dial(context.Background(), calls.DialRequest{
		ToNumber: "+15551234567",
		Agent: agents.Agent{
			SystemPrompt:  "Hi {driver_name}, load {load_number}.",
			VoiceSettings: map[string]any{"voice": "female"},
		},
		Metadata: map[string]string{"call_id": "int_1"},
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if res.RetellCallID != "ret_1" {
		t.Fatalf("expected provider call id, got %q", res.RetellCallID)
	}
	if res.FromNumber != "+15550001111" {
		t.Fatalf("expected from number, got %q", res.FromNumber)
	}
}

func TestDial_NoPhoneNumbers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{APIKey: "test-key", BaseURL: srv.URL})
	_, err := c.Dial(context.Background(), calls.DialRequest{ToNumber: "+15551234567"})
	if err == nil {
		t.Fatalf("expected error with no numbers to dial from")
	}
}

func TestStatus(t *testing.T) {
	srv, _ := newTestServer(t)
	defer srv.Close()

	c := NewClient(ClientConfig{APIKey: "test-key", BaseURL: srv.URL, WebhookURL: "https://example.app/api/webhook/retell"})
	st := c.Status(context.Background())
	if !st.Connected || !st.CanMakeCalls {
		t.Fatalf("expected connected status, got %+v", st)
	}
	if len(st.PhoneNumbers) != 1 {
		t.Fatalf("expected one number")
	}

	srv.Close()
	st = c.Status(context.Background())
	if st.Connected {
		t.Fatalf("expected disconnected after server close")
	}
	if st.Error == "" {
		t.Fatalf("expected error message")
	}
}

func TestVoiceID(t *testing.T) {
	if got := voiceID(map[string]any{"voice": "male"}); got != "11labs-Adam" {
		t.Fatalf("unexpected: %q", got)
	}
	if got := voiceID(map[string]any{"voice": "female"}); got != "11labs-Sophia" {
		t.Fatalf("unexpected: %q", got)
	}
	if got := voiceID(nil); got != "11labs-Adrian" {
		t.Fatalf("unexpected default: %q", got)
	}
}

func TestAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": "invalid key"}`))
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{APIKey: "bad", BaseURL: srv.URL})
	_, err := c.ListPhoneNumbers(context.Background())
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("expected *APIError, got %T", err)
	}
	if apiErr.Status != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", apiErr.Status)
	}
}
