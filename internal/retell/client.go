package retell

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"voiceagent-platform/internal/calls"
	"voiceagent-platform/pkg/logger"
)

// Client talks to the Retell REST API. It implements calls.Dialer.
//
// All requests use bounded timeouts; a timeout is an ordinary failure of that
// call, never specially retried here.

type Client struct {
	apiKey  string
	baseURL string

	// webhookURL receives lifecycle events; llmSocketURL is the live
	// conversation socket the provider dials back into.
	webhookURL   string
	llmSocketURL string

	httpc *http.Client
}

type ClientConfig struct {
	APIKey       string
	BaseURL      string
	WebhookURL   string
	LLMSocketURL string
	Timeout      time.Duration
}

func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		apiKey:       cfg.APIKey,
		baseURL:      cfg.BaseURL,
		webhookURL:   cfg.WebhookURL,
		llmSocketURL: cfg.LLMSocketURL,
		httpc:        &http.Client{Timeout: timeout},
	}
}

// APIError is a non-2xx provider response.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("retell: api returned %d: %s", e.Status, e.Body)
}

type PhoneNumber struct {
	PhoneNumber string `json:"phone_number"`
	Nickname    string `json:"nickname,omitempty"`
}

func (c *Client) ListPhoneNumbers(ctx context.Context) ([]PhoneNumber, error) {
	var out []PhoneNumber
	if err := c.do(ctx, http.MethodGet, "/list-phone-numbers", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ConnectionStatus summarizes whether the account is ready to place calls.
type ConnectionStatus struct {
	Connected    bool     `json:"connected"`
	CanMakeCalls bool     `json:"can_make_calls"`
	PhoneNumbers []string `json:"phone_numbers"`
	WebhookURL   string   `json:"webhook_url"`
	Error        string   `json:"error,omitempty"`
}

// Status checks API reachability by listing phone numbers.
func (c *Client) Status(ctx context.Context) ConnectionStatus {
	nums, err := c.ListPhoneNumbers(ctx)
	if err != nil {
		return ConnectionStatus{WebhookURL: c.webhookURL, Error: err.Error()}
	}
	st := ConnectionStatus{
		Connected:    true,
		CanMakeCalls: len(nums) > 0,
		WebhookURL:   c.webhookURL,
	}
	for _, n := range nums {
		st.PhoneNumbers = append(st.PhoneNumbers, n.PhoneNumber)
	}
	return st
}

type createLLMRequest struct {
	GeneralPrompt   string `json:"general_prompt"`
	GeneralTools    []any  `json:"general_tools"`
	LLMWebsocketURL string `json:"llm_websocket_url"`
}

func (c *Client) createLLM(ctx context.Context, systemPrompt string) (string, error) {
	var out struct {
		LLMID string `json:"llm_id"`
	}
	req := createLLMRequest{
		GeneralPrompt:   systemPrompt,
		GeneralTools:    []any{},
		LLMWebsocketURL: c.llmSocketURL,
	}
	if err := c.do(ctx, http.MethodPost, "/create-retell-llm", req, &out); err != nil {
		return "", err
	}
	return out.LLMID, nil
}

type createAgentRequest struct {
	ResponseEngine struct {
		Type  string `json:"type"`
		LLMID string `json:"llm_id"`
	} `json:"response_engine"`
	VoiceID    string `json:"voice_id"`
	WebhookURL string `json:"webhook_url,omitempty"`
}

func (c *Client) createAgent(ctx context.Context, llmID, voiceID string) (string, error) {
	req := createAgentRequest{VoiceID: voiceID, WebhookURL: c.webhookURL}
	req.ResponseEngine.Type = "retell-llm"
	req.ResponseEngine.LLMID = llmID

	var out struct {
		AgentID string `json:"agent_id"`
	}
	if err := c.do(ctx, http.MethodPost, "/create-agent", req, &out); err != nil {
		return "", err
	}
	return out.AgentID, nil
}

type createCallRequest struct {
	FromNumber       string            `json:"from_number"`
	ToNumber         string            `json:"to_number"`
	AgentID          string            `json:"agent_id"`
	DynamicVariables map[string]string `json:"retell_llm_dynamic_variables,omitempty"`
	Metadata         map[string]string `json:"metadata,omitempty"`
}

// Dial provisions the provider-side agent and places the outbound call.
// The metadata block is echoed back on every webhook event; it must carry
// the internal call id.
func (c *Client) Dial(ctx context.Context, req calls.DialRequest) (calls.DialResult, error) {
	log := logger.From(ctx)

	nums, err := c.ListPhoneNumbers(ctx)
	if err != nil {
		return calls.DialResult{}, fmt.Errorf("retell: list phone numbers: %w", err)
	}
	if len(nums) == 0 || nums[0].PhoneNumber == "" {
		return calls.DialResult{}, fmt.Errorf("retell: no phone numbers available")
	}
	fromNumber := nums[0].PhoneNumber

	llmID, err := c.createLLM(ctx, req.Agent.SystemPrompt)
	if err != nil {
		return calls.DialResult{}, fmt.Errorf("retell: create llm config: %w", err)
	}

	agentID, err := c.createAgent(ctx, llmID, voiceID(req.Agent.VoiceSettings))
	if err != nil {
		return calls.DialResult{}, fmt.Errorf("retell: create agent: %w", err)
	}

	log.Debug("placing outbound call", "from", fromNumber, "to", req.ToNumber, "retell_agent_id", agentID)

	var out struct {
		CallID string `json:"call_id"`
	}
	body := createCallRequest{
		FromNumber:       fromNumber,
		ToNumber:         req.ToNumber,
		AgentID:          agentID,
		DynamicVariables: req.DynamicVariables,
		Metadata:         req.Metadata,
	}
	if err := c.do(ctx, http.MethodPost, "/create-phone-call", body, &out); err != nil {
		return calls.DialResult{}, fmt.Errorf("retell: create phone call: %w", err)
	}

	return calls.DialResult{RetellCallID: out.CallID, FromNumber: fromNumber}, nil
}

// GetCall fetches the provider's view of a call, mainly for debugging.
func (c *Client) GetCall(ctx context.Context, retellCallID string) (map[string]any, error) {
	var out map[string]any
	if err := c.do(ctx, http.MethodGet, "/get-call/"+retellCallID, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// voiceID maps our voice setting onto provider voice ids.
func voiceID(settings map[string]any) string {
	switch settings["voice"] {
	case "male":
		return "11labs-Adam"
	case "female":
		return "11labs-Sophia"
	default:
		return "11labs-Adrian"
	}
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("retell: encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return err
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return &APIError{Status: res.StatusCode, Body: string(raw)}
	}
	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("retell: decode response: %w", err)
		}
	}
	return nil
}
