package llm

import (
	"context"
	"encoding/json"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// Client implements Extractor and Responder on the Anthropic Messages API.
type Client struct {
	client sdk.Client
	model  string
}

func NewClient(apiKey, model string) *Client {
	return &Client{
		client: sdk.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

const (
	maxExtractionTokens = 512
	maxTurnTokens       = 200

	// Extraction wants determinism; conversation wants some warmth.
	extractionTemperature = 0.1
	turnTemperature       = 0.7
)

func (c *Client) ExtractCallSummary(ctx context.Context, transcript, scenarioType string) ExtractionResult {
	prompt := extractionPrompt(transcript, scenarioType)

	msg, err := c.client.Messages.New(ctx, sdk.MessageNewParams{
		Model:       sdk.Model(c.model),
		MaxTokens:   maxExtractionTokens,
		Temperature: sdk.Float(extractionTemperature),
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return ExtractionResult{
			StructuredData:   map[string]any{"error": "extraction request failed"},
			ConfidenceScore:  confidenceFailure,
			ProcessingErrors: []string{err.Error()},
		}
	}

	text := firstText(msg)
	data, ok := parseStructured(text)
	if !ok {
		return ExtractionResult{
			StructuredData:   map[string]any{"error": "failed to parse response"},
			ConfidenceScore:  confidenceParseError,
			ProcessingErrors: []string{"JSON parsing failed"},
		}
	}
	return ExtractionResult{
		StructuredData:   data,
		ConfidenceScore:  confidenceClean,
		ProcessingErrors: []string{},
	}
}

func (c *Client) GenerateTurn(ctx context.Context, req TurnRequest) (string, error) {
	system := req.SystemPrompt
	if system == "" {
		system = fallbackPersona
	}

	msgs := historyMessages(req.History)
	if len(msgs) == 0 {
		msgs = []sdk.MessageParam{sdk.NewUserMessage(sdk.NewTextBlock("Hello?"))}
	}

	msg, err := c.client.Messages.New(ctx, sdk.MessageNewParams{
		Model:       sdk.Model(c.model),
		MaxTokens:   maxTurnTokens,
		Temperature: sdk.Float(turnTemperature),
		System:      []sdk.TextBlockParam{{Text: system}},
		Messages:    msgs,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(firstText(msg)), nil
}

// historyMessages maps the provider's transcript roles onto the API roles.
// The Messages API requires the first message to be from the user.
func historyMessages(history []Utterance) []sdk.MessageParam {
	out := make([]sdk.MessageParam, 0, len(history))
	for _, u := range history {
		if u.Content == "" {
			continue
		}
		block := sdk.NewTextBlock(u.Content)
		if u.Role == "agent" {
			if len(out) == 0 {
				continue
			}
			out = append(out, sdk.NewAssistantMessage(block))
		} else {
			out = append(out, sdk.NewUserMessage(block))
		}
	}
	return out
}

func firstText(msg *sdk.Message) string {
	for _, block := range msg.Content {
		if block.Type == "text" {
			return block.Text
		}
	}
	return ""
}

// parseStructured parses model output as a JSON object, tolerating markdown
// code fences around it.
func parseStructured(text string) (map[string]any, bool) {
	s := strings.TrimSpace(text)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
		s = strings.TrimSpace(s)
	}

	var out map[string]any
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, false
	}
	return out, true
}
