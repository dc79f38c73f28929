package llm

import (
	"context"
)

// Extractor turns a call transcript into a best-effort structured summary.
//
// Contract: ExtractCallSummary never returns an error. Downstream failures
// (network, malformed model output) come back as a degraded result with
// ConfidenceScore 0.0 and a non-empty ProcessingErrors, or 0.1 with
// "JSON parsing failed" when the model replied with non-JSON text.
// Summarization must never block the lifecycle event pipeline.
type Extractor interface {
	ExtractCallSummary(ctx context.Context, transcript, scenarioType string) ExtractionResult
}

// Responder generates the next utterance for a live call. Unlike extraction,
// turn generation returns its error: the conversation handler owns the
// fallback policy.
type Responder interface {
	GenerateTurn(ctx context.Context, req TurnRequest) (string, error)
}

type ExtractionResult struct {
	StructuredData   map[string]any `json:"structured_data"`
	ConfidenceScore  float64        `json:"confidence_score"`
	ProcessingErrors []string       `json:"processing_errors"`
}

type TurnRequest struct {
	// SystemPrompt is the agent template with placeholders already substituted.
	SystemPrompt string
	History      []Utterance
}

type Utterance struct {
	Role    string // "agent" or "user"
	Content string
}

// Extraction confidence levels.
const (
	confidenceClean      = 0.9
	confidenceParseError = 0.1
	confidenceFailure    = 0.0
)
