package summary

import (
	"context"
	"errors"
	"fmt"
	"time"

	"voiceagent-platform/internal/agents"
	"voiceagent-platform/internal/calls"
	"voiceagent-platform/internal/llm"
	"voiceagent-platform/pkg/logger"

	"github.com/google/uuid"
)

// Processor turns the transcript of a completed call into a Summary row.
//
// Processing is idempotent per call: duplicate webhook deliveries and retries
// converge on the single stored summary. Extraction failures still produce a
// row (low confidence, populated ProcessingErrors) so the summarization step
// never blocks the lifecycle pipeline.
type Processor struct {
	calls     calls.Repository
	agents    agents.Repository
	summaries Repository
	extractor llm.Extractor
	clock     func() time.Time
}

func NewProcessor(callRepo calls.Repository, agentRepo agents.Repository, repo Repository, extractor llm.Extractor) *Processor {
	return &Processor{
		calls:     callRepo,
		agents:    agentRepo,
		summaries: repo,
		extractor: extractor,
		clock:     time.Now,
	}
}

// Process extracts and stores the summary for one call. When a summary
// already exists the stored one is returned unchanged.
func (p *Processor) Process(ctx context.Context, callID, transcript string) (Summary, error) {
	log := logger.From(ctx)

	if existing, err := p.summaries.GetByCallID(ctx, callID); err == nil {
		log.Info("summary already exists, skipping extraction", "call_id", callID)
		return existing, nil
	} else if !errors.Is(err, ErrNotFound) {
		return Summary{}, fmt.Errorf("summary: lookup existing: %w", err)
	}

	call, err := p.calls.GetByID(ctx, callID)
	if err != nil {
		return Summary{}, fmt.Errorf("summary: load call %s: %w", callID, err)
	}

	// The agent row may be soft-deleted or gone by the time the call ends;
	// extraction still proceeds under the default scenario.
	scenario := agents.ScenarioDispatch
	if agent, err := p.agents.GetByID(ctx, call.AgentID); err == nil {
		scenario = agent.ScenarioType
	} else {
		log.Warn("agent lookup failed for summary, using dispatch scenario", "call_id", callID, "agent_id", call.AgentID, "err", err)
	}

	res := p.extractor.ExtractCallSummary(ctx, transcript, string(scenario))

	s := Summary{
		ID:               uuid.NewString(),
		CallID:           callID,
		StructuredData:   res.StructuredData,
		ConfidenceScore:  res.ConfidenceScore,
		ProcessingErrors: res.ProcessingErrors,
		CreatedAt:        p.clock().UTC(),
	}
	s.CallOutcome = stringField(res.StructuredData, "call_outcome")
	switch scenario {
	case agents.ScenarioEmergency:
		s.EmergencyType = stringField(res.StructuredData, "emergency_type")
		s.EmergencyLocation = stringField(res.StructuredData, "emergency_location")
		s.EscalationStatus = stringField(res.StructuredData, "escalation_status")
	default:
		s.DriverStatus = stringField(res.StructuredData, "driver_status")
		s.CurrentLocation = stringField(res.StructuredData, "current_location")
		s.ETA = stringField(res.StructuredData, "eta")
	}

	if err := p.summaries.Insert(ctx, s); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			// Lost the race with a concurrent delivery; the stored row wins.
			return p.summaries.GetByCallID(ctx, callID)
		}
		return Summary{}, fmt.Errorf("summary: insert: %w", err)
	}

	log.Info("summary stored",
		"call_id", callID,
		"scenario", scenario,
		"confidence", s.ConfidenceScore,
		"errors", len(s.ProcessingErrors),
	)
	return s, nil
}

func (p *Processor) GetByCallID(ctx context.Context, callID string) (Summary, error) {
	return p.summaries.GetByCallID(ctx, callID)
}

// stringField lifts a non-empty string value out of extracted data; any
// other type or an empty string maps to nil so columns are never fabricated.
func stringField(data map[string]any, key string) *string {
	v, ok := data[key]
	if !ok {
		return nil
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return nil
	}
	return &s
}
