package retell

import (
	"encoding/json"
	"fmt"
	"time"
)

// Webhook events arrive as string-keyed JSON. They are decoded exactly once,
// here at the boundary, into a closed tagged variant; everything downstream
// dispatches on Kind and never re-reads raw payload maps.
//
// Identity contract: the provider's call_id is NOT our key. The internal call
// id travels as opaque metadata on the dial request and is read back from
// call.metadata.call_id on every event. An event without it is unprocessable.

type EventKind string

const (
	EventCallStarted  EventKind = "call_started"
	EventCallEnded    EventKind = "call_ended"
	EventCallAnalyzed EventKind = "call_analyzed"
	EventUnknown      EventKind = "unknown"
)

type Event struct {
	Kind EventKind

	// RawKind preserves the provider's tag for logging unknown events.
	RawKind string

	// RetellCallID is the provider's key for the call.
	RetellCallID string

	// InternalCallID is resolved from call.metadata.call_id; empty means the
	// metadata was lost in the provider round-trip.
	InternalCallID string

	// Exactly one of these is set, matching Kind.
	Started  *StartedPayload
	Ended    *EndedPayload
	Analyzed *AnalyzedPayload
}

type StartedPayload struct {
	FromNumber     string
	ToNumber       string
	StartTimestamp *time.Time
}

type EndedPayload struct {
	Transcript          string
	DisconnectionReason string
	EndTimestamp        *time.Time
}

type AnalyzedPayload struct {
	Analysis map[string]any
}

type webhookEnvelope struct {
	Event string `json:"event"`
	Call  struct {
		CallID              string         `json:"call_id"`
		Metadata            map[string]any `json:"metadata"`
		FromNumber          string         `json:"from_number"`
		ToNumber            string         `json:"to_number"`
		StartTimestamp      int64          `json:"start_timestamp"`
		EndTimestamp        int64          `json:"end_timestamp"`
		Transcript          string         `json:"transcript"`
		DisconnectionReason string         `json:"disconnection_reason"`
		CallAnalysis        map[string]any `json:"call_analysis"`
	} `json:"call"`
}

// DecodeEvent parses a webhook body. It fails only on unparsable JSON;
// unrecognized event tags come back as Kind=EventUnknown so the caller can
// acknowledge and move on.
func DecodeEvent(body []byte) (Event, error) {
	var env webhookEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Event{}, fmt.Errorf("retell: decode webhook: %w", err)
	}

	ev := Event{
		RawKind:        env.Event,
		RetellCallID:   env.Call.CallID,
		InternalCallID: metadataCallID(env.Call.Metadata),
	}

	switch env.Event {
	case string(EventCallStarted):
		ev.Kind = EventCallStarted
		ev.Started = &StartedPayload{
			FromNumber:     env.Call.FromNumber,
			ToNumber:       env.Call.ToNumber,
			StartTimestamp: millisTime(env.Call.StartTimestamp),
		}
	case string(EventCallEnded):
		ev.Kind = EventCallEnded
		ev.Ended = &EndedPayload{
			Transcript:          env.Call.Transcript,
			DisconnectionReason: env.Call.DisconnectionReason,
			EndTimestamp:        millisTime(env.Call.EndTimestamp),
		}
	case string(EventCallAnalyzed):
		ev.Kind = EventCallAnalyzed
		ev.Analyzed = &AnalyzedPayload{Analysis: env.Call.CallAnalysis}
	default:
		ev.Kind = EventUnknown
	}
	return ev, nil
}

func metadataCallID(metadata map[string]any) string {
	v, ok := metadata["call_id"]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}

// Provider timestamps are epoch milliseconds; zero means absent.
func millisTime(ms int64) *time.Time {
	if ms <= 0 {
		return nil
	}
	t := time.UnixMilli(ms).UTC()
	return &t
}
