package retell

import (
	"testing"
	"time"
)

func TestDecodeEvent_CallStarted(t *testing.T) {
	body := []byte(`{
		"event": "call_started",
		"call": {
			"call_id": "ret_123",
			"metadata": {"call_id": "int_456", "driver_name": "Mike"},
			"from_number": "+15550001111",
			"to_number": "+15551234567",
			"start_timestamp": 1714608475945
		}
	}`)

	ev, err := DecodeEvent(body)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if ev.Kind != EventCallStarted {
		t.Fatalf("expected call_started, got %q", ev.Kind)
	}
	if ev.RetellCallID != "ret_123" || ev.InternalCallID != "int_456" {
		t.Fatalf("unexpected ids: %q %q", ev.RetellCallID, ev.InternalCallID)
	}
	if ev.Started == nil {
		t.Fatalf("expected started payload")
	}
	if ev.Started.FromNumber != "+15550001111" || ev.Started.ToNumber != "+15551234567" {
		t.Fatalf("unexpected numbers")
	}
	want := time.UnixMilli(1714608475945).UTC()
	if ev.Started.StartTimestamp == nil || !ev.Started.StartTimestamp.Equal(want) {
		t.Fatalf("unexpected start timestamp: %v", ev.Started.StartTimestamp)
	}
	if ev.Ended != nil || ev.Analyzed != nil {
		t.Fatalf("only the started payload should be set")
	}
}

func TestDecodeEvent_CallEnded(t *testing.T) {
	body := []byte(`{
		"event": "call_ended",
		"call": {
			"call_id": "ret_123",
			"metadata": {"call_id": "int_456"},
			"transcript": "Agent: hello\nUser: hi",
			"disconnection_reason": "user_hangup",
			"end_timestamp": 1714608500000
		}
	}`)

	ev, err := DecodeEvent(body)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if ev.Kind != EventCallEnded {
		t.Fatalf("expected call_ended, got %q", ev.Kind)
	}
	if ev.Ended == nil {
		t.Fatalf("expected ended payload")
	}
	if ev.Ended.DisconnectionReason != "user_hangup" {
		t.Fatalf("unexpected reason: %q", ev.Ended.DisconnectionReason)
	}
	if ev.Ended.Transcript == "" {
		t.Fatalf("expected transcript")
	}
}

func TestDecodeEvent_CallAnalyzed(t *testing.T) {
	body := []byte(`{
		"event": "call_analyzed",
		"call": {
			"call_id": "ret_123",
			"metadata": {"call_id": "int_456"},
			"call_analysis": {"call_summary": "driver on schedule", "user_sentiment": "Positive"}
		}
	}`)

	ev, err := DecodeEvent(body)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if ev.Kind != EventCallAnalyzed {
		t.Fatalf("expected call_analyzed, got %q", ev.Kind)
	}
	if ev.Analyzed == nil || ev.Analyzed.Analysis["user_sentiment"] != "Positive" {
		t.Fatalf("expected analysis payload")
	}
}

func TestDecodeEvent_UnknownKind(t *testing.T) {
	ev, err := DecodeEvent([]byte(`{"event": "call_billed", "call": {"call_id": "ret_1"}}`))
	if err != nil {
		t.Fatalf("unknown kinds must decode, got %v", err)
	}
	if ev.Kind != EventUnknown {
		t.Fatalf("expected unknown, got %q", ev.Kind)
	}
	if ev.RawKind != "call_billed" {
		t.Fatalf("expected raw kind preserved, got %q", ev.RawKind)
	}
}

func TestDecodeEvent_MissingMetadata(t *testing.T) {
	cases := [][]byte{
		[]byte(`{"event": "call_started", "call": {"call_id": "ret_1"}}`),
		[]byte(`{"event": "call_started", "call": {"call_id": "ret_1", "metadata": {}}}`),
		[]byte(`{"event": "call_started", "call": {"call_id": "ret_1", "metadata": {"call_id": 42}}}`),
	}
	for i, body := range cases {
		ev, err := DecodeEvent(body)
		if err != nil {
			t.Fatalf("case %d: unexpected err: %v", i, err)
		}
		if ev.InternalCallID != "" {
			t.Fatalf("case %d: expected unresolvable internal id, got %q", i, ev.InternalCallID)
		}
	}
}

func TestDecodeEvent_MalformedJSON(t *testing.T) {
	if _, err := DecodeEvent([]byte("not json at all")); err == nil {
		t.Fatalf("expected decode error")
	}
}
