package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"voiceagent-platform/internal/calls"
	"voiceagent-platform/internal/retell"
	"voiceagent-platform/internal/summary"
	"voiceagent-platform/pkg/logger"
)

// Reconciler applies provider webhook events onto stored call records.
//
// Ordering: transitions are guarded by status rank, so a late or duplicated
// delivery can never move a call backwards. Duplicate terminal events are
// acknowledged without effect.
//
// Failure isolation: summary extraction runs synchronously after a completed
// call but its errors only get logged. The lifecycle transition is already
// committed by then and must not be rolled back by summarization problems.
type Reconciler struct {
	calls      calls.Repository
	limiter    calls.SlotLimiter
	summarizer Summarizer
	clock      func() time.Time
}

// Summarizer is the post-call extraction hand-off, implemented by
// summary.Processor.
type Summarizer interface {
	Process(ctx context.Context, callID, transcript string) (summary.Summary, error)
}

func NewReconciler(callRepo calls.Repository, limiter calls.SlotLimiter, summarizer Summarizer) *Reconciler {
	return &Reconciler{
		calls:      callRepo,
		limiter:    limiter,
		summarizer: summarizer,
		clock:      time.Now,
	}
}

// ErrUnprocessable marks an event that can never succeed no matter how often
// the provider retries it. Callers should dead-letter and acknowledge.
var ErrUnprocessable = errors.New("lifecycle: unprocessable event")

// failureReasons are the disconnection reasons that mean the driver was never
// reached. Every other reason ends a conversation that actually happened.
var failureReasons = map[string]bool{
	"dial_failed":    true,
	"dial_no_answer": true,
	"dial_busy":      true,
}

// Apply routes one decoded event to its transition. A nil return means the
// event is fully absorbed; any error is a processing failure the caller
// should record.
func (r *Reconciler) Apply(ctx context.Context, ev retell.Event) error {
	log := logger.From(ctx)

	if ev.Kind == retell.EventUnknown {
		log.Warn("ignoring unknown webhook event", "event", ev.RawKind, "retell_call_id", ev.RetellCallID)
		return nil
	}
	if ev.InternalCallID == "" {
		log.Warn("webhook event lost call_id metadata", "event", ev.RawKind, "retell_call_id", ev.RetellCallID)
		return fmt.Errorf("%w: no call_id metadata on %s event", ErrUnprocessable, ev.RawKind)
	}

	call, err := r.calls.GetByID(ctx, ev.InternalCallID)
	if err != nil {
		if errors.Is(err, calls.ErrNotFound) {
			return fmt.Errorf("%w: call %s not found for %s event", ErrUnprocessable, ev.InternalCallID, ev.RawKind)
		}
		return fmt.Errorf("lifecycle: load call %s: %w", ev.InternalCallID, err)
	}

	switch ev.Kind {
	case retell.EventCallStarted:
		return r.applyStarted(ctx, call, ev)
	case retell.EventCallEnded:
		return r.applyEnded(ctx, call, ev)
	case retell.EventCallAnalyzed:
		return r.applyAnalyzed(ctx, call, ev)
	default:
		return nil
	}
}

func (r *Reconciler) applyStarted(ctx context.Context, call calls.Call, ev retell.Event) error {
	log := logger.From(ctx)

	if call.Status.Rank() >= calls.StatusInProgress.Rank() {
		log.Info("discarding stale call_started", "call_id", call.ID, "status", call.Status)
		return nil
	}

	call.Status = calls.StatusInProgress
	call.RetellCallID = ev.RetellCallID
	call.FromNumber = ev.Started.FromNumber
	call.ToNumber = ev.Started.ToNumber
	call.StartTimestamp = ev.Started.StartTimestamp
	call.UpdatedAt = r.clock().UTC()

	if err := r.calls.Update(ctx, call); err != nil {
		return fmt.Errorf("lifecycle: persist call_started: %w", err)
	}
	log.Info("call started", "call_id", call.ID, "retell_call_id", ev.RetellCallID)
	return nil
}

func (r *Reconciler) applyEnded(ctx context.Context, call calls.Call, ev retell.Event) error {
	log := logger.From(ctx)

	if call.Status.Terminal() {
		log.Info("discarding duplicate call_ended", "call_id", call.ID, "status", call.Status)
		return nil
	}

	status := calls.StatusCompleted
	if failureReasons[ev.Ended.DisconnectionReason] {
		status = calls.StatusFailed
	}

	call.Status = status
	call.Transcript = ev.Ended.Transcript
	call.DisconnectionReason = ev.Ended.DisconnectionReason
	call.EndedAt = ev.Ended.EndTimestamp
	if call.EndedAt == nil {
		now := r.clock().UTC()
		call.EndedAt = &now
	}
	if call.RetellCallID == "" {
		call.RetellCallID = ev.RetellCallID
	}
	call.UpdatedAt = r.clock().UTC()

	if err := r.calls.Update(ctx, call); err != nil {
		return fmt.Errorf("lifecycle: persist call_ended: %w", err)
	}

	r.releaseSlot(ctx, call.AgentID)
	log.Info("call ended",
		"call_id", call.ID,
		"status", status,
		"reason", ev.Ended.DisconnectionReason,
	)

	if status == calls.StatusCompleted && call.Transcript != "" && r.summarizer != nil {
		if _, err := r.summarizer.Process(ctx, call.ID, call.Transcript); err != nil {
			log.Warn("summary extraction failed", "call_id", call.ID, "err", err)
		}
	}
	return nil
}

func (r *Reconciler) applyAnalyzed(ctx context.Context, call calls.Call, ev retell.Event) error {
	call.Analysis = ev.Analyzed.Analysis
	call.UpdatedAt = r.clock().UTC()
	if err := r.calls.Update(ctx, call); err != nil {
		return fmt.Errorf("lifecycle: persist call_analyzed: %w", err)
	}
	logger.From(ctx).Info("call analysis attached", "call_id", call.ID)
	return nil
}

func (r *Reconciler) releaseSlot(ctx context.Context, agentID string) {
	if r.limiter == nil {
		return
	}
	if err := r.limiter.Release(ctx, agentID); err != nil {
		logger.From(ctx).Warn("dial slot release failed", "agent_id", agentID, "err", err)
	}
}
