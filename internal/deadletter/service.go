package deadletter

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for dead-letter records.
//
// It MUST be append-only. No Update/Delete methods are provided by design.

type Repository interface {
	Append(ctx context.Context, r Record) error
}

// Service records webhook processing failures.
//
// Callers should treat dead-lettering as best-effort: a failure to record
// must never turn into a webhook retry storm.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidRecord = errors.New("deadletter: invalid record")

func (s *Service) Append(ctx context.Context, r Record) error {
	if s.repo == nil {
		return errors.New("deadletter: repository not configured")
	}
	if r.Reason == "" {
		return ErrInvalidRecord
	}

	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.clock().UTC()
	}
	return s.repo.Append(ctx, r)
}

// RecordFailure captures a failed webhook event with its raw payload.
func (s *Service) RecordFailure(ctx context.Context, eventKind, retellCallID, callID, reason string, payload []byte) error {
	return s.Append(ctx, Record{
		EventKind:    eventKind,
		RetellCallID: retellCallID,
		CallID:       callID,
		Reason:       reason,
		Payload:      string(payload),
	})
}
