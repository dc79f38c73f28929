package summary

import (
	"context"
	"errors"
)

var (
	ErrNotFound = errors.New("summary: not found")

	// ErrAlreadyExists enforces the at-most-one-summary-per-call invariant
	// at the store level (UNIQUE on call_id).
	ErrAlreadyExists = errors.New("summary: already exists for call")
)

type Repository interface {
	// Insert persists a new summary. It returns ErrAlreadyExists when a
	// summary for the same call id is already present.
	Insert(ctx context.Context, s Summary) error

	GetByCallID(ctx context.Context, callID string) (Summary, error)
}
