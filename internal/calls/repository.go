package calls

import "context"

// Repository is the persistence contract for call records.
//
// Concurrency model: each mutation is a single independent row update with
// last-write-wins semantics. Not-found is reported as ErrNotFound, distinct
// from operation failures.

type Repository interface {
	Insert(ctx context.Context, c Call) error
	GetByID(ctx context.Context, id string) (Call, error)

	// GetByRetellID resolves a call by the provider's call id.
	GetByRetellID(ctx context.Context, retellCallID string) (Call, error)

	// List returns up to limit calls ordered by created_at descending.
	List(ctx context.Context, limit int) ([]Call, error)

	Update(ctx context.Context, c Call) error
}
