package agents

import "context"

// Repository is the persistence contract for agent configurations.
//
// Not-found is reported as ErrNotFound, never as a zero value, so callers can
// distinguish "row absent" from "operation failed".

type Repository interface {
	Insert(ctx context.Context, a Agent) error
	GetByID(ctx context.Context, id string) (Agent, error)

	// List returns agents ordered by created_at descending.
	// By default only active agents are returned; soft-deleted rows are
	// included when includeInactive is set.
	List(ctx context.Context, includeInactive bool) ([]Agent, error)

	Update(ctx context.Context, a Agent) error
}
