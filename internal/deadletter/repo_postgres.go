package deadletter

import (
	"context"
	"database/sql"
)

// PostgresRepo appends dead-letter records to webhook_dead_letters.

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Append(ctx context.Context, rec Record) error {
	const q = `
INSERT INTO webhook_dead_letters (id, event_kind, retell_call_id, call_id, reason, payload, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
`
	_, err := r.db.ExecContext(ctx, q,
		rec.ID,
		rec.EventKind,
		rec.RetellCallID,
		rec.CallID,
		rec.Reason,
		rec.Payload,
		rec.CreatedAt,
	)
	return err
}
