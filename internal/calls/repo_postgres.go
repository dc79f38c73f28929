package calls

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// PostgresRepo persists calls in the calls table.
//
// Expected schema:
//
//	CREATE TABLE calls (
//	  id                   UUID PRIMARY KEY,
//	  agent_id             UUID NOT NULL REFERENCES agents (id),
//	  driver_name          TEXT NOT NULL,
//	  driver_phone         TEXT NOT NULL,
//	  load_number          TEXT NOT NULL,
//	  status               TEXT NOT NULL,
//	  retell_call_id       TEXT,
//	  from_number          TEXT,
//	  to_number            TEXT,
//	  start_timestamp      TIMESTAMPTZ,
//	  ended_at             TIMESTAMPTZ,
//	  disconnection_reason TEXT,
//	  transcript           TEXT,
//	  analysis             JSONB,
//	  created_at           TIMESTAMPTZ NOT NULL,
//	  updated_at           TIMESTAMPTZ NOT NULL
//	);
//	CREATE INDEX calls_retell_call_id_idx ON calls (retell_call_id);

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

const callColumns = `
id, agent_id, driver_name, driver_phone, load_number, status,
retell_call_id, from_number, to_number, start_timestamp, ended_at,
disconnection_reason, transcript, analysis, created_at, updated_at
`

func (r *PostgresRepo) Insert(ctx context.Context, c Call) error {
	analysis, err := encodeAnalysis(c.Analysis)
	if err != nil {
		return err
	}
	const q = `
INSERT INTO calls (` + callColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
`
	_, err = r.db.ExecContext(ctx, q,
		c.ID,
		c.AgentID,
		c.DriverName,
		c.DriverPhone,
		c.LoadNumber,
		c.Status,
		nullStr(c.RetellCallID),
		nullStr(c.FromNumber),
		nullStr(c.ToNumber),
		c.StartTimestamp,
		c.EndedAt,
		nullStr(c.DisconnectionReason),
		nullStr(c.Transcript),
		analysis,
		c.CreatedAt,
		c.UpdatedAt,
	)
	return err
}

func (r *PostgresRepo) GetByID(ctx context.Context, id string) (Call, error) {
	const q = `SELECT ` + callColumns + ` FROM calls WHERE id = $1`
	return scanCall(r.db.QueryRowContext(ctx, q, id))
}

func (r *PostgresRepo) GetByRetellID(ctx context.Context, retellCallID string) (Call, error) {
	const q = `SELECT ` + callColumns + ` FROM calls WHERE retell_call_id = $1 LIMIT 1`
	return scanCall(r.db.QueryRowContext(ctx, q, retellCallID))
}

func (r *PostgresRepo) List(ctx context.Context, limit int) ([]Call, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `SELECT ` + callColumns + ` FROM calls ORDER BY created_at DESC LIMIT $1`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Call
	for rows.Next() {
		c, err := scanCall(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) Update(ctx context.Context, c Call) error {
	analysis, err := encodeAnalysis(c.Analysis)
	if err != nil {
		return err
	}
	const q = `
UPDATE calls
SET status = $2, retell_call_id = $3, from_number = $4, to_number = $5,
    start_timestamp = $6, ended_at = $7, disconnection_reason = $8,
    transcript = $9, analysis = $10, updated_at = $11
WHERE id = $1
`
	res, err := r.db.ExecContext(ctx, q,
		c.ID,
		c.Status,
		nullStr(c.RetellCallID),
		nullStr(c.FromNumber),
		nullStr(c.ToNumber),
		c.StartTimestamp,
		c.EndedAt,
		nullStr(c.DisconnectionReason),
		nullStr(c.Transcript),
		analysis,
		c.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCall(row rowScanner) (Call, error) {
	var c Call
	var retellID, fromNum, toNum, reason, transcript sql.NullString
	var analysis []byte
	err := row.Scan(
		&c.ID,
		&c.AgentID,
		&c.DriverName,
		&c.DriverPhone,
		&c.LoadNumber,
		&c.Status,
		&retellID,
		&fromNum,
		&toNum,
		&c.StartTimestamp,
		&c.EndedAt,
		&reason,
		&transcript,
		&analysis,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Call{}, ErrNotFound
		}
		return Call{}, err
	}
	c.RetellCallID = retellID.String
	c.FromNumber = fromNum.String
	c.ToNumber = toNum.String
	c.DisconnectionReason = reason.String
	c.Transcript = transcript.String
	if len(analysis) > 0 {
		if err := json.Unmarshal(analysis, &c.Analysis); err != nil {
			return Call{}, fmt.Errorf("calls: decode analysis: %w", err)
		}
	}
	return c, nil
}

func encodeAnalysis(m map[string]any) (any, error) {
	if m == nil {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("calls: encode analysis: %w", err)
	}
	return b, nil
}

func nullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
