package summary

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"voiceagent-platform/pkg/utils"
)

// PostgresRepo persists summaries in the summaries table.
//
// Expected schema:
//
//	CREATE TABLE summaries (
//	  id                 UUID PRIMARY KEY,
//	  call_id            UUID NOT NULL UNIQUE REFERENCES calls (id),
//	  call_outcome       TEXT,
//	  driver_status      TEXT,
//	  current_location   TEXT,
//	  eta                TEXT,
//	  emergency_type     TEXT,
//	  emergency_location TEXT,
//	  escalation_status  TEXT,
//	  structured_data    JSONB NOT NULL DEFAULT '{}',
//	  confidence_score   DOUBLE PRECISION NOT NULL,
//	  processing_errors  JSONB NOT NULL DEFAULT '[]',
//	  created_at         TIMESTAMPTZ NOT NULL
//	);

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Insert(ctx context.Context, s Summary) error {
	data, err := json.Marshal(orEmptyMap(s.StructuredData))
	if err != nil {
		return fmt.Errorf("summary: encode structured_data: %w", err)
	}
	procErrs, err := json.Marshal(orEmptySlice(s.ProcessingErrors))
	if err != nil {
		return fmt.Errorf("summary: encode processing_errors: %w", err)
	}

	// Check-then-insert in one transaction; the UNIQUE(call_id) constraint
	// remains the backstop for the race between two concurrent inserts.
	return utils.WithTx(ctx, r.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		var exists bool
		if err := tx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM summaries WHERE call_id = $1)`, s.CallID,
		).Scan(&exists); err != nil {
			return err
		}
		if exists {
			return ErrAlreadyExists
		}

		const q = `
INSERT INTO summaries (
  id, call_id, call_outcome, driver_status, current_location, eta,
  emergency_type, emergency_location, escalation_status,
  structured_data, confidence_score, processing_errors, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
`
		_, err := tx.ExecContext(ctx, q,
			s.ID,
			s.CallID,
			s.CallOutcome,
			s.DriverStatus,
			s.CurrentLocation,
			s.ETA,
			s.EmergencyType,
			s.EmergencyLocation,
			s.EscalationStatus,
			data,
			s.ConfidenceScore,
			procErrs,
			s.CreatedAt,
		)
		return err
	})
}

func (r *PostgresRepo) GetByCallID(ctx context.Context, callID string) (Summary, error) {
	const q = `
SELECT id, call_id, call_outcome, driver_status, current_location, eta,
       emergency_type, emergency_location, escalation_status,
       structured_data, confidence_score, processing_errors, created_at
FROM summaries
WHERE call_id = $1
`
	var s Summary
	var data, procErrs []byte
	err := r.db.QueryRowContext(ctx, q, callID).Scan(
		&s.ID,
		&s.CallID,
		&s.CallOutcome,
		&s.DriverStatus,
		&s.CurrentLocation,
		&s.ETA,
		&s.EmergencyType,
		&s.EmergencyLocation,
		&s.EscalationStatus,
		&data,
		&s.ConfidenceScore,
		&procErrs,
		&s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Summary{}, ErrNotFound
		}
		return Summary{}, err
	}
	if err := json.Unmarshal(data, &s.StructuredData); err != nil {
		return Summary{}, fmt.Errorf("summary: decode structured_data: %w", err)
	}
	if err := json.Unmarshal(procErrs, &s.ProcessingErrors); err != nil {
		return Summary{}, fmt.Errorf("summary: decode processing_errors: %w", err)
	}
	return s, nil
}

func orEmptyMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

func orEmptySlice(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
