package agents

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// PostgresRepo persists agents in the agents table.
//
// Expected schema:
//
//	CREATE TABLE agents (
//	  id            UUID PRIMARY KEY,
//	  name          TEXT NOT NULL,
//	  system_prompt TEXT NOT NULL,
//	  scenario_type TEXT NOT NULL,
//	  voice_settings JSONB NOT NULL DEFAULT '{}',
//	  is_active     BOOLEAN NOT NULL DEFAULT TRUE,
//	  created_at    TIMESTAMPTZ NOT NULL,
//	  updated_at    TIMESTAMPTZ NOT NULL
//	);

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Insert(ctx context.Context, a Agent) error {
	settings, err := json.Marshal(a.VoiceSettings)
	if err != nil {
		return fmt.Errorf("agents: encode voice_settings: %w", err)
	}
	const q = `
INSERT INTO agents (id, name, system_prompt, scenario_type, voice_settings, is_active, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
`
	_, err = r.db.ExecContext(ctx, q,
		a.ID,
		a.Name,
		a.SystemPrompt,
		a.ScenarioType,
		settings,
		a.IsActive,
		a.CreatedAt,
		a.UpdatedAt,
	)
	return err
}

func (r *PostgresRepo) GetByID(ctx context.Context, id string) (Agent, error) {
	const q = `
SELECT id, name, system_prompt, scenario_type, voice_settings, is_active, created_at, updated_at
FROM agents
WHERE id = $1
`
	return scanAgent(r.db.QueryRowContext(ctx, q, id))
}

func (r *PostgresRepo) List(ctx context.Context, includeInactive bool) ([]Agent, error) {
	q := `
SELECT id, name, system_prompt, scenario_type, voice_settings, is_active, created_at, updated_at
FROM agents
`
	if !includeInactive {
		q += "WHERE is_active = TRUE\n"
	}
	q += "ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Agent
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) Update(ctx context.Context, a Agent) error {
	settings, err := json.Marshal(a.VoiceSettings)
	if err != nil {
		return fmt.Errorf("agents: encode voice_settings: %w", err)
	}
	const q = `
UPDATE agents
SET name = $2, system_prompt = $3, scenario_type = $4, voice_settings = $5, is_active = $6, updated_at = $7
WHERE id = $1
`
	res, err := r.db.ExecContext(ctx, q,
		a.ID,
		a.Name,
		a.SystemPrompt,
		a.ScenarioType,
		settings,
		a.IsActive,
		a.UpdatedAt,
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

func scanAgent(row rowScanner) (Agent, error) {
	var a Agent
	var settings []byte
	err := row.Scan(
		&a.ID,
		&a.Name,
		&a.SystemPrompt,
		&a.ScenarioType,
		&settings,
		&a.IsActive,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Agent{}, ErrNotFound
		}
		return Agent{}, err
	}
	if len(settings) > 0 {
		if err := json.Unmarshal(settings, &a.VoiceSettings); err != nil {
			return Agent{}, fmt.Errorf("agents: decode voice_settings: %w", err)
		}
	}
	return a, nil
}
