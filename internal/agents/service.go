package agents

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Service provides agent CRUD with the validation rules enforced before any
// row is written.
//
// Deletion invariant: agents are never removed physically; SoftDelete flips
// is_active so call history keeps resolving its agent references.
type Service struct {
	repo Repository
	// clock is injectable for deterministic tests.
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var (
	ErrNotFound        = errors.New("agents: not found")
	ErrInvalidArgument = errors.New("agents: invalid argument")
)

type CreateRequest struct {
	Name          string         `json:"name"`
	SystemPrompt  string         `json:"system_prompt"`
	ScenarioType  ScenarioType   `json:"scenario_type"`
	VoiceSettings map[string]any `json:"voice_settings"`
}

// UpdateRequest is a partial-field merge: nil means "leave unchanged".
type UpdateRequest struct {
	Name          *string        `json:"name"`
	SystemPrompt  *string        `json:"system_prompt"`
	ScenarioType  *ScenarioType  `json:"scenario_type"`
	VoiceSettings map[string]any `json:"voice_settings"`
	IsActive      *bool          `json:"is_active"`
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (Agent, error) {
	if req.Name == "" {
		return Agent{}, fmt.Errorf("%w: name is required", ErrInvalidArgument)
	}
	if req.ScenarioType == "" {
		req.ScenarioType = ScenarioDispatch
	}
	if !req.ScenarioType.Valid() {
		return Agent{}, fmt.Errorf("%w: scenario_type must be dispatch or emergency, got %q", ErrInvalidArgument, req.ScenarioType)
	}
	if err := ValidateSystemPrompt(req.SystemPrompt); err != nil {
		return Agent{}, err
	}
	if err := ValidateVoiceSettings(req.VoiceSettings); err != nil {
		return Agent{}, err
	}

	now := s.clock().UTC()
	a := Agent{
		ID:            uuid.NewString(),
		Name:          req.Name,
		SystemPrompt:  req.SystemPrompt,
		ScenarioType:  req.ScenarioType,
		VoiceSettings: req.VoiceSettings,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if a.VoiceSettings == nil {
		a.VoiceSettings = map[string]any{}
	}
	if err := s.repo.Insert(ctx, a); err != nil {
		return Agent{}, err
	}
	return a, nil
}

func (s *Service) Get(ctx context.Context, id string) (Agent, error) {
	if id == "" {
		return Agent{}, fmt.Errorf("%w: id is required", ErrInvalidArgument)
	}
	return s.repo.GetByID(ctx, id)
}

// List returns active agents by default; soft-deleted rows only when asked.
func (s *Service) List(ctx context.Context, includeInactive bool) ([]Agent, error) {
	return s.repo.List(ctx, includeInactive)
}

func (s *Service) Update(ctx context.Context, id string, req UpdateRequest) (Agent, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Agent{}, err
	}

	if req.Name != nil {
		if *req.Name == "" {
			return Agent{}, fmt.Errorf("%w: name must not be empty", ErrInvalidArgument)
		}
		a.Name = *req.Name
	}
	if req.SystemPrompt != nil {
		if err := ValidateSystemPrompt(*req.SystemPrompt); err != nil {
			return Agent{}, err
		}
		a.SystemPrompt = *req.SystemPrompt
	}
	if req.ScenarioType != nil {
		if !req.ScenarioType.Valid() {
			return Agent{}, fmt.Errorf("%w: scenario_type must be dispatch or emergency, got %q", ErrInvalidArgument, *req.ScenarioType)
		}
		a.ScenarioType = *req.ScenarioType
	}
	if req.VoiceSettings != nil {
		if err := ValidateVoiceSettings(req.VoiceSettings); err != nil {
			return Agent{}, err
		}
		a.VoiceSettings = req.VoiceSettings
	}
	if req.IsActive != nil {
		a.IsActive = *req.IsActive
	}

	a.UpdatedAt = s.clock().UTC()
	if err := s.repo.Update(ctx, a); err != nil {
		return Agent{}, err
	}
	return a, nil
}

// SoftDelete marks the agent inactive. The row stays readable by id.
func (s *Service) SoftDelete(ctx context.Context, id string) (Agent, error) {
	inactive := false
	return s.Update(ctx, id, UpdateRequest{IsActive: &inactive})
}
