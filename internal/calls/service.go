package calls

import (
	"context"
	"errors"
	"fmt"
	"time"

	"voiceagent-platform/internal/agents"
	"voiceagent-platform/pkg/logger"

	"github.com/google/uuid"
)

// Service orchestrates call triggering.
//
// The internal call id is carried to the provider as opaque metadata on the
// dial request and read back from every webhook event. Losing that metadata
// anywhere in the round-trip makes an event unprocessable, so it is set here
// and nowhere else.
type Service struct {
	repo    Repository
	agents  *agents.Service
	dialer  Dialer
	limiter SlotLimiter
	clock   func() time.Time
}

func NewService(repo Repository, agentSvc *agents.Service, dialer Dialer, limiter SlotLimiter) *Service {
	return &Service{
		repo:    repo,
		agents:  agentSvc,
		dialer:  dialer,
		limiter: limiter,
		clock:   time.Now,
	}
}

var (
	ErrNotFound        = errors.New("calls: not found")
	ErrInvalidArgument = errors.New("calls: invalid argument")

	// ErrTooManyActiveCalls means the per-agent concurrency cap rejected
	// the dial attempt.
	ErrTooManyActiveCalls = errors.New("calls: too many active calls for agent")
)

// Dialer starts an outbound call at the provider.
// Implementations live in internal/retell; business logic stays provider-agnostic.
type Dialer interface {
	Dial(ctx context.Context, req DialRequest) (DialResult, error)
}

type DialRequest struct {
	ToNumber string
	Agent    agents.Agent

	// Metadata is echoed back verbatim on every webhook event for this call.
	// It MUST carry the internal call id.
	Metadata map[string]string

	// DynamicVariables are substituted into the agent prompt by the provider.
	DynamicVariables map[string]string
}

type DialResult struct {
	RetellCallID string
	FromNumber   string
}

// SlotLimiter caps concurrent outbound calls per agent. Slots are released
// by the lifecycle reconciler when a call reaches a terminal state; a TTL on
// the backing counter guards against leaked slots.
type SlotLimiter interface {
	Acquire(ctx context.Context, agentID string) (bool, error)
	Release(ctx context.Context, agentID string) error
}

type TriggerRequest struct {
	AgentID     string `json:"agent_id"`
	DriverName  string `json:"driver_name"`
	DriverPhone string `json:"driver_phone"`
	LoadNumber  string `json:"load_number"`
}

func (req TriggerRequest) validate() error {
	if req.AgentID == "" {
		return fmt.Errorf("%w: agent_id is required", ErrInvalidArgument)
	}
	if req.DriverName == "" {
		return fmt.Errorf("%w: driver_name is required", ErrInvalidArgument)
	}
	if req.LoadNumber == "" {
		return fmt.Errorf("%w: load_number is required", ErrInvalidArgument)
	}
	return ValidatePhone(req.DriverPhone)
}

// Trigger creates a pending call record and dispatches the outbound call.
//
// Provider failures degrade rather than propagate: the call is marked failed,
// the concurrency slot is released, and the record is returned so the caller
// sees the outcome. Agent lookup failures surface as agents.ErrNotFound.
func (s *Service) Trigger(ctx context.Context, req TriggerRequest) (Call, error) {
	log := logger.From(ctx)

	if err := req.validate(); err != nil {
		return Call{}, err
	}

	agent, err := s.agents.Get(ctx, req.AgentID)
	if err != nil {
		return Call{}, err
	}

	if s.limiter != nil {
		ok, err := s.limiter.Acquire(ctx, agent.ID)
		if err != nil {
			return Call{}, fmt.Errorf("calls: acquire dial slot: %w", err)
		}
		if !ok {
			return Call{}, ErrTooManyActiveCalls
		}
	}

	now := s.clock().UTC()
	c := Call{
		ID:          uuid.NewString(),
		AgentID:     agent.ID,
		DriverName:  req.DriverName,
		DriverPhone: req.DriverPhone,
		LoadNumber:  req.LoadNumber,
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Insert(ctx, c); err != nil {
		s.releaseSlot(ctx, agent.ID)
		return Call{}, err
	}

	res, err := s.dialer.Dial(ctx, DialRequest{
		ToNumber: req.DriverPhone,
		Agent:    agent,
		Metadata: map[string]string{
			"call_id":     c.ID,
			"driver_name": req.DriverName,
			"load_number": req.LoadNumber,
		},
		DynamicVariables: map[string]string{
			"driver_name": req.DriverName,
			"load_number": req.LoadNumber,
		},
	})
	if err != nil {
		log.Warn("outbound dial failed", "call_id", c.ID, "agent_id", agent.ID, "err", err)
		c.Status = StatusFailed
		c.DisconnectionReason = "dial_failed"
		c.UpdatedAt = s.clock().UTC()
		if uerr := s.repo.Update(ctx, c); uerr != nil {
			log.Error("failed to mark call failed", "call_id", c.ID, "err", uerr)
		}
		s.releaseSlot(ctx, agent.ID)
		return c, nil
	}

	log.Info("call dispatched", "call_id", c.ID, "retell_call_id", res.RetellCallID, "from", res.FromNumber)
	return c, nil
}

func (s *Service) releaseSlot(ctx context.Context, agentID string) {
	if s.limiter == nil {
		return
	}
	if err := s.limiter.Release(ctx, agentID); err != nil {
		logger.From(ctx).Warn("dial slot release failed", "agent_id", agentID, "err", err)
	}
}

func (s *Service) Get(ctx context.Context, id string) (Call, error) {
	if id == "" {
		return Call{}, fmt.Errorf("%w: id is required", ErrInvalidArgument)
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, limit int) ([]Call, error) {
	return s.repo.List(ctx, limit)
}
