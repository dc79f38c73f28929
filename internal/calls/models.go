package calls

import (
	"fmt"
	"regexp"
	"time"
)

// Call represents one outbound phone-call attempt and its tracked lifecycle.
//
// Identity: ID is the internal id, authoritative for joins with agents and
// summaries. RetellCallID is the provider's key, assigned asynchronously once
// the provider accepts the call; it may be empty until the call_started
// webhook arrives.
//
// Caller-supplied context (DriverName, DriverPhone, LoadNumber) is immutable
// after creation. The remaining fields are populated incrementally by
// lifecycle webhook events.

type Call struct {
	ID      string `json:"id" db:"id"`
	AgentID string `json:"agent_id" db:"agent_id"`

	DriverName  string `json:"driver_name" db:"driver_name"`
	DriverPhone string `json:"driver_phone" db:"driver_phone"`
	LoadNumber  string `json:"load_number" db:"load_number"`

	Status CallStatus `json:"status" db:"status"`

	RetellCallID string `json:"retell_call_id,omitempty" db:"retell_call_id"`
	FromNumber   string `json:"from_number,omitempty" db:"from_number"`
	ToNumber     string `json:"to_number,omitempty" db:"to_number"`

	StartTimestamp      *time.Time `json:"start_timestamp,omitempty" db:"start_timestamp"`
	EndedAt             *time.Time `json:"ended_at,omitempty" db:"ended_at"`
	DisconnectionReason string     `json:"disconnection_reason,omitempty" db:"disconnection_reason"`

	Transcript string `json:"transcript,omitempty" db:"transcript"`

	// Analysis holds provider post-call analysis attached by the
	// call_analyzed event. It never changes Status.
	Analysis map[string]any `json:"analysis,omitempty" db:"analysis"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type CallStatus string

const (
	StatusPending    CallStatus = "pending"
	StatusInProgress CallStatus = "in_progress"
	StatusCompleted  CallStatus = "completed"
	StatusFailed     CallStatus = "failed"
	StatusCancelled  CallStatus = "cancelled"
)

// Terminal reports whether no further lifecycle transition is expected.
func (s CallStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// Rank orders statuses along the lifecycle graph. Transitions must be
// monotonic: an event may never move a call to a lower rank.
func (s CallStatus) Rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusInProgress:
		return 1
	case StatusCompleted, StatusFailed, StatusCancelled:
		return 2
	default:
		return -1
	}
}

// phonePattern matches E.164-like numbers: 10-15 digits with an optional
// leading + and country code.
var phonePattern = regexp.MustCompile(`^\+?1?[0-9]{10,15}$`)

func ValidatePhone(phone string) error {
	if !phonePattern.MatchString(phone) {
		return fmt.Errorf("%w: driver_phone must be 10-15 digits with optional leading +, got %q", ErrInvalidArgument, phone)
	}
	return nil
}
