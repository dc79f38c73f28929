package summary

import "time"

// Summary is the single structured-extraction result for exactly one
// terminal call.
//
// Scenario-conditional fields: dispatch calls populate CallOutcome,
// DriverStatus, CurrentLocation and ETA; emergency calls populate
// CallOutcome, EmergencyType, EmergencyLocation and EscalationStatus.
// Fields for the other scenario stay nil, never fabricated.
//
// ConfidenceScore is in [0.0, 1.0]: high values mean a clean JSON parse,
// low values a parse failure or provider error. ProcessingErrors is empty
// on clean extraction.

type Summary struct {
	ID     string `json:"id" db:"id"`
	CallID string `json:"call_id" db:"call_id"`

	CallOutcome *string `json:"call_outcome,omitempty" db:"call_outcome"`

	// Dispatch scenario.
	DriverStatus    *string `json:"driver_status,omitempty" db:"driver_status"`
	CurrentLocation *string `json:"current_location,omitempty" db:"current_location"`
	ETA             *string `json:"eta,omitempty" db:"eta"`

	// Emergency scenario.
	EmergencyType     *string `json:"emergency_type,omitempty" db:"emergency_type"`
	EmergencyLocation *string `json:"emergency_location,omitempty" db:"emergency_location"`
	EscalationStatus  *string `json:"escalation_status,omitempty" db:"escalation_status"`

	StructuredData   map[string]any `json:"structured_data" db:"structured_data"`
	ConfidenceScore  float64        `json:"confidence_score" db:"confidence_score"`
	ProcessingErrors []string       `json:"processing_errors" db:"processing_errors"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
