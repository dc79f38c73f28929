package deadletter

import "time"

// Record is an immutable, append-only trail entry for a webhook event that
// was acknowledged to the provider but failed internal processing.
//
// The webhook endpoint answers 200 on processing failures to stop provider
// redelivery storms; without this trail those failures would exist only as
// log lines. Records are never updated or deleted.
//
// Storage recommendation (Postgres):
//
//	CREATE TABLE webhook_dead_letters (
//	  id             UUID PRIMARY KEY,
//	  event_kind     TEXT NOT NULL,
//	  retell_call_id TEXT,
//	  call_id        TEXT,
//	  reason         TEXT NOT NULL,
//	  payload        TEXT,
//	  created_at     TIMESTAMPTZ NOT NULL
//	);

type Record struct {
	ID string `json:"id" db:"id"`

	// EventKind is the provider's event tag as received.
	EventKind string `json:"event_kind" db:"event_kind"`

	// RetellCallID and CallID are best-effort correlation keys; either may
	// be empty depending on what the failing event carried.
	RetellCallID string `json:"retell_call_id,omitempty" db:"retell_call_id"`
	CallID       string `json:"call_id,omitempty" db:"call_id"`

	// Reason is a short human-readable failure description.
	Reason string `json:"reason" db:"reason"`

	// Payload is the raw webhook body for replay/debugging.
	Payload string `json:"payload,omitempty" db:"payload"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
