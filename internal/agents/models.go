package agents

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Agent is a reusable calling configuration: a prompt template plus voice
// settings for one scenario type.
//
// Invariants:
// - SystemPrompt must contain both placeholder tokens so the live call can
//   substitute driver context into the conversation.
// - VoiceSettings is restricted to a closed key set; unknown keys are a
//   validation error, not a warning.
// - Deletion is always soft (IsActive=false); rows are retained for history.

type Agent struct {
	ID            string         `json:"id" db:"id"`
	Name          string         `json:"name" db:"name"`
	SystemPrompt  string         `json:"system_prompt" db:"system_prompt"`
	ScenarioType  ScenarioType   `json:"scenario_type" db:"scenario_type"`
	VoiceSettings map[string]any `json:"voice_settings" db:"voice_settings"`
	IsActive      bool           `json:"is_active" db:"is_active"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type ScenarioType string

const (
	ScenarioDispatch  ScenarioType = "dispatch"
	ScenarioEmergency ScenarioType = "emergency"
)

func (s ScenarioType) Valid() bool {
	switch s {
	case ScenarioDispatch, ScenarioEmergency:
		return true
	default:
		return false
	}
}

const (
	PlaceholderDriverName = "{driver_name}"
	PlaceholderLoadNumber = "{load_number}"
)

var allowedVoiceKeys = map[string]struct{}{
	"voice":                    {},
	"speed":                    {},
	"interruption_sensitivity": {},
	"backchanneling":           {},
}

// ValidateSystemPrompt checks the placeholder contract on prompt templates.
func ValidateSystemPrompt(prompt string) error {
	var missing []string
	for _, p := range []string{PlaceholderDriverName, PlaceholderLoadNumber} {
		if !strings.Contains(prompt, p) {
			missing = append(missing, p)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: system_prompt must contain placeholders: %s", ErrInvalidArgument, strings.Join(missing, ", "))
	}
	return nil
}

// ValidateVoiceSettings rejects any key outside the closed voice-settings set.
func ValidateVoiceSettings(settings map[string]any) error {
	var unknown []string
	for k := range settings {
		if _, ok := allowedVoiceKeys[k]; !ok {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("%w: unknown voice settings keys: %s", ErrInvalidArgument, strings.Join(unknown, ", "))
	}
	return nil
}
