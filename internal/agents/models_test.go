package agents

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateSystemPrompt(t *testing.T) {
	ok := "Hello {driver_name}, calling about load {load_number}."
	if err := ValidateSystemPrompt(ok); err != nil {
		t.Fatalf("expected valid prompt, got %v", err)
	}

	cases := []string{
		"Hello {driver_name}, how are you?",
		"Status update for load {load_number} please.",
		"No placeholders at all.",
		"",
	}
	for _, prompt := range cases {
		err := ValidateSystemPrompt(prompt)
		if err == nil {
			t.Fatalf("expected error for %q", prompt)
		}
		if !errors.Is(err, ErrInvalidArgument) {
			t.Fatalf("expected ErrInvalidArgument, got %v", err)
		}
	}
}

func TestValidateSystemPrompt_NamesMissingPlaceholders(t *testing.T) {
	err := ValidateSystemPrompt("Hi {driver_name}")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), PlaceholderLoadNumber) {
		t.Fatalf("expected missing placeholder named, got %v", err)
	}
}

func TestValidateVoiceSettings(t *testing.T) {
	ok := map[string]any{
		"voice":                    "female",
		"speed":                    1.0,
		"interruption_sensitivity": 0.5,
		"backchanneling":           true,
	}
	if err := ValidateVoiceSettings(ok); err != nil {
		t.Fatalf("expected valid settings, got %v", err)
	}
	if err := ValidateVoiceSettings(nil); err != nil {
		t.Fatalf("expected nil settings valid, got %v", err)
	}

	bad := map[string]any{"voice": "male", "pitch": 2}
	err := ValidateVoiceSettings(bad)
	if err == nil {
		t.Fatalf("expected error for unknown key")
	}
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	if !strings.Contains(err.Error(), "pitch") {
		t.Fatalf("expected unknown key named, got %v", err)
	}
}
