package llm

import "fmt"

const dispatchExtractionPrompt = `Analyze this driver call transcript and extract the following information in JSON format:
- call_outcome: "In-Transit Update" OR "Arrival Confirmation" OR "No Update"
- driver_status: "Driving" OR "Delayed" OR "Arrived" OR "Unknown"
- current_location: exact location mentioned or "Not provided"
- eta: estimated time of arrival or "Not provided"

Return only valid JSON. If information is unclear, use the fallback values.

Transcript: %s`

const emergencyExtractionPrompt = `Analyze this emergency call transcript and extract the following information in JSON format:
- call_outcome: "Emergency Detected"
- emergency_type: "Accident" OR "Breakdown" OR "Medical" OR "Other"
- emergency_location: exact location mentioned or "Not provided"
- escalation_status: "Escalation Flagged"

Return only valid JSON.

Transcript: %s`

// extractionPrompt selects the scenario prompt; unknown scenarios fall back
// to dispatch.
func extractionPrompt(transcript, scenarioType string) string {
	switch scenarioType {
	case "emergency":
		return fmt.Sprintf(emergencyExtractionPrompt, transcript)
	default:
		return fmt.Sprintf(dispatchExtractionPrompt, transcript)
	}
}

const fallbackPersona = "You are a helpful logistics assistant speaking with a driver on a phone call. Keep responses short, natural, and professional."

// FallbackPersona is the generic assistant prompt used when agent or call
// context cannot be resolved during a live turn.
func FallbackPersona() string { return fallbackPersona }
