// Package triage classifies patient messages by urgency and intent.
//
// Classification is deliberately keyword-based rather than model-based:
// the emergency path must never depend on an API call succeeding, and
// the lists are short enough to audit clinically.
package triage

import "strings"

// Urgency is the assessed severity of a patient message.
type Urgency string

const (
	UrgencyEmergency Urgency = "emergency"
	UrgencyUrgent    Urgency = "urgent"
	UrgencyRoutine   Urgency = "routine"
)

// emergencyKeywords trigger the 911 recommendation on any match.
var emergencyKeywords = []string{
	"chest pain", "can't breathe", "severe pain",
	"unconscious", "bleeding heavily", "stroke",
	"heart attack", "seizure", "suicidal",
}

// urgentKeywords trigger same-day provider contact.
var urgentKeywords = []string{
	"high fever", "severe swelling", "sudden weight gain",
	"difficulty breathing", "confusion", "severe headache",
	"blood in", "can't urinate", "extreme pain",
}

// medicalKeywords mark a message as a medical concern for routing.
var medicalKeywords = []string{
	"pain", "swelling", "fever", "bleeding", "dizzy",
	"short of breath", "chest pain", "nausea", "vomiting",
	"headache", "rash", "infection", "weight gain",
	"difficulty breathing", "confused", "weak", "tired",
}

// questionKeywords mark a message as a medical question for routing.
var questionKeywords = []string{
	"what is", "why", "how", "when", "should i",
	"can i", "is it normal", "treatment", "side effect",
	"research", "study", "guideline", "recommend",
}

// AssessUrgency classifies a message. Emergency keywords dominate;
// a known warning sign raises anything non-emergency to urgent.
func AssessUrgency(message string, isWarningSign bool) Urgency {
	lower := strings.ToLower(message)

	for _, kw := range emergencyKeywords {
		if strings.Contains(lower, kw) {
			return UrgencyEmergency
		}
	}

	if isWarningSign {
		return UrgencyUrgent
	}
	for _, kw := range urgentKeywords {
		if strings.Contains(lower, kw) {
			return UrgencyUrgent
		}
	}

	return UrgencyRoutine
}

// Recommendation returns the action guidance for an urgency level.
// followUp is the patient's scheduled follow-up, shown on the urgent path.
func Recommendation(u Urgency, followUp string) string {
	switch u {
	case UrgencyEmergency:
		return "**EMERGENCY**: Please call 911 or go to the nearest emergency room immediately. " +
			"This could be a life-threatening situation."
	case UrgencyUrgent:
		return "**URGENT**: Please contact your healthcare provider today. " +
			"Your follow-up: " + followUp + "\n" +
			"If symptoms worsen, go to the emergency room."
	default:
		return "**Routine**: Continue monitoring your symptoms. " +
			"If they persist or worsen, contact your healthcare provider."
	}
}

// IsMedicalConcern reports whether the message describes a symptom or
// physical complaint.
func IsMedicalConcern(message string) bool {
	return containsAny(message, medicalKeywords)
}

// IsMedicalQuestion reports whether the message asks about treatment,
// medication, or clinical evidence.
func IsMedicalQuestion(message string) bool {
	return containsAny(message, questionKeywords)
}

func containsAny(message string, keywords []string) bool {
	lower := strings.ToLower(message)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
