// Package assistant implements the conversational flows of the
// aftercare service: a receptionist flow for identification and
// administrative questions, a clinical flow for medical ones, and a
// conversation manager that routes between them per session.
package assistant

import (
	"fmt"
	"strings"

	"github.com/oakhealth/aftercare/internal/log"
	"github.com/oakhealth/aftercare/internal/patient"
	"github.com/oakhealth/aftercare/internal/triage"
)

// InfoKind selects which part of the discharge record to show.
type InfoKind string

const (
	InfoSummary     InfoKind = "summary"
	InfoMedications InfoKind = "medications"
	InfoDiet        InfoKind = "diet"
	InfoFollowUp    InfoKind = "follow_up"
	InfoWarnings    InfoKind = "warnings"
)

// RouteDecision is the receptionist's verdict on one message.
type RouteDecision struct {
	Route         bool // hand off to the clinical flow
	Reason        string
	IsWarningSign bool
}

// Receptionist handles greeting, identification and administrative
// questions that need no model call.
type Receptionist struct {
	patients *patient.Store
	logger   log.Logger
}

// NewReceptionist creates the receptionist flow.
func NewReceptionist(patients *patient.Store, logger log.Logger) *Receptionist {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Receptionist{patients: patients, logger: logger}
}

// Greet opens a new conversation.
func (r *Receptionist) Greet() string {
	return "Hello! I'm your post-discharge care assistant. " +
		"I'm here to help you with your recovery and answer any questions. " +
		"What's your name?"
}

// Identify looks up a discharge record by the name in the message.
// The returned text is shown to the patient either way.
func (r *Receptionist) Identify(name string) (patient.Record, string, bool) {
	rec, err := r.patients.Find(name)
	if err != nil {
		r.logger.Info("patient not identified", "input", name)
		msg := fmt.Sprintf(
			"I couldn't find a discharge record for '%s'. "+
				"Could you please verify your full name? (First and Last name)",
			strings.TrimSpace(name))
		return patient.Record{}, msg, false
	}

	r.logger.Info("patient identified", "patient", rec.Name)
	msg := fmt.Sprintf(
		"Hi %s!\n\n"+
			"I found your discharge report from %s for **%s**.\n\n"+
			"How are you feeling today? Are you following your medication schedule?",
		rec.Name, rec.DischargeDate, rec.PrimaryDiagnosis)
	return rec, msg, true
}

// Decide classifies a message from an identified patient: medical
// concerns, medical questions and record-listed warning signs go to the
// clinical flow, everything else stays with the receptionist.
func (r *Receptionist) Decide(message string, rec patient.Record, identified bool) RouteDecision {
	concern := triage.IsMedicalConcern(message)
	question := triage.IsMedicalQuestion(message)

	warningSign := false
	if identified {
		warningSign = patient.MatchesWarningSigns(rec, message)
	}

	if !concern && !question && !warningSign {
		return RouteDecision{Reason: "general inquiry"}
	}

	reason := "medical question"
	if concern {
		reason = "medical concern"
	}
	if warningSign {
		reason = "potential warning sign"
	}
	return RouteDecision{Route: true, Reason: reason, IsWarningSign: warningSign}
}

// Info renders the requested part of the discharge record.
func Info(rec patient.Record, kind InfoKind) string {
	switch kind {
	case InfoMedications:
		if len(rec.Medications) == 0 {
			return "**Your Medications:**\nNone on record."
		}
		lines := make([]string, len(rec.Medications))
		for i, med := range rec.Medications {
			lines[i] = "• " + med
		}
		return "**Your Medications:**\n" + strings.Join(lines, "\n")
	case InfoDiet:
		return "**Dietary Restrictions:**\n" + rec.DietaryRestrictions
	case InfoFollowUp:
		return "**Follow-up Appointments:**\n" + rec.FollowUp
	case InfoWarnings:
		return "**Warning Signs:**\n" + rec.WarningSigns
	default:
		return patient.Summary(rec)
	}
}

// helpMenu lists what the receptionist can answer directly.
const helpMenu = "I can help you with:\n" +
	"• Your medications and when to take them\n" +
	"• Dietary restrictions and guidelines\n" +
	"• Follow-up appointments\n" +
	"• Warning signs to watch for\n" +
	"• Your discharge summary\n\n" +
	"What would you like to know?"

// HandleGeneral answers a non-medical message from the discharge record.
func (r *Receptionist) HandleGeneral(message string, rec patient.Record, identified bool) string {
	if !identified {
		return "I don't have your information yet. Could you please tell me your name first?"
	}

	lower := strings.ToLower(message)
	switch {
	case containsAnyWord(lower, "medication", "medicine", "pill"):
		return Info(rec, InfoMedications)
	case containsAnyWord(lower, "diet", "food", "eat", "drink"):
		return Info(rec, InfoDiet)
	case containsAnyWord(lower, "appointment", "follow-up", "follow up"):
		return Info(rec, InfoFollowUp)
	case containsAnyWord(lower, "warning", "signs", "symptoms", "watch"):
		return Info(rec, InfoWarnings)
	case containsAnyWord(lower, "discharge", "summary", "report", "information"):
		return Info(rec, InfoSummary)
	default:
		return helpMenu
	}
}

func containsAnyWord(lower string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}
