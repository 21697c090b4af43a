package assistant

import (
	"context"
	"fmt"
	"strings"

	"github.com/oakhealth/aftercare/internal/log"
	"github.com/oakhealth/aftercare/internal/patient"
	"github.com/oakhealth/aftercare/internal/retrieval"
	"github.com/oakhealth/aftercare/internal/triage"
)

// Answerer produces cited answers for clinical queries.
// *retrieval.Orchestrator satisfies this.
type Answerer interface {
	AnswerQuery(ctx context.Context, query string) (*retrieval.Answer, error)
}

// ClinicalResponse is the clinical flow's result for one query.
type ClinicalResponse struct {
	Answer         string
	Citations      []retrieval.Snippet
	UsedWebSearch  bool
	Urgency        triage.Urgency
	Recommendation string
}

// Clinical handles medical queries through the answering pipeline,
// wrapping results with urgency assessment and patient-safety framing.
type Clinical struct {
	answerer Answerer
	logger   log.Logger
}

// NewClinical creates the clinical flow.
func NewClinical(answerer Answerer, logger log.Logger) *Clinical {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Clinical{answerer: answerer, logger: logger}
}

// HandleQuery answers a medical query. When a discharge record is
// available the query is enriched with diagnosis and medications before
// retrieval. Retrieval failures propagate; the urgency assessment and
// recommendation never depend on the model call.
func (c *Clinical) HandleQuery(
	ctx context.Context,
	query string,
	rec patient.Record,
	hasRecord bool,
	isWarningSign bool,
) (*ClinicalResponse, error) {
	enhanced := query
	if hasRecord {
		enhanced = enhanceQuery(query, rec)
	}

	answer, err := c.answerer.AnswerQuery(ctx, enhanced)
	if err != nil {
		return nil, fmt.Errorf("clinical query: %w", err)
	}

	urgency := triage.AssessUrgency(query, isWarningSign)
	recommendation := triage.Recommendation(urgency, rec.FollowUp)

	c.logger.Info("clinical query answered",
		"urgency", urgency,
		"warning_sign", isWarningSign,
		"web_search", answer.UsedWebSearch,
		"citations", len(answer.Citations))

	return &ClinicalResponse{
		Answer:         formatClinicalAnswer(answer.Text, urgency, recommendation, isWarningSign),
		Citations:      answer.Citations,
		UsedWebSearch:  answer.UsedWebSearch,
		Urgency:        urgency,
		Recommendation: recommendation,
	}, nil
}

// enhanceQuery prefixes the patient's diagnosis and medications so
// retrieval and generation see the clinical context.
func enhanceQuery(query string, rec patient.Record) string {
	return fmt.Sprintf(
		"Patient Context:\n- Diagnosis: %s\n- Current Medications: %s\n\nPatient Question: %s",
		rec.PrimaryDiagnosis,
		strings.Join(rec.Medications, ", "),
		query)
}

// disclaimer closes every clinical answer.
const disclaimer = "\n\n---\n" +
	"*Disclaimer: This information is for educational purposes only " +
	"and does not replace professional medical advice.*"

// formatClinicalAnswer frames the generated answer with urgency and
// warning-sign notices. Emergency and urgent guidance leads; routine
// guidance trails the answer.
func formatClinicalAnswer(answer string, urgency triage.Urgency, recommendation string, isWarningSign bool) string {
	var b strings.Builder

	if urgency == triage.UrgencyEmergency || urgency == triage.UrgencyUrgent {
		b.WriteString(recommendation)
		b.WriteString("\n\n---\n\n")
	}

	if isWarningSign {
		b.WriteString("**Note**: This symptom is listed in your warning signs. " +
			"Please pay close attention.\n\n")
	}

	b.WriteString("**Clinical Information:**\n\n")
	b.WriteString(answer)
	b.WriteString("\n\n")

	if urgency == triage.UrgencyRoutine {
		b.WriteString("\n")
		b.WriteString(recommendation)
	}

	b.WriteString(disclaimer)
	return b.String()
}
