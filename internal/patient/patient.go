// Package patient manages discharge records for the aftercare assistant.
//
// Records come from a JSON export of the discharge system. The store is
// read-only after load; record maintenance happens upstream.
package patient

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/oakhealth/aftercare/internal/log"
)

// ErrNotFound is returned when no record matches the requested name.
var ErrNotFound = errors.New("patient not found")

// Record is one patient's discharge data.
type Record struct {
	Name                  string   `json:"patient_name"`
	DischargeDate         string   `json:"discharge_date"`
	PrimaryDiagnosis      string   `json:"primary_diagnosis"`
	Medications           []string `json:"medications"`
	DietaryRestrictions   string   `json:"dietary_restrictions"`
	FollowUp              string   `json:"follow_up"`
	WarningSigns          string   `json:"warning_signs"`
	DischargeInstructions string   `json:"discharge_instructions"`
}

// Store holds loaded patient records. Safe for concurrent reads.
type Store struct {
	records []Record
	logger  log.Logger
}

// NewStore loads records from the JSON file at path. A missing file is
// not an error: the assistant still runs, it just cannot personalize.
// A present but unparseable file is an error, since silently dropping
// every record would mask a broken export.
func NewStore(path string, logger log.Logger) (*Store, error) {
	if logger == nil {
		logger = log.NewNop()
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		logger.Warn("patient data file not found", "path", path)
		return &Store{logger: logger}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading patient data: %w", err)
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parsing patient data %s: %w", path, err)
	}

	logger.Info("loaded patient records", "count", len(records))
	return &Store{records: records, logger: logger}, nil
}

// Find looks up a record by name. Exact (case-insensitive) matches win;
// otherwise a partial match succeeds when the given name appears inside
// a record's name or shares any name part with it.
func (s *Store) Find(name string) (Record, error) {
	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" {
		return Record{}, ErrNotFound
	}

	for _, r := range s.records {
		if strings.ToLower(r.Name) == needle {
			return r, nil
		}
	}

	for _, r := range s.records {
		recordName := strings.ToLower(r.Name)
		if strings.Contains(recordName, needle) {
			return r, nil
		}
		for _, part := range strings.Fields(recordName) {
			if strings.Contains(needle, part) {
				return r, nil
			}
		}
	}

	return Record{}, ErrNotFound
}

// All returns a copy of every record.
func (s *Store) All() []Record {
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}

// Count returns the number of loaded records.
func (s *Store) Count() int {
	return len(s.records)
}

// Summary renders a record as patient-facing markdown.
func Summary(r Record) string {
	return strings.TrimSpace(fmt.Sprintf(`**Patient Information**
Name: %s
Discharge Date: %s
Primary Diagnosis: %s

**Medications:**
%s

**Dietary Restrictions:**
%s

**Follow-up Appointments:**
%s

**Warning Signs to Watch For:**
%s

**Discharge Instructions:**
%s`,
		r.Name,
		r.DischargeDate,
		r.PrimaryDiagnosis,
		formatList(r.Medications),
		orDefault(r.DietaryRestrictions, "None specified"),
		orDefault(r.FollowUp, "None scheduled"),
		orDefault(r.WarningSigns, "None specified"),
		orDefault(r.DischargeInstructions, "None provided"),
	))
}

// warningKeywords are symptoms that always warrant escalation after
// discharge, regardless of the record's own warning list.
var warningKeywords = []string{
	"swelling", "shortness of breath", "chest pain",
	"weight gain", "fever", "bleeding", "pain",
	"difficulty breathing", "dizziness", "confusion",
}

// MatchesWarningSigns reports whether a described symptom matches the
// record's warning signs or the common escalation keywords.
func MatchesWarningSigns(r Record, symptom string) bool {
	symptomLower := strings.ToLower(symptom)

	for _, keyword := range warningKeywords {
		if strings.Contains(symptomLower, keyword) {
			return true
		}
	}

	warningSigns := strings.ToLower(r.WarningSigns)
	return symptomLower != "" && strings.Contains(warningSigns, symptomLower)
}

func formatList(items []string) string {
	if len(items) == 0 {
		return "None"
	}
	lines := make([]string, len(items))
	for i, item := range items {
		lines[i] = "• " + item
	}
	return strings.Join(lines, "\n")
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
