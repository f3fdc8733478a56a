// Package careplan assembles a patient's care plan into a point-in-time
// snapshot and renders it as a text report, a JSON document, or a Group
// Office note.
package careplan

import (
	"time"

	"github.com/google/uuid"
)

// Identity is the decrypted patient header of a snapshot.
type Identity struct {
	Name        string  `json:"name"`
	DateOfBirth string  `json:"dob"`
	TIN         string  `json:"tin"`
	Phone       *string `json:"phone"`
	Address     *string `json:"address"`
}

// SymptomEntry is one observed symptom with its taxonomy text.
type SymptomEntry struct {
	Description string  `json:"description"`
	Comment     *string `json:"comment"`
}

// RatingIDs carries the raw numeric ratings next to their labels.
type RatingIDs struct {
	Knowledge int `json:"knowledge"`
	Behavior  int `json:"behavior"`
	Status    int `json:"status"`
}

// OutcomeEntry is the latest three-dimension score of one problem.
type OutcomeEntry struct {
	Knowledge    string    `json:"knowledge"`
	Behavior     string    `json:"behavior"`
	Status       string    `json:"status"`
	Phase        string    `json:"phase"`
	Scores       RatingIDs `json:"scores"`
	DateRecorded time.Time `json:"date_recorded"`
}

// InterventionEntry is one logged care action with resolved taxonomy names.
type InterventionEntry struct {
	Date     time.Time `json:"date"`
	Category string    `json:"category"`
	Target   string    `json:"target"`
	Details  *string   `json:"details"`
}

// ProblemEntry is one active problem with everything attached to it.
type ProblemEntry struct {
	ProblemName      string              `json:"problem_name"`
	Type             string              `json:"type"`
	Domain           string              `json:"domain"`
	Symptoms         []SymptomEntry      `json:"symptoms"`
	LatestOutcome    *OutcomeEntry       `json:"latest_outcome"`
	AllInterventions []InterventionEntry `json:"all_interventions"`
}

// Snapshot is a complete, self-contained view of one patient's care plan at
// generation time. The unexported-from-JSON fields address the Group Office
// sync without leaking internals into the document.
type Snapshot struct {
	Patient        Identity       `json:"patient"`
	GeneratedAt    time.Time      `json:"generated_at"`
	ActiveProblems []ProblemEntry `json:"active_problems"`

	PatientID int64     `json:"-"`
	PublicID  uuid.UUID `json:"-"`
	NoteID    *string   `json:"-"`
}
