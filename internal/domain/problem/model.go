// Package problem holds the clinical record graph: problems tagged onto a
// patient with Omaha modifiers, their symptom associations, the append-only
// outcome score history, and the intervention log.
package problem

import "time"

// Lifecycle values derived from is_active and deleted_at.
const (
	LifecycleActive   = "active"
	LifecycleInactive = "inactive"
	LifecycleDeleted  = "deleted"
)

// PatientProblem maps to the patient_problem table. is_active marks the
// clinical state; deleted_at marks removal from the record. The two are
// independent: an inactive problem still appears in the history.
type PatientProblem struct {
	ID               int64      `db:"id" json:"id"`
	PatientID        int64      `db:"patient_id" json:"patient_id"`
	ProblemID        int64      `db:"problem_id" json:"problem_id"`
	ModifierDomainID int64      `db:"modifier_domain_id" json:"modifier_domain_id"`
	ModifierTypeID   int64      `db:"modifier_type_id" json:"modifier_type_id"`
	IsActive         bool       `db:"is_active" json:"is_active"`
	Lifecycle        string     `db:"-" json:"lifecycle"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt        *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}

func (p *PatientProblem) refreshLifecycle() {
	switch {
	case p.DeletedAt != nil:
		p.Lifecycle = LifecycleDeleted
	case p.IsActive:
		p.Lifecycle = LifecycleActive
	default:
		p.Lifecycle = LifecycleInactive
	}
}

// ProblemSymptom maps to the patient_problem_symptom join table. One row per
// (problem, symptom) pair; the optional comment carries observation notes.
type ProblemSymptom struct {
	ID               int64      `db:"id" json:"id"`
	PatientProblemID int64      `db:"patient_problem_id" json:"patient_problem_id"`
	SymptomID        int64      `db:"symptom_id" json:"symptom_id"`
	Comment          *string    `db:"comment" json:"comment,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	DeletedAt        *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}

// OutcomeScore maps to the outcome_score table. Rows are append-only; the
// latest row per problem is the current outcome.
type OutcomeScore struct {
	ID               int64     `db:"id" json:"id"`
	PatientProblemID int64     `db:"patient_problem_id" json:"patient_problem_id"`
	PhaseID          int64     `db:"phase_id" json:"phase_id"`
	KnowledgeRating  int       `db:"knowledge_rating" json:"knowledge_rating"`
	BehaviorRating   int       `db:"behavior_rating" json:"behavior_rating"`
	StatusRating     int       `db:"status_rating" json:"status_rating"`
	DateRecorded     time.Time `db:"date_recorded" json:"date_recorded"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}

// CareIntervention maps to the care_intervention table. Append-only log of
// care actions against one problem.
type CareIntervention struct {
	ID               int64     `db:"id" json:"id"`
	PatientProblemID int64     `db:"patient_problem_id" json:"patient_problem_id"`
	CategoryID       int64     `db:"category_id" json:"category_id"`
	TargetID         int64     `db:"target_id" json:"target_id"`
	Details          *string   `db:"details" json:"details,omitempty"`
	DatePerformed    time.Time `db:"date_performed" json:"date_performed"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}

// SymptomInput associates one taxonomy symptom with a problem.
type SymptomInput struct {
	SymptomID int64   `json:"symptom_id"`
	Comment   *string `json:"comment,omitempty"`
}

// ScoreInput is one three-dimension outcome observation.
type ScoreInput struct {
	PhaseID         int64      `json:"phase_id"`
	KnowledgeRating int        `json:"knowledge_rating"`
	BehaviorRating  int        `json:"behavior_rating"`
	StatusRating    int        `json:"status_rating"`
	DateRecorded    *time.Time `json:"date_recorded,omitempty"`
}

// InterventionInput is one care action to log.
type InterventionInput struct {
	CategoryID    int64      `json:"category_id"`
	TargetID      int64      `json:"target_id"`
	Details       *string    `json:"details,omitempty"`
	DatePerformed *time.Time `json:"date_performed,omitempty"`
}

// CreateInput opens a problem on a patient. Symptoms and InitialScore are
// the initial-assessment shortcut: everything lands in one transaction.
type CreateInput struct {
	ProblemID        int64          `json:"problem_id"`
	ModifierDomainID int64          `json:"modifier_domain_id"`
	ModifierTypeID   int64          `json:"modifier_type_id"`
	Symptoms         []SymptomInput `json:"symptoms,omitempty"`
	InitialScore     *ScoreInput    `json:"initial_score,omitempty"`
}

// UpdateInput toggles the clinical state.
type UpdateInput struct {
	IsActive bool `json:"is_active"`
}
