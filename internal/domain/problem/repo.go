package problem

import "context"

type Repository interface {
	Create(ctx context.Context, p *PatientProblem) error
	// GetByID returns the problem unless soft-deleted.
	GetByID(ctx context.Context, id int64) (*PatientProblem, error)
	ListActive(ctx context.Context, patientID int64) ([]*PatientProblem, error)
	// ListHistory returns every non-deleted problem, active or not.
	ListHistory(ctx context.Context, patientID int64) ([]*PatientProblem, error)
	SetActive(ctx context.Context, id int64, active bool) error
	SoftDelete(ctx context.Context, id int64) error

	AddSymptom(ctx context.Context, s *ProblemSymptom) error
	// FindSymptom returns the non-deleted association row for the pair, or
	// pgx.ErrNoRows.
	FindSymptom(ctx context.Context, problemID, symptomID int64) (*ProblemSymptom, error)
	ListSymptoms(ctx context.Context, problemID int64) ([]*ProblemSymptom, error)

	InsertScore(ctx context.Context, s *OutcomeScore) error
	ListScores(ctx context.Context, problemID int64) ([]*OutcomeScore, error)
	// LatestScore picks the max date_recorded, ties broken by higher id.
	LatestScore(ctx context.Context, problemID int64) (*OutcomeScore, error)

	InsertIntervention(ctx context.Context, iv *CareIntervention) error
	// ListInterventions returns interventions newest first.
	ListInterventions(ctx context.Context, problemID int64) ([]*CareIntervention, error)
}
