package problem

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/leo-oli/social-care-omaha/internal/domain/patient"
	"github.com/leo-oli/social-care-omaha/internal/domain/taxonomy"
	"github.com/leo-oli/social-care-omaha/internal/platform/errs"
)

// TxRunner executes fn inside a database transaction carried by the context.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

type Service struct {
	repo     Repository
	patients patient.Repository
	taxonomy *taxonomy.Service
	runTx    TxRunner
	logger   zerolog.Logger
}

func NewService(repo Repository, patients patient.Repository, tax *taxonomy.Service, runTx TxRunner, logger zerolog.Logger) *Service {
	return &Service{repo: repo, patients: patients, taxonomy: tax, runTx: runTx, logger: logger}
}

func (s *Service) requirePatient(ctx context.Context, patientID int64) error {
	_, err := s.patients.GetByID(ctx, patientID)
	if errors.Is(err, pgx.ErrNoRows) {
		return errs.NotFound("patient %d not found", patientID)
	}
	return err
}

// requireProblem loads a non-deleted problem and checks ownership. A problem
// belonging to another patient reads the same as an absent one.
func (s *Service) requireProblem(ctx context.Context, patientID, problemID int64) (*PatientProblem, error) {
	p, err := s.repo.GetByID(ctx, problemID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.NotFound("problem %d not found", problemID)
	}
	if err != nil {
		return nil, err
	}
	if p.PatientID != patientID {
		return nil, errs.NotFound("problem %d not found", problemID)
	}
	return p, nil
}

// Create opens a problem on the patient's record. The taxonomy references
// are resolved up front so nothing is written for a bad request. Symptom
// associations and the optional initial score land in the same transaction.
func (s *Service) Create(ctx context.Context, patientID int64, in *CreateInput) (*PatientProblem, error) {
	if err := s.requirePatient(ctx, patientID); err != nil {
		return nil, err
	}
	if _, err := s.taxonomy.GetProblem(ctx, in.ProblemID); err != nil {
		return nil, err
	}
	if _, err := s.taxonomy.GetModifierDomain(ctx, in.ModifierDomainID); err != nil {
		return nil, err
	}
	if _, err := s.taxonomy.GetModifierType(ctx, in.ModifierTypeID); err != nil {
		return nil, err
	}
	if in.InitialScore != nil {
		if err := s.validateScore(ctx, in.InitialScore); err != nil {
			return nil, err
		}
	}

	p := &PatientProblem{
		PatientID:        patientID,
		ProblemID:        in.ProblemID,
		ModifierDomainID: in.ModifierDomainID,
		ModifierTypeID:   in.ModifierTypeID,
	}
	err := s.runTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, p); err != nil {
			return err
		}
		for _, si := range in.Symptoms {
			if _, err := s.taxonomy.GetSymptom(ctx, si.SymptomID); err != nil {
				return err
			}
			if err := s.repo.AddSymptom(ctx, &ProblemSymptom{
				PatientProblemID: p.ID,
				SymptomID:        si.SymptomID,
				Comment:          si.Comment,
			}); err != nil {
				return err
			}
		}
		if in.InitialScore != nil {
			if err := s.repo.InsertScore(ctx, scoreFromInput(p.ID, in.InitialScore)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("patient_id", patientID).Int64("patient_problem_id", p.ID).
		Int64("problem_id", in.ProblemID).Msg("problem opened")
	return p, nil
}

func (s *Service) Get(ctx context.Context, patientID, problemID int64) (*PatientProblem, error) {
	if err := s.requirePatient(ctx, patientID); err != nil {
		return nil, err
	}
	return s.requireProblem(ctx, patientID, problemID)
}

func (s *Service) ListActive(ctx context.Context, patientID int64) ([]*PatientProblem, error) {
	if err := s.requirePatient(ctx, patientID); err != nil {
		return nil, err
	}
	return s.repo.ListActive(ctx, patientID)
}

func (s *Service) ListHistory(ctx context.Context, patientID int64) ([]*PatientProblem, error) {
	if err := s.requirePatient(ctx, patientID); err != nil {
		return nil, err
	}
	return s.repo.ListHistory(ctx, patientID)
}

// Update toggles the clinical state.
func (s *Service) Update(ctx context.Context, patientID, problemID int64, in *UpdateInput) (*PatientProblem, error) {
	p, err := s.requireProblem(ctx, patientID, problemID)
	if err != nil {
		return nil, err
	}
	if p.IsActive != in.IsActive {
		if err := s.repo.SetActive(ctx, problemID, in.IsActive); err != nil {
			return nil, err
		}
		p.IsActive = in.IsActive
		p.refreshLifecycle()
	}
	return p, nil
}

// Delete soft-deletes the problem. Scores and interventions stay attached
// for the record; the problem just stops appearing anywhere.
func (s *Service) Delete(ctx context.Context, patientID, problemID int64) error {
	if _, err := s.requireProblem(ctx, patientID, problemID); err != nil {
		return err
	}
	return s.repo.SoftDelete(ctx, problemID)
}

// AddSymptom associates a taxonomy symptom with an active problem. Repeating
// an existing association returns the existing row unchanged.
func (s *Service) AddSymptom(ctx context.Context, patientID, problemID int64, in *SymptomInput) (*ProblemSymptom, error) {
	p, err := s.requireProblem(ctx, patientID, problemID)
	if err != nil {
		return nil, err
	}
	if !p.IsActive {
		return nil, errs.Validation("problem %d is inactive", problemID)
	}
	if _, err := s.taxonomy.GetSymptom(ctx, in.SymptomID); err != nil {
		return nil, err
	}

	existing, err := s.repo.FindSymptom(ctx, problemID, in.SymptomID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	row := &ProblemSymptom{PatientProblemID: problemID, SymptomID: in.SymptomID, Comment: in.Comment}
	if err := s.repo.AddSymptom(ctx, row); err != nil {
		return nil, err
	}
	return row, nil
}

func (s *Service) ListSymptoms(ctx context.Context, patientID, problemID int64) ([]*ProblemSymptom, error) {
	if _, err := s.requireProblem(ctx, patientID, problemID); err != nil {
		return nil, err
	}
	return s.repo.ListSymptoms(ctx, problemID)
}

func (s *Service) validateScore(ctx context.Context, in *ScoreInput) error {
	if _, err := s.taxonomy.GetOutcomePhase(ctx, in.PhaseID); err != nil {
		return err
	}
	if _, err := s.taxonomy.ResolveRating(ctx, taxonomy.RatingKnowledge, in.KnowledgeRating); err != nil {
		return err
	}
	if _, err := s.taxonomy.ResolveRating(ctx, taxonomy.RatingBehavior, in.BehaviorRating); err != nil {
		return err
	}
	if _, err := s.taxonomy.ResolveRating(ctx, taxonomy.RatingStatus, in.StatusRating); err != nil {
		return err
	}
	return nil
}

func scoreFromInput(problemID int64, in *ScoreInput) *OutcomeScore {
	recorded := time.Now().UTC()
	if in.DateRecorded != nil {
		recorded = *in.DateRecorded
	}
	return &OutcomeScore{
		PatientProblemID: problemID,
		PhaseID:          in.PhaseID,
		KnowledgeRating:  in.KnowledgeRating,
		BehaviorRating:   in.BehaviorRating,
		StatusRating:     in.StatusRating,
		DateRecorded:     recorded,
	}
}

// RecordScore appends a three-dimension outcome observation.
func (s *Service) RecordScore(ctx context.Context, patientID, problemID int64, in *ScoreInput) (*OutcomeScore, error) {
	if _, err := s.requireProblem(ctx, patientID, problemID); err != nil {
		return nil, err
	}
	if err := s.validateScore(ctx, in); err != nil {
		return nil, err
	}
	score := scoreFromInput(problemID, in)
	if err := s.repo.InsertScore(ctx, score); err != nil {
		return nil, err
	}
	return score, nil
}

func (s *Service) ListScores(ctx context.Context, patientID, problemID int64) ([]*OutcomeScore, error) {
	if _, err := s.requireProblem(ctx, patientID, problemID); err != nil {
		return nil, err
	}
	return s.repo.ListScores(ctx, problemID)
}

func (s *Service) LatestScore(ctx context.Context, patientID, problemID int64) (*OutcomeScore, error) {
	if _, err := s.requireProblem(ctx, patientID, problemID); err != nil {
		return nil, err
	}
	score, err := s.repo.LatestScore(ctx, problemID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.NotFound("problem %d has no recorded outcome", problemID)
	}
	return score, err
}

// RecordIntervention appends a care action to the problem's log.
func (s *Service) RecordIntervention(ctx context.Context, patientID, problemID int64, in *InterventionInput) (*CareIntervention, error) {
	if _, err := s.requireProblem(ctx, patientID, problemID); err != nil {
		return nil, err
	}
	if _, err := s.taxonomy.GetInterventionCategory(ctx, in.CategoryID); err != nil {
		return nil, err
	}
	if _, err := s.taxonomy.GetInterventionTarget(ctx, in.TargetID); err != nil {
		return nil, err
	}

	performed := time.Now().UTC()
	if in.DatePerformed != nil {
		performed = *in.DatePerformed
	}
	iv := &CareIntervention{
		PatientProblemID: problemID,
		CategoryID:       in.CategoryID,
		TargetID:         in.TargetID,
		Details:          in.Details,
		DatePerformed:    performed,
	}
	if err := s.repo.InsertIntervention(ctx, iv); err != nil {
		return nil, err
	}
	return iv, nil
}

func (s *Service) ListInterventions(ctx context.Context, patientID, problemID int64) ([]*CareIntervention, error) {
	if _, err := s.requireProblem(ctx, patientID, problemID); err != nil {
		return nil, err
	}
	return s.repo.ListInterventions(ctx, problemID)
}
