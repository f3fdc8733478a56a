package careplan

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/leo-oli/social-care-omaha/internal/domain/patient"
	"github.com/leo-oli/social-care-omaha/internal/domain/problem"
	"github.com/leo-oli/social-care-omaha/internal/domain/taxonomy"
	"github.com/leo-oli/social-care-omaha/internal/platform/errs"
)

// TxRunner executes fn inside a database transaction carried by the context.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

// Composer reads one patient's full record and builds a Snapshot. All reads
// run inside a single transaction so the snapshot is internally consistent.
type Composer struct {
	patients patient.Repository
	vault    patient.Vault
	problems problem.Repository
	taxonomy *taxonomy.Service
	runTx    TxRunner
	logger   zerolog.Logger
}

func NewComposer(patients patient.Repository, vault patient.Vault, problems problem.Repository, tax *taxonomy.Service, runTx TxRunner, logger zerolog.Logger) *Composer {
	return &Composer{patients: patients, vault: vault, problems: problems, taxonomy: tax, runTx: runTx, logger: logger}
}

func (c *Composer) Compose(ctx context.Context, patientID int64) (*Snapshot, error) {
	var snap *Snapshot
	err := c.runTx(ctx, func(ctx context.Context) error {
		var err error
		snap, err = c.compose(ctx, patientID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

func (c *Composer) compose(ctx context.Context, patientID int64) (*Snapshot, error) {
	p, err := c.patients.GetByID(ctx, patientID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.NotFound("patient %d not found", patientID)
	}
	if err != nil {
		return nil, err
	}
	pii, err := c.vault.Get(ctx, patientID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.NotFound("patient %d has no pii record", patientID)
	}
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		Patient: Identity{
			Name:        pii.FirstName + " " + pii.LastName,
			DateOfBirth: pii.DateOfBirth,
			TIN:         pii.TIN,
			Phone:       pii.PhoneNumber,
			Address:     pii.Address,
		},
		GeneratedAt:    time.Now().UTC(),
		ActiveProblems: []ProblemEntry{},
		PatientID:      p.ID,
		PublicID:       p.PublicID,
		NoteID:         p.GroupOfficeNoteID,
	}

	active, err := c.problems.ListActive(ctx, patientID)
	if err != nil {
		return nil, err
	}
	for _, pp := range active {
		entry, ok, err := c.problemEntry(ctx, pp)
		if err != nil {
			return nil, err
		}
		if !ok {
			// Dangling taxonomy reference. Skip the entry rather than
			// failing the whole summary.
			c.logger.Warn().Int64("patient_problem_id", pp.ID).Msg("skipping problem with missing taxonomy reference")
			continue
		}
		snap.ActiveProblems = append(snap.ActiveProblems, *entry)
	}
	return snap, nil
}

func (c *Composer) problemEntry(ctx context.Context, pp *problem.PatientProblem) (*ProblemEntry, bool, error) {
	details, err := c.taxonomy.GetProblem(ctx, pp.ProblemID)
	if err != nil {
		return nil, false, skipNotFound(err)
	}
	modType, err := c.taxonomy.GetModifierType(ctx, pp.ModifierTypeID)
	if err != nil {
		return nil, false, skipNotFound(err)
	}
	modDomain, err := c.taxonomy.GetModifierDomain(ctx, pp.ModifierDomainID)
	if err != nil {
		return nil, false, skipNotFound(err)
	}

	entry := &ProblemEntry{
		ProblemName:      details.Name,
		Type:             modType.Name,
		Domain:           modDomain.Name,
		Symptoms:         []SymptomEntry{},
		AllInterventions: []InterventionEntry{},
	}

	symptoms, err := c.problems.ListSymptoms(ctx, pp.ID)
	if err != nil {
		return nil, false, err
	}
	for _, s := range symptoms {
		sym, err := c.taxonomy.GetSymptom(ctx, s.SymptomID)
		if errs.IsKind(err, errs.KindNotFound) {
			continue
		}
		if err != nil {
			return nil, false, err
		}
		entry.Symptoms = append(entry.Symptoms, SymptomEntry{Description: sym.Description, Comment: s.Comment})
	}

	latest, err := c.problems.LatestScore(ctx, pp.ID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, err
	}
	if err == nil {
		entry.LatestOutcome = &OutcomeEntry{
			Knowledge: c.ratingLabel(ctx, taxonomy.RatingKnowledge, latest.KnowledgeRating),
			Behavior:  c.ratingLabel(ctx, taxonomy.RatingBehavior, latest.BehaviorRating),
			Status:    c.ratingLabel(ctx, taxonomy.RatingStatus, latest.StatusRating),
			Phase:     c.phaseLabel(ctx, latest.PhaseID),
			Scores: RatingIDs{
				Knowledge: latest.KnowledgeRating,
				Behavior:  latest.BehaviorRating,
				Status:    latest.StatusRating,
			},
			DateRecorded: latest.DateRecorded,
		}
	}

	interventions, err := c.problems.ListInterventions(ctx, pp.ID)
	if err != nil {
		return nil, false, err
	}
	for _, iv := range interventions {
		category, err := c.taxonomy.GetInterventionCategory(ctx, iv.CategoryID)
		if errs.IsKind(err, errs.KindValidation) {
			continue
		}
		if err != nil {
			return nil, false, err
		}
		target, err := c.taxonomy.GetInterventionTarget(ctx, iv.TargetID)
		if errs.IsKind(err, errs.KindValidation) {
			continue
		}
		if err != nil {
			return nil, false, err
		}
		entry.AllInterventions = append(entry.AllInterventions, InterventionEntry{
			Date:     iv.DatePerformed,
			Category: category.Name,
			Target:   target.Name,
			Details:  iv.Details,
		})
	}

	return entry, true, nil
}

// skipNotFound turns a missing taxonomy reference into a skip signal and
// passes every other error through.
func skipNotFound(err error) error {
	if errs.IsKind(err, errs.KindNotFound) {
		return nil
	}
	return err
}

func (c *Composer) ratingLabel(ctx context.Context, dim taxonomy.RatingDimension, rating int) string {
	l, err := c.taxonomy.ResolveRating(ctx, dim, rating)
	if err != nil {
		return ""
	}
	return l.Label
}

func (c *Composer) phaseLabel(ctx context.Context, phaseID int64) string {
	p, err := c.taxonomy.GetOutcomePhase(ctx, phaseID)
	if err != nil {
		return ""
	}
	return p.Name
}
