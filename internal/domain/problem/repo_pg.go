package problem

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/leo-oli/social-care-omaha/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const problemCols = `id, patient_id, problem_id, modifier_domain_id, modifier_type_id, is_active, created_at, updated_at, deleted_at`

func scanProblem(row pgx.Row) (*PatientProblem, error) {
	var p PatientProblem
	err := row.Scan(&p.ID, &p.PatientID, &p.ProblemID, &p.ModifierDomainID,
		&p.ModifierTypeID, &p.IsActive, &p.CreatedAt, &p.UpdatedAt, &p.DeletedAt)
	if err != nil {
		return nil, err
	}
	p.refreshLifecycle()
	return &p, nil
}

func (r *repoPG) Create(ctx context.Context, p *PatientProblem) error {
	p.IsActive = true
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO patient_problem (patient_id, problem_id, modifier_domain_id, modifier_type_id, is_active)
		VALUES ($1, $2, $3, $4, TRUE)
		RETURNING id, created_at, updated_at`,
		p.PatientID, p.ProblemID, p.ModifierDomainID, p.ModifierTypeID).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return err
	}
	p.refreshLifecycle()
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id int64) (*PatientProblem, error) {
	return scanProblem(r.conn(ctx).QueryRow(ctx,
		`SELECT `+problemCols+` FROM patient_problem WHERE id = $1 AND deleted_at IS NULL`, id))
}

func (r *repoPG) listProblems(ctx context.Context, query string, args ...interface{}) ([]*PatientProblem, error) {
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*PatientProblem
	for rows.Next() {
		p, err := scanProblem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

func (r *repoPG) ListActive(ctx context.Context, patientID int64) ([]*PatientProblem, error) {
	return r.listProblems(ctx, `
		SELECT `+problemCols+` FROM patient_problem
		WHERE patient_id = $1 AND is_active AND deleted_at IS NULL
		ORDER BY id`, patientID)
}

func (r *repoPG) ListHistory(ctx context.Context, patientID int64) ([]*PatientProblem, error) {
	return r.listProblems(ctx, `
		SELECT `+problemCols+` FROM patient_problem
		WHERE patient_id = $1 AND deleted_at IS NULL
		ORDER BY id`, patientID)
}

func (r *repoPG) SetActive(ctx context.Context, id int64, active bool) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE patient_problem SET is_active = $2, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`, id, active)
	return err
}

func (r *repoPG) SoftDelete(ctx context.Context, id int64) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE patient_problem SET deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`, id)
	return err
}

func (r *repoPG) AddSymptom(ctx context.Context, s *ProblemSymptom) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO patient_problem_symptom (patient_problem_id, symptom_id, comment)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`,
		s.PatientProblemID, s.SymptomID, s.Comment).Scan(&s.ID, &s.CreatedAt)
	if isUniqueViolation(err) {
		// A concurrent writer slipped past the service's existence check
		// and owns the pair now. Adding a symptom twice is a no-op, so
		// adopt the surviving row.
		existing, ferr := r.FindSymptom(ctx, s.PatientProblemID, s.SymptomID)
		if ferr != nil {
			return ferr
		}
		*s = *existing
		return nil
	}
	return err
}

func (r *repoPG) FindSymptom(ctx context.Context, problemID, symptomID int64) (*ProblemSymptom, error) {
	var s ProblemSymptom
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT id, patient_problem_id, symptom_id, comment, created_at, deleted_at
		FROM patient_problem_symptom
		WHERE patient_problem_id = $1 AND symptom_id = $2 AND deleted_at IS NULL`,
		problemID, symptomID).
		Scan(&s.ID, &s.PatientProblemID, &s.SymptomID, &s.Comment, &s.CreatedAt, &s.DeletedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *repoPG) ListSymptoms(ctx context.Context, problemID int64) ([]*ProblemSymptom, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, patient_problem_id, symptom_id, comment, created_at, deleted_at
		FROM patient_problem_symptom
		WHERE patient_problem_id = $1 AND deleted_at IS NULL
		ORDER BY id`, problemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*ProblemSymptom
	for rows.Next() {
		var s ProblemSymptom
		if err := rows.Scan(&s.ID, &s.PatientProblemID, &s.SymptomID,
			&s.Comment, &s.CreatedAt, &s.DeletedAt); err != nil {
			return nil, err
		}
		items = append(items, &s)
	}
	return items, rows.Err()
}

func (r *repoPG) InsertScore(ctx context.Context, s *OutcomeScore) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO outcome_score (patient_problem_id, phase_id, knowledge_rating, behavior_rating, status_rating, date_recorded)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`,
		s.PatientProblemID, s.PhaseID, s.KnowledgeRating, s.BehaviorRating,
		s.StatusRating, s.DateRecorded).Scan(&s.ID, &s.CreatedAt)
}

const scoreCols = `id, patient_problem_id, phase_id, knowledge_rating, behavior_rating, status_rating, date_recorded, created_at`

func scanScore(row pgx.Row) (*OutcomeScore, error) {
	var s OutcomeScore
	err := row.Scan(&s.ID, &s.PatientProblemID, &s.PhaseID, &s.KnowledgeRating,
		&s.BehaviorRating, &s.StatusRating, &s.DateRecorded, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *repoPG) ListScores(ctx context.Context, problemID int64) ([]*OutcomeScore, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+scoreCols+` FROM outcome_score
		WHERE patient_problem_id = $1
		ORDER BY date_recorded DESC, id DESC`, problemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*OutcomeScore
	for rows.Next() {
		s, err := scanScore(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

func (r *repoPG) LatestScore(ctx context.Context, problemID int64) (*OutcomeScore, error) {
	return scanScore(r.conn(ctx).QueryRow(ctx, `
		SELECT `+scoreCols+` FROM outcome_score
		WHERE patient_problem_id = $1
		ORDER BY date_recorded DESC, id DESC
		LIMIT 1`, problemID))
}

func (r *repoPG) InsertIntervention(ctx context.Context, iv *CareIntervention) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO care_intervention (patient_problem_id, category_id, target_id, details, date_performed)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		iv.PatientProblemID, iv.CategoryID, iv.TargetID, iv.Details, iv.DatePerformed).
		Scan(&iv.ID, &iv.CreatedAt)
}

func (r *repoPG) ListInterventions(ctx context.Context, problemID int64) ([]*CareIntervention, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, patient_problem_id, category_id, target_id, details, date_performed, created_at
		FROM care_intervention
		WHERE patient_problem_id = $1
		ORDER BY date_performed DESC, id DESC`, problemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*CareIntervention
	for rows.Next() {
		var iv CareIntervention
		if err := rows.Scan(&iv.ID, &iv.PatientProblemID, &iv.CategoryID,
			&iv.TargetID, &iv.Details, &iv.DatePerformed, &iv.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, &iv)
	}
	return items, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
