package taxonomy

import (
	"context"

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

// idNames reads all (id, name) pairs of one of the flat catalog tables.
func (r *repoPG) idNames(ctx context.Context, table string) ([]int64, []string, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT id, name FROM `+table+` ORDER BY id`)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()
	var ids []int64
	var names []string
	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, nil, err
		}
		ids = append(ids, id)
		names = append(names, name)
	}
	return ids, names, rows.Err()
}

func (r *repoPG) ListDomains(ctx context.Context) ([]*Domain, error) {
	ids, names, err := r.idNames(ctx, "omaha_domain")
	if err != nil {
		return nil, err
	}
	items := make([]*Domain, len(ids))
	for i := range ids {
		items[i] = &Domain{ID: ids[i], Name: names[i]}
	}
	return items, nil
}

func (r *repoPG) ListProblemsByDomain(ctx context.Context, domainID int64) ([]*Problem, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT id, domain_id, name FROM omaha_problem WHERE domain_id = $1 ORDER BY id`, domainID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Problem
	for rows.Next() {
		var p Problem
		if err := rows.Scan(&p.ID, &p.DomainID, &p.Name); err != nil {
			return nil, err
		}
		items = append(items, &p)
	}
	return items, rows.Err()
}

func (r *repoPG) ListSymptomsByProblem(ctx context.Context, problemID int64) ([]*Symptom, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT id, problem_id, description FROM symptom WHERE problem_id = $1 ORDER BY id`, problemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Symptom
	for rows.Next() {
		var s Symptom
		if err := rows.Scan(&s.ID, &s.ProblemID, &s.Description); err != nil {
			return nil, err
		}
		items = append(items, &s)
	}
	return items, rows.Err()
}

func (r *repoPG) ListModifierDomains(ctx context.Context) ([]*ModifierDomain, error) {
	ids, names, err := r.idNames(ctx, "modifier_domain")
	if err != nil {
		return nil, err
	}
	items := make([]*ModifierDomain, len(ids))
	for i := range ids {
		items[i] = &ModifierDomain{ID: ids[i], Name: names[i]}
	}
	return items, nil
}

func (r *repoPG) ListModifierTypes(ctx context.Context) ([]*ModifierType, error) {
	ids, names, err := r.idNames(ctx, "modifier_type")
	if err != nil {
		return nil, err
	}
	items := make([]*ModifierType, len(ids))
	for i := range ids {
		items[i] = &ModifierType{ID: ids[i], Name: names[i]}
	}
	return items, nil
}

func (r *repoPG) ListInterventionCategories(ctx context.Context) ([]*InterventionCategory, error) {
	ids, names, err := r.idNames(ctx, "intervention_category")
	if err != nil {
		return nil, err
	}
	items := make([]*InterventionCategory, len(ids))
	for i := range ids {
		items[i] = &InterventionCategory{ID: ids[i], Name: names[i]}
	}
	return items, nil
}

func (r *repoPG) ListInterventionTargets(ctx context.Context) ([]*InterventionTarget, error) {
	ids, names, err := r.idNames(ctx, "intervention_target")
	if err != nil {
		return nil, err
	}
	items := make([]*InterventionTarget, len(ids))
	for i := range ids {
		items[i] = &InterventionTarget{ID: ids[i], Name: names[i]}
	}
	return items, nil
}

func (r *repoPG) ListOutcomePhases(ctx context.Context) ([]*OutcomePhase, error) {
	ids, names, err := r.idNames(ctx, "outcome_phase")
	if err != nil {
		return nil, err
	}
	items := make([]*OutcomePhase, len(ids))
	for i := range ids {
		items[i] = &OutcomePhase{ID: ids[i], Name: names[i]}
	}
	return items, nil
}

func (r *repoPG) GetProblem(ctx context.Context, id int64) (*Problem, error) {
	var p Problem
	err := r.conn(ctx).QueryRow(ctx, `SELECT id, domain_id, name FROM omaha_problem WHERE id = $1`, id).
		Scan(&p.ID, &p.DomainID, &p.Name)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repoPG) GetSymptom(ctx context.Context, id int64) (*Symptom, error) {
	var s Symptom
	err := r.conn(ctx).QueryRow(ctx, `SELECT id, problem_id, description FROM symptom WHERE id = $1`, id).
		Scan(&s.ID, &s.ProblemID, &s.Description)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *repoPG) GetModifierDomain(ctx context.Context, id int64) (*ModifierDomain, error) {
	var m ModifierDomain
	err := r.conn(ctx).QueryRow(ctx, `SELECT id, name FROM modifier_domain WHERE id = $1`, id).
		Scan(&m.ID, &m.Name)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *repoPG) GetModifierType(ctx context.Context, id int64) (*ModifierType, error) {
	var m ModifierType
	err := r.conn(ctx).QueryRow(ctx, `SELECT id, name FROM modifier_type WHERE id = $1`, id).
		Scan(&m.ID, &m.Name)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *repoPG) GetInterventionCategory(ctx context.Context, id int64) (*InterventionCategory, error) {
	var c InterventionCategory
	err := r.conn(ctx).QueryRow(ctx, `SELECT id, name FROM intervention_category WHERE id = $1`, id).
		Scan(&c.ID, &c.Name)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *repoPG) GetInterventionTarget(ctx context.Context, id int64) (*InterventionTarget, error) {
	var t InterventionTarget
	err := r.conn(ctx).QueryRow(ctx, `SELECT id, name FROM intervention_target WHERE id = $1`, id).
		Scan(&t.ID, &t.Name)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *repoPG) GetOutcomePhase(ctx context.Context, id int64) (*OutcomePhase, error) {
	var p OutcomePhase
	err := r.conn(ctx).QueryRow(ctx, `SELECT id, name FROM outcome_phase WHERE id = $1`, id).
		Scan(&p.ID, &p.Name)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repoPG) GetRatingLabel(ctx context.Context, dim RatingDimension, rating int) (*RatingLabel, error) {
	var l RatingLabel
	err := r.conn(ctx).QueryRow(ctx, `SELECT dimension, rating, label FROM outcome_rating WHERE dimension = $1 AND rating = $2`, string(dim), rating).
		Scan(&l.Dimension, &l.Rating, &l.Label)
	if err != nil {
		return nil, err
	}
	return &l, nil
}
