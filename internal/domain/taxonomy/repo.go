package taxonomy

import "context"

type Repository interface {
	ListDomains(ctx context.Context) ([]*Domain, error)
	ListProblemsByDomain(ctx context.Context, domainID int64) ([]*Problem, error)
	ListSymptomsByProblem(ctx context.Context, problemID int64) ([]*Symptom, error)
	ListModifierDomains(ctx context.Context) ([]*ModifierDomain, error)
	ListModifierTypes(ctx context.Context) ([]*ModifierType, error)
	ListInterventionCategories(ctx context.Context) ([]*InterventionCategory, error)
	ListInterventionTargets(ctx context.Context) ([]*InterventionTarget, error)
	ListOutcomePhases(ctx context.Context) ([]*OutcomePhase, error)

	GetProblem(ctx context.Context, id int64) (*Problem, error)
	GetSymptom(ctx context.Context, id int64) (*Symptom, error)
	GetModifierDomain(ctx context.Context, id int64) (*ModifierDomain, error)
	GetModifierType(ctx context.Context, id int64) (*ModifierType, error)
	GetInterventionCategory(ctx context.Context, id int64) (*InterventionCategory, error)
	GetInterventionTarget(ctx context.Context, id int64) (*InterventionTarget, error)
	GetOutcomePhase(ctx context.Context, id int64) (*OutcomePhase, error)
	GetRatingLabel(ctx context.Context, dim RatingDimension, rating int) (*RatingLabel, error)
}
