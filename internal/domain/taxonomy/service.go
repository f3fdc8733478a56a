package taxonomy

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/leo-oli/social-care-omaha/internal/platform/errs"
)

// Service exposes catalog lookups with the error kinds callers expect:
// NotFound for missing taxonomy entities on reference paths, Validation for
// rating ids outside their scale.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) ListDomains(ctx context.Context) ([]*Domain, error) {
	return s.repo.ListDomains(ctx)
}

// ListProblemsByDomain returns the problems of a domain. A domain with no
// problems is indistinguishable from an unknown domain id and reported as
// NotFound.
func (s *Service) ListProblemsByDomain(ctx context.Context, domainID int64) ([]*Problem, error) {
	problems, err := s.repo.ListProblemsByDomain(ctx, domainID)
	if err != nil {
		return nil, err
	}
	if len(problems) == 0 {
		return nil, errs.NotFound("no problems found for domain %d", domainID)
	}
	return problems, nil
}

func (s *Service) ListSymptomsByProblem(ctx context.Context, problemID int64) ([]*Symptom, error) {
	if _, err := s.GetProblem(ctx, problemID); err != nil {
		return nil, err
	}
	return s.repo.ListSymptomsByProblem(ctx, problemID)
}

func (s *Service) ListModifierDomains(ctx context.Context) ([]*ModifierDomain, error) {
	return s.repo.ListModifierDomains(ctx)
}

func (s *Service) ListModifierTypes(ctx context.Context) ([]*ModifierType, error) {
	return s.repo.ListModifierTypes(ctx)
}

func (s *Service) ListInterventionCategories(ctx context.Context) ([]*InterventionCategory, error) {
	return s.repo.ListInterventionCategories(ctx)
}

func (s *Service) ListInterventionTargets(ctx context.Context) ([]*InterventionTarget, error) {
	return s.repo.ListInterventionTargets(ctx)
}

func (s *Service) ListOutcomePhases(ctx context.Context) ([]*OutcomePhase, error) {
	return s.repo.ListOutcomePhases(ctx)
}

func (s *Service) GetProblem(ctx context.Context, id int64) (*Problem, error) {
	p, err := s.repo.GetProblem(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.NotFound("problem %d not found", id)
	}
	return p, err
}

func (s *Service) GetSymptom(ctx context.Context, id int64) (*Symptom, error) {
	sym, err := s.repo.GetSymptom(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.NotFound("symptom %d not found", id)
	}
	return sym, err
}

func (s *Service) GetModifierDomain(ctx context.Context, id int64) (*ModifierDomain, error) {
	m, err := s.repo.GetModifierDomain(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.NotFound("modifier domain %d not found", id)
	}
	return m, err
}

func (s *Service) GetModifierType(ctx context.Context, id int64) (*ModifierType, error) {
	m, err := s.repo.GetModifierType(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.NotFound("modifier type %d not found", id)
	}
	return m, err
}

// GetInterventionCategory reports a missing category as Validation since
// callers reference it from request payloads.
func (s *Service) GetInterventionCategory(ctx context.Context, id int64) (*InterventionCategory, error) {
	c, err := s.repo.GetInterventionCategory(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.Validation("intervention category %d does not exist", id)
	}
	return c, err
}

func (s *Service) GetInterventionTarget(ctx context.Context, id int64) (*InterventionTarget, error) {
	t, err := s.repo.GetInterventionTarget(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.Validation("intervention target %d does not exist", id)
	}
	return t, err
}

func (s *Service) GetOutcomePhase(ctx context.Context, id int64) (*OutcomePhase, error) {
	p, err := s.repo.GetOutcomePhase(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.Validation("outcome phase %d does not exist", id)
	}
	return p, err
}

// ResolveRating validates a rating id against one of the three scales and
// returns its label. Out-of-range and unknown ids are Validation errors.
func (s *Service) ResolveRating(ctx context.Context, dim RatingDimension, rating int) (*RatingLabel, error) {
	if rating < 1 || rating > 5 {
		return nil, errs.Validation("%s rating must be between 1 and 5, got %d", dim, rating)
	}
	l, err := s.repo.GetRatingLabel(ctx, dim, rating)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.Validation("%s rating %d is not in the rating scale", dim, rating)
	}
	return l, err
}
