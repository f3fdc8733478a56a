// Package taxonomy holds the fixed Omaha System reference data: domains,
// problems, candidate symptoms, modifiers, intervention categories and
// targets, outcome phases, and the three 1-5 outcome rating scales.
// The catalog is seeded once and read-only afterwards.
package taxonomy

// Domain maps to the omaha_domain table.
type Domain struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// Problem maps to the omaha_problem table. A problem belongs to a domain.
type Problem struct {
	ID       int64  `db:"id" json:"id"`
	DomainID int64  `db:"domain_id" json:"domain_id"`
	Name     string `db:"name" json:"name"`
}

// Symptom maps to the symptom table. A symptom is a candidate sign
// catalogued under a problem, selectable per problem instance.
type Symptom struct {
	ID          int64  `db:"id" json:"id"`
	ProblemID   int64  `db:"problem_id" json:"problem_id"`
	Description string `db:"description" json:"description"`
}

// ModifierDomain maps to the modifier_domain table (Individual, Family,
// Community).
type ModifierDomain struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// ModifierType maps to the modifier_type table (Actual, Potential,
// Health Promotion).
type ModifierType struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// InterventionCategory maps to the intervention_category table.
type InterventionCategory struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// InterventionTarget maps to the intervention_target table.
type InterventionTarget struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// OutcomePhase maps to the outcome_phase table (Admission, Interim,
// Discharge).
type OutcomePhase struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// RatingDimension selects one of the three outcome rating scales.
type RatingDimension string

const (
	RatingKnowledge RatingDimension = "knowledge"
	RatingBehavior  RatingDimension = "behavior"
	RatingStatus    RatingDimension = "status"
)

// RatingLabel maps to a row of the outcome_rating table: the label for one
// rating value (1-5) in one dimension.
type RatingLabel struct {
	Dimension RatingDimension `db:"dimension" json:"dimension"`
	Rating    int             `db:"rating" json:"rating"`
	Label     string          `db:"label" json:"label"`
}
