package taxonomy

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// Seed loads the Omaha catalog. It is idempotent: a database that already
// has domains is left untouched.
func Seed(ctx context.Context, pool *pgxpool.Pool, logger zerolog.Logger) error {
	var count int
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM omaha_domain`).Scan(&count); err != nil {
		return fmt.Errorf("check existing catalog: %w", err)
	}
	if count > 0 {
		logger.Info().Msg("taxonomy catalog already seeded")
		return nil
	}

	logger.Info().Msg("seeding taxonomy catalog")

	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin seed transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	domains := map[int64]string{
		1: "Environmental",
		2: "Psychosocial",
		3: "Physiological",
		4: "Health-related Behaviors",
	}
	for id := int64(1); id <= 4; id++ {
		if _, err := tx.Exec(ctx, `INSERT INTO omaha_domain (id, name) VALUES ($1, $2)`, id, domains[id]); err != nil {
			return fmt.Errorf("seed domain %q: %w", domains[id], err)
		}
	}

	problems := []struct {
		id       int64
		domainID int64
		name     string
	}{
		{1, 1, "Income"},
		{2, 1, "Sanitation"},
		{3, 2, "Social contact"},
		{4, 3, "Pain"},
		{5, 3, "Respiration"},
		{6, 4, "Nutrition"},
		{7, 4, "Sleep and rest patterns"},
	}
	for _, p := range problems {
		if _, err := tx.Exec(ctx, `INSERT INTO omaha_problem (id, domain_id, name) VALUES ($1, $2, $3)`, p.id, p.domainID, p.name); err != nil {
			return fmt.Errorf("seed problem %q: %w", p.name, err)
		}
	}

	// Domains and problems carry the canonical Omaha numbering, so their ids
	// are inserted explicitly. That bypasses the serial sequences; advance
	// them so a later catalog insert does not collide with a seeded id.
	for _, table := range []string{"omaha_domain", "omaha_problem"} {
		stmt := fmt.Sprintf(`SELECT setval(pg_get_serial_sequence('%s', 'id'), (SELECT MAX(id) FROM %s))`, table, table)
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("advance %s id sequence: %w", table, err)
		}
	}

	symptoms := []struct {
		problemID   int64
		description string
	}{
		{4, "Reports sharp, localized pain"},
		{4, "Grimaces or guards a body part"},
		{4, "Cries or moans"},
		{4, "Reports pain"},
		{6, "Underweight/overweight"},
		{6, "Reports poor appetite"},
	}
	for _, s := range symptoms {
		if _, err := tx.Exec(ctx, `INSERT INTO symptom (problem_id, description) VALUES ($1, $2)`, s.problemID, s.description); err != nil {
			return fmt.Errorf("seed symptom %q: %w", s.description, err)
		}
	}

	modifierDomains := []string{"Individual", "Family", "Community"}
	for _, name := range modifierDomains {
		if _, err := tx.Exec(ctx, `INSERT INTO modifier_domain (name) VALUES ($1)`, name); err != nil {
			return fmt.Errorf("seed modifier domain %q: %w", name, err)
		}
	}

	modifierTypes := []string{"Actual", "Potential", "Health Promotion"}
	for _, name := range modifierTypes {
		if _, err := tx.Exec(ctx, `INSERT INTO modifier_type (name) VALUES ($1)`, name); err != nil {
			return fmt.Errorf("seed modifier type %q: %w", name, err)
		}
	}

	categories := []string{
		"Teaching, Guidance, and Counseling",
		"Treatments and Procedures",
		"Case Management",
		"Surveillance",
	}
	for _, name := range categories {
		if _, err := tx.Exec(ctx, `INSERT INTO intervention_category (name) VALUES ($1)`, name); err != nil {
			return fmt.Errorf("seed intervention category %q: %w", name, err)
		}
	}

	targets := []string{
		"Medication administration",
		"Wound care",
		"Behavioral therapy",
		"Family counseling",
		"Dietary guidance",
	}
	for _, name := range targets {
		if _, err := tx.Exec(ctx, `INSERT INTO intervention_target (name) VALUES ($1)`, name); err != nil {
			return fmt.Errorf("seed intervention target %q: %w", name, err)
		}
	}

	phases := []string{"Admission", "Interim", "Discharge"}
	for _, name := range phases {
		if _, err := tx.Exec(ctx, `INSERT INTO outcome_phase (name) VALUES ($1)`, name); err != nil {
			return fmt.Errorf("seed outcome phase %q: %w", name, err)
		}
	}

	ratings := map[RatingDimension][5]string{
		RatingKnowledge: {
			"No knowledge",
			"Minimal knowledge",
			"Basic knowledge",
			"Adequate knowledge",
			"Superior knowledge",
		},
		RatingBehavior: {
			"Not appropriate behavior",
			"Rarely appropriate behavior",
			"Inconsistently appropriate behavior",
			"Usually appropriate behavior",
			"Consistently appropriate behavior",
		},
		RatingStatus: {
			"Extreme signs/symptoms",
			"Severe signs/symptoms",
			"Moderate signs/symptoms",
			"Minimal signs/symptoms",
			"No signs/symptoms",
		},
	}
	for dim, labels := range ratings {
		for i, label := range labels {
			if _, err := tx.Exec(ctx, `INSERT INTO outcome_rating (dimension, rating, label) VALUES ($1, $2, $3)`,
				string(dim), i+1, label); err != nil {
				return fmt.Errorf("seed %s rating %d: %w", dim, i+1, err)
			}
		}
	}

	if _, err := tx.Exec(ctx, `INSERT INTO consent_definition (code, title, is_mandatory) VALUES
		('data_processing', 'Processing of personal and health data', TRUE),
		('data_sharing', 'Sharing of care data with partner organizations', FALSE),
		('research', 'Use of anonymized data for research', FALSE)`); err != nil {
		return fmt.Errorf("seed consent definitions: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit seed transaction: %w", err)
	}

	logger.Info().Msg("taxonomy catalog seeded")
	return nil
}
