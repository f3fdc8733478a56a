package patient

import (
	"context"

	"github.com/google/uuid"
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

func connFor(ctx context.Context, pool *pgxpool.Pool) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return pool
}

// =========== Patient Repository ===========

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const patientCols = `id, public_id, is_active, groupoffice_note_id, created_at, updated_at, deleted_at`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.PublicID, &p.IsActive, &p.GroupOfficeNoteID,
		&p.CreatedAt, &p.UpdatedAt, &p.DeletedAt)
	return &p, err
}

func (r *repoPG) Create(ctx context.Context, p *Patient) error {
	p.PublicID = uuid.New()
	p.IsActive = true
	return connFor(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO patient (public_id, is_active)
		VALUES ($1, TRUE)
		RETURNING id, created_at, updated_at`,
		p.PublicID).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

func (r *repoPG) GetByID(ctx context.Context, id int64) (*Patient, error) {
	return scanPatient(connFor(ctx, r.pool).QueryRow(ctx,
		`SELECT `+patientCols+` FROM patient WHERE id = $1 AND deleted_at IS NULL`, id))
}

func (r *repoPG) GetAnyByID(ctx context.Context, id int64) (*Patient, error) {
	return scanPatient(connFor(ctx, r.pool).QueryRow(ctx,
		`SELECT `+patientCols+` FROM patient WHERE id = $1`, id))
}

func (r *repoPG) ListActive(ctx context.Context) ([]*Patient, error) {
	rows, err := connFor(ctx, r.pool).Query(ctx,
		`SELECT `+patientCols+` FROM patient WHERE deleted_at IS NULL ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

func (r *repoPG) SoftDelete(ctx context.Context, id int64) error {
	_, err := connFor(ctx, r.pool).Exec(ctx, `
		UPDATE patient SET deleted_at = NOW(), is_active = FALSE, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`, id)
	return err
}

func (r *repoPG) SetNoteID(ctx context.Context, id int64, noteID string) error {
	_, err := connFor(ctx, r.pool).Exec(ctx, `
		UPDATE patient SET groupoffice_note_id = $2, updated_at = NOW() WHERE id = $1`, id, noteID)
	return err
}

func (r *repoPG) Touch(ctx context.Context, id int64) error {
	_, err := connFor(ctx, r.pool).Exec(ctx, `UPDATE patient SET updated_at = NOW() WHERE id = $1`, id)
	return err
}

// =========== Consent Repository ===========

type consentRepoPG struct{ pool *pgxpool.Pool }

func NewConsentRepoPG(pool *pgxpool.Pool) ConsentRepository {
	return &consentRepoPG{pool: pool}
}

func (r *consentRepoPG) ListDefinitions(ctx context.Context) ([]*ConsentDefinition, error) {
	rows, err := connFor(ctx, r.pool).Query(ctx,
		`SELECT id, code, title, is_mandatory FROM consent_definition ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*ConsentDefinition
	for rows.Next() {
		var d ConsentDefinition
		if err := rows.Scan(&d.ID, &d.Code, &d.Title, &d.IsMandatory); err != nil {
			return nil, err
		}
		items = append(items, &d)
	}
	return items, rows.Err()
}

func (r *consentRepoPG) ListByPatient(ctx context.Context, patientID int64) ([]*Consent, error) {
	rows, err := connFor(ctx, r.pool).Query(ctx, `
		SELECT id, patient_id, consent_definition_id, has_consented, granted_at, revoked_at
		FROM patient_consent WHERE patient_id = $1 ORDER BY consent_definition_id`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Consent
	for rows.Next() {
		var c Consent
		if err := rows.Scan(&c.ID, &c.PatientID, &c.ConsentDefinitionID,
			&c.HasConsented, &c.GrantedAt, &c.RevokedAt); err != nil {
			return nil, err
		}
		items = append(items, &c)
	}
	return items, rows.Err()
}

func (r *consentRepoPG) Insert(ctx context.Context, c *Consent) error {
	return connFor(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO patient_consent (patient_id, consent_definition_id, has_consented, granted_at, revoked_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		c.PatientID, c.ConsentDefinitionID, c.HasConsented, c.GrantedAt, c.RevokedAt).Scan(&c.ID)
}

func (r *consentRepoPG) Update(ctx context.Context, c *Consent) error {
	_, err := connFor(ctx, r.pool).Exec(ctx, `
		UPDATE patient_consent SET has_consented = $2, granted_at = $3, revoked_at = $4
		WHERE id = $1`,
		c.ID, c.HasConsented, c.GrantedAt, c.RevokedAt)
	return err
}
