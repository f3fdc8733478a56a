package patient

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/leo-oli/social-care-omaha/internal/platform/errs"
)

// TxRunner executes fn inside a database transaction carried by the context.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

type Service struct {
	patients Repository
	vault    Vault
	consents ConsentRepository
	runTx    TxRunner
	logger   zerolog.Logger
}

func NewService(patients Repository, vault Vault, consents ConsentRepository, runTx TxRunner, logger zerolog.Logger) *Service {
	return &Service{patients: patients, vault: vault, consents: consents, runTx: runTx, logger: logger}
}

// Create registers a patient: identity validation, mandatory-consent check,
// TIN uniqueness scan, then patient + PII + consent rows in one transaction.
// Any failure rolls back everything.
func (s *Service) Create(ctx context.Context, in *CreateInput) (*Details, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var out *Details
	err := s.runTx(ctx, func(ctx context.Context) error {
		defs, err := s.consents.ListDefinitions(ctx)
		if err != nil {
			return err
		}
		if err := checkCreateConsents(defs, in.Consents); err != nil {
			return err
		}

		exists, err := s.vault.FindTIN(ctx, in.TIN)
		if err != nil {
			return err
		}
		if exists {
			return errs.Conflict("patient with this TIN already exists")
		}

		p := &Patient{}
		if err := s.patients.Create(ctx, p); err != nil {
			return err
		}
		if p.ID == 0 {
			return errs.Internal(nil, "patient row created without an id")
		}

		record := &PII{
			PatientID:   p.ID,
			FirstName:   in.FirstName,
			LastName:    in.LastName,
			DateOfBirth: in.DateOfBirth,
			TIN:         in.TIN,
			PhoneNumber: in.PhoneNumber,
			Address:     in.Address,
		}
		if err := s.vault.Create(ctx, record); err != nil {
			return err
		}

		now := time.Now().UTC()
		var consents []*Consent
		for _, ci := range in.Consents {
			c := newConsent(p.ID, ci, now)
			if err := s.consents.Insert(ctx, c); err != nil {
				return err
			}
			consents = append(consents, c)
		}

		out = &Details{Patient: *p, PII: *record, Consents: consents}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("patient_id", out.ID).Str("public_id", out.PublicID.String()).Msg("patient created")
	return out, nil
}

func newConsent(patientID int64, in ConsentInput, now time.Time) *Consent {
	c := &Consent{
		PatientID:           patientID,
		ConsentDefinitionID: in.ConsentDefinitionID,
		HasConsented:        in.HasConsented,
	}
	if in.HasConsented {
		c.GrantedAt = &now
	} else {
		c.RevokedAt = &now
	}
	return c
}

// checkCreateConsents enforces the creation gate: every provided definition
// id must exist, and every mandatory definition must be present with
// has_consented=true.
func checkCreateConsents(defs []*ConsentDefinition, provided []ConsentInput) error {
	valid := make(map[int64]bool, len(defs))
	for _, d := range defs {
		valid[d.ID] = true
	}
	given := make(map[int64]bool, len(provided))
	for _, c := range provided {
		if !valid[c.ConsentDefinitionID] {
			return errs.Validation("invalid consent definition id: %d", c.ConsentDefinitionID)
		}
		given[c.ConsentDefinitionID] = c.HasConsented
	}
	for _, d := range defs {
		if !d.IsMandatory {
			continue
		}
		if consented, ok := given[d.ID]; !ok || !consented {
			return errs.Validation("mandatory consent %d missing or denied", d.ID)
		}
	}
	return nil
}

// Get returns a non-deleted patient with decrypted identity and consents.
func (s *Service) Get(ctx context.Context, id int64) (*Details, error) {
	p, err := s.patients.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.NotFound("patient %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	record, err := s.vault.Get(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.NotFound("patient %d has no pii record", id)
	}
	if err != nil {
		return nil, err
	}
	consents, err := s.consents.ListByPatient(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Details{Patient: *p, PII: *record, Consents: consents}, nil
}

// AuditGet returns the patient row even when soft-deleted. Identity comes
// back scrubbed for deleted patients; that is the point.
func (s *Service) AuditGet(ctx context.Context, id int64) (*Details, error) {
	p, err := s.patients.GetAnyByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.NotFound("patient %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	record, err := s.vault.Get(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.NotFound("patient %d has no pii record", id)
	}
	if err != nil {
		return nil, err
	}
	consents, err := s.consents.ListByPatient(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Details{Patient: *p, PII: *record, Consents: consents}, nil
}

// List returns all non-deleted patients with decrypted identity. The TIN
// filter compares plaintext after decryption, mirroring the uniqueness scan.
func (s *Service) List(ctx context.Context, tinFilter string) ([]*Details, error) {
	patients, err := s.patients.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]*Details, 0, len(patients))
	for _, p := range patients {
		record, err := s.vault.Get(ctx, p.ID)
		if errors.Is(err, pgx.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if tinFilter != "" && record.TIN != tinFilter {
			continue
		}
		items = append(items, &Details{Patient: *p, PII: *record})
	}
	return items, nil
}

// Update re-encrypts the full identity record and applies consent
// transitions in one transaction.
func (s *Service) Update(ctx context.Context, id int64, in *CreateInput) (*Details, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var out *Details
	err := s.runTx(ctx, func(ctx context.Context) error {
		p, err := s.patients.GetByID(ctx, id)
		if errors.Is(err, pgx.ErrNoRows) {
			return errs.NotFound("patient %d not found", id)
		}
		if err != nil {
			return err
		}

		defs, err := s.consents.ListDefinitions(ctx)
		if err != nil {
			return err
		}
		if err := checkUpdateConsents(defs, in.Consents); err != nil {
			return err
		}

		if _, err := s.vault.Get(ctx, id); errors.Is(err, pgx.ErrNoRows) {
			return errs.NotFound("patient %d has no pii record", id)
		} else if err != nil {
			return err
		}

		record := &PII{
			PatientID:   id,
			FirstName:   in.FirstName,
			LastName:    in.LastName,
			DateOfBirth: in.DateOfBirth,
			TIN:         in.TIN,
			PhoneNumber: in.PhoneNumber,
			Address:     in.Address,
		}
		if err := s.vault.Update(ctx, record); err != nil {
			return err
		}

		if err := s.applyConsentTransitions(ctx, id, in.Consents); err != nil {
			return err
		}
		if err := s.patients.Touch(ctx, id); err != nil {
			return err
		}

		consents, err := s.consents.ListByPatient(ctx, id)
		if err != nil {
			return err
		}
		out = &Details{Patient: *p, PII: *record, Consents: consents}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// checkUpdateConsents rejects unknown definition ids and any attempt to
// revoke a mandatory consent.
func checkUpdateConsents(defs []*ConsentDefinition, provided []ConsentInput) error {
	valid := make(map[int64]*ConsentDefinition, len(defs))
	for _, d := range defs {
		valid[d.ID] = d
	}
	for _, c := range provided {
		d, ok := valid[c.ConsentDefinitionID]
		if !ok {
			return errs.Validation("invalid consent definition id: %d", c.ConsentDefinitionID)
		}
		if d.IsMandatory && !c.HasConsented {
			return errs.Validation("mandatory consent %d cannot be revoked", d.ID)
		}
	}
	return nil
}

// applyConsentTransitions moves each provided (patient, definition) pair
// through the grant/revoke state machine. Pairs not mentioned are untouched.
func (s *Service) applyConsentTransitions(ctx context.Context, patientID int64, provided []ConsentInput) error {
	existing, err := s.consents.ListByPatient(ctx, patientID)
	if err != nil {
		return err
	}
	byDef := make(map[int64]*Consent, len(existing))
	for _, c := range existing {
		byDef[c.ConsentDefinitionID] = c
	}

	now := time.Now().UTC()
	for _, in := range provided {
		current, ok := byDef[in.ConsentDefinitionID]
		if !ok {
			if err := s.consents.Insert(ctx, newConsent(patientID, in, now)); err != nil {
				return err
			}
			continue
		}
		if current.HasConsented == in.HasConsented {
			continue
		}
		current.HasConsented = in.HasConsented
		if in.HasConsented {
			current.GrantedAt = &now
			current.RevokedAt = nil
		} else {
			current.RevokedAt = &now
		}
		if err := s.consents.Update(ctx, current); err != nil {
			return err
		}
	}
	return nil
}

// Delete soft-deletes the patient and scrubs the identity record. The row
// stays in place for the audit path.
func (s *Service) Delete(ctx context.Context, id int64) error {
	err := s.runTx(ctx, func(ctx context.Context) error {
		_, err := s.patients.GetByID(ctx, id)
		if errors.Is(err, pgx.ErrNoRows) {
			return errs.NotFound("patient %d not found", id)
		}
		if err != nil {
			return err
		}
		if err := s.patients.SoftDelete(ctx, id); err != nil {
			return err
		}
		return s.vault.Scrub(ctx, id)
	})
	if err != nil {
		return err
	}
	s.logger.Info().Int64("patient_id", id).Msg("patient soft-deleted")
	return nil
}

// RecordNoteID persists the GroupOffice note id after the first sync so
// later exports update the note instead of creating another.
func (s *Service) RecordNoteID(ctx context.Context, id int64, noteID string) error {
	return s.patients.SetNoteID(ctx, id, noteID)
}
