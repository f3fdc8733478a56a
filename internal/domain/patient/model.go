// Package patient implements the patient lifecycle: identity data held
// encrypted in a PII vault, a consent ledger gating creation, soft deletion
// with PII scrubbing, and the identity-number uniqueness rules.
package patient

import (
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/leo-oli/social-care-omaha/internal/platform/errs"
)

// Patient maps to the patient table. Identity fields live in the PII vault;
// this row carries only lifecycle state and the public opaque identifier.
type Patient struct {
	ID                int64      `db:"id" json:"id"`
	PublicID          uuid.UUID  `db:"public_id" json:"public_id"`
	IsActive          bool       `db:"is_active" json:"is_active"`
	GroupOfficeNoteID *string    `db:"groupoffice_note_id" json:"groupoffice_note_id,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt         *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}

// PII holds the identity fields of one patient. Values are plaintext in
// memory; the vault repository encrypts on write and decrypts on read.
type PII struct {
	PatientID   int64   `db:"patient_id" json:"-"`
	FirstName   string  `db:"first_name" json:"first_name"`
	LastName    string  `db:"last_name" json:"last_name"`
	DateOfBirth string  `db:"date_of_birth" json:"date_of_birth"`
	TIN         string  `db:"tin" json:"tin"`
	PhoneNumber *string `db:"phone_number" json:"phone_number,omitempty"`
	Address     *string `db:"address" json:"address,omitempty"`
}

// ConsentDefinition maps to the consent_definition catalog table.
type ConsentDefinition struct {
	ID          int64  `db:"id" json:"id"`
	Code        string `db:"code" json:"code"`
	Title       string `db:"title" json:"title"`
	IsMandatory bool   `db:"is_mandatory" json:"is_mandatory"`
}

// Consent maps to the patient_consent table: one row per
// (patient, definition). RevokedAt is null exactly while granted.
type Consent struct {
	ID                  int64      `db:"id" json:"id"`
	PatientID           int64      `db:"patient_id" json:"patient_id"`
	ConsentDefinitionID int64      `db:"consent_definition_id" json:"consent_definition_id"`
	HasConsented        bool       `db:"has_consented" json:"has_consented"`
	GrantedAt           *time.Time `db:"granted_at" json:"granted_at,omitempty"`
	RevokedAt           *time.Time `db:"revoked_at" json:"revoked_at,omitempty"`
}

// Details is the caller-facing view: lifecycle row plus decrypted identity.
type Details struct {
	Patient
	PII      PII        `json:"pii"`
	Consents []*Consent `json:"consents,omitempty"`
}

// ConsentInput is one consent decision in a create or update request.
type ConsentInput struct {
	ConsentDefinitionID int64 `json:"consent_definition_id"`
	HasConsented        bool  `json:"has_consented"`
}

// CreateInput carries everything needed to register a patient.
type CreateInput struct {
	FirstName   string         `json:"first_name"`
	LastName    string         `json:"last_name"`
	DateOfBirth string         `json:"date_of_birth"`
	TIN         string         `json:"tin"`
	PhoneNumber *string        `json:"phone_number,omitempty"`
	Address     *string        `json:"address,omitempty"`
	Consents    []ConsentInput `json:"consents"`
}

// tinPattern: 6 to 20 ASCII digits.
var tinPattern = regexp.MustCompile(`^[0-9]{6,20}$`)

// Validate checks the identity fields before anything is written.
func (in *CreateInput) Validate() error {
	if in.FirstName == "" {
		return errs.Validation("first_name is required")
	}
	if in.LastName == "" {
		return errs.Validation("last_name is required")
	}
	if in.DateOfBirth == "" {
		return errs.Validation("date_of_birth is required")
	}
	if _, err := time.Parse("2006-01-02", in.DateOfBirth); err != nil {
		return errs.Validation("date_of_birth must be YYYY-MM-DD")
	}
	if !tinPattern.MatchString(in.TIN) {
		return errs.Validation("tin must be 6 to 20 digits")
	}
	return nil
}
