package patient

import "context"

type Repository interface {
	Create(ctx context.Context, p *Patient) error
	// GetByID returns the patient unless soft-deleted.
	GetByID(ctx context.Context, id int64) (*Patient, error)
	// GetAnyByID returns the patient including soft-deleted rows. Audit use
	// only.
	GetAnyByID(ctx context.Context, id int64) (*Patient, error)
	ListActive(ctx context.Context) ([]*Patient, error)
	SoftDelete(ctx context.Context, id int64) error
	SetNoteID(ctx context.Context, id int64, noteID string) error
	Touch(ctx context.Context, id int64) error
}

// Vault stores PII encrypted at rest. Implementations encrypt on write and
// decrypt on read; callers only ever see plaintext values.
type Vault interface {
	Create(ctx context.Context, pii *PII) error
	Get(ctx context.Context, patientID int64) (*PII, error)
	Update(ctx context.Context, pii *PII) error
	// FindTIN reports whether any non-deleted patient already carries the
	// plaintext TIN. Linear scan: every ciphertext is decrypted and compared.
	FindTIN(ctx context.Context, tin string) (bool, error)
	// Scrub overwrites names with "DELETED", clears phone, address, and the
	// TIN blind index. Called on soft delete.
	Scrub(ctx context.Context, patientID int64) error
}

type ConsentRepository interface {
	ListDefinitions(ctx context.Context) ([]*ConsentDefinition, error)
	ListByPatient(ctx context.Context, patientID int64) ([]*Consent, error)
	Insert(ctx context.Context, c *Consent) error
	Update(ctx context.Context, c *Consent) error
}
