package patient

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/leo-oli/social-care-omaha/internal/platform/errs"
	"github.com/leo-oli/social-care-omaha/internal/platform/pii"
)

// vaultPG is the Postgres PII vault. All columns hold ciphertext; the
// tin_index column additionally holds a deterministic keyed digest of the
// TIN so the database can enforce uniqueness over non-deleted patients.
type vaultPG struct {
	pool    *pgxpool.Pool
	enc     pii.FieldEncryptor
	indexer *pii.BlindIndexer
}

func NewVaultPG(pool *pgxpool.Pool, enc pii.FieldEncryptor, indexer *pii.BlindIndexer) Vault {
	return &vaultPG{pool: pool, enc: enc, indexer: indexer}
}

func (v *vaultPG) encryptRow(p *PII) (first, last, dob, tin string, phone, address *string, err error) {
	if first, err = v.enc.Encrypt(p.FirstName); err != nil {
		return
	}
	if last, err = v.enc.Encrypt(p.LastName); err != nil {
		return
	}
	if dob, err = v.enc.Encrypt(p.DateOfBirth); err != nil {
		return
	}
	if tin, err = v.enc.Encrypt(p.TIN); err != nil {
		return
	}
	if p.PhoneNumber != nil {
		var s string
		if s, err = v.enc.Encrypt(*p.PhoneNumber); err != nil {
			return
		}
		phone = &s
	}
	if p.Address != nil {
		var s string
		if s, err = v.enc.Encrypt(*p.Address); err != nil {
			return
		}
		address = &s
	}
	return
}

func (v *vaultPG) Create(ctx context.Context, p *PII) error {
	first, last, dob, tin, phone, address, err := v.encryptRow(p)
	if err != nil {
		return errs.Internal(err, "encrypting pii")
	}

	_, err = connFor(ctx, v.pool).Exec(ctx, `
		INSERT INTO patient_pii (patient_id, first_name, last_name, date_of_birth, tin, tin_index, phone_number, address)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.PatientID, first, last, dob, tin, v.indexer.Index(p.TIN), phone, address)
	if isUniqueViolation(err) {
		return errs.Conflict("patient with this TIN already exists")
	}
	return err
}

func (v *vaultPG) Get(ctx context.Context, patientID int64) (*PII, error) {
	var p PII
	var first, last, dob, tin string
	var phone, address *string
	err := connFor(ctx, v.pool).QueryRow(ctx, `
		SELECT patient_id, first_name, last_name, date_of_birth, tin, phone_number, address
		FROM patient_pii WHERE patient_id = $1`, patientID).
		Scan(&p.PatientID, &first, &last, &dob, &tin, &phone, &address)
	if err != nil {
		return nil, err
	}

	if p.FirstName, err = v.enc.Decrypt(first); err != nil {
		return nil, errs.Internal(err, "decrypting pii for patient %d", patientID)
	}
	if p.LastName, err = v.enc.Decrypt(last); err != nil {
		return nil, errs.Internal(err, "decrypting pii for patient %d", patientID)
	}
	if p.DateOfBirth, err = v.enc.Decrypt(dob); err != nil {
		return nil, errs.Internal(err, "decrypting pii for patient %d", patientID)
	}
	if p.TIN, err = v.enc.Decrypt(tin); err != nil {
		return nil, errs.Internal(err, "decrypting pii for patient %d", patientID)
	}
	if phone != nil {
		s, err := v.enc.Decrypt(*phone)
		if err != nil {
			return nil, errs.Internal(err, "decrypting pii for patient %d", patientID)
		}
		p.PhoneNumber = &s
	}
	if address != nil {
		s, err := v.enc.Decrypt(*address)
		if err != nil {
			return nil, errs.Internal(err, "decrypting pii for patient %d", patientID)
		}
		p.Address = &s
	}
	return &p, nil
}

func (v *vaultPG) Update(ctx context.Context, p *PII) error {
	first, last, dob, tin, phone, address, err := v.encryptRow(p)
	if err != nil {
		return errs.Internal(err, "encrypting pii")
	}

	_, err = connFor(ctx, v.pool).Exec(ctx, `
		UPDATE patient_pii SET first_name = $2, last_name = $3, date_of_birth = $4,
			tin = $5, tin_index = $6, phone_number = $7, address = $8
		WHERE patient_id = $1`,
		p.PatientID, first, last, dob, tin, v.indexer.Index(p.TIN), phone, address)
	if isUniqueViolation(err) {
		return errs.Conflict("patient with this TIN already exists")
	}
	return err
}

// FindTIN decrypts the TIN ciphertext of every non-deleted patient and
// compares plaintext. Ciphertexts are non-deterministic, so there is no
// indexed equality to lean on here. O(n) in patient count and read-then-write
// racy under concurrent creators; the tin_index unique constraint is what
// actually closes that window at commit time.
func (v *vaultPG) FindTIN(ctx context.Context, tin string) (bool, error) {
	rows, err := connFor(ctx, v.pool).Query(ctx, `
		SELECT pii.tin FROM patient_pii pii
		JOIN patient p ON p.id = pii.patient_id
		WHERE p.deleted_at IS NULL`)
	if err != nil {
		return false, err
	}
	defer rows.Close()
	for rows.Next() {
		var ciphertext string
		if err := rows.Scan(&ciphertext); err != nil {
			return false, err
		}
		plaintext, err := v.enc.Decrypt(ciphertext)
		if err != nil {
			return false, errs.Internal(err, "decrypting tin during uniqueness scan")
		}
		if plaintext == tin {
			return true, nil
		}
	}
	return false, rows.Err()
}

func (v *vaultPG) Scrub(ctx context.Context, patientID int64) error {
	deleted, err := v.enc.Encrypt("DELETED")
	if err != nil {
		return errs.Internal(err, "encrypting scrub marker")
	}
	_, err = connFor(ctx, v.pool).Exec(ctx, `
		UPDATE patient_pii SET first_name = $2, last_name = $2,
			phone_number = NULL, address = NULL, tin_index = NULL
		WHERE patient_id = $1`, patientID, deleted)
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
