package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/giosicat/inaanak-portal/internal/model"
)

// GuardianRepo provides access to the guardians table.
type GuardianRepo struct{ DB *sql.DB }

func NewGuardianRepo(db *sql.DB) *GuardianRepo { return &GuardianRepo{DB: db} }

const guardianCols = "id, name, email, password_hash, contact_number, address, created_at, updated_at"

func scanGuardian(row *sql.Row) (model.Guardian, error) {
	var g model.Guardian
	var hash sql.NullString
	err := row.Scan(&g.ID, &g.Name, &g.Email, &hash, &g.ContactNumber, &g.Address, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return model.Guardian{}, err
	}
	if hash.Valid {
		h := hash.String
		g.PasswordHash = &h
	}
	return g, nil
}

// Create inserts a fully registered guardian and returns its ID.
func (r *GuardianRepo) Create(ctx context.Context, name, email, passwordHash, contact, address string) (uint64, error) {
	email = NormalizeEmail(email)
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO guardians (name, email, password_hash, contact_number, address) VALUES (?,?,?,?,?)",
		name, email, passwordHash, contact, address)
	if err != nil {
		if isDuplicate(err) {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a guardian by normalized email.  ErrNotFound is
// returned when no guardian carries the address.
func (r *GuardianRepo) GetByEmail(ctx context.Context, email string) (model.Guardian, error) {
	g, err := scanGuardian(r.DB.QueryRowContext(ctx,
		"SELECT "+guardianCols+" FROM guardians WHERE email=? LIMIT 1", NormalizeEmail(email)))
	if err == sql.ErrNoRows {
		return model.Guardian{}, ErrNotFound
	}
	return g, err
}

// GetByID fetches a guardian by id.
func (r *GuardianRepo) GetByID(ctx context.Context, id uint64) (model.Guardian, error) {
	g, err := scanGuardian(r.DB.QueryRowContext(ctx,
		"SELECT "+guardianCols+" FROM guardians WHERE id=? LIMIT 1", id))
	if err == sql.ErrNoRows {
		return model.Guardian{}, ErrNotFound
	}
	return g, err
}

// FindOrCreateTx resolves a guardian by email inside a transaction,
// creating a placeholder account (NULL password hash) when none
// exists.  The placeholder cannot log in until the guardian completes
// explicit registration.  A concurrent insert of the same email is
// resolved by re-reading after a duplicate-key failure.
func (r *GuardianRepo) FindOrCreateTx(ctx context.Context, tx *sql.Tx, name, email, contact, address string) (uint64, error) {
	email = NormalizeEmail(email)
	var id uint64
	err := tx.QueryRowContext(ctx,
		"SELECT id FROM guardians WHERE email=? LIMIT 1", email).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, err
	}
	res, err := tx.ExecContext(ctx,
		"INSERT INTO guardians (name, email, password_hash, contact_number, address) VALUES (?,?,NULL,?,?)",
		name, email, contact, address)
	if err != nil {
		if isDuplicate(err) {
			if err2 := tx.QueryRowContext(ctx,
				"SELECT id FROM guardians WHERE email=? LIMIT 1", email).Scan(&id); err2 == nil {
				return id, nil
			}
		}
		return 0, err
	}
	lastID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(lastID), nil
}

// SetPassword upgrades a placeholder guardian to a usable account.
func (r *GuardianRepo) SetPassword(ctx context.Context, id uint64, passwordHash string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE guardians SET password_hash=?, updated_at=? WHERE id=?",
		passwordHash, time.Now().UTC(), id)
	return err
}

// NormalizeEmail lower-cases and trims an email address.  Emails are
// compared case-insensitively everywhere, so they are stored
// normalized.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// isDuplicate detects a MySQL duplicate-key violation (error 1062).
func isDuplicate(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "1062")
}
