package repository

import (
	"context"
	"database/sql"

	"github.com/giosicat/inaanak-portal/internal/model"
)

// AdminRepo provides access to the admins table.
type AdminRepo struct{ DB *sql.DB }

func NewAdminRepo(db *sql.DB) *AdminRepo { return &AdminRepo{DB: db} }

const adminCols = "id, name, email, password_hash, created_at, updated_at"

// Create inserts an admin and returns its ID.  Admin registration is
// exposed for initial setup only and should be rate limited at the
// transport boundary.
func (r *AdminRepo) Create(ctx context.Context, name, email, passwordHash string) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO admins (name, email, password_hash) VALUES (?,?,?)",
		name, NormalizeEmail(email), passwordHash)
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

// GetByEmail fetches an admin by normalized email.
func (r *AdminRepo) GetByEmail(ctx context.Context, email string) (model.Admin, error) {
	var a model.Admin
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+adminCols+" FROM admins WHERE email=? LIMIT 1", NormalizeEmail(email)).
		Scan(&a.ID, &a.Name, &a.Email, &a.PasswordHash, &a.CreatedAt, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return model.Admin{}, ErrNotFound
	}
	return a, err
}

// GetByID fetches an admin by id.
func (r *AdminRepo) GetByID(ctx context.Context, id uint64) (model.Admin, error) {
	var a model.Admin
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+adminCols+" FROM admins WHERE id=? LIMIT 1", id).
		Scan(&a.ID, &a.Name, &a.Email, &a.PasswordHash, &a.CreatedAt, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return model.Admin{}, ErrNotFound
	}
	return a, err
}
