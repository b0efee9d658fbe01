package repository

import (
	"context"
	"database/sql"
)

// TokenRepo persists bearer token digests (single 'token_hash'
// column).  A token is live exactly while its row exists: logout
// deletes the presented token's row and leaves the principal's other
// sessions untouched.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

// Store inserts a token hash row for a principal.
func (r *TokenRepo) Store(ctx context.Context, tokenHash, principalType string, principalID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO tokens (token_hash, principal_type, principal_id) VALUES (?,?,?)",
		tokenHash, principalType, principalID)
	return err
}

// StoreTx is Store within an existing transaction.
func (r *TokenRepo) StoreTx(ctx context.Context, tx *sql.Tx, tokenHash, principalType string, principalID uint64) error {
	_, err := tx.ExecContext(ctx,
		"INSERT INTO tokens (token_hash, principal_type, principal_id) VALUES (?,?,?)",
		tokenHash, principalType, principalID)
	return err
}

// Exists reports whether a token hash is still live for the given
// principal.  The principal columns are matched as well so a token
// can never be replayed across namespaces even if two JWTs were to
// collide.
func (r *TokenRepo) Exists(ctx context.Context, tokenHash, principalType string, principalID uint64) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx,
		"SELECT 1 FROM tokens WHERE token_hash=? AND principal_type=? AND principal_id=? LIMIT 1",
		tokenHash, principalType, principalID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Delete revokes exactly the presented token.
func (r *TokenRepo) Delete(ctx context.Context, tokenHash string) error {
	_, err := r.DB.ExecContext(ctx,
		"DELETE FROM tokens WHERE token_hash=?", tokenHash)
	return err
}
