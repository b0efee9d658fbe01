package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/giosicat/inaanak-portal/internal/model"
)

// NinongRepo provides access to the ninongs table, including the
// email-verification columns.
type NinongRepo struct{ DB *sql.DB }

func NewNinongRepo(db *sql.DB) *NinongRepo { return &NinongRepo{DB: db} }

const ninongCols = `id, name, email, password_hash, email_verified_at,
	verification_code_hash, verification_code_expires_at, created_at, updated_at`

func scanNinong(row *sql.Row) (model.Ninong, error) {
	var n model.Ninong
	var verifiedAt, codeExpiresAt sql.NullTime
	var codeHash sql.NullString
	err := row.Scan(&n.ID, &n.Name, &n.Email, &n.PasswordHash,
		&verifiedAt, &codeHash, &codeExpiresAt, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return model.Ninong{}, err
	}
	if verifiedAt.Valid {
		t := verifiedAt.Time
		n.EmailVerifiedAt = &t
	}
	if codeHash.Valid {
		h := codeHash.String
		n.VerificationCodeHash = &h
	}
	if codeExpiresAt.Valid {
		t := codeExpiresAt.Time
		n.VerificationCodeExpiresAt = &t
	}
	return n, nil
}

// Register creates a ninong together with its pending verification
// code and first session token in a single transaction, so a failure
// at any step leaves no partial account behind.  mintToken receives
// the newly assigned id and returns the hash of the session token to
// record; minting needs the id because it is embedded in the token.
func (r *NinongRepo) Register(ctx context.Context, name, email, passwordHash, codeHash string, codeExpiresAt time.Time, mintToken func(id uint64) (string, error)) (model.Ninong, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return model.Ninong{}, fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO ninongs (name, email, password_hash, verification_code_hash, verification_code_expires_at)
		 VALUES (?,?,?,?,?)`,
		name, NormalizeEmail(email), passwordHash, codeHash, codeExpiresAt)
	if err != nil {
		if isDuplicate(err) {
			return model.Ninong{}, ErrEmailExists
		}
		return model.Ninong{}, err
	}
	lastID, err := res.LastInsertId()
	if err != nil {
		return model.Ninong{}, err
	}
	id := uint64(lastID)

	tokenHash, err := mintToken(id)
	if err != nil {
		return model.Ninong{}, err
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO tokens (token_hash, principal_type, principal_id) VALUES (?,?,?)",
		tokenHash, "ninong", id); err != nil {
		return model.Ninong{}, err
	}

	n, err := scanNinong(tx.QueryRowContext(ctx,
		"SELECT "+ninongCols+" FROM ninongs WHERE id=? LIMIT 1", id))
	if err != nil {
		return model.Ninong{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.Ninong{}, err
	}
	committed = true
	return n, nil
}

// GetByEmail fetches a ninong by normalized email.
func (r *NinongRepo) GetByEmail(ctx context.Context, email string) (model.Ninong, error) {
	n, err := scanNinong(r.DB.QueryRowContext(ctx,
		"SELECT "+ninongCols+" FROM ninongs WHERE email=? LIMIT 1", NormalizeEmail(email)))
	if err == sql.ErrNoRows {
		return model.Ninong{}, ErrNotFound
	}
	return n, err
}

// GetByID fetches a ninong by id.
func (r *NinongRepo) GetByID(ctx context.Context, id uint64) (model.Ninong, error) {
	n, err := scanNinong(r.DB.QueryRowContext(ctx,
		"SELECT "+ninongCols+" FROM ninongs WHERE id=? LIMIT 1", id))
	if err == sql.ErrNoRows {
		return model.Ninong{}, ErrNotFound
	}
	return n, err
}

// StoreVerificationCode records a new pending code hash and expiry,
// replacing any previous one.  Used when a ninong asks for the code
// to be resent.
func (r *NinongRepo) StoreVerificationCode(ctx context.Context, id uint64, codeHash string, expiresAt time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE ninongs SET verification_code_hash=?, verification_code_expires_at=? WHERE id=?",
		codeHash, expiresAt, id)
	return err
}

// VerifyCode checks the pending verification state for a ninong and,
// when match accepts the stored hash, marks the email verified.  The
// matcher is injected so the repository stays free of the hashing
// scheme, mirroring how Register takes mintToken.  Returns
// ErrAlreadyVerified, ErrCodeExpired or ErrCodeInvalid.
func (r *NinongRepo) VerifyCode(ctx context.Context, id uint64, code string, match func(hash, code string) bool) error {
	n, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if n.Verified() {
		return ErrAlreadyVerified
	}
	if n.CodeExpired(time.Now().UTC()) {
		return ErrCodeExpired
	}
	if !match(*n.VerificationCodeHash, code) {
		return ErrCodeInvalid
	}
	return r.MarkVerified(ctx, id)
}

// MarkVerified stamps the email as verified and clears the pending
// code and its expiry.
func (r *NinongRepo) MarkVerified(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE ninongs SET email_verified_at=?,
			verification_code_hash=NULL, verification_code_expires_at=NULL
		 WHERE id=?`,
		time.Now().UTC(), id)
	return err
}
