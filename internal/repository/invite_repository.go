package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/giosicat/inaanak-portal/internal/model"
	"github.com/giosicat/inaanak-portal/internal/utils"
)

// InviteRepo owns the invite-code ledger: issuance and race-free
// redemption accounting for ninong_invites.
type InviteRepo struct{ DB *sql.DB }

func NewInviteRepo(db *sql.DB) *InviteRepo { return &InviteRepo{DB: db} }

const inviteCols = "id, ninong_id, code, usage_limit, used_count, expires_at, created_at, updated_at"

func scanInvite(scan func(dest ...interface{}) error) (model.Invite, error) {
	var inv model.Invite
	var limit sql.NullInt64
	var expiresAt sql.NullTime
	err := scan(&inv.ID, &inv.NinongID, &inv.Code, &limit, &inv.UsedCount,
		&expiresAt, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return model.Invite{}, err
	}
	if limit.Valid {
		l := uint32(limit.Int64)
		inv.UsageLimit = &l
	}
	if expiresAt.Valid {
		t := expiresAt.Time
		inv.ExpiresAt = &t
	}
	return inv, nil
}

// Create issues a new invite for a ninong.  The code is generated
// here and retried on UNIQUE collision; usageLimit nil means
// unlimited, expiresAt nil means no expiry.
func (r *InviteRepo) Create(ctx context.Context, ninongID uint64, usageLimit *uint32, expiresAt *time.Time) (model.Invite, error) {
	for attempt := 0; attempt < 5; attempt++ {
		code, err := utils.NewInviteCode()
		if err != nil {
			return model.Invite{}, err
		}
		res, err := r.DB.ExecContext(ctx,
			"INSERT INTO ninong_invites (ninong_id, code, usage_limit, expires_at) VALUES (?,?,?,?)",
			ninongID, code, usageLimit, expiresAt)
		if err != nil {
			if isDuplicate(err) {
				continue // code collision, regenerate
			}
			return model.Invite{}, err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return model.Invite{}, err
		}
		return r.GetByID(ctx, uint64(id))
	}
	return model.Invite{}, ErrInviteNotFound
}

// GetByID fetches an invite by id.
func (r *InviteRepo) GetByID(ctx context.Context, id uint64) (model.Invite, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+inviteCols+" FROM ninong_invites WHERE id=? LIMIT 1", id)
	inv, err := scanInvite(row.Scan)
	if err == sql.ErrNoRows {
		return model.Invite{}, ErrInviteNotFound
	}
	return inv, err
}

// ListByNinong returns all invites issued by a ninong, newest first.
func (r *InviteRepo) ListByNinong(ctx context.Context, ninongID uint64) ([]model.Invite, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+inviteCols+" FROM ninong_invites WHERE ninong_id=? ORDER BY created_at DESC, id DESC",
		ninongID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	invites := make([]model.Invite, 0)
	for rows.Next() {
		inv, err := scanInvite(rows.Scan)
		if err != nil {
			return nil, err
		}
		invites = append(invites, inv)
	}
	return invites, rows.Err()
}

// RedeemTx atomically consumes one use of the invite with the given
// code and returns the owning ninong's id.  The increment is a single
// conditional UPDATE, so two concurrent redemptions of a code with
// one remaining use can never both succeed regardless of the
// transaction isolation level: the row lock taken by the first UPDATE
// serializes the second, whose WHERE clause then no longer matches.
//
// ErrInviteNotFound is returned when no invite carries the code;
// ErrInviteExhausted when the invite exists but its usage limit is
// reached or its expiry has passed.
func (r *InviteRepo) RedeemTx(ctx context.Context, tx *sql.Tx, code string) (uint64, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE ninong_invites
		 SET used_count = used_count + 1
		 WHERE code = ?
		   AND (usage_limit IS NULL OR used_count < usage_limit)
		   AND (expires_at IS NULL OR expires_at > UTC_TIMESTAMP())`,
		code)
	if err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if affected == 0 {
		// Distinguish a missing code from a spent one.
		var id uint64
		err := tx.QueryRowContext(ctx,
			"SELECT id FROM ninong_invites WHERE code=? LIMIT 1", code).Scan(&id)
		if err == sql.ErrNoRows {
			return 0, ErrInviteNotFound
		}
		if err != nil {
			return 0, err
		}
		return 0, ErrInviteExhausted
	}
	var ninongID uint64
	if err := tx.QueryRowContext(ctx,
		"SELECT ninong_id FROM ninong_invites WHERE code=? LIMIT 1", code).Scan(&ninongID); err != nil {
		return 0, err
	}
	return ninongID, nil
}
