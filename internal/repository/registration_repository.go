package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/giosicat/inaanak-portal/internal/model"
)

// RegistrationRepo provides access to the registrations table and
// the per-day reference counter.
type RegistrationRepo struct{ DB *sql.DB }

func NewRegistrationRepo(db *sql.DB) *RegistrationRepo { return &RegistrationRepo{DB: db} }

const registrationCols = `r.id, r.reference_number, r.guardian_id, r.ninong_id,
	r.inaanak_name, r.inaanak_birthdate, r.relationship,
	r.live_photo_path, r.video_path, r.qr_code_path,
	r.status, r.rejection_reason, r.created_at, r.updated_at`

func scanRegistration(scan func(dest ...interface{}) error, extra ...interface{}) (model.Registration, error) {
	var reg model.Registration
	var ninongID sql.NullInt64
	var photo, video, qr, reason sql.NullString
	dest := []interface{}{
		&reg.ID, &reg.ReferenceNumber, &reg.GuardianID, &ninongID,
		&reg.InaanakName, &reg.InaanakBirthdate, &reg.Relationship,
		&photo, &video, &qr,
		&reg.Status, &reason, &reg.CreatedAt, &reg.UpdatedAt,
	}
	dest = append(dest, extra...)
	if err := scan(dest...); err != nil {
		return model.Registration{}, err
	}
	if ninongID.Valid {
		id := uint64(ninongID.Int64)
		reg.NinongID = &id
	}
	if photo.Valid {
		p := photo.String
		reg.LivePhotoPath = &p
	}
	if video.Valid {
		v := video.String
		reg.VideoPath = &v
	}
	if qr.Valid {
		q := qr.String
		reg.QRCodePath = &q
	}
	if reason.Valid {
		rr := reason.String
		reg.RejectionReason = &rr
	}
	return reg, nil
}

// Detail pairs a registration with the owning guardian's contact
// fields for admin and sponsor listings.
type Detail struct {
	model.Registration
	GuardianName  string
	GuardianEmail string
}

// NextSequenceTx atomically claims the next reference sequence for
// the given calendar day.  The counter row is upserted with
// LAST_INSERT_ID so the claimed value comes back on the same
// round-trip; concurrent submissions each observe a distinct value.
// A plain "count rows then insert" would race.
func (r *RegistrationRepo) NextSequenceTx(ctx context.Context, tx *sql.Tx, day time.Time) (uint32, error) {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO registration_counters (day, next) VALUES (?, LAST_INSERT_ID(1))
		 ON DUPLICATE KEY UPDATE next = LAST_INSERT_ID(next + 1)`,
		day.UTC().Format("2006-01-02"))
	if err != nil {
		return 0, err
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	if seq < 1 {
		seq = 1
	}
	return uint32(seq), nil
}

// CreateTx inserts a registration within an existing transaction and
// populates the generated ID on the record.  Status defaults to
// pending at the schema level.
func (r *RegistrationRepo) CreateTx(ctx context.Context, tx *sql.Tx, reg *model.Registration) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO registrations
			(reference_number, guardian_id, ninong_id, inaanak_name, inaanak_birthdate,
			 relationship, live_photo_path, video_path, qr_code_path)
		 VALUES (?,?,?,?,?,?,?,?,?)`,
		reg.ReferenceNumber, reg.GuardianID, reg.NinongID,
		reg.InaanakName, reg.InaanakBirthdate.Format("2006-01-02"), reg.Relationship,
		reg.LivePhotoPath, reg.VideoPath, reg.QRCodePath)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	reg.ID = uint64(id)
	reg.Status = model.StatusPending
	return nil
}

// GetByID fetches a registration by id.
func (r *RegistrationRepo) GetByID(ctx context.Context, id uint64) (model.Registration, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+registrationCols+" FROM registrations r WHERE r.id=? LIMIT 1", id)
	reg, err := scanRegistration(row.Scan)
	if err == sql.ErrNoRows {
		return model.Registration{}, ErrNotFound
	}
	return reg, err
}

// GetByReference fetches a registration by public reference number
// together with the owning guardian's email, which the public status
// endpoint compares against the claimed address.
func (r *RegistrationRepo) GetByReference(ctx context.Context, reference string) (model.Registration, string, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+registrationCols+`, g.email
		 FROM registrations r
		 JOIN guardians g ON g.id = r.guardian_id
		 WHERE r.reference_number=? LIMIT 1`, reference)
	var email string
	reg, err := scanRegistration(row.Scan, &email)
	if err == sql.ErrNoRows {
		return model.Registration{}, "", ErrNotFound
	}
	return reg, email, err
}

// ListAll returns every registration with guardian details, newest
// first.  Admin listing only.
func (r *RegistrationRepo) ListAll(ctx context.Context) ([]Detail, error) {
	return r.listDetails(ctx,
		`SELECT `+registrationCols+`, g.name, g.email
		 FROM registrations r
		 JOIN guardians g ON g.id = r.guardian_id
		 ORDER BY r.created_at DESC, r.id DESC`)
}

// ListByGuardian returns a guardian's own registrations, newest first.
func (r *RegistrationRepo) ListByGuardian(ctx context.Context, guardianID uint64) ([]model.Registration, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+registrationCols+" FROM registrations r WHERE r.guardian_id=? ORDER BY r.created_at DESC, r.id DESC",
		guardianID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	regs := make([]model.Registration, 0)
	for rows.Next() {
		reg, err := scanRegistration(rows.Scan)
		if err != nil {
			return nil, err
		}
		regs = append(regs, reg)
	}
	return regs, rows.Err()
}

// ListByNinong returns the registrations associated with a sponsor's
// redeemed invites, with guardian details, newest first.
func (r *RegistrationRepo) ListByNinong(ctx context.Context, ninongID uint64) ([]Detail, error) {
	return r.listDetails(ctx,
		`SELECT `+registrationCols+`, g.name, g.email
		 FROM registrations r
		 JOIN guardians g ON g.id = r.guardian_id
		 WHERE r.ninong_id=?
		 ORDER BY r.created_at DESC, r.id DESC`, ninongID)
}

func (r *RegistrationRepo) listDetails(ctx context.Context, query string, args ...interface{}) ([]Detail, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	details := make([]Detail, 0)
	for rows.Next() {
		var d Detail
		reg, err := scanRegistration(rows.Scan, &d.GuardianName, &d.GuardianEmail)
		if err != nil {
			return nil, err
		}
		d.Registration = reg
		details = append(details, d)
	}
	return details, rows.Err()
}

// UpdateStatus sets the status unconditionally and stores the
// rejection reason when one is supplied.  No transition table is
// enforced: an admin may move a registration between any of the four
// states, including back to pending.
func (r *RegistrationRepo) UpdateStatus(ctx context.Context, id uint64, status string, rejectionReason *string) error {
	var res sql.Result
	var err error
	if rejectionReason != nil {
		res, err = r.DB.ExecContext(ctx,
			"UPDATE registrations SET status=?, rejection_reason=? WHERE id=?",
			status, *rejectionReason, id)
	} else {
		res, err = r.DB.ExecContext(ctx,
			"UPDATE registrations SET status=? WHERE id=?", status, id)
	}
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// Status may be unchanged; verify the row exists before 404ing.
		var one int
		if err := r.DB.QueryRowContext(ctx,
			"SELECT 1 FROM registrations WHERE id=? LIMIT 1", id).Scan(&one); err == sql.ErrNoRows {
			return ErrNotFound
		} else if err != nil {
			return err
		}
	}
	return nil
}
