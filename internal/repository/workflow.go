package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/giosicat/inaanak-portal/internal/model"
)

// SubmitParams carries everything a guardian sends with a new
// registration, with file paths already written to storage.
type SubmitParams struct {
	GuardianName    string
	GuardianEmail   string
	GuardianContact string
	GuardianAddress string

	InaanakName      string
	InaanakBirthdate time.Time
	Relationship     string

	InviteCode string

	LivePhotoPath *string
	VideoPath     *string
	QRCodePath    *string
}

// Workflow bundles the repositories that take part in multi-table
// transactions so handlers do not have to hold the raw DB handle.
type Workflow struct {
	DB            *sql.DB
	Guardians     *GuardianRepo
	Invites       *InviteRepo
	Registrations *RegistrationRepo
}

// Submit runs the full intake as one transaction: resolve (or create)
// the guardian, consume one use of the invite code, claim the next
// reference number for the day and insert the registration.  Any
// failure rolls the whole thing back, so an invite use is never burned
// on a registration that was not stored.
func (w *Workflow) Submit(ctx context.Context, p SubmitParams) (model.Registration, error) {
	tx, err := w.DB.BeginTx(ctx, nil)
	if err != nil {
		return model.Registration{}, fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	guardianID, err := w.Guardians.FindOrCreateTx(ctx, tx, p.GuardianName, p.GuardianEmail, p.GuardianContact, p.GuardianAddress)
	if err != nil {
		return model.Registration{}, err
	}

	ninongID, err := w.Invites.RedeemTx(ctx, tx, p.InviteCode)
	if err != nil {
		return model.Registration{}, err
	}

	now := time.Now().UTC()
	seq, err := w.Registrations.NextSequenceTx(ctx, tx, now)
	if err != nil {
		return model.Registration{}, err
	}

	reg := model.Registration{
		ReferenceNumber:  model.FormatReferenceNumber(now, seq),
		GuardianID:       guardianID,
		NinongID:         &ninongID,
		InaanakName:      p.InaanakName,
		InaanakBirthdate: p.InaanakBirthdate,
		Relationship:     p.Relationship,
		LivePhotoPath:    p.LivePhotoPath,
		VideoPath:        p.VideoPath,
		QRCodePath:       p.QRCodePath,
	}
	if err := w.Registrations.CreateTx(ctx, tx, &reg); err != nil {
		return model.Registration{}, err
	}

	if err := tx.Commit(); err != nil {
		return model.Registration{}, err
	}
	committed = true
	return reg, nil
}
