package model

import (
	"fmt"
	"time"
)

// Registration status values.  Transitions are admin-only and
// deliberately unconstrained: an admin may move a registration
// between any of the four states.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusReleased = "released"
	StatusRejected = "rejected"
)

// ValidStatus reports whether s is one of the four known states.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusApproved, StatusReleased, StatusRejected:
		return true
	}
	return false
}

// Registration represents a row in the `registrations` table.  It is
// the central entity of the portal: a child registered for gift
// sponsorship by a guardian, optionally linked to the ninong whose
// invite code was redeemed at submission.
//
// Fields:
//  ID               – primary key identifier.
//  ReferenceNumber  – unique public identifier, REG-YYYY-MM-DD-NNN.
//  GuardianID       – owning guardian (cascade-deleted with the guardian).
//  NinongID         – associated sponsor (nulled if the ninong is deleted).
//  InaanakName      – name of the child.
//  InaanakBirthdate – birthdate of the child.
//  Relationship     – guardian's relationship to the child.
//  LivePhotoPath    – stored photo path (nullable).
//  VideoPath        – stored video path (nullable).
//  QRCodePath       – stored QR code path (nullable).
//  Status           – one of the Status* constants, default pending.
//  RejectionReason  – optional reason recorded by an admin.
//  CreatedAt        – timestamp of creation.
//  UpdatedAt        – timestamp of last update.
type Registration struct {
	ID               uint64     // registrations.id
	ReferenceNumber  string     // registrations.reference_number
	GuardianID       uint64     // registrations.guardian_id
	NinongID         *uint64    // registrations.ninong_id (nullable)
	InaanakName      string     // registrations.inaanak_name
	InaanakBirthdate time.Time  // registrations.inaanak_birthdate
	Relationship     string     // registrations.relationship
	LivePhotoPath    *string    // registrations.live_photo_path (nullable)
	VideoPath        *string    // registrations.video_path (nullable)
	QRCodePath       *string    // registrations.qr_code_path (nullable)
	Status           string     // registrations.status
	RejectionReason  *string    // registrations.rejection_reason (nullable)
	CreatedAt        time.Time  // registrations.created_at
	UpdatedAt        time.Time  // registrations.updated_at
}

// FormatReferenceNumber renders the public reference for the given
// calendar day and per-day sequence, e.g. REG-2025-12-24-007.  The
// sequence itself must come from an atomic per-day counter so that
// concurrent submissions never collide.
func FormatReferenceNumber(day time.Time, seq uint32) string {
	return fmt.Sprintf("REG-%s-%03d", day.UTC().Format("2006-01-02"), seq)
}

// FilePath returns the stored path for one of the three file slots
// ("live_photo", "video", "qr_code").  The second return is false
// for an unknown file type.
func (r *Registration) FilePath(fileType string) (*string, bool) {
	switch fileType {
	case "live_photo":
		return r.LivePhotoPath, true
	case "video":
		return r.VideoPath, true
	case "qr_code":
		return r.QRCodePath, true
	}
	return nil, false
}
