package model

import "time"

// Ninong represents a row in the `ninongs` table.  A ninong is a
// sponsor who issues invite codes that gate registrations.  New
// ninongs receive a hashed one-time verification code with a short
// expiry; invite issuance is blocked until the code is confirmed.
//
// Fields:
//  ID                – primary key identifier.
//  Name              – full name of the sponsor.
//  Email             – unique email address within the ninong namespace.
//  PasswordHash      – bcrypt hash of the password.
//  EmailVerifiedAt   – when the email was verified (nil while unverified).
//  VerificationCodeHash – bcrypt hash of the pending 6-digit code (nil
//                      once verified or before a code has been issued).
//  VerificationCodeExpiresAt – expiry of the pending code.
//  CreatedAt         – timestamp of creation.
//  UpdatedAt         – timestamp of last update.
type Ninong struct {
	ID                        uint64     // ninongs.id
	Name                      string     // ninongs.name
	Email                     string     // ninongs.email
	PasswordHash              string     // ninongs.password_hash
	EmailVerifiedAt           *time.Time // ninongs.email_verified_at (nullable)
	VerificationCodeHash      *string    // ninongs.verification_code_hash (nullable)
	VerificationCodeExpiresAt *time.Time // ninongs.verification_code_expires_at (nullable)
	CreatedAt                 time.Time  // ninongs.created_at
	UpdatedAt                 time.Time  // ninongs.updated_at
}

// Verified reports whether the ninong has confirmed their email.
func (n *Ninong) Verified() bool { return n.EmailVerifiedAt != nil }

// CodeExpired reports whether the pending verification code is
// missing or past its expiry at the given instant.
func (n *Ninong) CodeExpired(now time.Time) bool {
	return n.VerificationCodeHash == nil ||
		n.VerificationCodeExpiresAt == nil ||
		now.After(*n.VerificationCodeExpiresAt)
}
