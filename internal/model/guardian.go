package model

import "time"

// Guardian represents a row in the `guardians` table.  A guardian is
// the parent or caretaker who submits registrations on behalf of a
// child.  Guardians come into existence two ways: through explicit
// registration with a password, or implicitly on first submission,
// in which case PasswordHash is nil and the account cannot log in
// until a real password is set.
//
// Fields:
//  ID            – primary key identifier.
//  Name          – full name of the guardian.
//  Email         – unique email address within the guardian namespace.
//  PasswordHash  – bcrypt hash of the password; nil for implicit accounts.
//  ContactNumber – phone number supplied at registration.
//  Address       – postal address supplied at registration.
//  CreatedAt     – timestamp of creation.
//  UpdatedAt     – timestamp of last update.
type Guardian struct {
	ID            uint64    // guardians.id
	Name          string    // guardians.name
	Email         string    // guardians.email
	PasswordHash  *string   // guardians.password_hash (nullable)
	ContactNumber string    // guardians.contact_number
	Address       string    // guardians.address
	CreatedAt     time.Time // guardians.created_at
	UpdatedAt     time.Time // guardians.updated_at
}

// CanLogin reports whether the guardian has a usable credential.
// Implicitly created guardians have no password hash and must
// complete explicit registration before authenticating.
func (g *Guardian) CanLogin() bool {
	return g.PasswordHash != nil && *g.PasswordHash != ""
}
