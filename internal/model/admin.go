package model

import "time"

// Admin represents a row in the `admins` table.  Admins review
// submitted registrations and move them through the status
// workflow.
type Admin struct {
	ID           uint64    // admins.id
	Name         string    // admins.name
	Email        string    // admins.email
	PasswordHash string    // admins.password_hash
	CreatedAt    time.Time // admins.created_at
	UpdatedAt    time.Time // admins.updated_at
}

// Token models an entry in the `tokens` table.  Each token belongs
// to exactly one principal and stores only the SHA-256 hash of the
// signed bearer token.  Deleting the row revokes the session; there
// is no automatic expiry.
//
// Fields:
//  ID            – primary key identifier.
//  TokenHash     – SHA-256 hex digest of the bearer token.
//  PrincipalType – one of "guardian", "ninong", "admin".
//  PrincipalID   – owner of the token within that namespace.
//  CreatedAt     – timestamp of creation.
type Token struct {
	ID            uint64    // tokens.id
	TokenHash     string    // tokens.token_hash
	PrincipalType string    // tokens.principal_type
	PrincipalID   uint64    // tokens.principal_id
	CreatedAt     time.Time // tokens.created_at
}
