// Package authz decides whether a principal may read a given
// registration.  All registration-scoped reads (record view, file
// download) funnel through CanAccess so the three ownership relations
// are checked in exactly one place.
package authz

import "github.com/giosicat/inaanak-portal/internal/model"

// Kind identifies which identity namespace a principal belongs to.
// The three namespaces are independent: a guardian and a ninong may
// share an email address and are still distinct principals.
type Kind string

const (
	KindGuardian Kind = "guardian"
	KindNinong   Kind = "ninong"
	KindAdmin    Kind = "admin"
)

// ValidKind reports whether k names a known principal namespace.
func ValidKind(k Kind) bool {
	return k == KindGuardian || k == KindNinong || k == KindAdmin
}

// Principal is the single authenticated identity value produced by
// the auth middleware and consumed by all downstream logic.  Verified
// is only meaningful for ninongs; guardians and admins do not carry a
// verification state.
type Principal struct {
	Kind     Kind
	ID       uint64
	Email    string
	Verified bool
}

// CanAccess reports whether p may view the registration and its
// files.  Access is granted to admins, to the guardian who owns the
// registration, and to the ninong whose invite was redeemed for it.
// Everyone else, including other guardians and ninongs, is denied.
func CanAccess(p Principal, reg *model.Registration) bool {
	if reg == nil {
		return false
	}
	switch p.Kind {
	case KindAdmin:
		return true
	case KindGuardian:
		return reg.GuardianID == p.ID
	case KindNinong:
		return reg.NinongID != nil && *reg.NinongID == p.ID
	}
	return false
}
