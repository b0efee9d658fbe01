package model

import "time"

// Invite represents a row in the `ninong_invites` table.  An invite
// is a short uppercase code a ninong hands out; redeeming it links
// the resulting registration to the issuing ninong.  UsageLimit nil
// means unlimited.  UsedCount only ever increases and, when a limit
// is set, never exceeds it.
//
// Fields:
//  ID         – primary key identifier.
//  NinongID   – owning sponsor (cascade-deleted with the ninong).
//  Code       – unique uppercase invite code.
//  UsageLimit – maximum redemptions (nil = unlimited).
//  UsedCount  – redemptions so far.
//  ExpiresAt  – optional expiry timestamp.
//  CreatedAt  – timestamp of creation.
//  UpdatedAt  – timestamp of last update.
type Invite struct {
	ID         uint64     // ninong_invites.id
	NinongID   uint64     // ninong_invites.ninong_id
	Code       string     // ninong_invites.code
	UsageLimit *uint32    // ninong_invites.usage_limit (nullable)
	UsedCount  uint32     // ninong_invites.used_count
	ExpiresAt  *time.Time // ninong_invites.expires_at (nullable)
	CreatedAt  time.Time  // ninong_invites.created_at
	UpdatedAt  time.Time  // ninong_invites.updated_at
}

// Exhausted reports whether the usage limit has been reached.
func (i *Invite) Exhausted() bool {
	return i.UsageLimit != nil && i.UsedCount >= *i.UsageLimit
}

// Expired reports whether the invite's expiry has passed at the
// given instant.
func (i *Invite) Expired(now time.Time) bool {
	return i.ExpiresAt != nil && !now.Before(*i.ExpiresAt)
}

// Redeemable reports whether the invite can still be used.  Both
// exhaustion and expiry make an invite unusable; callers present a
// single "no longer valid" message without distinguishing the cause.
func (i *Invite) Redeemable(now time.Time) bool {
	return !i.Exhausted() && !i.Expired(now)
}
