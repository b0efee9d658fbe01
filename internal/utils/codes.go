package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// inviteAlphabet deliberately has no lowercase: invite codes are
// case-normalized uppercase so they survive being read over the phone
// or typed from paper.
const inviteAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// InviteCodeLength is the length of generated invite codes.
const InviteCodeLength = 8

// NewInviteCode returns a random 8-character uppercase invite code.
// Uniqueness is enforced by the database; callers retry on collision.
func NewInviteCode() (string, error) {
	buf := make([]byte, InviteCodeLength)
	max := big.NewInt(int64(len(inviteAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = inviteAlphabet[n.Int64()]
	}
	return string(buf), nil
}

// NewVerificationCode returns a 6-digit numeric code for email
// verification, in the range 100000–999999 so it never carries a
// leading zero.
func NewVerificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
