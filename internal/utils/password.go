package utils

import (
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword returns bcrypt hash using the given cost.
func HashPassword(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword safely compares bcrypt hash and plain password.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// MinPasswordLength applies to every principal type.
const MinPasswordLength = 8

// CheckPasswordStrength validates the password policy.  All
// principals need at least MinPasswordLength characters; when strict
// is set (ninong accounts) the password must additionally contain an
// upper-case letter, a lower-case letter, a digit and a symbol.  The
// returned string is a user-facing message, empty when the password
// is acceptable.
func CheckPasswordStrength(plain string, strict bool) string {
	if len(plain) < MinPasswordLength {
		return "Password must be at least 8 characters."
	}
	if !strict {
		return ""
	}
	var upper, lower, digit, symbol bool
	for _, r := range plain {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		default:
			symbol = true
		}
	}
	if !upper || !lower || !digit || !symbol {
		return "Password must contain upper and lower case letters, a number and a symbol."
	}
	return ""
}
