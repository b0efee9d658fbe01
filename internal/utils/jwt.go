package utils // package utils provides helper functions for token creation and hashing

import (
	"crypto/rand"   // secure random number generation
	"crypto/sha256" // SHA-256 hashing for stored token digests
	"encoding/hex"  // hex encoding functions
	"errors"        // sentinel errors for token parsing
	"fmt"           // claim formatting
	"time"          // issued-at timestamps

	"github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
)

// Bearer tokens are HS256 JWTs carrying the principal's namespace and
// id.  A token is only honoured while its SHA-256 digest still exists
// in the tokens table, so revocation is a simple row delete and the
// JWT itself needs no expiry claim.

// TokenClaims is the decoded content of a bearer token.
type TokenClaims struct {
	PrincipalType string // "guardian", "ninong" or "admin"
	PrincipalID   uint64 // id within that namespace
}

// ErrInvalidToken is returned when a bearer token fails signature or
// claim validation.
var ErrInvalidToken = errors.New("invalid token")

// NewBearerToken builds and signs an HS256 JWT for a principal.  The
// jti claim carries 16 random bytes so that two tokens minted for the
// same principal in the same second still hash differently, keeping
// sessions independently revocable.
func NewBearerToken(secret, principalType string, principalID uint64) (string, error) {
	jti, err := randomHex(16)
	if err != nil {
		return "", err
	}
	claims := jwt.MapClaims{
		"sub": fmt.Sprintf("%d", principalID),
		"typ": principalType,
		"jti": jti,
		"iat": time.Now().UTC().Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(secret))
}

// ParseBearerToken validates the signature of a bearer token and
// extracts its claims.  It does not consult the token store; callers
// must additionally check that HashToken(raw) is still present.
func ParseBearerToken(secret, raw string) (TokenClaims, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		return TokenClaims{}, ErrInvalidToken
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return TokenClaims{}, ErrInvalidToken
	}
	typ, _ := claims["typ"].(string)
	sub, _ := claims["sub"].(string)
	if typ == "" || sub == "" {
		return TokenClaims{}, ErrInvalidToken
	}
	var id uint64
	if _, err := fmt.Sscanf(sub, "%d", &id); err != nil || id == 0 {
		return TokenClaims{}, ErrInvalidToken
	}
	return TokenClaims{PrincipalType: typ, PrincipalID: id}, nil
}

// HashToken returns the SHA-256 hash of the raw bearer token as a hex
// string.  Only the hash is stored server-side so a leaked token
// table cannot be replayed.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// randomHex returns a hex-encoded string generated from n bytes of
// cryptographically secure random data.
func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
