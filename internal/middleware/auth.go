package middleware // middleware provides shared request processing for handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/giosicat/inaanak-portal/internal/authz"
	"github.com/giosicat/inaanak-portal/internal/repository"
	"github.com/giosicat/inaanak-portal/internal/utils"
)

// Context keys set by Authenticate and read by handlers.
const (
	principalKey = "principal"
	tokenHashKey = "token_hash"
)

// Authenticate returns the single token-resolution middleware.  It
// validates the Bearer JWT, checks that the token's digest is still
// live in the token store (revocation check) and loads the principal
// fresh from its namespace so downstream logic sees current state
// such as a ninong's verification flag.  Exactly one Principal value
// comes out of this step; nothing downstream re-inspects headers.
func Authenticate(secret string,
	tokens *repository.TokenRepo,
	guardians *repository.GuardianRepo,
	ninongs *repository.NinongRepo,
	admins *repository.AdminRepo,
) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return unauthorized(c)
			}
			raw := strings.TrimPrefix(auth, "Bearer ")

			claims, err := utils.ParseBearerToken(secret, raw)
			if err != nil {
				return unauthorized(c)
			}
			kind := authz.Kind(claims.PrincipalType)
			if !authz.ValidKind(kind) {
				return unauthorized(c)
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
			defer cancel()

			hash := utils.HashToken(raw)
			live, err := tokens.Exists(ctx, hash, claims.PrincipalType, claims.PrincipalID)
			if err != nil {
				return c.JSON(http.StatusInternalServerError, echo.Map{
					"success": false, "message": "Authentication failed",
				})
			}
			if !live {
				return unauthorized(c)
			}

			p := authz.Principal{Kind: kind, ID: claims.PrincipalID}
			switch kind {
			case authz.KindGuardian:
				g, err := guardians.GetByID(ctx, claims.PrincipalID)
				if err != nil {
					return unauthorized(c)
				}
				p.Email = g.Email
			case authz.KindNinong:
				n, err := ninongs.GetByID(ctx, claims.PrincipalID)
				if err != nil {
					return unauthorized(c)
				}
				p.Email = n.Email
				p.Verified = n.Verified()
			case authz.KindAdmin:
				a, err := admins.GetByID(ctx, claims.PrincipalID)
				if err != nil {
					return unauthorized(c)
				}
				p.Email = a.Email
			}

			c.Set(principalKey, p)
			c.Set(tokenHashKey, hash)
			return next(c)
		}
	}
}

// SetPrincipal attaches an already-resolved principal to the request
// context, bypassing token resolution.  Intended for tests that
// exercise handlers without the full middleware chain.
func SetPrincipal(c echo.Context, p authz.Principal) { c.Set(principalKey, p) }

// SetTokenHash attaches a session token hash the way Authenticate
// does.  Intended for tests.
func SetTokenHash(c echo.Context, hash string) { c.Set(tokenHashKey, hash) }

// Principal extracts the authenticated principal placed by
// Authenticate.  The second return is false on unauthenticated
// requests.
func Principal(c echo.Context) (authz.Principal, bool) {
	p, ok := c.Get(principalKey).(authz.Principal)
	return p, ok
}

// TokenHash returns the digest of the presented bearer token, used by
// logout to revoke exactly this session.
func TokenHash(c echo.Context) string {
	h, _ := c.Get(tokenHashKey).(string)
	return h
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{
		"success": false, "message": "Unauthenticated",
	})
}
