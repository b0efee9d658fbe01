package middleware // middleware provides shared request processing for handlers

import (
	"net/http" // http package defines standard HTTP status codes

	"github.com/labstack/echo/v4" // echo provides middleware chaining and context

	"github.com/giosicat/inaanak-portal/internal/authz"
)

// RequireKind returns a middleware function that enforces that the
// authenticated principal belongs to one of the specified
// namespaces.  It assumes Authenticate already ran and stored the
// Principal in the context; requests with a missing or mismatched
// principal are rejected with 403 Forbidden.
func RequireKind(kinds ...authz.Kind) echo.MiddlewareFunc {
	allowed := make(map[authz.Kind]bool, len(kinds))
	for _, k := range kinds {
		allowed[k] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := Principal(c)
			if !ok || !allowed[p.Kind] {
				return c.JSON(http.StatusForbidden, echo.Map{
					"success": false, "message": "Forbidden",
				})
			}
			return next(c)
		}
	}
}

// RequireVerified gates ninong actions behind email verification.
// Unverified ninongs can still log in, log out, view their profile
// and request or submit verification codes; issuing invites and
// viewing sponsored registrations need this guard.  It is orthogonal
// to RequireKind and runs after it.
func RequireVerified() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := Principal(c)
			if !ok || (p.Kind == authz.KindNinong && !p.Verified) {
				return c.JSON(http.StatusForbidden, echo.Map{
					"success": false, "message": "Email verification required",
				})
			}
			return next(c)
		}
	}
}
