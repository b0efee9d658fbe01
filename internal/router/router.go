// Package router wires handlers and middleware onto the Echo instance.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/giosicat/inaanak-portal/internal/authz"
	"github.com/giosicat/inaanak-portal/internal/handler"
	"github.com/giosicat/inaanak-portal/internal/middleware"
	"github.com/giosicat/inaanak-portal/internal/repository"
)

// Handlers bundles every handler the router mounts.
type Handlers struct {
	GuardianAuth  *handler.GuardianAuthHandler
	NinongAuth    *handler.NinongAuthHandler
	AdminAuth     *handler.AdminAuthHandler
	Invites       *handler.InviteHandler
	Registrations *handler.RegistrationHandler
	CheckStatus   *handler.CheckStatusHandler
}

// Deps carries the shared middleware inputs.
type Deps struct {
	TokenSecret string
	Tokens      *repository.TokenRepo
	Guardians   *repository.GuardianRepo
	Ninongs     *repository.NinongRepo
	Admins      *repository.AdminRepo

	// RateLimit guards the unauthenticated endpoints; nil disables it.
	RateLimit echo.MiddlewareFunc
}

// Register mounts every route.  Public endpoints sit behind the rate
// limiter; everything else goes through the single token-resolution
// middleware plus a namespace gate.
func Register(e *echo.Echo, h Handlers, d Deps) {
	e.GET("/healthz", handler.Health)

	authn := middleware.Authenticate(d.TokenSecret, d.Tokens, d.Guardians, d.Ninongs, d.Admins)

	// Public surface: submission and status lookup.
	public := e.Group("/v1")
	if d.RateLimit != nil {
		public.Use(d.RateLimit)
	}
	public.POST("/registrations", h.Registrations.Submit)
	public.GET("/registrations/check-status/:reference", h.CheckStatus.CheckStatus)

	// Cross-namespace reads: any authenticated principal may attempt
	// them; the per-registration access rule is applied in the handler.
	shared := e.Group("/v1", authn)
	shared.GET("/registrations/my", h.Registrations.My, middleware.RequireKind(authz.KindGuardian))
	shared.GET("/registrations/:id", h.Registrations.Show)
	shared.GET("/registrations/:id/download/:type", h.Registrations.Download)

	registerGuardian(e, h, d, authn)
	registerNinong(e, h, d, authn)
	registerAdmin(e, h, d, authn)
}

func registerGuardian(e *echo.Echo, h Handlers, d Deps, authn echo.MiddlewareFunc) {
	g := e.Group("/v1/guardian")
	if d.RateLimit != nil {
		g.POST("/register", h.GuardianAuth.Register, d.RateLimit)
		g.POST("/login", h.GuardianAuth.Login, d.RateLimit)
	} else {
		g.POST("/register", h.GuardianAuth.Register)
		g.POST("/login", h.GuardianAuth.Login)
	}

	priv := g.Group("", authn, middleware.RequireKind(authz.KindGuardian))
	priv.GET("/profile", h.GuardianAuth.Profile)
	priv.POST("/logout", h.GuardianAuth.Logout)
}

func registerNinong(e *echo.Echo, h Handlers, d Deps, authn echo.MiddlewareFunc) {
	n := e.Group("/v1/ninong")
	if d.RateLimit != nil {
		n.POST("/register", h.NinongAuth.Register, d.RateLimit)
		n.POST("/login", h.NinongAuth.Login, d.RateLimit)
	} else {
		n.POST("/register", h.NinongAuth.Register)
		n.POST("/login", h.NinongAuth.Login)
	}

	priv := n.Group("", authn, middleware.RequireKind(authz.KindNinong))
	priv.GET("/profile", h.NinongAuth.Profile)
	priv.POST("/logout", h.NinongAuth.Logout)
	priv.POST("/verify-code", h.NinongAuth.VerifyCode)
	priv.POST("/resend-verification", h.NinongAuth.ResendCode)

	// Invite issuance requires a confirmed email on top of the
	// namespace gate.
	verified := priv.Group("", middleware.RequireVerified())
	verified.POST("/invites", h.Invites.Create)
	verified.GET("/invites", h.Invites.List)
	verified.GET("/registrations", h.Invites.Registrations)
}

func registerAdmin(e *echo.Echo, h Handlers, d Deps, authn echo.MiddlewareFunc) {
	a := e.Group("/v1/admin")
	if d.RateLimit != nil {
		a.POST("/register", h.AdminAuth.Register, d.RateLimit)
		a.POST("/login", h.AdminAuth.Login, d.RateLimit)
	} else {
		a.POST("/register", h.AdminAuth.Register)
		a.POST("/login", h.AdminAuth.Login)
	}

	priv := a.Group("", authn, middleware.RequireKind(authz.KindAdmin))
	priv.GET("/profile", h.AdminAuth.Profile)
	priv.POST("/logout", h.AdminAuth.Logout)
	priv.GET("/registrations", h.Registrations.AdminIndex)
	priv.GET("/registrations/:id", h.Registrations.Show)
	priv.GET("/registrations/:id/download/:type", h.Registrations.Download)
	priv.PUT("/registrations/:id/status", h.Registrations.UpdateStatus)
}
