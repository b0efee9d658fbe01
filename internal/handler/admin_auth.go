package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/giosicat/inaanak-portal/internal/config"
	"github.com/giosicat/inaanak-portal/internal/middleware"
	"github.com/giosicat/inaanak-portal/internal/model"
	"github.com/giosicat/inaanak-portal/internal/repository"
	"github.com/giosicat/inaanak-portal/internal/utils"
)

// AdminAuthHandler serves admin account and session endpoints.
type AdminAuthHandler struct {
	Cfg     config.Config
	Admins  AdminStore
	Tokens  TokenStore
	Captcha CaptchaVerifier
}

func NewAdminAuthHandler(cfg config.Config, a AdminStore, t TokenStore, v CaptchaVerifier) *AdminAuthHandler {
	return &AdminAuthHandler{Cfg: cfg, Admins: a, Tokens: t, Captcha: v}
}

type adminRegisterReq struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type adminLoginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Captcha  string `json:"captcha_token"`
}

type adminPart struct {
	ID    uint64 `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func adminJSON(a model.Admin) adminPart {
	return adminPart{ID: a.ID, Name: a.Name, Email: a.Email}
}

// Register creates an admin account.  Intended for initial setup;
// deployments that provision the first admin from the environment can
// leave this rate limited or disabled at the proxy.
func (h *AdminAuthHandler) Register(c echo.Context) error {
	var req adminRegisterReq
	if err := c.Bind(&req); err != nil {
		return respondErr(c, http.StatusBadRequest, "Invalid request body")
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)

	errs := map[string][]string{}
	if req.Name == "" {
		errs["name"] = append(errs["name"], "The name field is required.")
	}
	if req.Email == "" {
		errs["email"] = append(errs["email"], "The email field is required.")
	}
	if msg := utils.CheckPasswordStrength(req.Password, false); msg != "" {
		errs["password"] = append(errs["password"], msg)
	}
	if len(errs) > 0 {
		return respondInvalid(c, errs)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	hash, err := utils.HashPassword(req.Password, h.Cfg.BcryptCost)
	if err != nil {
		return respondErr(c, http.StatusInternalServerError, "Registration failed")
	}
	id, err := h.Admins.Create(ctx, req.Name, req.Email, hash)
	if err != nil {
		if err == repository.ErrEmailExists {
			return respondInvalid(c, map[string][]string{
				"email": {"The email has already been taken."},
			})
		}
		return respondErr(c, http.StatusInternalServerError, "Registration failed")
	}
	a, err := h.Admins.GetByID(ctx, id)
	if err != nil {
		return respondErr(c, http.StatusInternalServerError, "Registration failed")
	}

	token, err := issueToken(ctx, h.Cfg.TokenSecret, h.Tokens, "admin", a.ID)
	if err != nil {
		return respondErr(c, http.StatusInternalServerError, "Registration failed")
	}
	return respondOK(c, http.StatusCreated, "Registration successful", echo.Map{
		"token": token,
		"admin": adminJSON(a),
	})
}

// Login authenticates an admin.  When a captcha secret is configured
// the client response token is verified first; a failed captcha is
// rejected before credentials are even looked at.
func (h *AdminAuthHandler) Login(c echo.Context) error {
	var req adminLoginReq
	if err := c.Bind(&req); err != nil {
		return respondErr(c, http.StatusBadRequest, "Invalid request body")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	if h.Captcha.Enabled() {
		if err := h.Captcha.Verify(ctx, req.Captcha, c.RealIP()); err != nil {
			return respondErr(c, http.StatusUnprocessableEntity, "Captcha verification failed.")
		}
	}

	a, err := h.Admins.GetByEmail(ctx, req.Email)
	if err != nil || !utils.VerifyPassword(a.PasswordHash, req.Password) {
		return respondErr(c, http.StatusUnauthorized, "Invalid credentials")
	}

	token, err := issueToken(ctx, h.Cfg.TokenSecret, h.Tokens, "admin", a.ID)
	if err != nil {
		return respondErr(c, http.StatusInternalServerError, "Login failed")
	}
	return respondOK(c, http.StatusOK, "Login successful", echo.Map{
		"token": token,
		"admin": adminJSON(a),
	})
}

// Profile returns the authenticated admin's account.
func (h *AdminAuthHandler) Profile(c echo.Context) error {
	p, ok := middleware.Principal(c)
	if !ok {
		return respondErr(c, http.StatusUnauthorized, "Unauthenticated")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	a, err := h.Admins.GetByID(ctx, p.ID)
	if err != nil {
		return respondErr(c, http.StatusNotFound, "Admin not found")
	}
	return respondOK(c, http.StatusOK, "OK", adminJSON(a))
}

// Logout revokes the session token used on this request.
func (h *AdminAuthHandler) Logout(c echo.Context) error {
	return logout(c, h.Tokens)
}
