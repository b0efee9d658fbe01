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

// GuardianAuthHandler serves guardian account endpoints.
type GuardianAuthHandler struct {
	Cfg       config.Config
	Guardians GuardianStore
	Tokens    TokenStore
}

func NewGuardianAuthHandler(cfg config.Config, g GuardianStore, t TokenStore) *GuardianAuthHandler {
	return &GuardianAuthHandler{Cfg: cfg, Guardians: g, Tokens: t}
}

// ----- DTOs -----

type guardianRegisterReq struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	Password      string `json:"password"`
	ContactNumber string `json:"contact_number"`
	Address       string `json:"address"`
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type guardianPart struct {
	ID            uint64    `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	ContactNumber string    `json:"contact_number"`
	Address       string    `json:"address"`
	CreatedAt     time.Time `json:"created_at"`
}

func guardianJSON(g model.Guardian) guardianPart {
	return guardianPart{
		ID:            g.ID,
		Name:          g.Name,
		Email:         g.Email,
		ContactNumber: g.ContactNumber,
		Address:       g.Address,
		CreatedAt:     g.CreatedAt,
	}
}

// Register creates a guardian account and returns a session token.
func (h *GuardianAuthHandler) Register(c echo.Context) error {
	var req guardianRegisterReq
	if err := c.Bind(&req); err != nil {
		return respondErr(c, http.StatusBadRequest, "Invalid request body")
	}
	req.Email = strings.TrimSpace(req.Email)
	req.Name = strings.TrimSpace(req.Name)

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
	id, err := h.Guardians.Create(ctx, req.Name, req.Email, hash, req.ContactNumber, req.Address)
	if err == repository.ErrEmailExists {
		// A guardian created implicitly by a submission has no
		// password yet; explicit registration claims that account
		// instead of rejecting the email.
		existing, lookupErr := h.Guardians.GetByEmail(ctx, req.Email)
		if lookupErr != nil || existing.CanLogin() {
			return respondInvalid(c, map[string][]string{
				"email": {"The email has already been taken."},
			})
		}
		if err := h.Guardians.SetPassword(ctx, existing.ID, hash); err != nil {
			return respondErr(c, http.StatusInternalServerError, "Registration failed")
		}
		id = existing.ID
	} else if err != nil {
		return respondErr(c, http.StatusInternalServerError, "Registration failed")
	}

	token, err := issueToken(ctx, h.Cfg.TokenSecret, h.Tokens, "guardian", id)
	if err != nil {
		return respondErr(c, http.StatusInternalServerError, "Registration failed")
	}
	g, err := h.Guardians.GetByID(ctx, id)
	if err != nil {
		return respondErr(c, http.StatusInternalServerError, "Registration failed")
	}
	return respondOK(c, http.StatusCreated, "Registration successful", echo.Map{
		"token":    token,
		"guardian": guardianJSON(g),
	})
}

// Login authenticates a guardian by email and password.  Guardians
// created implicitly during a registration submission have no password
// yet and cannot log in until one is set.
func (h *GuardianAuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return respondErr(c, http.StatusBadRequest, "Invalid request body")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	g, err := h.Guardians.GetByEmail(ctx, req.Email)
	if err != nil || !g.CanLogin() || !utils.VerifyPassword(*g.PasswordHash, req.Password) {
		return respondErr(c, http.StatusUnauthorized, "Invalid credentials")
	}

	token, err := issueToken(ctx, h.Cfg.TokenSecret, h.Tokens, "guardian", g.ID)
	if err != nil {
		return respondErr(c, http.StatusInternalServerError, "Login failed")
	}
	return respondOK(c, http.StatusOK, "Login successful", echo.Map{
		"token":    token,
		"guardian": guardianJSON(g),
	})
}

// Profile returns the authenticated guardian's account.
func (h *GuardianAuthHandler) Profile(c echo.Context) error {
	p, ok := middleware.Principal(c)
	if !ok {
		return respondErr(c, http.StatusUnauthorized, "Unauthenticated")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	g, err := h.Guardians.GetByID(ctx, p.ID)
	if err != nil {
		return respondErr(c, http.StatusNotFound, "Guardian not found")
	}
	return respondOK(c, http.StatusOK, "OK", guardianJSON(g))
}

// Logout revokes the session token used on this request.  Other
// sessions of the same guardian stay valid.
func (h *GuardianAuthHandler) Logout(c echo.Context) error {
	return logout(c, h.Tokens)
}

// issueToken mints a bearer token and records its hash so it can be
// revoked later.  Shared by all three principal namespaces.
func issueToken(ctx context.Context, secret string, tokens TokenStore, principalType string, principalID uint64) (string, error) {
	token, err := utils.NewBearerToken(secret, principalType, principalID)
	if err != nil {
		return "", err
	}
	if err := tokens.Store(ctx, utils.HashToken(token), principalType, principalID); err != nil {
		return "", err
	}
	return token, nil
}

func logout(c echo.Context, tokens TokenStore) error {
	hash := middleware.TokenHash(c)
	if hash == "" {
		return respondErr(c, http.StatusUnauthorized, "Unauthenticated")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := tokens.Delete(ctx, hash); err != nil {
		return respondErr(c, http.StatusInternalServerError, "Logout failed")
	}
	return respondOK(c, http.StatusOK, "Logged out", nil)
}
