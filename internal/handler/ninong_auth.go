package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/giosicat/inaanak-portal/internal/config"
	"github.com/giosicat/inaanak-portal/internal/middleware"
	"github.com/giosicat/inaanak-portal/internal/model"
	"github.com/giosicat/inaanak-portal/internal/queue"
	"github.com/giosicat/inaanak-portal/internal/repository"
	"github.com/giosicat/inaanak-portal/internal/utils"
)

// verificationCodeTTL bounds how long an emailed code stays usable.
const verificationCodeTTL = 10 * time.Minute

// NinongAuthHandler serves sponsor account endpoints, including the
// email verification flow that gates invite issuance.
type NinongAuthHandler struct {
	Cfg     config.Config
	Ninongs NinongStore
	Tokens  TokenStore
	Events  Dispatcher
}

func NewNinongAuthHandler(cfg config.Config, n NinongStore, t TokenStore, d Dispatcher) *NinongAuthHandler {
	return &NinongAuthHandler{Cfg: cfg, Ninongs: n, Tokens: t, Events: d}
}

// ----- DTOs -----

type ninongRegisterReq struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type verifyCodeReq struct {
	Code string `json:"code"`
}

type ninongPart struct {
	ID            uint64    `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	EmailVerified bool      `json:"email_verified"`
	CreatedAt     time.Time `json:"created_at"`
}

func ninongJSON(n model.Ninong) ninongPart {
	return ninongPart{
		ID:            n.ID,
		Name:          n.Name,
		Email:         n.Email,
		EmailVerified: n.Verified(),
		CreatedAt:     n.CreatedAt,
	}
}

// Register creates a sponsor account, stores a hashed one-time
// verification code and emails the plain code.  The account starts
// unverified: it can log in and view its profile, but cannot issue
// invites until the code is confirmed.
func (h *NinongAuthHandler) Register(c echo.Context) error {
	var req ninongRegisterReq
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
	if msg := utils.CheckPasswordStrength(req.Password, true); msg != "" {
		errs["password"] = append(errs["password"], msg)
	}
	if len(errs) > 0 {
		return respondInvalid(c, errs)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	passHash, err := utils.HashPassword(req.Password, h.Cfg.BcryptCost)
	if err != nil {
		return respondErr(c, http.StatusInternalServerError, "Registration failed")
	}
	code, err := utils.NewVerificationCode()
	if err != nil {
		return respondErr(c, http.StatusInternalServerError, "Registration failed")
	}
	codeHash, err := utils.HashPassword(code, h.Cfg.BcryptCost)
	if err != nil {
		return respondErr(c, http.StatusInternalServerError, "Registration failed")
	}

	var token string
	n, err := h.Ninongs.Register(ctx, req.Name, req.Email, passHash, codeHash,
		time.Now().UTC().Add(verificationCodeTTL),
		func(id uint64) (string, error) {
			t, err := utils.NewBearerToken(h.Cfg.TokenSecret, "ninong", id)
			if err != nil {
				return "", err
			}
			token = t
			return utils.HashToken(t), nil
		})
	if err != nil {
		if err == repository.ErrEmailExists {
			return respondInvalid(c, map[string][]string{
				"email": {"The email has already been taken."},
			})
		}
		return respondErr(c, http.StatusInternalServerError, "Registration failed")
	}

	go h.dispatchCode(n, code)

	return respondOK(c, http.StatusCreated,
		"Registration successful. Please check your email for the verification code.",
		echo.Map{"token": token, "ninong": ninongJSON(n), "must_verify_email": true})
}

// Login authenticates a sponsor.  Unverified sponsors may log in; the
// verification gate applies only to invite issuance.
func (h *NinongAuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return respondErr(c, http.StatusBadRequest, "Invalid request body")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	n, err := h.Ninongs.GetByEmail(ctx, req.Email)
	if err != nil || !utils.VerifyPassword(n.PasswordHash, req.Password) {
		return respondErr(c, http.StatusUnauthorized, "Invalid credentials")
	}

	token, err := issueToken(ctx, h.Cfg.TokenSecret, h.Tokens, "ninong", n.ID)
	if err != nil {
		return respondErr(c, http.StatusInternalServerError, "Login failed")
	}
	return respondOK(c, http.StatusOK, "Login successful", echo.Map{
		"token":             token,
		"ninong":            ninongJSON(n),
		"must_verify_email": !n.Verified(),
	})
}

// VerifyCode confirms the 6-digit code emailed at registration.
func (h *NinongAuthHandler) VerifyCode(c echo.Context) error {
	p, ok := middleware.Principal(c)
	if !ok {
		return respondErr(c, http.StatusUnauthorized, "Unauthenticated")
	}
	var req verifyCodeReq
	if err := c.Bind(&req); err != nil {
		return respondErr(c, http.StatusBadRequest, "Invalid request body")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	switch err := h.Ninongs.VerifyCode(ctx, p.ID, req.Code, utils.VerifyPassword); {
	case errors.Is(err, repository.ErrNotFound):
		return respondErr(c, http.StatusNotFound, "Ninong not found")
	case errors.Is(err, repository.ErrAlreadyVerified):
		return respondErr(c, http.StatusBadRequest, "Email is already verified.")
	case errors.Is(err, repository.ErrCodeExpired):
		return respondErr(c, http.StatusUnprocessableEntity, "Verification code has expired.")
	case errors.Is(err, repository.ErrCodeInvalid):
		return respondErr(c, http.StatusUnprocessableEntity, "Invalid verification code.")
	case err != nil:
		return respondErr(c, http.StatusInternalServerError, "Verification failed")
	}

	n, err := h.Ninongs.GetByID(ctx, p.ID)
	if err != nil {
		return respondErr(c, http.StatusInternalServerError, "Verification failed")
	}
	return respondOK(c, http.StatusOK, "Email verified successfully.", ninongJSON(n))
}

// ResendCode replaces any pending code with a fresh one and emails it.
func (h *NinongAuthHandler) ResendCode(c echo.Context) error {
	p, ok := middleware.Principal(c)
	if !ok {
		return respondErr(c, http.StatusUnauthorized, "Unauthenticated")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	n, err := h.Ninongs.GetByID(ctx, p.ID)
	if err != nil {
		return respondErr(c, http.StatusNotFound, "Ninong not found")
	}
	if n.Verified() {
		return respondErr(c, http.StatusBadRequest, "Email is already verified.")
	}

	code, err := utils.NewVerificationCode()
	if err != nil {
		return respondErr(c, http.StatusInternalServerError, "Could not send verification code")
	}
	codeHash, err := utils.HashPassword(code, h.Cfg.BcryptCost)
	if err != nil {
		return respondErr(c, http.StatusInternalServerError, "Could not send verification code")
	}
	if err := h.Ninongs.StoreVerificationCode(ctx, n.ID, codeHash, time.Now().UTC().Add(verificationCodeTTL)); err != nil {
		return respondErr(c, http.StatusInternalServerError, "Could not send verification code")
	}

	go h.dispatchCode(n, code)

	return respondOK(c, http.StatusOK, "Verification code sent.", nil)
}

// Profile returns the authenticated sponsor's account.
func (h *NinongAuthHandler) Profile(c echo.Context) error {
	p, ok := middleware.Principal(c)
	if !ok {
		return respondErr(c, http.StatusUnauthorized, "Unauthenticated")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	n, err := h.Ninongs.GetByID(ctx, p.ID)
	if err != nil {
		return respondErr(c, http.StatusNotFound, "Ninong not found")
	}
	return respondOK(c, http.StatusOK, "OK", ninongJSON(n))
}

// Logout revokes the session token used on this request.
func (h *NinongAuthHandler) Logout(c echo.Context) error {
	return logout(c, h.Tokens)
}

func (h *NinongAuthHandler) dispatchCode(n model.Ninong, code string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = h.Events.Publish(ctx, queue.TypeVerifyEmail, queue.VerifyEmailEvent{
		Name:  n.Name,
		Email: n.Email,
		Code:  code,
	})
}
