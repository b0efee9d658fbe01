package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/giosicat/inaanak-portal/internal/repository"
)

// CheckStatusHandler serves the public, unauthenticated status
// lookup.  Possession of both the reference number and the guardian
// email acts as the credential.
type CheckStatusHandler struct {
	Registrations RegistrationStore
}

func NewCheckStatusHandler(r RegistrationStore) *CheckStatusHandler {
	return &CheckStatusHandler{Registrations: r}
}

// CheckStatus returns the status of a registration given its
// reference number and the guardian email it was submitted under.
// An unknown reference and a known reference with the wrong email
// produce the exact same 404, so the endpoint cannot be used to
// probe which references exist.
func (h *CheckStatusHandler) CheckStatus(c echo.Context) error {
	reference := strings.TrimSpace(c.Param("reference"))
	email := strings.TrimSpace(c.QueryParam("email"))
	if email == "" {
		return respondInvalid(c, map[string][]string{
			"email": {"The email field is required."},
		})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	reg, guardianEmail, err := h.Registrations.GetByReference(ctx, reference)
	if err != nil {
		if err == repository.ErrNotFound {
			return respondErr(c, http.StatusNotFound, "Registration not found")
		}
		return respondErr(c, http.StatusInternalServerError, "Could not check status")
	}
	if repository.NormalizeEmail(email) != guardianEmail {
		return respondErr(c, http.StatusNotFound, "Registration not found")
	}

	data := echo.Map{
		"reference_number": reg.ReferenceNumber,
		"status":           reg.Status,
		"submitted_at":     reg.CreatedAt,
	}
	if reg.RejectionReason != nil {
		data["rejection_reason"] = *reg.RejectionReason
	}
	return respondOK(c, http.StatusOK, "OK", data)
}
