package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/giosicat/inaanak-portal/internal/middleware"
	"github.com/giosicat/inaanak-portal/internal/model"
)

// InviteHandler serves sponsor invite management.  Routes are mounted
// behind the verified-ninong gate, so every principal reaching these
// handlers has a confirmed email.
type InviteHandler struct {
	Invites  InviteStore
	RegStore RegistrationStore
}

func NewInviteHandler(i InviteStore, r RegistrationStore) *InviteHandler {
	return &InviteHandler{Invites: i, RegStore: r}
}

// ----- DTOs -----

type createInviteReq struct {
	UsageLimit *uint32 `json:"usage_limit"`
	ExpiresAt  *string `json:"expires_at"` // RFC 3339 or YYYY-MM-DD, optional
}

// parseExpiry accepts a full RFC 3339 timestamp or a bare date, which
// is read as midnight UTC.
func parseExpiry(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}

type invitePart struct {
	ID         uint64     `json:"id"`
	Code       string     `json:"code"`
	UsageLimit *uint32    `json:"usage_limit"`
	UsedCount  uint32     `json:"used_count"`
	ExpiresAt  *time.Time `json:"expires_at"`
	CreatedAt  time.Time  `json:"created_at"`
}

func inviteJSON(i model.Invite) invitePart {
	return invitePart{
		ID:         i.ID,
		Code:       i.Code,
		UsageLimit: i.UsageLimit,
		UsedCount:  i.UsedCount,
		ExpiresAt:  i.ExpiresAt,
		CreatedAt:  i.CreatedAt,
	}
}

// Create issues a new invite code for the authenticated sponsor.
// usage_limit null means unlimited; expires_at null means no expiry.
func (h *InviteHandler) Create(c echo.Context) error {
	p, ok := middleware.Principal(c)
	if !ok {
		return respondErr(c, http.StatusUnauthorized, "Unauthenticated")
	}
	var req createInviteReq
	if err := c.Bind(&req); err != nil {
		return respondErr(c, http.StatusBadRequest, "Invalid request body")
	}
	if req.UsageLimit != nil && *req.UsageLimit < 1 {
		return respondInvalid(c, map[string][]string{
			"usage_limit": {"The usage limit must be at least 1."},
		})
	}
	var expiresAt *time.Time
	if req.ExpiresAt != nil && *req.ExpiresAt != "" {
		t, err := parseExpiry(*req.ExpiresAt)
		if err != nil {
			return respondInvalid(c, map[string][]string{
				"expires_at": {"The expires at field must be a valid date."},
			})
		}
		if !t.After(time.Now()) {
			return respondInvalid(c, map[string][]string{
				"expires_at": {"The expires at field must be a date in the future."},
			})
		}
		u := t.UTC()
		expiresAt = &u
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	inv, err := h.Invites.Create(ctx, p.ID, req.UsageLimit, expiresAt)
	if err != nil {
		return respondErr(c, http.StatusInternalServerError, "Could not create invite code")
	}
	return respondOK(c, http.StatusCreated, "Invite code created.", inviteJSON(inv))
}

// List returns the sponsor's invites, newest first.
func (h *InviteHandler) List(c echo.Context) error {
	p, ok := middleware.Principal(c)
	if !ok {
		return respondErr(c, http.StatusUnauthorized, "Unauthenticated")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	invites, err := h.Invites.ListByNinong(ctx, p.ID)
	if err != nil {
		return respondErr(c, http.StatusInternalServerError, "Could not list invite codes")
	}
	out := make([]invitePart, 0, len(invites))
	for _, i := range invites {
		out = append(out, inviteJSON(i))
	}
	return respondOK(c, http.StatusOK, "OK", out)
}

// Registrations returns the registrations submitted through the
// sponsor's invite codes.
func (h *InviteHandler) Registrations(c echo.Context) error {
	p, ok := middleware.Principal(c)
	if !ok {
		return respondErr(c, http.StatusUnauthorized, "Unauthenticated")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	details, err := h.RegStore.ListByNinong(ctx, p.ID)
	if err != nil {
		return respondErr(c, http.StatusInternalServerError, "Could not list registrations")
	}
	out := make([]registrationDetailPart, 0, len(details))
	for _, d := range details {
		out = append(out, registrationDetailJSON(d))
	}
	return respondOK(c, http.StatusOK, "OK", out)
}
