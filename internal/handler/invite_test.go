package handler

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/giosicat/inaanak-portal/internal/authz"
	"github.com/giosicat/inaanak-portal/internal/middleware"
)

func asVerifiedNinong(id uint64) func(echo.Context) {
	return func(c echo.Context) {
		middleware.SetPrincipal(c, authz.Principal{Kind: authz.KindNinong, ID: id, Verified: true})
	}
}

func TestCreateInvite(t *testing.T) {
	invites := &fakeInviteStore{}
	h := NewInviteHandler(invites, newFakeRegistrationStore())

	rec := jsonRequest(t, h.Create, `{"usage_limit":3}`, asVerifiedNinong(9))
	if rec.Code != http.StatusCreated {
		t.Fatalf("code %d, body %s", rec.Code, rec.Body.String())
	}
	if len(invites.created) != 1 {
		t.Fatalf("created %v", invites.created)
	}
	inv := invites.created[0]
	if inv.NinongID != 9 || inv.UsageLimit == nil || *inv.UsageLimit != 3 {
		t.Fatalf("invite %+v", inv)
	}
	if !strings.Contains(rec.Body.String(), inv.Code) {
		t.Fatalf("body missing code: %s", rec.Body.String())
	}
}

func TestCreateInviteUnlimited(t *testing.T) {
	invites := &fakeInviteStore{}
	h := NewInviteHandler(invites, newFakeRegistrationStore())

	rec := jsonRequest(t, h.Create, `{}`, asVerifiedNinong(9))
	if rec.Code != http.StatusCreated {
		t.Fatalf("code %d", rec.Code)
	}
	if invites.created[0].UsageLimit != nil || invites.created[0].ExpiresAt != nil {
		t.Fatalf("invite %+v", invites.created[0])
	}
}

func TestCreateInviteDateOnlyExpiry(t *testing.T) {
	invites := &fakeInviteStore{}
	h := NewInviteHandler(invites, newFakeRegistrationStore())

	day := time.Now().UTC().AddDate(1, 0, 0).Format("2006-01-02")
	rec := jsonRequest(t, h.Create, `{"expires_at":"`+day+`"}`, asVerifiedNinong(9))
	if rec.Code != http.StatusCreated {
		t.Fatalf("code %d, body %s", rec.Code, rec.Body.String())
	}
	got := invites.created[0].ExpiresAt
	if got == nil || got.Format("2006-01-02") != day {
		t.Fatalf("expires_at %v, want %s", got, day)
	}
}

func TestCreateInviteValidation(t *testing.T) {
	h := NewInviteHandler(&fakeInviteStore{}, newFakeRegistrationStore())

	rec := jsonRequest(t, h.Create, `{"usage_limit":0}`, asVerifiedNinong(9))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("zero limit: code %d", rec.Code)
	}
	rec = jsonRequest(t, h.Create, `{"expires_at":"yesterday"}`, asVerifiedNinong(9))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("bad date: code %d", rec.Code)
	}
	past := time.Now().Add(-time.Hour).Format(time.RFC3339)
	rec = jsonRequest(t, h.Create, `{"expires_at":"`+past+`"}`, asVerifiedNinong(9))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("past date: code %d", rec.Code)
	}
}

func TestListInvites(t *testing.T) {
	invites := &fakeInviteStore{}
	h := NewInviteHandler(invites, newFakeRegistrationStore())

	if _, err := invites.Create(nil, 9, nil, nil); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := invites.Create(nil, 8, nil, nil); err != nil {
		t.Fatalf("seed: %v", err)
	}

	rec := jsonRequest(t, h.List, `{}`, asVerifiedNinong(9))
	if rec.Code != http.StatusOK {
		t.Fatalf("code %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "CODE0001") || strings.Contains(body, "CODE0002") {
		t.Fatalf("expected only own invites: %s", body)
	}
}
