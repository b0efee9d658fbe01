package handler

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/giosicat/inaanak-portal/internal/model"
	"github.com/giosicat/inaanak-portal/internal/utils"
)

func adminFixture(t *testing.T) *fakeAdminStore {
	t.Helper()
	hash, err := utils.HashPassword("admin-pass", 4)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return &fakeAdminStore{admins: map[uint64]model.Admin{
		1: {ID: 1, Name: "Admin", Email: "admin@example.com", PasswordHash: hash},
	}}
}

func TestAdminRegister(t *testing.T) {
	store := &fakeAdminStore{}
	tokens := &fakeTokenStore{}
	h := NewAdminAuthHandler(testCfg, store, tokens, &fakeCaptcha{})

	rec := jsonRequest(t, h.Register,
		`{"name":"Root","email":"root@example.com","password":"admin-pass"}`, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("code %d, body %s", rec.Code, rec.Body.String())
	}
	if len(tokens.stored) != 1 || tokens.stored[0].PrincipalType != "admin" {
		t.Fatalf("tokens %+v", tokens.stored)
	}

	rec = jsonRequest(t, h.Register,
		`{"name":"Clone","email":"root@example.com","password":"admin-pass"}`, nil)
	if rec.Code != http.StatusUnprocessableEntity || !strings.Contains(rec.Body.String(), "already been taken") {
		t.Fatalf("code %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestAdminLogin(t *testing.T) {
	tokens := &fakeTokenStore{}
	h := NewAdminAuthHandler(testCfg, adminFixture(t), tokens, &fakeCaptcha{})

	rec := jsonRequest(t, h.Login, `{"email":"admin@example.com","password":"admin-pass"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("code %d, body %s", rec.Code, rec.Body.String())
	}
	if len(tokens.stored) != 1 || tokens.stored[0].PrincipalType != "admin" {
		t.Fatalf("tokens %+v", tokens.stored)
	}

	rec = jsonRequest(t, h.Login, `{"email":"admin@example.com","password":"wrong"}`, nil)
	if rec.Code != http.StatusUnauthorized || !strings.Contains(rec.Body.String(), "Invalid credentials") {
		t.Fatalf("code %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestAdminLoginCaptcha(t *testing.T) {
	// Captcha failure must short-circuit before credentials are
	// checked, even with a correct password.
	h := NewAdminAuthHandler(testCfg, adminFixture(t), &fakeTokenStore{},
		&fakeCaptcha{enabled: true, err: errors.New("bad captcha")})

	rec := jsonRequest(t, h.Login,
		`{"email":"admin@example.com","password":"admin-pass","captcha_token":"resp"}`, nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("code %d, body %s", rec.Code, rec.Body.String())
	}

	ok := NewAdminAuthHandler(testCfg, adminFixture(t), &fakeTokenStore{},
		&fakeCaptcha{enabled: true})
	rec = jsonRequest(t, ok.Login,
		`{"email":"admin@example.com","password":"admin-pass","captcha_token":"resp"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("code %d, body %s", rec.Code, rec.Body.String())
	}
}
