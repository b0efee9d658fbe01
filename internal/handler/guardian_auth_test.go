package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/giosicat/inaanak-portal/internal/authz"
	"github.com/giosicat/inaanak-portal/internal/config"
	"github.com/giosicat/inaanak-portal/internal/middleware"
	"github.com/giosicat/inaanak-portal/internal/model"
	"github.com/giosicat/inaanak-portal/internal/repository"
	"github.com/giosicat/inaanak-portal/internal/utils"
)

var testCfg = config.Config{TokenSecret: "test-secret", BcryptCost: 4}

func jsonRequest(t *testing.T, fn echo.HandlerFunc, body string, prep func(echo.Context)) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if prep != nil {
		prep(c)
	}
	if err := fn(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	return rec
}

func TestGuardianRegister(t *testing.T) {
	guardians := newFakeGuardianStore()
	tokens := &fakeTokenStore{}
	h := NewGuardianAuthHandler(testCfg, guardians, tokens)

	rec := jsonRequest(t, h.Register,
		`{"name":"Maria Santos","email":"maria@example.com","password":"longenough","contact_number":"0917","address":"Manila"}`, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("code %d, body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			Token    string       `json:"token"`
			Guardian guardianPart `json:"guardian"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success || resp.Data.Token == "" {
		t.Fatalf("unexpected response: %s", rec.Body.String())
	}

	// The issued token must be a valid guardian token whose hash was
	// persisted for later revocation.
	claims, err := utils.ParseBearerToken(testCfg.TokenSecret, resp.Data.Token)
	if err != nil || claims.PrincipalType != "guardian" {
		t.Fatalf("token claims %+v err %v", claims, err)
	}
	if len(tokens.stored) != 1 || tokens.stored[0].TokenHash != utils.HashToken(resp.Data.Token) {
		t.Fatalf("token store %+v", tokens.stored)
	}
}

func TestGuardianRegisterDuplicateEmail(t *testing.T) {
	guardians := newFakeGuardianStore()
	guardians.createErr = repository.ErrEmailExists
	h := NewGuardianAuthHandler(testCfg, guardians, &fakeTokenStore{})

	rec := jsonRequest(t, h.Register,
		`{"name":"Maria","email":"maria@example.com","password":"longenough"}`, nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("code %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "already been taken") {
		t.Fatalf("body %s", rec.Body.String())
	}
}

func TestGuardianRegisterClaimsImplicitAccount(t *testing.T) {
	guardians := newFakeGuardianStore()
	implicit := guardians.add(model.Guardian{Name: "Maria Santos", Email: "maria@example.com"})
	guardians.createErr = repository.ErrEmailExists
	tokens := &fakeTokenStore{}
	h := NewGuardianAuthHandler(testCfg, guardians, tokens)

	rec := jsonRequest(t, h.Register,
		`{"name":"Maria Santos","email":"maria@example.com","password":"longenough"}`, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("code %d, body %s", rec.Code, rec.Body.String())
	}
	claimed, _ := guardians.GetByID(nil, implicit.ID)
	if !claimed.CanLogin() {
		t.Fatal("implicit account should have a usable password after claiming")
	}
	if len(tokens.stored) != 1 || tokens.stored[0].PrincipalID != implicit.ID {
		t.Fatalf("tokens %+v", tokens.stored)
	}
}

func TestGuardianRegisterWeakPassword(t *testing.T) {
	h := NewGuardianAuthHandler(testCfg, newFakeGuardianStore(), &fakeTokenStore{})
	rec := jsonRequest(t, h.Register,
		`{"name":"Maria","email":"maria@example.com","password":"short"}`, nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("code %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestGuardianLogin(t *testing.T) {
	guardians := newFakeGuardianStore()
	hash, _ := utils.HashPassword("correct-pass", 4)
	guardians.add(model.Guardian{Email: "maria@example.com", PasswordHash: &hash})
	// Implicitly created guardian: no password hash at all.
	guardians.add(model.Guardian{Email: "implicit@example.com"})
	tokens := &fakeTokenStore{}
	h := NewGuardianAuthHandler(testCfg, guardians, tokens)

	cases := []struct {
		name string
		body string
		code int
	}{
		{"success", `{"email":"maria@example.com","password":"correct-pass"}`, http.StatusOK},
		{"wrong password", `{"email":"maria@example.com","password":"nope"}`, http.StatusUnauthorized},
		{"unknown email", `{"email":"ghost@example.com","password":"correct-pass"}`, http.StatusUnauthorized},
		{"passwordless account", `{"email":"implicit@example.com","password":"anything"}`, http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := jsonRequest(t, h.Login, tc.body, nil)
			if rec.Code != tc.code {
				t.Fatalf("code %d, want %d: %s", rec.Code, tc.code, rec.Body.String())
			}
			if tc.code == http.StatusUnauthorized && !strings.Contains(rec.Body.String(), "Invalid credentials") {
				t.Fatalf("body %s", rec.Body.String())
			}
		})
	}
}

func TestGuardianLogoutRevokesOnlyThisSession(t *testing.T) {
	tokens := &fakeTokenStore{}
	h := NewGuardianAuthHandler(testCfg, newFakeGuardianStore(), tokens)

	rec := jsonRequest(t, h.Logout, `{}`, func(c echo.Context) {
		middleware.SetPrincipal(c, authz.Principal{Kind: authz.KindGuardian, ID: 1})
		middleware.SetTokenHash(c, "session-hash")
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("code %d", rec.Code)
	}
	if len(tokens.deleted) != 1 || tokens.deleted[0] != "session-hash" {
		t.Fatalf("deleted %v", tokens.deleted)
	}
}
