package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/giosicat/inaanak-portal/internal/authz"
)

func runGuard(t *testing.T, mw echo.MiddlewareFunc, p *authz.Principal) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if p != nil {
		SetPrincipal(c, *p)
	}
	handler := mw(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	if err := handler(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	return rec
}

func TestRequireKind(t *testing.T) {
	mw := RequireKind(authz.KindGuardian)

	if rec := runGuard(t, mw, &authz.Principal{Kind: authz.KindGuardian, ID: 1}); rec.Code != http.StatusOK {
		t.Fatalf("guardian: got %d", rec.Code)
	}
	if rec := runGuard(t, mw, &authz.Principal{Kind: authz.KindNinong, ID: 1}); rec.Code != http.StatusForbidden {
		t.Fatalf("ninong on guardian route: got %d", rec.Code)
	}
	if rec := runGuard(t, mw, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("no principal: got %d", rec.Code)
	}
}

func TestRequireKindMultiple(t *testing.T) {
	mw := RequireKind(authz.KindGuardian, authz.KindAdmin)
	if rec := runGuard(t, mw, &authz.Principal{Kind: authz.KindAdmin, ID: 1}); rec.Code != http.StatusOK {
		t.Fatalf("admin: got %d", rec.Code)
	}
}

func TestRequireVerified(t *testing.T) {
	mw := RequireVerified()

	unverified := authz.Principal{Kind: authz.KindNinong, ID: 1}
	if rec := runGuard(t, mw, &unverified); rec.Code != http.StatusForbidden {
		t.Fatalf("unverified ninong: got %d", rec.Code)
	}
	verified := authz.Principal{Kind: authz.KindNinong, ID: 1, Verified: true}
	if rec := runGuard(t, mw, &verified); rec.Code != http.StatusOK {
		t.Fatalf("verified ninong: got %d", rec.Code)
	}
}
