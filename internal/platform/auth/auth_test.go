package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func TestIssueAndVerify(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)
	userID := uuid.New()

	token, err := issuer.Issue(userID, "ana@example.com", "patient")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	claims, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if claims.Subject != userID.String() {
		t.Errorf("expected subject %s, got %s", userID, claims.Subject)
	}
	if claims.Username != "ana@example.com" {
		t.Errorf("unexpected username %s", claims.Username)
	}
	if claims.Role != "patient" {
		t.Errorf("unexpected role %s", claims.Role)
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	token, err := NewTokenIssuer("secret-a", time.Hour).Issue(uuid.New(), "u", "doctor")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := NewTokenIssuer("secret-b", time.Hour).Verify(token); err == nil {
		t.Error("expected verification to fail with wrong secret")
	}
}

func TestVerify_Expired(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", -time.Minute)
	token, err := issuer.Issue(uuid.New(), "u", "doctor")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := issuer.Verify(token); err == nil {
		t.Error("expected verification to fail for expired token")
	}
}

func TestJWTMiddleware(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)
	userID := uuid.New()
	token, _ := issuer.Issue(userID, "ana@example.com", "receptionist")

	e := echo.New()
	handler := func(c echo.Context) error {
		ctx := c.Request().Context()
		if UserIDFromContext(ctx) != userID.String() {
			t.Errorf("wrong user id in context: %s", UserIDFromContext(ctx))
		}
		if RoleFromContext(ctx) != "receptionist" {
			t.Errorf("wrong role in context: %s", RoleFromContext(ctx))
		}
		return c.String(http.StatusOK, "ok")
	}

	mw := JWTMiddleware(issuer)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	if err := mw(handler)(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Missing header
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	rec = httptest.NewRecorder()
	err := mw(handler)(e.NewContext(req, rec))
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for missing header, got %v", err)
	}

	// Garbage token
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec = httptest.NewRecorder()
	err = mw(handler)(e.NewContext(req, rec))
	httpErr, ok = err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for bad token, got %v", err)
	}
}

func TestDevAuthMiddleware_IdentityIsParseableUUID(t *testing.T) {
	e := echo.New()
	handler := func(c echo.Context) error {
		uid := UserIDFromContext(c.Request().Context())
		// Handlers parse the caller's id; the dev identity must survive that.
		if _, err := uuid.Parse(uid); err != nil {
			t.Errorf("dev user id %q is not a valid uuid: %v", uid, err)
		}
		if uid != DevUserID {
			t.Errorf("expected dev identity, got %q", uid)
		}
		if RoleFromContext(c.Request().Context()) != "admin" {
			t.Errorf("expected admin role, got %q", RoleFromContext(c.Request().Context()))
		}
		return c.String(http.StatusOK, "ok")
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	if err := DevAuthMiddleware()(handler)(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRequireRole(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)
	e := echo.New()
	handler := func(c echo.Context) error { return c.String(http.StatusOK, "ok") }

	call := func(role string, mw echo.MiddlewareFunc) error {
		token, _ := issuer.Issue(uuid.New(), "u", role)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		return JWTMiddleware(issuer)(mw(handler))(c)
	}

	if err := call("doctor", RequireRole("doctor")); err != nil {
		t.Errorf("doctor should pass doctor check: %v", err)
	}
	if err := call("admin", RequireRole("doctor")); err != nil {
		t.Errorf("admin should pass any check: %v", err)
	}
	err := call("patient", RequireRole("doctor", "receptionist"))
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusForbidden {
		t.Errorf("expected 403 for patient, got %v", err)
	}
}

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("s3cret-pw")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hash == "s3cret-pw" {
		t.Error("hash must not equal plaintext")
	}
	if !CheckPassword(hash, "s3cret-pw") {
		t.Error("expected password to match its hash")
	}
	if CheckPassword(hash, "wrong") {
		t.Error("expected wrong password to fail")
	}
}

func TestHashPassword_Empty(t *testing.T) {
	if _, err := HashPassword(""); err == nil {
		t.Error("expected error for empty password")
	}
}
