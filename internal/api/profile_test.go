package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/clinicopilot/server/domain/entities"
)

func (f *fakeUsers) Update(ctx context.Context, user *entities.User) error {
	f.user = user
	return nil
}

func TestGetProfileReturnsCurrentUser(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+env.token)
	rec := httptest.NewRecorder()
	env.echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var user entities.User
	if err := json.Unmarshal(rec.Body.Bytes(), &user); err != nil {
		t.Fatalf("invalid body: %v", err)
	}
	if user.Email != "alex@example.com" {
		t.Errorf("email = %q", user.Email)
	}
}

func TestUpdateProfileAppliesPartialChanges(t *testing.T) {
	env := newTestEnv(t)

	body := `{"last_name":"Nakamura","key_terms":["ACL","meniscus"]}`
	req := httptest.NewRequest(http.MethodPut, "/api/v1/users/me", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+env.token)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	env.echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body.String())
	}

	stored := env.users.user
	if stored.LastName != "Nakamura" {
		t.Errorf("last name = %q, want Nakamura", stored.LastName)
	}
	if stored.FirstName != "Alex" {
		t.Errorf("first name must be untouched, got %q", stored.FirstName)
	}
	if len(stored.KeyTerms) != 2 || stored.KeyTerms[0] != "ACL" {
		t.Errorf("key terms = %v", stored.KeyTerms)
	}
}

func TestUpdateProfileRejectsUnknownProfession(t *testing.T) {
	env := newTestEnv(t)

	body := `{"profession":"Astronaut"}`
	req := httptest.NewRequest(http.MethodPut, "/api/v1/users/me", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+env.token)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	env.echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
