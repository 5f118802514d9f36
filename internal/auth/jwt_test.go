package auth

import (
	"testing"
	"time"

	"github.com/clinicopilot/server/domain/entities"
)

func testUser() *entities.User {
	return &entities.User{
		ID:         "user-1",
		Email:      "doc@example.com",
		FirstName:  "Alex",
		LastName:   "Reed",
		Profession: entities.ProfessionPhysiotherapist,
	}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("access-secret", "refresh-secret")

	token, err := issuer.GenerateAccessToken(testUser())
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	claims, err := issuer.ValidateAccessToken(token)
	if err != nil {
		t.Fatalf("ValidateAccessToken: %v", err)
	}
	if claims.UserID != "user-1" {
		t.Errorf("user id = %q, want user-1", claims.UserID)
	}
	if claims.Email != "doc@example.com" {
		t.Errorf("email = %q", claims.Email)
	}
	if claims.TokenType != TokenTypeAccess {
		t.Errorf("token type = %q", claims.TokenType)
	}
}

func TestRefreshTokenIsNotAnAccessToken(t *testing.T) {
	issuer := NewTokenIssuer("access-secret", "access-secret")

	refresh, _, err := issuer.GenerateRefreshToken("user-1", "doc@example.com")
	if err != nil {
		t.Fatalf("GenerateRefreshToken: %v", err)
	}

	if _, err := issuer.ValidateAccessToken(refresh); err == nil {
		t.Error("refresh token must not validate as an access token")
	}
	if _, err := issuer.ValidateRefreshToken(refresh); err != nil {
		t.Errorf("ValidateRefreshToken: %v", err)
	}
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	issuer := NewTokenIssuer("secret-a", "")
	other := NewTokenIssuer("secret-b", "")

	token, err := issuer.GenerateAccessToken(testUser())
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	if _, err := other.ValidateAccessToken(token); err == nil {
		t.Error("token signed with another secret must be rejected")
	}
}

func TestValidateRejectsGarbage(t *testing.T) {
	issuer := NewTokenIssuer("secret", "")
	for _, token := range []string{"", "not-a-token", "a.b.c"} {
		if _, err := issuer.ValidateAccessToken(token); err == nil {
			t.Errorf("expected rejection for %q", token)
		}
	}
}

func TestRefreshExpiryLandsAtFourAM(t *testing.T) {
	now := time.Date(2024, 3, 10, 15, 30, 0, 0, time.UTC)
	expiry := refreshExpiry(now)

	if expiry.Hour() != 4 || expiry.Minute() != 0 {
		t.Errorf("expiry = %s, want a 04:00 expiry", expiry)
	}
	if days := expiry.Sub(now).Hours() / 24; days < 13 || days > 14 {
		t.Errorf("expiry %s is not about fourteen days out", expiry)
	}
}
