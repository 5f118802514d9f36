package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/clinicopilot/server/domain/entities"
)

const (
	// TokenTypeAccess marks short-lived API tokens.
	TokenTypeAccess = "access"
	// TokenTypeRefresh marks the rotating refresh credential.
	TokenTypeRefresh = "refresh"

	accessTokenTTL = 7 * 24 * time.Hour
)

var ErrInvalidToken = errors.New("invalid or expired token")

// Claims represents the claims in our JWT tokens. Access tokens carry a
// whitelisted subset of the user record; refresh tokens carry identity only.
type Claims struct {
	UserID     string `json:"user_id"`
	Email      string `json:"email"`
	FirstName  string `json:"first_name,omitempty"`
	LastName   string `json:"last_name,omitempty"`
	Profession string `json:"profession,omitempty"`
	TokenType  string `json:"token_type"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and validates access and refresh tokens.
type TokenIssuer struct {
	secret        []byte
	refreshSecret []byte
}

func NewTokenIssuer(secret, refreshSecret string) *TokenIssuer {
	if refreshSecret == "" {
		refreshSecret = secret
	}
	return &TokenIssuer{
		secret:        []byte(secret),
		refreshSecret: []byte(refreshSecret),
	}
}

// GenerateAccessToken issues a 7-day access token with whitelisted claims.
func (i *TokenIssuer) GenerateAccessToken(user *entities.User) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:     user.ID,
		Email:      user.Email,
		FirstName:  user.FirstName,
		LastName:   user.LastName,
		Profession: string(user.Profession),
		TokenType:  TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(accessTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

// GenerateRefreshToken issues a minimal-claims refresh token expiring at
// 4 AM fourteen days out.
func (i *TokenIssuer) GenerateRefreshToken(userID, email string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := refreshExpiry(now)
	claims := &Claims{
		UserID:    userID,
		Email:     email,
		TokenType: TokenTypeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.refreshSecret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ValidateAccessToken validates an access token and returns its claims.
func (i *TokenIssuer) ValidateAccessToken(tokenString string) (*Claims, error) {
	return i.validate(tokenString, i.secret, TokenTypeAccess)
}

// ValidateRefreshToken validates a refresh token and returns its claims.
func (i *TokenIssuer) ValidateRefreshToken(tokenString string) (*Claims, error) {
	return i.validate(tokenString, i.refreshSecret, TokenTypeRefresh)
}

func (i *TokenIssuer) validate(tokenString string, secret []byte, tokenType string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.TokenType != tokenType || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func refreshExpiry(now time.Time) time.Time {
	target := now.AddDate(0, 0, 14)
	return time.Date(target.Year(), target.Month(), target.Day(), 4, 0, 0, 0, target.Location())
}
