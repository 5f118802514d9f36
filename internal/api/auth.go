package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/clinicopilot/server/adapters/mongo"
	"github.com/clinicopilot/server/domain/entities"
)

const accessTokenTTL = 7 * 24 * time.Hour

func (s *Server) register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}

	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_fields",
			Message: "Email and password are required",
		})
	}
	if len(req.Password) < 8 {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "weak_password",
			Message: "Password must be at least 8 characters",
		})
	}

	ctx := c.Request().Context()
	if existing, err := s.users.GetByEmail(ctx, req.Email); err == nil && existing != nil {
		return c.JSON(http.StatusConflict, ErrorResponse{
			Error:   "email_taken",
			Message: "An account with this email already exists",
		})
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("Failed to hash password", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to create account",
		})
	}

	user := &entities.User{
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: string(hash),
		Profession:   entities.Profession(req.Profession),
	}
	if err := user.Validate(); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: err.Error(),
		})
	}
	if err := s.users.Create(ctx, user); err != nil {
		s.logger.Error("Failed to create user", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to create account",
		})
	}

	s.logger.Info("Account registered",
		zap.String("user_id", user.ID),
		zap.String("profession", string(user.Profession)))

	return s.issueTokens(c, http.StatusCreated, user)
}

func (s *Server) login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}

	ctx := c.Request().Context()
	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil || user == nil {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "invalid_credentials",
			Message: "Invalid email or password",
		})
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.logger.Warn("Login rejected", zap.String("email", req.Email))
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "invalid_credentials",
			Message: "Invalid email or password",
		})
	}

	return s.issueTokens(c, http.StatusOK, user)
}

func (s *Server) refresh(c echo.Context) error {
	var req RefreshRequest
	if err := c.Bind(&req); err != nil || req.RefreshToken == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Refresh token is required",
		})
	}

	claims, err := s.issuer.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "invalid_token",
			Message: "Invalid or expired refresh token",
		})
	}

	ctx := c.Request().Context()

	// The token must also match the stored copy; rotation invalidates
	// everything issued earlier.
	stored, err := s.refreshTokens.GetByToken(ctx, req.RefreshToken)
	if err != nil || stored.UserID != claims.UserID || time.Now().After(stored.ExpiresAt) {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "invalid_token",
			Message: "Invalid or expired refresh token",
		})
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "invalid_token",
			Message: "Account no longer exists",
		})
	}

	return s.issueTokens(c, http.StatusOK, user)
}

func (s *Server) logout(c echo.Context) error {
	var req RefreshRequest
	if err := c.Bind(&req); err != nil || req.RefreshToken == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Refresh token is required",
		})
	}

	ctx := c.Request().Context()
	stored, err := s.refreshTokens.GetByToken(ctx, req.RefreshToken)
	if err != nil {
		if errors.Is(err, mongo.ErrNotFound) {
			// Logging out an already-rotated token is a no-op.
			return c.NoContent(http.StatusNoContent)
		}
		s.logger.Error("Failed to look up refresh token", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to log out",
		})
	}
	if err := s.refreshTokens.DeleteByUserID(ctx, stored.UserID); err != nil {
		s.logger.Error("Failed to delete refresh token", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to log out",
		})
	}
	return c.NoContent(http.StatusNoContent)
}

// issueTokens signs a fresh access and refresh token pair and rotates the
// stored refresh token.
func (s *Server) issueTokens(c echo.Context, status int, user *entities.User) error {
	accessToken, err := s.issuer.GenerateAccessToken(user)
	if err != nil {
		s.logger.Error("Failed to sign access token", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to issue tokens",
		})
	}
	refreshToken, expiresAt, err := s.issuer.GenerateRefreshToken(user.ID, user.Email)
	if err != nil {
		s.logger.Error("Failed to sign refresh token", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to issue tokens",
		})
	}

	if err := s.refreshTokens.Replace(c.Request().Context(), &entities.RefreshToken{
		UserID:    user.ID,
		Token:     refreshToken,
		ExpiresAt: expiresAt,
	}); err != nil {
		s.logger.Error("Failed to store refresh token", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to issue tokens",
		})
	}

	return c.JSON(status, AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    time.Now().Add(accessTokenTTL),
		User:         user,
	})
}
