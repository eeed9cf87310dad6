package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/taskwiz/taskwiz/internal/auth"
	"github.com/taskwiz/taskwiz/internal/models"
)

// CredentialsRequest represents a sign-in or sign-up request
type CredentialsRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

// SignUpResponse is returned when an account is created
type SignUpResponse struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	AccessToken string `json:"access_token"`
}

// SignInResponse is returned on successful sign-in
type SignInResponse struct {
	Message     string `json:"message"`
	AccessToken string `json:"access_token"`
}

// UserDetail represents user information returned in responses
type UserDetail struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// issueToken signs a token for user and sets it as the session cookie
func (s *Server) issueToken(c *gin.Context, user *models.User) (string, bool) {
	token, claims, err := auth.GenerateToken(user.ID, user.Email)
	if err != nil {
		respondWithError(c, s.logger, http.StatusInternalServerError, CodeInternal, "Failed to generate token", err)
		return "", false
	}

	maxAge := int(time.Until(claims.ExpiresAt.Time).Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(AccessTokenCookie, token, maxAge, "/", "", s.config.Auth.CookieSecure, true)
	return token, true
}

// @Summary Sign up
// @Description Create an account and start a session
// @Tags auth
// @Accept json
// @Produce json
// @Param request body CredentialsRequest true "Credentials"
// @Success 201 {object} SignUpResponse
// @Failure 409 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /auth/signup [post]
func (s *Server) signUp(c *gin.Context) {
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithBindError(c, s.logger, err)
		return
	}
	email := normalizeEmail(req.Email)

	var count int64
	if err := s.db.WithContext(c.Request.Context()).Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		respondWithError(c, s.logger, http.StatusInternalServerError, CodeInternal, "Internal server error", err)
		return
	}
	if count > 0 {
		respondWithError(c, s.logger, http.StatusConflict, CodeEmailExists, "An account with this email already exists", nil)
		return
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		respondWithError(c, s.logger, http.StatusInternalServerError, CodeInternal, "Failed to create user", err)
		return
	}

	user := &models.User{
		Email:        email,
		PasswordHash: passwordHash,
	}
	if err := s.db.WithContext(c.Request.Context()).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			respondWithError(c, s.logger, http.StatusConflict, CodeEmailExists, "An account with this email already exists", err)
			return
		}
		respondWithError(c, s.logger, http.StatusInternalServerError, CodeInternal, "Failed to create user", err)
		return
	}

	token, ok := s.issueToken(c, user)
	if !ok {
		return
	}

	s.logger.Info().Str("user_id", user.ID).Str("email", user.Email).Msg("User signed up")

	c.JSON(http.StatusCreated, SignUpResponse{
		ID:          user.ID,
		Email:       user.Email,
		AccessToken: token,
	})
}

// @Summary Sign in
// @Description Authenticate with email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body CredentialsRequest true "Credentials"
// @Success 200 {object} SignInResponse
// @Failure 401 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /auth/signin [post]
func (s *Server) signIn(c *gin.Context) {
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithBindError(c, s.logger, err)
		return
	}

	var user models.User
	if err := s.db.WithContext(c.Request.Context()).Where("email = ?", normalizeEmail(req.Email)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondWithError(c, s.logger, http.StatusUnauthorized, CodeInvalidCredentials, "Invalid email or password", err)
			return
		}
		respondWithError(c, s.logger, http.StatusInternalServerError, CodeInternal, "Internal server error", err)
		return
	}

	if err := auth.VerifyPassword(req.Password, user.PasswordHash); err != nil {
		respondWithError(c, s.logger, http.StatusUnauthorized, CodeInvalidCredentials, "Invalid email or password", err)
		return
	}

	token, ok := s.issueToken(c, &user)
	if !ok {
		return
	}

	s.logger.Info().Str("user_id", user.ID).Str("email", user.Email).Msg("User signed in")

	c.JSON(http.StatusOK, SignInResponse{
		Message:     "Signed in successfully",
		AccessToken: token,
	})
}

// @Summary Sign out
// @Description Revoke the presented token and clear the session cookie
// @Tags auth
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /auth/signout [post]
func (s *Server) signOut(c *gin.Context) {
	if token, _, err := extractToken(c); err == nil {
		if claims, err := auth.ValidateToken(token); err == nil {
			revoked := models.RevokedToken{JTI: claims.ID, ExpiresAt: claims.ExpiresAt.Time}
			err := s.db.WithContext(c.Request.Context()).
				Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "jti"}}, DoNothing: true}).
				Create(&revoked).Error
			if err != nil {
				s.logger.Error().Err(err).Msg("Failed to revoke token")
			} else {
				s.logger.Info().Str("user_id", claims.UserID()).Msg("User signed out")
			}
		}
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(AccessTokenCookie, "", -1, "/", "", s.config.Auth.CookieSecure, true)
	c.JSON(http.StatusOK, gin.H{"message": "Signed out"})
}

// @Summary Get current user
// @Description Get information about the currently authenticated user
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} UserDetail
// @Failure 401 {object} ErrorResponse
// @Router /auth/me [get]
func (s *Server) getCurrentUser(c *gin.Context) {
	sessionData, exists := GetSessionData(c)
	if !exists {
		respondWithError(c, s.logger, http.StatusUnauthorized, CodeNotAuthenticated, "Not authenticated", errors.New("no session"))
		return
	}

	c.JSON(http.StatusOK, UserDetail{
		ID:    sessionData.UserID,
		Email: sessionData.Email,
	})
}
