package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/taskwiz/taskwiz/internal/auth"
	"github.com/taskwiz/taskwiz/internal/models"
)

const (
	bearerPrefix = "Bearer "

	// AccessTokenCookie carries the JWT for browser-style clients
	AccessTokenCookie = "access_token"
)

var (
	ErrMissingToken      = errors.New("missing access token")
	ErrInvalidAuthFormat = errors.New("invalid authorization header format")
	ErrInvalidToken      = errors.New("invalid token")
	ErrRevokedToken      = errors.New("token has been revoked")
	ErrUserNotFound      = errors.New("user not found")
)

func setSession(c *gin.Context, sessionData *auth.SessionData) {
	c.Set("session", sessionData)
}

func GetSessionData(c *gin.Context) (*auth.SessionData, bool) {
	session, exists := c.Get("session")
	if !exists {
		return nil, false
	}

	sessionData, ok := session.(*auth.SessionData)
	return sessionData, ok
}

func extractBearerToken(authHeader string) (string, error) {
	if authHeader == "" {
		return "", ErrMissingToken
	}

	if !strings.HasPrefix(authHeader, bearerPrefix) {
		return "", ErrInvalidAuthFormat
	}

	token := strings.TrimSpace(strings.TrimPrefix(authHeader, bearerPrefix))
	if token == "" {
		return "", ErrMissingToken
	}

	return token, nil
}

// extractToken prefers the session cookie and falls back to the Authorization header
func extractToken(c *gin.Context) (token, method string, err error) {
	if cookie, err := c.Cookie(AccessTokenCookie); err == nil && cookie != "" {
		return cookie, "cookie", nil
	}
	token, err = extractBearerToken(c.GetHeader("Authorization"))
	return token, "bearer", err
}

func isRevoked(db *gorm.DB, jti string) (bool, error) {
	var count int64
	err := db.Model(&models.RevokedToken{}).Where("jti = ?", jti).Count(&count).Error
	return count > 0, err
}

// JWTAuthMiddleware validates the access token from the cookie or Bearer header
func JWTAuthMiddleware(db *gorm.DB, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, method, err := extractToken(c)
		if err != nil {
			message := "Not authenticated"
			if errors.Is(err, ErrInvalidAuthFormat) {
				message = "Invalid authorization header format"
			}
			respondWithError(c, log, http.StatusUnauthorized, CodeNotAuthenticated, message, err)
			return
		}

		claims, err := auth.ValidateToken(token)
		if err != nil {
			respondWithError(c, log, http.StatusUnauthorized, CodeNotAuthenticated, "Invalid or expired token", err)
			return
		}

		revoked, err := isRevoked(db.WithContext(c.Request.Context()), claims.ID)
		if err != nil {
			respondWithError(c, log, http.StatusInternalServerError, CodeInternal, "Internal server error", err)
			return
		}
		if revoked {
			respondWithError(c, log, http.StatusUnauthorized, CodeNotAuthenticated, "Invalid or expired token", ErrRevokedToken)
			return
		}

		// Verify user exists in database
		var user models.User
		if err := db.WithContext(c.Request.Context()).Where("id = ?", claims.UserID()).First(&user).Error; err != nil {
			log.Error().Err(err).Str("user_id", claims.UserID()).Msg("User not found")
			respondWithError(c, log, http.StatusUnauthorized, CodeNotAuthenticated, "Not authenticated", ErrUserNotFound)
			return
		}

		setSession(c, &auth.SessionData{
			UserID:     user.ID,
			Email:      user.Email,
			TokenID:    claims.ID,
			ExpiresAt:  claims.ExpiresAt.Time,
			AuthMethod: method,
		})

		c.Next()
	}
}

// UserScopeMiddleware rejects user-scoped routes whose :userId is not the caller
func UserScopeMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionData, exists := GetSessionData(c)
		if !exists {
			respondWithError(c, log, http.StatusUnauthorized, CodeNotAuthenticated, "Not authenticated", errors.New("no session"))
			return
		}

		if c.Param("userId") != sessionData.UserID {
			respondWithError(c, log, http.StatusForbidden, CodeForbidden, "Not allowed to access another user's tasks", errors.New("user mismatch"))
			return
		}

		c.Next()
	}
}
