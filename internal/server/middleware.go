package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/fmcg-dev/fmcg/internal/auth"
	"github.com/fmcg-dev/fmcg/internal/models"
)

var (
	ErrMissingToken    = errors.New("missing session token")
	ErrInvalidToken    = errors.New("invalid token")
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
	ErrUserNotFound    = errors.New("user not found")
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

func sessionToken(c *gin.Context) string {
	return strings.TrimSpace(c.GetHeader(SessionHeader))
}

// respondError writes the error envelope the client decodes:
// {status: "error", message, detail}
func respondError(c *gin.Context, statusCode int, message, detail string) {
	c.JSON(statusCode, gin.H{
		"status":  "error",
		"message": message,
		"detail":  detail,
	})
	c.Abort()
}

func respondWithError(c *gin.Context, log zerolog.Logger, statusCode int, err error, message string) {
	log.Warn().Err(err).Str("path", c.Request.URL.Path).Msg(message)
	respondError(c, statusCode, message, err.Error())
}

// lookupSession resolves a session token to its live session row and user
func lookupSession(db *gorm.DB, token string, now time.Time) (*models.Session, *models.User, error) {
	claims, err := auth.ValidateToken(token)
	if err != nil {
		return nil, nil, ErrInvalidToken
	}

	var session models.Session
	if err := models.FindByID(db, claims.SessionID, &session); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrSessionNotFound
		}
		return nil, nil, err
	}
	if session.Expired(now) {
		return nil, nil, ErrSessionExpired
	}

	var user models.User
	if err := models.FindByID(db, session.UserID, &user); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrUserNotFound
		}
		return nil, nil, err
	}
	return &session, &user, nil
}

// SessionAuthMiddleware requires an X-Session-Token that belongs to a live
// session of an existing user
func SessionAuthMiddleware(db *gorm.DB, log zerolog.Logger, now func() time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := sessionToken(c)
		if token == "" {
			respondWithError(c, log, http.StatusUnauthorized, ErrMissingToken, "No session token provided")
			return
		}

		session, user, err := lookupSession(db, token, now())
		switch {
		case err == nil:
		case errors.Is(err, ErrInvalidToken), errors.Is(err, ErrSessionNotFound),
			errors.Is(err, ErrSessionExpired), errors.Is(err, ErrUserNotFound):
			respondWithError(c, log, http.StatusUnauthorized, err, "Invalid or expired session")
			return
		default:
			log.Error().Err(err).Msg("Failed to load session")
			respondError(c, http.StatusInternalServerError, "Internal server error", "")
			return
		}

		setSession(c, &auth.SessionData{
			SessionID: session.ID,
			UserID:    user.ID,
			Email:     user.Email,
			Name:      user.Name,
			Company:   user.Company,
		})

		c.Next()
	}
}
