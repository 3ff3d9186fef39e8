package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/fmcg-dev/fmcg/internal/auth"
	"github.com/fmcg-dev/fmcg/internal/models"
)

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// UserDetail represents user information returned in responses
type UserDetail struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Company string `json:"company"`
}

// LoginResponse represents a login response
type LoginResponse struct {
	Status       string      `json:"status"`
	SessionToken string      `json:"session_token"`
	User         *UserDetail `json:"user"`
}

func userDetail(user *models.User) *UserDetail {
	return &UserDetail{Email: user.Email, Name: user.Name, Company: user.Company}
}

// @Summary Login
// @Router /auth/login [post]
// @Success 200 {object} LoginResponse
// @Failure 401 {object} map[string]interface{}
func (s *Server) login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Email and password are required", err.Error())
		return
	}

	var user models.User
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusUnauthorized, "Invalid credentials", "")
			return
		}
		s.logger.Error().Err(err).Msg("Failed to find user")
		respondError(c, http.StatusInternalServerError, "Internal server error", "")
		return
	}

	if err := auth.VerifyPassword(req.Password, user.PasswordHash); err != nil {
		respondError(c, http.StatusUnauthorized, "Invalid credentials", "")
		return
	}

	session := &models.Session{
		UserID:    user.ID,
		ExpiresAt: s.now().Add(auth.SessionTTL),
	}
	if err := s.db.Create(session).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to create session")
		respondError(c, http.StatusInternalServerError, "Failed to create session", "")
		return
	}

	token, err := auth.GenerateToken(session.ID, user.ID, user.Email, session.ExpiresAt)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to generate token")
		respondError(c, http.StatusInternalServerError, "Failed to generate token", "")
		return
	}

	s.logger.Info().Str("user_id", user.ID).Str("session_id", session.ID).Msg("User logged in")

	c.JSON(http.StatusOK, LoginResponse{
		Status:       "success",
		SessionToken: token,
		User:         userDetail(&user),
	})
}

// logout deletes the session row. Unknown or already revoked tokens still
// succeed so clients can always finish their local cleanup.
//
// @Router /auth/logout [post]
func (s *Server) logout(c *gin.Context) {
	token := sessionToken(c)
	if token == "" {
		respondError(c, http.StatusBadRequest, "No session token provided", "")
		return
	}

	if claims, err := auth.ValidateToken(token); err == nil {
		result := s.db.Where("id = ?", claims.SessionID).Delete(&models.Session{})
		if result.Error != nil {
			s.logger.Error().Err(result.Error).Msg("Failed to delete session")
			respondError(c, http.StatusInternalServerError, "Internal server error", "")
			return
		}
		s.logger.Info().Str("session_id", claims.SessionID).Int64("deleted", result.RowsAffected).Msg("User logged out")
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Logged out successfully",
	})
}

// @Router /auth/verify [get]
// @Success 200 {object} map[string]interface{}
func (s *Server) verify(c *gin.Context) {
	sessionData, exists := GetSessionData(c)
	if !exists {
		respondError(c, http.StatusUnauthorized, "Invalid or expired session", "")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"user": UserDetail{
			Email:   sessionData.Email,
			Name:    sessionData.Name,
			Company: sessionData.Company,
		},
	})
}
