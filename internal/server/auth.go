package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"nuge-api/internal/auth"
)

func (s *Server) signup(c *gin.Context) {
	var req auth.SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.supabase.SignUp(c.Request.Context(), req); err != nil {
		s.authError(c, err, http.StatusInternalServerError)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "User successfully registered."})
}

func (s *Server) login(c *gin.Context) {
	var req auth.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := s.supabase.SignIn(c.Request.Context(), req)
	if err != nil {
		s.authError(c, err, http.StatusBadRequest)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":       "Login successful",
		"access_token":  session.AccessToken,
		"refresh_token": session.RefreshToken,
	})
}

// authError forwards GoTrue's own status and message when we have them;
// anything else (network, decode) is the fallback status.
func (s *Server) authError(c *gin.Context, err error, fallback int) {
	var apiErr *auth.APIError
	if errors.As(err, &apiErr) {
		c.JSON(apiErr.StatusCode, gin.H{"error": apiErr.Message})
		return
	}
	s.logger.Error("auth provider request failed", zap.Error(err))
	c.JSON(fallback, gin.H{"error": "authentication request failed"})
}
