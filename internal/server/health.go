package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"nuge-api/internal/database"
)

func (s *Server) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Welcome to Nuge API. Check /health for service status.",
	})
}

func (s *Server) health(c *gin.Context) {
	stats := database.Health(c.Request.Context(), s.db)
	status := http.StatusOK
	if stats["status"] != "up" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"status": stats["status"], "database": stats})
}
