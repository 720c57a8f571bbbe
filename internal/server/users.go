package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"nuge-api/internal/auth"
	"nuge-api/internal/domain"
)

type userUpdateRequest struct {
	Email    *string        `json:"email" binding:"omitempty,email"`
	Metadata map[string]any `json:"metadata"`
}

func (s *Server) listUsers(c *gin.Context) {
	limit := queryInt(c, "limit", 100)
	if limit < 1 || limit > 100 {
		limit = 100
	}
	offset := queryInt(c, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	users, total, err := s.users.List(c.Request.Context(), limit, offset)
	if err != nil {
		s.logger.Error("list users failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database operation failed"})
		return
	}

	items := make([]gin.H, 0, len(users))
	for i := range users {
		items = append(items, userJSON(&users[i]))
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "total": total})
}

func (s *Server) myProfile(c *gin.Context) {
	userID, ok := auth.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "could not validate credentials"})
		return
	}
	s.renderUser(c, userID)
}

func (s *Server) getUser(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}
	s.renderUser(c, id)
}

func (s *Server) updateUser(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}
	userID, _ := auth.UserID(c)
	if userID != id {
		c.JSON(http.StatusForbidden, gin.H{"error": "you can only update your own profile"})
		return
	}

	var req userUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	upd := domain.UserUpdate{Email: req.Email}
	if req.Metadata != nil {
		raw, err := json.Marshal(req.Metadata)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid metadata"})
			return
		}
		upd.Metadata = raw
	}

	user, err := s.users.Update(c.Request.Context(), id, upd)
	if err != nil {
		s.logger.Error("update user failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database operation failed"})
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	c.JSON(http.StatusOK, userJSON(user))
}

func (s *Server) deleteUser(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}
	userID, _ := auth.UserID(c)
	if userID != id {
		c.JSON(http.StatusForbidden, gin.H{"error": "you can only delete your own account"})
		return
	}

	deleted, err := s.users.Delete(c.Request.Context(), id)
	if err != nil {
		s.logger.Error("delete user failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database operation failed"})
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) renderUser(c *gin.Context, id uuid.UUID) {
	user, err := s.users.FindByID(c.Request.Context(), id)
	if err != nil {
		s.logger.Error("find user failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database operation failed"})
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	c.JSON(http.StatusOK, userJSON(user))
}

func userJSON(u *domain.User) gin.H {
	var meta any
	if len(u.Metadata) > 0 {
		meta = json.RawMessage(u.Metadata)
	}
	return gin.H{
		"id":                 u.ID,
		"email":              u.Email,
		"raw_user_meta_data": meta,
		"created_at":         u.CreatedAt,
		"updated_at":         u.UpdatedAt,
	}
}

func queryInt(c *gin.Context, key string, fallback int) int {
	v := c.Query(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
