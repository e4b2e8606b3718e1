package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"socialmatch/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type UserHandlers struct {
	svc *services.UserService
	log *zap.Logger
}

func NewUserHandlers(svc *services.UserService, log *zap.Logger) *UserHandlers {
	if log == nil {
		log = zap.NewNop()
	}
	return &UserHandlers{svc: svc, log: log}
}

func (h *UserHandlers) Register(c *gin.Context) {
	var req services.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	user, err := h.svc.Register(c.Request.Context(), req)
	switch {
	case errors.Is(err, services.ErrInvalidUserInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrUserExists):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case err != nil:
		h.log.Error("failed to register user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	default:
		c.JSON(http.StatusOK, gin.H{"user_id": user.ID})
	}
}

// Login выдает токен в формате, который понимает TestAuthMiddleware
func (h *UserHandlers) Login(c *gin.Context) {
	var req struct {
		Nickname string `json:"nickname" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	user, err := h.svc.Authenticate(c.Request.Context(), req.Nickname, req.Password)
	if errors.Is(err, services.ErrBadCredentials) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		h.log.Error("failed to authenticate user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": fmt.Sprintf("test_token_%d", user.ID), "user_id": user.ID})
}

func (h *UserHandlers) Get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid id"})
		return
	}
	user, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		h.log.Error("failed to get user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	c.JSON(http.StatusOK, user)
}
