package handlers

import (
	"errors"
	"net/http"

	"socialmatch/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type FriendHandlers struct {
	svc *services.FriendService
	log *zap.Logger
}

func NewFriendHandlers(svc *services.FriendService, log *zap.Logger) *FriendHandlers {
	if log == nil {
		log = zap.NewNop()
	}
	return &FriendHandlers{svc: svc, log: log}
}

type friendRequest struct {
	FriendID int64 `json:"friend_id" binding:"required"`
}

func (h *FriendHandlers) bind(c *gin.Context) (userID, friendID int64, ok bool) {
	userID, ok = currentUserID(c)
	if !ok {
		return 0, 0, false
	}
	var r friendRequest
	if err := c.ShouldBindJSON(&r); err != nil || r.FriendID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return 0, 0, false
	}
	return userID, r.FriendID, true
}

func (h *FriendHandlers) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrSelfFriend), errors.Is(err, services.ErrUserNotFound):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrRequestNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrFriendshipExists), errors.Is(err, services.ErrRequestPending), errors.Is(err, services.ErrFriendshipBlocked):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		h.log.Error("friend request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// AddFriend - обработчик для добавления друга
func (h *FriendHandlers) AddFriend(c *gin.Context) {
	userID, friendID, ok := h.bind(c)
	if !ok {
		return
	}
	if err := h.svc.AddFriend(c.Request.Context(), userID, friendID); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "friend request sent"})
}

// ApproveFriend - подтверждение входящей заявки, friend_id - автор заявки
func (h *FriendHandlers) ApproveFriend(c *gin.Context) {
	userID, friendID, ok := h.bind(c)
	if !ok {
		return
	}
	if err := h.svc.ApproveFriend(c.Request.Context(), userID, friendID); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "friendship approved"})
}

func (h *FriendHandlers) DeleteFriend(c *gin.Context) {
	userID, friendID, ok := h.bind(c)
	if !ok {
		return
	}
	if err := h.svc.DeleteFriend(c.Request.Context(), userID, friendID); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "friend deleted"})
}

func (h *FriendHandlers) BlockFriend(c *gin.Context) {
	userID, friendID, ok := h.bind(c)
	if !ok {
		return
	}
	if err := h.svc.BlockFriend(c.Request.Context(), userID, friendID); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "user blocked"})
}

// GetFriends - обработчик для получения списка друзей
func (h *FriendHandlers) GetFriends(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	friends, err := h.svc.GetFriends(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"friends": friends})
}

// GetPendingRequests - обработчик для получения входящих заявок в друзья
func (h *FriendHandlers) GetPendingRequests(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	requests, err := h.svc.GetPendingRequests(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": requests})
}
