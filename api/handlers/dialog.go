package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"socialmatch/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type DialogHandlers struct {
	dialogs       *services.DialogService
	notifications *services.NotificationService
	log           *zap.Logger
}

func NewDialogHandlers(dialogs *services.DialogService, notifications *services.NotificationService, log *zap.Logger) *DialogHandlers {
	if log == nil {
		log = zap.NewNop()
	}
	return &DialogHandlers{dialogs: dialogs, notifications: notifications, log: log}
}

// SendMessage - отправка сообщения пользователю
func (h *DialogHandlers) SendMessage(c *gin.Context) {
	fromUserID, ok := currentUserID(c)
	if !ok {
		return
	}
	toUserID, ok := pathUserID(c)
	if !ok {
		return
	}
	var req struct {
		Text string `json:"text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	msg, err := h.dialogs.SendMessage(c.Request.Context(), fromUserID, toUserID, req.Text)
	if errors.Is(err, services.ErrEmptyMessage) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		h.log.Error("failed to send message", zap.Int64("from", fromUserID), zap.Int64("to", toUserID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send message"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Message sent", "id": msg.ID})
}

// ListDialog - сообщения между текущим пользователем и :user_id
func (h *DialogHandlers) ListDialog(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	otherUserID, ok := pathUserID(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	messages, err := h.dialogs.ListDialog(c.Request.Context(), userID, otherUserID, limit)
	if err != nil {
		h.log.Error("failed to list dialog", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// ListNotifications - последние уведомления текущего пользователя
func (h *DialogHandlers) ListNotifications(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	list, err := h.notifications.List(c.Request.Context(), userID, limit)
	if err != nil {
		h.log.Error("failed to list notifications", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": list})
}
