package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"socialmatch/db"
	"socialmatch/models"

	"gorm.io/gorm"
)

var ErrEmptyMessage = errors.New("message text is empty")

const (
	defaultDialogLimit = 100
	maxDialogLimit     = 500
	previewLength      = 100
)

// DialogService - личные сообщения. Служит хранилищем истории чатов для координатора мэтчей:
// удаление идет через db.Conn, поэтому выполняется в транзакции из контекста
type DialogService struct {
	orm *gorm.DB
	now func() time.Time
}

func NewDialogService(orm *gorm.DB) *DialogService {
	return &DialogService{orm: orm, now: time.Now}
}

func pairWindow(q *gorm.DB, userA, userB int64, userCol, peerCol string, from, to time.Time) *gorm.DB {
	return q.Where(
		fmt.Sprintf("((%[1]s = ? AND %[2]s = ?) OR (%[1]s = ? AND %[2]s = ?)) AND created_at >= ? AND created_at <= ?", userCol, peerCol),
		userA, userB, userB, userA, from, to,
	)
}

// SendMessage сохраняет сообщение и уведомление получателю в одной транзакции
func (ds *DialogService) SendMessage(ctx context.Context, fromUserID, toUserID int64, text string) (*models.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	now := ds.now().UTC()
	msg := &models.Message{
		FromUserID: fromUserID,
		ToUserID:   toUserID,
		Text:       text,
		CreatedAt:  now,
	}
	preview := text
	if len([]rune(preview)) > previewLength {
		preview = string([]rune(preview)[:previewLength]) + "..."
	}

	err := db.GetWriteDB(ctx, ds.orm).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		return tx.Create(&models.Notification{
			UserID:    toUserID,
			SenderID:  fromUserID,
			Kind:      models.NotificationMessage,
			Title:     "New message",
			Body:      preview,
			CreatedAt: now,
		}).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to send message: %w", err)
	}
	return msg, nil
}

// ListDialog возвращает сообщения пары в хронологическом порядке
func (ds *DialogService) ListDialog(ctx context.Context, userID, otherUserID int64, limit int) ([]models.Message, error) {
	if limit <= 0 {
		limit = defaultDialogLimit
	}
	if limit > maxDialogLimit {
		limit = maxDialogLimit
	}
	var messages []models.Message
	err := db.GetReadOnlyDB(ctx, ds.orm).
		Where("(from_user_id = ? AND to_user_id = ?) OR (from_user_id = ? AND to_user_id = ?)", userID, otherUserID, otherUserID, userID).
		Order("created_at ASC, id ASC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list dialog: %w", err)
	}
	return messages, nil
}

// DeleteMessagesInWindow удаляет сообщения пары с created_at в [from, to]
func (ds *DialogService) DeleteMessagesInWindow(ctx context.Context, userA, userB int64, from, to time.Time) error {
	q := pairWindow(db.Conn(ctx, ds.orm), userA, userB, "from_user_id", "to_user_id", from.UTC(), to.UTC())
	if err := q.Delete(&models.Message{}).Error; err != nil {
		return fmt.Errorf("failed to delete messages: %w", err)
	}
	return nil
}

// DeleteNotificationsReferencing удаляет уведомления о сообщениях пары за окно [from, to].
// Уведомления о мэтче и анлайке остаются
func (ds *DialogService) DeleteNotificationsReferencing(ctx context.Context, userA, userB int64, from, to time.Time) error {
	q := pairWindow(db.Conn(ctx, ds.orm), userA, userB, "user_id", "sender_id", from.UTC(), to.UTC())
	err := q.Where("kind = ?", models.NotificationMessage).Delete(&models.Notification{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete notifications: %w", err)
	}
	return nil
}
