package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"socialmatch/db"
	"socialmatch/models"
	"socialmatch/services/matching"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PushMessage - событие, которое уходит клиенту по WebSocket
type PushMessage struct {
	Event          string          `json:"event"`
	UserID         int64           `json:"user_id"`
	NotificationID int64           `json:"notification_id"`
	Title          string          `json:"title"`
	Body           string          `json:"body"`
	Data           json.RawMessage `json:"data"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Publisher доставляет событие подключенным клиентам пользователя
type Publisher interface {
	Publish(ctx context.Context, msg PushMessage) error
}

// NotificationService сохраняет уведомление и публикует его.
// Сохраненная запись - основной результат, публикация best effort
type NotificationService struct {
	orm       *gorm.DB
	publisher Publisher
	log       *zap.Logger
	now       func() time.Time
}

func NewNotificationService(orm *gorm.DB, publisher Publisher, log *zap.Logger) *NotificationService {
	if log == nil {
		log = zap.NewNop()
	}
	return &NotificationService{orm: orm, publisher: publisher, log: log, now: time.Now}
}

func (ns *NotificationService) Notify(ctx context.Context, userID int64, event matching.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", event.Kind(), err)
	}
	n := &models.Notification{
		UserID:    userID,
		SenderID:  event.PeerID(),
		Kind:      models.NotificationKind(event.Kind()),
		Title:     event.Title(),
		Body:      event.Body(),
		Data:      datatypes.JSON(data),
		CreatedAt: ns.now().UTC(),
	}
	if err := db.GetWriteDB(ctx, ns.orm).Create(n).Error; err != nil {
		return fmt.Errorf("failed to save notification: %w", err)
	}

	if ns.publisher == nil {
		return nil
	}
	msg := PushMessage{
		Event:          string(n.Kind),
		UserID:         userID,
		NotificationID: n.ID,
		Title:          n.Title,
		Body:           n.Body,
		Data:           data,
		CreatedAt:      n.CreatedAt,
	}
	if err := ns.publisher.Publish(ctx, msg); err != nil {
		ns.log.Warn("failed to publish notification",
			zap.Int64("user_id", userID),
			zap.Int64("notification_id", n.ID),
			zap.Error(err))
	}
	return nil
}

// List возвращает последние уведомления пользователя
func (ns *NotificationService) List(ctx context.Context, userID int64, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var list []models.Notification
	err := db.GetReadOnlyDB(ctx, ns.orm).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return list, nil
}
