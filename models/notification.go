package models

import (
	"time"

	"gorm.io/datatypes"
)

type NotificationKind string

const (
	NotificationMessage     NotificationKind = "message"
	NotificationMatch       NotificationKind = "match"
	NotificationMatchUnlike NotificationKind = "match_unlike"
)

// Notification - сохраненное уведомление пользователя.
// SenderID - пользователь, из-за которого уведомление появилось (автор сообщения, партнер по мэтчу)
type Notification struct {
	ID        int64            `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64            `gorm:"index:idx_notifications_user_sender,priority:1" json:"user_id"`
	SenderID  int64            `gorm:"index:idx_notifications_user_sender,priority:2" json:"sender_id"`
	Kind      NotificationKind `gorm:"size:32;index" json:"kind"`
	Title     string           `gorm:"size:255" json:"title"`
	Body      string           `gorm:"type:text" json:"body"`
	Data      datatypes.JSON   `json:"data"`
	IsRead    bool             `gorm:"default:false" json:"is_read"`
	CreatedAt time.Time        `gorm:"index" json:"created_at"`
}

func (Notification) TableName() string {
	return "notifications"
}
