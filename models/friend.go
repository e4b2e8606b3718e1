package models

import "time"

type FriendStatus string

const (
	FriendPending  FriendStatus = "pending"
	FriendApproved FriendStatus = "approved"
	FriendBlocked  FriendStatus = "blocked"
)

// Friend - модель для хранения дружбы между пользователями
// Status: "pending" (ожидание), "approved" (подтверждена), "blocked" (заблокирован UserID)
type Friend struct {
	ID         int64        `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID     int64        `gorm:"index:idx_friend_pair,unique" json:"user_id"`
	FriendID   int64        `gorm:"index:idx_friend_pair,unique;index" json:"friend_id"`
	Status     FriendStatus `gorm:"size:16;index" json:"status"`
	CreatedAt  time.Time    `json:"created_at"`
	ApprovedAt *time.Time   `json:"approved_at,omitempty"`
}

func (Friend) TableName() string {
	return "friend"
}
