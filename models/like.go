package models

import "time"

// LikeEdge - направленный лайк sender -> receiver. Одна запись на упорядоченную пару,
// строки никогда не удаляются, только деактивируются
type LikeEdge struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	SenderID   int64     `gorm:"uniqueIndex:idx_like_edges_pair,priority:1;index:idx_like_edges_sender_date,priority:1" json:"sender_id"`
	ReceiverID int64     `gorm:"uniqueIndex:idx_like_edges_pair,priority:2" json:"receiver_id"`
	Active     bool      `gorm:"not null;default:false" json:"active"`
	LocalDate  string    `gorm:"size:10;index:idx_like_edges_sender_date,priority:2" json:"local_date"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (LikeEdge) TableName() string {
	return "like_edges"
}
