package models

import "time"

// UnlikeNegotiation - переговоры о разрыве мэтча, одна запись на (match, requester, responder)
type UnlikeNegotiation struct {
	ID              int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	MatchID         string     `gorm:"size:36;uniqueIndex:idx_unlike_triple,priority:1" json:"match_id"`
	RequesterID     int64      `gorm:"uniqueIndex:idx_unlike_triple,priority:2" json:"requester_id"`
	ResponderID     int64      `gorm:"uniqueIndex:idx_unlike_triple,priority:3" json:"responder_id"`
	AttemptsUsed    int        `gorm:"not null;default:0" json:"attempts_used"`
	Pending         bool       `gorm:"not null;default:false" json:"pending"`
	LastRequestedAt *time.Time `json:"last_requested_at,omitempty"`
	NextAllowedAt   *time.Time `json:"next_allowed_at,omitempty"`
	AutoUnmatchAt   *time.Time `gorm:"index" json:"auto_unmatch_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (UnlikeNegotiation) TableName() string {
	return "unlike_negotiations"
}
