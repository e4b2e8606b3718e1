package models

import "time"

type MatchStatus string

const (
	MatchActive    MatchStatus = "active"
	MatchUnmatched MatchStatus = "unmatched"
)

// MatchRelationship - неориентированная связь пары, UserAID < UserBID.
// Отсутствие записи означает, что пара никогда не была в мэтче
type MatchRelationship struct {
	ID                  string      `gorm:"primaryKey;size:36" json:"id"`
	UserAID             int64       `gorm:"uniqueIndex:idx_match_pair,priority:1" json:"user_a_id"`
	UserBID             int64       `gorm:"uniqueIndex:idx_match_pair,priority:2" json:"user_b_id"`
	Status              MatchStatus `gorm:"size:16;index" json:"status"`
	MatchedAt           *time.Time  `json:"matched_at,omitempty"`
	UnmatchedAt         *time.Time  `json:"unmatched_at,omitempty"`
	RematchBlockedUntil *time.Time  `json:"rematch_blocked_until,omitempty"`
	CreatedAt           time.Time   `json:"created_at"`
	UpdatedAt           time.Time   `json:"updated_at"`
}

func (MatchRelationship) TableName() string {
	return "match_relationships"
}
