package matching

import (
	"fmt"
	"time"
)

type EventKind string

const (
	KindMatch       EventKind = "match"
	KindMatchUnlike EventKind = "match_unlike"
)

type UnmatchReason string

const (
	ReasonMutualUnlike      UnmatchReason = "mutual_unlike"
	ReasonAutoUnlikeTimeout UnmatchReason = "auto_unlike_timeout"
)

// Event - типизированное уведомление. Каждый вид события - отдельная структура,
// сама структура сериализуется в поле data уведомления
type Event interface {
	Kind() EventKind
	// PeerID - второй участник пары, от имени которого пришло событие
	PeerID() int64
	Title() string
	Body() string
}

// MatchFormed - взаимный лайк, мэтч создан
type MatchFormed struct {
	MatchID    string    `json:"match_id"`
	WithUserID int64     `json:"with_user_id"`
	MatchedAt  time.Time `json:"matched_at"`
}

func (MatchFormed) Kind() EventKind { return KindMatch }
func (e MatchFormed) PeerID() int64 { return e.WithUserID }
func (MatchFormed) Title() string   { return "It's a match!" }
func (e MatchFormed) Body() string  { return "You and your connection liked each other" }

// UnlikeRequested - партнер попросил разорвать мэтч
type UnlikeRequested struct {
	MatchID       string     `json:"match_id"`
	RequesterID   int64      `json:"requester_id"`
	AttemptsUsed  int        `json:"attempts_used"`
	NextAllowedAt time.Time  `json:"next_allowed_at"`
	AutoUnmatchAt *time.Time `json:"auto_unmatch_at,omitempty"`
}

func (UnlikeRequested) Kind() EventKind { return KindMatchUnlike }
func (e UnlikeRequested) PeerID() int64 { return e.RequesterID }
func (UnlikeRequested) Title() string   { return "Unmatch requested" }
func (e UnlikeRequested) Body() string {
	if e.AutoUnmatchAt != nil {
		return fmt.Sprintf("Final unlike request: the match ends automatically at %s", e.AutoUnmatchAt.UTC().Format(time.RFC3339))
	}
	return fmt.Sprintf("Your match asked to unlike (attempt %d)", e.AttemptsUsed)
}

// MatchDissolved - мэтч разорван
type MatchDissolved struct {
	MatchID             string        `json:"match_id"`
	WithUserID          int64         `json:"with_user_id"`
	Reason              UnmatchReason `json:"reason"`
	UnmatchedAt         time.Time     `json:"unmatched_at"`
	RematchBlockedUntil time.Time     `json:"rematch_blocked_until"`
}

func (MatchDissolved) Kind() EventKind { return KindMatchUnlike }
func (e MatchDissolved) PeerID() int64 { return e.WithUserID }
func (MatchDissolved) Title() string   { return "Match ended" }
func (e MatchDissolved) Body() string {
	if e.Reason == ReasonMutualUnlike {
		return "You both agreed to unmatch"
	}
	return "The match ended after the unlike request timed out"
}
