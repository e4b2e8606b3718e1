package matching

import (
	"context"
	"fmt"
	"time"

	"socialmatch/models"
)

// Status - состояние пары глазами viewer
type Status struct {
	Connected    bool       `json:"connected"`
	CanLike      bool       `json:"canLike"`
	LikedByMe    bool       `json:"likedByMe"`
	LikedByOther bool       `json:"likedByOther"`
	IsMatched    bool       `json:"isMatched"`
	MatchedAt    *time.Time `json:"matchedAt,omitempty"`
	// UnlikeRequest - собственный запрос анлайка viewer
	UnlikeRequest          *UnlikeSnapshot `json:"unlikeRequest,omitempty"`
	UnlikeRequestedByOther bool            `json:"unlikeRequestedByOther"`
	RematchBlockedUntil    *time.Time      `json:"rematchBlockedUntil,omitempty"`
}

// StatusOf собирает состояние пары. Перед чтением закрывает просроченный мэтч, если он есть.
// Односторонний лайк target остается невидимым для viewer, пока нет мэтча
func (c *Coordinator) StatusOf(ctx context.Context, viewerID, targetID int64) (status *Status, err error) {
	defer func() {
		if err != nil {
			c.logRejection("status", viewerID, targetID, err)
		}
	}()
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	if err := validatePair(viewerID, targetID); err != nil {
		return nil, err
	}
	connected, err := c.oracle.AreConnected(ctx, viewerID, targetID)
	if err != nil {
		return nil, fmt.Errorf("check connection: %w", err)
	}

	now := c.now().UTC()
	pair := NewPair(viewerID, targetID)
	unlock, err := c.lockPair(ctx, pair)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if _, err := c.sweepPair(ctx, pair, now); err != nil {
		return nil, err
	}

	status = &Status{Connected: connected}
	err = c.inTx(ctx, func(ctx context.Context) error {
		likedByMe, err := c.likes.IsActive(ctx, viewerID, targetID)
		if err != nil {
			return err
		}
		status.LikedByMe = likedByMe

		m, err := c.registry.Get(ctx, pair)
		if err != nil || m == nil {
			return err
		}
		switch m.Status {
		case models.MatchActive:
			status.IsMatched = true
			status.MatchedAt = m.MatchedAt
			likedByOther, err := c.likes.IsActive(ctx, targetID, viewerID)
			if err != nil {
				return err
			}
			status.LikedByOther = likedByOther

			list, err := c.negotiations.ForMatch(ctx, m.ID)
			if err != nil {
				return err
			}
			mine, theirs := splitNegotiations(list, viewerID)
			status.UnlikeRequest = snapshot(mine)
			status.UnlikeRequestedByOther = pending(theirs)
		case models.MatchUnmatched:
			if m.RematchBlockedUntil != nil && !now.After(*m.RematchBlockedUntil) {
				status.RematchBlockedUntil = m.RematchBlockedUntil
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	status.CanLike = connected && status.RematchBlockedUntil == nil && !status.LikedByMe
	return status, nil
}
