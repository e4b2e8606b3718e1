package matching

import (
	"context"
	"fmt"
	"time"

	"socialmatch/models"

	"go.uber.org/zap"
)

// finalizeUnmatch - единственный путь разрыва мэтча. Вызывается внутри транзакции
// из проверки таймаута и из взаимного анлайка. Если мэтч уже закрыт другим вызовом,
// возвращает зафиксированный результат без чистки и уведомлений
func (c *Coordinator) finalizeUnmatch(ctx context.Context, m *models.MatchRelationship, reason UnmatchReason, now time.Time) (*UnmatchOutcome, []notice, error) {
	from := m.CreatedAt
	if m.MatchedAt != nil {
		from = *m.MatchedAt
	}
	blockedUntil := now.Add(c.rules.RematchBlock)

	ok, err := c.registry.Dissolve(ctx, m.ID, now, blockedUntil)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		current, err := c.registry.GetByID(ctx, m.ID)
		if err != nil {
			return nil, nil, err
		}
		if current == nil || current.UnmatchedAt == nil || current.RematchBlockedUntil == nil {
			return nil, nil, fmt.Errorf("match %s is not active and has no unmatch record", m.ID)
		}
		return &UnmatchOutcome{
			Reason:              reason,
			UnmatchedAt:         *current.UnmatchedAt,
			RematchBlockedUntil: *current.RematchBlockedUntil,
		}, nil, nil
	}

	if err := c.chat.DeleteMessagesInWindow(ctx, m.UserAID, m.UserBID, from, now); err != nil {
		return nil, nil, fmt.Errorf("purge messages: %w", err)
	}
	if err := c.chat.DeleteNotificationsReferencing(ctx, m.UserAID, m.UserBID, from, now); err != nil {
		return nil, nil, fmt.Errorf("purge notifications: %w", err)
	}
	if err := c.negotiations.Resolve(ctx, m.ID, now); err != nil {
		return nil, nil, err
	}
	if err := c.likes.DeactivatePair(ctx, NewPair(m.UserAID, m.UserBID), now); err != nil {
		return nil, nil, err
	}

	matchTransitions.WithLabelValues("dissolved", string(reason)).Inc()
	c.log.Info("match dissolved",
		zap.String("match_id", m.ID),
		zap.Int64("user_a", m.UserAID),
		zap.Int64("user_b", m.UserBID),
		zap.String("reason", string(reason)))

	outcome := &UnmatchOutcome{Reason: reason, UnmatchedAt: now, RematchBlockedUntil: blockedUntil}
	notices := []notice{
		{userID: m.UserAID, event: MatchDissolved{MatchID: m.ID, WithUserID: m.UserBID, Reason: reason, UnmatchedAt: now, RematchBlockedUntil: blockedUntil}},
		{userID: m.UserBID, event: MatchDissolved{MatchID: m.ID, WithUserID: m.UserAID, Reason: reason, UnmatchedAt: now, RematchBlockedUntil: blockedUntil}},
	}
	return outcome, notices, nil
}

// sweepPair разрывает мэтч пары, если финальный запрос анлайка просрочен.
// Вызывающий держит блокировку пары
func (c *Coordinator) sweepPair(ctx context.Context, pair Pair, now time.Time) (*UnmatchOutcome, error) {
	var outcome *UnmatchOutcome
	var notices []notice
	err := c.inTx(ctx, func(ctx context.Context) error {
		m, err := c.registry.Get(ctx, pair)
		if err != nil || m == nil || m.Status != models.MatchActive {
			return err
		}
		list, err := c.negotiations.ForMatch(ctx, m.ID)
		if err != nil {
			return err
		}
		for i := range list {
			if c.overdue(&list[i], now) {
				outcome, notices, err = c.finalizeUnmatch(ctx, m, ReasonAutoUnlikeTimeout, now)
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	c.deliver(ctx, notices)
	return outcome, nil
}

// SweepExpired - фоновый проход: разрывает мэтчи с просроченными финальными запросами.
// Возвращает число разорванных мэтчей
func (c *Coordinator) SweepExpired(ctx context.Context, batch int) (int, error) {
	if batch <= 0 {
		batch = 100
	}
	now := c.now().UTC()
	overdue, err := c.negotiations.Overdue(ctx, now, c.rules.MaxUnlikeAttempts, batch)
	if err != nil {
		return 0, err
	}

	seen := make(map[string]struct{}, len(overdue))
	dissolved := 0
	for _, n := range overdue {
		if _, ok := seen[n.MatchID]; ok {
			continue
		}
		seen[n.MatchID] = struct{}{}

		pair := NewPair(n.RequesterID, n.ResponderID)
		outcome, err := c.sweepOne(ctx, pair, now)
		if err != nil {
			c.log.Error("sweep failed", zap.String("match_id", n.MatchID), zap.Error(err))
			continue
		}
		if outcome != nil {
			dissolved++
		}
	}
	return dissolved, nil
}

func (c *Coordinator) sweepOne(ctx context.Context, pair Pair, now time.Time) (*UnmatchOutcome, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	unlock, err := c.lockPair(ctx, pair)
	if err != nil {
		return nil, err
	}
	defer unlock()
	return c.sweepPair(ctx, pair, now)
}
