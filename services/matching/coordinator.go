package matching

import (
	"context"
	"fmt"
	"time"

	"socialmatch/config"
	"socialmatch/db"
	"socialmatch/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Rules - численные правила жизненного цикла
type Rules struct {
	DailyLikeLimit    int
	UnlikeCooldown    time.Duration
	MaxUnlikeAttempts int
	RematchBlock      time.Duration
	OperationTimeout  time.Duration
}

func RulesFromConfig(m config.MatchRules) Rules {
	return Rules{
		DailyLikeLimit:    m.DailyLikeLimit,
		UnlikeCooldown:    m.UnlikeCooldown,
		MaxUnlikeAttempts: m.MaxUnlikeAttempts,
		RematchBlock:      m.RematchBlock,
		OperationTimeout:  m.OperationTimeout,
	}
}

type Options struct {
	DB       *gorm.DB
	Oracle   ConnectionOracle
	Chat     ChatHistoryStore
	Notifier NotificationSink
	// Locker по умолчанию LocalPairLocker
	Locker   PairLocker
	Calendar Calendar
	Rules    Rules
	Log      *zap.Logger
	// Now по умолчанию time.Now
	Now func() time.Time
}

// Coordinator - единственный владелец лайков, мэтчей и переговоров об анлайке
type Coordinator struct {
	orm          *gorm.DB
	likes        *LikeLedger
	registry     *MatchRegistry
	negotiations *NegotiationTracker

	oracle   ConnectionOracle
	chat     ChatHistoryStore
	notifier NotificationSink
	locker   PairLocker
	calendar Calendar
	rules    Rules
	log      *zap.Logger
	now      func() time.Time
}

func NewCoordinator(opts Options) (*Coordinator, error) {
	if opts.DB == nil {
		return nil, fmt.Errorf("coordinator: DB is required")
	}
	if opts.Oracle == nil || opts.Chat == nil || opts.Notifier == nil {
		return nil, fmt.Errorf("coordinator: oracle, chat store and notifier are required")
	}
	if opts.Rules.MaxUnlikeAttempts <= 0 || opts.Rules.DailyLikeLimit <= 0 {
		return nil, fmt.Errorf("coordinator: rules are not configured")
	}
	if opts.Locker == nil {
		opts.Locker = NewLocalPairLocker()
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Coordinator{
		orm:          opts.DB,
		likes:        NewLikeLedger(opts.DB),
		registry:     NewMatchRegistry(opts.DB),
		negotiations: NewNegotiationTracker(opts.DB),
		oracle:       opts.Oracle,
		chat:         opts.Chat,
		notifier:     opts.Notifier,
		locker:       opts.Locker,
		calendar:     opts.Calendar,
		rules:        opts.Rules,
		log:          opts.Log,
		now:          opts.Now,
	}, nil
}

type LikeRequest struct {
	SenderID int64
	TargetID int64
	// LocalDate - дата YYYY-MM-DD, посчитанная клиентом; пустая - считаем по смещению
	LocalDate       string
	TZOffsetMinutes *int
}

type LikeResult struct {
	Liked        bool `json:"liked"`
	MatchCreated bool `json:"matchCreated"`
	IsMatched    bool `json:"isMatched"`
}

// UnlikeSnapshot - состояние переговоров одного направления
type UnlikeSnapshot struct {
	AttemptsUsed  int        `json:"attemptsUsed"`
	Pending       bool       `json:"pending"`
	NextAllowedAt *time.Time `json:"nextAllowedAt,omitempty"`
	AutoUnmatchAt *time.Time `json:"autoUnmatchAt,omitempty"`
}

type UnmatchOutcome struct {
	Reason              UnmatchReason `json:"reason"`
	UnmatchedAt         time.Time     `json:"unmatchedAt"`
	RematchBlockedUntil time.Time     `json:"rematchBlockedUntil"`
}

type UnlikeResult struct {
	IsMatched        bool            `json:"isMatched"`
	UnmatchTriggered bool            `json:"unmatchTriggered"`
	Reason           UnmatchReason   `json:"reason,omitempty"`
	Unmatch          *UnmatchOutcome `json:"unmatch,omitempty"`
	UnlikeRequest    *UnlikeSnapshot `json:"unlikeRequest,omitempty"`
	// LikeWithdrawn - пары не было в мэтче, снят только лайк запрашивающего
	LikeWithdrawn bool `json:"likeWithdrawn,omitempty"`
}

// notice - уведомление, которое отправляется после коммита транзакции
type notice struct {
	userID int64
	event  Event
}

func (c *Coordinator) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok || c.rules.OperationTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.rules.OperationTimeout)
}

func (c *Coordinator) inTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return c.orm.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(db.WithTx(ctx, tx))
	})
}

func (c *Coordinator) lockPair(ctx context.Context, pair Pair) (func(), error) {
	unlock, err := c.locker.Lock(ctx, pair.Key())
	if err != nil {
		return nil, fmt.Errorf("lock pair %d:%d: %w", pair.A, pair.B, err)
	}
	return unlock, nil
}

// deliver отправляет уведомления после коммита. Ошибки доставки только логируются:
// состояние уже зафиксировано, а доставка допускается at-least-once
func (c *Coordinator) deliver(ctx context.Context, notices []notice) {
	if len(notices) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)
	for _, n := range notices {
		if err := c.notifier.Notify(ctx, n.userID, n.event); err != nil {
			c.log.Error("failed to deliver match notification",
				zap.Int64("user_id", n.userID),
				zap.String("kind", string(n.event.Kind())),
				zap.Error(err))
		}
	}
}

func (c *Coordinator) logRejection(op string, actorID, targetID int64, err error) {
	if e, ok := AsError(err); ok {
		c.log.Debug("match operation rejected",
			zap.String("operation", op),
			zap.Int64("actor_id", actorID),
			zap.Int64("target_id", targetID),
			zap.String("code", string(e.Code)))
		return
	}
	c.log.Error("match operation failed",
		zap.String("operation", op),
		zap.Int64("actor_id", actorID),
		zap.Int64("target_id", targetID),
		zap.Error(err))
}

// Like ставит лайк sender -> target и формирует мэтч при взаимности
func (c *Coordinator) Like(ctx context.Context, req LikeRequest) (result *LikeResult, err error) {
	defer func() {
		if err != nil {
			c.logRejection("like", req.SenderID, req.TargetID, err)
		}
	}()
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	if err := validatePair(req.SenderID, req.TargetID); err != nil {
		return nil, err
	}
	connected, err := c.oracle.AreConnected(ctx, req.SenderID, req.TargetID)
	if err != nil {
		return nil, fmt.Errorf("check connection: %w", err)
	}
	if !connected {
		return nil, ErrForbidden
	}

	now := c.now().UTC()
	day, err := c.calendar.Resolve(req.LocalDate, req.TZOffsetMinutes, now)
	if err != nil {
		return nil, err
	}

	pair := NewPair(req.SenderID, req.TargetID)
	unlock, err := c.lockPair(ctx, pair)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if _, err := c.sweepPair(ctx, pair, now); err != nil {
		return nil, err
	}

	var notices []notice
	err = c.inTx(ctx, func(ctx context.Context) error {
		m, err := c.registry.Get(ctx, pair)
		if err != nil {
			return err
		}
		if m != nil && m.Status == models.MatchUnmatched && m.RematchBlockedUntil != nil && !now.After(*m.RematchBlockedUntil) {
			return ErrRematchBlocked.WithDetail("rematch_blocked_until", m.RematchBlockedUntil.UTC())
		}

		edge, err := c.likes.Get(ctx, req.SenderID, req.TargetID)
		if err != nil {
			return err
		}
		if edge != nil && edge.Active {
			// повторный лайк бесплатный
			if err := c.likes.Touch(ctx, req.SenderID, req.TargetID, now); err != nil {
				return err
			}
		} else {
			count, err := c.likes.CountOnDate(ctx, req.SenderID, day.Date)
			if err != nil {
				return err
			}
			if count >= int64(c.rules.DailyLikeLimit) {
				return ErrDailyLikeLimitReached.
					WithDetail("limit", c.rules.DailyLikeLimit).
					WithDetail("local_date", day.Date)
			}
			if err := c.likes.Activate(ctx, req.SenderID, req.TargetID, day.Date, now); err != nil {
				return err
			}
		}

		reciprocal, err := c.likes.IsActive(ctx, req.TargetID, req.SenderID)
		if err != nil {
			return err
		}
		if !reciprocal {
			result = &LikeResult{Liked: true, IsMatched: m != nil && m.Status == models.MatchActive}
			return nil
		}

		matched, transitioned, err := c.registry.Activate(ctx, pair, now)
		if err != nil {
			return err
		}
		result = &LikeResult{Liked: true, MatchCreated: transitioned, IsMatched: true}
		if !transitioned {
			return nil
		}
		if err := c.negotiations.DeleteForMatch(ctx, matched.ID); err != nil {
			return err
		}
		notices = []notice{
			{userID: pair.A, event: MatchFormed{MatchID: matched.ID, WithUserID: pair.B, MatchedAt: now}},
			{userID: pair.B, event: MatchFormed{MatchID: matched.ID, WithUserID: pair.A, MatchedAt: now}},
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.MatchCreated {
		matchTransitions.WithLabelValues("formed", "mutual_like").Inc()
		c.log.Info("match formed", zap.Int64("user_a", pair.A), zap.Int64("user_b", pair.B))
	}
	c.deliver(ctx, notices)
	return result, nil
}

// awaitingReply - собственный запрос еще в паузе. После паузы промежуточный запрос можно
// повторить, при этом для встречного анлайка он остается ожидающим
func (c *Coordinator) awaitingReply(n *models.UnlikeNegotiation, now time.Time) bool {
	if n == nil || !n.Pending {
		return false
	}
	if n.AttemptsUsed >= c.rules.MaxUnlikeAttempts {
		return true
	}
	return n.NextAllowedAt == nil || now.Before(*n.NextAllowedAt)
}

func pending(n *models.UnlikeNegotiation) bool {
	return n != nil && n.Pending
}

func (c *Coordinator) overdue(n *models.UnlikeNegotiation, now time.Time) bool {
	return n.Pending &&
		n.AttemptsUsed >= c.rules.MaxUnlikeAttempts &&
		n.AutoUnmatchAt != nil &&
		!n.AutoUnmatchAt.After(now)
}

func snapshot(n *models.UnlikeNegotiation) *UnlikeSnapshot {
	if n == nil {
		return nil
	}
	return &UnlikeSnapshot{
		AttemptsUsed:  n.AttemptsUsed,
		Pending:       n.Pending,
		NextAllowedAt: n.NextAllowedAt,
		AutoUnmatchAt: n.AutoUnmatchAt,
	}
}

func splitNegotiations(list []models.UnlikeNegotiation, requesterID int64) (mine, theirs *models.UnlikeNegotiation) {
	for i := range list {
		if list[i].RequesterID == requesterID {
			mine = &list[i]
		} else {
			theirs = &list[i]
		}
	}
	return mine, theirs
}

// Unlike - запрос на разрыв мэтча. Без активного мэтча просто снимает лайк запрашивающего
func (c *Coordinator) Unlike(ctx context.Context, requesterID, targetID int64) (result *UnlikeResult, err error) {
	defer func() {
		if err != nil {
			c.logRejection("unlike", requesterID, targetID, err)
		}
	}()
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	if err := validatePair(requesterID, targetID); err != nil {
		return nil, err
	}

	now := c.now().UTC()
	pair := NewPair(requesterID, targetID)
	unlock, err := c.lockPair(ctx, pair)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var notices []notice
	err = c.inTx(ctx, func(ctx context.Context) error {
		m, err := c.registry.Get(ctx, pair)
		if err != nil {
			return err
		}
		if m == nil || m.Status != models.MatchActive {
			withdrawn, err := c.likes.Deactivate(ctx, requesterID, targetID, now)
			if err != nil {
				return err
			}
			result = &UnlikeResult{LikeWithdrawn: withdrawn}
			return nil
		}

		list, err := c.negotiations.ForMatch(ctx, m.ID)
		if err != nil {
			return err
		}
		for i := range list {
			if c.overdue(&list[i], now) {
				outcome, ns, err := c.finalizeUnmatch(ctx, m, ReasonAutoUnlikeTimeout, now)
				if err != nil {
					return err
				}
				notices = ns
				result = dissolvedResult(outcome)
				return nil
			}
		}

		// встречный запрос в ожидании: разрыв по взаимному согласию, паузы не важны
		mine, theirs := splitNegotiations(list, requesterID)
		if pending(theirs) {
			outcome, ns, err := c.finalizeUnmatch(ctx, m, ReasonMutualUnlike, now)
			if err != nil {
				return err
			}
			notices = ns
			result = dissolvedResult(outcome)
			return nil
		}

		if mine != nil && mine.AttemptsUsed >= c.rules.MaxUnlikeAttempts {
			e := ErrUnlikeAttemptsExhausted.WithDetail("attempts_used", mine.AttemptsUsed)
			if mine.AutoUnmatchAt != nil {
				e = e.WithDetail("auto_unmatch_at", mine.AutoUnmatchAt.UTC())
			}
			return e
		}
		if c.awaitingReply(mine, now) {
			if mine.NextAllowedAt != nil {
				return ErrUnlikeAlreadyPending.WithDetail("next_allowed_at", mine.NextAllowedAt.UTC())
			}
			return ErrUnlikeAlreadyPending
		}
		if mine != nil && mine.NextAllowedAt != nil && mine.NextAllowedAt.After(now) {
			return ErrUnlikeWaitRequired.WithDetail("next_allowed_at", mine.NextAllowedAt.UTC())
		}

		if mine == nil {
			mine, err = c.negotiations.Ensure(ctx, m.ID, requesterID, targetID, now)
			if err != nil {
				return err
			}
		}
		updated, ok, err := c.negotiations.RecordAttempt(ctx, mine, now, c.rules.UnlikeCooldown, c.rules.MaxUnlikeAttempts)
		if err != nil {
			return err
		}
		if !ok {
			// строку успел изменить конкурентный запрос того же пользователя
			return ErrUnlikeAlreadyPending
		}

		result = &UnlikeResult{IsMatched: true, UnlikeRequest: snapshot(updated)}
		notices = []notice{{
			userID: targetID,
			event: UnlikeRequested{
				MatchID:       m.ID,
				RequesterID:   requesterID,
				AttemptsUsed:  updated.AttemptsUsed,
				NextAllowedAt: *updated.NextAllowedAt,
				AutoUnmatchAt: updated.AutoUnmatchAt,
			},
		}}
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.deliver(ctx, notices)
	return result, nil
}

// DeclineUnlike - ответчик отказывается разрывать мэтч. Промежуточный запрос снимается,
// запрашивающий ждет окончания паузы. Финальный запрос отклонить нельзя
func (c *Coordinator) DeclineUnlike(ctx context.Context, responderID, requesterID int64) (result *UnlikeSnapshot, err error) {
	defer func() {
		if err != nil {
			c.logRejection("decline_unlike", responderID, requesterID, err)
		}
	}()
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	if err := validatePair(responderID, requesterID); err != nil {
		return nil, err
	}

	now := c.now().UTC()
	pair := NewPair(responderID, requesterID)
	unlock, err := c.lockPair(ctx, pair)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if _, err := c.sweepPair(ctx, pair, now); err != nil {
		return nil, err
	}

	err = c.inTx(ctx, func(ctx context.Context) error {
		m, err := c.registry.Get(ctx, pair)
		if err != nil {
			return err
		}
		if m == nil || m.Status != models.MatchActive {
			return ErrInvalidRequest.WithDetail("reason", "pair is not matched")
		}
		n, err := c.negotiations.Get(ctx, m.ID, requesterID, responderID)
		if err != nil {
			return err
		}
		if !pending(n) {
			return ErrInvalidRequest.WithDetail("reason", "no pending unlike request")
		}
		if n.AttemptsUsed >= c.rules.MaxUnlikeAttempts {
			return ErrInvalidRequest.WithDetail("reason", "final unlike request cannot be declined")
		}
		if _, err := c.negotiations.Decline(ctx, n.ID, now); err != nil {
			return err
		}
		n.Pending = false
		result = snapshot(n)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func dissolvedResult(outcome *UnmatchOutcome) *UnlikeResult {
	return &UnlikeResult{
		IsMatched:        false,
		UnmatchTriggered: true,
		Reason:           outcome.Reason,
		Unmatch:          outcome,
	}
}
