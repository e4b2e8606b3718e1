package matching

import (
	"context"
	"time"

	"socialmatch/db"
	"socialmatch/models"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NegotiationTracker хранит попытки анлайка по направлениям внутри мэтча
type NegotiationTracker struct {
	orm *gorm.DB
}

func NewNegotiationTracker(orm *gorm.DB) *NegotiationTracker {
	return &NegotiationTracker{orm: orm}
}

func (t *NegotiationTracker) ForMatch(ctx context.Context, matchID string) ([]models.UnlikeNegotiation, error) {
	var list []models.UnlikeNegotiation
	err := db.Conn(ctx, t.orm).Where("match_id = ?", matchID).Order("id").Find(&list).Error
	if err != nil {
		return nil, errors.Wrap(err, "negotiation tracker: list")
	}
	return list, nil
}

func (t *NegotiationTracker) Get(ctx context.Context, matchID string, requesterID, responderID int64) (*models.UnlikeNegotiation, error) {
	var n models.UnlikeNegotiation
	err := db.Conn(ctx, t.orm).
		Where("match_id = ? AND requester_id = ? AND responder_id = ?", matchID, requesterID, responderID).
		Take(&n).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "negotiation tracker: get")
	}
	return &n, nil
}

// Ensure лениво создает запись направления и возвращает ее
func (t *NegotiationTracker) Ensure(ctx context.Context, matchID string, requesterID, responderID int64, now time.Time) (*models.UnlikeNegotiation, error) {
	n := models.UnlikeNegotiation{
		MatchID:     matchID,
		RequesterID: requesterID,
		ResponderID: responderID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err := db.Conn(ctx, t.orm).Clauses(clause.OnConflict{DoNothing: true}).Create(&n).Error
	if err != nil {
		return nil, errors.Wrap(err, "negotiation tracker: ensure")
	}
	got, err := t.Get(ctx, matchID, requesterID, responderID)
	if err != nil {
		return nil, err
	}
	if got == nil {
		return nil, errors.New("negotiation tracker: record vanished after ensure")
	}
	return got, nil
}

// RecordAttempt засчитывает попытку анлайка. Сравнение attempts_used с прочитанным значением
// делает обновление атомарным: из двух конкурентных вызовов пройдет только один
func (t *NegotiationTracker) RecordAttempt(ctx context.Context, n *models.UnlikeNegotiation, now time.Time, cooldown time.Duration, maxAttempts int) (*models.UnlikeNegotiation, bool, error) {
	attempts := n.AttemptsUsed + 1
	nextAllowed := now.Add(cooldown)
	updates := map[string]interface{}{
		"attempts_used":     attempts,
		"pending":           true,
		"last_requested_at": now,
		"next_allowed_at":   nextAllowed,
		"updated_at":        now,
	}
	if attempts >= maxAttempts {
		updates["auto_unmatch_at"] = nextAllowed
	}

	res := db.Conn(ctx, t.orm).Model(&models.UnlikeNegotiation{}).
		Where("id = ? AND attempts_used = ? AND attempts_used < ?", n.ID, n.AttemptsUsed, maxAttempts).
		Where("(pending = ? OR next_allowed_at IS NULL OR next_allowed_at <= ?)", false, now).
		UpdateColumns(updates)
	if res.Error != nil {
		return nil, false, errors.Wrap(res.Error, "negotiation tracker: record attempt")
	}
	if res.RowsAffected == 0 {
		return nil, false, nil
	}
	updated, err := t.Get(ctx, n.MatchID, n.RequesterID, n.ResponderID)
	if err != nil {
		return nil, false, err
	}
	return updated, true, nil
}

// Decline снимает флаг ожидания (ответчик отказался разрывать мэтч), пауза и счетчик сохраняются
func (t *NegotiationTracker) Decline(ctx context.Context, id int64, now time.Time) (bool, error) {
	res := db.Conn(ctx, t.orm).Model(&models.UnlikeNegotiation{}).
		Where("id = ? AND pending = ?", id, true).
		UpdateColumns(map[string]interface{}{"pending": false, "updated_at": now})
	if res.Error != nil {
		return false, errors.Wrap(res.Error, "negotiation tracker: decline")
	}
	return res.RowsAffected == 1, nil
}

// Resolve закрывает все переговоры мэтча: ожидание снято, таймеры обнулены
func (t *NegotiationTracker) Resolve(ctx context.Context, matchID string, now time.Time) error {
	err := db.Conn(ctx, t.orm).Model(&models.UnlikeNegotiation{}).
		Where("match_id = ?", matchID).
		UpdateColumns(map[string]interface{}{
			"pending":         false,
			"next_allowed_at": nil,
			"auto_unmatch_at": nil,
			"updated_at":      now,
		}).Error
	if err != nil {
		return errors.Wrap(err, "negotiation tracker: resolve")
	}
	return nil
}

// DeleteForMatch удаляет устаревшие переговоры при повторном формировании мэтча
func (t *NegotiationTracker) DeleteForMatch(ctx context.Context, matchID string) error {
	err := db.Conn(ctx, t.orm).Where("match_id = ?", matchID).Delete(&models.UnlikeNegotiation{}).Error
	if err != nil {
		return errors.Wrap(err, "negotiation tracker: delete")
	}
	return nil
}

// Overdue возвращает просроченные финальные запросы: pending, попытки исчерпаны, auto_unmatch_at <= now
func (t *NegotiationTracker) Overdue(ctx context.Context, now time.Time, maxAttempts, limit int) ([]models.UnlikeNegotiation, error) {
	var list []models.UnlikeNegotiation
	err := db.Conn(ctx, t.orm).
		Where("pending = ? AND attempts_used >= ? AND auto_unmatch_at IS NOT NULL AND auto_unmatch_at <= ?", true, maxAttempts, now).
		Order("auto_unmatch_at").
		Limit(limit).
		Find(&list).Error
	if err != nil {
		return nil, errors.Wrap(err, "negotiation tracker: overdue")
	}
	return list, nil
}
