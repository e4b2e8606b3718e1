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

// LikeLedger хранит направленные лайки
type LikeLedger struct {
	orm *gorm.DB
}

func NewLikeLedger(orm *gorm.DB) *LikeLedger {
	return &LikeLedger{orm: orm}
}

// Get возвращает лайк sender -> receiver или nil, если его никогда не было
func (l *LikeLedger) Get(ctx context.Context, senderID, receiverID int64) (*models.LikeEdge, error) {
	var edge models.LikeEdge
	err := db.Conn(ctx, l.orm).
		Where("sender_id = ? AND receiver_id = ?", senderID, receiverID).
		Take(&edge).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "like ledger: get edge")
	}
	return &edge, nil
}

func (l *LikeLedger) IsActive(ctx context.Context, senderID, receiverID int64) (bool, error) {
	edge, err := l.Get(ctx, senderID, receiverID)
	if err != nil {
		return false, err
	}
	return edge != nil && edge.Active, nil
}

// CountOnDate считает лайки отправителя, активированные в локальную дату localDate
func (l *LikeLedger) CountOnDate(ctx context.Context, senderID int64, localDate string) (int64, error) {
	var count int64
	err := db.Conn(ctx, l.orm).Model(&models.LikeEdge{}).
		Where("sender_id = ? AND local_date = ?", senderID, localDate).
		Count(&count).Error
	if err != nil {
		return 0, errors.Wrap(err, "like ledger: count daily likes")
	}
	return count, nil
}

// Activate включает лайк и записывает дату активации. Одна строка на упорядоченную пару (upsert)
func (l *LikeLedger) Activate(ctx context.Context, senderID, receiverID int64, localDate string, now time.Time) error {
	edge := models.LikeEdge{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Active:     true,
		LocalDate:  localDate,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	err := db.Conn(ctx, l.orm).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "sender_id"}, {Name: "receiver_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"active", "local_date", "updated_at"}),
	}).Create(&edge).Error
	if err != nil {
		return errors.Wrap(err, "like ledger: activate edge")
	}
	return nil
}

// Touch обновляет время уже активного лайка, дата активации не меняется
func (l *LikeLedger) Touch(ctx context.Context, senderID, receiverID int64, now time.Time) error {
	err := db.Conn(ctx, l.orm).Model(&models.LikeEdge{}).
		Where("sender_id = ? AND receiver_id = ?", senderID, receiverID).
		UpdateColumn("updated_at", now).Error
	if err != nil {
		return errors.Wrap(err, "like ledger: touch edge")
	}
	return nil
}

// Deactivate снимает лайк sender -> receiver. Отсутствие лайка не ошибка
func (l *LikeLedger) Deactivate(ctx context.Context, senderID, receiverID int64, now time.Time) (bool, error) {
	res := db.Conn(ctx, l.orm).Model(&models.LikeEdge{}).
		Where("sender_id = ? AND receiver_id = ? AND active = ?", senderID, receiverID, true).
		UpdateColumns(map[string]interface{}{"active": false, "updated_at": now})
	if res.Error != nil {
		return false, errors.Wrap(res.Error, "like ledger: deactivate edge")
	}
	return res.RowsAffected > 0, nil
}

// DeactivatePair снимает оба направленных лайка пары
func (l *LikeLedger) DeactivatePair(ctx context.Context, pair Pair, now time.Time) error {
	err := db.Conn(ctx, l.orm).Model(&models.LikeEdge{}).
		Where("((sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)) AND active = ?",
			pair.A, pair.B, pair.B, pair.A, true).
		UpdateColumns(map[string]interface{}{"active": false, "updated_at": now}).Error
	if err != nil {
		return errors.Wrap(err, "like ledger: deactivate pair")
	}
	return nil
}
