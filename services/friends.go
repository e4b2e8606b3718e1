package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"socialmatch/db"
	"socialmatch/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrSelfFriend        = errors.New("cannot add yourself as friend")
	ErrUserNotFound      = errors.New("one or both users do not exist")
	ErrFriendshipExists  = errors.New("friendship already exists")
	ErrRequestPending    = errors.New("friend request already pending")
	ErrRequestNotFound   = errors.New("friend request not found")
	ErrFriendshipBlocked = errors.New("friendship is blocked")
)

// FriendService - связи между пользователями. Отвечает координатору мэтчей,
// связаны ли пользователи: нужна подтвержденная дружба и отсутствие блокировки
type FriendService struct {
	orm *gorm.DB
	now func() time.Time
}

func NewFriendService(orm *gorm.DB) *FriendService {
	return &FriendService{orm: orm, now: time.Now}
}

func pairCondition(userID, friendID int64) (string, []interface{}) {
	return "((user_id = ? AND friend_id = ?) OR (user_id = ? AND friend_id = ?))",
		[]interface{}{userID, friendID, friendID, userID}
}

// AddFriend добавляет запрос на дружбу
func (fs *FriendService) AddFriend(ctx context.Context, userID, friendID int64) error {
	if userID == friendID {
		return ErrSelfFriend
	}

	var userCount int64
	err := db.GetReadOnlyDB(ctx, fs.orm).Model(&models.User{}).Where("id IN ?", []int64{userID, friendID}).Count(&userCount).Error
	if err != nil {
		return fmt.Errorf("error checking users: %w", err)
	}
	if userCount != 2 {
		return ErrUserNotFound
	}

	cond, args := pairCondition(userID, friendID)
	var existing models.Friend
	err = db.GetWriteDB(ctx, fs.orm).Where(cond, args...).First(&existing).Error
	if err == nil {
		switch existing.Status {
		case models.FriendApproved:
			return ErrFriendshipExists
		case models.FriendBlocked:
			return ErrFriendshipBlocked
		default:
			return ErrRequestPending
		}
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("error checking friendship: %w", err)
	}

	friendship := &models.Friend{
		UserID:    userID,
		FriendID:  friendID,
		Status:    models.FriendPending,
		CreatedAt: fs.now().UTC(),
	}
	if err := db.GetWriteDB(ctx, fs.orm).Create(friendship).Error; err != nil {
		return fmt.Errorf("failed to create friend request: %w", err)
	}
	return nil
}

// ApproveFriend подтверждает входящую заявку от requesterID
func (fs *FriendService) ApproveFriend(ctx context.Context, userID, requesterID int64) error {
	now := fs.now().UTC()
	res := db.GetWriteDB(ctx, fs.orm).Model(&models.Friend{}).
		Where("user_id = ? AND friend_id = ? AND status = ?", requesterID, userID, models.FriendPending).
		Updates(map[string]interface{}{"status": models.FriendApproved, "approved_at": now})
	if res.Error != nil {
		return fmt.Errorf("failed to approve friendship: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrRequestNotFound
	}
	return nil
}

// DeleteFriend удаляет дружбу в обе стороны. Блокировку снимает только тот, кто ее поставил
func (fs *FriendService) DeleteFriend(ctx context.Context, userID, friendID int64) error {
	cond, args := pairCondition(userID, friendID)
	err := db.GetWriteDB(ctx, fs.orm).
		Where(cond, args...).
		Where("(status <> ? OR user_id = ?)", models.FriendBlocked, userID).
		Delete(&models.Friend{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete friendship: %w", err)
	}
	return nil
}

// BlockFriend блокирует пользователя. Любая связь пары заменяется записью блокировки от userID
func (fs *FriendService) BlockFriend(ctx context.Context, userID, friendID int64) error {
	if userID == friendID {
		return ErrSelfFriend
	}
	cond, args := pairCondition(userID, friendID)
	return db.GetWriteDB(ctx, fs.orm).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(cond, args...).Where("(user_id <> ? OR status <> ?)", userID, models.FriendBlocked).
			Delete(&models.Friend{}).Error; err != nil {
			return fmt.Errorf("failed to clear friendship: %w", err)
		}
		block := &models.Friend{
			UserID:    userID,
			FriendID:  friendID,
			Status:    models.FriendBlocked,
			CreatedAt: fs.now().UTC(),
		}
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "friend_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"status"}),
		}).Create(block).Error
		if err != nil {
			return fmt.Errorf("failed to block user: %w", err)
		}
		return nil
	})
}

// AreConnected - дружба подтверждена и ни одна сторона не заблокировала другую
func (fs *FriendService) AreConnected(ctx context.Context, userA, userB int64) (bool, error) {
	cond, args := pairCondition(userA, userB)
	var rows []models.Friend
	err := db.GetReadOnlyDB(ctx, fs.orm).Where(cond, args...).Find(&rows).Error
	if err != nil {
		return false, fmt.Errorf("failed to check connection: %w", err)
	}
	approved := false
	for _, r := range rows {
		switch r.Status {
		case models.FriendBlocked:
			return false, nil
		case models.FriendApproved:
			approved = true
		}
	}
	return approved, nil
}

// GetFriends возвращает список друзей пользователя
func (fs *FriendService) GetFriends(ctx context.Context, userID int64) ([]models.User, error) {
	var friends []models.User
	err := db.GetReadOnlyDB(ctx, fs.orm).
		Table("users u").
		Joins("JOIN friend f ON (f.user_id = u.id AND f.friend_id = ?) OR (f.friend_id = u.id AND f.user_id = ?)", userID, userID).
		Where("f.status = ? AND u.id <> ?", models.FriendApproved, userID).
		Select("u.id, u.nickname, u.first_name, u.last_name, u.created_at").
		Order("u.id").
		Find(&friends).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get friends: %w", err)
	}
	return friends, nil
}

// GetPendingRequests возвращает входящие заявки в друзья
func (fs *FriendService) GetPendingRequests(ctx context.Context, userID int64) ([]models.User, error) {
	var requesters []models.User
	err := db.GetReadOnlyDB(ctx, fs.orm).
		Table("users u").
		Joins("JOIN friend f ON f.user_id = u.id").
		Where("f.friend_id = ? AND f.status = ?", userID, models.FriendPending).
		Select("u.id, u.nickname, u.first_name, u.last_name, u.created_at").
		Order("u.id").
		Find(&requesters).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get pending requests: %w", err)
	}
	return requesters, nil
}
