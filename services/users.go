package services

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"socialmatch/db"
	"socialmatch/models"

	"golang.org/x/crypto/argon2"
	"gorm.io/gorm"
)

var (
	ErrUserExists       = errors.New("user already exists")
	ErrInvalidUserInput = errors.New("nickname and password are required")
	ErrBadCredentials   = errors.New("invalid nickname or password")
)

type UserService struct {
	orm *gorm.DB
}

func NewUserService(orm *gorm.DB) *UserService {
	return &UserService{orm: orm}
}

type RegisterRequest struct {
	Nickname  string `json:"nickname" binding:"required"`
	Password  string `json:"password" binding:"required"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// hashPassword - argon2id, хранится как hex(salt)$hex(hash)
func hashPassword(password string, salt []byte) string {
	hash := argon2.IDKey([]byte(password), salt, 1, 64*1024, 4, 32)
	return hex.EncodeToString(salt) + "$" + hex.EncodeToString(hash)
}

func checkPassword(stored, password string) bool {
	parts := strings.Split(stored, "$")
	if len(parts) != 2 {
		return false
	}
	salt, err := hex.DecodeString(parts[0])
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(hashPassword(password, salt)), []byte(stored)) == 1
}

func (us *UserService) Register(ctx context.Context, req RegisterRequest) (*models.User, error) {
	req.Nickname = strings.TrimSpace(req.Nickname)
	if req.Nickname == "" || req.Password == "" {
		return nil, ErrInvalidUserInput
	}

	var exists int64
	err := db.GetWriteDB(ctx, us.orm).Model(&models.User{}).Where("nickname = ?", req.Nickname).Count(&exists).Error
	if err != nil {
		return nil, fmt.Errorf("error checking if user exists: %w", err)
	}
	if exists > 0 {
		return nil, ErrUserExists
	}

	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("error generating salt: %w", err)
	}
	user := &models.User{
		Nickname:  req.Nickname,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Password:  hashPassword(req.Password, salt),
	}
	if err := db.GetWriteDB(ctx, us.orm).Create(user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// Authenticate проверяет пароль и возвращает пользователя
func (us *UserService) Authenticate(ctx context.Context, nickname, password string) (*models.User, error) {
	var user models.User
	err := db.GetReadOnlyDB(ctx, us.orm).Where("nickname = ?", nickname).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrBadCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if !checkPassword(user.Password, password) {
		return nil, ErrBadCredentials
	}
	return &user, nil
}

func (us *UserService) Get(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	err := db.GetReadOnlyDB(ctx, us.orm).Where("id = ?", id).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}
