package services

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"socialmatch/db"
	"socialmatch/models"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	orm, err := db.OpenSQLite(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := orm.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return orm
}

func createUsers(t *testing.T, orm *gorm.DB, n int) []int64 {
	t.Helper()
	ids := make([]int64, 0, n)
	for i := 0; i < n; i++ {
		u := models.User{
			Nickname:  gofakeit.FirstName() + gofakeit.Numerify("######"),
			FirstName: gofakeit.FirstName(),
			LastName:  gofakeit.LastName(),
		}
		require.NoError(t, orm.Create(&u).Error)
		ids = append(ids, u.ID)
	}
	return ids
}

type capturePublisher struct {
	mu   sync.Mutex
	msgs []PushMessage
	err  error
}

func (p *capturePublisher) Publish(_ context.Context, msg PushMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
	return p.err
}

func (p *capturePublisher) published() []PushMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]PushMessage(nil), p.msgs...)
}
