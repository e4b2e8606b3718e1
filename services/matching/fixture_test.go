package matching

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"socialmatch/db"
	"socialmatch/models"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var testStart = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeOracle struct {
	mu        sync.Mutex
	connected map[Pair]bool
}

func (o *fakeOracle) connect(a, b int64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.connected[NewPair(a, b)] = true
}

func (o *fakeOracle) disconnect(a, b int64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.connected, NewPair(a, b))
}

func (o *fakeOracle) AreConnected(_ context.Context, a, b int64) (bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.connected[NewPair(a, b)], nil
}

type purgeCall struct {
	a, b     int64
	from, to time.Time
}

// sqlChatStore удаляет сообщения через db.Conn, то есть в транзакции координатора
type sqlChatStore struct {
	orm *gorm.DB

	mu    sync.Mutex
	calls []purgeCall
	err   error
}

func (s *sqlChatStore) DeleteMessagesInWindow(ctx context.Context, a, b int64, from, to time.Time) error {
	s.mu.Lock()
	s.calls = append(s.calls, purgeCall{a: a, b: b, from: from, to: to})
	s.mu.Unlock()
	return db.Conn(ctx, s.orm).
		Where("((from_user_id = ? AND to_user_id = ?) OR (from_user_id = ? AND to_user_id = ?)) AND created_at >= ? AND created_at <= ?",
			a, b, b, a, from, to).
		Delete(&models.Message{}).Error
}

func (s *sqlChatStore) DeleteNotificationsReferencing(ctx context.Context, a, b int64, from, to time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *sqlChatStore) purges() []purgeCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]purgeCall(nil), s.calls...)
}

type sentEvent struct {
	userID int64
	event  Event
}

type recordingSink struct {
	mu     sync.Mutex
	events []sentEvent
	err    error
}

func (s *recordingSink) Notify(_ context.Context, userID int64, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, sentEvent{userID: userID, event: event})
	return s.err
}

func (s *recordingSink) ofKind(kind EventKind) []sentEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []sentEvent
	for _, e := range s.events {
		if e.event.Kind() == kind {
			out = append(out, e)
		}
	}
	return out
}

func (s *recordingSink) dissolved() []MatchDissolved {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []MatchDissolved
	for _, e := range s.events {
		if d, ok := e.event.(MatchDissolved); ok {
			out = append(out, d)
		}
	}
	return out
}

type fixture struct {
	coord  *Coordinator
	orm    *gorm.DB
	clock  *testClock
	oracle *fakeOracle
	chat   *sqlChatStore
	sink   *recordingSink
}

func testRules() Rules {
	return Rules{
		DailyLikeLimit:    5,
		UnlikeCooldown:    72 * time.Hour,
		MaxUnlikeAttempts: 3,
		RematchBlock:      15 * 24 * time.Hour,
		OperationTimeout:  5 * time.Second,
	}
}

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

func newFixture(t *testing.T) *fixture {
	t.Helper()
	orm := openTestDB(t)
	f := &fixture{
		orm:    orm,
		clock:  &testClock{now: testStart},
		oracle: &fakeOracle{connected: make(map[Pair]bool)},
		chat:   &sqlChatStore{orm: orm},
		sink:   &recordingSink{},
	}
	coord, err := NewCoordinator(Options{
		DB:       orm,
		Oracle:   f.oracle,
		Chat:     f.chat,
		Notifier: f.sink,
		Rules:    testRules(),
		Log:      zap.NewNop(),
		Now:      f.clock.Now,
	})
	require.NoError(t, err)
	f.coord = coord
	return f
}

// users создает n пользователей, попарно связанных друг с другом
func (f *fixture) users(t *testing.T, n int) []int64 {
	t.Helper()
	ids := make([]int64, 0, n)
	for i := 0; i < n; i++ {
		u := models.User{
			Nickname:  gofakeit.FirstName() + gofakeit.Numerify("####") + uuid.NewString()[:8],
			FirstName: gofakeit.FirstName(),
			LastName:  gofakeit.LastName(),
		}
		require.NoError(t, f.orm.Create(&u).Error)
		ids = append(ids, u.ID)
	}
	for i := range ids {
		for j := i + 1; j < len(ids); j++ {
			f.oracle.connect(ids[i], ids[j])
		}
	}
	return ids
}

func (f *fixture) like(t *testing.T, sender, target int64) *LikeResult {
	t.Helper()
	res, err := f.coord.Like(context.Background(), LikeRequest{SenderID: sender, TargetID: target})
	require.NoError(t, err)
	return res
}

func (f *fixture) match(t *testing.T, a, b int64) {
	t.Helper()
	f.like(t, a, b)
	res := f.like(t, b, a)
	require.True(t, res.IsMatched)
}

func (f *fixture) unlike(t *testing.T, requester, target int64) *UnlikeResult {
	t.Helper()
	res, err := f.coord.Unlike(context.Background(), requester, target)
	require.NoError(t, err)
	return res
}

// exhaust доводит запросы requester до последней попытки, выдерживая паузу между ними
func (f *fixture) exhaust(t *testing.T, requester, target int64) *UnlikeResult {
	t.Helper()
	var res *UnlikeResult
	for i := 0; i < testRules().MaxUnlikeAttempts; i++ {
		if i > 0 {
			f.clock.Advance(testRules().UnlikeCooldown)
		}
		res = f.unlike(t, requester, target)
		require.NotNil(t, res.UnlikeRequest)
		require.Equal(t, i+1, res.UnlikeRequest.AttemptsUsed)
	}
	return res
}

func (f *fixture) message(t *testing.T, from, to int64, at time.Time) models.Message {
	t.Helper()
	msg := models.Message{FromUserID: from, ToUserID: to, Text: "see you in " + gofakeit.City(), CreatedAt: at}
	require.NoError(t, f.orm.Create(&msg).Error)
	return msg
}

func requireCode(t *testing.T, err error, target *Error) {
	t.Helper()
	require.Error(t, err)
	require.True(t, errors.Is(err, target), "expected %s, got %v", target.Code, err)
}
