package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"socialmatch/models"
	"socialmatch/services/matching"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMatchLifecycleWithServices(t *testing.T) {
	orm := openTestDB(t)
	friends := NewFriendService(orm)
	dialogs := NewDialogService(orm)
	pub := &capturePublisher{}
	notifier := NewNotificationService(orm, pub, zap.NewNop())

	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	dialogs.now = clock
	notifier.now = clock

	coord, err := matching.NewCoordinator(matching.Options{
		DB:       orm,
		Oracle:   friends,
		Chat:     dialogs,
		Notifier: notifier,
		Rules: matching.Rules{
			DailyLikeLimit:    5,
			UnlikeCooldown:    72 * time.Hour,
			MaxUnlikeAttempts: 3,
			RematchBlock:      15 * 24 * time.Hour,
		},
		Log: zap.NewNop(),
		Now: clock,
	})
	require.NoError(t, err)

	ids := createUsers(t, orm, 2)
	a, b := ids[0], ids[1]
	ctx := context.Background()

	_, err = coord.Like(ctx, matching.LikeRequest{SenderID: a, TargetID: b})
	require.True(t, errors.Is(err, matching.ErrForbidden))

	require.NoError(t, friends.AddFriend(ctx, a, b))
	require.NoError(t, friends.ApproveFriend(ctx, b, a))

	_, err = dialogs.SendMessage(ctx, a, b, "before the match")
	require.NoError(t, err)
	now = now.Add(time.Hour)

	res, err := coord.Like(ctx, matching.LikeRequest{SenderID: a, TargetID: b})
	require.NoError(t, err)
	assert.False(t, res.MatchCreated)
	res, err = coord.Like(ctx, matching.LikeRequest{SenderID: b, TargetID: a})
	require.NoError(t, err)
	assert.True(t, res.MatchCreated)

	now = now.Add(time.Minute)
	_, err = dialogs.SendMessage(ctx, b, a, "during the match")
	require.NoError(t, err)

	now = now.Add(time.Hour)
	unlike, err := coord.Unlike(ctx, a, b)
	require.NoError(t, err)
	assert.Equal(t, 1, unlike.UnlikeRequest.AttemptsUsed)

	unlike, err = coord.Unlike(ctx, b, a)
	require.NoError(t, err)
	assert.True(t, unlike.UnmatchTriggered)
	assert.Equal(t, matching.ReasonMutualUnlike, unlike.Reason)

	messages, err := dialogs.ListDialog(ctx, a, b, 0)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "before the match", messages[0].Text)

	var kinds []string
	require.NoError(t, orm.Model(&models.Notification{}).Where("user_id = ?", a).Order("id").Pluck("kind", &kinds).Error)
	// match, анлайк-запрос ушел b, сообщение "during" удалено, затем разрыв
	assert.Equal(t, []string{"match", "match_unlike"}, kinds)

	status, err := coord.StatusOf(ctx, a, b)
	require.NoError(t, err)
	assert.False(t, status.IsMatched)
	assert.True(t, status.Connected)
	assert.False(t, status.CanLike)

	_, err = coord.Like(ctx, matching.LikeRequest{SenderID: a, TargetID: b})
	require.True(t, errors.Is(err, matching.ErrRematchBlocked))

	require.NoError(t, friends.BlockFriend(ctx, b, a))
	status, err = coord.StatusOf(ctx, a, b)
	require.NoError(t, err)
	assert.False(t, status.Connected)

	assert.Len(t, pub.published(), 5)
}
