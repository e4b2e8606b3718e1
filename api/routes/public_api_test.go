package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"socialmatch/api/handlers"
	"socialmatch/db"
	"socialmatch/models"
	"socialmatch/services"
	"socialmatch/services/matching"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type testServer struct {
	router *gin.Engine
	orm    *gorm.DB
}

func setupRouter(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	orm, err := db.OpenSQLite(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := orm.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	log := zap.NewNop()
	ws := services.NewWSConnManager()
	friends := services.NewFriendService(orm)
	dialogs := services.NewDialogService(orm)
	notifier := services.NewNotificationService(orm, ws, log)
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
		Log: log,
	})
	require.NoError(t, err)

	r := gin.New()
	PublicApi(r, Handlers{
		Users:   handlers.NewUserHandlers(services.NewUserService(orm), log),
		Match:   handlers.NewMatchHandlers(coord, log),
		Friends: handlers.NewFriendHandlers(friends, log),
		Dialogs: handlers.NewDialogHandlers(dialogs, notifier, log),
		WS:      handlers.NewWSHandler(ws, log),
	})
	return &testServer{router: r, orm: orm}
}

func (s *testServer) users(t *testing.T, n int) []int64 {
	t.Helper()
	ids := make([]int64, 0, n)
	for i := 0; i < n; i++ {
		u := models.User{Nickname: gofakeit.FirstName() + gofakeit.Numerify("######"), FirstName: gofakeit.FirstName()}
		require.NoError(t, s.orm.Create(&u).Error)
		ids = append(ids, u.ID)
	}
	return ids
}

func (s *testServer) do(t *testing.T, method, path string, userID int64, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if userID != 0 {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer test_token_%d", userID))
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var out map[string]interface{}
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	}
	return w, out
}

func (s *testServer) befriend(t *testing.T, a, b int64) {
	t.Helper()
	w, _ := s.do(t, http.MethodPost, "/api/v1/friends/add", a, map[string]int64{"friend_id": b})
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = s.do(t, http.MethodPost, "/api/v1/friends/approve", b, map[string]int64{"friend_id": a})
	require.Equal(t, http.StatusOK, w.Code)
}

func TestAuthRequired(t *testing.T) {
	s := setupRouter(t)
	w, out := s.do(t, http.MethodGet, "/api/v1/match/2/status", 0, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, out["error"], "Authentication required")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/match/2/status", nil)
	req.Header.Set("X-User-ID", "abc")
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMatchFlowOverHTTP(t *testing.T) {
	s := setupRouter(t)
	ids := s.users(t, 2)
	a, b := ids[0], ids[1]

	w, out := s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/match/%d/like", b), a, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "forbidden", out["error"])

	s.befriend(t, a, b)

	w, out = s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/match/%d/like", b), a, map[string]int{"tz_offset_minutes": 180})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, out["matchCreated"])

	w, out = s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/match/%d/status", a), b, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, out["likedByOther"])
	assert.Equal(t, true, out["canLike"])

	w, out = s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/match/%d/like", a), b, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, out["matchCreated"])
	assert.Equal(t, true, out["isMatched"])

	w, out = s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/match/%d/unlike", b), a, nil)
	require.Equal(t, http.StatusOK, w.Code)
	request, ok := out["unlikeRequest"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(1), request["attemptsUsed"])

	w, out = s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/match/%d/unlike", b), a, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "unlike_already_pending", out["error"])

	w, _ = s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/match/%d/unlike/decline", a), b, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, out = s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/match/%d/unlike", b), a, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "unlike_wait_required", out["error"])
	assert.Contains(t, out["details"], "next_allowed_at")

	w, out = s.do(t, http.MethodGet, "/api/v1/notifications", b, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, out["notifications"], 2)
}

func TestLikeValidationOverHTTP(t *testing.T) {
	s := setupRouter(t)
	ids := s.users(t, 2)
	s.befriend(t, ids[0], ids[1])

	w, _ := s.do(t, http.MethodPost, "/api/v1/match/abc/like", ids[0], nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, out := s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/match/%d/like", ids[0]), ids[0], nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_request", out["error"])

	w, out = s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/match/%d/like", ids[1]), ids[0], map[string]int{"tz_offset_minutes": 5000})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_request", out["error"])
}

func TestDialogOverHTTP(t *testing.T) {
	s := setupRouter(t)
	ids := s.users(t, 2)

	w, _ := s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/dialog/%d/send", ids[1]), ids[0], map[string]string{"text": "hello"})
	require.Equal(t, http.StatusOK, w.Code)

	w, out := s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/dialog/%d/list", ids[0]), ids[1], nil)
	require.Equal(t, http.StatusOK, w.Code)
	messages, ok := out["messages"].([]interface{})
	require.True(t, ok)
	assert.Len(t, messages, 1)

	w, out = s.do(t, http.MethodGet, "/api/v1/friends/requests", ids[1], nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, out["requests"])
}

func TestRegisterAndLoginOverHTTP(t *testing.T) {
	s := setupRouter(t)
	nickname := gofakeit.FirstName() + gofakeit.Numerify("####")
	creds := map[string]string{"nickname": nickname, "password": "pa55word"}

	w, out := s.do(t, http.MethodPost, "/api/v1/user/register", 0, creds)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	userID := int64(out["user_id"].(float64))

	w, _ = s.do(t, http.MethodPost, "/api/v1/user/register", 0, creds)
	assert.Equal(t, http.StatusConflict, w.Code)

	w, out = s.do(t, http.MethodPost, "/api/v1/user/login", 0, creds)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, fmt.Sprintf("test_token_%d", userID), out["token"])

	w, _ = s.do(t, http.MethodPost, "/api/v1/user/login", 0, map[string]string{"nickname": nickname, "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, out = s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/user/get/%d", userID), userID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, nickname, out["nickname"])
	assert.NotContains(t, out, "password")

	w, _ = s.do(t, http.MethodGet, "/api/v1/user/get/999999", userID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
