package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// dialWS поднимает сервер, который регистрирует подключение за userID, и возвращает клиента
func dialWS(t *testing.T, m *WSConnManager, userID int64) *websocket.Conn {
	t.Helper()
	upgrader := websocket.Upgrader{}
	registered := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		m.Add(userID, conn)
		close(registered)
	}))
	t.Cleanup(srv.Close)

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	select {
	case <-registered:
	case <-time.After(time.Second):
		t.Fatal("websocket was not registered")
	}
	return client
}

func readPush(t *testing.T, client *websocket.Conn) PushMessage {
	t.Helper()
	require.NoError(t, client.SetReadDeadline(time.Now().Add(time.Second)))
	_, data, err := client.ReadMessage()
	require.NoError(t, err)
	var msg PushMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestWSConnManagerPublish(t *testing.T) {
	m := NewWSConnManager()
	client := dialWS(t, m, 7)
	assert.Equal(t, 1, m.Connections(7))

	require.NoError(t, m.Publish(context.Background(), PushMessage{Event: "match", UserID: 7, Title: "It's a match!"}))
	msg := readPush(t, client)
	assert.Equal(t, "match", msg.Event)
	assert.Equal(t, "It's a match!", msg.Title)

	assert.Zero(t, m.Send(8, []byte("{}")))
}

func TestRabbitDispatchRoutesToUser(t *testing.T) {
	m := NewWSConnManager()
	client := dialWS(t, m, 5)
	broker := &RabbitBroker{log: zap.NewNop()}

	body, err := json.Marshal(PushMessage{Event: "match_unlike", UserID: 5})
	require.NoError(t, err)
	broker.dispatch(body, m)
	assert.Equal(t, "match_unlike", readPush(t, client).Event)

	// битое сообщение только логируется
	broker.dispatch([]byte("not json"), m)
	assert.Equal(t, "user.42", routingKey(42))
}
