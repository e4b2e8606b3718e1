package services

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
)

// WSConnManager хранит WebSocket-подключения пользователей. gorilla/websocket не допускает
// конкурентной записи в одно соединение, поэтому Send берет эксклюзивную блокировку
type WSConnManager struct {
	mu    sync.Mutex
	users map[int64][]*websocket.Conn
}

func NewWSConnManager() *WSConnManager {
	return &WSConnManager{
		users: make(map[int64][]*websocket.Conn),
	}
}

func (m *WSConnManager) Add(userID int64, conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[userID] = append(m.users[userID], conn)
}

func (m *WSConnManager) Remove(userID int64, conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conns := m.users[userID]
	for i, c := range conns {
		if c == conn {
			m.users[userID] = append(conns[:i], conns[i+1:]...)
			break
		}
	}
	if len(m.users[userID]) == 0 {
		delete(m.users, userID)
	}
}

func (m *WSConnManager) Connections(userID int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users[userID])
}

// Send отправляет сообщение во все подключения пользователя, возвращает число успешных отправок
func (m *WSConnManager) Send(userID int64, message []byte) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	sent := 0
	for _, conn := range m.users[userID] {
		if err := conn.WriteMessage(websocket.TextMessage, message); err == nil {
			sent++
		}
	}
	return sent
}

// Publish - доставка без брокера, когда RabbitMQ не настроен
func (m *WSConnManager) Publish(_ context.Context, msg PushMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	m.Send(msg.UserID, data)
	return nil
}
