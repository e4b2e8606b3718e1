package handlers

import (
	"net/http"

	"socialmatch/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type WSHandler struct {
	conns *services.WSConnManager
	log   *zap.Logger
}

func NewWSHandler(conns *services.WSConnManager, log *zap.Logger) *WSHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &WSHandler{conns: conns, log: log}
}

// Connect - WebSocket для уведомлений о мэтчах и сообщениях
func (h *WSHandler) Connect(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("WebSocket upgrade error", zap.Error(err))
		return
	}
	defer conn.Close()

	h.conns.Add(userID, conn)
	defer h.conns.Remove(userID, conn)

	h.conns.Send(userID, []byte(`{"event":"connected","message":"WebSocket connected"}`))

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.log.Debug("WebSocket closed", zap.Int64("user_id", userID), zap.Error(err))
			break
		}
	}
}
