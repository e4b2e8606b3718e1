package handlers

import (
	"errors"
	"io"
	"net/http"
	"time"

	"socialmatch/api/middleware"
	"socialmatch/services/matching"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// MatchHandlers - HTTP-обертка над координатором мэтчей
type MatchHandlers struct {
	coord *matching.Coordinator
	log   *zap.Logger
}

func NewMatchHandlers(coord *matching.Coordinator, log *zap.Logger) *MatchHandlers {
	if log == nil {
		log = zap.NewNop()
	}
	return &MatchHandlers{coord: coord, log: log}
}

func statusForCode(code matching.Code) int {
	switch code {
	case matching.CodeInvalidRequest:
		return http.StatusBadRequest
	case matching.CodeForbidden:
		return http.StatusForbidden
	case matching.CodeRematchBlocked, matching.CodeUnlikeAlreadyPending, matching.CodeUnlikeAttemptsExhausted:
		return http.StatusConflict
	case matching.CodeDailyLikeLimitReached, matching.CodeUnlikeWaitRequired:
		return http.StatusTooManyRequests
	default:
		return http.StatusBadRequest
	}
}

// respond пишет результат операции и учитывает ее в метриках
func (h *MatchHandlers) respond(c *gin.Context, operation string, start time.Time, result interface{}, err error) {
	if err == nil {
		middleware.RecordMatchOperation(operation, "ok", time.Since(start))
		c.JSON(http.StatusOK, result)
		return
	}
	if e, ok := matching.AsError(err); ok {
		middleware.RecordMatchOperation(operation, string(e.Code), time.Since(start))
		c.JSON(statusForCode(e.Code), e)
		return
	}
	middleware.RecordMatchOperation(operation, "error", time.Since(start))
	h.log.Error("match request failed", zap.String("operation", operation), zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

// GetStatus - GET /match/:user_id/status
func (h *MatchHandlers) GetStatus(c *gin.Context) {
	viewerID, ok := currentUserID(c)
	if !ok {
		return
	}
	targetID, ok := pathUserID(c)
	if !ok {
		return
	}
	start := time.Now()
	status, err := h.coord.StatusOf(c.Request.Context(), viewerID, targetID)
	h.respond(c, "status", start, status, err)
}

// SendLike - POST /match/:user_id/like, тело {local_date?, tz_offset_minutes?} необязательно
func (h *MatchHandlers) SendLike(c *gin.Context) {
	senderID, ok := currentUserID(c)
	if !ok {
		return
	}
	targetID, ok := pathUserID(c)
	if !ok {
		return
	}
	var body struct {
		LocalDate       string `json:"local_date"`
		TZOffsetMinutes *int   `json:"tz_offset_minutes"`
	}
	if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	start := time.Now()
	res, err := h.coord.Like(c.Request.Context(), matching.LikeRequest{
		SenderID:        senderID,
		TargetID:        targetID,
		LocalDate:       body.LocalDate,
		TZOffsetMinutes: body.TZOffsetMinutes,
	})
	h.respond(c, "like", start, res, err)
}

// RequestUnlike - POST /match/:user_id/unlike
func (h *MatchHandlers) RequestUnlike(c *gin.Context) {
	requesterID, ok := currentUserID(c)
	if !ok {
		return
	}
	targetID, ok := pathUserID(c)
	if !ok {
		return
	}
	start := time.Now()
	res, err := h.coord.Unlike(c.Request.Context(), requesterID, targetID)
	h.respond(c, "unlike", start, res, err)
}

// DeclineUnlike - POST /match/:user_id/unlike/decline, :user_id - автор запроса
func (h *MatchHandlers) DeclineUnlike(c *gin.Context) {
	responderID, ok := currentUserID(c)
	if !ok {
		return
	}
	requesterID, ok := pathUserID(c)
	if !ok {
		return
	}
	start := time.Now()
	res, err := h.coord.DeclineUnlike(c.Request.Context(), responderID, requesterID)
	h.respond(c, "decline_unlike", start, res, err)
}
