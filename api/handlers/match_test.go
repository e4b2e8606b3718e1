package handlers

import (
	"net/http"
	"testing"

	"socialmatch/services/matching"

	"github.com/stretchr/testify/assert"
)

func TestStatusForCode(t *testing.T) {
	cases := map[matching.Code]int{
		matching.CodeInvalidRequest:          http.StatusBadRequest,
		matching.CodeForbidden:               http.StatusForbidden,
		matching.CodeRematchBlocked:          http.StatusConflict,
		matching.CodeUnlikeAlreadyPending:    http.StatusConflict,
		matching.CodeUnlikeAttemptsExhausted: http.StatusConflict,
		matching.CodeDailyLikeLimitReached:   http.StatusTooManyRequests,
		matching.CodeUnlikeWaitRequired:      http.StatusTooManyRequests,
	}
	for code, want := range cases {
		assert.Equal(t, want, statusForCode(code), string(code))
	}
}
