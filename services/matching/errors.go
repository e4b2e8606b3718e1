package matching

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

type Code string

const (
	CodeForbidden               Code = "forbidden"
	CodeInvalidRequest          Code = "invalid_request"
	CodeRematchBlocked          Code = "rematch_blocked"
	CodeDailyLikeLimitReached   Code = "daily_like_limit_reached"
	CodeUnlikeAlreadyPending    Code = "unlike_already_pending"
	CodeUnlikeWaitRequired      Code = "unlike_wait_required"
	CodeUnlikeAttemptsExhausted Code = "unlike_attempts_exhausted"
)

// Error - отказ по бизнес-правилу. Отдается клиенту как есть, повторять запрос бессмысленно
type Error struct {
	Code    Code                   `json:"error"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

var (
	ErrForbidden               = &Error{Code: CodeForbidden, Message: "users are not connected"}
	ErrInvalidRequest          = &Error{Code: CodeInvalidRequest, Message: "invalid request"}
	ErrRematchBlocked          = &Error{Code: CodeRematchBlocked, Message: "rematch is blocked after a recent unmatch"}
	ErrDailyLikeLimitReached   = &Error{Code: CodeDailyLikeLimitReached, Message: "daily like limit reached"}
	ErrUnlikeAlreadyPending    = &Error{Code: CodeUnlikeAlreadyPending, Message: "unlike request is already pending"}
	ErrUnlikeWaitRequired      = &Error{Code: CodeUnlikeWaitRequired, Message: "unlike cooldown has not elapsed"}
	ErrUnlikeAttemptsExhausted = &Error{Code: CodeUnlikeAttemptsExhausted, Message: "all unlike attempts are used"}
)

func (e *Error) Error() string {
	if len(e.Details) == 0 {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	keys := make([]string, 0, len(e.Details))
	for k := range e.Details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, e.Details[k]))
	}
	return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, strings.Join(parts, ", "))
}

// Is сравнивает ошибки по коду, детали не учитываются
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithDetail возвращает копию ошибки с дополнительным полем
func (e *Error) WithDetail(key string, value interface{}) *Error {
	details := make(map[string]interface{}, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	return &Error{Code: e.Code, Message: e.Message, Details: details}
}

// AsError достает бизнес-ошибку из цепочки. false - это инфраструктурный сбой
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
