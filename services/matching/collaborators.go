package matching

import (
	"context"
	"time"
)

// ConnectionOracle отвечает, связаны ли пользователи. Заблокированная связь считается отсутствующей
type ConnectionOracle interface {
	AreConnected(ctx context.Context, userA, userB int64) (bool, error)
}

// ChatHistoryStore чистит историю личного диалога пары.
// Если в ctx лежит транзакция (db.WithTx), удаление выполняется в ней
type ChatHistoryStore interface {
	DeleteMessagesInWindow(ctx context.Context, userA, userB int64, from, to time.Time) error
	DeleteNotificationsReferencing(ctx context.Context, userA, userB int64, from, to time.Time) error
}

// NotificationSink доставляет события пользователю, достаточно at-least-once
type NotificationSink interface {
	Notify(ctx context.Context, userID int64, event Event) error
}
