// Package notify implements the transactional notification outbox: durable
// queue, polling dispatcher, message formatting and the in-app feed.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mengedapp/menged/internal/domain"
)

// Repository defines data access for the outbox and the in-app feed.
type Repository interface {
	// InTx runs fn inside a single transaction. Producers use it to commit
	// a business state change together with its notifications.
	InTx(ctx context.Context, fn func(pgx.Tx) error) error

	// EnqueueTask inserts a new PENDING task due immediately. It takes part
	// in the caller's transaction so the task and the business event commit
	// or roll back together. A nil tx enqueues outside any transaction.
	EnqueueTask(ctx context.Context, tx pgx.Tx, task *OutboxTask) error

	// FetchDueBatch returns up to limit tasks eligible for dispatch at now,
	// oldest first. Eligible means status PENDING or SENDING and
	// next_attempt_at <= now. It does not mutate anything.
	FetchDueBatch(ctx context.Context, limit int, now time.Time) ([]*OutboxTask, error)

	// ClaimDueBatch atomically claims up to limit due tasks: rows are
	// flipped to SENDING in the claim statement itself, so concurrent
	// dispatchers never claim the same row. Returned tasks are already
	// persisted as SENDING.
	ClaimDueBatch(ctx context.Context, limit int, now time.Time) ([]*OutboxTask, error)

	// SaveTask persists a mutated task. Last writer wins.
	SaveTask(ctx context.Context, task *OutboxTask) error

	// RequeueFailed puts a terminal FAILED task back to PENDING with a
	// fresh attempt budget. Operator hook, not called by the dispatcher.
	RequeueFailed(ctx context.Context, id int64) error

	// QueueStats counts tasks by status for metrics.
	QueueStats(ctx context.Context) (*QueueStats, error)

	// ResolveChatID looks up the recipient's Telegram chat id at send time.
	// Returns ErrNoChatID when the user has not linked Telegram.
	ResolveChatID(ctx context.Context, userID uuid.UUID) (int64, error)

	// CreateHistory appends an in-app feed record in the caller's
	// transaction. Written once at enqueue time, never retried.
	CreateHistory(ctx context.Context, tx pgx.Tx, n *domain.Notification) error

	// ListHistory returns a user's feed, newest first.
	ListHistory(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.Notification, error)

	// CountUnread counts a user's unread feed entries.
	CountUnread(ctx context.Context, userID uuid.UUID) (int64, error)

	// MarkRead marks one entry read, scoped to its owner.
	MarkRead(ctx context.Context, id int64, userID uuid.UUID) (*domain.Notification, error)

	// MarkAllRead marks all of a user's unread entries read and returns the
	// affected count.
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
}

// QueueStats holds outbox task counts by status.
type QueueStats struct {
	Pending int64
	Sending int64
	Sent    int64
	Failed  int64
}
