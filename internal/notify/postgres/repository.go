// Package postgres provides the PostgreSQL implementation of the notify
// repository.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mengedapp/menged/internal/domain"
	"github.com/mengedapp/menged/internal/notify"
)

// Repository implements notify.Repository using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// rowQuerier is the subset of pgx shared by pool and transaction.
type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// InTx runs fn in a transaction, rolling back on error.
func (r *Repository) InTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// EnqueueTask inserts a new PENDING task. With a non-nil tx the insert
// commits or rolls back with the caller's business change.
func (r *Repository) EnqueueTask(ctx context.Context, tx pgx.Tx, task *notify.OutboxTask) error {
	var q rowQuerier = r.db
	if tx != nil {
		q = tx
	}

	query := `
		INSERT INTO outbox_tasks (user_id, type, payload, status, retry_count, next_attempt_at)
		VALUES ($1, $2, $3, 'PENDING', 0, $4)
		RETURNING id, status, retry_count, created_at, updated_at
	`
	nextAttempt := task.NextAttemptAt
	if nextAttempt.IsZero() {
		nextAttempt = time.Now()
	}

	err := q.QueryRow(ctx, query, task.UserID, task.Type, task.Payload, nextAttempt).
		Scan(&task.ID, &task.Status, &task.RetryCount, &task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		return fmt.Errorf("enqueue outbox task: %w", err)
	}
	task.NextAttemptAt = nextAttempt
	return nil
}

const taskColumns = `id, user_id, type, payload, status, retry_count, next_attempt_at, COALESCE(last_error, ''), created_at, updated_at`

// FetchDueBatch returns due tasks oldest first without mutating them.
func (r *Repository) FetchDueBatch(ctx context.Context, limit int, now time.Time) ([]*notify.OutboxTask, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM outbox_tasks
		WHERE status IN ('PENDING', 'SENDING') AND next_attempt_at <= $1
		ORDER BY created_at ASC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch due batch: %w", err)
	}
	defer rows.Close()

	return scanTasks(rows)
}

// ClaimDueBatch flips due rows to SENDING in the claim statement itself.
// SKIP LOCKED keeps two dispatcher instances from claiming the same row.
func (r *Repository) ClaimDueBatch(ctx context.Context, limit int, now time.Time) ([]*notify.OutboxTask, error) {
	query := `
		UPDATE outbox_tasks
		SET status = 'SENDING', updated_at = NOW()
		WHERE id IN (
			SELECT id
			FROM outbox_tasks
			WHERE status IN ('PENDING', 'SENDING') AND next_attempt_at <= $1
			ORDER BY created_at ASC
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + taskColumns + `
	`
	rows, err := r.db.Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("claim due batch: %w", err)
	}
	defer rows.Close()

	tasks, err := scanTasks(rows)
	if err != nil {
		return nil, err
	}

	// UPDATE ... RETURNING does not preserve the subquery order.
	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].ID < tasks[j].ID
		}
		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
	})
	return tasks, nil
}

// SaveTask persists a mutated task. Last writer wins.
func (r *Repository) SaveTask(ctx context.Context, task *notify.OutboxTask) error {
	query := `
		UPDATE outbox_tasks
		SET status = $2, retry_count = $3, next_attempt_at = $4, last_error = NULLIF($5, ''), updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err := r.db.QueryRow(ctx, query,
		task.ID,
		task.Status,
		task.RetryCount,
		task.NextAttemptAt,
		task.LastError,
	).Scan(&task.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return notify.ErrTaskNotFound
		}
		return fmt.Errorf("save outbox task: %w", err)
	}
	return nil
}

// RequeueFailed resets a terminal FAILED task for another attempt cycle.
func (r *Repository) RequeueFailed(ctx context.Context, id int64) error {
	query := `
		UPDATE outbox_tasks
		SET status = 'PENDING', retry_count = 0, next_attempt_at = NOW(), last_error = NULL, updated_at = NOW()
		WHERE id = $1 AND status = 'FAILED'
	`
	result, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("requeue failed task: %w", err)
	}
	if result.RowsAffected() == 0 {
		return notify.ErrTaskNotFound
	}
	return nil
}

// QueueStats counts tasks by status.
func (r *Repository) QueueStats(ctx context.Context) (*notify.QueueStats, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE status = 'PENDING'),
			COUNT(*) FILTER (WHERE status = 'SENDING'),
			COUNT(*) FILTER (WHERE status = 'SENT'),
			COUNT(*) FILTER (WHERE status = 'FAILED')
		FROM outbox_tasks
	`
	var stats notify.QueueStats
	err := r.db.QueryRow(ctx, query).Scan(&stats.Pending, &stats.Sending, &stats.Sent, &stats.Failed)
	if err != nil {
		return nil, fmt.Errorf("queue stats: %w", err)
	}
	return &stats, nil
}

// ResolveChatID returns the user's linked Telegram chat id.
func (r *Repository) ResolveChatID(ctx context.Context, userID uuid.UUID) (int64, error) {
	var chatID *int64
	err := r.db.QueryRow(ctx, `SELECT telegram_chat_id FROM users WHERE id = $1`, userID).Scan(&chatID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, notify.ErrNoChatID
		}
		return 0, fmt.Errorf("resolve chat id: %w", err)
	}
	if chatID == nil {
		return 0, notify.ErrNoChatID
	}
	return *chatID, nil
}

// CreateHistory appends an in-app feed record inside the caller's
// transaction.
func (r *Repository) CreateHistory(ctx context.Context, tx pgx.Tx, n *domain.Notification) error {
	var q rowQuerier = r.db
	if tx != nil {
		q = tx
	}

	query := `
		INSERT INTO notifications (user_id, type, title, message, action_url)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''))
		RETURNING id, created_at
	`
	err := q.QueryRow(ctx, query, n.UserID, n.Type, n.Title, n.Message, n.ActionURL).
		Scan(&n.ID, &n.CreatedAt)
	if err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

const notificationColumns = `id, user_id, type, title, COALESCE(message, ''), COALESCE(action_url, ''), is_read, created_at, read_at`

// ListHistory returns a page of a user's feed, newest first.
func (r *Repository) ListHistory(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.Notification, error) {
	query := `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	items := make([]domain.Notification, 0)
	for rows.Next() {
		var n domain.Notification
		if err := scanNotification(rows, &n); err != nil {
			return nil, err
		}
		items = append(items, n)
	}
	return items, rows.Err()
}

// CountUnread counts a user's unread feed entries.
func (r *Repository) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND is_read = false`,
		userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return count, nil
}

// MarkRead marks one entry read, scoped to its owner. Idempotent: marking
// an already-read entry keeps the original read_at.
func (r *Repository) MarkRead(ctx context.Context, id int64, userID uuid.UUID) (*domain.Notification, error) {
	query := `
		UPDATE notifications
		SET is_read = true, read_at = COALESCE(read_at, NOW())
		WHERE id = $1 AND user_id = $2
		RETURNING ` + notificationColumns + `
	`
	var n domain.Notification
	row := r.db.QueryRow(ctx, query, id, userID)
	if err := scanNotification(row, &n); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notify.ErrNotificationNotFound
		}
		return nil, err
	}
	return &n, nil
}

// MarkAllRead marks all unread entries read for a user.
func (r *Repository) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	result, err := r.db.Exec(ctx,
		`UPDATE notifications SET is_read = true, read_at = NOW() WHERE user_id = $1 AND is_read = false`,
		userID,
	)
	if err != nil {
		return 0, fmt.Errorf("mark all read: %w", err)
	}
	return result.RowsAffected(), nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanNotification(row scannable, n *domain.Notification) error {
	return row.Scan(
		&n.ID,
		&n.UserID,
		&n.Type,
		&n.Title,
		&n.Message,
		&n.ActionURL,
		&n.IsRead,
		&n.CreatedAt,
		&n.ReadAt,
	)
}

func scanTasks(rows pgx.Rows) ([]*notify.OutboxTask, error) {
	tasks := make([]*notify.OutboxTask, 0)
	for rows.Next() {
		var t notify.OutboxTask
		err := rows.Scan(
			&t.ID,
			&t.UserID,
			&t.Type,
			&t.Payload,
			&t.Status,
			&t.RetryCount,
			&t.NextAttemptAt,
			&t.LastError,
			&t.CreatedAt,
			&t.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan outbox task: %w", err)
		}
		tasks = append(tasks, &t)
	}
	return tasks, rows.Err()
}
