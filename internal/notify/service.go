package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mengedapp/menged/internal/domain"
)

// Feed paging limits.
const (
	defaultFeedPageSize = 20
	maxFeedPageSize     = 50
)

// Service is the producer-facing enqueue API plus the in-app feed read
// model. Producers call EnqueueTx from inside the transaction that commits
// the triggering business change, so a notification can never outlive a
// rolled-back event and an event can never commit with its notification
// silently lost.
type Service struct {
	repo Repository
}

// NewService creates a notification service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// EnqueueTx writes the in-app feed record and the durable outbox task in
// the caller's transaction. Any error must abort the caller's transaction.
func (s *Service) EnqueueTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, p Payload) error {
	raw, err := EncodePayload(p)
	if err != nil {
		return err
	}

	record := &domain.Notification{
		UserID:    userID,
		Type:      string(p.Type()),
		Title:     p.Title(),
		Message:   p.Summary(),
		ActionURL: p.ActionURL(),
	}
	if err := s.repo.CreateHistory(ctx, tx, record); err != nil {
		return fmt.Errorf("create history record: %w", err)
	}

	task := &OutboxTask{
		UserID:        userID,
		Type:          p.Type(),
		Payload:       raw,
		Status:        StatusPending,
		NextAttemptAt: time.Now(),
	}
	if err := s.repo.EnqueueTask(ctx, tx, task); err != nil {
		return fmt.Errorf("enqueue outbox task: %w", err)
	}

	slog.Debug("notification enqueued", "type", p.Type(), "user_id", userID)
	return nil
}

// Enqueue is EnqueueTx wrapped in its own transaction, for producers that
// have no surrounding unit of work.
func (s *Service) Enqueue(ctx context.Context, userID uuid.UUID, p Payload) error {
	return s.repo.InTx(ctx, func(tx pgx.Tx) error {
		return s.EnqueueTx(ctx, tx, userID, p)
	})
}

// ListFeed returns a page of the user's in-app feed, newest first.
func (s *Service) ListFeed(ctx context.Context, userID uuid.UUID, page, size int) ([]domain.Notification, error) {
	if size <= 0 {
		size = defaultFeedPageSize
	}
	if size > maxFeedPageSize {
		size = maxFeedPageSize
	}
	if page < 0 {
		page = 0
	}
	return s.repo.ListHistory(ctx, userID, size, page*size)
}

// UnreadCount returns the user's unread feed entry count.
func (s *Service) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.CountUnread(ctx, userID)
}

// MarkRead marks one feed entry read.
func (s *Service) MarkRead(ctx context.Context, userID uuid.UUID, id int64) (*domain.Notification, error) {
	return s.repo.MarkRead(ctx, id, userID)
}

// MarkAllRead marks everything unread as read and returns the count.
func (s *Service) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.MarkAllRead(ctx, userID)
}
