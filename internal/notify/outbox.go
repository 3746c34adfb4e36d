package notify

import (
	"time"

	"github.com/google/uuid"
)

// OutboxStatus represents the delivery state of an outbox task.
type OutboxStatus string

// Outbox statuses. Sent and Failed are terminal.
const (
	StatusPending OutboxStatus = "PENDING"
	StatusSending OutboxStatus = "SENDING"
	StatusSent    OutboxStatus = "SENT"
	StatusFailed  OutboxStatus = "FAILED"
)

// OutboxTask is one durable external delivery. It is written in the same
// transaction as the business event that produced it and afterwards mutated
// only by the dispatcher. A task stuck in SENDING (process died mid-send)
// stays eligible and is re-picked on a later poll, which is what makes
// delivery at-least-once.
type OutboxTask struct {
	ID            int64
	UserID        uuid.UUID
	Type          Type
	Payload       []byte
	Status        OutboxStatus
	RetryCount    int
	NextAttemptAt time.Time
	LastError     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Terminal reports whether no further automatic transition applies.
func (s OutboxStatus) Terminal() bool {
	return s == StatusSent || s == StatusFailed
}
