package domain

import (
	"time"

	"github.com/google/uuid"
)

// Notification is the in-app notification feed entry. It is written once
// when the triggering business event commits and is never resent; only the
// read flag is mutated afterwards. External (Telegram) delivery is handled
// separately by the outbox and does not touch this entity.
type Notification struct {
	ID        int64
	UserID    uuid.UUID
	Type      string
	Title     string
	Message   string
	ActionURL string
	IsRead    bool
	CreatedAt time.Time
	ReadAt    *time.Time
}
