package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is a platform account. Accounts are created through the Telegram bot
// or the web app; TelegramChatID is set only once the Telegram channel is
// linked, so it may be absent for web-only users.
type User struct {
	ID             uuid.UUID
	FirstName      string
	LastName       string
	Username       string
	Verified       bool
	RatingAverage  float64
	TelegramChatID *int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
