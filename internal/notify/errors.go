package notify

import "errors"

// Repository errors.
var (
	ErrNotificationNotFound = errors.New("notification not found")
	ErrTaskNotFound         = errors.New("outbox task not found")
	ErrNoChatID             = errors.New("user has no linked telegram chat")
)
