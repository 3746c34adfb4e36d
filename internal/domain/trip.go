package domain

import (
	"time"

	"github.com/google/uuid"
)

// TripStatus is the lifecycle state of a trip.
type TripStatus string

// Trip statuses.
const (
	TripStatusActive    TripStatus = "active"
	TripStatusCompleted TripStatus = "completed"
	TripStatusCancelled TripStatus = "cancelled"
)

// Trip is a traveler's announced journey that senders can attach item
// requests to.
type Trip struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	FromCity      string
	ToCity        string
	DepartureDate time.Time
	MaxWeightKg   float64
	Status        TripStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Route renders the trip route in "From -> To" form used in notifications.
func (t Trip) Route() string {
	return t.FromCity + " -> " + t.ToCity
}
