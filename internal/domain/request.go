package domain

import (
	"time"

	"github.com/google/uuid"
)

// RequestStatus is the lifecycle state of an item request.
type RequestStatus string

// Item request statuses.
const (
	RequestStatusPending   RequestStatus = "pending"
	RequestStatusAccepted  RequestStatus = "accepted"
	RequestStatusRejected  RequestStatus = "rejected"
	RequestStatusDelivered RequestStatus = "delivered"
	RequestStatusCancelled RequestStatus = "cancelled"
)

// ItemRequest is a sender's ask for a traveler to carry an item on a trip.
type ItemRequest struct {
	ID                  uuid.UUID
	TripID              uuid.UUID
	SenderID            uuid.UUID
	Description         string
	WeightKg            float64
	SpecialInstructions string
	Status              RequestStatus
	CreatedAt           time.Time
	UpdatedAt           time.Time
}
