package requests

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mengedapp/menged/internal/domain"
)

// Detail is an item request joined with its trip and both parties. The
// notification producers need all four to build a payload, so the repository
// loads them in one round trip.
type Detail struct {
	Request  domain.ItemRequest
	Trip     domain.Trip
	Sender   domain.User
	Traveler domain.User
}

// Repository defines storage operations for item requests.
type Repository interface {
	// InTx runs fn in a transaction, rolling back on error.
	InTx(ctx context.Context, fn func(pgx.Tx) error) error

	// CreateTx inserts a new request inside the caller's transaction.
	CreateTx(ctx context.Context, tx pgx.Tx, req *domain.ItemRequest) error

	// GetDetail loads a request with its trip, sender and traveler.
	GetDetail(ctx context.Context, id uuid.UUID) (*Detail, error)

	// GetTrip loads the trip a request targets.
	GetTrip(ctx context.Context, tripID uuid.UUID) (*domain.Trip, error)

	// GetUser loads a platform user.
	GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error)

	// UpdateStatusTx moves a request to status inside the caller's transaction.
	UpdateStatusTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.RequestStatus) error

	// ListBySender returns the sender's requests, newest first.
	ListBySender(ctx context.Context, senderID uuid.UUID) ([]domain.ItemRequest, error)

	// ListForTrip returns the trip's requests, oldest first.
	ListForTrip(ctx context.Context, tripID uuid.UUID) ([]domain.ItemRequest, error)
}
