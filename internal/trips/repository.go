// Package trips manages traveler trips and their lifecycle, including the
// notifications a trip cancellation fans out to affected senders.
package trips

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mengedapp/menged/internal/domain"
)

// Repository defines trips data access.
type Repository interface {
	// InTx runs fn inside a single transaction.
	InTx(ctx context.Context, fn func(pgx.Tx) error) error

	Create(ctx context.Context, trip *domain.Trip) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Trip, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Trip, error)

	// SetStatusTx updates the trip status inside the caller's transaction.
	SetStatusTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.TripStatus) error

	// OpenRequestsForTripTx returns the trip's pending and accepted
	// requests, locked for update so the cancellation fan-out sees a
	// stable set.
	OpenRequestsForTripTx(ctx context.Context, tx pgx.Tx, tripID uuid.UUID) ([]AffectedRequest, error)

	// CancelRequestsTx flips the given requests to cancelled inside the
	// caller's transaction.
	CancelRequestsTx(ctx context.Context, tx pgx.Tx, requestIDs []uuid.UUID) error
}

// AffectedRequest is the slice of an item request the cancellation fan-out
// needs: who to notify and what about.
type AffectedRequest struct {
	ID          uuid.UUID
	SenderID    uuid.UUID
	Description string
}
