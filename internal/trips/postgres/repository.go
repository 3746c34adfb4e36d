// Package postgres provides the PostgreSQL implementation of the trips
// repository.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mengedapp/menged/internal/domain"
	"github.com/mengedapp/menged/internal/trips"
)

// Repository implements trips.Repository using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
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

// Create inserts a new trip.
func (r *Repository) Create(ctx context.Context, trip *domain.Trip) error {
	query := `
		INSERT INTO trips (user_id, from_city, to_city, departure_date, max_weight_kg, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		trip.UserID,
		trip.FromCity,
		trip.ToCity,
		trip.DepartureDate,
		trip.MaxWeightKg,
		trip.Status,
	).Scan(&trip.ID, &trip.CreatedAt, &trip.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create trip: %w", err)
	}
	return nil
}

const tripColumns = `id, user_id, from_city, to_city, departure_date, max_weight_kg, status, created_at, updated_at`

// GetByID retrieves a trip.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips WHERE id = $1`

	var t domain.Trip
	err := r.db.QueryRow(ctx, query, id).Scan(
		&t.ID, &t.UserID, &t.FromCity, &t.ToCity, &t.DepartureDate,
		&t.MaxWeightKg, &t.Status, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, trips.ErrTripNotFound
		}
		return nil, fmt.Errorf("get trip: %w", err)
	}
	return &t, nil
}

// ListByUser retrieves a user's trips, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list trips: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Trip, 0)
	for rows.Next() {
		var t domain.Trip
		err := rows.Scan(
			&t.ID, &t.UserID, &t.FromCity, &t.ToCity, &t.DepartureDate,
			&t.MaxWeightKg, &t.Status, &t.CreatedAt, &t.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan trip: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// SetStatusTx updates the trip status inside the caller's transaction.
func (r *Repository) SetStatusTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.TripStatus) error {
	result, err := tx.Exec(ctx,
		`UPDATE trips SET status = $2, updated_at = NOW() WHERE id = $1`,
		id, status,
	)
	if err != nil {
		return fmt.Errorf("set trip status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return trips.ErrTripNotFound
	}
	return nil
}

// OpenRequestsForTripTx returns the trip's pending and accepted requests,
// locked for the duration of the transaction.
func (r *Repository) OpenRequestsForTripTx(ctx context.Context, tx pgx.Tx, tripID uuid.UUID) ([]trips.AffectedRequest, error) {
	query := `
		SELECT id, sender_id, description
		FROM item_requests
		WHERE trip_id = $1 AND status IN ('pending', 'accepted')
		FOR UPDATE
	`
	rows, err := tx.Query(ctx, query, tripID)
	if err != nil {
		return nil, fmt.Errorf("open requests for trip: %w", err)
	}
	defer rows.Close()

	out := make([]trips.AffectedRequest, 0)
	for rows.Next() {
		var ar trips.AffectedRequest
		if err := rows.Scan(&ar.ID, &ar.SenderID, &ar.Description); err != nil {
			return nil, fmt.Errorf("scan affected request: %w", err)
		}
		out = append(out, ar)
	}
	return out, rows.Err()
}

// CancelRequestsTx flips the given requests to cancelled.
func (r *Repository) CancelRequestsTx(ctx context.Context, tx pgx.Tx, requestIDs []uuid.UUID) error {
	_, err := tx.Exec(ctx,
		`UPDATE item_requests SET status = 'cancelled', updated_at = NOW() WHERE id = ANY($1)`,
		requestIDs,
	)
	if err != nil {
		return fmt.Errorf("cancel requests: %w", err)
	}
	return nil
}
