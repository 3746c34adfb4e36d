// Package postgres provides the PostgreSQL implementation of the requests
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
	"github.com/mengedapp/menged/internal/requests"
)

// Repository implements requests.Repository using PostgreSQL.
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

// CreateTx inserts a request inside the caller's transaction.
func (r *Repository) CreateTx(ctx context.Context, tx pgx.Tx, req *domain.ItemRequest) error {
	query := `
		INSERT INTO item_requests (trip_id, sender_id, description, weight_kg, special_instructions, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`
	err := tx.QueryRow(ctx, query,
		req.TripID,
		req.SenderID,
		req.Description,
		req.WeightKg,
		req.SpecialInstructions,
		req.Status,
	).Scan(&req.ID, &req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return nil
}

const requestColumns = `id, trip_id, sender_id, description, weight_kg, special_instructions, status, created_at, updated_at`

// GetDetail loads a request joined with its trip and both parties.
func (r *Repository) GetDetail(ctx context.Context, id uuid.UUID) (*requests.Detail, error) {
	query := `
		SELECT
			r.id, r.trip_id, r.sender_id, r.description, r.weight_kg,
			r.special_instructions, r.status, r.created_at, r.updated_at,
			t.id, t.user_id, t.from_city, t.to_city, t.departure_date,
			t.max_weight_kg, t.status, t.created_at, t.updated_at,
			s.id, s.first_name, s.last_name, COALESCE(s.telegram_username, ''),
			s.verified, s.rating_average, s.telegram_chat_id,
			v.id, v.first_name, v.last_name, COALESCE(v.telegram_username, ''),
			v.verified, v.rating_average, v.telegram_chat_id
		FROM item_requests r
		JOIN trips t ON t.id = r.trip_id
		JOIN users s ON s.id = r.sender_id
		JOIN users v ON v.id = t.user_id
		WHERE r.id = $1
	`
	var d requests.Detail
	err := r.db.QueryRow(ctx, query, id).Scan(
		&d.Request.ID, &d.Request.TripID, &d.Request.SenderID, &d.Request.Description,
		&d.Request.WeightKg, &d.Request.SpecialInstructions, &d.Request.Status,
		&d.Request.CreatedAt, &d.Request.UpdatedAt,
		&d.Trip.ID, &d.Trip.UserID, &d.Trip.FromCity, &d.Trip.ToCity, &d.Trip.DepartureDate,
		&d.Trip.MaxWeightKg, &d.Trip.Status, &d.Trip.CreatedAt, &d.Trip.UpdatedAt,
		&d.Sender.ID, &d.Sender.FirstName, &d.Sender.LastName, &d.Sender.Username,
		&d.Sender.Verified, &d.Sender.RatingAverage, &d.Sender.TelegramChatID,
		&d.Traveler.ID, &d.Traveler.FirstName, &d.Traveler.LastName, &d.Traveler.Username,
		&d.Traveler.Verified, &d.Traveler.RatingAverage, &d.Traveler.TelegramChatID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, requests.ErrRequestNotFound
		}
		return nil, fmt.Errorf("get request detail: %w", err)
	}
	return &d, nil
}

// GetTrip loads the trip a request targets.
func (r *Repository) GetTrip(ctx context.Context, tripID uuid.UUID) (*domain.Trip, error) {
	query := `
		SELECT id, user_id, from_city, to_city, departure_date, max_weight_kg, status, created_at, updated_at
		FROM trips WHERE id = $1
	`
	var t domain.Trip
	err := r.db.QueryRow(ctx, query, tripID).Scan(
		&t.ID, &t.UserID, &t.FromCity, &t.ToCity, &t.DepartureDate,
		&t.MaxWeightKg, &t.Status, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, requests.ErrTripNotFound
		}
		return nil, fmt.Errorf("get trip: %w", err)
	}
	return &t, nil
}

// GetUser loads a platform user.
func (r *Repository) GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	query := `
		SELECT id, first_name, last_name, COALESCE(telegram_username, ''),
		       verified, rating_average, telegram_chat_id, created_at, updated_at
		FROM users WHERE id = $1
	`
	var u domain.User
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&u.ID, &u.FirstName, &u.LastName, &u.Username,
		&u.Verified, &u.RatingAverage, &u.TelegramChatID, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user %s not found", userID)
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

// UpdateStatusTx moves a request to status inside the caller's transaction.
func (r *Repository) UpdateStatusTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.RequestStatus) error {
	result, err := tx.Exec(ctx,
		`UPDATE item_requests SET status = $2, updated_at = NOW() WHERE id = $1`,
		id, status,
	)
	if err != nil {
		return fmt.Errorf("update request status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return requests.ErrRequestNotFound
	}
	return nil
}

// ListBySender returns the sender's requests, newest first.
func (r *Repository) ListBySender(ctx context.Context, senderID uuid.UUID) ([]domain.ItemRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM item_requests WHERE sender_id = $1 ORDER BY created_at DESC`
	return r.list(ctx, query, senderID)
}

// ListForTrip returns the trip's requests, oldest first.
func (r *Repository) ListForTrip(ctx context.Context, tripID uuid.UUID) ([]domain.ItemRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM item_requests WHERE trip_id = $1 ORDER BY created_at ASC`
	return r.list(ctx, query, tripID)
}

func (r *Repository) list(ctx context.Context, query string, arg any) ([]domain.ItemRequest, error) {
	rows, err := r.db.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	defer rows.Close()

	out := make([]domain.ItemRequest, 0)
	for rows.Next() {
		var req domain.ItemRequest
		err := rows.Scan(
			&req.ID, &req.TripID, &req.SenderID, &req.Description, &req.WeightKg,
			&req.SpecialInstructions, &req.Status, &req.CreatedAt, &req.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan request: %w", err)
		}
		out = append(out, req)
	}
	return out, rows.Err()
}
