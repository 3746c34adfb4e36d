package trips

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mengedapp/menged/internal/domain"
	"github.com/mengedapp/menged/internal/notify"
)

// Notifier enqueues a notification inside the caller's transaction.
// Implemented by *notify.Service.
type Notifier interface {
	EnqueueTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, p notify.Payload) error
}

// Service provides trips business logic.
type Service struct {
	repo     Repository
	notifier Notifier
}

// NewService creates a trips service.
func NewService(repo Repository, notifier Notifier) *Service {
	return &Service{repo: repo, notifier: notifier}
}

// CreateInput contains data for creating a trip.
type CreateInput struct {
	FromCity      string
	ToCity        string
	DepartureDate time.Time
	MaxWeightKg   float64
}

// Create announces a new trip.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, input CreateInput) (*domain.Trip, error) {
	trip := &domain.Trip{
		UserID:        userID,
		FromCity:      input.FromCity,
		ToCity:        input.ToCity,
		DepartureDate: input.DepartureDate,
		MaxWeightKg:   input.MaxWeightKg,
		Status:        domain.TripStatusActive,
	}
	if err := s.repo.Create(ctx, trip); err != nil {
		return nil, err
	}
	return trip, nil
}

// Get returns a trip by id.
func (s *Service) Get(ctx context.Context, tripID uuid.UUID) (*domain.Trip, error) {
	return s.repo.GetByID(ctx, tripID)
}

// ListOwn returns the user's trips, newest first.
func (s *Service) ListOwn(ctx context.Context, userID uuid.UUID) ([]domain.Trip, error) {
	return s.repo.ListByUser(ctx, userID)
}

// Cancel cancels an active trip. In a single transaction the trip and its
// open requests flip to cancelled and every affected sender gets a
// TRIP_CANCELLED notification, so a failed cancellation can never leave a
// half-notified state.
func (s *Service) Cancel(ctx context.Context, userID, tripID uuid.UUID, reason string) (*domain.Trip, error) {
	trip, err := s.repo.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if trip.UserID != userID {
		return nil, ErrNotTripOwner
	}
	if trip.Status != domain.TripStatusActive {
		return nil, ErrTripNotActive
	}

	err = s.repo.InTx(ctx, func(tx pgx.Tx) error {
		affected, err := s.repo.OpenRequestsForTripTx(ctx, tx, tripID)
		if err != nil {
			return err
		}

		if err := s.repo.SetStatusTx(ctx, tx, tripID, domain.TripStatusCancelled); err != nil {
			return err
		}

		if len(affected) > 0 {
			ids := make([]uuid.UUID, len(affected))
			for i, ar := range affected {
				ids[i] = ar.ID
			}
			if err := s.repo.CancelRequestsTx(ctx, tx, ids); err != nil {
				return err
			}
		}

		for _, ar := range affected {
			payload := notify.TripCancelledPayload{
				RequestID:       ar.ID,
				TripID:          tripID,
				ItemDescription: ar.Description,
				Route:           trip.Route(),
				DepartureDate:   trip.DepartureDate.Format("2006-01-02"),
				Reason:          reason,
			}
			if err := s.notifier.EnqueueTx(ctx, tx, ar.SenderID, payload); err != nil {
				return fmt.Errorf("notify sender %s: %w", ar.SenderID, err)
			}
		}

		slog.Info("trip cancelled",
			"trip_id", tripID,
			"affected_requests", len(affected),
		)
		return nil
	})
	if err != nil {
		return nil, err
	}

	trip.Status = domain.TripStatusCancelled
	return trip, nil
}

// Complete marks a trip completed.
func (s *Service) Complete(ctx context.Context, userID, tripID uuid.UUID) (*domain.Trip, error) {
	trip, err := s.repo.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if trip.UserID != userID {
		return nil, ErrNotTripOwner
	}
	if trip.Status != domain.TripStatusActive {
		return nil, ErrTripNotActive
	}

	err = s.repo.InTx(ctx, func(tx pgx.Tx) error {
		return s.repo.SetStatusTx(ctx, tx, tripID, domain.TripStatusCompleted)
	})
	if err != nil {
		return nil, err
	}

	trip.Status = domain.TripStatusCompleted
	return trip, nil
}
