package requests

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mengedapp/menged/internal/domain"
	"github.com/mengedapp/menged/internal/notify"
)

// rejectedMessage is the wording senders see on a rejection. The traveler's
// reason is never forwarded to the sender.
const rejectedMessage = "Unfortunately, the traveler couldn't accept your request this time. Don't give up, there are more trips on this route!"

// Notifier enqueues a notification inside the caller's transaction.
// Implemented by *notify.Service.
type Notifier interface {
	EnqueueTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, p notify.Payload) error
}

// Service provides item request business logic.
type Service struct {
	repo     Repository
	notifier Notifier
}

// NewService creates a requests service.
func NewService(repo Repository, notifier Notifier) *Service {
	return &Service{repo: repo, notifier: notifier}
}

// CreateInput contains data for posting a request against a trip.
type CreateInput struct {
	TripID              uuid.UUID
	Description         string
	WeightKg            float64
	SpecialInstructions string
}

// Create posts a request against an active trip. The request row and the
// traveler's NEW_REQUEST notification commit together.
func (s *Service) Create(ctx context.Context, senderID uuid.UUID, input CreateInput) (*domain.ItemRequest, error) {
	trip, err := s.repo.GetTrip(ctx, input.TripID)
	if err != nil {
		return nil, err
	}
	if trip.Status != domain.TripStatusActive {
		return nil, ErrTripNotOpen
	}
	if trip.UserID == senderID {
		return nil, ErrOwnTrip
	}

	sender, err := s.repo.GetUser(ctx, senderID)
	if err != nil {
		return nil, err
	}

	req := &domain.ItemRequest{
		TripID:              input.TripID,
		SenderID:            senderID,
		Description:         input.Description,
		WeightKg:            input.WeightKg,
		SpecialInstructions: input.SpecialInstructions,
		Status:              domain.RequestStatusPending,
	}

	err = s.repo.InTx(ctx, func(tx pgx.Tx) error {
		if err := s.repo.CreateTx(ctx, tx, req); err != nil {
			return err
		}
		return s.notifier.EnqueueTx(ctx, tx, trip.UserID, notify.NewRequestPayload{
			RequestID:       req.ID,
			TripID:          trip.ID,
			ItemDescription: req.Description,
			ItemWeightKg:    req.WeightKg,
			Route:           trip.Route(),
			DepartureDate:   trip.DepartureDate.Format("2006-01-02"),
			SenderFirstName: sender.FirstName,
		})
	})
	if err != nil {
		return nil, err
	}

	slog.Info("item request created",
		"request_id", req.ID,
		"trip_id", trip.ID,
	)
	return req, nil
}

// Accept accepts a pending request. Both parties are notified: the sender
// gets REQUEST_ACCEPTED with the traveler's contact, the traveler gets
// REQUEST_ACCEPTED_TRAVELER with the sender's. All of it commits with the
// status change.
func (s *Service) Accept(ctx context.Context, travelerID, requestID uuid.UUID) (*domain.ItemRequest, error) {
	d, err := s.authorizedDetail(ctx, travelerID, requestID)
	if err != nil {
		return nil, err
	}
	if d.Request.Status != domain.RequestStatusPending {
		return nil, ErrRequestNotPending
	}

	err = s.repo.InTx(ctx, func(tx pgx.Tx) error {
		if err := s.repo.UpdateStatusTx(ctx, tx, requestID, domain.RequestStatusAccepted); err != nil {
			return err
		}

		err := s.notifier.EnqueueTx(ctx, tx, d.Sender.ID, notify.RequestAcceptedPayload{
			RequestID:         requestID,
			TripID:            d.Trip.ID,
			ItemDescription:   d.Request.Description,
			Route:             d.Trip.Route(),
			DepartureDate:     d.Trip.DepartureDate.Format("2006-01-02"),
			TravelerFirstName: d.Traveler.FirstName,
			TravelerLastName:  d.Traveler.LastName,
			TravelerVerified:  d.Traveler.Verified,
			TravelerRating:    d.Traveler.RatingAverage,
			ContactURL:        contactURL(&d.Traveler),
			ContactButtonText: contactButtonText(&d.Traveler),
		})
		if err != nil {
			return fmt.Errorf("notify sender: %w", err)
		}

		err = s.notifier.EnqueueTx(ctx, tx, d.Traveler.ID, notify.RequestAcceptedTravelerPayload{
			RequestID:           requestID,
			TripID:              d.Trip.ID,
			ItemDescription:     d.Request.Description,
			ItemWeightKg:        d.Request.WeightKg,
			SpecialInstructions: d.Request.SpecialInstructions,
			Route:               d.Trip.Route(),
			SenderFirstName:     d.Sender.FirstName,
			SenderLastName:      d.Sender.LastName,
			ContactURL:          contactURL(&d.Sender),
			ContactButtonText:   contactButtonText(&d.Sender),
		})
		if err != nil {
			return fmt.Errorf("notify traveler: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	d.Request.Status = domain.RequestStatusAccepted
	return &d.Request, nil
}

// Reject rejects a pending request and notifies the sender.
func (s *Service) Reject(ctx context.Context, travelerID, requestID uuid.UUID) (*domain.ItemRequest, error) {
	d, err := s.authorizedDetail(ctx, travelerID, requestID)
	if err != nil {
		return nil, err
	}
	if d.Request.Status != domain.RequestStatusPending {
		return nil, ErrRequestNotPending
	}

	err = s.repo.InTx(ctx, func(tx pgx.Tx) error {
		if err := s.repo.UpdateStatusTx(ctx, tx, requestID, domain.RequestStatusRejected); err != nil {
			return err
		}
		return s.notifier.EnqueueTx(ctx, tx, d.Sender.ID, notify.RequestRejectedPayload{
			RequestID:       requestID,
			TripID:          d.Trip.ID,
			ItemDescription: d.Request.Description,
			Route:           d.Trip.Route(),
			Message:         rejectedMessage,
		})
	})
	if err != nil {
		return nil, err
	}

	d.Request.Status = domain.RequestStatusRejected
	return &d.Request, nil
}

// MarkDelivered marks an accepted request delivered and notifies the sender.
func (s *Service) MarkDelivered(ctx context.Context, travelerID, requestID uuid.UUID) (*domain.ItemRequest, error) {
	d, err := s.authorizedDetail(ctx, travelerID, requestID)
	if err != nil {
		return nil, err
	}
	if d.Request.Status != domain.RequestStatusAccepted {
		return nil, ErrRequestNotAccepted
	}

	err = s.repo.InTx(ctx, func(tx pgx.Tx) error {
		if err := s.repo.UpdateStatusTx(ctx, tx, requestID, domain.RequestStatusDelivered); err != nil {
			return err
		}
		return s.notifier.EnqueueTx(ctx, tx, d.Sender.ID, notify.RequestDeliveredPayload{
			RequestID:         requestID,
			TripID:            d.Trip.ID,
			ItemDescription:   d.Request.Description,
			Route:             d.Trip.Route(),
			TravelerFirstName: d.Traveler.FirstName,
		})
	})
	if err != nil {
		return nil, err
	}

	d.Request.Status = domain.RequestStatusDelivered
	return &d.Request, nil
}

// Cancel withdraws the sender's own pending request. Nobody is notified.
func (s *Service) Cancel(ctx context.Context, senderID, requestID uuid.UUID) (*domain.ItemRequest, error) {
	d, err := s.repo.GetDetail(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if d.Request.SenderID != senderID {
		return nil, ErrNotRequestSender
	}
	if d.Request.Status != domain.RequestStatusPending {
		return nil, ErrRequestNotPending
	}

	err = s.repo.InTx(ctx, func(tx pgx.Tx) error {
		return s.repo.UpdateStatusTx(ctx, tx, requestID, domain.RequestStatusCancelled)
	})
	if err != nil {
		return nil, err
	}

	d.Request.Status = domain.RequestStatusCancelled
	return &d.Request, nil
}

// ListOwn returns the sender's requests, newest first.
func (s *Service) ListOwn(ctx context.Context, senderID uuid.UUID) ([]domain.ItemRequest, error) {
	return s.repo.ListBySender(ctx, senderID)
}

// ListForTrip returns the requests on the traveler's own trip.
func (s *Service) ListForTrip(ctx context.Context, travelerID, tripID uuid.UUID) ([]domain.ItemRequest, error) {
	trip, err := s.repo.GetTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if trip.UserID != travelerID {
		return nil, ErrNotTripTraveler
	}
	return s.repo.ListForTrip(ctx, tripID)
}

// authorizedDetail loads the request detail and checks the caller owns the
// trip it targets.
func (s *Service) authorizedDetail(ctx context.Context, travelerID, requestID uuid.UUID) (*Detail, error) {
	d, err := s.repo.GetDetail(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if d.Trip.UserID != travelerID {
		return nil, ErrNotTripTraveler
	}
	return d, nil
}

// contactURL builds a deep link to the user's Telegram profile, empty when
// the user has no public username.
func contactURL(u *domain.User) string {
	if u.Username == "" {
		return ""
	}
	return "https://t.me/" + u.Username
}

func contactButtonText(u *domain.User) string {
	if u.Username == "" {
		return ""
	}
	return "Message " + u.FirstName
}
