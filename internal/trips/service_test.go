package trips

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mengedapp/menged/internal/domain"
	"github.com/mengedapp/menged/internal/notify"
)

type mockRepo struct {
	trips        map[uuid.UUID]*domain.Trip
	openRequests map[uuid.UUID][]AffectedRequest
	cancelled    []uuid.UUID
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		trips:        make(map[uuid.UUID]*domain.Trip),
		openRequests: make(map[uuid.UUID][]AffectedRequest),
	}
}

func (m *mockRepo) InTx(ctx context.Context, fn func(pgx.Tx) error) error {
	return fn(nil)
}

func (m *mockRepo) Create(_ context.Context, trip *domain.Trip) error {
	trip.ID = uuid.New()
	trip.CreatedAt = time.Now()
	m.trips[trip.ID] = trip
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Trip, error) {
	trip, ok := m.trips[id]
	if !ok {
		return nil, ErrTripNotFound
	}
	cp := *trip
	return &cp, nil
}

func (m *mockRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]domain.Trip, error) {
	out := make([]domain.Trip, 0)
	for _, trip := range m.trips {
		if trip.UserID == userID {
			out = append(out, *trip)
		}
	}
	return out, nil
}

func (m *mockRepo) SetStatusTx(_ context.Context, _ pgx.Tx, id uuid.UUID, status domain.TripStatus) error {
	trip, ok := m.trips[id]
	if !ok {
		return ErrTripNotFound
	}
	trip.Status = status
	return nil
}

func (m *mockRepo) OpenRequestsForTripTx(_ context.Context, _ pgx.Tx, tripID uuid.UUID) ([]AffectedRequest, error) {
	return m.openRequests[tripID], nil
}

func (m *mockRepo) CancelRequestsTx(_ context.Context, _ pgx.Tx, requestIDs []uuid.UUID) error {
	m.cancelled = append(m.cancelled, requestIDs...)
	return nil
}

type recordingNotifier struct {
	enqueued []enqueued
	failErr  error
}

type enqueued struct {
	UserID  uuid.UUID
	Payload notify.Payload
}

func (n *recordingNotifier) EnqueueTx(_ context.Context, _ pgx.Tx, userID uuid.UUID, p notify.Payload) error {
	if n.failErr != nil {
		return n.failErr
	}
	n.enqueued = append(n.enqueued, enqueued{UserID: userID, Payload: p})
	return nil
}

func activeTrip(repo *mockRepo, userID uuid.UUID) *domain.Trip {
	trip := &domain.Trip{
		ID:            uuid.New(),
		UserID:        userID,
		FromCity:      "Addis Ababa",
		ToCity:        "Dire Dawa",
		DepartureDate: time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC),
		Status:        domain.TripStatusActive,
	}
	repo.trips[trip.ID] = trip
	return trip
}

func TestCancelNotifiesAffectedSenders(t *testing.T) {
	repo := newMockRepo()
	notifier := &recordingNotifier{}
	service := NewService(repo, notifier)

	owner := uuid.New()
	trip := activeTrip(repo, owner)

	senderA, senderB := uuid.New(), uuid.New()
	reqA := AffectedRequest{ID: uuid.New(), SenderID: senderA, Description: "laptop charger"}
	reqB := AffectedRequest{ID: uuid.New(), SenderID: senderB, Description: "documents"}
	repo.openRequests[trip.ID] = []AffectedRequest{reqA, reqB}

	updated, err := service.Cancel(context.Background(), owner, trip.ID, "Flight rescheduled")
	require.NoError(t, err)
	assert.Equal(t, domain.TripStatusCancelled, updated.Status)

	assert.ElementsMatch(t, []uuid.UUID{reqA.ID, reqB.ID}, repo.cancelled)

	require.Len(t, notifier.enqueued, 2)
	first := notifier.enqueued[0]
	assert.Equal(t, senderA, first.UserID)

	payload, ok := first.Payload.(notify.TripCancelledPayload)
	require.True(t, ok)
	assert.Equal(t, reqA.ID, payload.RequestID)
	assert.Equal(t, "laptop charger", payload.ItemDescription)
	assert.Equal(t, "Addis Ababa -> Dire Dawa", payload.Route)
	assert.Equal(t, "2025-03-15", payload.DepartureDate)
	assert.Equal(t, "Flight rescheduled", payload.Reason)
}

func TestCancelWithNoOpenRequests(t *testing.T) {
	repo := newMockRepo()
	notifier := &recordingNotifier{}
	service := NewService(repo, notifier)

	owner := uuid.New()
	trip := activeTrip(repo, owner)

	updated, err := service.Cancel(context.Background(), owner, trip.ID, "")
	require.NoError(t, err)
	assert.Equal(t, domain.TripStatusCancelled, updated.Status)
	assert.Empty(t, notifier.enqueued)
	assert.Empty(t, repo.cancelled)
}

func TestCancelRequiresOwnership(t *testing.T) {
	repo := newMockRepo()
	service := NewService(repo, &recordingNotifier{})

	trip := activeTrip(repo, uuid.New())

	_, err := service.Cancel(context.Background(), uuid.New(), trip.ID, "")
	assert.ErrorIs(t, err, ErrNotTripOwner)
}

func TestCancelRequiresActiveTrip(t *testing.T) {
	repo := newMockRepo()
	service := NewService(repo, &recordingNotifier{})

	owner := uuid.New()
	trip := activeTrip(repo, owner)
	trip.Status = domain.TripStatusCompleted

	_, err := service.Cancel(context.Background(), owner, trip.ID, "")
	assert.ErrorIs(t, err, ErrTripNotActive)
}

func TestCancelEnqueueFailureRollsBack(t *testing.T) {
	repo := newMockRepo()
	notifier := &recordingNotifier{failErr: errors.New("insert failed")}
	service := NewService(repo, notifier)

	owner := uuid.New()
	trip := activeTrip(repo, owner)
	repo.openRequests[trip.ID] = []AffectedRequest{
		{ID: uuid.New(), SenderID: uuid.New(), Description: "phone"},
	}

	_, err := service.Cancel(context.Background(), owner, trip.ID, "")
	require.Error(t, err)
}

func TestCompleteTrip(t *testing.T) {
	repo := newMockRepo()
	service := NewService(repo, &recordingNotifier{})

	owner := uuid.New()
	trip := activeTrip(repo, owner)

	updated, err := service.Complete(context.Background(), owner, trip.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TripStatusCompleted, updated.Status)
}
