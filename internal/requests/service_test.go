package requests

import (
	"context"
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
	requests map[uuid.UUID]*domain.ItemRequest
	trips    map[uuid.UUID]*domain.Trip
	users    map[uuid.UUID]*domain.User
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		requests: make(map[uuid.UUID]*domain.ItemRequest),
		trips:    make(map[uuid.UUID]*domain.Trip),
		users:    make(map[uuid.UUID]*domain.User),
	}
}

func (m *mockRepo) InTx(ctx context.Context, fn func(pgx.Tx) error) error {
	return fn(nil)
}

func (m *mockRepo) CreateTx(_ context.Context, _ pgx.Tx, req *domain.ItemRequest) error {
	req.ID = uuid.New()
	req.CreatedAt = time.Now()
	cp := *req
	m.requests[req.ID] = &cp
	return nil
}

func (m *mockRepo) GetDetail(_ context.Context, id uuid.UUID) (*Detail, error) {
	req, ok := m.requests[id]
	if !ok {
		return nil, ErrRequestNotFound
	}
	trip := m.trips[req.TripID]
	return &Detail{
		Request:  *req,
		Trip:     *trip,
		Sender:   *m.users[req.SenderID],
		Traveler: *m.users[trip.UserID],
	}, nil
}

func (m *mockRepo) GetTrip(_ context.Context, tripID uuid.UUID) (*domain.Trip, error) {
	trip, ok := m.trips[tripID]
	if !ok {
		return nil, ErrTripNotFound
	}
	cp := *trip
	return &cp, nil
}

func (m *mockRepo) GetUser(_ context.Context, userID uuid.UUID) (*domain.User, error) {
	user, ok := m.users[userID]
	if !ok {
		return nil, ErrRequestNotFound
	}
	cp := *user
	return &cp, nil
}

func (m *mockRepo) UpdateStatusTx(_ context.Context, _ pgx.Tx, id uuid.UUID, status domain.RequestStatus) error {
	req, ok := m.requests[id]
	if !ok {
		return ErrRequestNotFound
	}
	req.Status = status
	return nil
}

func (m *mockRepo) ListBySender(_ context.Context, senderID uuid.UUID) ([]domain.ItemRequest, error) {
	out := make([]domain.ItemRequest, 0)
	for _, req := range m.requests {
		if req.SenderID == senderID {
			out = append(out, *req)
		}
	}
	return out, nil
}

func (m *mockRepo) ListForTrip(_ context.Context, tripID uuid.UUID) ([]domain.ItemRequest, error) {
	out := make([]domain.ItemRequest, 0)
	for _, req := range m.requests {
		if req.TripID == tripID {
			out = append(out, *req)
		}
	}
	return out, nil
}

type recordingNotifier struct {
	enqueued []enqueued
}

type enqueued struct {
	UserID  uuid.UUID
	Payload notify.Payload
}

func (n *recordingNotifier) EnqueueTx(_ context.Context, _ pgx.Tx, userID uuid.UUID, p notify.Payload) error {
	n.enqueued = append(n.enqueued, enqueued{UserID: userID, Payload: p})
	return nil
}

type fixture struct {
	repo     *mockRepo
	notifier *recordingNotifier
	service  *Service
	trip     *domain.Trip
	traveler *domain.User
	sender   *domain.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := newMockRepo()

	traveler := &domain.User{
		ID:            uuid.New(),
		FirstName:     "John",
		LastName:      "Doe",
		Username:      "johndoe",
		Verified:      true,
		RatingAverage: 4.8,
	}
	sender := &domain.User{
		ID:        uuid.New(),
		FirstName: "Sara",
		LastName:  "Kebede",
		Username:  "sarak",
	}
	repo.users[traveler.ID] = traveler
	repo.users[sender.ID] = sender

	trip := &domain.Trip{
		ID:            uuid.New(),
		UserID:        traveler.ID,
		FromCity:      "Addis Ababa",
		ToCity:        "Dire Dawa",
		DepartureDate: time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC),
		Status:        domain.TripStatusActive,
	}
	repo.trips[trip.ID] = trip

	notifier := &recordingNotifier{}
	return &fixture{
		repo:     repo,
		notifier: notifier,
		service:  NewService(repo, notifier),
		trip:     trip,
		traveler: traveler,
		sender:   sender,
	}
}

func (f *fixture) pendingRequest() *domain.ItemRequest {
	req := &domain.ItemRequest{
		ID:          uuid.New(),
		TripID:      f.trip.ID,
		SenderID:    f.sender.ID,
		Description: "laptop charger",
		WeightKg:    0.5,
		Status:      domain.RequestStatusPending,
	}
	f.repo.requests[req.ID] = req
	return req
}

func TestCreateNotifiesTraveler(t *testing.T) {
	f := newFixture(t)

	created, err := f.service.Create(context.Background(), f.sender.ID, CreateInput{
		TripID:      f.trip.ID,
		Description: "laptop charger",
		WeightKg:    0.5,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusPending, created.Status)

	require.Len(t, f.notifier.enqueued, 1)
	assert.Equal(t, f.traveler.ID, f.notifier.enqueued[0].UserID)

	payload, ok := f.notifier.enqueued[0].Payload.(notify.NewRequestPayload)
	require.True(t, ok)
	assert.Equal(t, created.ID, payload.RequestID)
	assert.Equal(t, "laptop charger", payload.ItemDescription)
	assert.Equal(t, "Addis Ababa -> Dire Dawa", payload.Route)
	assert.Equal(t, "2025-03-15", payload.DepartureDate)
	assert.Equal(t, "Sara", payload.SenderFirstName)
}

func TestCreateRejectsOwnTrip(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Create(context.Background(), f.traveler.ID, CreateInput{
		TripID:      f.trip.ID,
		Description: "anything",
	})
	assert.ErrorIs(t, err, ErrOwnTrip)
}

func TestCreateRejectsInactiveTrip(t *testing.T) {
	f := newFixture(t)
	f.trip.Status = domain.TripStatusCancelled

	_, err := f.service.Create(context.Background(), f.sender.ID, CreateInput{
		TripID:      f.trip.ID,
		Description: "anything",
	})
	assert.ErrorIs(t, err, ErrTripNotOpen)
}

func TestAcceptNotifiesBothParties(t *testing.T) {
	f := newFixture(t)
	req := f.pendingRequest()

	updated, err := f.service.Accept(context.Background(), f.traveler.ID, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusAccepted, updated.Status)

	require.Len(t, f.notifier.enqueued, 2)

	// Sender's copy carries the traveler's profile and contact.
	assert.Equal(t, f.sender.ID, f.notifier.enqueued[0].UserID)
	senderPayload, ok := f.notifier.enqueued[0].Payload.(notify.RequestAcceptedPayload)
	require.True(t, ok)
	assert.Equal(t, "John", senderPayload.TravelerFirstName)
	assert.Equal(t, "Doe", senderPayload.TravelerLastName)
	assert.True(t, senderPayload.TravelerVerified)
	assert.Equal(t, 4.8, senderPayload.TravelerRating)
	assert.Equal(t, "https://t.me/johndoe", senderPayload.ContactURL)
	assert.Equal(t, "Message John", senderPayload.ContactButtonText)

	// Traveler's copy carries the item details and the sender's contact.
	assert.Equal(t, f.traveler.ID, f.notifier.enqueued[1].UserID)
	travelerPayload, ok := f.notifier.enqueued[1].Payload.(notify.RequestAcceptedTravelerPayload)
	require.True(t, ok)
	assert.Equal(t, "laptop charger", travelerPayload.ItemDescription)
	assert.Equal(t, 0.5, travelerPayload.ItemWeightKg)
	assert.Equal(t, "Sara", travelerPayload.SenderFirstName)
	assert.Equal(t, "https://t.me/sarak", travelerPayload.ContactURL)
	assert.Equal(t, "Message Sara", travelerPayload.ContactButtonText)
}

func TestAcceptOmitsContactWithoutUsername(t *testing.T) {
	f := newFixture(t)
	f.traveler.Username = ""
	req := f.pendingRequest()

	_, err := f.service.Accept(context.Background(), f.traveler.ID, req.ID)
	require.NoError(t, err)

	senderPayload := f.notifier.enqueued[0].Payload.(notify.RequestAcceptedPayload)
	assert.Empty(t, senderPayload.ContactURL)
	assert.Empty(t, senderPayload.ContactButtonText)
}

func TestAcceptRequiresTripOwnership(t *testing.T) {
	f := newFixture(t)
	req := f.pendingRequest()

	_, err := f.service.Accept(context.Background(), f.sender.ID, req.ID)
	assert.ErrorIs(t, err, ErrNotTripTraveler)
}

func TestAcceptRequiresPendingStatus(t *testing.T) {
	f := newFixture(t)
	req := f.pendingRequest()
	req.Status = domain.RequestStatusRejected

	_, err := f.service.Accept(context.Background(), f.traveler.ID, req.ID)
	assert.ErrorIs(t, err, ErrRequestNotPending)
}

func TestRejectNotifiesSenderWithFixedMessage(t *testing.T) {
	f := newFixture(t)
	req := f.pendingRequest()

	updated, err := f.service.Reject(context.Background(), f.traveler.ID, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusRejected, updated.Status)

	require.Len(t, f.notifier.enqueued, 1)
	assert.Equal(t, f.sender.ID, f.notifier.enqueued[0].UserID)

	payload, ok := f.notifier.enqueued[0].Payload.(notify.RequestRejectedPayload)
	require.True(t, ok)
	assert.Equal(t, rejectedMessage, payload.Message)
}

func TestMarkDeliveredNotifiesSender(t *testing.T) {
	f := newFixture(t)
	req := f.pendingRequest()
	req.Status = domain.RequestStatusAccepted

	updated, err := f.service.MarkDelivered(context.Background(), f.traveler.ID, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusDelivered, updated.Status)

	require.Len(t, f.notifier.enqueued, 1)
	payload, ok := f.notifier.enqueued[0].Payload.(notify.RequestDeliveredPayload)
	require.True(t, ok)
	assert.Equal(t, "John", payload.TravelerFirstName)
}

func TestMarkDeliveredRequiresAcceptedStatus(t *testing.T) {
	f := newFixture(t)
	req := f.pendingRequest()

	_, err := f.service.MarkDelivered(context.Background(), f.traveler.ID, req.ID)
	assert.ErrorIs(t, err, ErrRequestNotAccepted)
}

func TestCancelIsSilent(t *testing.T) {
	f := newFixture(t)
	req := f.pendingRequest()

	updated, err := f.service.Cancel(context.Background(), f.sender.ID, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusCancelled, updated.Status)
	assert.Empty(t, f.notifier.enqueued)
}

func TestCancelRequiresSender(t *testing.T) {
	f := newFixture(t)
	req := f.pendingRequest()

	_, err := f.service.Cancel(context.Background(), f.traveler.ID, req.ID)
	assert.ErrorIs(t, err, ErrNotRequestSender)
}
