//go:build integration

package integration

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mengedapp/menged/internal/notify"
	notifypostgres "github.com/mengedapp/menged/internal/notify/postgres"
	"github.com/mengedapp/menged/internal/requests"
	requestspostgres "github.com/mengedapp/menged/internal/requests/postgres"
	"github.com/mengedapp/menged/internal/trips"
	tripspostgres "github.com/mengedapp/menged/internal/trips/postgres"
)

func setUsername(t *testing.T, userID uuid.UUID, username string) {
	t.Helper()
	_, err := testDB.Exec(context.Background(),
		`UPDATE users SET telegram_username = $2 WHERE id = $1`,
		userID, username,
	)
	require.NoError(t, err)
}

func TestRequestLifecycleProducesOutboxTasks(t *testing.T) {
	cleanupOutbox(t)
	ctx := context.Background()

	notifyRepo := notifypostgres.NewRepository(testDB)
	notifyService := notify.NewService(notifyRepo)
	tripsService := trips.NewService(tripspostgres.NewRepository(testDB), notifyService)
	requestsService := requests.NewService(requestspostgres.NewRepository(testDB), notifyService)

	travelerID := createUser(t, "John", int64Ptr(1001))
	senderID := createUser(t, "Sara", int64Ptr(1002))
	setUsername(t, travelerID, "johndoe")

	trip, err := tripsService.Create(ctx, travelerID, trips.CreateInput{
		FromCity:      "Addis Ababa",
		ToCity:        "Dire Dawa",
		DepartureDate: time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC),
		MaxWeightKg:   10,
	})
	require.NoError(t, err)

	req, err := requestsService.Create(ctx, senderID, requests.CreateInput{
		TripID:      trip.ID,
		Description: "laptop charger",
		WeightKg:    0.5,
	})
	require.NoError(t, err)

	// Creation queued one NEW_REQUEST for the traveler.
	tasks, err := notifyRepo.FetchDueBatch(ctx, 10, time.Now())
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, notify.TypeNewRequest, tasks[0].Type)
	assert.Equal(t, travelerID, tasks[0].UserID)

	// Acceptance queues one task per party.
	_, err = requestsService.Accept(ctx, travelerID, req.ID)
	require.NoError(t, err)

	tasks, err = notifyRepo.FetchDueBatch(ctx, 10, time.Now())
	require.NoError(t, err)
	require.Len(t, tasks, 3)

	byType := map[notify.Type]*notify.OutboxTask{}
	for _, task := range tasks {
		byType[task.Type] = task
	}

	accepted, ok := byType[notify.TypeRequestAccepted]
	require.True(t, ok)
	assert.Equal(t, senderID, accepted.UserID)

	payload := notify.DecodePayload(accepted.Type, accepted.Payload).(notify.RequestAcceptedPayload)
	assert.Equal(t, "https://t.me/johndoe", payload.ContactURL)

	travelerCopy, ok := byType[notify.TypeRequestAcceptedTraveler]
	require.True(t, ok)
	assert.Equal(t, travelerID, travelerCopy.UserID)

	// Delivery notifies the sender again.
	_, err = requestsService.MarkDelivered(ctx, travelerID, req.ID)
	require.NoError(t, err)

	tasks, err = notifyRepo.FetchDueBatch(ctx, 10, time.Now())
	require.NoError(t, err)
	assert.Len(t, tasks, 4)
}

func TestTripCancelFansOutToSenders(t *testing.T) {
	cleanupOutbox(t)
	ctx := context.Background()

	notifyRepo := notifypostgres.NewRepository(testDB)
	notifyService := notify.NewService(notifyRepo)
	tripsService := trips.NewService(tripspostgres.NewRepository(testDB), notifyService)
	requestsService := requests.NewService(requestspostgres.NewRepository(testDB), notifyService)

	travelerID := createUser(t, "John", int64Ptr(2001))
	senderA := createUser(t, "Sara", int64Ptr(2002))
	senderB := createUser(t, "Abel", int64Ptr(2003))

	trip, err := tripsService.Create(ctx, travelerID, trips.CreateInput{
		FromCity:      "Addis Ababa",
		ToCity:        "Bahir Dar",
		DepartureDate: time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	reqA, err := requestsService.Create(ctx, senderA, requests.CreateInput{
		TripID: trip.ID, Description: "books",
	})
	require.NoError(t, err)
	_, err = requestsService.Create(ctx, senderB, requests.CreateInput{
		TripID: trip.ID, Description: "shoes",
	})
	require.NoError(t, err)

	_, err = requestsService.Accept(ctx, travelerID, reqA.ID)
	require.NoError(t, err)

	cleanupOutbox(t)

	cancelled, err := tripsService.Cancel(ctx, travelerID, trip.ID, "Flight rescheduled")
	require.NoError(t, err)
	assert.Equal(t, "cancelled", string(cancelled.Status))

	// Both the accepted and the still-pending request produced a
	// TRIP_CANCELLED task for their sender.
	tasks, err := notifyRepo.FetchDueBatch(ctx, 10, time.Now())
	require.NoError(t, err)
	require.Len(t, tasks, 2)

	recipients := map[uuid.UUID]bool{}
	for _, task := range tasks {
		assert.Equal(t, notify.TypeTripCancelled, task.Type)
		recipients[task.UserID] = true

		payload := notify.DecodePayload(task.Type, task.Payload).(notify.TripCancelledPayload)
		assert.Equal(t, "Flight rescheduled", payload.Reason)
		assert.Equal(t, "Addis Ababa -> Bahir Dar", payload.Route)
	}
	assert.True(t, recipients[senderA])
	assert.True(t, recipients[senderB])

	// The requests themselves were flipped in the same transaction.
	listed, err := requestsService.ListOwn(ctx, senderA)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "cancelled", string(listed[0].Status))
}
