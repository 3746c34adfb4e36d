package notify

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	p := NewRequestPayload{
		RequestID:       uuid.New(),
		TripID:          uuid.New(),
		ItemDescription: "laptop charger",
		ItemWeightKg:    0.5,
		Route:           "Addis Ababa -> Dire Dawa",
		DepartureDate:   "2025-03-15",
		SenderFirstName: "Sara",
	}

	raw, err := EncodePayload(p)
	require.NoError(t, err)

	decoded := DecodePayload(TypeNewRequest, raw)
	assert.Equal(t, p, decoded)
}

func TestDecodeUnknownTypeDegrades(t *testing.T) {
	decoded := DecodePayload("PAYOUT_READY", []byte(`{"amount": 100}`))

	generic, ok := decoded.(GenericPayload)
	require.True(t, ok)
	assert.Equal(t, Type("PAYOUT_READY"), generic.Type())
	assert.Equal(t, "Payout Ready", generic.Title())
}

func TestDecodeMalformedPayloadDegrades(t *testing.T) {
	decoded := DecodePayload(TypeNewRequest, []byte(`{not json`))

	generic, ok := decoded.(GenericPayload)
	require.True(t, ok)
	assert.Equal(t, TypeNewRequest, generic.Type())
	assert.Equal(t, "New Request", generic.Title())
}

func TestDecodeEmptyTypeDegrades(t *testing.T) {
	decoded := DecodePayload("", nil)

	assert.Equal(t, "You have a new notification", decoded.Title())
	assert.Empty(t, decoded.Summary())
	assert.Empty(t, decoded.ActionURL())
}

func TestPayloadFeedFields(t *testing.T) {
	requestID := uuid.New()

	accepted := RequestAcceptedPayload{
		RequestID:         requestID,
		ItemDescription:   "laptop charger",
		Route:             "Addis Ababa -> Dire Dawa",
		TravelerFirstName: "John",
	}
	assert.Equal(t, "Your request was accepted!", accepted.Title())
	assert.Equal(t, "John accepted your request for laptop charger (Addis Ababa -> Dire Dawa)", accepted.Summary())
	assert.Equal(t, "/requests/"+requestID.String(), accepted.ActionURL())

	cancelled := TripCancelledPayload{
		RequestID:       requestID,
		ItemDescription: "phone",
		Route:           "Addis Ababa -> Dire Dawa",
	}
	assert.Equal(t, "/trips", cancelled.ActionURL())
}
