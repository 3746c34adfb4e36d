package notify

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Type is the notification kind. It selects both the Telegram template and
// the in-app feed wording.
type Type string

// Notification types.
const (
	TypeNewRequest              Type = "NEW_REQUEST"
	TypeRequestAccepted         Type = "REQUEST_ACCEPTED"
	TypeRequestAcceptedTraveler Type = "REQUEST_ACCEPTED_TRAVELER"
	TypeRequestRejected         Type = "REQUEST_REJECTED"
	TypeRequestDelivered        Type = "REQUEST_DELIVERED"
	TypeTripCancelled           Type = "TRIP_CANCELLED"
)

// Payload is the per-type notification content. Each variant carries only
// its own fields, so a producer cannot enqueue a notification with a missing
// required field. The formatter matches exhaustively over the variants.
type Payload interface {
	// Type tags the payload for storage and template selection.
	Type() Type
	// Title is the in-app feed headline.
	Title() string
	// Summary is the in-app feed body line.
	Summary() string
	// ActionURL is the in-app link target, empty if none.
	ActionURL() string
}

// NewRequestPayload notifies a traveler that a sender wants to use their trip.
type NewRequestPayload struct {
	RequestID       uuid.UUID `json:"requestId"`
	TripID          uuid.UUID `json:"tripId"`
	ItemDescription string    `json:"itemDescription"`
	ItemWeightKg    float64   `json:"itemWeight,omitempty"`
	Route           string    `json:"route"`
	DepartureDate   string    `json:"departureDate"`
	SenderFirstName string    `json:"senderFirstName"`
}

func (p NewRequestPayload) Type() Type    { return TypeNewRequest }
func (p NewRequestPayload) Title() string { return "New item request!" }
func (p NewRequestPayload) Summary() string {
	return fmt.Sprintf("%s wants to send: %s (%s)", p.SenderFirstName, p.ItemDescription, p.Route)
}
func (p NewRequestPayload) ActionURL() string { return "/requests/" + p.RequestID.String() }

// RequestAcceptedPayload notifies the sender that a traveler accepted.
type RequestAcceptedPayload struct {
	RequestID         uuid.UUID `json:"requestId"`
	TripID            uuid.UUID `json:"tripId"`
	ItemDescription   string    `json:"itemDescription"`
	Route             string    `json:"route"`
	DepartureDate     string    `json:"departureDate"`
	TravelerFirstName string    `json:"travelerFirstName"`
	TravelerLastName  string    `json:"travelerLastName,omitempty"`
	TravelerVerified  bool      `json:"travelerVerified,omitempty"`
	TravelerRating    float64   `json:"travelerRating,omitempty"`
	ContactURL        string    `json:"contactUrl,omitempty"`
	ContactButtonText string    `json:"contactButtonText,omitempty"`
}

func (p RequestAcceptedPayload) Type() Type    { return TypeRequestAccepted }
func (p RequestAcceptedPayload) Title() string { return "Your request was accepted!" }
func (p RequestAcceptedPayload) Summary() string {
	return fmt.Sprintf("%s accepted your request for %s (%s)", p.TravelerFirstName, p.ItemDescription, p.Route)
}
func (p RequestAcceptedPayload) ActionURL() string { return "/requests/" + p.RequestID.String() }

// RequestAcceptedTravelerPayload confirms to the traveler what they accepted.
type RequestAcceptedTravelerPayload struct {
	RequestID           uuid.UUID `json:"requestId"`
	TripID              uuid.UUID `json:"tripId"`
	ItemDescription     string    `json:"itemDescription"`
	ItemWeightKg        float64   `json:"itemWeight,omitempty"`
	SpecialInstructions string    `json:"specialInstructions,omitempty"`
	Route               string    `json:"route"`
	SenderFirstName     string    `json:"senderFirstName"`
	SenderLastName      string    `json:"senderLastName,omitempty"`
	ContactURL          string    `json:"contactUrl,omitempty"`
	ContactButtonText   string    `json:"contactButtonText,omitempty"`
}

func (p RequestAcceptedTravelerPayload) Type() Type    { return TypeRequestAcceptedTraveler }
func (p RequestAcceptedTravelerPayload) Title() string { return "You accepted a new request!" }
func (p RequestAcceptedTravelerPayload) Summary() string {
	return fmt.Sprintf("You accepted %s from %s", p.ItemDescription, p.SenderFirstName)
}
func (p RequestAcceptedTravelerPayload) ActionURL() string {
	return "/requests/" + p.RequestID.String()
}

// RequestRejectedPayload notifies the sender of a rejection.
type RequestRejectedPayload struct {
	RequestID       uuid.UUID `json:"requestId"`
	TripID          uuid.UUID `json:"tripId"`
	ItemDescription string    `json:"itemDescription"`
	Route           string    `json:"route"`
	Message         string    `json:"message"`
}

func (p RequestRejectedPayload) Type() Type        { return TypeRequestRejected }
func (p RequestRejectedPayload) Title() string     { return "Request not accepted" }
func (p RequestRejectedPayload) Summary() string   { return p.Message }
func (p RequestRejectedPayload) ActionURL() string { return "/trips" }

// RequestDeliveredPayload notifies the sender their item arrived.
type RequestDeliveredPayload struct {
	RequestID         uuid.UUID `json:"requestId"`
	TripID            uuid.UUID `json:"tripId"`
	ItemDescription   string    `json:"itemDescription"`
	Route             string    `json:"route"`
	TravelerFirstName string    `json:"travelerFirstName"`
}

func (p RequestDeliveredPayload) Type() Type    { return TypeRequestDelivered }
func (p RequestDeliveredPayload) Title() string { return "Your item was delivered!" }
func (p RequestDeliveredPayload) Summary() string {
	return fmt.Sprintf("%s was delivered by %s", p.ItemDescription, p.TravelerFirstName)
}
func (p RequestDeliveredPayload) ActionURL() string { return "/requests/" + p.RequestID.String() }

// TripCancelledPayload notifies a sender their request died with the trip.
type TripCancelledPayload struct {
	RequestID       uuid.UUID `json:"requestId"`
	TripID          uuid.UUID `json:"tripId"`
	ItemDescription string    `json:"itemDescription"`
	Route           string    `json:"route"`
	DepartureDate   string    `json:"departureDate"`
	Reason          string    `json:"reason,omitempty"`
}

func (p TripCancelledPayload) Type() Type    { return TypeTripCancelled }
func (p TripCancelledPayload) Title() string { return "Trip cancelled by traveler" }
func (p TripCancelledPayload) Summary() string {
	return fmt.Sprintf("The trip %s was cancelled, your request for %s is cancelled too", p.Route, p.ItemDescription)
}
func (p TripCancelledPayload) ActionURL() string { return "/trips" }

// GenericPayload is the fallback for unrecognized or undecodable payloads.
type GenericPayload struct {
	TypeTag   Type   `json:"-"`
	TitleText string `json:"title,omitempty"`
}

func (p GenericPayload) Type() Type { return p.TypeTag }
func (p GenericPayload) Title() string {
	if p.TitleText != "" {
		return p.TitleText
	}
	return defaultTitle(p.TypeTag)
}
func (p GenericPayload) Summary() string   { return "" }
func (p GenericPayload) ActionURL() string { return "" }

var titleCaser = cases.Title(language.English)

// defaultTitle derives a readable headline from the type tag,
// e.g. "PAYOUT_READY" -> "Payout Ready".
func defaultTitle(t Type) string {
	if t == "" {
		return "You have a new notification"
	}
	return titleCaser.String(strings.ToLower(strings.ReplaceAll(string(t), "_", " ")))
}

// EncodePayload serializes a payload for outbox storage.
func EncodePayload(p Payload) ([]byte, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return raw, nil
}

// DecodePayload reconstructs the typed payload from a stored task. It never
// fails: unknown types and malformed documents degrade to GenericPayload so
// one bad row cannot poison a dispatch batch.
func DecodePayload(t Type, raw []byte) Payload {
	var (
		p   Payload
		err error
	)

	switch t {
	case TypeNewRequest:
		var v NewRequestPayload
		err = json.Unmarshal(raw, &v)
		p = v
	case TypeRequestAccepted:
		var v RequestAcceptedPayload
		err = json.Unmarshal(raw, &v)
		p = v
	case TypeRequestAcceptedTraveler:
		var v RequestAcceptedTravelerPayload
		err = json.Unmarshal(raw, &v)
		p = v
	case TypeRequestRejected:
		var v RequestRejectedPayload
		err = json.Unmarshal(raw, &v)
		p = v
	case TypeRequestDelivered:
		var v RequestDeliveredPayload
		err = json.Unmarshal(raw, &v)
		p = v
	case TypeTripCancelled:
		var v TripCancelledPayload
		err = json.Unmarshal(raw, &v)
		p = v
	default:
		return genericFrom(t, raw)
	}

	if err != nil {
		return genericFrom(t, raw)
	}
	return p
}

func genericFrom(t Type, raw []byte) GenericPayload {
	p := GenericPayload{TypeTag: t}
	_ = json.Unmarshal(raw, &p)
	return p
}
