package notify

import (
	"fmt"
	"strings"
)

// Mode hints how the transport should interpret the message text.
type Mode string

// Markup modes.
const (
	ModePlain    Mode = "plain"
	ModeMarkdown Mode = "markdown"
)

// Button is a single inline call-to-action under a message.
type Button struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// RenderedMessage is a transport-ready message. It carries no recipient:
// address resolution happens in the dispatcher.
type RenderedMessage struct {
	Text    string
	Mode    Mode
	Buttons []Button
}

// Formatter renders a typed payload into a transport-ready message. It is a
// pure function of its input and never fails: missing optional fields drop
// their line and unknown types fall back to a one-line generic message.
type Formatter struct{}

// Format renders the message for a payload.
func (Formatter) Format(p Payload) RenderedMessage {
	switch v := p.(type) {
	case NewRequestPayload:
		return formatNewRequest(v)
	case RequestAcceptedPayload:
		return formatRequestAccepted(v)
	case RequestAcceptedTravelerPayload:
		return formatRequestAcceptedTraveler(v)
	case RequestRejectedPayload:
		return formatRequestRejected(v)
	case RequestDeliveredPayload:
		return formatRequestDelivered(v)
	case TripCancelledPayload:
		return formatTripCancelled(v)
	default:
		return RenderedMessage{Text: p.Title(), Mode: ModePlain}
	}
}

func formatNewRequest(p NewRequestPayload) RenderedMessage {
	var b strings.Builder
	b.WriteString("📬 *New item request!*\n\n")
	b.WriteString("📦 " + p.ItemDescription + "\n")
	if p.ItemWeightKg > 0 {
		fmt.Fprintf(&b, "⚖️ %g kg\n", p.ItemWeightKg)
	}
	b.WriteString("✈️ " + p.Route + "\n")
	b.WriteString("📅 " + p.DepartureDate + "\n\n")
	b.WriteString("👤 From: " + p.SenderFirstName + "\n\n")
	b.WriteString("_Open the app to accept or decline._")

	return RenderedMessage{Text: b.String(), Mode: ModeMarkdown}
}

func formatRequestAccepted(p RequestAcceptedPayload) RenderedMessage {
	var b strings.Builder
	b.WriteString("✅ *Your request was accepted!*\n\n")
	b.WriteString("📦 " + p.ItemDescription + "\n")
	b.WriteString("✈️ " + p.Route + "\n")
	b.WriteString("📅 " + p.DepartureDate + "\n\n")

	b.WriteString("🧳 *Traveler:* " + p.TravelerFirstName)
	if p.TravelerLastName != "" {
		b.WriteString(" " + p.TravelerLastName[:1] + ".")
	}
	if p.TravelerVerified {
		b.WriteString(" ✓")
	}
	if p.TravelerRating > 0 {
		fmt.Fprintf(&b, " (%.1f⭐)", p.TravelerRating)
	}
	b.WriteString("\n\n")
	b.WriteString("_Tap below to coordinate pickup details:_")

	return RenderedMessage{
		Text:    b.String(),
		Mode:    ModeMarkdown,
		Buttons: contactButton(p.ContactURL, p.ContactButtonText),
	}
}

func formatRequestAcceptedTraveler(p RequestAcceptedTravelerPayload) RenderedMessage {
	var b strings.Builder
	b.WriteString("📦 *You accepted a new request!*\n\n")
	b.WriteString("*Item:* " + p.ItemDescription + "\n")
	if p.ItemWeightKg > 0 {
		fmt.Fprintf(&b, "*Weight:* %g kg\n", p.ItemWeightKg)
	}
	if strings.TrimSpace(p.SpecialInstructions) != "" {
		b.WriteString("*Instructions:* " + p.SpecialInstructions + "\n")
	}
	b.WriteString("\n")

	b.WriteString("👤 *Sender:* " + p.SenderFirstName)
	if p.SenderLastName != "" {
		b.WriteString(" " + p.SenderLastName[:1] + ".")
	}
	b.WriteString("\n\n")
	b.WriteString("_Tap below to coordinate with sender:_")

	return RenderedMessage{
		Text:    b.String(),
		Mode:    ModeMarkdown,
		Buttons: contactButton(p.ContactURL, p.ContactButtonText),
	}
}

func formatRequestRejected(p RequestRejectedPayload) RenderedMessage {
	var b strings.Builder
	b.WriteString("❌ *Request not accepted*\n\n")
	b.WriteString("📦 " + p.ItemDescription + "\n")
	b.WriteString("✈️ " + p.Route + "\n\n")
	b.WriteString(p.Message)

	return RenderedMessage{Text: b.String(), Mode: ModeMarkdown}
}

func formatRequestDelivered(p RequestDeliveredPayload) RenderedMessage {
	var b strings.Builder
	b.WriteString("🎉 *Your item was delivered!*\n\n")
	b.WriteString("📦 " + p.ItemDescription + "\n")
	b.WriteString("✈️ " + p.Route + "\n\n")
	b.WriteString("Thanks to *" + p.TravelerFirstName + "* for carrying your item!\n\n")
	b.WriteString("_How was your experience? Leave a review in the app._")

	return RenderedMessage{Text: b.String(), Mode: ModeMarkdown}
}

func formatTripCancelled(p TripCancelledPayload) RenderedMessage {
	var b strings.Builder
	b.WriteString("❌ *Trip cancelled by traveler*\n\n")
	b.WriteString("📦 " + p.ItemDescription + "\n")
	b.WriteString("✈️ " + p.Route + "\n")
	b.WriteString("📅 " + p.DepartureDate + "\n\n")
	if r := strings.TrimSpace(p.Reason); r != "" && r != "No reason provided" {
		b.WriteString("*Reason:* " + r + "\n\n")
	}
	b.WriteString("_Your request has been automatically cancelled. ")
	b.WriteString("You can search for other travelers going to your destination._")

	return RenderedMessage{Text: b.String(), Mode: ModeMarkdown}
}

// contactButton returns the single call-to-action button, or none unless
// both the URL and the label text are present.
func contactButton(url, text string) []Button {
	if url == "" || text == "" {
		return nil
	}
	return []Button{{Label: "💬 " + text, URL: url}}
}
