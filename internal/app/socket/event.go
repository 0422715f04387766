/*
Package socket is the websocket transport layer of the chat subsystem.

It delivers raw text from connected principals into the chat pipeline and
fans accepted messages back out to every live subscriber of a channel. The
Hub implements chat.Broadcaster and directory.Notifier.
*/
package socket

import (
	"encoding/json"

	"github.com/equwal/pixelplanet/internal/app/directory"
)

// EventType discriminates the JSON events exchanged with clients.
type EventType string

const (
	// EventChatMessage carries one chat message, in both directions.
	EventChatMessage EventType = "chat_message"

	// EventChatChannel informs a user's clients of a new channel membership.
	EventChatChannel EventType = "chat_channel"

	// EventError carries a user-facing rejection or failure text.
	EventError EventType = "error"
)

// Event is the wire envelope.
type Event struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ChatMessagePayload is the payload of EventChatMessage.
type ChatMessagePayload struct {
	Name      string `json:"name"`
	Message   string `json:"message"`
	ChannelID int64  `json:"cid"`
	UserID    int64  `json:"uid"`
	Country   string `json:"country"`
}

// InboundMessagePayload is what clients send for EventChatMessage.
type InboundMessagePayload struct {
	Message   string `json:"message"`
	ChannelID int64  `json:"cid"`
}

// ChatChannelPayload is the payload of EventChatChannel.
type ChatChannelPayload struct {
	ChannelID int64  `json:"cid"`
	Name      string `json:"name"`
	Type      int    `json:"type"`
	DMPeer    *int64 `json:"dmu,omitempty"`
}

// ErrorPayload is the payload of EventError.
type ErrorPayload struct {
	Message string `json:"message"`
}

// newEvent marshals a payload into an Event.
func newEvent(eventType EventType, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{Type: eventType, Payload: raw}, nil
}

// chatChannelPayload converts a directory membership for the wire.
func chatChannelPayload(channelID int64, m directory.Membership) ChatChannelPayload {
	return ChatChannelPayload{
		ChannelID: channelID,
		Name:      m.Name,
		Type:      m.Type,
		DMPeer:    m.DMPeer,
	}
}
