package chat

import (
	"context"
	"time"
)

// ChatMessage is the broadcast and history unit. It is immutable once
// created: appended to the history buffer and handed to the transport layer,
// never mutated afterwards.
type ChatMessage struct {
	Name      string    `json:"name"`
	Message   string    `json:"message"`
	ChannelID int64     `json:"cid"`
	UserID    int64     `json:"uid"`
	Country   string    `json:"country"`
	Timestamp time.Time `json:"ts"`
}

// Broadcaster delivers outgoing chat events to live subscribers. The
// websocket hub implements it. sendAPI=false suppresses relay to the public
// read-only feed while still delivering to live channel subscribers.
type Broadcaster interface {
	BroadcastChatMessage(name, message string, channelID, userID int64, country string, sendAPI bool)
}

// MuteService is the moderation state the pipeline consults and writes.
// Implemented by mute.Store.
type MuteService interface {
	CheckMuted(ctx context.Context, userID int64) (int64, error)
	Mute(ctx context.Context, userID int64, minutes int) error
	Unmute(ctx context.Context, userID int64) (bool, error)
}

// ProxyChecker is the external IP reputation probe. Implemented by
// proxy.Detector.
type ProxyChecker interface {
	IsProxy(ctx context.Context, ip string) (bool, error)
}
