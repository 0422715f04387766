/*
Package chat implements the chat message pipeline: rate limiting, moderation
state, content filtering, admin commands, and the ordered broadcast and
history write path.
*/
package chat

import "time"

// CommandPrefix starts an admin command in channel text.
const CommandPrefix = "/"

// Per-user message rate limit: at most RateLimitCapacity accepted messages
// inside any rolling RateLimitWindow.
const (
	RateLimitCapacity = 20
	RateLimitWindow   = 15 * time.Second
	RateLimitBurst    = true
)

const (
	// MaxMessageLength is the send-time ceiling, checked after substitutions.
	MaxMessageLength = 200

	// MaxBroadcastLength is the ceiling at the broadcast boundary. It sits
	// above the send-time limit so system announcements fit; anything longer
	// is silently dropped there.
	MaxBroadcastLength = 250
)

const (
	// FloodThreshold is the number of identical consecutive messages that
	// counts as flooding.
	FloodThreshold = 4

	// SpamMuteMinutes is the automatic mute handed out by the spam filter.
	SpamMuteMinutes = 30

	// FloodMuteMinutes is the automatic mute handed out for flooding.
	// TODO: confirm with product whether 60 was meant as minutes or seconds;
	// the configured literal is 60 on the same scale as SpamMuteMinutes.
	FloodMuteMinutes = 60
)

// HistoryLimit is the maximum number of messages served per channel history
// query and the capacity of the per-channel buffer.
const HistoryLimit = 30
