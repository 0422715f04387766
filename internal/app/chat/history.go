package chat

import (
	"sync"
	"time"
)

// HistoryBuffer is the bounded in-memory message log, one window per channel.
// It is shared between all connection handlers and the history API, so reads
// hand out stable copies.
type HistoryBuffer struct {
	mu       sync.RWMutex
	capacity int
	channels map[int64][]ChatMessage
}

// NewHistoryBuffer creates a buffer keeping the most recent capacity
// messages per channel.
func NewHistoryBuffer(capacity int) *HistoryBuffer {
	if capacity < 1 {
		capacity = 1
	}

	return &HistoryBuffer{
		capacity: capacity,
		channels: make(map[int64][]ChatMessage),
	}
}

// AddMessage appends a message to the channel's log, evicting the oldest
// entry when the log is at capacity.
func (b *HistoryBuffer) AddMessage(name, message string, channelID, userID int64, country string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	log := append(b.channels[channelID], ChatMessage{
		Name:      name,
		Message:   message,
		ChannelID: channelID,
		UserID:    userID,
		Country:   country,
		Timestamp: time.Now(),
	})

	if len(log) > b.capacity {
		log = log[len(log)-b.capacity:]
	}

	b.channels[channelID] = log
}

// GetMessages returns up to limit most recent messages of the channel in
// chronological order. The returned slice is a copy and safe to hold across
// later appends. Channels without history yield an empty slice.
func (b *HistoryBuffer) GetMessages(channelID int64, limit int) []ChatMessage {
	b.mu.RLock()
	defer b.mu.RUnlock()

	log := b.channels[channelID]
	if limit > 0 && len(log) > limit {
		log = log[len(log)-limit:]
	}

	out := make([]ChatMessage, len(log))
	copy(out, log)
	return out
}
