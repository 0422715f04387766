package socket

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"github.com/equwal/pixelplanet/internal/app/directory"
	"github.com/equwal/pixelplanet/internal/app/user"
	"github.com/equwal/pixelplanet/internal/pkg/logx"
)

const broadcastChannelBuffer = 1024

// MessageSink receives inbound chat text from connections. Implemented by
// chat.Provider.
type MessageSink interface {
	SendMessage(ctx context.Context, u *user.User, message string, channelID int64) (string, error)
}

// outbound is one fanout job for the Hub loop.
type outbound struct {
	event Event

	// channelID selects subscribers; ignored when targetUserID is set.
	channelID int64

	// targetUserID, when non-zero, restricts delivery to that user's
	// connections (membership notifications).
	targetUserID int64

	// sendAPI=false skips read-only feed clients.
	sendAPI bool

	// membership accompanies EventChatChannel so the hub can extend the
	// target clients' subscriptions.
	membershipChannel int64
}

// Hub owns the set of live websocket clients and serializes registration,
// deregistration, and fanout through a single Run loop.
type Hub struct {
	clients map[string]*Client

	register   chan *Client
	unregister chan *Client
	broadcast  chan outbound
	stopChan   chan struct{}

	wg sync.WaitGroup

	// sink is set after construction because the chat provider and the hub
	// reference each other.
	sink   MessageSink
	sinkMu sync.RWMutex

	logger zerolog.Logger
}

// NewHub constructs a Hub. Call SetSink before Run.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan outbound, broadcastChannelBuffer),
		stopChan:   make(chan struct{}),
		logger:     logx.Logger().With().Str("component", "hub").Logger(),
	}
}

// SetSink wires the chat pipeline the hub delivers inbound messages to.
func (h *Hub) SetSink(sink MessageSink) {
	h.sinkMu.Lock()
	h.sink = sink
	h.sinkMu.Unlock()
}

func (h *Hub) getSink() MessageSink {
	h.sinkMu.RLock()
	defer h.sinkMu.RUnlock()
	return h.sink
}

// Run is the hub event loop. It must run in its own goroutine; Shutdown
// stops it.
func (h *Hub) Run() {
	h.wg.Add(1)
	defer h.wg.Done()

	for {
		select {
		case client := <-h.register:
			h.clients[client.id] = client
			h.logger.Info().
				Str("conn_id", client.id).
				Int64("uid", client.userID()).
				Int("total_clients", len(h.clients)).
				Msg("Client connected")

		case client := <-h.unregister:
			if _, ok := h.clients[client.id]; ok {
				delete(h.clients, client.id)
				client.stop()
				h.logger.Info().
					Str("conn_id", client.id).
					Int("total_clients", len(h.clients)).
					Msg("Client disconnected")
			}

		case job := <-h.broadcast:
			h.fanout(job)

		case <-h.stopChan:
			for _, client := range h.clients {
				client.stop()
			}
			h.clients = make(map[string]*Client)
			return
		}
	}
}

// fanout delivers one event to the matching clients. Clients whose send
// queue is full are dropped rather than blocked on.
func (h *Hub) fanout(job outbound) {
	messageBytes, err := json.Marshal(job.event)
	if err != nil {
		h.logger.Error().Err(err).Msg("Error marshaling event for broadcast")
		return
	}

	for _, client := range h.clients {
		if job.targetUserID != 0 {
			if client.userID() != job.targetUserID {
				continue
			}
			// the membership is new, extend the subscription before delivery
			if job.membershipChannel != 0 {
				client.channels[job.membershipChannel] = struct{}{}
			}
		} else {
			if client.readOnly {
				if !job.sendAPI {
					continue
				}
			} else if _, ok := client.channels[job.channelID]; !ok {
				continue
			}
		}

		if !client.enqueue(messageBytes) {
			h.logger.Warn().
				Str("conn_id", client.id).
				Msg("Client send queue full, dropping client")
			delete(h.clients, client.id)
			client.stop()
		}
	}
}

// BroadcastChatMessage fans a chat message out to every live subscriber of
// the channel. It implements chat.Broadcaster; sendAPI=false suppresses the
// public read-only feed.
func (h *Hub) BroadcastChatMessage(name, message string, channelID, userID int64, country string, sendAPI bool) {
	event, err := newEvent(EventChatMessage, ChatMessagePayload{
		Name:      name,
		Message:   message,
		ChannelID: channelID,
		UserID:    userID,
		Country:   country,
	})
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to build chat message event")
		return
	}

	h.enqueue(outbound{event: event, channelID: channelID, sendAPI: sendAPI})
}

// ChannelAdded notifies one user's connections of a new channel membership.
// It implements directory.Notifier.
func (h *Hub) ChannelAdded(userID, channelID int64, membership directory.Membership) {
	event, err := newEvent(EventChatChannel, chatChannelPayload(channelID, membership))
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to build chat channel event")
		return
	}

	h.enqueue(outbound{event: event, targetUserID: userID, membershipChannel: channelID})
}

func (h *Hub) enqueue(job outbound) {
	select {
	case h.broadcast <- job:
	case <-h.stopChan:
	default:
		h.logger.Warn().Msg("Hub broadcast channel full, dropping event")
	}
}

// RegisterClient adds a client to the hub and starts its pumps.
func (h *Hub) RegisterClient(client *Client) {
	select {
	case h.register <- client:
	case <-h.stopChan:
		client.stop()
	}
}

// Shutdown stops the Run loop and signals all clients to tear down.
func (h *Hub) Shutdown() {
	close(h.stopChan)
	h.wg.Wait()
	h.logger.Info().Msg("Hub shutdown complete")
}
