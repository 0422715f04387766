package socket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/equwal/pixelplanet/internal/app/user"
	"github.com/equwal/pixelplanet/internal/pkg/logx"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of a frame sent by the client.
	maxMessageSize = 2048
)

// Client is one live websocket connection. A read-only client has no user
// and only receives the public feed.
type Client struct {
	id   string
	hub  *Hub
	conn *websocket.Conn

	// user is the session principal; nil for read-only feed clients. The
	// rate limiter and flood counter on it are mutated only by this
	// connection's ReadPump goroutine.
	user *user.User

	// channels is the set of channel ids this connection is subscribed to.
	// Only the hub Run loop touches it after construction.
	channels map[int64]struct{}

	readOnly bool

	// send queues outgoing frames. It is never closed; the hub and ReadPump
	// both write to it concurrently, so teardown is signalled through done
	// instead.
	send chan []byte

	// done is closed exactly once to stop WritePump and make all further
	// queued sends no-ops.
	done      chan struct{}
	closeOnce sync.Once

	logger zerolog.Logger
}

// NewClient builds a client for an authenticated principal subscribed to the
// given channels.
func NewClient(hub *Hub, conn *websocket.Conn, u *user.User, channels map[int64]struct{}) *Client {
	id := uuid.NewString()

	return &Client{
		id:       id,
		hub:      hub,
		conn:     conn,
		user:     u,
		channels: channels,
		send:     make(chan []byte, 256),
		done:     make(chan struct{}),
		logger: logx.Logger().With().
			Str("conn_id", id).
			Int64("uid", u.ID).
			Logger(),
	}
}

// NewFeedClient builds a read-only client for the public feed. It receives
// every broadcast not flagged api-invisible and may not send.
func NewFeedClient(hub *Hub, conn *websocket.Conn) *Client {
	id := uuid.NewString()

	return &Client{
		id:       id,
		hub:      hub,
		conn:     conn,
		readOnly: true,
		send:     make(chan []byte, 256),
		done:     make(chan struct{}),
		logger: logx.Logger().With().
			Str("conn_id", id).
			Bool("read_only", true).
			Logger(),
	}
}

func (c *Client) userID() int64 {
	if c.user == nil {
		return 0
	}
	return c.user.ID
}

// stop signals teardown. Safe to call from any goroutine, any number of
// times; queued and future sends to this client are dropped.
func (c *Client) stop() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// enqueue queues one frame for WritePump, dropping it when the client is
// stopped or its queue is full.
func (c *Client) enqueue(messageBytes []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- messageBytes:
		return true
	case <-c.done:
		return false
	default:
		return false
	}
}

// ReadPump reads frames from the connection and feeds chat messages into the
// pipeline. It handles heartbeats and performs cleanup on connection close.
func (c *Client) ReadPump() {
	defer c.cleanupOnDisconnect()

	c.conn.SetReadLimit(maxMessageSize)

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, messageBytes, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Error reading message (client close/going away)")
			}
			break
		}

		c.processInbound(messageBytes)
	}
}

func (c *Client) cleanupOnDisconnect() {
	select {
	case c.hub.unregister <- c:
	case <-c.hub.stopChan:
	}

	if err := c.conn.Close(); err != nil {
		c.logger.Debug().Err(err).Msg("Client connection close error")
	}
}

// processInbound parses one frame and routes chat messages into the pipeline.
// Moderation rejections and infrastructure failures both come back to this
// connection only, as error events.
func (c *Client) processInbound(messageBytes []byte) {
	if c.readOnly {
		return
	}

	var event Event
	if err := json.Unmarshal(messageBytes, &event); err != nil {
		c.logger.Warn().Err(err).Msg("Client sent invalid JSON")
		return
	}

	if event.Type != EventChatMessage {
		c.logger.Warn().Str("event_type", string(event.Type)).Msg("Client sent unsupported event type")
		return
	}

	var payload InboundMessagePayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		c.logger.Warn().Err(err).Msg("Client sent invalid chat message payload")
		return
	}

	sink := c.hub.getSink()
	if sink == nil {
		c.logger.Error().Msg("Hub has no message sink wired")
		return
	}

	reject, err := sink.SendMessage(context.Background(), c.user, payload.Message, payload.ChannelID)
	if err != nil {
		c.logger.Error().Err(err).Msg("Chat pipeline failure")
		c.sendError("Couldn't send your message, please try again later")
		return
	}
	if reject != "" {
		c.sendError(reject)
	}
}

// sendError queues a user-facing error event on this connection.
func (c *Client) sendError(message string) {
	event, err := newEvent(EventError, ErrorPayload{Message: message})
	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to build error event")
		return
	}

	messageBytes, err := json.Marshal(event)
	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to marshal error event")
		return
	}

	if !c.enqueue(messageBytes) {
		c.logger.Warn().Msg("Client stopped or send queue full, dropping error event")
	}
}

// WritePump writes queued frames to the connection and keeps the heartbeat.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()

		if err := c.conn.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Client connection close error in WritePump")
		}
	}()

	for {
		select {
		case <-c.done:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error().Err(err).Msg("Failed to set write deadline")
				return
			}

			if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
				c.logger.Debug().Err(err).Msg("Error writing close message")
			}
			return

		case message := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error().Err(err).Msg("Failed to set write deadline")
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Debug().Err(err).Msg("Error writing message")
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error().Err(err).Msg("Failed to set write deadline on ping")
				return
			}

			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Debug().Err(err).Msg("Error writing ping")
				return
			}
		}
	}
}
