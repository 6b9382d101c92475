package gateway

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"spiderlink/internal/pkg/errs"
	"spiderlink/internal/pkg/logx"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of a frame sent by the client.
	maxMessageSize = 16 * 1024

	// size of the per-connection outbound queue.
	sendQueueSize = 256

	// RequestTimeout bounds one request. It is not tied to the connection, so a
	// disconnect does not cancel work already started.
	RequestTimeout = 10 * time.Second

	// WsCloseCodeSessionKicked is a custom WebSocket Close Code (4000-4999 range)
	// used to signal the client that the session was replaced by a new connection.
	WsCloseCodeSessionKicked = 4001
)

// Dispatcher runs requests for a connection and releases its session on close.
type Dispatcher interface {
	Dispatch(ctx context.Context, p Peer, raw []byte)
	Disconnect(ctx context.Context, p Peer)
}

// Client is one WebSocket connection. ReadPump handles its requests one at a time,
// in arrival order; WritePump owns all writes to the socket.
type Client struct {
	id       string
	identity string

	// underlying WebSocket connection object.
	conn *websocket.Conn

	hub        *Hub
	dispatcher Dispatcher

	// a buffered channel used to queue frames waiting to be sent to the client.
	send chan []byte

	// receives the reason when the connection is superseded.
	kick chan string

	// mu guards closed so Send never writes to a closed queue.
	mu     sync.Mutex
	closed bool

	// structured logger with connection context.
	logger zerolog.Logger
}

// NewClient wraps an upgraded connection. identity is the verified user id from the
// session cookie, or "".
func NewClient(id, identity string, conn *websocket.Conn, hub *Hub, dispatcher Dispatcher) *Client {
	return &Client{
		id:         id,
		identity:   identity,
		conn:       conn,
		hub:        hub,
		dispatcher: dispatcher,
		send:       make(chan []byte, sendQueueSize),
		kick:       make(chan string, 1),
		logger: logx.Logger().With().
			Str("conn_id", id).
			Str("identity", identity).
			Logger(),
	}
}

func (c *Client) ID() string       { return c.id }
func (c *Client) Identity() string { return c.identity }

// Send queues a frame without blocking.
func (c *Client) Send(frame []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}

	select {
	case c.send <- frame:
		return true
	default:
		c.logger.Warn().Int("queue_len", len(c.send)).Msg("Client send channel full, dropping frame")
		return false
	}
}

// Close closes the outbound queue; WritePump then sends a close frame and exits.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// Kick queues a force_disconnect frame and asks WritePump to close the connection
// with code 4001 once the queue is flushed.
func (c *Client) Kick(reason string) {
	c.logger.Warn().
		Int("close_code", WsCloseCodeSessionKicked).
		Str("reason", reason).
		Msg("Kicking superseded connection.")

	if frame, err := Encode(EventForceDisconnect, "", forceDisconnectPayload{Reason: reason, Code: errs.ErrSessionKicked}); err == nil {
		c.Send(frame)
	}

	select {
	case c.kick <- reason:
	default:
	}
}

// ReadPump reads request frames until the connection fails, then releases the
// connection's session and registration.
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
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Error reading message (Client close/going away)")
			}
			break
		}

		c.handle(frame)
	}
}

func (c *Client) handle(frame []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), RequestTimeout)
	defer cancel()

	c.dispatcher.Dispatch(ctx, c, frame)
}

// cleanupOnDisconnect handles the necessary cleanup steps when ReadPump terminates.
func (c *Client) cleanupOnDisconnect() {
	c.logger.Info().Msg("Client connection cleanup starting.")

	ctx, cancel := context.WithTimeout(context.Background(), RequestTimeout)
	defer cancel()

	c.dispatcher.Disconnect(ctx, c)
	c.hub.Unregister(c)
	c.Close()

	if err := c.conn.Close(); err != nil {
		c.logger.Debug().Err(err).Msg("Client connection close error")
	}
}

// WritePump writes queued frames and periodic pings to the connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()

		// ensure the connection is closed on exit
		if err := c.conn.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Client connection close error in WritePump")
		}
	}()

	for {
		select {
		case frame, ok := <-c.send:
			if !c.writeQueuedMessage(frame, ok) {
				return
			}

		case reason := <-c.kick:
			c.flushQueue()
			c.writeClose(WsCloseCodeSessionKicked, reason)
			return

		case <-ticker.C:
			if !c.writePingMessage() {
				return
			}
		}
	}
}

// writeQueuedMessage writes one frame pulled from the send channel.
// Returns true if the WritePump loop should continue, false if it should terminate.
func (c *Client) writeQueuedMessage(frame []byte, ok bool) bool {
	if !ok {
		c.writeClose(websocket.CloseNormalClosure, "")
		return false
	}

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		c.logger.Error().Err(err).Msg("Error writing message")
		return false
	}

	return true
}

// flushQueue writes whatever is already queued, without waiting for more.
func (c *Client) flushQueue() {
	for {
		select {
		case frame, ok := <-c.send:
			if !ok || !c.writeQueuedMessage(frame, true) {
				return
			}
		default:
			return
		}
	}
}

func (c *Client) writeClose(code int, reason string) {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))

	msg := websocket.FormatCloseMessage(code, reason)
	if err := c.conn.WriteMessage(websocket.CloseMessage, msg); err != nil {
		c.logger.Debug().Err(err).Int("close_code", code).Msg("Failed to write close message")
	}
}

// writePingMessage sends a periodic WebSocket Ping message to maintain the connection heartbeat.
// Returns false if the WritePump loop should terminate due to write failure.
func (c *Client) writePingMessage() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline on ping")
		return false
	}

	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.logger.Error().Err(err).Msg("Error writing ping")
		return false
	}

	return true
}
