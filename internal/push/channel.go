package push

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Config holds configuration for the push channel connection.
type Config struct {
	URL              string
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	ReadTimeout      time.Duration
	PingInterval     time.Duration
	ReconnectWait    time.Duration
	MaxMessageSize   int64
	SendBuffer       int
	RecvBuffer       int
}

// DefaultConfig returns the default push channel configuration.
func DefaultConfig(url string) Config {
	return Config{
		URL:              url,
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     10 * time.Second,
		ReadTimeout:      60 * time.Second,
		PingInterval:     30 * time.Second,
		ReconnectWait:    2 * time.Second,
		MaxMessageSize:   64 * 1024,
		SendBuffer:       64,
		RecvBuffer:       256,
	}
}

// Channel is the client side of the classroom push channel. It dials the
// server, keeps the socket alive, and reconnects forever with a fixed
// wait, so consumers register their subscription exactly once: the
// Events channel survives reconnects and delivery simply resumes.
type Channel struct {
	config Config

	events chan Event
	states chan bool
	send   chan Event

	connected atomic.Bool
	done      chan struct{}
	startOnce sync.Once
	closeOnce sync.Once
}

// NewChannel creates a channel; nothing is dialed until Connect.
func NewChannel(config Config) *Channel {
	return &Channel{
		config: config,
		events: make(chan Event, config.RecvBuffer),
		states: make(chan bool, 16),
		send:   make(chan Event, config.SendBuffer),
		done:   make(chan struct{}),
	}
}

// Connect starts the connection loop. Safe to call once; subsequent
// calls are no-ops.
func (c *Channel) Connect() {
	c.startOnce.Do(func() {
		go c.run()
	})
}

// Close tears the channel down for process exit.
func (c *Channel) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
	})
	return nil
}

// Events returns the stream of inbound push events. Registered once;
// reconnects do not invalidate it.
func (c *Channel) Events() <-chan Event {
	return c.events
}

// StateChanges reports connectivity transitions (true on connect, false
// on disconnect).
func (c *Channel) StateChanges() <-chan bool {
	return c.states
}

// IsConnected reports whether the socket is currently up.
func (c *Channel) IsConnected() bool {
	return c.connected.Load()
}

// Emit queues an outbound event. Events queued while disconnected are
// flushed once the socket comes back.
func (c *Channel) Emit(event Event) error {
	select {
	case <-c.done:
		return fmt.Errorf("push channel closed")
	case c.send <- event:
		return nil
	default:
		return fmt.Errorf("push channel send buffer full, dropping %s", event.Type)
	}
}

// run dials and services the socket until Close, reconnecting forever
// with a fixed wait, mirroring the transport-level reconnect policy the
// engine relies on instead of its own backoff logic.
func (c *Channel) run() {
	for {
		select {
		case <-c.done:
			return
		default:
		}

		dialer := websocket.Dialer{HandshakeTimeout: c.config.HandshakeTimeout}
		conn, _, err := dialer.Dial(c.config.URL, nil)
		if err != nil {
			log.Warn().Err(err).Str("url", c.config.URL).Msg("push channel dial failed")
			if !c.wait() {
				return
			}
			continue
		}

		c.setConnected(true)
		log.Info().Str("url", c.config.URL).Msg("push channel connected")

		stop := make(chan struct{})
		go c.watchClose(conn, stop)
		go c.writePump(conn, stop)
		c.readLoop(conn)

		close(stop)
		conn.Close()
		c.setConnected(false)
		log.Info().Msg("push channel disconnected")

		if !c.wait() {
			return
		}
	}
}

// wait sleeps the reconnect interval; false means the channel closed.
func (c *Channel) wait() bool {
	select {
	case <-c.done:
		return false
	case <-time.After(c.config.ReconnectWait):
		return true
	}
}

// watchClose force-closes the connection when the channel shuts down so
// readLoop does not linger on its read deadline.
func (c *Channel) watchClose(conn *websocket.Conn, stop chan struct{}) {
	select {
	case <-c.done:
		conn.Close()
	case <-stop:
	}
}

func (c *Channel) setConnected(connected bool) {
	c.connected.Store(connected)
	select {
	case c.states <- connected:
	default:
		log.Warn().Bool("connected", connected).Msg("connectivity buffer full, dropping transition")
	}
}

// readLoop reads events off the socket until it breaks.
func (c *Channel) readLoop(conn *websocket.Conn) {
	conn.SetReadLimit(c.config.MaxMessageSize)
	conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
		return nil
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Msg("unexpected push channel close")
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))

		var event Event
		if err := json.Unmarshal(message, &event); err != nil {
			log.Error().Err(err).Msg("failed to decode push event, dropping")
			continue
		}

		select {
		case c.events <- event:
		default:
			log.Warn().Str("event_type", string(event.Type)).Msg("event buffer full, dropping event")
		}
	}
}

// writePump sends queued events and keeps the connection alive with
// pings. A write failure ends the pump; the read side notices the broken
// socket and triggers the reconnect.
func (c *Channel) writePump(conn *websocket.Conn, stop chan struct{}) {
	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case event := <-c.send:
			data, err := json.Marshal(event)
			if err != nil {
				log.Error().Err(err).Str("event_type", string(event.Type)).Msg("failed to marshal outbound event")
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("event_type", string(event.Type)).Msg("failed to write push event")
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Error().Err(err).Msg("failed to send ping")
				return
			}
		}
	}
}
