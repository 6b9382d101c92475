/*
Package gateway is the realtime surface of the server: it holds every live
connection, decodes request frames, runs the matching handler and fans results out.

This file defines the Hub, which owns the set of live connections. A single Run loop
handles register, unregister and broadcast, so the connection map needs no lock for
writes. When a bus is configured, broadcasts travel through it and come back through
DeliverRemote, which keeps several instances in step.
*/
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"spiderlink/internal/app/bus"
	"spiderlink/internal/pkg/logx"
)

const (
	broadcastChannelBuffer = 1024

	// enqueueTimeout bounds how long a publisher waits for room in a full broadcast queue.
	enqueueTimeout = 2 * time.Second
)

// Errors returned by Publish when a frame cannot be queued for local delivery.
var (
	ErrBroadcastBacklog = errors.New("broadcast queue full")
	ErrHubStopped       = errors.New("hub stopped")
)

// Peer is one live connection as the Hub sees it.
type Peer interface {
	// ID is the connection id.
	ID() string

	// Identity is the user id verified by the session cookie at upgrade time, or "".
	Identity() string

	// Send queues a frame. It returns false when the queue is full or closed.
	Send(frame []byte) bool

	// Kick tells the connection it was replaced and closes it.
	Kick(reason string)

	// Close closes the outbound queue. It is safe to call more than once.
	Close()
}

// Hub fans frames out to every registered Peer.
type Hub struct {
	// peers currently registered, keyed by connection id.
	peers map[string]Peer

	// frames to deliver to every peer.
	broadcast chan []byte

	// peers joining.
	register chan Peer

	// peers leaving.
	unregister chan Peer

	// closed by Stop to end Run.
	stopChan chan struct{}
	stopOnce sync.Once

	// closed when Run has returned.
	done chan struct{}

	// optional cross-instance relay.
	bus bus.Bus

	enqueueTimeout time.Duration

	// mu guards peers for readers outside the Run loop.
	mu sync.RWMutex

	logger zerolog.Logger
}

// NewHub creates a Hub. b may be nil for a single instance.
func NewHub(b bus.Bus) *Hub {
	return &Hub{
		peers:      make(map[string]Peer),
		broadcast:  make(chan []byte, broadcastChannelBuffer),
		register:   make(chan Peer),
		unregister: make(chan Peer),
		stopChan:   make(chan struct{}),
		done:       make(chan struct{}),
		bus:            b,
		enqueueTimeout: enqueueTimeout,
		logger:         logx.Component("hub"),
	}
}

// Run is the Hub's event loop. It returns after Stop.
func (h *Hub) Run() {
	defer func() {
		h.mu.Lock()
		for id, p := range h.peers {
			p.Close()
			delete(h.peers, id)
		}
		h.mu.Unlock()

		close(h.done)
		h.logger.Info().Msg("Hub Run loop finished.")
	}()

	h.logger.Info().Msg("Hub Run loop started.")

	for {
		select {
		case p := <-h.register:
			h.mu.Lock()
			if existing, ok := h.peers[p.ID()]; ok && existing != p {
				existing.Close()
			}
			h.peers[p.ID()] = p
			total := len(h.peers)
			h.mu.Unlock()

			h.logger.Info().Str("conn_id", p.ID()).Int("total_conns", total).Msg("Connection registered.")

		case p := <-h.unregister:
			h.remove(p)

		case frame := <-h.broadcast:
			h.mu.RLock()
			var slow []Peer
			for _, p := range h.peers {
				if !p.Send(frame) {
					slow = append(slow, p)
				}
			}
			h.mu.RUnlock()

			for _, p := range slow {
				h.logger.Warn().Str("conn_id", p.ID()).Msg("Connection send queue full, dropping connection.")
				h.remove(p)
			}

		case <-h.stopChan:
			h.logger.Info().Msg("Hub stop requested.")
			return
		}
	}
}

func (h *Hub) remove(p Peer) {
	h.mu.Lock()
	defer h.mu.Unlock()

	current, ok := h.peers[p.ID()]
	if !ok || current != p {
		return
	}
	delete(h.peers, p.ID())
	p.Close()

	h.logger.Info().Str("conn_id", p.ID()).Int("total_conns", len(h.peers)).Msg("Connection unregistered.")
}

// Register adds p to the fan-out set.
func (h *Hub) Register(p Peer) {
	select {
	case h.register <- p:
	case <-h.stopChan:
		p.Close()
	}
}

// Unregister removes p. Unknown or replaced peers are ignored.
func (h *Hub) Unregister(p Peer) {
	select {
	case h.unregister <- p:
	case <-h.stopChan:
	}
}

// Publish sends event to every connection, through the bus when one is configured.
// If the bus rejects the event it is still delivered to this instance's connections.
// Local delivery fails with ErrBroadcastBacklog when the queue stays full.
func (h *Hub) Publish(ctx context.Context, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	if h.bus != nil {
		if err := h.bus.Publish(ctx, bus.Event{Name: event, Data: data}); err != nil {
			h.logger.Error().Err(err).Str("event", event).Msg("Bus publish failed, delivering locally only.")
			return errors.Join(err, h.deliver(event, data))
		}
		return nil
	}

	return h.deliver(event, data)
}

// DeliverRemote hands an event received from the bus to local connections.
func (h *Hub) DeliverRemote(ev bus.Event) {
	if err := h.deliver(ev.Name, ev.Data); err != nil {
		h.logger.Error().Err(err).Str("event", ev.Name).Msg("Remote event lost.")
	}
}

func (h *Hub) deliver(event string, data json.RawMessage) error {
	frame, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		h.logger.Error().Err(err).Str("event", event).Msg("Failed to encode broadcast frame.")
		return err
	}
	return h.enqueue(frame)
}

func (h *Hub) enqueue(frame []byte) error {
	select {
	case h.broadcast <- frame:
		return nil
	case <-h.stopChan:
		return ErrHubStopped
	default:
	}

	timer := time.NewTimer(h.enqueueTimeout)
	defer timer.Stop()

	select {
	case h.broadcast <- frame:
		return nil
	case <-h.stopChan:
		return ErrHubStopped
	case <-timer.C:
		return ErrBroadcastBacklog
	}
}

// SendTo queues a frame for a single connection.
func (h *Hub) SendTo(connID, event string, payload any) bool {
	h.mu.RLock()
	p, ok := h.peers[connID]
	h.mu.RUnlock()
	if !ok {
		return false
	}

	frame, err := Encode(event, "", payload)
	if err != nil {
		h.logger.Error().Err(err).Str("event", event).Msg("Failed to encode direct frame.")
		return false
	}
	return p.Send(frame)
}

// Kick closes the connection connID after telling it why.
func (h *Hub) Kick(connID, reason string) {
	h.mu.RLock()
	p, ok := h.peers[connID]
	h.mu.RUnlock()

	if !ok {
		h.logger.Debug().Str("conn_id", connID).Msg("Kick for unknown connection ignored.")
		return
	}
	p.Kick(reason)
}

// Len returns the number of registered connections.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.peers)
}

// Stop ends Run and waits for it to close every connection's queue. Run must have
// been started.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.stopChan) })
	<-h.done
}
