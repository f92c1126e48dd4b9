// Package app wires connections to rooms: it owns the connection registry,
// fans room events out to transports and relays peer signaling payloads.
package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/keremar/watchroom/internal/core"
	"github.com/keremar/watchroom/internal/domain"
)

// Frame is an encoded outbound protocol message.
type Frame []byte

// Conn abstracts the transport endpoint. Owned by the adapter; the adapter
// must Close() it.
type Conn interface {
	TrySend(Frame) error
	Close()
}

type binding struct {
	conn        Conn
	roomID      domain.RoomID
	displayName string
	connectedAt time.Time
	lastSeen    time.Time
}

// Hub maps live connection ids to transports and their optional room
// binding. It is the only component touched by every room's traffic.
type Hub struct {
	mu       sync.RWMutex
	conns    map[domain.ConnectionID]*binding
	draining bool
	now      func() time.Time
}

type HubOption func(*Hub)

func WithHubClock(now func() time.Time) HubOption {
	return func(h *Hub) { h.now = now }
}

func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		conns: make(map[domain.ConnectionID]*binding),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register tracks a freshly upgraded connection, not yet in any room.
func (h *Hub) Register(id domain.ConnectionID, conn Conn) {
	now := h.now()
	h.mu.Lock()
	h.conns[id] = &binding{conn: conn, connectedAt: now, lastSeen: now}
	h.mu.Unlock()
	log.Info().Str("module", "app.hub").Str("conn", string(id)).Msg("connection registered")
}

// Bind attaches a connection to a room under a display name.
func (h *Hub) Bind(id domain.ConnectionID, roomID domain.RoomID, displayName string) {
	h.mu.Lock()
	if b, ok := h.conns[id]; ok {
		b.roomID = roomID
		b.displayName = displayName
	}
	h.mu.Unlock()
	log.Info().Str("module", "app.hub").Str("conn", string(id)).Str("room", string(roomID)).Msg("connection bound")
}

// Unregister removes the connection and returns its room binding, if any.
// Safe under duplicate teardown signals: only the first caller gets the
// binding back, so Leave runs exactly once.
func (h *Hub) Unregister(id domain.ConnectionID) (domain.RoomID, bool) {
	h.mu.Lock()
	b, ok := h.conns[id]
	if ok {
		delete(h.conns, id)
	}
	h.mu.Unlock()
	if !ok {
		return "", false
	}
	log.Info().Str("module", "app.hub").Str("conn", string(id)).Msg("connection unregistered")
	return b.roomID, b.roomID != ""
}

// Touch refreshes the connection's liveness timestamp.
func (h *Hub) Touch(id domain.ConnectionID) {
	h.mu.Lock()
	if b, ok := h.conns[id]; ok {
		b.lastSeen = h.now()
	}
	h.mu.Unlock()
}

// DisplayName reports the name the connection joined under, if bound.
func (h *Hub) DisplayName(id domain.ConnectionID) string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if b, ok := h.conns[id]; ok {
		return b.displayName
	}
	return ""
}

// IsLive reports whether the connection is currently registered.
func (h *Hub) IsLive(id domain.ConnectionID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.conns[id]
	return ok
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Send delivers one event to one connection. Missing or slow connections
// drop the event silently; liveness is the heartbeat's job.
func (h *Hub) Send(id domain.ConnectionID, ev core.Event) {
	frame, err := EncodeEvent(ev)
	if err != nil {
		log.Error().Err(err).Str("module", "app.hub").Str("kind", ev.Kind()).Msg("encode event")
		return
	}
	h.mu.RLock()
	b, ok := h.conns[id]
	h.mu.RUnlock()
	if !ok {
		return
	}
	if err := b.conn.TrySend(frame); err != nil {
		log.Warn().Err(err).Str("module", "app.hub").Str("conn", string(id)).Str("kind", ev.Kind()).Msg("send dropped")
	}
}

// Deliver fans one room-scoped delivery out to member connections.
// The frame is encoded once per delivery.
func (h *Hub) Deliver(roomID domain.RoomID, d core.Delivery) {
	if d.Target != "" {
		h.Send(d.Target, d.Event)
		return
	}

	frame, err := EncodeEvent(d.Event)
	if err != nil {
		log.Error().Err(err).Str("module", "app.hub").Str("kind", d.Event.Kind()).Msg("encode event")
		return
	}

	h.mu.RLock()
	targets := make([]*binding, 0, len(h.conns))
	ids := make([]domain.ConnectionID, 0, len(h.conns))
	for id, b := range h.conns {
		if b.roomID != roomID || id == d.Exclude {
			continue
		}
		targets = append(targets, b)
		ids = append(ids, id)
	}
	h.mu.RUnlock()

	for i, b := range targets {
		if err := b.conn.TrySend(frame); err != nil {
			log.Warn().Err(err).Str("module", "app.hub").Str("conn", string(ids[i])).Str("kind", d.Event.Kind()).Msg("broadcast send dropped")
		}
	}
}

// BroadcastAll sends an event to every live connection regardless of room.
// Used for the shutdown notice.
func (h *Hub) BroadcastAll(ev core.Event) {
	frame, err := EncodeEvent(ev)
	if err != nil {
		log.Error().Err(err).Str("module", "app.hub").Str("kind", ev.Kind()).Msg("encode event")
		return
	}
	h.mu.RLock()
	targets := make([]*binding, 0, len(h.conns))
	for _, b := range h.conns {
		targets = append(targets, b)
	}
	h.mu.RUnlock()

	for _, b := range targets {
		_ = b.conn.TrySend(frame)
	}
}

// SetDraining flips the hub into shutdown mode: no new joins are accepted.
func (h *Hub) SetDraining() {
	h.mu.Lock()
	h.draining = true
	h.mu.Unlock()
}

func (h *Hub) Draining() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.draining
}

// CloseAll closes every live transport. Read pumps observe the close and
// run their normal teardown.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	targets := make([]*binding, 0, len(h.conns))
	for _, b := range h.conns {
		targets = append(targets, b)
	}
	h.mu.RUnlock()
	for _, b := range targets {
		b.conn.Close()
	}
}

// CullIdle closes connections silent past maxIdle. Teardown then flows
// through the read pump like any other disconnect.
func (h *Hub) CullIdle(maxIdle time.Duration) int {
	cutoff := h.now().Add(-maxIdle)

	h.mu.RLock()
	var stale []*binding
	var ids []domain.ConnectionID
	for id, b := range h.conns {
		if b.lastSeen.Before(cutoff) {
			stale = append(stale, b)
			ids = append(ids, id)
		}
	}
	h.mu.RUnlock()

	for i, b := range stale {
		log.Warn().Str("module", "app.hub").Str("conn", string(ids[i])).Msg("closing idle connection")
		b.conn.Close()
	}
	return len(stale)
}

// EncodeEvent wraps an event into the wire envelope {"type": kind, ...}.
func EncodeEvent(ev core.Event) (Frame, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("marshal %s event: %w", ev.Kind(), err)
	}
	head := fmt.Sprintf(`{"type":%q`, ev.Kind())
	if bytes.Equal(payload, []byte("{}")) {
		return Frame(head + "}"), nil
	}
	var buf bytes.Buffer
	buf.Grow(len(head) + 1 + len(payload))
	buf.WriteString(head)
	buf.WriteByte(',')
	buf.Write(payload[1:])
	return buf.Bytes(), nil
}
