package core

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/keremar/watchroom/internal/domain"
)

// RoomCodeLen is the length of a generated room code.
const RoomCodeLen = 8

// Registry owns the collection of live rooms. Lookups are concurrent-safe;
// room-internal state is never touched here.
type Registry struct {
	mu    sync.RWMutex
	rooms map[domain.RoomID]*Room

	idleTimeout time.Duration
	roomOpts    []RoomOption
	now         func() time.Time
}

type RegistryOption func(*Registry)

// WithIdleTimeout overrides how long an empty room survives before the
// sweep may delete it.
func WithIdleTimeout(d time.Duration) RegistryOption {
	return func(r *Registry) { r.idleTimeout = d }
}

// WithRoomOptions sets the options applied to every room the registry
// creates.
func WithRoomOptions(opts ...RoomOption) RegistryOption {
	return func(r *Registry) { r.roomOpts = opts }
}

// WithRegistryClock injects the wall clock, for tests.
func WithRegistryClock(now func() time.Time) RegistryOption {
	return func(r *Registry) { r.now = now }
}

func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		rooms:       make(map[domain.RoomID]*Room),
		idleTimeout: 5 * time.Minute,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// canonical upper-cases a room id so lookups are case-insensitive.
func canonical(id domain.RoomID) domain.RoomID {
	return domain.RoomID(strings.ToUpper(strings.TrimSpace(string(id))))
}

// CreateRoom reserves a fresh room under a generated code, distinct from
// every live room id.
func (reg *Registry) CreateRoom() *Room {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	var id domain.RoomID
	for {
		id = domain.RoomID(strings.ToUpper(uuid.NewString()[:RoomCodeLen]))
		if _, taken := reg.rooms[id]; !taken {
			break
		}
	}
	room := reg.newRoomLocked(id)
	log.Info().Str("module", "core.registry").Str("room", string(id)).Msg("room created")
	return room
}

// GetOrCreate returns the room for the id, creating an empty one if
// unknown — joining an unknown code is equivalent to creating it.
// The room's activity clock is refreshed while the registry lock is
// held, so a sweep running concurrently cannot evict the room between
// resolution here and the Join that follows: its re-check under the
// write lock sees the room as active.
func (reg *Registry) GetOrCreate(id domain.RoomID) *Room {
	id = canonical(id)

	reg.mu.RLock()
	room, ok := reg.rooms[id]
	if ok {
		room.markActive()
	}
	reg.mu.RUnlock()
	if ok {
		return room
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()
	if room, ok = reg.rooms[id]; ok {
		room.markActive()
		return room
	}
	room = reg.newRoomLocked(id)
	log.Info().Str("module", "core.registry").Str("room", string(id)).Msg("room created on join")
	return room
}

// Lookup finds a live room without creating one.
func (reg *Registry) Lookup(id domain.RoomID) (*Room, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	room, ok := reg.rooms[canonical(id)]
	return room, ok
}

func (reg *Registry) Count() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.rooms)
}

// Sweep deletes rooms that have sat empty past the idle timeout. Returns
// how many were removed.
func (reg *Registry) Sweep() int {
	cutoff := reg.now().Add(-reg.idleTimeout)

	reg.mu.RLock()
	var stale []domain.RoomID
	for id, room := range reg.rooms {
		if room.idleEmptySince(cutoff) {
			stale = append(stale, id)
		}
	}
	reg.mu.RUnlock()

	if len(stale) == 0 {
		return 0
	}

	reg.mu.Lock()
	removed := 0
	for _, id := range stale {
		// Re-check under the write lock; someone may have joined since.
		if room, ok := reg.rooms[id]; ok && room.idleEmptySince(cutoff) {
			delete(reg.rooms, id)
			removed++
		}
	}
	reg.mu.Unlock()

	if removed > 0 {
		log.Info().Str("module", "core.registry").Int("removed", removed).Msg("idle rooms swept")
	}
	return removed
}

func (reg *Registry) newRoomLocked(id domain.RoomID) *Room {
	opts := reg.roomOpts
	if reg.now != nil {
		opts = append(append([]RoomOption{}, opts...), WithClock(reg.now))
	}
	room := NewRoom(id, opts...)
	reg.rooms[id] = room
	return room
}
