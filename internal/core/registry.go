// Package core holds the room registry, the connection directory and the
// broadcast router — the shared mutable state of the relay. Everything here
// is threadsafe; cross-table consistency is the app coordinator's job.
package core

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dchirkin/relay/internal/domain"
)

// roomState pairs room metadata with its member set. Membership is an
// ordered set: join order is preserved, duplicates are impossible.
type roomState struct {
	meta    *domain.Room
	members []domain.Identity
}

// RoomSnapshot is a read-only copy of one room for listings and responses.
// It never aliases registry-internal slices.
type RoomSnapshot struct {
	Room    domain.Room
	Members []domain.Identity
}

// Registry owns every room. Rooms are visible from creation until explicit
// eviction; duplicate names are legal and disambiguated by id.
type Registry struct {
	mu    sync.RWMutex
	rooms map[domain.RoomID]*roomState
	order []domain.RoomID
}

func NewRegistry() *Registry {
	return &Registry{rooms: make(map[domain.RoomID]*roomState)}
}

// Create inserts a new room and returns it. It fails only on invalid
// metadata; name collisions are allowed.
func (r *Registry) Create(owner domain.Identity, name string, capacity int, password string) (*domain.Room, error) {
	room, err := domain.NewRoom(owner, name, capacity, password)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.rooms[room.ID] = &roomState{meta: room}
	r.order = append(r.order, room.ID)
	r.mu.Unlock()

	log.Info().Str("module", "core.registry").Str("room", string(room.ID)).Str("name", name).Int("capacity", capacity).Msg("room created")
	return room, nil
}

// Get returns the room metadata for id.
func (r *Registry) Get(id domain.RoomID) (*domain.Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	st, ok := r.rooms[id]
	if !ok {
		return nil, false
	}
	return st.meta, true
}

// List snapshots all rooms in creation order, member lists included.
func (r *Registry) List() []RoomSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]RoomSnapshot, 0, len(r.order))
	for _, id := range r.order {
		st, ok := r.rooms[id]
		if !ok {
			continue
		}
		out = append(out, st.snapshot())
	}
	return out
}

// Snapshot returns a copy of one room with its member list.
func (r *Registry) Snapshot(id domain.RoomID) (RoomSnapshot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	st, ok := r.rooms[id]
	if !ok {
		return RoomSnapshot{}, false
	}
	return st.snapshot(), true
}

// Join adds who to the room. The capacity check is atomic with the append.
// Joining a room you are already in is a no-op.
func (r *Registry) Join(id domain.RoomID, who domain.Identity, password string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.rooms[id]
	if !ok {
		return ErrUnknownRoom
	}
	if st.meta.Protected() && password != st.meta.Password {
		return ErrBadPassword
	}
	if st.has(who) {
		return nil
	}
	if len(st.members) >= st.meta.Capacity {
		return ErrRoomFull
	}
	st.members = append(st.members, who)

	log.Info().Str("module", "core.registry").Str("room", string(id)).Str("who", who.String()).Int("members", len(st.members)).Msg("member joined")
	return nil
}

// Leave removes who from the room's member set.
func (r *Registry) Leave(id domain.RoomID, who domain.Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.rooms[id]
	if !ok {
		return ErrUnknownRoom
	}
	for i, m := range st.members {
		if m == who {
			st.members = append(st.members[:i], st.members[i+1:]...)
			log.Info().Str("module", "core.registry").Str("room", string(id)).Str("who", who.String()).Int("members", len(st.members)).Msg("member left")
			return nil
		}
	}
	return ErrNotMember
}

// Members returns a copy of the room's member list.
func (r *Registry) Members(id domain.RoomID) ([]domain.Identity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	st, ok := r.rooms[id]
	if !ok {
		return nil, false
	}
	out := make([]domain.Identity, len(st.members))
	copy(out, st.members)
	return out, true
}

func (r *Registry) MemberCount(id domain.RoomID) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if st, ok := r.rooms[id]; ok {
		return len(st.members)
	}
	return 0
}

// Evict removes a room from the registry. Used by the empty-room retention
// policy; nothing in the protocol deletes rooms directly.
func (r *Registry) Evict(id domain.RoomID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rooms[id]; !ok {
		return
	}
	delete(r.rooms, id)
	for i, rid := range r.order {
		if rid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	log.Info().Str("module", "core.registry").Str("room", string(id)).Msg("room evicted")
}

func (st *roomState) has(who domain.Identity) bool {
	for _, m := range st.members {
		if m == who {
			return true
		}
	}
	return false
}

func (st *roomState) snapshot() RoomSnapshot {
	members := make([]domain.Identity, len(st.members))
	copy(members, st.members)
	return RoomSnapshot{Room: *st.meta, Members: members}
}
