package server

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrRoomFull is returned by Join when the room already holds two occupants.
var ErrRoomFull = errors.New("room is full")

// Room is a rendezvous point for exactly two peers. Occupants are kept in
// insertion order so notification fan-out is deterministic.
type Room struct {
	ID        string
	CreatedAt time.Time

	occupants []string
}

type occupant struct {
	id     string
	roomID string
}

// Registry owns all room and occupant state. Every mutation happens under a
// single mutex so the capacity check and the insertion in Join are one
// indivisible step.
type Registry struct {
	mu    sync.Mutex
	rooms map[string]*Room
	users map[string]*occupant
	log   zerolog.Logger
}

// Stats is a point-in-time snapshot for the /stats endpoint.
type Stats struct {
	Rooms     int `json:"totalRooms"`
	Occupants int `json:"totalUsers"`
}

func NewRegistry(log zerolog.Logger) *Registry {
	return &Registry{
		rooms: make(map[string]*Room),
		users: make(map[string]*occupant),
		log:   log,
	}
}

// Join places userID into roomID, creating the room on first join.
//
// It returns the ids of the occupants that were already present, plus the id
// of any previous room the user was removed from (so the caller can notify
// that room's remaining occupant). On ErrRoomFull no state has changed.
func (r *Registry) Join(userID, roomID string) (others []string, vacated string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if u, ok := r.users[userID]; ok && u.roomID == roomID {
		// Re-joining the current room is a no-op.
		return r.othersLocked(roomID, userID), "", nil
	}

	room, ok := r.rooms[roomID]
	if ok && len(room.occupants) >= 2 {
		return nil, "", ErrRoomFull
	}

	// A user belongs to at most one room; switching rooms leaves the old
	// one first, which may destroy it.
	if u, ok := r.users[userID]; ok && u.roomID != "" {
		vacated = u.roomID
		r.leaveLocked(userID)
	}

	if room == nil {
		room = &Room{ID: roomID, CreatedAt: time.Now()}
		r.rooms[roomID] = room
		r.log.Debug().Str("room", roomID).Msg("room created")
	}

	others = append([]string(nil), room.occupants...)
	room.occupants = append(room.occupants, userID)
	r.users[userID] = &occupant{id: userID, roomID: roomID}

	return others, vacated, nil
}

// Leave removes userID from whatever room it occupies. It reports the room
// that was vacated, and is a no-op for users that are in no room.
func (r *Registry) Leave(userID string) (roomID string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, found := r.users[userID]
	if !found || u.roomID == "" {
		return "", false
	}
	roomID = u.roomID
	r.leaveLocked(userID)
	return roomID, true
}

// leaveLocked removes the user and garbage-collects its room if it became
// empty. Callers must hold r.mu.
func (r *Registry) leaveLocked(userID string) {
	u, ok := r.users[userID]
	if !ok {
		return
	}
	if room, ok := r.rooms[u.roomID]; ok {
		for i, id := range room.occupants {
			if id == userID {
				room.occupants = append(room.occupants[:i], room.occupants[i+1:]...)
				break
			}
		}
		if len(room.occupants) == 0 {
			delete(r.rooms, room.ID)
			r.log.Debug().Str("room", room.ID).Msg("room destroyed")
		}
	}
	delete(r.users, userID)
}

// OccupantsOf returns the occupants of roomID in insertion order. It returns
// nil for unknown rooms.
func (r *Registry) OccupantsOf(roomID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return nil
	}
	return append([]string(nil), room.occupants...)
}

// RoomOf reports which room userID currently occupies, if any.
func (r *Registry) RoomOf(userID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[userID]
	if !ok || u.roomID == "" {
		return "", false
	}
	return u.roomID, true
}

func (r *Registry) othersLocked(roomID, userID string) []string {
	room, ok := r.rooms[roomID]
	if !ok {
		return nil
	}
	var others []string
	for _, id := range room.occupants {
		if id != userID {
			others = append(others, id)
		}
	}
	return others
}

// Stats reports room and occupant counts. Observability only.
func (r *Registry) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Stats{Rooms: len(r.rooms), Occupants: len(r.users)}
}
