package main

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

const maxRooms = 100

// Room binds one game engine to its tick loop. The loop goroutine is
// the single owner of simulation time for the room.
type Room struct {
	ID   string
	Game *Game
	loop *Loop
}

func newRoom(id string) *Room {
	g := NewGame(id)
	r := &Room{ID: id, Game: g}
	r.loop = NewLoop(TickRate, func(now time.Time, dt float64) {
		g.ResetIfDue(now.UnixMilli())
		g.Tick(now, dt)
	})
	return r
}

// Run drives the room's tick loop until Stop
func (r *Room) Run() { r.loop.Run() }

// Stop halts the tick loop
func (r *Room) Stop() { r.loop.Stop() }

// RoomManager is the only process-wide game state: a registry of rooms
// with creation-on-first-join and teardown-on-empty.
type RoomManager struct {
	mu    sync.RWMutex
	rooms map[string]*Room
}

// NewRoomManager creates an empty registry
func NewRoomManager() *RoomManager {
	return &RoomManager{rooms: make(map[string]*Room)}
}

// GetOrCreate returns the room for the given id, creating and starting
// it if needed. An empty id gets a fresh room under a new identifier.
// Returns nil when the room limit is reached.
func (rm *RoomManager) GetOrCreate(id string) *Room {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if id == "" {
		id = uuid.NewString()
	}
	if r, ok := rm.rooms[id]; ok {
		return r
	}
	if len(rm.rooms) >= maxRooms {
		return nil
	}
	r := newRoom(id)
	rm.rooms[id] = r
	go r.Run()
	return r
}

// Get returns a room by id, or nil
func (rm *RoomManager) Get(id string) *Room {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return rm.rooms[id]
}

// RemovePlayer drops a player from a room and tears the room down when
// it empties.
func (rm *RoomManager) RemovePlayer(roomID, playerID string) {
	rm.mu.RLock()
	r, ok := rm.rooms[roomID]
	rm.mu.RUnlock()
	if !ok {
		return
	}

	r.Game.RemovePlayer(playerID, time.Now().UnixMilli())

	if r.Game.PlayerCount() == 0 {
		r.Stop()
		rm.mu.Lock()
		delete(rm.rooms, roomID)
		rm.mu.Unlock()
	}
}

// RoomCount returns the number of live rooms
func (rm *RoomManager) RoomCount() int {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return len(rm.rooms)
}
