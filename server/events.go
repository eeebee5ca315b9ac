package main

import "sort"

// EventKind discriminates the GameEvent union
type EventKind uint8

const (
	EventTileShake EventKind = iota
	EventTileFall
	EventDeath
)

// GameEvent is a discrete simulation event. Tile is meaningful for the
// tile variants, PlayerID for deaths. Produced by the engine, consumed
// exactly once by a snapshot drain.
type GameEvent struct {
	Kind     EventKind
	Tile     int
	PlayerID string
}

// EventRecord is the wire form of a GameEvent
type EventRecord struct {
	T      string `json:"t"`
	Tile   int    `json:"i,omitempty"`
	Player string `json:"p,omitempty"`
}

// Wire converts the event for a snapshot payload. The switch is
// exhaustive over EventKind; an unknown kind is a programming error.
func (e GameEvent) Wire() EventRecord {
	switch e.Kind {
	case EventTileShake:
		return EventRecord{T: "shake", Tile: e.Tile}
	case EventTileFall:
		return EventRecord{T: "fall", Tile: e.Tile}
	case EventDeath:
		return EventRecord{T: "death", Player: e.PlayerID}
	}
	panic("unknown event kind")
}

// deltaLog accumulates changed tile indices and discrete events between
// snapshot drains. Not safe for concurrent use; the owning engine's
// lock covers it.
type deltaLog struct {
	changed map[int]struct{}
	events  []GameEvent
}

func newDeltaLog() *deltaLog {
	return &deltaLog{changed: make(map[int]struct{})}
}

// MarkTile records that a tile needs a refresh in the next snapshot
func (d *deltaLog) MarkTile(idx int) {
	d.changed[idx] = struct{}{}
}

// Append records a discrete event
func (d *deltaLog) Append(e GameEvent) {
	d.events = append(d.events, e)
}

// Drain returns the changed tile indices in ascending order plus the
// ordered event list, then clears both buffers. A second drain with no
// intervening mutation returns empty slices.
func (d *deltaLog) Drain() ([]int, []GameEvent) {
	if len(d.changed) == 0 && len(d.events) == 0 {
		return nil, nil
	}
	tiles := make([]int, 0, len(d.changed))
	for idx := range d.changed {
		tiles = append(tiles, idx)
	}
	sort.Ints(tiles)
	events := d.events

	d.changed = make(map[int]struct{})
	d.events = nil
	return tiles, events
}
