package main

import "testing"

func TestEventWire(t *testing.T) {
	cases := []struct {
		ev   GameEvent
		want EventRecord
	}{
		{GameEvent{Kind: EventTileShake, Tile: 12}, EventRecord{T: "shake", Tile: 12}},
		{GameEvent{Kind: EventTileFall, Tile: 40}, EventRecord{T: "fall", Tile: 40}},
		{GameEvent{Kind: EventDeath, PlayerID: "p1"}, EventRecord{T: "death", Player: "p1"}},
	}
	for _, c := range cases {
		if got := c.ev.Wire(); got != c.want {
			t.Errorf("Wire(%+v) = %+v, want %+v", c.ev, got, c.want)
		}
	}
}

func TestDeltaLogDrain(t *testing.T) {
	d := newDeltaLog()
	d.MarkTile(9)
	d.MarkTile(3)
	d.MarkTile(9) // duplicate collapses
	d.MarkTile(27)
	d.Append(GameEvent{Kind: EventTileShake, Tile: 3})
	d.Append(GameEvent{Kind: EventDeath, PlayerID: "p1"})

	tiles, events := d.Drain()
	want := []int{3, 9, 27}
	if len(tiles) != len(want) {
		t.Fatalf("tiles = %v, want %v", tiles, want)
	}
	for i := range want {
		if tiles[i] != want[i] {
			t.Fatalf("tiles = %v, want ascending %v", tiles, want)
		}
	}
	if len(events) != 2 || events[0].Kind != EventTileShake || events[1].Kind != EventDeath {
		t.Errorf("events not preserved in order: %v", events)
	}
}

func TestDeltaLogDrainClears(t *testing.T) {
	d := newDeltaLog()
	d.MarkTile(1)
	d.Append(GameEvent{Kind: EventTileFall, Tile: 1})
	d.Drain()

	tiles, events := d.Drain()
	if tiles != nil || events != nil {
		t.Errorf("second drain should be empty, got %v %v", tiles, events)
	}

	// The log keeps accepting after a drain
	d.MarkTile(2)
	tiles, _ = d.Drain()
	if len(tiles) != 1 || tiles[0] != 2 {
		t.Errorf("post-drain mark lost: %v", tiles)
	}
}

func TestDeltaLogEmptyDrain(t *testing.T) {
	d := newDeltaLog()
	tiles, events := d.Drain()
	if tiles != nil || events != nil {
		t.Errorf("fresh log should drain empty, got %v %v", tiles, events)
	}
}
