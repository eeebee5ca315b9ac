package main

import "testing"

func TestInputApplySequence(t *testing.T) {
	p := NewPlayer("p1", "A", "", 0)
	in := &InputState{}

	if !in.Apply(p, 1, Vec2{1, 0}, false) {
		t.Fatal("first input should be accepted")
	}
	if !in.Apply(p, 2, Vec2{0, 1}, false) {
		t.Fatal("increasing sequence should be accepted")
	}
	if in.Apply(p, 2, Vec2{-1, 0}, true) {
		t.Error("duplicate sequence must be dropped")
	}
	if in.Apply(p, 1, Vec2{-1, 0}, true) {
		t.Error("stale sequence must be dropped")
	}
	if in.Move.Y != 1 || in.Move.X != 0 {
		t.Errorf("dropped input overwrote the move vector: %+v", in.Move)
	}
	if in.DashRequested {
		t.Error("dropped input set the dash flag")
	}
	if p.LastInputSeq != 2 {
		t.Errorf("LastInputSeq = %d, want 2", p.LastInputSeq)
	}
}

func TestInputApplyClampsAxes(t *testing.T) {
	p := NewPlayer("p1", "A", "", 0)
	in := &InputState{}

	in.Apply(p, 1, Vec2{5, -9}, false)
	if in.Move.X != 1 || in.Move.Y != -1 {
		t.Errorf("axes not clamped to [-1,1]: %+v", in.Move)
	}
}

func TestInputLastDirRetained(t *testing.T) {
	p := NewPlayer("p1", "A", "", 0)
	in := &InputState{}

	in.Apply(p, 1, Vec2{0, -1}, false)
	in.Apply(p, 2, Vec2{}, false) // stick released
	if in.LastDir.Y != -1 {
		t.Errorf("zero move must not clear the dash direction, got %+v", in.LastDir)
	}
	if !in.Move.IsZero() {
		t.Errorf("move vector should be zero, got %+v", in.Move)
	}
}

func TestInputLastDirNormalized(t *testing.T) {
	p := NewPlayer("p1", "A", "", 0)
	in := &InputState{}

	in.Apply(p, 1, Vec2{1, 1}, false)
	if l := in.LastDir.Len(); l < 0.999 || l > 1.001 {
		t.Errorf("dash direction should be unit length, got %f", l)
	}
}

func TestDashRequestSticksUntilConsumed(t *testing.T) {
	p := NewPlayer("p1", "A", "", 0)
	in := &InputState{}

	in.Apply(p, 1, Vec2{1, 0}, true)
	in.Apply(p, 2, Vec2{1, 0}, false)
	if !in.DashRequested {
		t.Error("a later non-dash input must not clear a pending dash request")
	}
}

func TestDashingWindow(t *testing.T) {
	p := NewPlayer("p1", "A", "", 0)
	p.DashUntil = 1000
	if !p.Dashing(999) {
		t.Error("should be dashing before the window closes")
	}
	if p.Dashing(1000) {
		t.Error("dash window is exclusive at the deadline")
	}
}

func TestResetForRound(t *testing.T) {
	p := NewPlayer("p1", "A", "", 0)
	p.Vel = Vec2{100, -50}
	p.DashUntil = 99
	p.DashCDUntil = 99
	p.LastInputSeq = 42
	p.UnsupportedSince = 7
	p.DiedAt = 7

	spawn := Vec2{96, 96}
	p.ResetForRound(spawn)

	if p.Pos != spawn {
		t.Errorf("Pos = %+v, want %+v", p.Pos, spawn)
	}
	if !p.Vel.IsZero() {
		t.Error("velocity not cleared")
	}
	if !p.Alive {
		t.Error("player should be alive")
	}
	if p.DashUntil != 0 || p.DashCDUntil != 0 {
		t.Error("dash state not cleared")
	}
	if p.LastInputSeq != 0 {
		t.Error("input sequence not reset")
	}
	if p.UnsupportedSince != 0 || p.DiedAt != 0 {
		t.Error("elimination state not cleared")
	}
}
