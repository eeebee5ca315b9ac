package main

// Movement and dash tuning
const (
	PlayerRadius   = 18.0   // world units
	MoveSpeed      = 260.0  // target speed at full stick, units/s
	MoveAccel      = 1400.0 // units/s² toward desired velocity
	Friction       = 900.0  // units/s² speed decay
	DashFrictionDiv = 3.0   // friction divisor while a dash is active

	DashImpulse    = 620.0 // units/s added along the dash direction
	DashDurationMS = 180
	DashCooldownMS = 1500
	DashPushbackK  = 240.0 // extra knockback speed on dash contact
)

const (
	MinPlayers = 2
	MaxPlayers = 8
)

// Player is one joined participant. Owned exclusively by the room
// engine; created on join, reset at round start, removed on disconnect.
type Player struct {
	ID    string
	Name  string
	Color string

	Pos Vec2
	Vel Vec2

	Alive        bool
	Ready        bool
	DashUntil    int64 // unix ms, dash impulse still active
	DashCDUntil  int64 // unix ms, next dash allowed at or after this
	LastInputSeq uint32

	UnsupportedSince int64 // unix ms standing on a fallen tile, 0 = supported
	DiedAt           int64 // unix ms of elimination, 0 while alive

	joinOrder int // stable tiebreak for placements and iteration
}

// NewPlayer creates an idle lobby player
func NewPlayer(id, name, color string, order int) *Player {
	return &Player{
		ID:        id,
		Name:      name,
		Color:     color,
		joinOrder: order,
	}
}

// Dashing reports whether the dash impulse window is still open
func (p *Player) Dashing(nowMS int64) bool {
	return nowMS < p.DashUntil
}

// ResetForRound places the player on its spawn tile with cleared
// velocity, dash state and input counters.
func (p *Player) ResetForRound(spawn Vec2) {
	p.Pos = spawn
	p.Vel = Vec2{}
	p.Alive = true
	p.DashUntil = 0
	p.DashCDUntil = 0
	p.LastInputSeq = 0
	p.UnsupportedSince = 0
	p.DiedAt = 0
}

// InputState is per-connection bookkeeping between input arrival and the
// next physics step. Never sent to clients.
type InputState struct {
	Move    Vec2 // latest move vector, both axes clamped to [-1,1]
	LastDir Vec2 // last nonzero move direction, used as dash direction

	// Edge-triggered dash request: set on press, cleared exactly once
	// when the physics step consumes it.
	DashRequested bool
}

// Apply folds a validated input message into the state. Returns false
// when the sequence number is stale and the input was dropped.
func (in *InputState) Apply(p *Player, seq uint32, move Vec2, dash bool) bool {
	if seq <= p.LastInputSeq {
		return false
	}
	p.LastInputSeq = seq
	in.Move = Vec2{Clamp(move.X, -1, 1), Clamp(move.Y, -1, 1)}
	if !in.Move.IsZero() {
		in.LastDir = in.Move.Normalized()
	}
	if dash {
		in.DashRequested = true
	}
	return true
}
