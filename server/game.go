package main

import (
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

const (
	TickRate       = 30 // simulation ticks per second
	BroadcastRate  = 15 // state snapshots per second
	BroadcastEvery = TickRate / BroadcastRate

	HazardIntervalMS = 1000 // random tile shake cadence
	GraceMS          = 250  // time allowed on a fallen tile
)

// Overridable in tests to keep round cycling fast
var (
	CountdownMS      int64 = 3000
	RoundOverDelayMS int64 = 4000 // result display before lobby reset
)

// RoundPhase is the round state machine position
type RoundPhase int

const (
	PhaseLobby RoundPhase = iota
	PhaseCountdown
	PhaseInRound
	PhaseRoundOver
)

// Broadcaster sends messages to one connected client
type Broadcaster interface {
	SendJSON(msg interface{})
	SendBinary(data []byte)
}

// deathRecord survives player removal so placements can still rank a
// player who disconnected mid-round.
type deathRecord struct {
	PlayerID string
	Name     string
	DiedAt   int64
}

// Game owns one room's simulation state. All mutation happens under mu;
// the tick loop, input arrival and snapshot drains all serialize on it.
type Game struct {
	mu      sync.Mutex
	id      string
	phase   RoundPhase
	players map[string]*Player
	inputs  map[string]*InputState
	clients map[string]Broadcaster
	order   []string // join order, the deterministic iteration order
	grid    *Grid
	board   *Leaderboard

	seed int64
	rng  *rand.Rand

	tick           uint64
	countdownEndAt int64
	nextHazardAt   int64
	roundOverAt    int64

	deaths    []deathRecord
	spawns    []SpawnAssignment
	log       *deltaLog
	nextOrder int
	solidBuf  []int
}

// NewGame creates an empty room engine in the lobby phase
func NewGame(id string) *Game {
	seed := time.Now().UnixNano()
	return &Game{
		id:      id,
		players: make(map[string]*Player),
		inputs:  make(map[string]*InputState),
		clients: make(map[string]Broadcaster),
		grid:    NewGrid(GridWidth, GridHeight),
		board:   NewLeaderboard(),
		seed:    seed,
		rng:     rand.New(rand.NewSource(seed)),
		log:     newDeltaLog(),
	}
}

// Seed returns the cosmetic map seed
func (g *Game) Seed() int64 { return g.seed }

// Phase returns the current round phase
func (g *Game) Phase() RoundPhase {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.phase
}

// PlayerCount returns the number of joined players
func (g *Game) PlayerCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.players)
}

// AddPlayer joins a new player in the lobby. Returns nil when the room
// is at capacity.
func (g *Game) AddPlayer(name, color string) *Player {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(g.players) >= MaxPlayers {
		return nil
	}
	id := GenerateID(4)
	p := NewPlayer(id, name, color, g.nextOrder)
	g.nextOrder++
	g.players[id] = p
	g.inputs[id] = &InputState{}
	g.order = append(g.order, id)
	return p
}

// SetClient associates a broadcaster with a player
func (g *Game) SetClient(playerID string, client Broadcaster) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.clients[playerID] = client
}

// RemovePlayer drops a player. Mid-round this is the same elimination
// path as going off-grid; in lobby or roundOver it is a plain removal.
func (g *Game) RemovePlayer(id string, nowMS int64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	p, ok := g.players[id]
	if !ok {
		delete(g.clients, id)
		return
	}
	if g.phase == PhaseInRound && p.Alive {
		g.eliminate(p, nowMS)
	}
	delete(g.players, id)
	delete(g.inputs, id)
	delete(g.clients, id)
	for i, oid := range g.order {
		if oid == id {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}

	switch g.phase {
	case PhaseInRound:
		if g.countAlive() <= 1 {
			g.finishRound(nowMS)
		}
	case PhaseLobby:
		g.broadcastLobby()
		g.checkStart(nowMS)
	}
}

// HandleInput folds a validated input into a player's input state.
// Unknown players and stale sequence numbers are silently ignored.
func (g *Game) HandleInput(playerID string, seq uint32, move Vec2, dash bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	p, ok := g.players[playerID]
	if !ok {
		return
	}
	g.inputs[playerID].Apply(p, seq, move, dash)
}

// HandleReady toggles a lobby ready flag and re-evaluates the start
// condition. Ignored outside the lobby.
func (g *Game) HandleReady(playerID string, ready bool, nowMS int64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	p, ok := g.players[playerID]
	if !ok || g.phase != PhaseLobby {
		return
	}
	p.Ready = ready
	g.broadcastLobby()
	g.checkStart(nowMS)
}

// checkStart begins the countdown once at least MinPlayers are present
// and every present player is ready. Caller holds mu.
func (g *Game) checkStart(nowMS int64) {
	if g.phase != PhaseLobby || len(g.players) < MinPlayers {
		return
	}
	for _, p := range g.players {
		if !p.Ready {
			return
		}
	}
	g.phase = PhaseCountdown
	g.countdownEndAt = nowMS + CountdownMS
	g.broadcastMsg(Envelope{T: MsgCountdown, Data: CountdownMsg{
		Seconds:  int(CountdownMS / 1000),
		ServerMS: nowMS,
		EndMS:    g.countdownEndAt,
	}})
}

// Tick advances the simulation one fixed step. It is the only place
// simulation time moves forward.
func (g *Game) Tick(now time.Time, dt float64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	nowMS := now.UnixMilli()
	g.tick++

	switch g.phase {
	case PhaseCountdown:
		if nowMS >= g.countdownEndAt {
			g.startRound(nowMS)
		}
	case PhaseInRound:
		g.stepPlayers(nowMS, dt)
		g.randomHazard(nowMS)
		g.fallPass(nowMS)
		g.resolveCollisions(nowMS)
		g.eliminationPass(nowMS)
		if g.countAlive() <= 1 {
			g.finishRound(nowMS)
		}
	}

	if g.tick%BroadcastEvery == 0 {
		g.broadcastSnapshot(nowMS)
	}
}

// ResetIfDue returns the room to the lobby once the round-over display
// delay has elapsed. Driven by the room loop, not by Tick.
func (g *Game) ResetIfDue(nowMS int64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.phase != PhaseRoundOver || nowMS < g.roundOverAt+RoundOverDelayMS {
		return
	}
	g.resetToLobby()
}

// resetToLobby clears per-round state. Caller holds mu.
func (g *Game) resetToLobby() {
	g.grid.Reset()
	g.log = newDeltaLog()
	g.deaths = nil
	g.spawns = nil
	for _, p := range g.players {
		p.Ready = false
		p.Alive = false
		p.Vel = Vec2{}
		p.DiedAt = 0
		p.UnsupportedSince = 0
	}
	g.phase = PhaseLobby
	g.broadcastLobby()
}

// startRound performs round setup: all tiles solid, players shuffled
// onto the spawn ring, hazard timer armed.
func (g *Game) startRound(nowMS int64) {
	g.grid.Reset()
	g.log = newDeltaLog()
	g.deaths = nil

	ring := g.grid.SpawnRing()
	g.rng.Shuffle(len(ring), func(i, j int) {
		ring[i], ring[j] = ring[j], ring[i]
	})

	g.spawns = g.spawns[:0]
	for i, id := range g.order {
		p := g.players[id]
		idx := ring[i%len(ring)]
		p.ResetForRound(g.grid.CenterOf(idx))
		g.inputs[id].DashRequested = false
		g.spawns = append(g.spawns, SpawnAssignment{
			PlayerID: id,
			TileX:    idx % g.grid.W,
			TileY:    idx / g.grid.W,
		})
	}

	g.nextHazardAt = nowMS + HazardIntervalMS
	g.phase = PhaseInRound
	g.broadcastMsg(Envelope{T: MsgRoundStart, Data: RoundStartMsg{
		Spawns: g.spawns,
		Seed:   g.seed,
	}})
}

// stepPlayers runs the per-player physics pipeline in join order so the
// tick stays deterministic.
func (g *Game) stepPlayers(nowMS int64, dt float64) {
	for _, id := range g.order {
		p := g.players[id]
		if !p.Alive {
			continue
		}
		in := g.inputs[id]

		// Dash trigger: the request is consumed exactly once whether or
		// not it fires, so a press during cooldown is lost rather than
		// queued.
		if in.DashRequested {
			in.DashRequested = false
			if nowMS >= p.DashCDUntil && !in.LastDir.IsZero() {
				p.Vel = p.Vel.Add(in.LastDir.Scale(DashImpulse))
				p.DashUntil = nowMS + DashDurationMS
				p.DashCDUntil = nowMS + DashCooldownMS
			}
		}

		// Steering: accelerate toward the desired velocity, clamped per
		// tick rather than snapping.
		var desired Vec2
		if !in.Move.IsZero() {
			desired = in.Move.Normalized().Scale(MoveSpeed)
		}
		dv := desired.Sub(p.Vel)
		if step := MoveAccel * dt; dv.Len() > step {
			dv = dv.Normalized().Scale(step)
		}
		p.Vel = p.Vel.Add(dv)

		// Friction shrinks speed, never reverses it. Dashes keep most
		// of their momentum.
		fr := Friction
		if p.Dashing(nowMS) {
			fr /= DashFrictionDiv
		}
		if speed := p.Vel.Len(); speed > 0 {
			ns := speed - fr*dt
			if ns < 0 {
				ns = 0
			}
			p.Vel = p.Vel.Scale(ns / speed)
		}

		p.Pos = p.Pos.Add(p.Vel.Scale(dt))

		// Stepping on a solid tile destabilizes it
		if idx, ok := g.grid.IndexAt(p.Pos); ok {
			g.shakeTile(idx, nowMS)
		}
	}
}

// shakeTile transitions a solid tile and logs the delta. Repeated steps
// on an already-shaking tile do nothing. Caller holds mu.
func (g *Game) shakeTile(idx int, nowMS int64) {
	if !g.grid.Shake(idx, nowMS) {
		return
	}
	g.log.MarkTile(idx)
	g.log.Append(GameEvent{Kind: EventTileShake, Tile: idx})
}

// randomHazard shakes one uniformly random solid tile per interval so a
// board never stays static under passive players.
func (g *Game) randomHazard(nowMS int64) {
	if nowMS < g.nextHazardAt {
		return
	}
	g.solidBuf = g.grid.SolidIndices(g.solidBuf)
	if len(g.solidBuf) > 0 {
		g.shakeTile(g.solidBuf[g.rng.Intn(len(g.solidBuf))], nowMS)
	}
	g.nextHazardAt += HazardIntervalMS
	if g.nextHazardAt <= nowMS {
		g.nextHazardAt = nowMS + HazardIntervalMS
	}
}

// fallPass drops every shaking tile whose deadline has passed. Runs
// after the movement pass and before elimination, so a tile that falls
// this tick can eliminate within the same tick.
func (g *Game) fallPass(nowMS int64) {
	for i := range g.grid.Tiles {
		t := &g.grid.Tiles[i]
		if t.State != TileShaking || nowMS < t.FallAt {
			continue
		}
		t.State = TileFallen
		g.log.MarkTile(i)
		g.log.Append(GameEvent{Kind: EventTileFall, Tile: i})
	}
}

// resolveCollisions separates every overlapping pair of alive players
// and applies dash knockback.
func (g *Game) resolveCollisions(nowMS int64) {
	for i := 0; i < len(g.order); i++ {
		a := g.players[g.order[i]]
		if !a.Alive {
			continue
		}
		for j := i + 1; j < len(g.order); j++ {
			b := g.players[g.order[j]]
			if !b.Alive {
				continue
			}
			delta := b.Pos.Sub(a.Pos)
			dist := delta.Len()
			if dist >= 2*PlayerRadius {
				continue
			}

			n := Vec2{1, 0} // coincident players get a fixed normal
			if dist > 0 {
				n = delta.Scale(1 / dist)
			}
			overlap := 2*PlayerRadius - dist

			// Symmetric positional separation, half the overlap each
			a.Pos = a.Pos.Sub(n.Scale(overlap / 2))
			b.Pos = b.Pos.Add(n.Scale(overlap / 2))

			aDash := a.Dashing(nowMS)
			bDash := b.Dashing(nowMS)
			push := overlap + DashPushbackK
			if aDash {
				b.Vel = b.Vel.Add(n.Scale(push))
			}
			if bDash {
				a.Vel = a.Vel.Sub(n.Scale(push))
			}
		}
	}
}

// eliminationPass checks grid support for every alive player. Off-grid
// is instant death; a fallen tile starts the grace timer, which an
// active dash suspends.
func (g *Game) eliminationPass(nowMS int64) {
	for _, id := range g.order {
		p := g.players[id]
		if !p.Alive {
			continue
		}
		idx, ok := g.grid.IndexAt(p.Pos)
		if !ok {
			g.eliminate(p, nowMS)
			continue
		}
		if g.grid.Tiles[idx].State != TileFallen {
			p.UnsupportedSince = 0
			continue
		}
		if p.UnsupportedSince == 0 {
			p.UnsupportedSince = nowMS
		}
		if p.Dashing(nowMS) {
			continue
		}
		if nowMS-p.UnsupportedSince > GraceMS {
			g.eliminate(p, nowMS)
		}
	}
}

// eliminate marks a player dead and logs the death. Caller holds mu.
func (g *Game) eliminate(p *Player, nowMS int64) {
	p.Alive = false
	p.DiedAt = nowMS
	g.deaths = append(g.deaths, deathRecord{
		PlayerID: p.ID,
		Name:     p.Name,
		DiedAt:   nowMS,
	})
	g.log.Append(GameEvent{Kind: EventDeath, PlayerID: p.ID})
}

func (g *Game) countAlive() int {
	n := 0
	for _, p := range g.players {
		if p.Alive {
			n++
		}
	}
	return n
}

// finishRound computes placements, feeds the leaderboard and freezes the
// simulation until the lobby reset.
func (g *Game) finishRound(nowMS int64) {
	placements, winner := g.computePlacements()
	g.board.Record(placements, winner)

	g.phase = PhaseRoundOver
	g.roundOverAt = nowMS

	g.broadcastMsg(Envelope{T: MsgRoundOver, Data: RoundOverMsg{
		Placements: placements,
		Winner:     winner,
	}})
	g.broadcastMsg(Envelope{T: MsgBoardData, Data: g.boardView()})
}

// computePlacements ranks survivors first in stable join order, then the
// eliminated by death time descending (later death places better). A
// zero-survivor wipe is a draw: placements are still assigned but no
// winner exists. Caller holds mu.
func (g *Game) computePlacements() ([]Placement, string) {
	var alive []*Player
	for _, id := range g.order {
		if p := g.players[id]; p.Alive {
			alive = append(alive, p)
		}
	}

	deaths := make([]deathRecord, len(g.deaths))
	copy(deaths, g.deaths)
	sort.SliceStable(deaths, func(i, j int) bool {
		return deaths[i].DiedAt > deaths[j].DiedAt
	})

	placements := make([]Placement, 0, len(alive)+len(deaths))
	place := 1
	winner := ""
	for _, p := range alive {
		placements = append(placements, Placement{PlayerID: p.ID, Name: p.Name, Place: place})
		place++
	}
	if len(alive) == 1 {
		winner = alive[0].ID
	}
	for _, d := range deaths {
		placements = append(placements, Placement{PlayerID: d.PlayerID, Name: d.Name, Place: place})
		place++
	}
	return placements, winner
}

// boardView renders the leaderboard filtered to connected players.
// Caller holds mu.
func (g *Game) boardView() BoardMsg {
	ranked := g.board.Ranked(func(id string) bool {
		_, ok := g.players[id]
		return ok
	})
	rows := make([]BoardRow, 0, len(ranked))
	for _, e := range ranked {
		rows = append(rows, BoardRow{
			ID:         e.PlayerID,
			Name:       e.Name,
			Wins:       e.Wins,
			Games:      e.Games,
			TotalPlace: e.TotalPlace,
			AvgPlace:   e.AvgPlace(),
		})
	}
	return BoardMsg{Entries: rows}
}

// BoardView returns the ranked leaderboard for connected players
func (g *Game) BoardView() BoardMsg {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.boardView()
}

// LobbyView returns the current lobby composition
func (g *Game) LobbyView() LobbyMsg {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lobbyView()
}

func (g *Game) lobbyView() LobbyMsg {
	msg := LobbyMsg{
		Players:    make([]LobbyPlayer, 0, len(g.order)),
		MinPlayers: MinPlayers,
		MaxPlayers: MaxPlayers,
		AllReady:   len(g.players) >= MinPlayers,
	}
	for _, id := range g.order {
		p := g.players[id]
		msg.Players = append(msg.Players, LobbyPlayer{
			ID:    p.ID,
			Name:  p.Name,
			Color: p.Color,
			Ready: p.Ready,
		})
		if !p.Ready {
			msg.AllReady = false
		}
	}
	return msg
}

// BroadcastLobby publishes the lobby view and re-checks the start
// condition; called from the join path.
func (g *Game) BroadcastLobby(nowMS int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.broadcastLobby()
	g.checkStart(nowMS)
}

func (g *Game) broadcastLobby() {
	g.broadcastMsg(Envelope{T: MsgLobby, Data: g.lobbyView()})
}

// buildSnapshot drains the delta log into a snapshot payload. Ack is
// filled per recipient by the caller. Caller holds mu.
func (g *Game) buildSnapshot(nowMS int64) Snapshot {
	tiles, events := g.log.Drain()

	snap := Snapshot{
		Tick:     g.tick,
		ServerMS: nowMS,
		Players:  make([]PlayerSnap, 0, len(g.order)),
	}
	for _, id := range g.order {
		p := g.players[id]
		snap.Players = append(snap.Players, PlayerSnap{
			ID:    p.ID,
			X:     p.Pos.X,
			Y:     p.Pos.Y,
			VX:    p.Vel.X,
			VY:    p.Vel.Y,
			Dash:  p.Dashing(nowMS),
			Alive: p.Alive,
		})
	}
	for _, idx := range tiles {
		if st := g.grid.Tiles[idx].State; st != TileSolid {
			snap.Tiles = append(snap.Tiles, TileDelta{Index: idx, State: uint8(st)})
		}
	}
	for _, e := range events {
		snap.Events = append(snap.Events, e.Wire())
	}
	return snap
}

// BuildSnapshotAndClear drains the pending deltas. Exposed for the
// broadcast path and tests; a second call without an intervening tick
// returns an empty delta and event set.
func (g *Game) BuildSnapshotAndClear(nowMS int64) Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.buildSnapshot(nowMS)
}

// broadcastSnapshot encodes the snapshot per recipient (the ack field
// differs) and sends it as a binary frame. Caller holds mu.
func (g *Game) broadcastSnapshot(nowMS int64) {
	if len(g.clients) == 0 {
		// Nobody listening; still drain so buffers don't grow
		g.buildSnapshot(nowMS)
		return
	}
	snap := g.buildSnapshot(nowMS)
	for id, client := range g.clients {
		if p, ok := g.players[id]; ok {
			snap.Ack = p.LastInputSeq
		} else {
			snap.Ack = 0
		}
		data, err := msgpack.Marshal(snap)
		if err != nil {
			continue
		}
		client.SendBinary(data)
	}
}

// broadcastMsg sends a JSON message to every client in the room.
// Caller holds mu.
func (g *Game) broadcastMsg(msg Envelope) {
	for _, client := range g.clients {
		client.SendJSON(msg)
	}
}
