package main

import "encoding/json"

// Client -> Server message types
const (
	MsgJoin  = "join"
	MsgReady = "ready"
	MsgInput = "input"
	MsgLeave = "leave"
	MsgBoard = "board" // request the leaderboard view
)

// Server -> Client message types
const (
	MsgWelcome    = "welcome"
	MsgLobby      = "lobby"
	MsgCountdown  = "countdown"
	MsgRoundStart = "round_start"
	MsgState      = "state" // binary msgpack snapshot, not an envelope
	MsgRoundOver  = "round_over"
	MsgBoardData  = "board_data"
	MsgError      = "error"
)

// Envelope wraps all outgoing JSON messages with a type field
type Envelope struct {
	T    string      `json:"t"`
	Data interface{} `json:"d,omitempty"`
}

// InEnvelope is used for incoming messages — json.RawMessage avoids double-unmarshal
type InEnvelope struct {
	T string          `json:"t"`
	D json.RawMessage `json:"d,omitempty"`
}

// JoinMsg is sent to enter a room. An empty room id asks the server to
// create a fresh room.
type JoinMsg struct {
	Room  string `json:"room"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// ReadyMsg toggles the lobby ready flag
type ReadyMsg struct {
	Ready bool `json:"r"`
}

// InputMsg is the JSON form of a movement input. Seq is a client-side
// monotonic counter starting at 1; MX/MY are clamped server-side.
type InputMsg struct {
	Seq  uint32  `json:"s"`
	MX   float64 `json:"mx"`
	MY   float64 `json:"my"`
	Dash bool    `json:"d,omitempty"`
}

// Tuning is sent once in the welcome payload so clients can mirror the
// movement model for prediction.
type Tuning struct {
	TickRate     int     `json:"tickRate"`
	MoveSpeed    float64 `json:"moveSpeed"`
	Accel        float64 `json:"accel"`
	Friction     float64 `json:"friction"`
	PlayerRadius float64 `json:"radius"`
	DashImpulse  float64 `json:"dashImpulse"`
	DashDuration int     `json:"dashMs"`
	DashCooldown int     `json:"dashCdMs"`
	TileSize     float64 `json:"tileSize"`
	TileFall     int     `json:"tileFallMs"`
}

// DefaultTuning returns the active movement constants
func DefaultTuning() Tuning {
	return Tuning{
		TickRate:     TickRate,
		MoveSpeed:    MoveSpeed,
		Accel:        MoveAccel,
		Friction:     Friction,
		PlayerRadius: PlayerRadius,
		DashImpulse:  DashImpulse,
		DashDuration: DashDurationMS,
		DashCooldown: DashCooldownMS,
		TileSize:     TileSize,
		TileFall:     TileFallDelayMS,
	}
}

// WelcomeMsg is sent to a player right after a successful join
type WelcomeMsg struct {
	ID     string `json:"id"`
	Room   string `json:"room"`
	Seed   int64  `json:"seed"`
	GridW  int    `json:"w"`
	GridH  int    `json:"h"`
	Tuning Tuning `json:"tuning"`
}

// LobbyPlayer is one row of the lobby view
type LobbyPlayer struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
	Ready bool   `json:"ready"`
}

// LobbyMsg is broadcast whenever lobby composition or readiness changes
type LobbyMsg struct {
	Players    []LobbyPlayer `json:"players"`
	MinPlayers int           `json:"min"`
	MaxPlayers int           `json:"max"`
	AllReady   bool          `json:"allReady"`
}

// CountdownMsg announces the countdown with a server timestamp for
// client clock sync
type CountdownMsg struct {
	Seconds  int   `json:"secs"`
	ServerMS int64 `json:"now"`
	EndMS    int64 `json:"endAt"`
}

// SpawnAssignment tells clients which tile each player starts on
type SpawnAssignment struct {
	PlayerID string `json:"p"`
	TileX    int    `json:"x"`
	TileY    int    `json:"y"`
}

// RoundStartMsg is broadcast when the countdown elapses
type RoundStartMsg struct {
	Spawns []SpawnAssignment `json:"spawns"`
	Seed   int64             `json:"seed"`
}

// PlayerSnap is one player record inside a state snapshot
type PlayerSnap struct {
	ID    string  `json:"id"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	VX    float64 `json:"vx"`
	VY    float64 `json:"vy"`
	Dash  bool    `json:"d"`
	Alive bool    `json:"a"`
}

// TileDelta refreshes one tile that left the solid state since the last
// snapshot
type TileDelta struct {
	Index int   `json:"i"`
	State uint8 `json:"s"`
}

// Snapshot is the periodic state broadcast, msgpack-encoded as a binary
// frame. Ack is per recipient: the highest input sequence number the
// server has accepted from them.
type Snapshot struct {
	Tick     uint64        `json:"tick"`
	ServerMS int64         `json:"t"`
	Players  []PlayerSnap  `json:"p"`
	Tiles    []TileDelta   `json:"tiles,omitempty"`
	Events   []EventRecord `json:"ev,omitempty"`
	Ack      uint32        `json:"ack"`
}

// Placement is one row of a finished round's ranking, 1-based
type Placement struct {
	PlayerID string `json:"p"`
	Name     string `json:"name"`
	Place    int    `json:"place"`
}

// RoundOverMsg is broadcast when a round finishes. Winner is empty on a
// zero-survivor draw.
type RoundOverMsg struct {
	Placements []Placement `json:"places"`
	Winner     string      `json:"winner,omitempty"`
}

// BoardRow is one rendered leaderboard entry
type BoardRow struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Wins       int     `json:"wins"`
	Games      int     `json:"games"`
	TotalPlace int     `json:"total"`
	AvgPlace   float64 `json:"avg"`
}

// BoardMsg is the ranked leaderboard view
type BoardMsg struct {
	Entries []BoardRow `json:"entries"`
}

// ErrorMsg sends an error to the client
type ErrorMsg struct {
	Msg string `json:"msg"`
}
