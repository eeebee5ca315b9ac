package main

// TileState is the lifecycle stage of one grid cell
type TileState uint8

const (
	TileSolid TileState = iota
	TileShaking
	TileFallen
)

const (
	GridWidth       = 16
	GridHeight      = 16
	TileSize        = 64.0 // world units per cell
	TileFallDelayMS = 900  // shake duration before a tile drops
)

// Tile is one grid cell. State only moves forward within a round:
// solid -> shaking -> fallen.
type Tile struct {
	State   TileState
	ShakeAt int64 // unix ms when shaking started
	FallAt  int64 // unix ms when the tile is scheduled to drop
}

// Grid is the fixed board of a room. Dimensions never change after
// creation; only tile states do.
type Grid struct {
	W, H  int
	Tiles []Tile
}

// NewGrid creates an all-solid grid
func NewGrid(w, h int) *Grid {
	return &Grid{W: w, H: h, Tiles: make([]Tile, w*h)}
}

// Reset returns every tile to solid
func (g *Grid) Reset() {
	for i := range g.Tiles {
		g.Tiles[i] = Tile{}
	}
}

// IndexAt maps a world position to a row-major tile index.
// ok is false when the position is off the board.
func (g *Grid) IndexAt(pos Vec2) (int, bool) {
	tx := int(pos.X / TileSize)
	ty := int(pos.Y / TileSize)
	if pos.X < 0 || pos.Y < 0 || tx >= g.W || ty >= g.H {
		return 0, false
	}
	return ty*g.W + tx, true
}

// CenterOf returns the world-space center of a tile index
func (g *Grid) CenterOf(idx int) Vec2 {
	x := idx % g.W
	y := idx / g.W
	return Vec2{
		X: (float64(x) + 0.5) * TileSize,
		Y: (float64(y) + 0.5) * TileSize,
	}
}

// Shake transitions a solid tile to shaking and schedules its fall.
// Returns false if the tile was already shaking or fallen.
func (g *Grid) Shake(idx int, nowMS int64) bool {
	t := &g.Tiles[idx]
	if t.State != TileSolid {
		return false
	}
	t.State = TileShaking
	t.ShakeAt = nowMS
	t.FallAt = nowMS + TileFallDelayMS
	return true
}

// SolidIndices returns the indices of all still-solid tiles in row-major
// order, appended to buf to avoid per-tick allocation.
func (g *Grid) SolidIndices(buf []int) []int {
	buf = buf[:0]
	for i := range g.Tiles {
		if g.Tiles[i].State == TileSolid {
			buf = append(buf, i)
		}
	}
	return buf
}

// SpawnRing returns the tile indices of the ring one cell inside the
// outer perimeter. Grids too small to have an inner ring fall back to
// the outer perimeter itself.
func (g *Grid) SpawnRing() []int {
	x0, y0 := 1, 1
	x1, y1 := g.W-2, g.H-2
	if x1 < x0 || y1 < y0 {
		x0, y0 = 0, 0
		x1, y1 = g.W-1, g.H-1
	}
	var ring []int
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			if x == x0 || x == x1 || y == y0 || y == y1 {
				ring = append(ring, y*g.W+x)
			}
		}
	}
	return ring
}
