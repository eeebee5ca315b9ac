package main

import "sort"

// BoardEntry is the per-player aggregate across rounds. TotalPlace is a
// running sum; average placement is always derived, never stored.
type BoardEntry struct {
	PlayerID   string
	Name       string
	Wins       int
	Games      int
	TotalPlace int
}

// AvgPlace returns the mean placement, or 0 before the first game
func (e *BoardEntry) AvgPlace() float64 {
	if e.Games == 0 {
		return 0
	}
	return float64(e.TotalPlace) / float64(e.Games)
}

// Leaderboard aggregates round results for one room. Entries outlive
// disconnects so a player rejoining under the same identity keeps their
// record; the rendered view filters to whoever is still present.
type Leaderboard struct {
	entries map[string]*BoardEntry
}

// NewLeaderboard creates an empty leaderboard
func NewLeaderboard() *Leaderboard {
	return &Leaderboard{entries: make(map[string]*BoardEntry)}
}

// Record folds one finished round into the aggregates. winnerID may be
// empty on a draw; wins only accrue to an actual winner.
func (lb *Leaderboard) Record(placements []Placement, winnerID string) {
	for _, pl := range placements {
		e, ok := lb.entries[pl.PlayerID]
		if !ok {
			e = &BoardEntry{PlayerID: pl.PlayerID}
			lb.entries[pl.PlayerID] = e
		}
		e.Name = pl.Name
		e.Games++
		e.TotalPlace += pl.Place
		if pl.PlayerID == winnerID {
			e.Wins++
		}
	}
}

// Ranked returns entries for the given present players, best first:
// wins descending, then average placement ascending, then games played
// descending. Ties beyond that break on player id for stable output.
func (lb *Leaderboard) Ranked(present func(playerID string) bool) []BoardEntry {
	out := make([]BoardEntry, 0, len(lb.entries))
	for id, e := range lb.entries {
		if present != nil && !present(id) {
			continue
		}
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Wins != b.Wins {
			return a.Wins > b.Wins
		}
		if a.AvgPlace() != b.AvgPlace() {
			return a.AvgPlace() < b.AvgPlace()
		}
		if a.Games != b.Games {
			return a.Games > b.Games
		}
		return a.PlayerID < b.PlayerID
	})
	return out
}
