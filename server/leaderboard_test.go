package main

import "testing"

func allPresent(string) bool { return true }

func TestLeaderboardRecord(t *testing.T) {
	lb := NewLeaderboard()
	lb.Record([]Placement{
		{PlayerID: "a", Name: "A", Place: 1},
		{PlayerID: "b", Name: "B", Place: 2},
	}, "a")
	lb.Record([]Placement{
		{PlayerID: "b", Name: "B", Place: 1},
		{PlayerID: "a", Name: "A", Place: 2},
	}, "b")

	out := lb.Ranked(allPresent)
	if len(out) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(out))
	}
	for _, e := range out {
		if e.Wins != 1 || e.Games != 2 || e.TotalPlace != 3 {
			t.Errorf("entry %s = %+v, want 1 win, 2 games, total 3", e.PlayerID, e)
		}
		if e.AvgPlace() != 1.5 {
			t.Errorf("entry %s avg = %f, want 1.5", e.PlayerID, e.AvgPlace())
		}
	}
}

func TestLeaderboardDrawAwardsNoWin(t *testing.T) {
	lb := NewLeaderboard()
	lb.Record([]Placement{
		{PlayerID: "a", Name: "A", Place: 1},
		{PlayerID: "b", Name: "B", Place: 2},
	}, "")

	for _, e := range lb.Ranked(allPresent) {
		if e.Wins != 0 {
			t.Errorf("draw gave %s a win", e.PlayerID)
		}
		if e.Games != 1 {
			t.Errorf("draw should still count as a game for %s", e.PlayerID)
		}
	}
}

func TestLeaderboardRankingOrder(t *testing.T) {
	lb := NewLeaderboard()
	// a: 2 wins over 3 games, avg 1.33
	lb.Record([]Placement{{PlayerID: "a", Name: "A", Place: 1}}, "a")
	lb.Record([]Placement{{PlayerID: "a", Name: "A", Place: 1}}, "a")
	lb.Record([]Placement{{PlayerID: "a", Name: "A", Place: 2}}, "")
	// b: 2 wins over 4 games, avg 1.5 — same wins, worse average
	lb.Record([]Placement{{PlayerID: "b", Name: "B", Place: 1}}, "b")
	lb.Record([]Placement{{PlayerID: "b", Name: "B", Place: 1}}, "b")
	lb.Record([]Placement{{PlayerID: "b", Name: "B", Place: 2}}, "")
	lb.Record([]Placement{{PlayerID: "b", Name: "B", Place: 2}}, "")
	// c: 3 wins, fewest games, best average — most wins leads outright
	lb.Record([]Placement{{PlayerID: "c", Name: "C", Place: 1}}, "c")
	lb.Record([]Placement{{PlayerID: "c", Name: "C", Place: 1}}, "c")
	lb.Record([]Placement{{PlayerID: "c", Name: "C", Place: 1}}, "c")

	out := lb.Ranked(allPresent)
	want := []string{"c", "a", "b"}
	for i, id := range want {
		if out[i].PlayerID != id {
			t.Fatalf("rank %d = %s, want %s (full order %v)", i+1, out[i].PlayerID, id, out)
		}
	}
}

func TestLeaderboardGamesTiebreak(t *testing.T) {
	lb := NewLeaderboard()
	// Identical wins and average; more games ranks higher
	lb.Record([]Placement{{PlayerID: "a", Name: "A", Place: 2}}, "")
	lb.Record([]Placement{{PlayerID: "b", Name: "B", Place: 2}}, "")
	lb.Record([]Placement{{PlayerID: "b", Name: "B", Place: 2}}, "")

	out := lb.Ranked(allPresent)
	if out[0].PlayerID != "b" {
		t.Errorf("more games should win the tiebreak, got %s first", out[0].PlayerID)
	}
}

func TestLeaderboardPresenceFilter(t *testing.T) {
	lb := NewLeaderboard()
	lb.Record([]Placement{
		{PlayerID: "a", Name: "A", Place: 1},
		{PlayerID: "gone", Name: "G", Place: 2},
	}, "a")

	out := lb.Ranked(func(id string) bool { return id != "gone" })
	if len(out) != 1 || out[0].PlayerID != "a" {
		t.Errorf("departed players must be filtered from the view, got %v", out)
	}

	// The underlying entry survives for a rejoin under the same identity
	out = lb.Ranked(allPresent)
	if len(out) != 2 {
		t.Errorf("filtering must not discard the aggregate, got %d entries", len(out))
	}
}

func TestAvgPlaceBeforeFirstGame(t *testing.T) {
	e := &BoardEntry{}
	if e.AvgPlace() != 0 {
		t.Errorf("AvgPlace with zero games = %f, want 0", e.AvgPlace())
	}
}
