package main

import (
	"testing"
	"time"
)

func TestLoopDueOnSchedule(t *testing.T) {
	l := NewLoop(30, nil)
	base := time.UnixMilli(1_000_000)
	l.next = base

	due := l.Due(base)
	if len(due) != 1 {
		t.Fatalf("expected 1 due tick at the scheduled time, got %d", len(due))
	}
	if !due[0].Equal(base) {
		t.Errorf("due tick should carry the scheduled time, got %v", due[0])
	}
	if !l.next.Equal(base.Add(l.interval)) {
		t.Errorf("next should advance by one interval, got %v", l.next)
	}
}

func TestLoopDueNotYet(t *testing.T) {
	l := NewLoop(30, nil)
	base := time.UnixMilli(1_000_000)
	l.next = base

	if due := l.Due(base.Add(-time.Millisecond)); len(due) != 0 {
		t.Errorf("nothing should be due before the schedule, got %d", len(due))
	}
	if !l.next.Equal(base) {
		t.Error("an empty poll must not move the schedule")
	}
}

func TestLoopDriftCompensation(t *testing.T) {
	// A poll arriving late still ticks on the scheduled timestamps, so the
	// simulation clock does not drift with scheduler jitter.
	l := NewLoop(30, nil)
	base := time.UnixMilli(1_000_000)
	l.next = base

	late := base.Add(l.interval*2 + l.interval/2) // 2.5 intervals late
	due := l.Due(late)
	if len(due) != 3 {
		t.Fatalf("expected 3 owed ticks, got %d", len(due))
	}
	for i, d := range due {
		want := base.Add(time.Duration(i) * l.interval)
		if !d.Equal(want) {
			t.Errorf("tick %d timestamp = %v, want %v", i, d, want)
		}
	}
	if !l.next.Equal(base.Add(3 * l.interval)) {
		t.Errorf("next should stay on the original grid, got %v", l.next)
	}
}

func TestLoopCatchUpBounded(t *testing.T) {
	l := NewLoop(30, nil)
	base := time.UnixMilli(1_000_000)
	l.next = base

	// A full second behind at 30hz owes ~30 ticks; only the cap runs
	far := base.Add(time.Second)
	due := l.Due(far)
	if len(due) != MaxCatchUpTicks {
		t.Fatalf("expected backlog capped at %d, got %d", MaxCatchUpTicks, len(due))
	}
	if !l.next.Equal(far.Add(l.interval)) {
		t.Errorf("overrun should rebase the schedule to now, got next=%v", l.next)
	}

	// After the rebase the loop is current again
	if due := l.Due(far); len(due) != 0 {
		t.Errorf("rebased loop owes nothing at the same instant, got %d", len(due))
	}
}

func TestLoopRunStop(t *testing.T) {
	ticks := make(chan time.Time, 64)
	l := NewLoop(100, func(now time.Time, dt float64) {
		if dt <= 0 {
			t.Errorf("dt must be positive, got %f", dt)
		}
		select {
		case ticks <- now:
		default:
		}
	})

	done := make(chan struct{})
	go func() {
		l.Run()
		close(done)
	}()

	select {
	case <-ticks:
	case <-time.After(time.Second):
		t.Fatal("loop produced no ticks")
	}

	l.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("loop did not stop")
	}
}
