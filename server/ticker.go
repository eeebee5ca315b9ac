package main

import "time"

// MaxCatchUpTicks bounds how many missed ticks a loop runs back to back
// when the process falls behind. Anything older is dropped so a long GC
// pause or suspend does not trigger a tick storm.
const MaxCatchUpTicks = 5

// Loop drives a callback at a fixed rate using an expected-time
// accumulator instead of naive sleep-then-tick, so scheduling jitter
// does not drift the simulation clock.
type Loop struct {
	interval time.Duration
	fn       func(now time.Time, dt float64)
	next     time.Time
	stop     chan struct{}
}

// NewLoop creates a loop that calls fn hz times per second
func NewLoop(hz int, fn func(now time.Time, dt float64)) *Loop {
	return &Loop{
		interval: time.Second / time.Duration(hz),
		fn:       fn,
		stop:     make(chan struct{}),
	}
}

// Run blocks, invoking the callback until Stop is called
func (l *Loop) Run() {
	l.next = time.Now()
	for {
		select {
		case <-l.stop:
			return
		default:
		}

		now := time.Now()
		for _, n := range l.Due(now) {
			l.fn(n, l.interval.Seconds())
		}

		wait := time.Until(l.next)
		if wait > 0 {
			select {
			case <-time.After(wait):
			case <-l.stop:
				return
			}
		}
	}
}

// Stop terminates the loop. Safe to call once.
func (l *Loop) Stop() {
	close(l.stop)
}

// Due returns the tick timestamps that are owed at now and advances the
// expected-time accumulator. At most MaxCatchUpTicks are returned; if
// the backlog is larger the schedule is rebased to now.
func (l *Loop) Due(now time.Time) []time.Time {
	var due []time.Time
	for !now.Before(l.next) {
		if len(due) == MaxCatchUpTicks {
			// Too far behind, drop the remaining backlog
			l.next = now.Add(l.interval)
			return due
		}
		due = append(due, l.next)
		l.next = l.next.Add(l.interval)
	}
	return due
}
