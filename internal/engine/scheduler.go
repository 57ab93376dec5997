// Package engine drives the market simulation: one state struct, advanced
// by a monotonic scheduler and mutated by the transaction API.
package engine

import "time"

// job is one periodic system on the scheduler.
type job struct {
	name  string
	every time.Duration
	run   func(now time.Time, elapsed time.Duration)
	last  time.Time
	next  time.Time
}

// Scheduler dispatches due jobs in registration order. It owns no clock:
// callers pass the current time to Advance, which makes runs replayable.
type Scheduler struct {
	jobs    []*job
	started bool
	now     time.Time
}

// Every registers a job. Registration order is dispatch order.
func (s *Scheduler) Every(name string, every time.Duration, run func(now time.Time, elapsed time.Duration)) {
	if every <= 0 {
		every = time.Second
	}
	j := &job{name: name, every: every, run: run}
	if s.started {
		j.last = s.now
		j.next = s.now.Add(every)
	}
	s.jobs = append(s.jobs, j)
}

// Advance runs every job that is due at now and returns how many ran.
// The first call only anchors the schedule. Time going backwards is ignored.
// A job that fell several periods behind runs once with the full elapsed time.
func (s *Scheduler) Advance(now time.Time) int {
	if !s.started {
		s.started = true
		s.now = now
		for _, j := range s.jobs {
			j.last = now
			j.next = now.Add(j.every)
		}
		return 0
	}
	if now.Before(s.now) {
		return 0
	}
	s.now = now

	ran := 0
	for _, j := range s.jobs {
		if now.Before(j.next) {
			continue
		}
		j.run(now, now.Sub(j.last))
		j.last = now
		j.next = j.next.Add(j.every)
		if !j.next.After(now) {
			j.next = now.Add(j.every)
		}
		ran++
	}
	return ran
}

// Now returns the time of the last Advance.
func (s *Scheduler) Now() time.Time { return s.now }
