package effects

import (
	"sort"
	"time"
)

// Status is one entry of the status board.
type Status struct {
	Type      string        `json:"type"`
	Active    bool          `json:"active"`
	Level     float64       `json:"level,omitempty"`
	ExpiresAt time.Time     `json:"expires_at,omitzero"` // Zero = permanent
	Duration  time.Duration `json:"duration,omitempty"`
	Remaining time.Duration `json:"remaining,omitempty"`
}

// Timed reports whether the status expires on its own.
func (s Status) Timed() bool { return !s.ExpiresAt.IsZero() }

// Board is a keyed map of status effects. One entry per type: applying a
// type again refreshes it instead of stacking a second timer.
// Not safe for concurrent use.
type Board struct {
	entries map[string]*Status
}

// NewBoard returns an empty board.
func NewBoard() *Board {
	return &Board{entries: make(map[string]*Status)}
}

// Apply installs or refreshes a status. A zero duration makes it permanent.
func (b *Board) Apply(typ string, level float64, d time.Duration, now time.Time) Status {
	s, ok := b.entries[typ]
	if !ok {
		s = &Status{Type: typ}
		b.entries[typ] = s
	}
	s.Active = true
	s.Level = level
	s.Duration = d
	if d > 0 {
		s.ExpiresAt = now.Add(d)
		s.Remaining = d
	} else {
		s.ExpiresAt = time.Time{}
		s.Remaining = 0
	}
	return *s
}

// Remove drops a status. It reports whether one was present.
func (b *Board) Remove(typ string) bool {
	if _, ok := b.entries[typ]; !ok {
		return false
	}
	delete(b.entries, typ)
	return true
}

// Active reports whether typ is installed and not yet past its expiry.
func (b *Board) Active(typ string, now time.Time) bool {
	s, ok := b.entries[typ]
	if !ok || !s.Active {
		return false
	}
	return !s.Timed() || s.ExpiresAt.After(now)
}

// Level returns the level of an active status.
func (b *Board) Level(typ string, now time.Time) (float64, bool) {
	if !b.Active(typ, now) {
		return 0, false
	}
	return b.entries[typ].Level, true
}

// Sweep refreshes remaining times and removes every timed status whose
// expiry is at or before now. Each removed type is returned exactly once.
func (b *Board) Sweep(now time.Time) []string {
	var expired []string
	for typ, s := range b.entries {
		if !s.Timed() {
			continue
		}
		if !s.ExpiresAt.After(now) {
			delete(b.entries, typ)
			expired = append(expired, typ)
			continue
		}
		s.Remaining = s.ExpiresAt.Sub(now)
	}
	sort.Strings(expired)
	return expired
}

// List returns a copy of every status, ordered by type.
func (b *Board) List() []Status {
	out := make([]Status, 0, len(b.entries))
	for _, s := range b.entries {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}

// Len returns the number of installed statuses.
func (b *Board) Len() int { return len(b.entries) }
