package api

import (
	"sync"
	"time"
)

// Message is one entry of the player-facing feed.
type Message struct {
	Seq      uint64    `json:"seq"`
	Time     time.Time `json:"time"`
	Text     string    `json:"text"`
	Category string    `json:"category"`
}

// Feed collects engine notices, sound cues and encounters into a bounded
// sequence that clients poll or stream. It satisfies engine.Notifier,
// engine.Sounds and engine.Encounters.
type Feed struct {
	mu   sync.Mutex
	msgs []Message
	seq  uint64
	max  int
}

// NewFeed keeps at most capacity messages.
func NewFeed(capacity int) *Feed {
	if capacity <= 0 {
		capacity = 200
	}
	return &Feed{max: capacity}
}

func (f *Feed) AddFloatingMessage(text, category string) { f.add(text, category) }

// Play records a sound cue for clients that render audio.
func (f *Feed) Play(name string) { f.add(name, "sound") }

// SpawnEnemy announces a hostile encounter.
func (f *Feed) SpawnEnemy(kind string) { f.add(kind, "encounter") }

func (f *Feed) add(text, category string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	f.msgs = append(f.msgs, Message{Seq: f.seq, Time: time.Now(), Text: text, Category: category})
	if over := len(f.msgs) - f.max; over > 0 {
		f.msgs = append(f.msgs[:0:0], f.msgs[over:]...)
	}
}

// Last returns the sequence number of the newest message.
func (f *Feed) Last() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.seq
}

// Since returns every retained message newer than seq and the newest seq.
func (f *Feed) Since(seq uint64) ([]Message, uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []Message{}
	for _, m := range f.msgs {
		if m.Seq > seq {
			out = append(out, m)
		}
	}
	return out, f.seq
}
