package engine

// Notice categories passed to the Notifier.
const (
	CategoryInfo    = "info"
	CategorySuccess = "success"
	CategoryError   = "error"
	CategoryWarning = "warning"
	CategoryEvent   = "event"
	CategoryQuantum = "quantum"
)

// Sound cues.
const (
	SoundBuy      = "buy"
	SoundSell     = "sell"
	SoundError    = "error"
	SoundUse      = "use"
	SoundTravel   = "travel"
	SoundJump     = "jump"
	SoundDelivery = "delivery"
	SoundAlarm    = "alarm"
)

// Notifier receives user-facing notices. Calls happen while the engine holds
// its lock, so implementations must not call back into the engine.
type Notifier interface {
	AddFloatingMessage(text, category string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(text, category string)

func (f NotifierFunc) AddFloatingMessage(text, category string) { f(text, category) }

// Sounds plays fire-and-forget sound cues.
type Sounds interface {
	Play(name string)
}

// Progression is the sibling context owning AI level and courier drones.
// The engine mirrors both values and reports every change.
type Progression interface {
	SetAILevel(level float64)
	SetCourierDrones(n int)
}

// Encounters spawns hostile encounters.
type Encounters interface {
	SpawnEnemy(kind string)
}

type nopNotifier struct{}

func (nopNotifier) AddFloatingMessage(string, string) {}

type nopSounds struct{}

func (nopSounds) Play(string) {}

type nopProgression struct{}

func (nopProgression) SetAILevel(float64)  {}
func (nopProgression) SetCourierDrones(int) {}

type nopEncounters struct{}

func (nopEncounters) SpawnEnemy(string) {}
