package world

// EventLog receives one line per notable actor event. Implementations must
// not block the caller.
type EventLog interface {
	Write(actorID, msg string)
	// Close ends the actor's stream. Closing twice is harmless.
	Close(actorID string)
}

// ScriptEvent describes what caused a script reference to fire.
type ScriptEvent struct {
	Kind      string // "hit" or "death"
	ActorID   string
	ActorType string
	Damage    float64
	Health    float64
	MaxHealth float64
}

// Script event kinds.
const (
	EventHit   = "hit"
	EventDeath = "death"
)

// ScriptTrigger fires script references without waiting for them.
type ScriptTrigger interface {
	Fire(ref string, ev ScriptEvent)
}

type nopLog struct{}

func (nopLog) Write(string, string) {}
func (nopLog) Close(string)         {}

type nopScripts struct{}

func (nopScripts) Fire(string, ScriptEvent) {}
