package ai

import (
	"strings"

	dmath "github.com/yohamta/donburi/features/math"
)

// Behavior decides an actor's motion for one tick.
//
// Implementations own only their private planning state and never hold a
// reference back to the actor they drive. Decide must not block.
type Behavior interface {
	// Decide returns the new position and whether the actor moved. On error
	// the returned position is pos and moving is false.
	Decide(pos dmath.Vec2, m Map, dt, speedMultiplier float64) (dmath.Vec2, bool, error)
	// Label is the stable name used in catalogues and diagnostics.
	Label() string
}

const (
	LabelStand  = "stand"
	LabelWander = "wander"
)

// Options configures behaviors built by New.
type Options struct {
	Radius    float64 // collision radius of the actor
	Speed     float64 // world units per second at multiplier 1
	Seed      int64
	Navigator Navigator
}

// New builds the behavior registered under label. Unknown labels yield Stand
// and ok=false so the caller can report the fallback.
func New(label string, opts Options) (b Behavior, ok bool) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case LabelStand:
		return Stand{}, true
	case LabelWander:
		return NewWander(opts), true
	}
	return Stand{}, false
}

// Stand never moves.
type Stand struct{}

func (Stand) Decide(pos dmath.Vec2, _ Map, _, _ float64) (dmath.Vec2, bool, error) {
	return pos, false, nil
}

func (Stand) Label() string { return LabelStand }
