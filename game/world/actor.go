package world

import (
	"github.com/yohamta/donburi"
	dmath "github.com/yohamta/donburi/features/math"

	"github.com/ridleywinters/raiment-shell/game/ai"
	"github.com/ridleywinters/raiment-shell/game/combat"
)

// actorRadiusFactor sizes actors relative to the player's collision radius.
const actorRadiusFactor = 0.75

// Actor is the live state of one simulated non-player entity. Stats are
// copied from the catalogue at spawn and owned by the actor from then on.
type Actor struct {
	ID     string
	Type   string
	Entity donburi.Entity

	Vitals   combat.Vitals
	Defences combat.Defences

	Radius          float64
	SpeedMultiplier float64
	Moving          bool
	Pos             dmath.Vec2
	BaseZ           float64
	RenderZ         float64

	AttackDamage   int
	AttackRange    float64
	AttackCooldown float64
	Attack         combat.AttackTimers

	Behavior ai.Behavior

	// Dead is set on the hit that drains health; the actor is removed at the
	// end of the current tick.
	Dead bool
	// Inert actors failed internally and no longer act.
	Inert bool

	Sprite  string
	Scale   float64
	OnHit   string
	OnDeath string
}

// ActorComponent stores Actor on donburi entities.
var ActorComponent = donburi.NewComponentType[Actor]()

// Active reports whether the actor takes part in the behavior and attack passes.
func (a *Actor) Active() bool { return !a.Dead && !a.Inert }

// SetPhysicalResistance updates resistance, clamped to [0, 1].
func (a *Actor) SetPhysicalResistance(v float64) {
	a.Defences.SetResistance(combat.Physical, v)
}

func (a *Actor) attackParams(s Settings) combat.AttackParams {
	return combat.AttackParams{
		Cooldown:       a.AttackCooldown,
		WindupFraction: s.WindupFraction,
		StunDuration:   s.StunDuration,
	}
}
