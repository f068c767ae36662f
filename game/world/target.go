package world

import (
	dmath "github.com/yohamta/donburi/features/math"

	"github.com/ridleywinters/raiment-shell/game/combat"
)

// Target is something actors can strike.
type Target interface {
	Position() dmath.Vec2
	Alive() bool
	// ReceiveStrike runs raw damage through the target's own mitigation.
	ReceiveStrike(raw float64, kind combat.DamageKind) combat.HitResult
}

// Player is the strike target controlled by the user.
type Player struct {
	Pos      dmath.Vec2
	Radius   float64
	Vitals   combat.Vitals
	Defences combat.Defences
}

// NewPlayer creates a player at pos with full health.
func NewPlayer(pos dmath.Vec2, radius, maxHealth float64) *Player {
	return &Player{Pos: pos, Radius: radius, Vitals: combat.NewVitals(maxHealth)}
}

func (p *Player) Position() dmath.Vec2 { return p.Pos }

func (p *Player) Alive() bool { return p.Vitals.Alive() }

func (p *Player) ReceiveStrike(raw float64, kind combat.DamageKind) combat.HitResult {
	return combat.ApplyDamage(&p.Vitals, p.Defences, raw, kind)
}

// TakeDamage removes amount from health without mitigation.
func (p *Player) TakeDamage(amount float64) combat.HitResult {
	return combat.ApplyDamage(&p.Vitals, combat.Defences{}, amount, combat.Physical)
}

// Heal restores health up to the maximum. A dead player stays dead.
func (p *Player) Heal(amount float64) { p.Vitals.Heal(amount) }
