package world

import (
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/ridleywinters/raiment-shell/game/ai"
	"github.com/ridleywinters/raiment-shell/game/combat"
)

// Tick advances the simulation by dt seconds. elapsed is total session time
// and only drives the cosmetic wiggle.
//
// The passes run strictly in order: behavior, attack, presentation. A failure
// in one actor never stops the others; actors that panic are made inert.
// Actors that died during the tick (or since the last one) are removed at
// the end.
func (w *World) Tick(dt, elapsed float64) {
	if dt < 0 || math.IsNaN(dt) {
		dt = 0
	}
	w.behaviorPass(dt)
	w.attackPass(dt)
	w.presentationPass(elapsed)
	w.removeDead()
}

func (w *World) behaviorPass(dt float64) {
	for _, e := range w.order {
		a, ok := w.Actor(e)
		if !ok || !a.Active() {
			continue
		}
		w.guard(a, "behavior", func() {
			a.Moving = false
			if a.Behavior == nil {
				return
			}
			pos, moving, err := a.Behavior.Decide(a.Pos, w.level, dt, a.SpeedMultiplier)
			if err != nil {
				w.logger.Debug("behavior failed",
					zap.String("actor", a.ID),
					zap.Bool("no_path", errors.Is(err, ai.ErrNoPath)),
					zap.Error(err))
				return
			}
			a.Pos = pos
			a.Moving = moving
		})
	}
}

func (w *World) attackPass(dt float64) {
	for _, e := range w.order {
		a, ok := w.Actor(e)
		if !ok || !a.Active() {
			continue
		}
		w.guard(a, "attack", func() {
			ev := combat.StepEvents{Trigger: w.shouldTrigger(a)}
			next, struck := combat.Step(a.Attack, a.attackParams(w.settings), dt, ev)
			a.Attack = next
			if struck {
				w.strike(a)
			}
		})
	}
}

// shouldTrigger reports whether an idle actor should start an attack.
func (w *World) shouldTrigger(a *Actor) bool {
	if a.AttackDamage <= 0 || w.target == nil || !w.target.Alive() {
		return false
	}
	if a.Attack.State != combat.Idle || a.Attack.Elapsed != 0 || a.Attack.Stunned() {
		return false
	}
	tp := w.target.Position()
	return math.Hypot(tp.X-a.Pos.X, tp.Y-a.Pos.Y) <= a.AttackRange
}

func (w *World) strike(a *Actor) {
	if w.target == nil || !w.target.Alive() {
		return
	}
	res := w.target.ReceiveStrike(float64(a.AttackDamage), combat.Physical)
	w.events.Write(a.ID, fmt.Sprintf("struck target for %.2f (raw %d)", res.Loss, a.AttackDamage))
}

func (w *World) presentationPass(elapsed float64) {
	for _, e := range w.order {
		a, ok := w.Actor(e)
		if !ok {
			continue
		}
		a.RenderZ = Wiggle(a.BaseZ, elapsed, a.Moving && a.Active(),
			w.settings.WiggleAmplitude, w.settings.WiggleFrequency)
	}
}

func (w *World) removeDead() {
	if len(w.dying) == 0 {
		return
	}
	for _, e := range w.dying {
		if w.ecs.Valid(e) {
			w.ecs.Remove(e)
		}
	}
	w.dying = w.dying[:0]

	kept := w.order[:0]
	for _, e := range w.order {
		if w.ecs.Valid(e) {
			kept = append(kept, e)
		}
	}
	w.order = kept
}

// guard runs fn and turns a panic into an inert actor.
func (w *World) guard(a *Actor, pass string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			a.Inert = true
			a.Moving = false
			w.logger.Error("actor made inert",
				zap.String("actor", a.ID),
				zap.String("pass", pass),
				zap.Any("panic", r))
			w.events.Write(a.ID, fmt.Sprintf("stopped acting: %v", r))
		}
	}()
	fn()
}
