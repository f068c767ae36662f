package world

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/yohamta/donburi"
	dmath "github.com/yohamta/donburi/features/math"
	"go.uber.org/zap"

	"github.com/ridleywinters/raiment-shell/game/ai"
	"github.com/ridleywinters/raiment-shell/game/combat"
	"github.com/ridleywinters/raiment-shell/resource"
)

// ErrUnknownActor is returned for an entity or ID that is not a live actor.
var ErrUnknownActor = errors.New("world: unknown actor")

// Settings are the simulation tuning values.
type Settings struct {
	WindupFraction  float64
	StunDuration    float64
	WiggleAmplitude float64
	WiggleFrequency float64
	WanderSpeed     float64
	PlayerRadius    float64
	Seed            int64
}

// DefaultSettings returns the stock tuning.
func DefaultSettings() Settings {
	return Settings{
		WindupFraction:  combat.DefaultWindupFraction,
		StunDuration:    combat.DefaultStunDuration,
		WiggleAmplitude: 0.1,
		WiggleFrequency: 10,
		WanderSpeed:     ai.DefaultWanderSpeed,
		PlayerRadius:    2,
	}
}

// Option configures a World.
type Option func(*World)

// WithEventLog sets the per-actor event sink.
func WithEventLog(l EventLog) Option {
	return func(w *World) {
		if l != nil {
			w.events = l
		}
	}
}

// WithScripts sets the script trigger.
func WithScripts(s ScriptTrigger) Option {
	return func(w *World) {
		if s != nil {
			w.scripts = s
		}
	}
}

// WithTarget sets what actors attack.
func WithTarget(t Target) Option {
	return func(w *World) { w.target = t }
}

// WithNavigator overrides the route planner handed to behaviors.
func WithNavigator(n ai.Navigator) Option {
	return func(w *World) { w.nav = n }
}

// World owns every live actor and advances them one tick at a time.
// It is driven from a single goroutine.
type World struct {
	ecs      donburi.World
	level    ai.Map
	settings Settings
	logger   *zap.Logger

	events  EventLog
	scripts ScriptTrigger
	target  Target
	nav     ai.Navigator

	// order is spawn order; passes walk it so results are reproducible.
	order []donburi.Entity
	byID  map[string]donburi.Entity
	dying []donburi.Entity
	seeds int64
}

// New creates an empty World over level.
func New(level ai.Map, settings Settings, logger *zap.Logger, opts ...Option) *World {
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &World{
		ecs:      donburi.NewWorld(),
		level:    level,
		settings: settings,
		logger:   logger,
		events:   nopLog{},
		scripts:  nopScripts{},
		byID:     make(map[string]donburi.Entity),
		seeds:    settings.Seed,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// SetTarget changes what actors attack. Nil disables attacks.
func (w *World) SetTarget(t Target) { w.target = t }

// SpawnAll instantiates every position against cat. If any entry names an
// unknown type nothing is spawned and every bad entry is reported.
func (w *World) SpawnAll(cat *resource.Catalogue, positions []resource.ActorPosition) ([]donburi.Entity, error) {
	defs := make([]*resource.ActorDefinition, len(positions))
	var errs []error
	for i, p := range positions {
		def, ok := cat.Lookup(p.ActorType)
		if !ok {
			errs = append(errs, fmt.Errorf("spawn #%d at (%.1f, %.1f): %w %q",
				i, p.X, p.Y, resource.ErrUnknownActorType, p.ActorType))
			continue
		}
		defs[i] = def
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	out := make([]donburi.Entity, 0, len(positions))
	for i, p := range positions {
		out = append(out, w.Spawn(defs[i], dmath.Vec2{X: p.X, Y: p.Y}))
	}
	w.logger.Info("actors spawned", zap.Int("count", len(out)))
	return out, nil
}

// Spawn creates one actor from def at pos. Stats are copied, so later
// catalogue swaps do not affect it.
func (w *World) Spawn(def *resource.ActorDefinition, pos dmath.Vec2) donburi.Entity {
	radius := w.settings.PlayerRadius * actorRadiusFactor
	w.seeds++
	behavior, ok := ai.New(def.Behavior, ai.Options{
		Radius:    radius,
		Speed:     w.settings.WanderSpeed,
		Seed:      w.seeds,
		Navigator: w.nav,
	})

	entity := w.ecs.Create(ActorComponent)
	entry := w.ecs.Entry(entity)
	a := Actor{
		ID:              w.newID(def.Name),
		Type:            def.Name,
		Entity:          entity,
		Vitals:          combat.NewVitals(def.MaxHealth),
		Defences:        def.Defences(),
		Radius:          radius,
		SpeedMultiplier: def.Speed,
		Pos:             pos,
		BaseZ:           def.Scale / 2,
		AttackDamage:    def.AttackDamage,
		AttackRange:     def.AttackRange,
		AttackCooldown:  def.AttackCooldown,
		Behavior:        behavior,
		Sprite:          def.Sprite,
		Scale:           def.Scale,
		OnHit:           def.OnHit,
		OnDeath:         def.OnDeath,
	}
	a.RenderZ = a.BaseZ
	ActorComponent.Set(entry, &a)

	w.order = append(w.order, entity)
	w.byID[a.ID] = entity

	if !ok {
		w.logger.Warn("unknown behavior, actor will stand",
			zap.String("actor", a.ID), zap.String("behavior", def.Behavior))
	}
	return entity
}

// newID returns "<type>-<8 hex chars>", never reusing a live or past ID.
func (w *World) newID(typ string) string {
	for {
		id := fmt.Sprintf("%s-%s", typ, uuid.NewString()[:8])
		if _, taken := w.byID[id]; !taken {
			return id
		}
	}
}

// Actor returns the actor stored on e.
func (w *World) Actor(e donburi.Entity) (*Actor, bool) {
	if !w.ecs.Valid(e) {
		return nil, false
	}
	return ActorComponent.Get(w.ecs.Entry(e)), true
}

// ActorByID returns the live actor with the given ID.
func (w *World) ActorByID(id string) (*Actor, bool) {
	e, ok := w.byID[id]
	if !ok {
		return nil, false
	}
	return w.Actor(e)
}

// Len returns the number of actors not yet removed.
func (w *World) Len() int { return len(w.order) }

// Each calls fn for every actor in spawn order.
func (w *World) Each(fn func(*Actor)) {
	for _, e := range w.order {
		if a, ok := w.Actor(e); ok {
			fn(a)
		}
	}
}

// ApplyDamage deals raw damage of kind to the actor on e. A live actor that
// is struck is stunned even if its armor absorbs everything. Hits on a dead
// actor are ignored.
func (w *World) ApplyDamage(e donburi.Entity, raw float64, kind combat.DamageKind) (combat.HitResult, error) {
	a, ok := w.Actor(e)
	if !ok {
		return combat.HitResult{}, ErrUnknownActor
	}
	if a.Dead {
		return combat.HitResult{Ignored: true}, nil
	}

	res := combat.ApplyDamage(&a.Vitals, a.Defences, raw, kind)
	if raw > 0 && !res.Killed {
		a.Attack = combat.Stun(a.Attack, w.settings.StunDuration)
	}

	if res.Loss > 0 {
		w.events.Write(a.ID, fmt.Sprintf("took %.2f %s damage (raw %.2f), health %.2f/%.2f",
			res.Loss, kind, raw, a.Vitals.Current, a.Vitals.Max))
		w.scripts.Fire(a.OnHit, a.scriptEvent(EventHit, res.Loss))
	}
	if res.Killed {
		w.kill(a, res.Loss)
	}
	return res, nil
}

// ApplyDamageByID is ApplyDamage keyed by actor ID.
func (w *World) ApplyDamageByID(id string, raw float64, kind combat.DamageKind) (combat.HitResult, error) {
	e, ok := w.byID[id]
	if !ok {
		return combat.HitResult{}, fmt.Errorf("%w: %s", ErrUnknownActor, id)
	}
	return w.ApplyDamage(e, raw, kind)
}

func (w *World) kill(a *Actor, loss float64) {
	a.Dead = true
	a.Moving = false
	a.RenderZ = a.BaseZ
	w.events.Write(a.ID, "died")
	w.scripts.Fire(a.OnDeath, a.scriptEvent(EventDeath, loss))
	w.events.Close(a.ID)
	w.dying = append(w.dying, a.Entity)
	w.logger.Debug("actor died", zap.String("actor", a.ID))
}

func (a *Actor) scriptEvent(kind string, damage float64) ScriptEvent {
	return ScriptEvent{
		Kind:      kind,
		ActorID:   a.ID,
		ActorType: a.Type,
		Damage:    damage,
		Health:    a.Vitals.Current,
		MaxHealth: a.Vitals.Max,
	}
}
