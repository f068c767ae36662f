package ai

import (
	"math"
	"math/rand"

	dmath "github.com/yohamta/donburi/features/math"
)

// Wander tuning.
const (
	DefaultWanderSpeed = 8.0 // one tile per second on an 8-unit grid
	wanderGoalRange    = 6   // tiles
	wanderGoalAttempts = 8
	wanderRestMin      = 0.5
	wanderRestMax      = 2.0
	wanderRepathDelay  = 0.75
)

// Wander strolls between random reachable tiles near the actor, resting at
// each goal. Planning goes through the Navigator; every step is checked
// against the Map for the actor's radius.
type Wander struct {
	radius float64
	speed  float64
	nav    Navigator
	rng    *rand.Rand

	path   []dmath.Vec2
	rest   float64 // seconds left before picking a new goal
	repath float64 // seconds left before planning again after a failure

	tree *BehaviorTree
}

// NewWander creates a Wander from opts. A nil Navigator means AStar.
func NewWander(opts Options) *Wander {
	w := &Wander{
		radius: opts.Radius,
		speed:  opts.Speed,
		nav:    opts.Navigator,
		rng:    rand.New(rand.NewSource(opts.Seed)),
	}
	if w.speed <= 0 {
		w.speed = DefaultWanderSpeed
	}
	if w.nav == nil {
		w.nav = AStar{}
	}
	w.tree = &BehaviorTree{Root: &Selector{Children: []Node{
		&Sequence{Children: []Node{Condition(w.waiting), Action(w.wait)}},
		&Sequence{Children: []Node{&Inverter{Child: Condition(w.hasPath)}, Action(w.plan), Action(w.follow)}},
		Action(w.follow),
	}}}
	return w
}

func (w *Wander) Label() string { return LabelWander }

func (w *Wander) Decide(pos dmath.Vec2, m Map, dt, speedMultiplier float64) (dmath.Vec2, bool, error) {
	if m == nil {
		return pos, false, ErrNoMap
	}
	ctx := &Context{Pos: pos, Map: m, Delta: dt, Speed: speedMultiplier}
	w.tree.Tick(ctx)
	if ctx.Err != nil || !ctx.Moved {
		return pos, false, ctx.Err
	}
	return ctx.Pos, true, nil
}

func (w *Wander) waiting(*Context) bool { return w.rest > 0 || w.repath > 0 }

func (w *Wander) wait(ctx *Context) Status {
	w.rest = math.Max(w.rest-ctx.Delta, 0)
	w.repath = math.Max(w.repath-ctx.Delta, 0)
	return StatusSuccess
}

func (w *Wander) hasPath(*Context) bool { return len(w.path) > 0 }

func (w *Wander) plan(ctx *Context) Status {
	goal, ok := w.pickGoal(ctx)
	if !ok {
		w.repath = wanderRepathDelay
		ctx.Err = ErrNoPath
		return StatusFailure
	}
	path, err := w.nav.Plan(ctx.Map, ctx.Pos, goal)
	if err != nil || len(path) == 0 {
		w.repath = wanderRepathDelay
		if err == nil {
			err = ErrNoPath
		}
		ctx.Err = err
		return StatusFailure
	}
	w.path = path
	return StatusSuccess
}

// pickGoal chooses a random walkable tile centre within range, other than the
// one the actor stands on.
func (w *Wander) pickGoal(ctx *Context) (dmath.Vec2, bool) {
	here := tileOf(ctx.Map, ctx.Pos)
	for i := 0; i < wanderGoalAttempts; i++ {
		pt := Point{
			X: here.X + w.rng.Intn(2*wanderGoalRange+1) - wanderGoalRange,
			Y: here.Y + w.rng.Intn(2*wanderGoalRange+1) - wanderGoalRange,
		}
		if pt == here || !ctx.Map.TileWalkable(pt.X, pt.Y) {
			continue
		}
		return centerOf(ctx.Map, pt), true
	}
	return dmath.Vec2{}, false
}

func (w *Wander) follow(ctx *Context) Status {
	if len(w.path) == 0 {
		return StatusFailure
	}
	budget := w.speed * ctx.Speed * ctx.Delta
	if budget <= 0 {
		return StatusRunning
	}

	next := ctx.Pos
	for budget > 0 && len(w.path) > 0 {
		wp := w.path[0]
		dx, dy := wp.X-next.X, wp.Y-next.Y
		dist := math.Hypot(dx, dy)
		if dist <= budget {
			next = wp
			budget -= dist
			w.path = w.path[1:]
			continue
		}
		next = dmath.Vec2{X: next.X + dx/dist*budget, Y: next.Y + dy/dist*budget}
		budget = 0
	}

	if ctx.Map.Blocked(next.X, next.Y, w.radius) {
		w.path = nil
		w.repath = wanderRepathDelay
		return StatusFailure
	}

	ctx.Moved = next != ctx.Pos
	ctx.Pos = next
	if len(w.path) == 0 {
		w.rest = wanderRestMin + w.rng.Float64()*(wanderRestMax-wanderRestMin)
		return StatusSuccess
	}
	return StatusRunning
}
