package ai

import (
	"errors"

	dmath "github.com/yohamta/donburi/features/math"
)

// ErrNoPath is returned when no route to a goal can be found within budget.
var ErrNoPath = errors.New("ai: no path")

// ErrNoMap is returned when a behavior that needs the level is called without one.
var ErrNoMap = errors.New("ai: no map")

// Map is the read-only query surface over a level's static layout.
// Implemented by *resource.Level; declared here so the AI layer does not
// import the loader.
type Map interface {
	// IsWalkable reports whether a world position lies on a floor tile.
	IsWalkable(x, y float64) bool
	// Blocked reports whether a body of the given radius centred at (x, y)
	// would overlap a wall or leave the level.
	Blocked(x, y, radius float64) bool
	TileSize() float64
	Bounds() (w, h int)
	TileWalkable(tx, ty int) bool
}

// Navigator plans a route across a Map. The returned waypoints exclude the
// start and end at the goal.
type Navigator interface {
	Plan(m Map, from, goal dmath.Vec2) ([]dmath.Vec2, error)
}

// Context is handed to every behavior tree node during one Decide call.
// Nodes read the inputs and write Pos, Moved and Err.
type Context struct {
	Pos   dmath.Vec2
	Map   Map
	Delta float64 // seconds since last tick
	Speed float64 // actor speed multiplier

	Moved bool
	Err   error
}

// tileOf converts a world position to tile coordinates.
func tileOf(m Map, p dmath.Vec2) Point {
	ts := m.TileSize()
	if ts <= 0 {
		ts = 1
	}
	return Point{X: floorDiv(p.X, ts), Y: floorDiv(p.Y, ts)}
}

// centerOf returns the world position of a tile's centre.
func centerOf(m Map, pt Point) dmath.Vec2 {
	ts := m.TileSize()
	return dmath.Vec2{X: (float64(pt.X) + 0.5) * ts, Y: (float64(pt.Y) + 0.5) * ts}
}

func floorDiv(v, size float64) int {
	q := v / size
	i := int(q)
	if q < 0 && float64(i) != q {
		i--
	}
	return i
}
