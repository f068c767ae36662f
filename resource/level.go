package resource

import (
	"math"

	"github.com/solarlune/resolv"
)

const tagSolid = "solid"

// Level is the static layout of a loaded map: the tile grid plus a resolv
// space holding one solid object per wall tile. It answers the walkability and
// collision queries actor behaviors need.
//
// Level is not safe for concurrent use; Blocked moves a shared query object.
type Level struct {
	width, height int
	tileSize      float64
	walls         [][]bool

	space *resolv.Space
	query *resolv.Object
	solid int
}

// NewLevel builds a Level from decoded map data.
func NewLevel(md *MapData) *Level {
	ts := md.TileSize
	if ts <= 0 {
		ts = DefaultTileSize
	}
	cell := max(int(math.Ceil(ts)), 1)
	l := &Level{
		width:    md.Width,
		height:   md.Height,
		tileSize: ts,
		walls:    md.Walls,
		space:    resolv.NewSpace(int(math.Ceil(float64(md.Width)*ts)), int(math.Ceil(float64(md.Height)*ts)), cell, cell),
	}

	for y := 0; y < md.Height; y++ {
		for x := 0; x < md.Width; x++ {
			if !md.Wall(x, y) {
				continue
			}
			obj := resolv.NewObject(float64(x)*ts, float64(y)*ts, ts, ts, tagSolid)
			obj.SetShape(resolv.NewRectangle(0, 0, ts, ts))
			l.space.Add(obj)
			l.solid++
		}
	}

	l.query = resolv.NewObject(0, 0, 1, 1, "query")
	l.space.Add(l.query)
	return l
}

// SolidCount returns the number of wall tiles.
func (l *Level) SolidCount() int { return l.solid }

func (l *Level) TileSize() float64 { return l.tileSize }

func (l *Level) Bounds() (w, h int) { return l.width, l.height }

// WorldSize returns the level extent in world units.
func (l *Level) WorldSize() (w, h float64) {
	return float64(l.width) * l.tileSize, float64(l.height) * l.tileSize
}

func (l *Level) TileWalkable(tx, ty int) bool {
	if tx < 0 || ty < 0 || tx >= l.width || ty >= l.height {
		return false
	}
	return !l.walls[ty][tx]
}

func (l *Level) IsWalkable(x, y float64) bool {
	return l.TileWalkable(int(math.Floor(x/l.tileSize)), int(math.Floor(y/l.tileSize)))
}

// Blocked reports whether a square body of half-extent radius centred at
// (x, y) overlaps a wall tile or leaves the level.
func (l *Level) Blocked(x, y, radius float64) bool {
	if radius <= 0 {
		return !l.IsWalkable(x, y)
	}
	w, h := l.WorldSize()
	if x-radius < 0 || y-radius < 0 || x+radius > w || y+radius > h {
		return true
	}

	// The broadphase trims a unit off the far edges, so pad the query by one
	// and test exact bounds against the candidates.
	l.query.X, l.query.Y = x-radius, y-radius
	l.query.W, l.query.H = 2*radius+1, 2*radius+1
	l.query.Update()

	check := l.query.Check(0, 0, tagSolid)
	if check == nil {
		return false
	}
	minX, minY, maxX, maxY := x-radius, y-radius, x+radius, y+radius
	for _, o := range check.ObjectsByTags(tagSolid) {
		if minX < o.X+o.W && maxX > o.X && minY < o.Y+o.H && maxY > o.Y {
			return true
		}
	}
	return false
}
