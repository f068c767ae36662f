package ai

import (
	"container/heap"

	dmath "github.com/yohamta/donburi/features/math"
)

// Point is a tile coordinate.
type Point struct {
	X, Y int
}

// DefaultMaxNodes bounds the number of tiles AStar expands per Plan call so a
// single query can never stall a tick.
const DefaultMaxNodes = 4096

// AStar plans 4-connected routes over a Map's tile grid.
type AStar struct {
	MaxNodes int
}

// Plan implements Navigator. Waypoints are tile centres except the last one,
// which is the exact goal.
func (a AStar) Plan(m Map, from, goal dmath.Vec2) ([]dmath.Vec2, error) {
	if m == nil {
		return nil, ErrNoMap
	}
	start, end := tileOf(m, from), tileOf(m, goal)
	if !m.TileWalkable(end.X, end.Y) {
		return nil, ErrNoPath
	}
	tiles := a.search(m, start, end)
	if tiles == nil {
		return nil, ErrNoPath
	}
	out := make([]dmath.Vec2, 0, len(tiles))
	for i, pt := range tiles {
		if i == len(tiles)-1 {
			out = append(out, goal)
			break
		}
		out = append(out, centerOf(m, pt))
	}
	if len(out) == 0 {
		// Same tile: walk straight to the goal.
		out = append(out, goal)
	}
	return out, nil
}

type pathNode struct {
	pt     Point
	g, f   int
	parent *pathNode
	index  int
}

type openSet []*pathNode

func (o openSet) Len() int { return len(o) }
func (o openSet) Less(i, j int) bool {
	if o[i].f == o[j].f {
		return o[i].g > o[j].g
	}
	return o[i].f < o[j].f
}
func (o openSet) Swap(i, j int) {
	o[i], o[j] = o[j], o[i]
	o[i].index = i
	o[j].index = j
}
func (o *openSet) Push(x any) {
	n := x.(*pathNode)
	n.index = len(*o)
	*o = append(*o, n)
}
func (o *openSet) Pop() any {
	old := *o
	n := old[len(old)-1]
	old[len(old)-1] = nil
	*o = old[:len(old)-1]
	return n
}

var neighbours = [4]Point{{0, 1}, {0, -1}, {1, 0}, {-1, 0}}

// search returns the tile path from start to end excluding start, an empty
// slice when they are equal, or nil when unreachable within budget.
func (a AStar) search(m Map, start, end Point) []Point {
	if start == end {
		return []Point{}
	}
	budget := a.MaxNodes
	if budget <= 0 {
		budget = DefaultMaxNodes
	}

	heuristic := func(p Point) int {
		return abs(p.X-end.X) + abs(p.Y-end.Y)
	}

	open := &openSet{}
	closed := make(map[Point]bool)
	gScore := map[Point]int{start: 0}
	heap.Push(open, &pathNode{pt: start, f: heuristic(start)})

	expanded := 0
	for open.Len() > 0 {
		cur := heap.Pop(open).(*pathNode)
		if closed[cur.pt] {
			continue
		}
		closed[cur.pt] = true

		if cur.pt == end {
			var path []Point
			for n := cur; n.parent != nil; n = n.parent {
				path = append(path, n.pt)
			}
			for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
				path[i], path[j] = path[j], path[i]
			}
			return path
		}

		expanded++
		if expanded > budget {
			return nil
		}

		for _, d := range neighbours {
			np := Point{cur.pt.X + d.X, cur.pt.Y + d.Y}
			if closed[np] || !m.TileWalkable(np.X, np.Y) {
				continue
			}
			ng := cur.g + 1
			if prev, ok := gScore[np]; ok && ng >= prev {
				continue
			}
			gScore[np] = ng
			heap.Push(open, &pathNode{pt: np, g: ng, f: ng + heuristic(np), parent: cur})
		}
	}
	return nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
