package world

import (
	"math"

	"github.com/ridleywinters/raiment-shell/resource"
)

const (
	itemGrid      = 8.0
	itemTolerance = 0.1
)

type cell struct{ X, Y int }

// ItemTracker records where items lie so they can be picked up and saved.
type ItemTracker struct {
	cells map[cell]struct{}
	items []resource.ItemPosition
}

// NewItemTracker returns a tracker seeded with positions.
func NewItemTracker(positions []resource.ItemPosition) *ItemTracker {
	t := &ItemTracker{cells: make(map[cell]struct{})}
	for _, p := range positions {
		t.Add(p.X, p.Y, p.ItemType)
	}
	return t
}

func cellOf(x, y float64) cell {
	return cell{X: int(math.Floor(x / itemGrid)), Y: int(math.Floor(y / itemGrid))}
}

// Add places an item. An empty type means resource.DefaultItemType.
func (t *ItemTracker) Add(x, y float64, itemType string) {
	if itemType == "" {
		itemType = resource.DefaultItemType
	}
	t.cells[cellOf(x, y)] = struct{}{}
	t.items = append(t.items, resource.ItemPosition{X: x, Y: y, ItemType: itemType})
}

// Occupied reports whether the grid cell containing (x, y) holds an item.
func (t *ItemTracker) Occupied(x, y float64) bool {
	_, ok := t.cells[cellOf(x, y)]
	return ok
}

// RemoveAt frees the grid cell at (x, y) and drops every item within 0.1
// units of it on both axes.
func (t *ItemTracker) RemoveAt(x, y float64) {
	delete(t.cells, cellOf(x, y))
	kept := t.items[:0]
	for _, it := range t.items {
		if math.Abs(it.X-x) > itemTolerance || math.Abs(it.Y-y) > itemTolerance {
			kept = append(kept, it)
		}
	}
	t.items = kept
}

// Positions returns a copy of the tracked items, for saving.
func (t *ItemTracker) Positions() []resource.ItemPosition {
	out := make([]resource.ItemPosition, len(t.items))
	copy(out, t.items)
	return out
}

// Len returns the number of tracked items.
func (t *ItemTracker) Len() int { return len(t.items) }
