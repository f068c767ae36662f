package world

import "math"

// Wiggle returns the render height of an actor: a sine bob around baseZ
// while it moves, baseZ otherwise. Purely cosmetic.
func Wiggle(baseZ, elapsed float64, moving bool, amplitude, frequency float64) float64 {
	if !moving {
		return baseZ
	}
	return baseZ + math.Sin(elapsed*frequency)*amplitude
}
