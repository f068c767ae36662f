package combat

import (
	"fmt"
	"math"
	"strings"
)

// DamageKind identifies the resistance a hit is checked against.
type DamageKind int

const (
	Physical DamageKind = iota
)

var kindNames = map[DamageKind]string{
	Physical: "physical",
}

func (k DamageKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseDamageKind maps a catalogue name ("physical") to its DamageKind.
func ParseDamageKind(name string) (DamageKind, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for k, s := range kindNames {
		if s == name {
			return k, true
		}
	}
	return 0, false
}

// Vitals is a health pool. Current is kept within [0, Max].
type Vitals struct {
	Current float64
	Max     float64
}

// NewVitals returns a full health pool.
func NewVitals(max float64) Vitals {
	if max < 0 {
		max = 0
	}
	return Vitals{Current: max, Max: max}
}

// Alive reports whether the pool is above zero.
func (v Vitals) Alive() bool { return v.Current > 0 }

// Heal restores up to amount, never above Max. Dead pools stay dead.
func (v *Vitals) Heal(amount float64) {
	if !v.Alive() || amount <= 0 {
		return
	}
	v.Current = clamp(v.Current+amount, 0, v.Max)
}

// Defences bundles flat armor and fractional resistances.
// PhysicalResistance and every Resistances entry are in [0, 1]; 1 means immune.
type Defences struct {
	Armor              int
	PhysicalResistance float64
	Resistances        map[DamageKind]float64
}

// ResistanceFor returns the clamped resistance against kind. Kinds without an
// entry resist nothing.
func (d Defences) ResistanceFor(kind DamageKind) float64 {
	if kind == Physical {
		return Clamp01(d.PhysicalResistance)
	}
	return Clamp01(d.Resistances[kind])
}

// SetResistance stores a clamped resistance for kind.
func (d *Defences) SetResistance(kind DamageKind, value float64) {
	if kind == Physical {
		d.PhysicalResistance = Clamp01(value)
		return
	}
	if d.Resistances == nil {
		d.Resistances = make(map[DamageKind]float64)
	}
	d.Resistances[kind] = Clamp01(value)
}

// HitResult is the outcome of one damage application.
type HitResult struct {
	Mitigated float64 // raw after armor and resistance
	Loss      float64 // health actually removed; Mitigated capped by what was left
	Killed    bool    // health crossed from above zero to zero on this hit
	Ignored   bool    // target was already dead
}

// Mitigate turns a raw amount into the health loss for the given armor and
// resistance. The result is never negative and never above raw.
func Mitigate(raw float64, armor int, resistance float64) float64 {
	if raw <= 0 || math.IsNaN(raw) {
		return 0
	}
	// ① flat armor, floored so armor never heals
	reduced := raw - float64(max(armor, 0))
	if reduced <= 0 {
		return 0
	}
	// ② fractional resistance; full resistance is immunity even to +Inf
	res := Clamp01(resistance)
	if res >= 1 {
		return 0
	}
	if loss := reduced * (1 - res); loss > 0 {
		return loss
	}
	return 0
}

// ApplyDamage runs the mitigation pipeline against v and d and subtracts the
// loss from v. Damage to a dead pool is a no-op.
func ApplyDamage(v *Vitals, d Defences, raw float64, kind DamageKind) HitResult {
	if !v.Alive() {
		return HitResult{Ignored: true}
	}
	loss := Mitigate(raw, d.Armor, d.ResistanceFor(kind))
	before := v.Current
	v.Current = clamp(v.Current-loss, 0, v.Max)
	return HitResult{
		Mitigated: loss,
		Loss:      before - v.Current,
		Killed:    before > 0 && v.Current == 0,
	}
}

// Clamp01 clamps f to [0, 1]. NaN becomes 0.
func Clamp01(f float64) float64 {
	return clamp(f, 0, 1)
}

func clamp(f, lo, hi float64) float64 {
	if math.IsNaN(f) || f < lo {
		return lo
	}
	if f > hi {
		return hi
	}
	return f
}
