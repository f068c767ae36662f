package combat

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMitigate_ArmorThenResistance(t *testing.T) {
	assert.InDelta(t, 4.0, Mitigate(10, 2, 0.5), 1e-9)
	assert.InDelta(t, 9.0, Mitigate(20, 2, 0.5), 1e-9)
	assert.InDelta(t, 10.0, Mitigate(10, 0, 0), 1e-9)
}

func TestMitigate_ArmorNeverHeals(t *testing.T) {
	assert.Equal(t, 0.0, Mitigate(3, 10, 0))
	assert.Equal(t, 0.0, Mitigate(3, 3, 0))
}

func TestMitigate_NegativeArmorCountsAsZero(t *testing.T) {
	assert.InDelta(t, 10.0, Mitigate(10, -5, 0), 1e-9)
}

func TestMitigate_ResistanceOutOfRangeIsClamped(t *testing.T) {
	assert.Equal(t, 0.0, Mitigate(10, 0, 1.5))
	assert.InDelta(t, 10.0, Mitigate(10, 0, -0.5), 1e-9)
}

func TestMitigate_NonPositiveRaw(t *testing.T) {
	assert.Equal(t, 0.0, Mitigate(0, 0, 0))
	assert.Equal(t, 0.0, Mitigate(-4, 0, 0))
}

func TestMitigate_MonotoneAndBounded(t *testing.T) {
	raws := []float64{0, 0.5, 1, 3, 10, 42.5, 1000}
	armors := []int{0, 1, 2, 5, 10, 50}
	resists := []float64{0, 0.1, 0.25, 0.5, 0.9, 1}

	for _, raw := range raws {
		for ai, armor := range armors {
			for ri, res := range resists {
				got := Mitigate(raw, armor, res)
				assert.GreaterOrEqual(t, got, 0.0)
				assert.LessOrEqual(t, got, raw)
				if ai > 0 {
					assert.LessOrEqual(t, got, Mitigate(raw, armors[ai-1], res),
						"raw=%v armor=%d res=%v should not exceed lower armor", raw, armor, res)
				}
				if ri > 0 {
					assert.LessOrEqual(t, got, Mitigate(raw, armor, resists[ri-1]),
						"raw=%v armor=%d res=%v should not exceed lower resistance", raw, armor, res)
				}
			}
		}
	}
}

func TestApplyDamage_EndToEnd(t *testing.T) {
	v := NewVitals(10)
	d := Defences{Armor: 2, PhysicalResistance: 0.5}

	first := ApplyDamage(&v, d, 10, Physical)
	assert.InDelta(t, 4.0, first.Loss, 1e-9)
	assert.InDelta(t, 6.0, v.Current, 1e-9)
	assert.False(t, first.Killed)

	second := ApplyDamage(&v, d, 20, Physical)
	assert.InDelta(t, 9.0, second.Mitigated, 1e-9)
	assert.InDelta(t, 6.0, second.Loss, 1e-9)
	assert.Equal(t, 0.0, v.Current)
	assert.True(t, second.Killed)
}

func TestApplyDamage_DeadIsNoop(t *testing.T) {
	v := NewVitals(5)
	res := ApplyDamage(&v, Defences{}, 100, Physical)
	require.True(t, res.Killed)

	for i := 0; i < 3; i++ {
		again := ApplyDamage(&v, Defences{}, 100, Physical)
		assert.True(t, again.Ignored)
		assert.False(t, again.Killed)
		assert.Equal(t, 0.0, again.Loss)
		assert.Equal(t, 0.0, v.Current)
	}
}

func TestApplyDamage_HealthStaysInRange(t *testing.T) {
	v := NewVitals(50)
	hits := []float64{0, -10, 3, 1e9, 7}
	kills := 0
	for _, raw := range hits {
		res := ApplyDamage(&v, Defences{Armor: 1, PhysicalResistance: 0.2}, raw, Physical)
		if res.Killed {
			kills++
		}
		assert.GreaterOrEqual(t, v.Current, 0.0)
		assert.LessOrEqual(t, v.Current, v.Max)
	}
	assert.Equal(t, 1, kills)
}

func TestMitigate_InfiniteRaw(t *testing.T) {
	assert.Equal(t, 0.0, Mitigate(math.Inf(1), 2, 1))
	assert.Equal(t, 0.0, Mitigate(math.Inf(1), 0, 5))
	assert.True(t, math.IsInf(Mitigate(math.Inf(1), 2, 0.5), 1))
	assert.Equal(t, 0.0, Mitigate(math.Inf(-1), 0, 0))
	assert.Equal(t, 5.0, Mitigate(5, 0, math.NaN()), "NaN resistance counts as none")
}

func TestApplyDamage_ImmuneSurvivesInfiniteHit(t *testing.T) {
	v := NewVitals(10)
	res := ApplyDamage(&v, Defences{PhysicalResistance: 1}, math.Inf(1), Physical)
	assert.Equal(t, 0.0, res.Mitigated)
	assert.Equal(t, 0.0, res.Loss)
	assert.False(t, res.Killed)
	assert.Equal(t, 10.0, v.Current)

	res = ApplyDamage(&v, Defences{}, math.Inf(1), Physical)
	assert.True(t, res.Killed)
	assert.Equal(t, 10.0, res.Loss)
	assert.Equal(t, 0.0, v.Current)
}

func TestApplyDamage_UnknownKindUsesNoResistance(t *testing.T) {
	v := NewVitals(10)
	d := Defences{PhysicalResistance: 1}
	res := ApplyDamage(&v, d, 4, DamageKind(7))
	assert.InDelta(t, 4.0, res.Loss, 1e-9)
}

func TestDefences_SetResistanceClamps(t *testing.T) {
	var d Defences
	d.SetResistance(Physical, 2)
	assert.Equal(t, 1.0, d.PhysicalResistance)
	d.SetResistance(DamageKind(3), -1)
	assert.Equal(t, 0.0, d.ResistanceFor(DamageKind(3)))
}

func TestVitals_Heal(t *testing.T) {
	v := Vitals{Current: 3, Max: 10}
	v.Heal(20)
	assert.Equal(t, 10.0, v.Current)

	dead := Vitals{Current: 0, Max: 10}
	dead.Heal(5)
	assert.Equal(t, 0.0, dead.Current)
}

func TestParseDamageKind(t *testing.T) {
	k, ok := ParseDamageKind(" Physical ")
	require.True(t, ok)
	assert.Equal(t, Physical, k)

	_, ok = ParseDamageKind("fire")
	assert.False(t, ok)
	assert.Equal(t, "physical", Physical.String())
}
