package combat

// AttackState is the phase of an actor's attack cycle.
type AttackState int

const (
	Idle AttackState = iota
	WindingUp
	Striking
	Recovering
)

func (s AttackState) String() string {
	switch s {
	case Idle:
		return "idle"
	case WindingUp:
		return "winding_up"
	case Striking:
		return "striking"
	case Recovering:
		return "recovering"
	}
	return "unknown"
}

// Default attack timing policy.
const (
	DefaultWindupFraction = 0.3
	DefaultStunDuration   = 0.4
)

// timeEpsilon absorbs float accumulation when comparing elapsed time against
// thresholds (0.36 built from 36 steps of 0.01 must still count as 0.36).
const timeEpsilon = 1e-9

// AttackTimers is the mutable part of the attack cycle.
// Elapsed is seconds spent in the current cycle; Stun is remaining stun seconds.
type AttackTimers struct {
	State   AttackState
	Elapsed float64
	Stun    float64
}

// Stunned reports whether progress is currently frozen.
func (t AttackTimers) Stunned() bool { return t.Stun > 0 }

// AttackParams is the per-actor timing configuration.
type AttackParams struct {
	Cooldown       float64
	WindupFraction float64
	StunDuration   float64
}

// Windup returns the time from trigger to strike.
func (p AttackParams) Windup() float64 {
	f := p.WindupFraction
	if f <= 0 || f > 1 {
		f = DefaultWindupFraction
	}
	return max(p.Cooldown, 0) * f
}

// StepEvents are the inputs that arrive during one tick.
type StepEvents struct {
	Trigger bool // start an attack if idle
	Stun    bool // the actor was struck this tick
}

// Stun freezes the cycle for duration seconds unless it is already frozen.
// Elapsed and State are left as they are.
func Stun(t AttackTimers, duration float64) AttackTimers {
	if t.Stun > 0 || duration <= 0 {
		return t
	}
	t.Stun = duration
	return t
}

// Step advances the cycle by dt and reports whether the strike landed on this
// tick. It has no side effects; callers deal the damage.
//
// A stun received this tick wins over a windup completing on the same tick; the
// strike then fires on the first tick after the stun runs out.
func Step(t AttackTimers, p AttackParams, dt float64, ev StepEvents) (AttackTimers, bool) {
	if dt < 0 {
		dt = 0
	}
	if ev.Stun {
		t = Stun(t, p.StunDuration)
	}
	if t.Stun > 0 {
		t.Stun -= dt
		if t.Stun < timeEpsilon {
			t.Stun = 0
		}
		return t, false
	}

	switch t.State {
	case Idle:
		if ev.Trigger {
			t.State = WindingUp
			t.Elapsed = 0
		}
		return t, false

	case WindingUp:
		t.Elapsed += dt
		if t.Elapsed+timeEpsilon >= p.Windup() {
			t.State = Striking
			return t, true
		}
		return t, false

	case Striking:
		t.State = Recovering
		t.Elapsed += dt
		return finishRecovery(t, p), false

	case Recovering:
		t.Elapsed += dt
		return finishRecovery(t, p), false
	}

	// Unknown state: settle back to idle rather than carry garbage forward.
	return AttackTimers{}, false
}

func finishRecovery(t AttackTimers, p AttackParams) AttackTimers {
	if t.Elapsed+timeEpsilon >= p.Cooldown {
		t.State = Idle
		t.Elapsed = 0
	}
	return t
}
