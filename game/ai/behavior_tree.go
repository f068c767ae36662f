package ai

// Status is the result of ticking a behavior tree node.
type Status int

const (
	StatusSuccess Status = iota
	StatusFailure
	StatusRunning
)

// Node is a single node in a behavior tree.
type Node interface {
	Tick(ctx *Context) Status
}

// ---- Composites ----

// Selector returns the first child result that is not a failure (logical OR).
type Selector struct {
	Children []Node
}

func (s *Selector) Tick(ctx *Context) Status {
	for _, c := range s.Children {
		if st := c.Tick(ctx); st != StatusFailure {
			return st
		}
	}
	return StatusFailure
}

// Sequence runs children in order until one does not succeed (logical AND).
type Sequence struct {
	Children []Node
}

func (s *Sequence) Tick(ctx *Context) Status {
	for _, c := range s.Children {
		if st := c.Tick(ctx); st != StatusSuccess {
			return st
		}
	}
	return StatusSuccess
}

// ---- Leaves ----

// Condition succeeds when the predicate holds.
type Condition func(*Context) bool

func (fn Condition) Tick(ctx *Context) Status {
	if fn(ctx) {
		return StatusSuccess
	}
	return StatusFailure
}

// Action is a leaf that does the work itself.
type Action func(*Context) Status

func (fn Action) Tick(ctx *Context) Status {
	return fn(ctx)
}

// ---- Decorators ----

// Inverter swaps success and failure; running passes through.
type Inverter struct {
	Child Node
}

func (i *Inverter) Tick(ctx *Context) Status {
	switch i.Child.Tick(ctx) {
	case StatusSuccess:
		return StatusFailure
	case StatusFailure:
		return StatusSuccess
	default:
		return StatusRunning
	}
}

// BehaviorTree wraps the root node.
type BehaviorTree struct {
	Root Node
}

// Tick runs one frame of the tree. An empty tree fails.
func (bt *BehaviorTree) Tick(ctx *Context) Status {
	if bt == nil || bt.Root == nil {
		return StatusFailure
	}
	return bt.Root.Tick(ctx)
}
