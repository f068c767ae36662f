// Package script runs actor hit and death scripts in a pool of goja VMs.
package script

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dop251/goja"
	"go.uber.org/zap"
)

// ErrTimeout is returned when a script exceeds the execution time limit.
var ErrTimeout = errors.New("script: execution timed out")

// ErrPanic is returned when the runtime panics while executing a script.
var ErrPanic = errors.New("script: runtime panic")

const (
	defaultPoolSize = 4
	defaultTimeout  = 500 * time.Millisecond
)

// Bindings are the globals a script sees.
type Bindings struct {
	// Actor is exposed as the global `actor`.
	Actor map[string]interface{}
	// CVars is exposed as `cvars.get(name)` / `cvars.set(name, value)`.
	CVars *CVars
	// Log is exposed as `log(msg)`.
	Log func(msg string)
}

// VMPool is a thread-safe pool of pre-initialised goja runtimes.
type VMPool struct {
	pool    chan *goja.Runtime
	timeout time.Duration
	logger  *zap.Logger
	size    int
}

// NewVMPool creates a VMPool with the given concurrency size and per-script timeout.
func NewVMPool(size int, timeout time.Duration, logger *zap.Logger) *VMPool {
	if size <= 0 {
		size = defaultPoolSize
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &VMPool{
		pool:    make(chan *goja.Runtime, size),
		timeout: timeout,
		logger:  logger,
		size:    size,
	}
	for i := 0; i < size; i++ {
		p.pool <- newSafeVM()
	}
	return p
}

// Size returns the number of VMs in the pool.
func (p *VMPool) Size() int { return p.size }

// Run executes src inside a pooled VM. It returns the exported value of the
// last expression evaluated.
func (p *VMPool) Run(ctx context.Context, src string, b *Bindings) (interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	select {
	case vm := <-p.pool:
		result, tainted, err := p.runVM(ctx, vm, src, b)
		if tainted {
			// An interrupted VM cannot be trusted; replace it.
			vm = newSafeVM()
		}
		p.pool <- vm
		return result, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *VMPool) runVM(ctx context.Context, vm *goja.Runtime, src string, b *Bindings) (result interface{}, tainted bool, err error) {
	bind(vm, b)

	timer := time.AfterFunc(p.timeout, func() { vm.Interrupt(ErrTimeout) })
	stop := context.AfterFunc(ctx, func() { vm.Interrupt(ctx.Err()) })
	defer func() {
		// A late interrupt could land on the next caller's script.
		timerStopped := timer.Stop()
		ctxStopped := stop()
		if !timerStopped || !ctxStopped {
			tainted = true
		}
		vm.ClearInterrupt()
	}()

	var value goja.Value
	func() {
		defer func() {
			if r := recover(); r != nil {
				p.logger.Error("script runtime panicked", zap.Any("recover", r))
				err = ErrPanic
				tainted = true
			}
		}()
		value, err = vm.RunString(src)
	}()
	if err != nil {
		var interrupted *goja.InterruptedError
		if errors.As(err, &interrupted) {
			if cause, ok := interrupted.Value().(error); ok && !errors.Is(cause, ErrTimeout) {
				return nil, true, cause
			}
			return nil, true, ErrTimeout
		}
		var ex *goja.Exception
		if errors.As(err, &ex) {
			return nil, tainted, errors.New(ex.Error())
		}
		return nil, tainted, err
	}

	if value == nil || goja.IsUndefined(value) || goja.IsNull(value) {
		return nil, false, nil
	}
	return value.Export(), false, nil
}

// newSafeVM creates a goja Runtime with host-reaching globals removed.
func newSafeVM() *goja.Runtime {
	vm := goja.New()
	for _, name := range []string{"require", "process", "fetch", "XMLHttpRequest", "eval", "Function"} {
		vm.Set(name, goja.Undefined())
	}
	return vm
}

// bind installs b as globals, clearing anything a previous script left.
func bind(vm *goja.Runtime, b *Bindings) {
	if b == nil {
		b = &Bindings{}
	}

	actor := vm.NewObject()
	for k, v := range b.Actor {
		_ = actor.Set(k, v)
	}
	vm.Set("actor", actor)

	if b.CVars != nil {
		cv := vm.NewObject()
		_ = cv.Set("get", func(name string) float64 { return b.CVars.Get(name) })
		_ = cv.Set("set", func(name string, v float64) { b.CVars.Set(name, v) })
		vm.Set("cvars", cv)
	} else {
		vm.Set("cvars", goja.Undefined())
	}

	logFn := b.Log
	if logFn == nil {
		logFn = func(string) {}
	}
	vm.Set("log", func(msg string) { logFn(msg) })
}

// CVars is a set of named numeric tuning values shared between scripts.
type CVars struct {
	mu   sync.RWMutex
	vals map[string]float64
}

// NewCVars returns an empty set.
func NewCVars() *CVars {
	return &CVars{vals: make(map[string]float64)}
}

// Get returns the value of name, or 0.
func (c *CVars) Get(name string) float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals[name]
}

// Set stores v under name.
func (c *CVars) Set(name string, v float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals[name] = v
}

// Sandbox wraps a VMPool and logs failed scripts.
type Sandbox struct {
	pool   *VMPool
	logger *zap.Logger
}

// NewSandbox creates a Sandbox backed by a VMPool.
func NewSandbox(size int, timeout time.Duration, logger *zap.Logger) *Sandbox {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sandbox{
		pool:   NewVMPool(size, timeout, logger),
		logger: logger,
	}
}

// Eval executes src with the given bindings, returning the result.
func (sb *Sandbox) Eval(ctx context.Context, src string, b *Bindings) (interface{}, error) {
	result, err := sb.pool.Run(ctx, src, b)
	if err != nil {
		sb.logger.Warn("script execution error",
			zap.String("src_preview", truncate(src, 80)),
			zap.Error(err))
	}
	return result, err
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
