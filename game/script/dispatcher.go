package script

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ridleywinters/raiment-shell/game/world"
)

var (
	// ErrQueueFull is reported when a trigger is dropped because the queue is full.
	ErrQueueFull = errors.New("script: queue full")
	// ErrClosed is returned by Submit after Close.
	ErrClosed = errors.New("script: dispatcher closed")
)

const defaultQueueSize = 256

var scriptName = regexp.MustCompile(`^[\w./-]{1,128}$`)

// DispatcherConfig sizes a Dispatcher.
type DispatcherConfig struct {
	// Dir holds <ref>.js files. References with no file are run as source.
	Dir       string
	PoolSize  int
	Timeout   time.Duration
	QueueSize int
}

// Stats counts what happened to submitted triggers.
type Stats struct {
	Ran     int64
	Failed  int64
	Dropped int64
}

type job struct {
	ref string
	ev  world.ScriptEvent
}

// Dispatcher runs on_hit and on_death scripts off the simulation goroutine.
// Fire never blocks: when the queue is full the trigger is dropped and
// counted.
type Dispatcher struct {
	sandbox *Sandbox
	dir     string
	cvars   *CVars
	logger  *zap.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan job
	wg     sync.WaitGroup

	ran, failed, dropped atomic.Int64
	fullReport           rate.Sometimes
}

// NewDispatcher starts one worker per pooled VM.
func NewDispatcher(cfg DispatcherConfig, cvars *CVars, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cvars == nil {
		cvars = NewCVars()
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	d := &Dispatcher{
		sandbox:    NewSandbox(cfg.PoolSize, cfg.Timeout, logger),
		dir:        cfg.Dir,
		cvars:      cvars,
		logger:     logger,
		queue:      make(chan job, cfg.QueueSize),
		fullReport: rate.Sometimes{First: 1, Interval: 10 * time.Second},
	}
	workers := d.sandbox.pool.Size()
	d.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go d.work()
	}
	return d
}

// Fire implements world.ScriptTrigger. Empty references are ignored.
func (d *Dispatcher) Fire(ref string, ev world.ScriptEvent) {
	err := d.Submit(ref, ev)
	if errors.Is(err, ErrQueueFull) {
		d.fullReport.Do(func() {
			d.logger.Warn("script trigger dropped",
				zap.String("ref", ref),
				zap.String("actor", ev.ActorID),
				zap.Int64("dropped", d.dropped.Load()),
				zap.Error(err))
		})
	}
}

// Submit enqueues a trigger without blocking.
func (d *Dispatcher) Submit(ref string, ev world.ScriptEvent) error {
	if ref == "" {
		return nil
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrClosed
	}
	select {
	case d.queue <- job{ref: ref, ev: ev}:
		return nil
	default:
		d.dropped.Add(1)
		return ErrQueueFull
	}
}

// Close stops accepting triggers and waits for queued ones to finish.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()
	d.wg.Wait()
}

// Stats returns the trigger counters.
func (d *Dispatcher) Stats() Stats {
	return Stats{Ran: d.ran.Load(), Failed: d.failed.Load(), Dropped: d.dropped.Load()}
}

// CVars returns the values shared by every script.
func (d *Dispatcher) CVars() *CVars { return d.cvars }

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for j := range d.queue {
		if err := d.run(j); err != nil {
			d.failed.Add(1)
			d.logger.Debug("script failed",
				zap.String("ref", j.ref),
				zap.String("actor", j.ev.ActorID),
				zap.Error(err))
			continue
		}
		d.ran.Add(1)
	}
}

func (d *Dispatcher) run(j job) error {
	src, err := d.resolve(j.ref)
	if err != nil {
		return err
	}
	_, err = d.sandbox.Eval(context.Background(), src, &Bindings{
		Actor: actorBinding(j.ev),
		CVars: d.cvars,
		Log: func(msg string) {
			d.logger.Info("script", zap.String("actor", j.ev.ActorID), zap.String("msg", msg))
		},
	})
	return err
}

// resolve returns the source for ref: <dir>/<ref>.js if it exists, otherwise
// ref itself.
func (d *Dispatcher) resolve(ref string) (string, error) {
	if d.dir == "" || !scriptName.MatchString(ref) || !filepath.IsLocal(ref+".js") {
		return ref, nil
	}
	data, err := os.ReadFile(filepath.Join(d.dir, ref+".js"))
	switch {
	case err == nil:
		return string(data), nil
	case errors.Is(err, os.ErrNotExist):
		return ref, nil
	default:
		return "", fmt.Errorf("read script %q: %w", ref, err)
	}
}

func actorBinding(ev world.ScriptEvent) map[string]interface{} {
	return map[string]interface{}{
		"event":      ev.Kind,
		"id":         ev.ActorID,
		"type":       ev.ActorType,
		"damage":     ev.Damage,
		"health":     ev.Health,
		"max_health": ev.MaxHealth,
	}
}
