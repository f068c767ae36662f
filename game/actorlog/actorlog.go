// Package actorlog writes one append-only text file per actor for a single
// run of the simulation.
package actorlog

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/time/rate"
	"gopkg.in/natefinch/lumberjack.v2"
)

// SessionLayout names the per-run directory.
const SessionLayout = "2006-01-02_15-04-05"

const (
	defaultMaxSizeMB     = 10
	defaultFlushInterval = time.Second
	defaultQueueSize     = 1024
	bufferSize           = 4 * 1024
)

// Config controls where and how actor logs are written.
type Config struct {
	Dir           string
	MaxSizeMB     int
	FlushInterval time.Duration
	// QueueSize bounds the lines waiting for the writer; extra lines are dropped.
	QueueSize int
}

// Session owns the actor files of one run. Write and Close only enqueue;
// a single writer goroutine does all disk work. It is safe for concurrent use.
type Session struct {
	dir    string
	cfg    Config
	logger *zap.Logger

	// qmu guards closing the queue: senders hold it shared.
	qmu    sync.RWMutex
	closed bool
	queue  chan record
	done   chan struct{}

	mu       sync.Mutex
	finished map[string]bool
	orphans  map[string]bool // closes that did not fit in the queue
	orphaned atomic.Bool

	dropped    atomic.Int64
	open       atomic.Int64
	dropReport rate.Sometimes

	// owned by the writer goroutine
	streams map[string]*stream
}

type record struct {
	id      string
	msg     string
	at      time.Time
	close   bool
	barrier chan struct{}
}

type stream struct {
	core   zapcore.Core
	buf    *zapcore.BufferedWriteSyncer
	file   *lumberjack.Logger
	broken bool
	report rate.Sometimes
}

// NewSession prepares a session rooted at cfg.Dir/<start> and starts its
// writer. Nothing touches the disk until the first line is written.
func NewSession(cfg Config, start time.Time, logger *zap.Logger) *Session {
	s := newSession(cfg, start, logger)
	go s.run()
	return s
}

func newSession(cfg Config, start time.Time, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxSizeMB <= 0 {
		cfg.MaxSizeMB = defaultMaxSizeMB
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = defaultFlushInterval
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	return &Session{
		dir:        filepath.Join(cfg.Dir, start.Format(SessionLayout)),
		cfg:        cfg,
		logger:     logger,
		queue:      make(chan record, cfg.QueueSize),
		done:       make(chan struct{}),
		finished:   make(map[string]bool),
		orphans:    make(map[string]bool),
		dropReport: rate.Sometimes{First: 1, Interval: 10 * time.Second},
		streams:    make(map[string]*stream),
	}
}

// Dir returns the session directory.
func (s *Session) Dir() string { return s.dir }

// Path returns the file an actor's lines go to.
func (s *Session) Path(actorID string) string {
	return filepath.Join(s.dir, actorID+".log")
}

// Write queues msg for the actor's file. It never blocks: when the queue is
// full the line is dropped and counted. Lines for an actor that was already
// closed are dropped.
func (s *Session) Write(actorID, msg string) {
	s.qmu.RLock()
	defer s.qmu.RUnlock()
	if s.closed || s.isFinished(actorID) {
		return
	}
	select {
	case s.queue <- record{id: actorID, msg: msg, at: time.Now()}:
	default:
		n := s.dropped.Add(1)
		s.dropReport.Do(func() {
			s.logger.Warn("actor log line dropped",
				zap.String("actor", actorID), zap.Int64("dropped", n))
		})
	}
}

// Close ends the actor's file once its queued lines are written. Closing
// twice is a no-op.
func (s *Session) Close(actorID string) {
	s.qmu.RLock()
	defer s.qmu.RUnlock()
	if s.closed {
		return
	}
	s.mu.Lock()
	if s.finished[actorID] {
		s.mu.Unlock()
		return
	}
	s.finished[actorID] = true
	s.mu.Unlock()

	select {
	case s.queue <- record{id: actorID, close: true}:
	default:
		s.mu.Lock()
		s.orphans[actorID] = true
		s.mu.Unlock()
		s.orphaned.Store(true)
	}
}

// Sync blocks until every line queued before the call has been handed to its
// file and closes requested before it are done. It is meant for shutdown and
// tests, not the tick.
func (s *Session) Sync() {
	s.qmu.RLock()
	if s.closed {
		s.qmu.RUnlock()
		return
	}
	b := make(chan struct{})
	s.queue <- record{barrier: b}
	s.qmu.RUnlock()
	<-b
}

// CloseAll drains the queue and closes every file. Later writes are dropped.
func (s *Session) CloseAll() {
	s.qmu.Lock()
	if s.closed {
		s.qmu.Unlock()
		<-s.done
		return
	}
	s.closed = true
	close(s.queue)
	s.qmu.Unlock()
	<-s.done
}

// Open returns the number of actor files currently open.
func (s *Session) Open() int { return int(s.open.Load()) }

// Dropped returns how many lines were lost to a full queue.
func (s *Session) Dropped() int64 { return s.dropped.Load() }

func (s *Session) isFinished(actorID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finished[actorID]
}

func (s *Session) run() {
	defer close(s.done)
	for rec := range s.queue {
		switch {
		case rec.barrier != nil:
			s.orphaned.Store(false)
			s.closeOrphans()
			close(rec.barrier)
		case rec.close:
			s.closeStream(rec.id)
		default:
			s.write(rec)
		}
		// With the queue empty, everything sent before an orphaned close is written.
		if len(s.queue) == 0 && s.orphaned.Swap(false) {
			s.closeOrphans()
		}
	}
	for id := range s.streams {
		s.closeStream(id)
	}
}

func (s *Session) write(rec record) {
	st, ok := s.streams[rec.id]
	if !ok {
		st = s.openStream(rec.id)
		s.streams[rec.id] = st
	}
	if st.broken {
		return
	}
	ent := zapcore.Entry{Level: zapcore.InfoLevel, Time: rec.at, Message: rec.msg}
	if err := st.core.Write(ent, nil); err != nil {
		s.fail(rec.id, st, err)
	}
}

func (s *Session) closeOrphans() {
	s.mu.Lock()
	ids := make([]string, 0, len(s.orphans))
	for id := range s.orphans {
		ids = append(ids, id)
	}
	clear(s.orphans)
	s.mu.Unlock()
	for _, id := range ids {
		s.closeStream(id)
	}
}

func (s *Session) openStream(actorID string) *stream {
	st := &stream{report: rate.Sometimes{First: 1}}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		st.broken = true
		s.fail(actorID, st, fmt.Errorf("create session dir: %w", err))
		return st
	}

	st.file = &lumberjack.Logger{
		Filename:  s.Path(actorID),
		MaxSize:   s.cfg.MaxSizeMB,
		LocalTime: true,
	}
	ws := &reportingWriter{w: st.file, onErr: func(err error) { s.fail(actorID, st, err) }}
	st.buf = &zapcore.BufferedWriteSyncer{
		WS:            ws,
		Size:          bufferSize,
		FlushInterval: s.cfg.FlushInterval,
	}
	st.core = zapcore.NewCore(zapcore.NewConsoleEncoder(lineEncoderConfig()), st.buf, zapcore.DebugLevel)
	s.open.Add(1)
	return st
}

func (s *Session) closeStream(actorID string) {
	st, ok := s.streams[actorID]
	if !ok {
		return
	}
	delete(s.streams, actorID)
	if st.broken {
		return
	}
	s.open.Add(-1)
	if err := st.buf.Stop(); err != nil {
		s.fail(actorID, st, err)
	}
	if err := st.file.Close(); err != nil {
		s.fail(actorID, st, err)
	}
}

func (s *Session) fail(actorID string, st *stream, err error) {
	st.report.Do(func() {
		s.logger.Warn("actor log unavailable",
			zap.String("actor", actorID),
			zap.String("dir", s.dir),
			zap.Error(err))
	})
}

// lineEncoderConfig renders "HH:MM:SS.mmm message".
func lineEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:          "ts",
		MessageKey:       "msg",
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeTime:       zapcore.TimeEncoderOfLayout("15:04:05.000"),
		EncodeDuration:   zapcore.StringDurationEncoder,
		ConsoleSeparator: " ",
	}
}

// reportingWriter passes writes through and hands errors to onErr, since the
// buffered syncer flushes in the background where nobody sees them.
type reportingWriter struct {
	w     *lumberjack.Logger
	onErr func(error)
}

func (r *reportingWriter) Write(p []byte) (int, error) {
	n, err := r.w.Write(p)
	if err != nil {
		r.onErr(err)
	}
	return n, err
}

func (r *reportingWriter) Sync() error { return nil }
