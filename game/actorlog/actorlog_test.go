package actorlog

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var linePattern = regexp.MustCompile(`^\d{2}:\d{2}:\d{2}\.\d{3} `)

var start = time.Date(2024, 3, 9, 14, 5, 7, 0, time.Local)

func newTestSession(t *testing.T) *Session {
	t.Helper()
	s := NewSession(Config{Dir: t.TempDir()}, start, zap.NewNop())
	t.Cleanup(s.CloseAll)
	return s
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}

func TestSession_DirectoryNamedAfterStart(t *testing.T) {
	s := newTestSession(t)
	assert.Equal(t, "2024-03-09_14-05-07", filepath.Base(s.Dir()))
	assert.Equal(t, filepath.Join(s.Dir(), "goblin-1a2b3c4d.log"), s.Path("goblin-1a2b3c4d"))
}

func TestSession_LazyOpen(t *testing.T) {
	s := newTestSession(t)
	s.Sync()
	_, err := os.Stat(s.Dir())
	assert.True(t, os.IsNotExist(err), "nothing is created before the first line")

	s.Write("goblin-1", "took 4.00 physical damage")
	s.Sync()
	assert.Equal(t, 1, s.Open())
	s.CloseAll()

	_, err = os.Stat(s.Path("statue-1"))
	assert.True(t, os.IsNotExist(err), "actors without events get no file")
}

func TestSession_LineFormat(t *testing.T) {
	s := newTestSession(t)
	s.Write("goblin-1", "took 4.00 physical damage")
	s.Write("goblin-1", "died")
	s.Close("goblin-1")
	s.Sync()

	lines := readLines(t, s.Path("goblin-1"))
	require.Len(t, lines, 2)
	for _, l := range lines {
		assert.Regexp(t, linePattern, l)
	}
	assert.True(t, strings.HasSuffix(lines[0], " took 4.00 physical damage"))
	assert.True(t, strings.HasSuffix(lines[1], " died"))
}

func TestSession_SeparateFilesPerActor(t *testing.T) {
	s := newTestSession(t)
	s.Write("a", "one")
	s.Write("b", "two")
	s.Write("a", "three")
	s.CloseAll()

	assert.Len(t, readLines(t, s.Path("a")), 2)
	assert.Len(t, readLines(t, s.Path("b")), 1)
}

func TestSession_WritesAfterCloseAreDropped(t *testing.T) {
	s := newTestSession(t)
	s.Write("a", "first")
	s.Close("a")
	s.Close("a")
	s.Write("a", "ghost")
	s.Sync()
	assert.Equal(t, 0, s.Open())

	lines := readLines(t, s.Path("a"))
	assert.Len(t, lines, 1)
}

func TestSession_CloseAllIdempotent(t *testing.T) {
	s := newTestSession(t)
	s.Write("a", "x")
	s.Write("b", "y")
	s.CloseAll()
	s.CloseAll()
	s.Write("c", "late")
	s.Sync()

	assert.Equal(t, 0, s.Open())
	_, err := os.Stat(s.Path("c"))
	assert.True(t, os.IsNotExist(err))
}

func TestSession_FullQueueDropsWithoutBlocking(t *testing.T) {
	// The writer is not running yet, so nothing drains the queue.
	s := newSession(Config{Dir: t.TempDir(), QueueSize: 2}, start, zap.NewNop())

	begin := time.Now()
	s.Write("a", "one")
	s.Write("a", "two")
	s.Write("a", "three")
	s.Write("a", "four")
	s.Close("a")
	assert.Less(t, time.Since(begin), 100*time.Millisecond)
	assert.Equal(t, int64(2), s.Dropped())

	go s.run()
	s.Sync()
	assert.Equal(t, 0, s.Open(), "a close that did not fit is still honoured")
	assert.Len(t, readLines(t, s.Path("a")), 2)
	s.CloseAll()
}

func TestSession_FailureReportedOncePerActor(t *testing.T) {
	root := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(root, []byte("x"), 0o644))

	core, logs := observer.New(zapcore.WarnLevel)
	s := NewSession(Config{Dir: root}, start, zap.New(core))

	for i := 0; i < 3; i++ {
		s.Write("a", "lost")
	}
	s.Write("b", "lost")
	s.CloseAll()

	assert.Equal(t, 2, logs.FilterMessage("actor log unavailable").Len())
	assert.Equal(t, 0, s.Open())
}
