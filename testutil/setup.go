package testutil

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ridleywinters/raiment-shell/game/world"
	"github.com/ridleywinters/raiment-shell/resource"
)

// DefaultCatalogueYAML holds a few actor types covering the common cases.
const DefaultCatalogueYAML = `
actors:
  goblin:
    sprite: goblin.png
    scale: 1
    max_health: 10
    on_hit: goblin_hit
    on_death: goblin_death
    armor: 2
    physical_resistance: 0.5
    attack_damage: 3
    attack_range: 4
    attack_cooldown: 1.2
  statue:
    sprite: statue.png
    scale: 2
    max_health: 50
    on_hit: ""
    on_death: ""
    behavior: stand
  drifter:
    sprite: drifter.png
    scale: 1
    max_health: 5
    on_hit: ""
    on_death: ""
    behavior: teleport
`

// SetupCatalogue parses body, or DefaultCatalogueYAML when body is empty.
func SetupCatalogue(t *testing.T, body string) *resource.Catalogue {
	t.Helper()
	if body == "" {
		body = DefaultCatalogueYAML
	}
	c, err := resource.ParseCatalogue([]byte(body))
	require.NoError(t, err, "SetupCatalogue: ParseCatalogue")
	return c
}

// SetupLevel builds a Level from ASCII rows ('#' is a wall). With no rows it
// returns a walled 12x12 room.
func SetupLevel(t *testing.T, rows ...string) *resource.Level {
	t.Helper()
	if len(rows) == 0 {
		rows = make([]string, 12)
		for y := range rows {
			if y == 0 || y == len(rows)-1 {
				rows[y] = strings.Repeat("#", 12)
				continue
			}
			rows[y] = "#" + strings.Repeat(".", 10) + "#"
		}
	}
	var b strings.Builder
	b.WriteString("tiles:\n")
	for _, r := range rows {
		b.WriteString("  - \"" + r + "\"\n")
	}
	md, err := resource.ParseMap([]byte(b.String()))
	require.NoError(t, err, "SetupLevel: ParseMap")
	return resource.NewLevel(md)
}

// RecordingLog is an in-memory world.EventLog.
type RecordingLog struct {
	mu     sync.Mutex
	lines  map[string][]string
	closed map[string]int
}

func NewRecordingLog() *RecordingLog {
	return &RecordingLog{lines: make(map[string][]string), closed: make(map[string]int)}
}

func (l *RecordingLog) Write(id, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines[id] = append(l.lines[id], msg)
}

func (l *RecordingLog) Close(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed[id]++
}

// Lines returns what was written for id.
func (l *RecordingLog) Lines(id string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.lines[id]...)
}

// Closed returns how many times id was closed.
func (l *RecordingLog) Closed(id string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed[id]
}

// FiredScript is one recorded trigger.
type FiredScript struct {
	Ref   string
	Event world.ScriptEvent
}

// RecordingScripts is an in-memory world.ScriptTrigger.
type RecordingScripts struct {
	mu    sync.Mutex
	fired []FiredScript
}

func (s *RecordingScripts) Fire(ref string, ev world.ScriptEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fired = append(s.fired, FiredScript{Ref: ref, Event: ev})
}

// Fired returns every trigger in order.
func (s *RecordingScripts) Fired() []FiredScript {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]FiredScript(nil), s.fired...)
}

// Count returns how many triggers of kind were fired.
func (s *RecordingScripts) Count(kind string) int {
	n := 0
	for _, f := range s.Fired() {
		if f.Event.Kind == kind {
			n++
		}
	}
	return n
}
