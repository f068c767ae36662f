package world_test

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	dmath "github.com/yohamta/donburi/features/math"
	"go.uber.org/zap"

	"github.com/ridleywinters/raiment-shell/game/actorlog"
	"github.com/ridleywinters/raiment-shell/game/combat"
	"github.com/ridleywinters/raiment-shell/game/script"
	"github.com/ridleywinters/raiment-shell/game/world"
	"github.com/ridleywinters/raiment-shell/testutil"
)

const scriptedYAML = `
actors:
  goblin:
    sprite: goblin.png
    scale: 1
    max_health: 10
    on_hit: 'cvars.set("hits", cvars.get("hits") + actor.damage)'
    on_death: 'cvars.set("deaths", cvars.get("deaths") + 1)'
    behavior: stand
    armor: 2
    physical_resistance: 0.5
`

func TestWorld_FileLogAndScripts(t *testing.T) {
	session := actorlog.NewSession(actorlog.Config{Dir: t.TempDir()}, time.Now(), zap.NewNop())
	defer session.CloseAll()
	scripts := script.NewDispatcher(script.DispatcherConfig{PoolSize: 1}, nil, zap.NewNop())

	w := world.New(testutil.SetupLevel(t), world.DefaultSettings(), zap.NewNop(),
		world.WithEventLog(session),
		world.WithScripts(scripts))
	def, ok := testutil.SetupCatalogue(t, scriptedYAML).Lookup("goblin")
	require.True(t, ok)
	e := w.Spawn(def, dmath.Vec2{X: 20, Y: 20})
	a, ok := w.Actor(e)
	require.True(t, ok)
	id := a.ID

	res, err := w.ApplyDamage(e, 10, combat.Physical)
	require.NoError(t, err)
	assert.Equal(t, 4.0, res.Loss)
	res, err = w.ApplyDamage(e, 20, combat.Physical)
	require.NoError(t, err)
	assert.True(t, res.Killed)

	// Death closed the file; the contents are flushed.
	session.Sync()
	assert.Equal(t, 0, session.Open())
	data, err := os.ReadFile(session.Path(id))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "took 4.00 physical damage")
	assert.True(t, strings.HasSuffix(lines[2], " died"))

	scripts.Close()
	assert.Equal(t, 10.0, scripts.CVars().Get("hits"))
	assert.Equal(t, 1.0, scripts.CVars().Get("deaths"))
	assert.Equal(t, script.Stats{Ran: 3}, scripts.Stats())

	w.Tick(0.016, 0.016)
	assert.Equal(t, 0, w.Len())
}
