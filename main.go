package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	dmath "github.com/yohamta/donburi/features/math"
	"go.uber.org/zap"

	"github.com/ridleywinters/raiment-shell/config"
	"github.com/ridleywinters/raiment-shell/game/actorlog"
	"github.com/ridleywinters/raiment-shell/game/script"
	"github.com/ridleywinters/raiment-shell/game/world"
	"github.com/ridleywinters/raiment-shell/resource"
	"github.com/ridleywinters/raiment-shell/scheduler"
)

const statusEvery = 10.0

func main() {
	cfgPath := "config/config.yaml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// ---- Logger ----
	var logger *zap.Logger
	var logErr error
	if cfg.Server.Debug {
		logger, logErr = zap.NewDevelopment()
	} else {
		logger, logErr = zap.NewProduction()
	}
	if logErr != nil {
		log.Fatalf("logger: %v", logErr)
	}
	defer logger.Sync()

	// ---- Static data ----
	cat, err := resource.LoadCatalogue(cfg.Data.Catalogue)
	if err != nil {
		logger.Fatal("load actor catalogue", zap.String("path", cfg.Data.Catalogue), zap.Error(err))
	}
	store := resource.NewStore(cat)
	logger.Info("actor catalogue loaded", zap.Strings("types", cat.Names()))

	items, err := resource.LoadItems(cfg.Data.Items)
	if err != nil {
		logger.Warn("item catalogue unavailable", zap.String("path", cfg.Data.Items), zap.Error(err))
	}

	md, err := resource.LoadMapFile(cfg.Data.Map)
	if err != nil {
		logger.Fatal("load map", zap.String("path", cfg.Data.Map), zap.Error(err))
	}
	level := resource.NewLevel(md)
	logger.Info("map loaded",
		zap.Int("width", md.Width), zap.Int("height", md.Height),
		zap.Int("solids", level.SolidCount()),
		zap.Int("actors", len(md.Actors)), zap.Int("items", len(md.Items)))

	// ---- Sinks ----
	session := actorlog.NewSession(actorlog.Config{
		Dir:           cfg.Log.Dir,
		MaxSizeMB:     cfg.Log.MaxSizeMB,
		FlushInterval: cfg.Log.FlushInterval,
		QueueSize:     cfg.Log.QueueSize,
	}, time.Now(), logger)
	defer session.CloseAll()

	scripts := script.NewDispatcher(script.DispatcherConfig{
		Dir:       cfg.Data.ScriptsDir,
		PoolSize:  cfg.Script.VMPoolSize,
		Timeout:   cfg.Script.Timeout,
		QueueSize: cfg.Script.QueueSize,
	}, script.NewCVars(), logger)
	defer scripts.Close()

	// ---- World ----
	ww, wh := level.WorldSize()
	player := world.NewPlayer(dmath.Vec2{X: ww / 2, Y: wh / 2}, cfg.Sim.PlayerRadius, cfg.Sim.PlayerHealth)
	settings := world.Settings{
		WindupFraction:  cfg.Sim.WindupFraction,
		StunDuration:    cfg.Sim.StunDuration,
		WiggleAmplitude: cfg.Sim.WiggleAmplitude,
		WiggleFrequency: cfg.Sim.WiggleFrequency,
		WanderSpeed:     cfg.Sim.WanderSpeed,
		PlayerRadius:    cfg.Sim.PlayerRadius,
		Seed:            cfg.Sim.Seed,
	}
	wm := world.New(level, settings, logger,
		world.WithEventLog(session),
		world.WithScripts(scripts),
		world.WithTarget(player))
	if _, err := wm.SpawnAll(store.Current(), md.Actors); err != nil {
		logger.Fatal("spawn actors", zap.Error(err))
	}
	tracker := world.NewItemTracker(md.Items)
	if items != nil {
		for _, it := range tracker.Positions() {
			if _, ok := items[it.ItemType]; !ok {
				logger.Warn("item type not in catalogue", zap.String("item", it.ItemType),
					zap.Float64("x", it.X), zap.Float64("y", it.Y))
			}
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Data.Watch {
		go func() {
			if err := resource.WatchCatalogue(ctx, cfg.Data.Catalogue, store, logger); err != nil {
				logger.Warn("catalogue watcher stopped", zap.Error(err))
			}
		}()
	}

	// ---- Scheduler ----
	sched := scheduler.New(logger)
	defer sched.Stop()

	// The world is only touched from the sim task.
	var elapsed, lastStatus float64
	sched.AddTicker("sim", cfg.Sim.TickInterval(), func(dt time.Duration) {
		step := dt.Seconds()
		elapsed += step
		wm.Tick(step, elapsed)
		if elapsed-lastStatus < statusEvery {
			return
		}
		lastStatus = elapsed
		st := scripts.Stats()
		logger.Info("world status",
			zap.Int("actors", wm.Len()),
			zap.Float64("player_health", player.Vitals.Current),
			zap.Int("items", tracker.Len()),
			zap.Int("open_actor_logs", session.Open()),
			zap.Int64("scripts_ran", st.Ran),
			zap.Int64("scripts_failed", st.Failed),
			zap.Int64("scripts_dropped", st.Dropped))
	})

	logger.Info("simulation running",
		zap.Duration("tick", cfg.Sim.TickInterval()),
		zap.Strings("tasks", sched.ListTickers()),
		zap.String("actor_logs", session.Dir()))
	<-ctx.Done()
	logger.Info("shutting down")
	// Stop ticking before the deferred sink shutdown runs.
	sched.Remove("sim")
}
