package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/l1jgo/scheduler/internal/config"
	"github.com/l1jgo/scheduler/internal/core/ecs"
	"github.com/l1jgo/scheduler/internal/core/event"
	"github.com/l1jgo/scheduler/internal/core/executor"
	coresys "github.com/l1jgo/scheduler/internal/core/system"
	"github.com/l1jgo/scheduler/internal/persist"
	"github.com/l1jgo/scheduler/internal/scripting"
	"github.com/l1jgo/scheduler/internal/system"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printSection(title string) {
	lineLen := 46 - len(title) - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	fmt.Printf("    %-20s \033[1m%d\033[0m\n", label, count)
}

func printOK(msg string) {
	fmt.Printf("    \033[32m✓\033[0m %s\n", msg)
}

// ── Main logic ─────────────────────────────────────────────────────

func run() error {
	// 1. Load config
	cfgPath := "config/scheduler.toml"
	if p := os.Getenv("SCHED_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	// 3. World and shared resources
	world := ecs.NewWorld()
	pool := executor.NewPool(cfg.Scheduler.Workers)
	ecs.InsertResource(world, pool)
	ecs.InsertResource(world, event.NewBus())
	coresys.EnsureFrameResources(world)

	builder := coresys.NewDispatcherBuilder(
		coresys.WithLogger(log.Named("builder")),
		coresys.WithMaxPasses(cfg.Scheduler.MaxBuildPasses),
	)
	builder.AddBundle(system.MotionBundle())

	// 4. Optional frame stats persistence
	var statsDesc *persist.StatsFlushDesc
	if cfg.Database.DSN != "" {
		printSection("Database")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		db, err := persist.NewDB(ctx, cfg.Database, log.Named("db"))
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer db.Close()
		printOK("PostgreSQL connected")

		if err := db.Migrate(ctx); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		printOK("migrations applied")

		ecs.InsertResource[persist.StatsWriter](world, persist.NewStatsRepo(db))
		statsDesc = persist.NewStatsFlushDesc(cfg.Database.StatsEvery, log.Named("stats"))
		builder.AddThreadLocalDesc(statsDesc)
	}

	// 5. Scripted systems
	if cfg.Scripting.Manifest != "" {
		manifest, err := scripting.LoadManifest(filepath.Join(cfg.Scripting.Dir, cfg.Scripting.Manifest))
		switch {
		case errors.Is(err, os.ErrNotExist):
			log.Info("no script manifest, skipping scripted systems", zap.String("dir", cfg.Scripting.Dir))
		case err != nil:
			return fmt.Errorf("scripts: %w", err)
		default:
			scripts := &scripting.Bundle{Dir: cfg.Scripting.Dir, Manifest: manifest, Log: log.Named("lua")}
			defer scripts.Close()
			builder.AddBundle(scripts)
		}
	}

	// Event flush goes last so it sees everything emitted this frame.
	builder.AddBundle(event.Bundle())

	// 6. Build the dispatcher
	dispatcher, err := builder.Build(world)
	if err != nil {
		return fmt.Errorf("build dispatcher: %w", err)
	}
	printSection("Schedule")
	printStat("workers", pool.Workers())
	for _, stage := range coresys.FrameOrder() {
		printStat(stage.String(), dispatcher.Len(stage))
	}
	fmt.Println()

	// 7. Frame loop until SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runner := coresys.NewRunner(dispatcher, world, log.Named("frame"))
	runner.SetSlowFrame(cfg.Scheduler.SlowFrame)
	log.Info("frame loop started", zap.Duration("tick", cfg.Scheduler.TickRate))
	runner.Loop(ctx, cfg.Scheduler.TickRate)

	if statsDesc != nil && statsDesc.System() != nil {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := statsDesc.System().Flush(flushCtx); err != nil {
			log.Error("final frame stats flush failed", zap.Error(err))
		}
	}
	log.Info("scheduler stopped")
	return nil
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
