package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alejandrodnm/allocengine/config"
	"github.com/alejandrodnm/allocengine/internal/adapters/clob"
	"github.com/alejandrodnm/allocengine/internal/adapters/fixture"
	"github.com/alejandrodnm/allocengine/internal/adapters/notify"
	"github.com/alejandrodnm/allocengine/internal/adapters/storage"
	"github.com/alejandrodnm/allocengine/internal/allocator"
	"github.com/alejandrodnm/allocengine/internal/application/engine"
	"github.com/alejandrodnm/allocengine/internal/optimizer"
	"github.com/alejandrodnm/allocengine/internal/ports"
	"github.com/alejandrodnm/allocengine/internal/simulation"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	fixturePath := flag.String("fixture", "", "market fixture YAML (overrides config)")
	mode := flag.String("mode", "allocate", "optimize | batch | allocate | simulate | history")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	table := flag.Bool("table", false, "print full tables (default: compact 1-line)")
	dryRun := flag.Bool("dry-run", false, "do not persist results")
	seed := flag.Uint64("seed", 0, "random seed for optimizer and simulation (0 = config)")
	trials := flag.Int("trials", 0, "Monte Carlo trials (0 = config)")
	since := flag.Duration("since", 7*24*time.Hour, "history window")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	if *fixturePath != "" {
		cfg.Market.Fixture = *fixturePath
	}
	if *seed != 0 {
		cfg.Optimizer.Seed = *seed
		cfg.Simulation.Seed = *seed
	}
	if *trials > 0 {
		cfg.Simulation.Trials = *trials
	}
	setupLogger(cfg.Log)

	slog.Info("allocengine starting",
		"config", *configPath,
		"mode", *mode,
		"fixture", cfg.Market.Fixture,
		"dry_run", *dryRun,
	)

	market, err := newMarketData(cfg)
	if err != nil {
		slog.Error("failed to load market data", "err", err)
		os.Exit(1)
	}

	var store ports.Storage
	if !*dryRun {
		s, err := storage.NewSQLiteStorage(cfg.Storage.DSN)
		if err != nil {
			slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
			os.Exit(1)
		}
		defer s.Close()
		store = s
	}

	optCfg := cfg.OptimizerConfig()
	optCfg.Progress = engine.LogProgress(500 * time.Millisecond)
	opt := optimizer.New(optCfg)
	alloc := allocator.New(cfg.AllocatorConfig())

	var simOpt simulation.Optimizer
	if cfg.Simulation.OptimizeExecution {
		simOpt = opt
	}
	sim := simulation.New(cfg.SimulationConfig(), alloc, simOpt)

	eng := engine.New(cfg.EngineConfig(), market, opt, alloc, sim, store, notify.NewConsole(*table))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, eng, *mode, *since); err != nil {
		slog.Error("run failed", "mode", *mode, "err", err)
		os.Exit(1)
	}
	slog.Info("allocengine done", "mode", *mode)
}

func run(ctx context.Context, eng *engine.Engine, mode string, since time.Duration) error {
	switch mode {
	case "optimize":
		_, _, err := eng.Optimize(ctx)
		return err
	case "batch":
		_, err := eng.OptimizeBatch(ctx)
		return err
	case "allocate":
		_, err := eng.Allocate(ctx)
		return err
	case "simulate":
		_, _, err := eng.Simulate(ctx)
		return err
	case "history":
		_, err := eng.History(ctx, since)
		return err
	default:
		return fmt.Errorf("unknown mode %q", mode)
	}
}

// newMarketData carga el fixture y, si hay CLOB configurado, sustituye los books por los live.
func newMarketData(cfg *config.Config) (ports.MarketData, error) {
	if cfg.Market.Fixture == "" {
		return nil, fmt.Errorf("no market fixture configured")
	}
	src, err := fixture.Load(cfg.Market.Fixture)
	if err != nil {
		return nil, err
	}
	if cfg.Market.CLOBBase == "" || (cfg.Market.TokenID == "" && len(cfg.Market.BatchTokens) == 0) {
		return src, nil
	}

	slog.Info("using live order books", "clob", cfg.Market.CLOBBase, "token", cfg.Market.TokenID, "batch", len(cfg.Market.BatchTokens))
	client := clob.NewClient(cfg.Market.CLOBBase, cfg.CLOBOptions())
	return clob.NewMarketData(client, cfg.Market.TokenID, cfg.Market.BatchTokens, src), nil
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}
