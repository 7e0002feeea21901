package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alejandrodnm/stratlab/config"
	"github.com/alejandrodnm/stratlab/internal/adapters/engine"
	"github.com/alejandrodnm/stratlab/internal/adapters/notify"
	"github.com/alejandrodnm/stratlab/internal/adapters/storage"
	"github.com/alejandrodnm/stratlab/internal/application/dataload"
	"github.com/alejandrodnm/stratlab/internal/application/dispatcher"
	"github.com/alejandrodnm/stratlab/internal/application/fallback"
	"github.com/alejandrodnm/stratlab/internal/application/oos"
	"github.com/alejandrodnm/stratlab/internal/application/research"
	"github.com/alejandrodnm/stratlab/internal/application/session"
	"github.com/alejandrodnm/stratlab/internal/domain"
	"github.com/alejandrodnm/stratlab/internal/simulate"
)

// app agrupa los componentes cableados.
type app struct {
	cfg        *config.Config
	flags      *cliFlags
	store      *storage.SQLiteStorage
	console    *notify.Console
	session    *session.Session
	loader     *dataload.Loader
	dispatcher *dispatcher.Dispatcher
	research   *research.Service
	validator  *oos.Validator
}

func main() {
	flags, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		os.Exit(2)
	}

	cfg, err := config.Load(flags.configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", flags.configPath)
		os.Exit(1)
	}

	if flags.verbose {
		cfg.Log.Level = "debug"
	}
	if flags.format != "" {
		cfg.Log.Format = flags.format
	}
	if flags.mock {
		cfg.API.MockMode = true
	}
	setupLogger(cfg.Log)

	slog.Info("stratlab starting",
		"config", flags.configPath,
		"engine", cfg.API.BaseURL,
		"mock", cfg.API.MockMode,
	)

	store, err := storage.NewSQLiteStorage(cfg.Storage.DSN)
	if err != nil {
		slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
		os.Exit(1)
	}
	defer store.Close()

	a := wire(cfg, flags, store)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := a.run(ctx); err != nil {
		slog.Error("stratlab failed", "err", err)
		store.Close()
		os.Exit(1)
	}
}

func wire(cfg *config.Config, flags *cliFlags, store *storage.SQLiteStorage) *app {
	client := engine.NewClient(cfg.API.BaseURL, cfg.Timeout(), cfg.API.RatePerSec)
	exec := fallback.New(cfg.API.MockMode, slog.Default())
	sim := simulate.NewGenerator(
		simulate.NewSeededSource(cfg.Simulator.Seed),
		simulate.WithDays(cfg.Simulator.Days),
		simulate.WithDerivedRatios(cfg.Simulator.DeriveRatios),
	)
	console := notify.NewConsole(!flags.compact, flags.trades)

	initial := session.Settings{
		Mode:      domain.ModeSingle,
		Timeframe: domain.NormalizeTimeframe(cfg.Backtest.Timeframe),
		Capital:   cfg.Backtest.Capital,
		Costs: domain.CostModel{
			SlippagePct:    cfg.Backtest.SlippagePct,
			CommissionFlat: cfg.Backtest.CommissionFlat,
		},
	}

	return &app{
		cfg:     cfg,
		flags:   flags,
		store:   store,
		console: console,
		session: session.New(store, initial),
		loader:  dataload.NewLoader(exec, client, sim),
		dispatcher: dispatcher.New(exec, client, sim, dispatcher.Config{
			ScoringMetric: cfg.Backtest.ScoringMetric,
			StatsFreq:     cfg.Backtest.StatsFreq,
		}, console, store),
		research:  research.New(exec, client, sim, cfg.Backtest.ScoringMetric),
		validator: oos.NewValidator(exec, client, sim),
	}
}

func (a *app) run(ctx context.Context) error {
	f := a.flags
	switch {
	case f.history > 0:
		return a.showHistory(ctx, f.history)
	case f.positions:
		return a.showPositions(ctx)
	case f.search != "":
		return a.showSearch(ctx, f.segment, f.search)
	case f.monteCarlo > 0:
		return a.showMonteCarlo(ctx, f.monteCarlo)
	}

	if _, err := a.session.Load(ctx); err != nil {
		slog.Warn("could not load previous session, using defaults", "err", err)
	}
	if err := f.applyToSession(a.session, time.Now()); err != nil {
		return err
	}
	if err := a.selectTarget(ctx); err != nil {
		return err
	}
	if err := a.session.Save(ctx); err != nil {
		slog.Warn("could not save session", "err", err)
	}

	if err := a.loadData(ctx); err != nil {
		return err
	}

	req := a.session.Snapshot(a.loader.Status())
	if f.optimize {
		return a.optimize(ctx, req)
	}
	return a.backtest(ctx, req)
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
