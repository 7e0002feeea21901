package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alejandrodnm/stratlab/config"
	"github.com/alejandrodnm/stratlab/internal/adapters/httpapi"
	"github.com/alejandrodnm/stratlab/internal/simulate"
	"github.com/gin-gonic/gin"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	addr := flag.String("addr", "", "listen address (overrides config)")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}
	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *addr != "" {
		cfg.SimEngine.Addr = *addr
	}
	setupLogger(cfg.Log)

	// el motor simulado sirve bajo el mismo path que espera el cliente
	basePath := "/api/v1"
	if u, err := url.Parse(cfg.API.BaseURL); err == nil && u.Path != "" {
		basePath = u.Path
	}

	sim := simulate.NewGenerator(
		simulate.NewSeededSource(cfg.Simulator.Seed),
		simulate.WithDays(cfg.Simulator.Days),
		simulate.WithDerivedRatios(cfg.Simulator.DeriveRatios),
	)

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:              cfg.SimEngine.Addr,
		Handler:           httpapi.NewServer(sim).Router(basePath),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go func() {
		slog.Info("simengine listening", "addr", srv.Addr, "base_path", basePath)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("simengine server failed", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("simengine shutting down")

	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("simengine shutdown", "err", err)
		os.Exit(1)
	}
	slog.Info("simengine stopped cleanly")
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
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
