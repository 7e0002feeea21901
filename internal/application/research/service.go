// Package research groups the engine calls that sit around a backtest run:
// instrument lookup, grid optimization, Monte Carlo and paper positions.
// Every call goes through the fallback executor.
package research

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alejandrodnm/stratlab/internal/application/fallback"
	"github.com/alejandrodnm/stratlab/internal/domain"
	"github.com/alejandrodnm/stratlab/internal/ports"
	"github.com/alejandrodnm/stratlab/internal/simulate"
)

// Engine es el subconjunto del motor que usa el servicio.
type Engine interface {
	ports.InstrumentSearch
	ports.RiskEngine
	ports.PaperTrading
	RunOptimization(ctx context.Context, req domain.OptimizationRequest) (domain.OptimizationRun, error)
}

// Service ejecuta las llamadas auxiliares con fallback al simulador.
type Service struct {
	exec          *fallback.Executor
	engine        Engine
	sim           *simulate.Generator
	scoringMetric string
}

// New crea el servicio. scoringMetric vacío usa "sharpe".
func New(exec *fallback.Executor, engine Engine, sim *simulate.Generator, scoringMetric string) *Service {
	if scoringMetric == "" {
		scoringMetric = "sharpe"
	}
	return &Service{exec: exec, engine: engine, sim: sim, scoringMetric: scoringMetric}
}

// ResolveInstrument busca symbol en el motor y devuelve la coincidencia exacta.
// Sin motor se usa un instrumento sintético. Sin coincidencia exacta es un error.
func (s *Service) ResolveInstrument(ctx context.Context, segment, symbol string) (domain.Instrument, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return domain.Instrument{}, fmt.Errorf("research.ResolveInstrument: %w", domain.ErrInstrumentNotSelected)
	}

	list, err := fallback.Execute(ctx, s.exec, "/market/instruments",
		func(ctx context.Context) ([]domain.Instrument, error) {
			return s.engine.SearchInstruments(ctx, segment, symbol)
		},
		func() []domain.Instrument {
			in := simulate.SyntheticInstrument(symbol)
			if segment != "" {
				in.ExchangeSegment = segment
			}
			return []domain.Instrument{in}
		},
	)
	if err != nil {
		return domain.Instrument{}, fmt.Errorf("research.ResolveInstrument: %s: %w", symbol, err)
	}

	for _, in := range list {
		if strings.EqualFold(in.Symbol, symbol) {
			return in, nil
		}
	}
	return domain.Instrument{}, fmt.Errorf("research.ResolveInstrument: %s (%d candidates): %w",
		symbol, len(list), domain.ErrInstrumentNotSelected)
}

// SearchInstruments devuelve las coincidencias del motor, o ninguna si no responde.
func (s *Service) SearchInstruments(ctx context.Context, segment, query string) ([]domain.Instrument, error) {
	list, err := fallback.Execute(ctx, s.exec, "/market/instruments",
		func(ctx context.Context) ([]domain.Instrument, error) {
			return s.engine.SearchInstruments(ctx, segment, query)
		},
		func() []domain.Instrument { return nil },
	)
	if err != nil {
		return nil, fmt.Errorf("research.SearchInstruments: %w", err)
	}
	return list, nil
}

// Optimize ejecuta la optimización en grid + walk-forward del request.
func (s *Service) Optimize(ctx context.Context, req domain.RunRequest) (domain.OptimizationRun, error) {
	const op = "research.Optimize"
	if req.Instrument == nil {
		return domain.OptimizationRun{}, domain.NewRunError(op, req, domain.ErrInstrumentNotSelected)
	}
	if err := req.Range.Validate(); err != nil {
		return domain.OptimizationRun{}, domain.NewRunError(op, req, err)
	}
	ranges := req.Ranges
	if len(ranges) == 0 {
		ranges = domain.DefaultRanges(req.Strategy.ID)
	}
	if err := ranges.Validate(); err != nil {
		return domain.OptimizationRun{}, domain.NewRunError(op, req, err)
	}
	wfo := req.WFO
	if wfo.TrainWindow <= 0 || wfo.TestWindow <= 0 {
		wfo = domain.TuneWFOWindows(req.Range.Start, req.Range.End)
	}

	body := domain.OptimizationRequest{
		Symbol:        req.Instrument.Symbol,
		StrategyID:    req.Strategy.ID,
		Ranges:        ranges,
		StartDate:     req.Range.Start.Format(domain.DateLayout),
		EndDate:       req.Range.End.Format(domain.DateLayout),
		ScoringMetric: s.scoringMetric,
		Capital:       req.Capital,
		TrainWindow:   wfo.TrainWindow,
		TestWindow:    wfo.TestWindow,
	}

	run, err := fallback.Execute(ctx, s.exec, "/optimization/run",
		func(ctx context.Context) (domain.OptimizationRun, error) {
			return s.engine.RunOptimization(ctx, body)
		},
		func() domain.OptimizationRun {
			return s.sim.GenerateOptimization(ranges, req.Range.Start, req.Range.End, wfo)
		},
	)
	if err != nil {
		return domain.OptimizationRun{}, domain.NewRunError(op, req, err)
	}
	if run.Error != "" {
		return domain.OptimizationRun{}, domain.NewRunError(op, req,
			fmt.Errorf("%w: %s", domain.ErrRemoteRejected, run.Error))
	}

	slog.Info("optimization complete", "symbol", body.Symbol, "cells", len(run.Grid), "folds", len(run.WFO))
	return run, nil
}

// MonteCarlo pide n trayectorias.
func (s *Service) MonteCarlo(ctx context.Context, n, days int) ([]domain.MonteCarloPath, error) {
	if n <= 0 {
		return nil, fmt.Errorf("research.MonteCarlo: %w: simulations must be positive, got %d", domain.ErrInvalidRequest, n)
	}
	paths, err := fallback.Execute(ctx, s.exec, "/risk/monte-carlo",
		func(ctx context.Context) ([]domain.MonteCarloPath, error) {
			return s.engine.MonteCarlo(ctx, domain.MonteCarloRequest{Simulations: n, Days: days})
		},
		func() []domain.MonteCarloPath { return s.sim.GeneratePaths(n, days) },
	)
	if err != nil {
		return nil, fmt.Errorf("research.MonteCarlo: %w", err)
	}
	return paths, nil
}

// Positions devuelve las posiciones del paper trading; sin motor no hay ninguna.
func (s *Service) Positions(ctx context.Context) ([]domain.PaperPosition, error) {
	list, err := fallback.Execute(ctx, s.exec, "/paper-trading/positions",
		s.engine.PaperPositions,
		func() []domain.PaperPosition { return nil },
	)
	if err != nil {
		return nil, fmt.Errorf("research.Positions: %w", err)
	}
	return list, nil
}
