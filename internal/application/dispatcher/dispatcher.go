// Package dispatcher es el núcleo de orquestación: comprueba las precondiciones,
// elige el camino de ejecución de un RunRequest y lo lanza a través del
// executor con fallback.
package dispatcher

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/alejandrodnm/stratlab/internal/application/fallback"
	"github.com/alejandrodnm/stratlab/internal/domain"
	"github.com/alejandrodnm/stratlab/internal/ports"
	"github.com/alejandrodnm/stratlab/internal/simulate"
)

// Valores por defecto de los requests al motor.
const (
	DefaultScoringMetric = "sharpe"
	DefaultStatsFreq     = "D"
)

// Engine es lo que el dispatcher necesita del servicio de ejecución remoto.
type Engine interface {
	ports.BacktestEngine
	ports.OptimizationEngine
}

// Config guarda los valores por defecto de los requests.
type Config struct {
	ScoringMetric string
	StatsFreq     string
}

// Outcome es el resultado anotado de una ejecución. Los caminos de un solo
// instrumento llevan exactamente un resultado.
type Outcome struct {
	Path       domain.PathKind
	Results    []domain.BacktestResult
	Provenance fallback.Provenance
}

// Primary devuelve el primer resultado, o el valor cero si no hay ninguno.
func (o Outcome) Primary() domain.BacktestResult {
	if len(o.Results) == 0 {
		return domain.BacktestResult{}
	}
	return o.Results[0]
}

// Dispatcher ejecuta un backtest cada vez.
type Dispatcher struct {
	exec    *fallback.Executor
	engine  Engine
	sim     *simulate.Generator
	sinks   []ports.ResultSink
	cfg     Config
	running atomic.Bool
}

// New crea un Dispatcher. Los sinks reciben cada ejecución correcta.
func New(exec *fallback.Executor, engine Engine, sim *simulate.Generator, cfg Config, sinks ...ports.ResultSink) *Dispatcher {
	if cfg.ScoringMetric == "" {
		cfg.ScoringMetric = DefaultScoringMetric
	}
	if cfg.StatsFreq == "" {
		cfg.StatsFreq = DefaultStatsFreq
	}
	return &Dispatcher{exec: exec, engine: engine, sim: sim, cfg: cfg, sinks: sinks}
}

// Running indica si hay una ejecución en curso.
func (d *Dispatcher) Running() bool { return d.running.Load() }

// Run ejecuta req. Las precondiciones se comprueban en orden: ninguna ejecución
// en curso, datos READY e instrumento resuelto en modo SINGLE. El guard se
// libera en cualquier salida.
func (d *Dispatcher) Run(ctx context.Context, req domain.RunRequest) (Outcome, error) {
	const op = "dispatcher.Run"

	if !d.running.CompareAndSwap(false, true) {
		return Outcome{}, domain.NewRunError(op, req, domain.ErrRunInProgress)
	}
	defer d.running.Store(false)

	if req.DataStatus != domain.DataReady {
		return Outcome{}, domain.NewRunError(op, req,
			fmt.Errorf("%w (status %s)", domain.ErrDataNotReady, statusOrIdle(req.DataStatus)))
	}
	if req.Mode == domain.ModeSingle && req.Instrument == nil {
		return Outcome{}, domain.NewRunError(op, req, domain.ErrInstrumentNotSelected)
	}
	if err := req.Validate(); err != nil {
		return Outcome{}, domain.NewRunError(op, req, err)
	}

	path, err := domain.SelectPath(req)
	if err != nil {
		return Outcome{}, domain.NewRunError(op, req, err)
	}

	start := time.Now()
	slog.Info("backtest run starting",
		"path", path.Kind(),
		"symbol", req.Symbol(),
		"strategy", req.Strategy.ID,
		"range", req.Range.String(),
		"mock", d.exec.MockMode(),
	)

	results, prov, err := d.execute(ctx, path, req)
	if err != nil {
		runErr := domain.NewRunError(op, req, err)
		slog.Error("backtest run failed", "path", path.Kind(), "err", runErr)
		return Outcome{}, runErr
	}

	annotate(results, path, req)
	out := Outcome{Path: path.Kind(), Results: results, Provenance: prov}

	slog.Info("backtest run complete",
		"path", path.Kind(),
		"symbol", req.Symbol(),
		"results", len(results),
		"provenance", prov,
		"elapsed", time.Since(start),
	)

	for _, s := range d.sinks {
		if err := s.Publish(ctx, results); err != nil {
			slog.Warn("result sink failed", "err", err)
		}
	}
	return out, nil
}

// execute resuelve la variante de camino y hace exactamente una llamada al executor.
func (d *Dispatcher) execute(ctx context.Context, path domain.ExecutionPath, req domain.RunRequest) ([]domain.BacktestResult, fallback.Provenance, error) {
	simCfg := d.sim.ConfigFor(req)

	switch p := path.(type) {
	case domain.DynamicPath:
		body := BuildWFORequest(p.Instrument, req, d.cfg)
		res, prov, err := fallback.ExecuteWithProvenance(ctx, d.exec, "/optimization/wfo",
			func(ctx context.Context) (domain.BacktestResult, error) { return d.engine.RunWFO(ctx, body) },
			func() domain.BacktestResult {
				return d.sim.GenerateWFO(p.Instrument.Symbol, req.Strategy.ID, simCfg, req.Ranges, req.WFO, req.Range.End)
			},
		)
		if err != nil {
			return nil, prov, err
		}
		return []domain.BacktestResult{res}, prov, nil

	case domain.StandardPath:
		body := BuildBacktestRequest(p.Instrument, req, d.cfg)
		res, prov, err := fallback.ExecuteWithProvenance(ctx, d.exec, "/market/backtest/run",
			func(ctx context.Context) (domain.BacktestResult, error) { return d.engine.RunBacktest(ctx, body) },
			func() domain.BacktestResult {
				r := d.sim.Generate(p.Instrument.Symbol, req.Strategy.ID, simCfg)
				r.Params = req.Params.Clone()
				return r
			},
		)
		if err != nil {
			return nil, prov, err
		}
		return []domain.BacktestResult{res}, prov, nil

	case domain.UniversePath:
		body := BuildUniverseRequest(p.Universe, req, d.cfg)
		return fallback.ExecuteWithProvenance(ctx, d.exec, "/market/backtest/run",
			func(ctx context.Context) ([]domain.BacktestResult, error) { return d.engine.RunUniverse(ctx, body) },
			func() []domain.BacktestResult { return d.simulateUniverse(p.Universe, req, simCfg) },
		)
	}
	return nil, fallback.FromRemote, fmt.Errorf("%w: unhandled execution path %T", domain.ErrInvalidRequest, path)
}

func (d *Dispatcher) simulateUniverse(uni domain.Universe, req domain.RunRequest, cfg simulate.Config) []domain.BacktestResult {
	symbols := uni.Symbols
	if len(symbols) == 0 {
		symbols = []string{uni.ID}
	}
	out := make([]domain.BacktestResult, 0, len(symbols))
	for _, sym := range symbols {
		r := d.sim.Generate(sym, req.Strategy.ID, cfg)
		r.Params = req.Params.Clone()
		out = append(out, r)
	}
	return out
}

// annotate etiqueta los resultados con timeframe, símbolo/universo y estrategia.
func annotate(results []domain.BacktestResult, path domain.ExecutionPath, req domain.RunRequest) {
	name := req.Strategy.Name
	if name == "" {
		name = req.Strategy.ID
	}
	tf := domain.NormalizeTimeframe(string(req.Timeframe))

	for i := range results {
		r := &results[i]
		r.Timeframe = tf
		r.StrategyName = name
		switch p := path.(type) {
		case domain.DynamicPath:
			r.Symbol = p.Instrument.Symbol
		case domain.StandardPath:
			r.Symbol = p.Instrument.Symbol
		case domain.UniversePath:
			r.Universe = p.Universe.ID
			if r.Symbol == "" {
				r.Symbol = p.Universe.ID
			}
		}
		if r.Status == "" {
			r.Status = domain.StatusCompleted
		}
	}
}

func statusOrIdle(s domain.DataStatus) domain.DataStatus {
	if s == "" {
		return domain.DataIdle
	}
	return s
}
