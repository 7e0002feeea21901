// Package oos vuelve a ejecutar los mejores sets de parámetros de una
// optimización sobre un rango de fechas y recoge resultados comparables.
package oos

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alejandrodnm/stratlab/internal/application/fallback"
	"github.com/alejandrodnm/stratlab/internal/domain"
	"github.com/alejandrodnm/stratlab/internal/simulate"
)

// DefaultTopN es cuántos sets de parámetros se validan normalmente.
const DefaultTopN = 5

// Engine es el endpoint remoto de validación.
type Engine interface {
	ValidateOOS(ctx context.Context, req domain.OOSRequest) ([]domain.BacktestResult, error)
}

// Request describe un lote de validación.
type Request struct {
	Instrument *domain.Instrument
	Strategy   domain.StrategyConfig
	ParamSets  []domain.ParamSet
	// Range es el mismo rango de la optimización; no se desplaza.
	Range     domain.DateRange
	Capital   float64
	Timeframe domain.Timeframe
}

// Validator hace una llamada al executor por cada set de parámetros.
type Validator struct {
	exec   *fallback.Executor
	engine Engine
	sim    *simulate.Generator
}

// NewValidator crea un Validator.
func NewValidator(exec *fallback.Executor, engine Engine, sim *simulate.Generator) *Validator {
	return &Validator{exec: exec, engine: engine, sim: sim}
}

// Validate ejecuta cada set en orden. El primer fallo duro aborta el lote y no
// se devuelven resultados parciales.
func (v *Validator) Validate(ctx context.Context, req Request) ([]domain.BacktestResult, error) {
	const op = "oos.Validate"
	runReq := req.runRequest()

	if req.Instrument == nil {
		return nil, domain.NewRunError(op, runReq, domain.ErrInstrumentNotSelected)
	}
	if len(req.ParamSets) == 0 {
		return nil, domain.NewRunError(op, runReq, domain.ErrNoCandidateParams)
	}
	if err := req.Range.Validate(); err != nil {
		return nil, domain.NewRunError(op, runReq, err)
	}

	symbol := req.Instrument.Symbol
	name := req.Strategy.Name
	if name == "" {
		name = req.Strategy.ID
	}
	tf := domain.NormalizeTimeframe(string(req.Timeframe))
	simCfg := v.sim.ConfigFor(runReq)

	slog.Info("oos validation starting",
		"symbol", symbol,
		"strategy", req.Strategy.ID,
		"param_sets", len(req.ParamSets),
		"range", req.Range.String(),
	)

	results := make([]domain.BacktestResult, 0, len(req.ParamSets))
	for i, ps := range req.ParamSets {
		body := domain.OOSRequest{
			Symbol:     symbol,
			StrategyID: req.Strategy.ID,
			ParamSets:  []domain.ParamSet{ps},
			StartDate:  req.Range.Start.Format(domain.DateLayout),
			EndDate:    req.Range.End.Format(domain.DateLayout),
		}

		res, err := fallback.Execute(ctx, v.exec, "/optimization/oos",
			func(ctx context.Context) (domain.BacktestResult, error) {
				list, err := v.engine.ValidateOOS(ctx, body)
				if err != nil {
					return domain.BacktestResult{}, err
				}
				if len(list) == 0 {
					return domain.BacktestResult{}, fmt.Errorf("%w: empty results for param set", domain.ErrRemoteRejected)
				}
				return list[0], nil
			},
			func() domain.BacktestResult {
				return v.sim.Generate(symbol, req.Strategy.ID, simCfg)
			},
		)
		if err != nil {
			runErr := domain.NewRunError(op, runReq,
				fmt.Errorf("%w: param set %d/%d (%s): %w", domain.ErrBatchAborted, i+1, len(req.ParamSets), ps, err))
			slog.Error("oos validation aborted", "err", runErr)
			return nil, runErr
		}

		res.Symbol = symbol
		res.StrategyName = name
		res.Timeframe = tf
		res.Params = ps.Clone()
		if res.Status == "" {
			res.Status = domain.StatusCompleted
		}
		results = append(results, res)
	}

	slog.Info("oos validation complete", "symbol", symbol, "results", len(results))
	return results, nil
}

func (r Request) runRequest() domain.RunRequest {
	return domain.RunRequest{
		Mode:       domain.ModeSingle,
		Instrument: r.Instrument,
		Strategy:   r.Strategy,
		Timeframe:  r.Timeframe,
		Range:      r.Range,
		Capital:    r.Capital,
	}
}
