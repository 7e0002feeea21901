package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/alejandrodnm/stratlab/internal/application/oos"
	"github.com/alejandrodnm/stratlab/internal/domain"
)

// selectTarget resuelve el instrumento o el universo pedido por flags.
// Sin flags se conserva el de la sesión anterior.
func (a *app) selectTarget(ctx context.Context) error {
	f := a.flags
	if f.universe != "" {
		a.session.SetUniverse(domain.Universe{
			ID:      f.universe,
			Name:    f.universe,
			Symbols: splitSymbols(f.symbols),
		})
		return nil
	}
	if f.symbol == "" {
		return nil
	}

	in, err := a.research.ResolveInstrument(ctx, f.segment, f.symbol)
	if err != nil {
		return err
	}
	a.session.SetInstrument(in)
	slog.Info("instrument selected", "symbol", in.Symbol, "security_id", in.SecurityID, "segment", in.ExchangeSegment)
	return nil
}

// loadData valida los datos del objetivo. Un informe CRITICAL no corta aquí:
// el dispatcher rechaza el run con DataNotReady.
func (a *app) loadData(ctx context.Context) error {
	req := a.session.Snapshot(domain.DataIdle)
	symbol := req.Symbol()
	if symbol == "" {
		if req.Mode == domain.ModeUniverse {
			return fmt.Errorf("%w: universe mode needs -universe", domain.ErrInvalidRequest)
		}
		return fmt.Errorf("%w: pass -symbol", domain.ErrInstrumentNotSelected)
	}

	report, err := a.loader.Load(ctx, symbol, req.Range)
	if err != nil && !errors.Is(err, domain.ErrDataNotReady) {
		return err
	}
	a.console.PrintDataHealth(symbol, report)
	return nil
}

func (a *app) backtest(ctx context.Context, req domain.RunRequest) error {
	outcome, err := a.dispatcher.Run(ctx, req)
	if err != nil {
		return err
	}
	slog.Info("run finished",
		"path", outcome.Path,
		"results", len(outcome.Results),
		"source", outcome.Provenance,
	)
	return nil
}

// optimize corre el grid, elige los mejores param sets y los valida fuera de muestra.
func (a *app) optimize(ctx context.Context, req domain.RunRequest) error {
	if req.Mode == domain.ModeUniverse {
		return fmt.Errorf("%w: -optimize works on a single instrument", domain.ErrInvalidRequest)
	}
	if req.DataStatus != domain.DataReady {
		return domain.NewRunError("stratlab.optimize", req, domain.ErrDataNotReady)
	}

	run, err := a.research.Optimize(ctx, req)
	if err != nil {
		return err
	}
	a.console.PrintOptimization(run)

	top := oos.TopParamSets(run.Grid, a.cfg.Backtest.OOSTopN)
	results, err := a.validator.Validate(ctx, oos.Request{
		Instrument: req.Instrument,
		Strategy:   req.Strategy,
		ParamSets:  top,
		Range:      req.Range,
		Capital:    req.Capital,
		Timeframe:  req.Timeframe,
	})
	if err != nil {
		return err
	}
	a.console.PrintOOS(results)

	if err := a.store.Publish(ctx, results); err != nil {
		slog.Warn("could not record oos results", "err", err)
	}
	if len(top) > 0 {
		a.session.SetParams(top[0])
		if err := a.session.Save(ctx); err != nil {
			slog.Warn("could not save session", "err", err)
		}
	}
	return nil
}

func (a *app) showHistory(ctx context.Context, n int) error {
	runs, err := a.store.RecentRuns(ctx, n)
	if err != nil {
		return err
	}
	a.console.PrintHistory(runs)
	return nil
}

func (a *app) showPositions(ctx context.Context) error {
	positions, err := a.research.Positions(ctx)
	if err != nil {
		return err
	}
	a.console.PrintPositions(positions)
	return nil
}

func (a *app) showSearch(ctx context.Context, segment, query string) error {
	list, err := a.research.SearchInstruments(ctx, segment, query)
	if err != nil {
		return err
	}
	a.console.PrintInstruments(list)
	return nil
}

func (a *app) showMonteCarlo(ctx context.Context, n int) error {
	paths, err := a.research.MonteCarlo(ctx, n, 0)
	if err != nil {
		return err
	}
	a.console.PrintMonteCarlo(paths)
	return nil
}
