package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/alejandrodnm/stratlab/internal/domain"
	"github.com/alejandrodnm/stratlab/internal/ports"
)

var _ ports.ExecutionService = (*Client)(nil)

const (
	PathWFO          = "/optimization/wfo"
	PathOptimization = "/optimization/run"
	PathOOS          = "/optimization/oos"
	PathBacktest     = "/market/backtest/run"
	PathInstruments  = "/market/instruments"
	PathDataHealth   = "/market/data/health"
	PathMonteCarlo   = "/risk/monte-carlo"
	PathPositions    = "/paper-trading/positions"
)

// RunWFO ejecuta una optimización walk-forward con resultados completos.
func (c *Client) RunWFO(ctx context.Context, req domain.WFORequest) (domain.BacktestResult, error) {
	var out domain.BacktestResult
	if err := c.post(ctx, PathWFO, req, &out); err != nil {
		return domain.BacktestResult{}, fmt.Errorf("engine.RunWFO: %w", err)
	}
	return out, nil
}

// RunBacktest ejecuta un backtest sobre un instrumento.
func (c *Client) RunBacktest(ctx context.Context, req domain.BacktestRunRequest) (domain.BacktestResult, error) {
	var out domain.BacktestResult
	if err := c.post(ctx, PathBacktest, req, &out); err != nil {
		return domain.BacktestResult{}, fmt.Errorf("engine.RunBacktest: %w", err)
	}
	return out, nil
}

// RunUniverse ejecuta el backtest de un universo. El motor puede devolver un
// array, {"results": [...]} o un único resultado agregado.
func (c *Client) RunUniverse(ctx context.Context, req domain.UniverseRunRequest) ([]domain.BacktestResult, error) {
	var raw json.RawMessage
	if err := c.post(ctx, PathBacktest, req, &raw); err != nil {
		return nil, fmt.Errorf("engine.RunUniverse: %w", err)
	}
	results, err := decodeResults(raw)
	if err != nil {
		return nil, fmt.Errorf("engine.RunUniverse: %w", err)
	}
	return results, nil
}

// RunOptimization ejecuta la optimización en grid + walk-forward.
func (c *Client) RunOptimization(ctx context.Context, req domain.OptimizationRequest) (domain.OptimizationRun, error) {
	var out domain.OptimizationRun
	if err := c.post(ctx, PathOptimization, req, &out); err != nil {
		return domain.OptimizationRun{}, fmt.Errorf("engine.RunOptimization: %w", err)
	}
	return out, nil
}

// ValidateOOS re-ejecuta los param sets sobre el rango pedido.
func (c *Client) ValidateOOS(ctx context.Context, req domain.OOSRequest) ([]domain.BacktestResult, error) {
	var out struct {
		Results []domain.BacktestResult `json:"results"`
	}
	if err := c.post(ctx, PathOOS, req, &out); err != nil {
		return nil, fmt.Errorf("engine.ValidateOOS: %w", err)
	}
	return out.Results, nil
}

// MonteCarlo pide al motor las trayectorias simuladas.
func (c *Client) MonteCarlo(ctx context.Context, req domain.MonteCarloRequest) ([]domain.MonteCarloPath, error) {
	var out []domain.MonteCarloPath
	if err := c.post(ctx, PathMonteCarlo, req, &out); err != nil {
		return nil, fmt.Errorf("engine.MonteCarlo: %w", err)
	}
	return out, nil
}

// SearchInstruments busca instrumentos por segmento y texto.
func (c *Client) SearchInstruments(ctx context.Context, segment, query string) ([]domain.Instrument, error) {
	q := url.Values{}
	q.Set("segment", segment)
	q.Set("q", query)

	var out []domain.Instrument
	if err := c.get(ctx, PathInstruments+"?"+q.Encode(), &out); err != nil {
		return nil, fmt.Errorf("engine.SearchInstruments: %w", err)
	}
	return out, nil
}

// PaperPositions devuelve las posiciones abiertas del paper trading.
func (c *Client) PaperPositions(ctx context.Context) ([]domain.PaperPosition, error) {
	var out []domain.PaperPosition
	if err := c.get(ctx, PathPositions, &out); err != nil {
		return nil, fmt.Errorf("engine.PaperPositions: %w", err)
	}
	return out, nil
}

// DataHealth pide el informe de calidad de datos de un símbolo en un rango.
func (c *Client) DataHealth(ctx context.Context, symbol string, rg domain.DateRange) (domain.DataHealthReport, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("start_date", rg.Start.Format(domain.DateLayout))
	q.Set("end_date", rg.End.Format(domain.DateLayout))

	var out domain.DataHealthReport
	if err := c.get(ctx, PathDataHealth+"?"+q.Encode(), &out); err != nil {
		return domain.DataHealthReport{}, fmt.Errorf("engine.DataHealth: %w", err)
	}
	return out, nil
}

// decodeResults acepta un array, {"results": [...]} o un único objeto
// BacktestResult. Una respuesta sin resultados cuenta como rechazo.
func decodeResults(raw json.RawMessage) ([]domain.BacktestResult, error) {
	raw = bytes.TrimSpace(raw)
	var list []domain.BacktestResult
	switch {
	case len(raw) > 0 && raw[0] == '[':
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, fmt.Errorf("%w: decode results: %v", domain.ErrRemoteUnreachable, err)
		}
	default:
		var keys map[string]json.RawMessage
		if err := json.Unmarshal(raw, &keys); err != nil {
			return nil, fmt.Errorf("%w: decode results: %v", domain.ErrRemoteUnreachable, err)
		}
		if wrapped, ok := keys["results"]; ok {
			if err := json.Unmarshal(wrapped, &list); err != nil {
				return nil, fmt.Errorf("%w: decode results: %v", domain.ErrRemoteUnreachable, err)
			}
			break
		}
		if len(keys) > 0 {
			var single domain.BacktestResult
			if err := json.Unmarshal(raw, &single); err != nil {
				return nil, fmt.Errorf("%w: decode results: %v", domain.ErrRemoteUnreachable, err)
			}
			list = []domain.BacktestResult{single}
		}
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("%w: universe run returned no results", domain.ErrRemoteRejected)
	}
	return list, nil
}
