package ports

import (
	"context"

	"github.com/alejandrodnm/stratlab/internal/domain"
)

// BacktestEngine ejecuta backtests en el motor remoto.
type BacktestEngine interface {
	// RunBacktest ejecuta un backtest sobre un instrumento.
	RunBacktest(ctx context.Context, req domain.BacktestRunRequest) (domain.BacktestResult, error)

	// RunUniverse ejecuta el backtest sobre todos los instrumentos del universo.
	RunUniverse(ctx context.Context, req domain.UniverseRunRequest) ([]domain.BacktestResult, error)
}

// OptimizationEngine ejecuta optimizaciones y walk-forward en el motor remoto.
type OptimizationEngine interface {
	RunWFO(ctx context.Context, req domain.WFORequest) (domain.BacktestResult, error)
	RunOptimization(ctx context.Context, req domain.OptimizationRequest) (domain.OptimizationRun, error)

	// ValidateOOS re-ejecuta los param sets dados sobre el rango pedido.
	ValidateOOS(ctx context.Context, req domain.OOSRequest) ([]domain.BacktestResult, error)
}

// RiskEngine genera trayectorias Monte Carlo.
type RiskEngine interface {
	MonteCarlo(ctx context.Context, req domain.MonteCarloRequest) ([]domain.MonteCarloPath, error)
}

// InstrumentSearch busca instrumentos por texto.
type InstrumentSearch interface {
	SearchInstruments(ctx context.Context, segment, query string) ([]domain.Instrument, error)
}

// PaperTrading expone las posiciones del paper trading del motor.
type PaperTrading interface {
	PaperPositions(ctx context.Context) ([]domain.PaperPosition, error)
}

// DataHealthChecker valida la calidad de los datos de un instrumento en un rango.
type DataHealthChecker interface {
	DataHealth(ctx context.Context, symbol string, rg domain.DateRange) (domain.DataHealthReport, error)
}

// ExecutionService agrupa todo lo que ofrece el motor remoto.
type ExecutionService interface {
	BacktestEngine
	OptimizationEngine
	RiskEngine
	InstrumentSearch
	PaperTrading
	DataHealthChecker
}
