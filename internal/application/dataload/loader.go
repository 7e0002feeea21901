// Package dataload gates backtests on the health of the loaded market data.
package dataload

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/alejandrodnm/stratlab/internal/application/fallback"
	"github.com/alejandrodnm/stratlab/internal/domain"
	"github.com/alejandrodnm/stratlab/internal/ports"
	"github.com/alejandrodnm/stratlab/internal/simulate"
)

// Loader valida los datos de un instrumento y expone el DataStatus que lee el
// dispatcher. Solo una validación a la vez.
type Loader struct {
	exec    *fallback.Executor
	checker ports.DataHealthChecker
	sim     *simulate.Generator

	fetching atomic.Bool

	mu     sync.RWMutex
	status domain.DataStatus
	last   *domain.DataHealthReport
}

// NewLoader crea un Loader en estado IDLE.
func NewLoader(exec *fallback.Executor, checker ports.DataHealthChecker, sim *simulate.Generator) *Loader {
	return &Loader{exec: exec, checker: checker, sim: sim, status: domain.DataIdle}
}

// Load pide el informe de salud de los datos. El estado queda READY salvo que
// el informe sea CRITICAL o la llamada falle.
func (l *Loader) Load(ctx context.Context, symbol string, rg domain.DateRange) (domain.DataHealthReport, error) {
	if !l.fetching.CompareAndSwap(false, true) {
		return domain.DataHealthReport{}, fmt.Errorf("dataload.Load: %s: %w", symbol, domain.ErrFetchInProgress)
	}
	defer l.fetching.Store(false)

	if err := rg.Validate(); err != nil {
		l.setStatus(domain.DataError, nil)
		return domain.DataHealthReport{}, fmt.Errorf("dataload.Load: %w", err)
	}

	l.setStatus(domain.DataLoading, nil)
	slog.Info("checking data health", "symbol", symbol, "range", rg.String())

	report, err := fallback.Execute(ctx, l.exec, "/market/data/health",
		func(ctx context.Context) (domain.DataHealthReport, error) {
			return l.checker.DataHealth(ctx, symbol, rg)
		},
		func() domain.DataHealthReport { return l.sim.DataHealth(rg) },
	)
	if err != nil {
		l.setStatus(domain.DataError, nil)
		return domain.DataHealthReport{}, fmt.Errorf("dataload.Load: %s: %w", symbol, err)
	}

	if report.Status == domain.HealthCritical {
		l.setStatus(domain.DataError, &report)
		slog.Warn("data health critical",
			"symbol", symbol,
			"missing", report.MissingCandles,
			"gaps", report.Gaps,
		)
		return report, fmt.Errorf("dataload.Load: %s: health %s: %w", symbol, report.Status, domain.ErrDataNotReady)
	}

	l.setStatus(domain.DataReady, &report)
	slog.Info("data ready", "symbol", symbol, "health", report.Status, "candles", report.TotalCandles)
	return report, nil
}

// Status devuelve el estado actual.
func (l *Loader) Status() domain.DataStatus {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.status
}

// LastReport devuelve el último informe recibido, si hay.
func (l *Loader) LastReport() (domain.DataHealthReport, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.last == nil {
		return domain.DataHealthReport{}, false
	}
	return *l.last, true
}

// Fetching indica si hay una validación en curso.
func (l *Loader) Fetching() bool { return l.fetching.Load() }

func (l *Loader) setStatus(s domain.DataStatus, report *domain.DataHealthReport) {
	l.mu.Lock()
	l.status = s
	l.last = report
	l.mu.Unlock()
}
