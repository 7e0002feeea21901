package research

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/alejandrodnm/stratlab/internal/application/fallback"
	"github.com/alejandrodnm/stratlab/internal/domain"
	"github.com/alejandrodnm/stratlab/internal/simulate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var unreachable = fmt.Errorf("%w: dial tcp: connection refused", domain.ErrRemoteUnreachable)

type fakeEngine struct {
	instruments []domain.Instrument
	paths       []domain.MonteCarloPath
	positions   []domain.PaperPosition
	run         domain.OptimizationRun
	err         error
	optReq      domain.OptimizationRequest
	calls       int
}

func (f *fakeEngine) SearchInstruments(context.Context, string, string) ([]domain.Instrument, error) {
	f.calls++
	return f.instruments, f.err
}

func (f *fakeEngine) MonteCarlo(context.Context, domain.MonteCarloRequest) ([]domain.MonteCarloPath, error) {
	f.calls++
	return f.paths, f.err
}

func (f *fakeEngine) PaperPositions(context.Context) ([]domain.PaperPosition, error) {
	f.calls++
	return f.positions, f.err
}

func (f *fakeEngine) RunOptimization(_ context.Context, req domain.OptimizationRequest) (domain.OptimizationRun, error) {
	f.calls++
	f.optReq = req
	return f.run, f.err
}

func newService(eng *fakeEngine, mock bool) *Service {
	exec := fallback.New(mock, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return New(exec, eng, simulate.NewGenerator(simulate.NewSeededSource(5)), "")
}

func optRequest() domain.RunRequest {
	rg, _ := domain.ParseDateRange("2022-01-01", "2023-06-30")
	return domain.RunRequest{
		Mode:       domain.ModeSingle,
		Instrument: &domain.Instrument{Symbol: "INFY"},
		Strategy:   domain.StrategyConfig{ID: "rsi_mean_reversion"},
		Range:      rg,
		Capital:    100000,
	}
}

func TestResolveInstrument_ExactMatch(t *testing.T) {
	eng := &fakeEngine{instruments: []domain.Instrument{
		{Symbol: "INFYBEES", SecurityID: "1"},
		{Symbol: "INFY", SecurityID: "1594"},
	}}
	in, err := newService(eng, false).ResolveInstrument(context.Background(), "NSE_EQ", "infy")
	require.NoError(t, err)
	assert.Equal(t, "1594", in.SecurityID)
}

func TestResolveInstrument_NoMatch(t *testing.T) {
	eng := &fakeEngine{instruments: []domain.Instrument{{Symbol: "INFYBEES"}}}
	_, err := newService(eng, false).ResolveInstrument(context.Background(), "", "INFY")
	assert.ErrorIs(t, err, domain.ErrInstrumentNotSelected)
}

func TestResolveInstrument_UnreachableIsSynthetic(t *testing.T) {
	eng := &fakeEngine{err: unreachable}
	in, err := newService(eng, false).ResolveInstrument(context.Background(), "BSE_EQ", "tcs")
	require.NoError(t, err)
	assert.Equal(t, "TCS", in.Symbol)
	assert.Equal(t, "BSE_EQ", in.ExchangeSegment)
	assert.Equal(t, "SIM-TCS", in.SecurityID)
}

func TestResolveInstrument_Empty(t *testing.T) {
	eng := &fakeEngine{}
	_, err := newService(eng, false).ResolveInstrument(context.Background(), "", "  ")
	assert.ErrorIs(t, err, domain.ErrInstrumentNotSelected)
	assert.Equal(t, 0, eng.calls)
}

func TestOptimize_RequestShape(t *testing.T) {
	eng := &fakeEngine{run: domain.OptimizationRun{Grid: []domain.OptimizationResult{{Sharpe: 1}}}}
	run, err := newService(eng, false).Optimize(context.Background(), optRequest())
	require.NoError(t, err)
	assert.Len(t, run.Grid, 1)

	req := eng.optReq
	assert.Equal(t, "INFY", req.Symbol)
	assert.Equal(t, "sharpe", req.ScoringMetric)
	assert.Equal(t, domain.DefaultRanges("rsi_mean_reversion"), req.Ranges)
	// 18 meses → ventanas 6/2
	assert.Equal(t, 6, req.TrainWindow)
	assert.Equal(t, 2, req.TestWindow)
	assert.Equal(t, "2022-01-01", req.StartDate)
}

func TestOptimize_ErrorField(t *testing.T) {
	eng := &fakeEngine{run: domain.OptimizationRun{Error: "no data"}}
	_, err := newService(eng, false).Optimize(context.Background(), optRequest())
	assert.ErrorIs(t, err, domain.ErrRemoteRejected)
}

func TestOptimize_FallbackGrid(t *testing.T) {
	eng := &fakeEngine{err: unreachable}
	run, err := newService(eng, false).Optimize(context.Background(), optRequest())
	require.NoError(t, err)
	assert.NotEmpty(t, run.Grid)
	assert.NotEmpty(t, run.WFO)
}

func TestOptimize_NoInstrument(t *testing.T) {
	req := optRequest()
	req.Instrument = nil
	eng := &fakeEngine{}
	_, err := newService(eng, false).Optimize(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrInstrumentNotSelected)
	assert.Equal(t, 0, eng.calls)
}

func TestMonteCarlo(t *testing.T) {
	eng := &fakeEngine{}
	paths, err := newService(eng, true).MonteCarlo(context.Background(), 4, 30)
	require.NoError(t, err)
	require.Len(t, paths, 4)
	assert.Len(t, paths[0].Values, 30)
	assert.Equal(t, 0, eng.calls, "mock mode never calls the engine")

	_, err = newService(eng, true).MonteCarlo(context.Background(), 0, 30)
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
}

func TestPositions(t *testing.T) {
	eng := &fakeEngine{positions: []domain.PaperPosition{{Symbol: "SBIN"}}}
	list, err := newService(eng, false).Positions(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 1)

	eng.err = unreachable
	list, err = newService(eng, false).Positions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)

	eng.err = fmt.Errorf("%w: forbidden", domain.ErrRemoteRejected)
	_, err = newService(eng, false).Positions(context.Background())
	assert.ErrorIs(t, err, domain.ErrRemoteRejected)
}

func TestSearchInstruments_Unreachable(t *testing.T) {
	eng := &fakeEngine{err: unreachable}
	list, err := newService(eng, false).SearchInstruments(context.Background(), "", "bank")
	require.NoError(t, err)
	assert.Empty(t, list)
}
