package oos

import (
	"context"
	"errors"
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

type fakeEngine struct {
	calls  int
	failAt int // 1-based; 0 = nunca
	err    error
	seen   []domain.OOSRequest
}

func (f *fakeEngine) ValidateOOS(_ context.Context, req domain.OOSRequest) ([]domain.BacktestResult, error) {
	f.calls++
	f.seen = append(f.seen, req)
	if f.failAt == f.calls {
		return nil, f.err
	}
	return []domain.BacktestResult{{ID: fmt.Sprintf("oos-%d", f.calls), Metrics: domain.Metrics{SharpeRatio: float64(f.calls)}}}, nil
}

func newValidator(eng *fakeEngine) *Validator {
	exec := fallback.New(false, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return NewValidator(exec, eng, simulate.NewGenerator(simulate.NewSeededSource(1)))
}

func fiveSets() []domain.ParamSet {
	return []domain.ParamSet{
		{"period": 7}, {"period": 14}, {"period": 21}, {"period": 28}, {"period": 35},
	}
}

func baseRequest() Request {
	rg, _ := domain.ParseDateRange("2023-01-01", "2023-12-31")
	return Request{
		Instrument: &domain.Instrument{Symbol: "TCS"},
		Strategy:   domain.StrategyConfig{ID: "rsi_mean_reversion", Name: "RSI"},
		ParamSets:  fiveSets(),
		Range:      rg,
		Capital:    100000,
		Timeframe:  "1d",
	}
}

func TestValidate_EmptyParamSets(t *testing.T) {
	eng := &fakeEngine{}
	req := baseRequest()
	req.ParamSets = nil

	_, err := newValidator(eng).Validate(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrNoCandidateParams)
	assert.Equal(t, 0, eng.calls)
}

func TestValidate_NoInstrument(t *testing.T) {
	eng := &fakeEngine{}
	req := baseRequest()
	req.Instrument = nil

	_, err := newValidator(eng).Validate(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrInstrumentNotSelected)
	assert.Equal(t, 0, eng.calls)
}

func TestValidate_AllSetsSameRange(t *testing.T) {
	eng := &fakeEngine{}
	results, err := newValidator(eng).Validate(context.Background(), baseRequest())
	require.NoError(t, err)
	require.Len(t, results, 5)
	assert.Equal(t, 5, eng.calls)

	for i, req := range eng.seen {
		assert.Equal(t, "2023-01-01", req.StartDate)
		assert.Equal(t, "2023-12-31", req.EndDate)
		require.Len(t, req.ParamSets, 1)
		assert.Equal(t, fiveSets()[i], req.ParamSets[0])
	}
	for i, r := range results {
		assert.Equal(t, "TCS", r.Symbol)
		assert.Equal(t, "RSI", r.StrategyName)
		assert.Equal(t, domain.TF1d, r.Timeframe)
		assert.Equal(t, fiveSets()[i], r.Params)
		assert.Equal(t, domain.StatusCompleted, r.Status)
	}
}

func TestValidate_OneRejectionAbortsBatch(t *testing.T) {
	eng := &fakeEngine{failAt: 3, err: fmt.Errorf("%w: bad params", domain.ErrRemoteRejected)}
	results, err := newValidator(eng).Validate(context.Background(), baseRequest())

	require.Error(t, err)
	assert.Nil(t, results)
	assert.ErrorIs(t, err, domain.ErrBatchAborted)
	assert.ErrorIs(t, err, domain.ErrRemoteRejected)
	assert.Equal(t, 3, eng.calls, "no sub-call after the failure")

	var runErr *domain.RunError
	require.True(t, errors.As(err, &runErr))
	assert.Equal(t, "TCS", runErr.Symbol)
	assert.Contains(t, err.Error(), "param set 3/5")
}

func TestValidate_UnreachableFallsBackPerSet(t *testing.T) {
	eng := &fakeEngine{failAt: 2, err: domain.ErrRemoteUnreachable}
	results, err := newValidator(eng).Validate(context.Background(), baseRequest())

	require.NoError(t, err)
	require.Len(t, results, 5)
	assert.True(t, results[1].Simulated)
	assert.False(t, results[0].Simulated)
	assert.Equal(t, fiveSets()[1], results[1].Params)
}

func TestTopParamSets(t *testing.T) {
	grid := []domain.OptimizationResult{
		{ParamSet: domain.ParamSet{"p": 1}, Sharpe: 0.5},
		{ParamSet: domain.ParamSet{"p": 2}, Sharpe: 1.5, ReturnPct: 10},
		{ParamSet: domain.ParamSet{"p": 3}, Sharpe: 1.5, ReturnPct: 20},
		{ParamSet: domain.ParamSet{"p": 4}, Sharpe: -1},
	}
	top := TopParamSets(grid, 2)
	require.Len(t, top, 2)
	assert.Equal(t, domain.ParamSet{"p": 3}, top[0])
	assert.Equal(t, domain.ParamSet{"p": 2}, top[1])

	assert.Len(t, TopParamSets(grid, 0), 4)
	assert.Empty(t, TopParamSets(nil, 5))

	top[0]["p"] = 99
	assert.Equal(t, 3.0, grid[2].ParamSet["p"])
}
