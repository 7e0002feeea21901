package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeTimeframe(t *testing.T) {
	cases := map[string]Timeframe{
		"1m": TF1m, "1": TF1m, "1MIN": TF1m,
		"5m": TF5m, "5": TF5m,
		"15m": TF15m, "15min": TF15m,
		"1h": TF1h, "60": TF1h, "1H": TF1h,
		"1d": TF1d, "D": TF1d, "1D": TF1d,
		"": TF1d, "4h": TF1d, "weekly": TF1d,
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeTimeframe(in), "input %q", in)
	}
}

func TestParseDateRange(t *testing.T) {
	r, err := ParseDateRange("2023-01-01", "2023-12-31")
	require.NoError(t, err)
	assert.InDelta(t, 364, r.Days(), 0.001)
	assert.Equal(t, "2023-01-01..2023-12-31", r.String())

	_, err = ParseDateRange("2023-12-31", "2023-01-01")
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = ParseDateRange("2023-01-01", "2023-01-01")
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = ParseDateRange("01/01/2023", "2023-12-31")
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestRunRequest_Validate(t *testing.T) {
	rg, err := ParseDateRange("2023-01-01", "2023-12-31")
	require.NoError(t, err)

	base := RunRequest{Mode: ModeSingle, Range: rg, Capital: 100000}
	assert.NoError(t, base.Validate())

	noCap := base
	noCap.Capital = 0
	assert.ErrorIs(t, noCap.Validate(), ErrInvalidRequest)

	uni := base
	uni.Mode = ModeUniverse
	assert.ErrorIs(t, uni.Validate(), ErrInvalidRequest)

	dyn := base
	dyn.Dynamic = true
	dyn.Params = ParamSet{"period": 14, "lower": 30}
	dyn.Ranges = ParamRange{"period": {Min: 7, Max: 21, Step: 7}}
	assert.ErrorIs(t, dyn.Validate(), ErrInvalidRequest, "lower has no range")

	dyn.Ranges["lower"] = Range{Min: 20, Max: 35, Step: 5}
	assert.NoError(t, dyn.Validate())
}

func TestRunRequest_Symbol(t *testing.T) {
	assert.Equal(t, "", RunRequest{Mode: ModeSingle}.Symbol())
	assert.Equal(t, "INFY", RunRequest{Mode: ModeSingle, Instrument: &Instrument{Symbol: "INFY"}}.Symbol())
	assert.Equal(t, "NIFTY50", RunRequest{Mode: ModeUniverse, Universe: &Universe{ID: "NIFTY50"}}.Symbol())
}

func TestParseRunMode(t *testing.T) {
	m, err := ParseRunMode("universe")
	require.NoError(t, err)
	assert.Equal(t, ModeUniverse, m)

	m, err = ParseRunMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeSingle, m)

	_, err = ParseRunMode("basket")
	assert.Error(t, err)
}

func TestRunError_CarriesContext(t *testing.T) {
	rg, _ := ParseDateRange("2023-01-01", "2023-12-31")
	req := RunRequest{
		Mode:       ModeSingle,
		Instrument: &Instrument{Symbol: "RELIANCE"},
		Strategy:   StrategyConfig{ID: "rsi_mean_reversion"},
		Range:      rg,
	}
	err := NewRunError("dispatcher.Run", req, ErrDataNotReady)

	assert.True(t, errors.Is(err, ErrDataNotReady))
	assert.Contains(t, err.Error(), "symbol=RELIANCE")
	assert.Contains(t, err.Error(), "strategy=rsi_mean_reversion")
	assert.Contains(t, err.Error(), "range=2023-01-01..2023-12-31")
}
