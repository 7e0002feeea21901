package metrics

import (
	"math"
	"testing"
	"time"

	"github.com/alejandrodnm/stratlab/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func days(start time.Time, n int) []time.Time {
	out := make([]time.Time, n)
	for i := range out {
		out[i] = start.AddDate(0, 0, i)
	}
	return out
}

var jan1 = time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)

func TestDrawdown_Clamped(t *testing.T) {
	assert.InDelta(t, 10.0, Drawdown(100, 90), 1e-9)
	assert.Equal(t, 0.0, Drawdown(100, 110))
	assert.Equal(t, 0.0, Drawdown(0, 50))
}

func TestEquityCurve_DrawdownAgainstRunningPeak(t *testing.T) {
	values := []float64{100, 110, 99, 105, 121, 110}
	curve := EquityCurve(days(jan1, len(values)), values)
	require.Len(t, curve, 6)

	assert.Equal(t, 0.0, curve[0].DrawdownPct)
	assert.Equal(t, 0.0, curve[1].DrawdownPct)
	assert.InDelta(t, 10.0, curve[2].DrawdownPct, 1e-9) // 110 → 99
	assert.InDelta(t, 4.545, curve[3].DrawdownPct, 0.001)
	assert.Equal(t, 0.0, curve[4].DrawdownPct) // nuevo máximo
	assert.InDelta(t, 9.09, curve[5].DrawdownPct, 0.01)

	assert.InDelta(t, 10.0, MaxDrawdownPct(curve), 1e-9)
	assert.InDelta(t, 10.0, TotalReturnPct(curve), 1e-9)
}

func TestCompoundReturns(t *testing.T) {
	eq := CompoundReturns(1000, []float64{0.1, -0.1, 0})
	assert.InDelta(t, 1100, eq[0], 1e-9)
	assert.InDelta(t, 990, eq[1], 1e-9)
	assert.InDelta(t, 990, eq[2], 1e-9)
}

func TestSharpe_ZeroVolatility(t *testing.T) {
	assert.Equal(t, 0.0, Sharpe([]float64{0.01, 0.01, 0.01}))
	assert.Equal(t, 0.0, Sharpe(nil))
}

func TestSharpe_Sign(t *testing.T) {
	assert.Greater(t, Sharpe([]float64{0.01, 0.02, 0.005, 0.015}), 0.0)
	assert.Less(t, Sharpe([]float64{-0.01, -0.02, -0.005, 0.001}), 0.0)
}

func TestSortino_NoDownside(t *testing.T) {
	assert.Equal(t, 0.0, Sortino([]float64{0.01, 0.02}))
	assert.Greater(t, Sortino([]float64{0.03, -0.01, 0.02}), 0.0)
}

func TestCAGRPct_OneYear(t *testing.T) {
	assert.InDelta(t, 10.0, CAGRPct(100, 110, 365), 1e-9)
	assert.Equal(t, 0.0, CAGRPct(0, 110, 365))
}

func TestCalmar(t *testing.T) {
	assert.InDelta(t, 2.0, Calmar(20, 10), 1e-9)
	assert.Equal(t, 0.0, Calmar(20, 0))
}

func TestMonthlyReturns_ChainsFromPreviousClose(t *testing.T) {
	curve := []domain.EquityPoint{
		{Date: time.Date(2023, 1, 30, 0, 0, 0, 0, time.UTC), Value: 100},
		{Date: time.Date(2023, 1, 31, 0, 0, 0, 0, time.UTC), Value: 110},
		{Date: time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC), Value: 121},
		{Date: time.Date(2023, 2, 28, 0, 0, 0, 0, time.UTC), Value: 99},
	}
	got := MonthlyReturns(curve)
	require.Len(t, got, 2)
	assert.Equal(t, "2023-01", got[0].Month)
	assert.InDelta(t, 10.0, got[0].ReturnPct, 1e-9)
	assert.Equal(t, "2023-02", got[1].Month)
	assert.InDelta(t, -10.0, got[1].ReturnPct, 1e-9)

	assert.Nil(t, MonthlyReturns(nil))
}

func TestSummarizeTrades(t *testing.T) {
	trades := []domain.Trade{
		{PnL: 500, PnLPct: 5, Status: domain.TradeWin},
		{PnL: -300, PnLPct: -3, Status: domain.TradeLoss},
		{PnL: -300, PnLPct: -3, Status: domain.TradeLoss},
		{PnL: 500, PnLPct: 5, Status: domain.TradeWin},
	}
	st := SummarizeTrades(trades)

	assert.Equal(t, 4, st.Total)
	assert.Equal(t, 2, st.Wins)
	assert.InDelta(t, 50.0, st.WinRatePct, 1e-9)
	assert.InDelta(t, 1000.0/600.0, st.ProfitFactor, 1e-9)
	assert.InDelta(t, 100.0, st.AvgPnL, 1e-9)
	assert.InDelta(t, 1.0, st.Expectancy, 1e-9)
	assert.Equal(t, 2, st.ConsecutiveLoss)
	// b = 5/3, kelly = 0.5 - 0.5/(5/3) = 0.2
	assert.InDelta(t, 0.2, st.KellyFraction, 1e-9)
}

func TestSummarizeTrades_AllWins(t *testing.T) {
	st := SummarizeTrades([]domain.Trade{{PnL: 10, PnLPct: 1, Status: domain.TradeWin}})
	assert.Equal(t, float64(profitFactorCap), st.ProfitFactor)
	assert.Equal(t, 0.0, st.KellyFraction)
}

func TestSummarizeTrades_Empty(t *testing.T) {
	assert.Equal(t, TradeStats{}, SummarizeTrades(nil))
}

func TestSummarize(t *testing.T) {
	values := []float64{100000, 101000, 99990, 102000}
	curve := EquityCurve(days(jan1, len(values)), values)
	m := Summarize(100000, curve, nil)

	assert.InDelta(t, 2.0, m.TotalReturnPct, 1e-9)
	assert.InDelta(t, 1.0, m.MaxDrawdownPct, 0.001)
	assert.Equal(t, 102000.0, m.FinalEquity)
	assert.False(t, math.IsNaN(m.SharpeRatio))
	assert.Greater(t, m.CAGRPct, 0.0)
	assert.InDelta(t, m.CAGRPct/m.MaxDrawdownPct, m.CalmarRatio, 1e-9)
}

func TestRoundMoney(t *testing.T) {
	assert.Equal(t, 1234.57, RoundMoney(1234.5678))
	assert.Equal(t, -0.01, RoundMoney(-0.005001))
}
