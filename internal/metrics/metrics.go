// Package metrics calcula curvas de equity, drawdowns y estadísticas de
// riesgo/retorno a partir de una secuencia de retornos o trades. Funciones puras.
package metrics

import (
	"math"
	"time"

	"github.com/alejandrodnm/stratlab/internal/domain"
	"github.com/shopspring/decimal"
)

const (
	TradingDaysPerYear = 252
	// profitFactorCap se reporta cuando hay trades ganadores y ninguna pérdida.
	profitFactorCap = 999
)

// Drawdown devuelve (peak-equity)/peak en porcentaje, nunca negativo.
func Drawdown(peak, equity float64) float64 {
	if peak <= 0 {
		return 0
	}
	dd := (peak - equity) / peak * 100
	if dd < 0 {
		return 0
	}
	return dd
}

// EquityCurve construye la curva a partir de slices paralelos de fecha/valor.
// drawdownPct se calcula contra el máximo acumulado hasta cada punto.
func EquityCurve(dates []time.Time, values []float64) []domain.EquityPoint {
	n := min(len(dates), len(values))
	curve := make([]domain.EquityPoint, n)
	peak := 0.0
	for i := 0; i < n; i++ {
		if values[i] > peak {
			peak = values[i]
		}
		curve[i] = domain.EquityPoint{
			Date:        dates[i],
			Value:       RoundMoney(values[i]),
			DrawdownPct: Drawdown(peak, values[i]),
		}
	}
	return curve
}

// CompoundReturns aplica los retornos diarios al capital y devuelve la equity de cada día.
func CompoundReturns(capital float64, returns []float64) []float64 {
	out := make([]float64, len(returns))
	equity := capital
	for i, r := range returns {
		equity *= 1 + r
		out[i] = equity
	}
	return out
}

// MaxDrawdownPct es el mayor drawdownPct de la curva.
func MaxDrawdownPct(curve []domain.EquityPoint) float64 {
	maxDD := 0.0
	for _, p := range curve {
		if p.DrawdownPct > maxDD {
			maxDD = p.DrawdownPct
		}
	}
	return maxDD
}

// TotalReturnPct es el retorno entre el primer y el último punto de la curva.
func TotalReturnPct(curve []domain.EquityPoint) float64 {
	if len(curve) == 0 || curve[0].Value == 0 {
		return 0
	}
	first, last := curve[0].Value, curve[len(curve)-1].Value
	return (last - first) / first * 100
}

// PeriodReturns convierte la curva en retornos simples punto a punto.
func PeriodReturns(curve []domain.EquityPoint) []float64 {
	if len(curve) < 2 {
		return nil
	}
	out := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].Value
		if prev == 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, curve[i].Value/prev-1)
	}
	return out
}

// CAGRPct anualiza el crecimiento entre el valor inicial y el final en days días.
func CAGRPct(start, end, days float64) float64 {
	if start <= 0 || end <= 0 || days <= 0 {
		return 0
	}
	return (math.Pow(end/start, 365/days) - 1) * 100
}

// VolatilityPct es la desviación típica anualizada de los retornos.
func VolatilityPct(returns []float64) float64 {
	return stddev(returns) * math.Sqrt(TradingDaysPerYear) * 100
}

// Sharpe es media/desviación anualizada, con tasa libre de riesgo cero.
func Sharpe(returns []float64) float64 {
	sd := stddev(returns)
	if sd == 0 {
		return 0
	}
	return mean(returns) / sd * math.Sqrt(TradingDaysPerYear)
}

// Sortino divide la media anualizada por la desviación a la baja.
func Sortino(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	var sumSq float64
	for _, r := range returns {
		if r < 0 {
			sumSq += r * r
		}
	}
	dd := math.Sqrt(sumSq / float64(len(returns)))
	if dd == 0 {
		return 0
	}
	return mean(returns) / dd * math.Sqrt(TradingDaysPerYear)
}

// Calmar es CAGR entre max drawdown, ambos en porcentaje.
func Calmar(cagrPct, maxDrawdownPct float64) float64 {
	if maxDrawdownPct == 0 {
		return 0
	}
	return cagrPct / maxDrawdownPct
}

// MonthlyReturns agrupa la curva por mes natural. El retorno de cada mes se
// mide desde el cierre del mes anterior (o desde el primer punto).
func MonthlyReturns(curve []domain.EquityPoint) []domain.MonthlyReturn {
	if len(curve) == 0 {
		return nil
	}
	var out []domain.MonthlyReturn
	base := curve[0].Value
	month := curve[0].Date.Format("2006-01")
	last := base
	for _, p := range curve {
		m := p.Date.Format("2006-01")
		if m != month {
			out = append(out, domain.MonthlyReturn{Month: month, ReturnPct: pctChange(base, last)})
			base = last
			month = m
		}
		last = p.Value
	}
	out = append(out, domain.MonthlyReturn{Month: month, ReturnPct: pctChange(base, last)})
	return out
}

// TradeStats son los agregados por trade de un backtest.
type TradeStats struct {
	Total           int
	Wins            int
	WinRatePct      float64
	ProfitFactor    float64
	AvgPnL          float64
	AvgWinPct       float64
	AvgLossPct      float64
	Expectancy      float64
	KellyFraction   float64
	ConsecutiveLoss int
	NetPnL          float64
}

// SummarizeTrades calcula win rate, profit factor, expectancy y Kelly de los trades cerrados.
func SummarizeTrades(trades []domain.Trade) TradeStats {
	var st TradeStats
	st.Total = len(trades)
	if st.Total == 0 {
		return st
	}

	var grossWin, grossLoss, winPct, lossPct float64
	streak := 0
	for _, t := range trades {
		st.NetPnL += t.PnL
		if t.Status == domain.TradeWin {
			st.Wins++
			grossWin += t.PnL
			winPct += t.PnLPct
			streak = 0
		} else {
			grossLoss += -t.PnL
			lossPct += t.PnLPct
			streak++
			if streak > st.ConsecutiveLoss {
				st.ConsecutiveLoss = streak
			}
		}
	}
	losses := st.Total - st.Wins

	st.WinRatePct = float64(st.Wins) / float64(st.Total) * 100
	st.AvgPnL = RoundMoney(st.NetPnL / float64(st.Total))
	st.NetPnL = RoundMoney(st.NetPnL)

	switch {
	case grossLoss == 0 && grossWin > 0:
		st.ProfitFactor = profitFactorCap
	case grossLoss > 0:
		st.ProfitFactor = grossWin / grossLoss
	}

	if st.Wins > 0 {
		st.AvgWinPct = winPct / float64(st.Wins)
	}
	if losses > 0 {
		st.AvgLossPct = lossPct / float64(losses)
	}

	p := float64(st.Wins) / float64(st.Total)
	st.Expectancy = p*st.AvgWinPct + (1-p)*st.AvgLossPct

	// Kelly: p - q/b, b = avgWin/|avgLoss|
	if st.AvgLossPct < 0 && st.AvgWinPct > 0 {
		b := st.AvgWinPct / -st.AvgLossPct
		st.KellyFraction = math.Max(0, p-(1-p)/b)
	}
	return st
}

// Summarize deriva el bloque Metrics completo de una curva de equity y sus trades.
func Summarize(capital float64, curve []domain.EquityPoint, trades []domain.Trade) domain.Metrics {
	rets := PeriodReturns(curve)
	ts := SummarizeTrades(trades)
	maxDD := MaxDrawdownPct(curve)

	m := domain.Metrics{
		TotalReturnPct:  TotalReturnPct(curve),
		MaxDrawdownPct:  maxDD,
		VolatilityPct:   VolatilityPct(rets),
		SharpeRatio:     Sharpe(rets),
		SortinoRatio:    Sortino(rets),
		WinRatePct:      ts.WinRatePct,
		ProfitFactor:    ts.ProfitFactor,
		TotalTrades:     ts.Total,
		AvgTradePnL:     ts.AvgPnL,
		Expectancy:      ts.Expectancy,
		KellyFraction:   ts.KellyFraction,
		AvgWinPct:       ts.AvgWinPct,
		AvgLossPct:      ts.AvgLossPct,
		ConsecutiveLoss: ts.ConsecutiveLoss,
		FinalEquity:     capital,
	}
	if len(curve) > 0 {
		first, last := curve[0], curve[len(curve)-1]
		m.FinalEquity = last.Value
		m.CAGRPct = CAGRPct(first.Value, last.Value, last.Date.Sub(first.Date).Hours()/24)
		m.CalmarRatio = Calmar(m.CAGRPct, maxDD)
		if maxDD > 0 {
			m.RecoveryFactor = (last.Value - capital) / (capital * maxDD / 100)
		}
	}
	return m
}

// RoundMoney redondea un importe a céntimos.
func RoundMoney(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

func pctChange(from, to float64) float64 {
	if from == 0 {
		return 0
	}
	return (to - from) / from * 100
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var s float64
	for _, x := range xs {
		s += x
	}
	return s / float64(len(xs))
}

func stddev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := mean(xs)
	var ss float64
	for _, x := range xs {
		ss += (x - m) * (x - m)
	}
	return math.Sqrt(ss / float64(len(xs)-1))
}
