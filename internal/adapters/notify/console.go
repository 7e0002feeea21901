package notify

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"sort"

	"github.com/alejandrodnm/stratlab/internal/domain"
	"github.com/alejandrodnm/stratlab/internal/ports"
	"github.com/olekukonko/tablewriter"
)

// maxGridRows limita las celdas del grid que se imprimen.
const maxGridRows = 10

// Console implementa ports.ResultSink imprimiendo tablas.
type Console struct {
	out    io.Writer
	table  bool
	trades bool
}

var _ ports.ResultSink = (*Console)(nil)

// NewConsole crea un presentador que escribe a stdout.
// table=false imprime una línea por resultado; trades=true añade el detalle de trades.
func NewConsole(table, trades bool) *Console {
	return &Console{out: os.Stdout, table: table, trades: trades}
}

// NewConsoleWriter crea un presentador para tests.
func NewConsoleWriter(w io.Writer, table, trades bool) *Console {
	return &Console{out: w, table: table, trades: trades}
}

// Publish imprime los resultados de un run.
func (c *Console) Publish(_ context.Context, results []domain.BacktestResult) error {
	if len(results) == 0 {
		fmt.Fprintln(c.out, "\n  No results.")
		return nil
	}

	if !c.table {
		for _, r := range results {
			c.printCompact(r)
		}
		return nil
	}

	if len(results) == 1 {
		c.printResult(results[0])
		return nil
	}
	c.printComparison(results, false)
	return nil
}

// PrintOOS imprime la comparación de la validación fuera de muestra.
func (c *Console) PrintOOS(results []domain.BacktestResult) {
	if len(results) == 0 {
		fmt.Fprintln(c.out, "\n  No OOS results.")
		return
	}
	fmt.Fprintf(c.out, "\n=== OUT-OF-SAMPLE VALIDATION (%d param sets) ===\n", len(results))
	c.printComparison(results, true)
}

// PrintOptimization imprime el grid y los folds de una optimización.
func (c *Console) PrintOptimization(run domain.OptimizationRun) {
	fmt.Fprintf(c.out, "\n=== OPTIMIZATION (%d cells) ===\n", len(run.Grid))
	c.printGrid(run.Grid)
	c.printWFO(run.WFO)
}

// printCompact imprime lo esencial en una línea.
func (c *Console) printCompact(r domain.BacktestResult) {
	m := r.Metrics
	fmt.Fprintf(c.out, "%s%s %s [%s] ret:%.2f%% sharpe:%.2f dd:%.2f%% trades:%d win:%.1f%%\n",
		simTag(r), label(r), r.StrategyName, r.Timeframe,
		m.TotalReturnPct, m.SharpeRatio, m.MaxDrawdownPct, m.TotalTrades, m.WinRatePct)
}

// printResult imprime un resultado completo: métricas, meses, WFO, grid y trades.
func (c *Console) printResult(r domain.BacktestResult) {
	fmt.Fprintf(c.out, "\n=== %s%s — %s [%s] ===\n", simTag(r), label(r), r.StrategyName, r.Timeframe)
	if len(r.Params) > 0 {
		fmt.Fprintf(c.out, "  params: %s\n", r.Params)
	}
	if r.Error != "" {
		fmt.Fprintf(c.out, "  engine note: %s\n", r.Error)
	}

	m := r.Metrics
	table := tablewriter.NewWriter(c.out)
	table.Header("Metric", "Value", "Metric", "Value")
	table.Append("Total return", pctLabel(m.TotalReturnPct), "Sharpe", fmt.Sprintf("%.2f", m.SharpeRatio))
	table.Append("CAGR", pctLabel(m.CAGRPct), "Sortino", fmt.Sprintf("%.2f", m.SortinoRatio))
	table.Append("Max drawdown", pctLabel(m.MaxDrawdownPct), "Calmar", fmt.Sprintf("%.2f", m.CalmarRatio))
	table.Append("Volatility", pctLabel(m.VolatilityPct), "Profit factor", fmt.Sprintf("%.2f", m.ProfitFactor))
	table.Append("Trades", fmt.Sprintf("%d", m.TotalTrades), "Win rate", pctLabel(m.WinRatePct))
	table.Append("Avg trade", fmt.Sprintf("%.2f", m.AvgTradePnL), "Expectancy", fmt.Sprintf("%.2f", m.Expectancy))
	table.Append("Final equity", fmt.Sprintf("%.2f", m.FinalEquity), "Kelly", fmt.Sprintf("%.3f", m.KellyFraction))
	table.Render()

	c.printMonthly(r.MonthlyReturns)
	c.printWFO(r.WFO)
	c.printGrid(r.Grid)
	if c.trades {
		c.printTrades(r.Trades)
	}
}

// printComparison imprime una fila por resultado (universo u OOS).
func (c *Console) printComparison(results []domain.BacktestResult, withParams bool) {
	table := tablewriter.NewWriter(c.out)
	header := []any{"#", "Symbol", "Strategy", "Return", "Sharpe", "MaxDD", "Trades", "Win%", "Src"}
	if withParams {
		header = append(header, "Params")
	}
	table.Header(header...)

	for i, r := range results {
		row := []any{
			fmt.Sprintf("%d", i+1),
			label(r),
			truncate(r.StrategyName, 24),
			pctLabel(r.Metrics.TotalReturnPct),
			fmt.Sprintf("%.2f", r.Metrics.SharpeRatio),
			pctLabel(r.Metrics.MaxDrawdownPct),
			fmt.Sprintf("%d", r.Metrics.TotalTrades),
			fmt.Sprintf("%.1f", r.Metrics.WinRatePct),
			source(r),
		}
		if withParams {
			row = append(row, r.Params.String())
		}
		table.Append(row...)
	}
	table.Render()

	best := results[0]
	for _, r := range results[1:] {
		if r.Metrics.SharpeRatio > best.Metrics.SharpeRatio {
			best = r
		}
	}
	fmt.Fprintf(c.out, "  Best by Sharpe: %s (%.2f)\n", label(best), best.Metrics.SharpeRatio)
	if withParams && len(best.Params) > 0 {
		fmt.Fprintf(c.out, "  Params: %s\n", best.Params)
	}
}

func (c *Console) printMonthly(months []domain.MonthlyReturn) {
	if len(months) == 0 {
		return
	}
	fmt.Fprintln(c.out, "\n  Monthly returns")
	table := tablewriter.NewWriter(c.out)
	table.Header("Month", "Return")
	for _, m := range months {
		table.Append(m.Month, pctLabel(m.ReturnPct))
	}
	table.Render()
}

func (c *Console) printWFO(folds []domain.WFOResult) {
	if len(folds) == 0 {
		return
	}
	fmt.Fprintln(c.out, "\n  Walk-forward (out-of-sample folds)")
	table := tablewriter.NewWriter(c.out)
	table.Header("Period", "Return", "Sharpe")
	var sum float64
	for _, f := range folds {
		table.Append(f.Period, pctLabel(f.ReturnPct), fmt.Sprintf("%.2f", f.Sharpe))
		sum += f.ReturnPct
	}
	table.Render()
	fmt.Fprintf(c.out, "  Avg fold return: %s\n", pctLabel(sum/float64(len(folds))))
}

func (c *Console) printGrid(grid []domain.OptimizationResult) {
	if len(grid) == 0 {
		return
	}
	ranked := make([]domain.OptimizationResult, len(grid))
	copy(ranked, grid)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Sharpe > ranked[j].Sharpe })
	if len(ranked) > maxGridRows {
		ranked = ranked[:maxGridRows]
	}

	fmt.Fprintf(c.out, "\n  Parameter grid (top %d of %d by Sharpe)\n", len(ranked), len(grid))
	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Params", "Sharpe", "Return", "Drawdown")
	for i, g := range ranked {
		table.Append(
			fmt.Sprintf("%d", i+1),
			g.ParamSet.String(),
			fmt.Sprintf("%.2f", g.Sharpe),
			pctLabel(g.ReturnPct),
			pctLabel(g.Drawdown),
		)
	}
	table.Render()
}

func (c *Console) printTrades(trades []domain.Trade) {
	if len(trades) == 0 {
		return
	}
	fmt.Fprintf(c.out, "\n  Trades (%d, newest first)\n", len(trades))
	table := tablewriter.NewWriter(c.out)
	table.Header("Entry", "Exit", "Side", "Entry px", "Exit px", "PnL", "PnL%", "")
	for _, t := range trades {
		table.Append(
			t.EntryDate.Format(domain.DateLayout),
			t.ExitDate.Format(domain.DateLayout),
			string(t.Side),
			fmt.Sprintf("%.2f", t.EntryPrice),
			fmt.Sprintf("%.2f", t.ExitPrice),
			fmt.Sprintf("%.2f", t.PnL),
			pctLabel(t.PnLPct),
			string(t.Status),
		)
	}
	table.Render()
}

// PrintMonteCarlo resume las trayectorias: percentiles del valor final y peor drawdown.
func (c *Console) PrintMonteCarlo(paths []domain.MonteCarloPath) {
	if len(paths) == 0 {
		fmt.Fprintln(c.out, "\n  No Monte Carlo paths.")
		return
	}

	finals := make([]float64, 0, len(paths))
	worstDD := 0.0
	for _, p := range paths {
		if len(p.Values) == 0 {
			continue
		}
		finals = append(finals, p.Values[len(p.Values)-1])
		if dd := pathDrawdown(p.Values); dd > worstDD {
			worstDD = dd
		}
	}
	sort.Float64s(finals)

	fmt.Fprintf(c.out, "\n=== MONTE CARLO (%d paths, start=100) ===\n", len(paths))
	table := tablewriter.NewWriter(c.out)
	table.Header("P5", "P25", "Median", "P75", "P95", "Worst DD")
	table.Append(
		fmt.Sprintf("%.2f", percentile(finals, 5)),
		fmt.Sprintf("%.2f", percentile(finals, 25)),
		fmt.Sprintf("%.2f", percentile(finals, 50)),
		fmt.Sprintf("%.2f", percentile(finals, 75)),
		fmt.Sprintf("%.2f", percentile(finals, 95)),
		pctLabel(worstDD),
	)
	table.Render()

	losing := 0
	for _, f := range finals {
		if f < 100 {
			losing++
		}
	}
	if len(finals) > 0 {
		fmt.Fprintf(c.out, "  Paths ending below start: %d/%d (%.1f%%)\n",
			losing, len(finals), float64(losing)/float64(len(finals))*100)
	}
}

// PrintPositions imprime las posiciones abiertas del paper trading.
func (c *Console) PrintPositions(positions []domain.PaperPosition) {
	if len(positions) == 0 {
		fmt.Fprintln(c.out, "\n  No open paper positions.")
		return
	}
	fmt.Fprintf(c.out, "\n=== PAPER POSITIONS (%d) ===\n", len(positions))
	table := tablewriter.NewWriter(c.out)
	table.Header("Symbol", "Side", "Qty", "Avg px", "Last px", "Unrealized", "Opened")
	var total float64
	for _, p := range positions {
		opened := ""
		if !p.OpenedAt.IsZero() {
			opened = p.OpenedAt.Format(domain.DateLayout)
		}
		table.Append(
			p.Symbol,
			string(p.Side),
			fmt.Sprintf("%g", p.Quantity),
			fmt.Sprintf("%.2f", p.AvgPrice),
			fmt.Sprintf("%.2f", p.LastPrice),
			fmt.Sprintf("%.2f", p.UnrealizedPL),
			opened,
		)
		total += p.UnrealizedPL
	}
	table.Render()
	fmt.Fprintf(c.out, "  Total unrealized P&L: %.2f\n", total)
}

// PrintHistory imprime los últimos runs guardados.
func (c *Console) PrintHistory(runs []ports.RunRecord) {
	if len(runs) == 0 {
		fmt.Fprintln(c.out, "\n  No runs recorded yet.")
		return
	}
	fmt.Fprintf(c.out, "\n=== RUN HISTORY (last %d) ===\n", len(runs))
	table := tablewriter.NewWriter(c.out)
	table.Header("When", "Symbol", "Strategy", "TF", "Return", "Sharpe", "MaxDD", "Trades", "Src")
	for _, r := range runs {
		src := "remote"
		if r.Simulated {
			src = "sim"
		}
		table.Append(
			r.CreatedAt.Local().Format("2006-01-02 15:04"),
			r.Symbol,
			truncate(r.StrategyName, 24),
			r.Timeframe,
			pctLabel(r.TotalReturnPct),
			fmt.Sprintf("%.2f", r.SharpeRatio),
			pctLabel(r.MaxDrawdownPct),
			fmt.Sprintf("%d", r.TotalTrades),
			src,
		)
	}
	table.Render()
}

// PrintDataHealth imprime el informe del loader.
func (c *Console) PrintDataHealth(symbol string, report domain.DataHealthReport) {
	fmt.Fprintf(c.out, "  data %s: %s (%d candles, %d missing, %d gaps)",
		symbol, report.Status, report.TotalCandles, report.MissingCandles, report.Gaps)
	if report.Note != "" {
		fmt.Fprintf(c.out, " — %s", report.Note)
	}
	fmt.Fprintln(c.out)
}

// PrintInstruments imprime los resultados de una búsqueda.
func (c *Console) PrintInstruments(list []domain.Instrument) {
	if len(list) == 0 {
		fmt.Fprintln(c.out, "\n  No instruments found.")
		return
	}
	table := tablewriter.NewWriter(c.out)
	table.Header("Symbol", "Name", "Security ID", "Segment", "Type")
	for _, in := range list {
		table.Append(in.Symbol, truncate(in.DisplayName, 30), in.SecurityID, in.ExchangeSegment, in.InstrumentType)
	}
	table.Render()
}

// --- helpers ---

func label(r domain.BacktestResult) string {
	if r.Universe != "" && r.Symbol == "" {
		return r.Universe
	}
	return r.Symbol
}

func simTag(r domain.BacktestResult) string {
	if r.Simulated {
		return "[SIM] "
	}
	return ""
}

func source(r domain.BacktestResult) string {
	if r.Simulated {
		return "sim"
	}
	return "remote"
}

func pctLabel(v float64) string {
	return fmt.Sprintf("%.2f%%", v)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

// percentile interpola linealmente sobre valores ya ordenados.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	return sorted[lo] + (sorted[hi]-sorted[lo])*(rank-float64(lo))
}

func pathDrawdown(values []float64) float64 {
	peak, worst := 0.0, 0.0
	for _, v := range values {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			if dd := (peak - v) / peak * 100; dd > worst {
				worst = dd
			}
		}
	}
	return worst
}
