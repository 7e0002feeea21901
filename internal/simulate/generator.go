// Package simulate genera resultados de backtest sintéticos y caminos Monte
// Carlo cuando el motor remoto no responde.
package simulate

import (
	"fmt"
	"sort"
	"time"

	"github.com/alejandrodnm/stratlab/internal/domain"
	"github.com/alejandrodnm/stratlab/internal/metrics"
	"github.com/google/uuid"
)

const (
	DefaultDays         = 250
	DefaultMonteCarlo   = 100
	returnBias          = 0.48
	returnScale         = 0.02
	tradeProbability    = 0.2
	winProbability      = 0.55
	entryMin            = 100.0
	entryRange          = 50.0
	winMultiplier       = 1.05
	lossMultiplier      = 0.97
	tradeHoldDays       = 2
	lotSize             = 100
	pathStart           = 100.0
	pathScale           = 2.0
	defaultGridCellsCap = 64
)

// Ratios de relleno cuando DeriveRatios está desactivado. Son ilustrativos, no
// salen de la serie simulada.
const (
	StandInSharpe   = 1.85
	StandInSortino  = 2.12
	StandInCalmar   = 1.45
	StandInVolPct   = 18.5
	StandInCAGRPct  = 24.3
	StandInRecovery = 3.2
)

// Config controla una ejecución simulada.
type Config struct {
	Capital   float64
	Days      int
	Start     time.Time
	Timeframe domain.Timeframe
	// DeriveRatios calcula Sharpe/Sortino/Calmar desde la serie en vez de
	// usar las constantes de relleno.
	DeriveRatios bool
}

// Generator es el mercado simulado local.
type Generator struct {
	rnd          RandomSource
	days         int
	deriveRatios bool
	now          func() time.Time
}

// Option configura un Generator.
type Option func(*Generator)

// WithDays cambia el número de puntos simulados por ejecución.
func WithDays(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.days = n
		}
	}
}

// WithDerivedRatios hace que Generate calcule los ratios con el paquete metrics.
func WithDerivedRatios(on bool) Option {
	return func(g *Generator) { g.deriveRatios = on }
}

// WithClock fija el reloj que se usa cuando la ejecución no trae fecha de inicio.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// NewGenerator crea un generador que extrae valores de rnd.
func NewGenerator(rnd RandomSource, opts ...Option) *Generator {
	g := &Generator{rnd: rnd, days: DefaultDays, now: time.Now}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Days devuelve el número de puntos simulados configurado.
func (g *Generator) Days() int { return g.days }

// ConfigFor deriva la configuración de simulación de un RunRequest.
func (g *Generator) ConfigFor(req domain.RunRequest) Config {
	return Config{
		Capital:      req.Capital,
		Days:         g.days,
		Start:        req.Range.Start,
		Timeframe:    req.Timeframe,
		DeriveRatios: g.deriveRatios,
	}
}

// Generate produce un BacktestResult sintético. Por cada día extrae, en este
// orden: el retorno diario, la probabilidad de trade y, si hay trade, su precio
// de entrada y su resultado.
func (g *Generator) Generate(symbol, strategyID string, cfg Config) domain.BacktestResult {
	n := cfg.Days
	if n <= 0 {
		n = g.days
	}
	start := cfg.Start
	if start.IsZero() {
		start = g.now().UTC().Truncate(24*time.Hour).AddDate(0, 0, -n)
	}

	dates := make([]time.Time, n)
	rets := make([]float64, n)
	var trades []domain.Trade
	for i := 0; i < n; i++ {
		day := start.AddDate(0, 0, i)
		dates[i] = day
		rets[i] = (g.rnd.Float64() - returnBias) * returnScale

		if g.rnd.Float64() < tradeProbability {
			trades = append(trades, g.trade(day))
		}
	}

	curve := metrics.EquityCurve(dates, metrics.CompoundReturns(cfg.Capital, rets))
	m := metrics.Summarize(cfg.Capital, curve, trades)
	if !cfg.DeriveRatios {
		m.SharpeRatio = StandInSharpe
		m.SortinoRatio = StandInSortino
		m.CalmarRatio = StandInCalmar
		m.VolatilityPct = StandInVolPct
		m.CAGRPct = StandInCAGRPct
		m.RecoveryFactor = StandInRecovery
	}

	reverseTrades(trades)

	tf := cfg.Timeframe
	if tf == "" {
		tf = domain.TF1d
	}
	return domain.BacktestResult{
		ID:             uuid.New().String(),
		StrategyName:   strategyID,
		Symbol:         symbol,
		Timeframe:      tf,
		Metrics:        m,
		MonthlyReturns: metrics.MonthlyReturns(curve),
		EquityCurve:    curve,
		Trades:         trades,
		Status:         domain.StatusCompleted,
		Simulated:      true,
	}
}

func (g *Generator) trade(day time.Time) domain.Trade {
	entry := entryMin + g.rnd.Float64()*entryRange
	win := g.rnd.Float64() < winProbability
	exit := entry * lossMultiplier
	status := domain.TradeLoss
	if win {
		exit = entry * winMultiplier
		status = domain.TradeWin
	}
	return domain.Trade{
		ID:         uuid.New().String(),
		EntryDate:  day,
		ExitDate:   day.AddDate(0, 0, tradeHoldDays),
		Side:       domain.SideLong,
		EntryPrice: metrics.RoundMoney(entry),
		ExitPrice:  metrics.RoundMoney(exit),
		PnL:        metrics.RoundMoney((exit - entry) * lotSize),
		PnLPct:     (exit/entry - 1) * 100,
		Status:     status,
	}
}

// GeneratePaths produce n paseos aleatorios aditivos de longitud days, todos
// empezando en 100.
func (g *Generator) GeneratePaths(n, days int) []domain.MonteCarloPath {
	if days <= 0 {
		days = DefaultMonteCarlo
	}
	paths := make([]domain.MonteCarloPath, n)
	for i := range paths {
		values := make([]float64, days)
		v := pathStart
		values[0] = v
		for d := 1; d < days; d++ {
			v += (g.rnd.Float64() - returnBias) * pathScale
			values[d] = v
		}
		paths[i] = domain.MonteCarloPath{ID: fmt.Sprintf("sim-%d", i+1), Values: values}
	}
	return paths
}

// GenerateWFO simula un walk-forward dinámico: un resultado base más una fila
// OOS por fold y el grid de optimización.
func (g *Generator) GenerateWFO(symbol, strategyID string, cfg Config, ranges domain.ParamRange, wfo domain.WFOWindowConfig, end time.Time) domain.BacktestResult {
	res := g.Generate(symbol, strategyID, cfg)
	res.WFO = g.folds(cfg.Start, end, wfo)
	res.Grid = g.Grid(ranges)
	if best, ok := bestCell(res.Grid); ok {
		res.Params = best.ParamSet
	}
	return res
}

// GenerateOptimization simula /optimization/run.
func (g *Generator) GenerateOptimization(ranges domain.ParamRange, start, end time.Time, wfo domain.WFOWindowConfig) domain.OptimizationRun {
	return domain.OptimizationRun{
		Grid: g.Grid(ranges),
		WFO:  g.folds(start, end, wfo),
	}
}

// Grid puntúa cada combinación de los rangos, con tope de celdas.
func (g *Generator) Grid(ranges domain.ParamRange) []domain.OptimizationResult {
	combos := Combinations(ranges, defaultGridCellsCap)
	out := make([]domain.OptimizationResult, len(combos))
	for i, ps := range combos {
		out[i] = domain.OptimizationResult{
			ParamSet:  ps,
			Sharpe:    (g.rnd.Float64() - 0.3) * 3,
			ReturnPct: (g.rnd.Float64() - 0.4) * 40,
			Drawdown:  g.rnd.Float64() * 25,
		}
	}
	return out
}

// folds reparte ventanas train/test sobre [start,end] y simula cada ventana de test.
func (g *Generator) folds(start, end time.Time, wfo domain.WFOWindowConfig) []domain.WFOResult {
	if wfo.TrainWindow <= 0 || wfo.TestWindow <= 0 || start.IsZero() {
		return nil
	}
	var out []domain.WFOResult
	testStart := start.AddDate(0, wfo.TrainWindow, 0)
	for {
		testEnd := testStart.AddDate(0, wfo.TestWindow, 0)
		if testEnd.After(end) {
			break
		}
		out = append(out, domain.WFOResult{
			Period:    testStart.Format("2006-01") + " → " + testEnd.AddDate(0, 0, -1).Format("2006-01"),
			IsOOS:     true,
			ReturnPct: (g.rnd.Float64() - 0.45) * 10,
			Sharpe:    (g.rnd.Float64() - 0.3) * 2.5,
		})
		testStart = testEnd
	}
	return out
}

// DataHealth es el informe que se usa cuando no se puede consultar al motor.
func (g *Generator) DataHealth(rg domain.DateRange) domain.DataHealthReport {
	return domain.DataHealthReport{
		Status:       domain.HealthGood,
		TotalCandles: int(rg.Days()),
		Note:         "simulated",
	}
}

// SyntheticInstrument sustituye a un resultado de búsqueda de instrumentos.
func SyntheticInstrument(symbol string) domain.Instrument {
	return domain.Instrument{
		Symbol:          symbol,
		DisplayName:     symbol,
		SecurityID:      "SIM-" + symbol,
		ExchangeSegment: "NSE_EQ",
		InstrumentType:  "EQUITY",
	}
}

// Combinations expande los rangos en como mucho limit sets de parámetros,
// recorriendo las claves en orden.
func Combinations(ranges domain.ParamRange, limit int) []domain.ParamSet {
	keys := make([]string, 0, len(ranges))
	for k := range ranges {
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		return nil
	}
	sort.Strings(keys)

	out := []domain.ParamSet{{}}
	for _, k := range keys {
		var next []domain.ParamSet
		for _, base := range out {
			for _, v := range ranges[k].Values() {
				ps := base.Clone()
				ps[k] = v
				next = append(next, ps)
				if limit > 0 && len(next) >= limit {
					break
				}
			}
			if limit > 0 && len(next) >= limit {
				break
			}
		}
		out = next
	}
	return out
}

func bestCell(grid []domain.OptimizationResult) (domain.OptimizationResult, bool) {
	if len(grid) == 0 {
		return domain.OptimizationResult{}, false
	}
	best := grid[0]
	for _, c := range grid[1:] {
		if c.Sharpe > best.Sharpe {
			best = c
		}
	}
	return best, true
}

func reverseTrades(ts []domain.Trade) {
	for i, j := 0, len(ts)-1; i < j; i, j = i+1, j-1 {
		ts[i], ts[j] = ts[j], ts[i]
	}
}
