package domain

import "time"

// StatusCompleted es el estado de un backtest terminado.
const StatusCompleted = "completed"

// Side es la dirección de un trade.
type Side string

const (
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)

// TradeStatus es WIN si pnl > 0, LOSS en otro caso. Se fija al construir el trade.
type TradeStatus string

const (
	TradeWin  TradeStatus = "WIN"
	TradeLoss TradeStatus = "LOSS"
)

// Trade es una operación cerrada del backtest.
type Trade struct {
	ID         string      `json:"id"`
	EntryDate  time.Time   `json:"entryDate"`
	ExitDate   time.Time   `json:"exitDate"`
	Side       Side        `json:"side"`
	EntryPrice float64     `json:"entryPrice"`
	ExitPrice  float64     `json:"exitPrice"`
	PnL        float64     `json:"pnl"`
	PnLPct     float64     `json:"pnlPct"`
	Status     TradeStatus `json:"status"`
}

// EquityPoint es un punto de la curva de equity.
type EquityPoint struct {
	Date        time.Time `json:"date"`
	Value       float64   `json:"value"`
	DrawdownPct float64   `json:"drawdownPct"` // siempre ≥ 0, contra el pico acumulado
}

// MonthlyReturn es el retorno de un mes calendario.
type MonthlyReturn struct {
	Month     string  `json:"month"` // YYYY-MM
	ReturnPct float64 `json:"returnPct"`
}

// Metrics resume el rendimiento de un backtest.
type Metrics struct {
	TotalReturnPct  float64 `json:"totalReturnPct"`
	CAGRPct         float64 `json:"cagrPct"`
	SharpeRatio     float64 `json:"sharpeRatio"`
	SortinoRatio    float64 `json:"sortinoRatio"`
	CalmarRatio     float64 `json:"calmarRatio"`
	MaxDrawdownPct  float64 `json:"maxDrawdownPct"`
	VolatilityPct   float64 `json:"volatilityPct"`
	WinRatePct      float64 `json:"winRatePct"`
	ProfitFactor    float64 `json:"profitFactor"`
	TotalTrades     int     `json:"totalTrades"`
	AvgTradePnL     float64 `json:"avgTradePnl"`
	Expectancy      float64 `json:"expectancy"`
	FinalEquity     float64 `json:"finalEquity"`
	KellyFraction   float64 `json:"kellyFraction"`
	RecoveryFactor  float64 `json:"recoveryFactor"`
	AvgWinPct       float64 `json:"avgWinPct"`
	AvgLossPct      float64 `json:"avgLossPct"`
	ConsecutiveLoss int     `json:"consecutiveLosses"`
}

// OptimizationResult es una celda del grid de optimización.
type OptimizationResult struct {
	ParamSet  ParamSet `json:"paramSet"`
	Sharpe    float64  `json:"sharpe"`
	ReturnPct float64  `json:"returnPct"`
	Drawdown  float64  `json:"drawdown"`
}

// WFOResult es un fold del walk-forward. Siempre fuera de muestra.
type WFOResult struct {
	Period    string  `json:"period"`
	IsOOS     bool    `json:"isOOS"`
	ReturnPct float64 `json:"returnPct"`
	Sharpe    float64 `json:"sharpe"`
}

// BacktestResult es lo que se entrega al colaborador de presentación.
type BacktestResult struct {
	ID             string               `json:"id"`
	StrategyName   string               `json:"strategyName"`
	Symbol         string               `json:"symbol"`
	Universe       string               `json:"universe,omitempty"`
	Timeframe      Timeframe            `json:"timeframe"`
	Metrics        Metrics              `json:"metrics"`
	MonthlyReturns []MonthlyReturn      `json:"monthlyReturns"`
	EquityCurve    []EquityPoint        `json:"equityCurve"`
	Trades         []Trade              `json:"trades"`
	Status         string               `json:"status"`
	WFO            []WFOResult          `json:"wfo,omitempty"`
	Grid           []OptimizationResult `json:"grid,omitempty"`
	Params         ParamSet             `json:"params,omitempty"`
	Error          string               `json:"error,omitempty"`

	// Simulated indica que el resultado vino del simulador local (solo diagnóstico).
	Simulated bool `json:"-"`
}

// OptimizationRun es la respuesta de /optimization/run.
type OptimizationRun struct {
	Grid  []OptimizationResult `json:"grid"`
	WFO   []WFOResult          `json:"wfo"`
	Error string               `json:"error,omitempty"`
}

// MonteCarloPath es una trayectoria normalizada que empieza en 100.
type MonteCarloPath struct {
	ID     string    `json:"id"`
	Values []float64 `json:"values"`
}

// PaperPosition es una posición abierta del paper trading del motor.
type PaperPosition struct {
	Symbol       string    `json:"symbol"`
	Side         Side      `json:"side"`
	Quantity     float64   `json:"quantity"`
	AvgPrice     float64   `json:"avgPrice"`
	LastPrice    float64   `json:"lastPrice"`
	UnrealizedPL float64   `json:"unrealizedPnl"`
	OpenedAt     time.Time `json:"openedAt"`
}
