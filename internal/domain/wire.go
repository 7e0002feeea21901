package domain

import (
	"encoding/json"
	"fmt"
)

// Cuerpos de las llamadas al motor de ejecución. Los construye el dispatcher
// (o el validador OOS) y el cliente HTTP los envía tal cual.

// WFOConfig es la parte walk-forward de POST /optimization/wfo.
type WFOConfig struct {
	TrainWindow    int     `json:"trainWindow"`
	TestWindow     int     `json:"testWindow"`
	StartDate      string  `json:"startDate"`
	EndDate        string  `json:"endDate"`
	ScoringMetric  string  `json:"scoringMetric"`
	InitialCapital float64 `json:"initial_capital"`
}

// WFORequest es el body de POST /optimization/wfo.
type WFORequest struct {
	Symbol      string     `json:"symbol"`
	StrategyID  string     `json:"strategyId"`
	Ranges      ParamRange `json:"ranges"`
	WFOConfig   WFOConfig  `json:"wfoConfig"`
	FullResults bool       `json:"fullResults"`
}

// InstrumentDetails identifica el instrumento en POST /market/backtest/run.
type InstrumentDetails struct {
	SecurityID      string `json:"security_id"`
	Symbol          string `json:"symbol"`
	ExchangeSegment string `json:"exchange_segment"`
	InstrumentType  string `json:"instrument_type"`
}

// BacktestParameters es el bloque "parameters" de POST /market/backtest/run.
type BacktestParameters struct {
	Timeframe      Timeframe      `json:"timeframe"`
	StartDate      string         `json:"start_date"`
	EndDate        string         `json:"end_date"`
	InitialCapital float64        `json:"initial_capital"`
	StatsFreq      string         `json:"statsFreq"`
	SlippagePct    float64        `json:"slippage_pct"`
	CommissionFlat float64        `json:"commission_flat"`
	StrategyLogic  map[string]any `json:"strategy_logic"`
}

// BacktestRunRequest es el body de POST /market/backtest/run para un instrumento.
type BacktestRunRequest struct {
	InstrumentDetails InstrumentDetails  `json:"instrument_details"`
	Parameters        BacktestParameters `json:"parameters"`
}

// UniverseRunRequest es el body del run de universo: va por universe_id y los
// parámetros libres de la estrategia se mezclan en el nivel superior del body.
type UniverseRunRequest struct {
	UniverseID     string
	Symbols        []string
	StrategyID     string
	StrategyName   string
	Timeframe      Timeframe
	StartDate      string
	EndDate        string
	InitialCapital float64
	StatsFreq      string
	Costs          CostModel
	Params         ParamSet
}

// reservedUniverseKeys no pueden ser pisadas por parámetros libres.
var reservedUniverseKeys = map[string]bool{
	"universe_id": true, "symbols": true, "strategyId": true, "strategyName": true,
	"timeframe": true, "start_date": true, "end_date": true, "initial_capital": true,
	"statsFreq": true, "slippage_pct": true, "commission_flat": true,
}

// MarshalJSON aplana Params en el body.
func (u UniverseRunRequest) MarshalJSON() ([]byte, error) {
	body := map[string]any{
		"universe_id":     u.UniverseID,
		"symbols":         u.Symbols,
		"strategyId":      u.StrategyID,
		"strategyName":    u.StrategyName,
		"timeframe":       u.Timeframe,
		"start_date":      u.StartDate,
		"end_date":        u.EndDate,
		"initial_capital": u.InitialCapital,
		"statsFreq":       u.StatsFreq,
		"slippage_pct":    u.Costs.SlippagePct,
		"commission_flat": u.Costs.CommissionFlat,
	}
	for k, v := range u.Params {
		if reservedUniverseKeys[k] {
			return nil, fmt.Errorf("%w: parameter %q collides with a request field", ErrInvalidRequest, k)
		}
		body[k] = v
	}
	return json.Marshal(body)
}

// UnmarshalJSON es la inversa de MarshalJSON: lo que no es campo conocido y es numérico va a Params.
func (u *UniverseRunRequest) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var fixed struct {
		UniverseID     string    `json:"universe_id"`
		Symbols        []string  `json:"symbols"`
		StrategyID     string    `json:"strategyId"`
		StrategyName   string    `json:"strategyName"`
		Timeframe      Timeframe `json:"timeframe"`
		StartDate      string    `json:"start_date"`
		EndDate        string    `json:"end_date"`
		InitialCapital float64   `json:"initial_capital"`
		StatsFreq      string    `json:"statsFreq"`
		SlippagePct    float64   `json:"slippage_pct"`
		CommissionFlat float64   `json:"commission_flat"`
	}
	if err := json.Unmarshal(data, &fixed); err != nil {
		return err
	}
	*u = UniverseRunRequest{
		UniverseID:     fixed.UniverseID,
		Symbols:        fixed.Symbols,
		StrategyID:     fixed.StrategyID,
		StrategyName:   fixed.StrategyName,
		Timeframe:      fixed.Timeframe,
		StartDate:      fixed.StartDate,
		EndDate:        fixed.EndDate,
		InitialCapital: fixed.InitialCapital,
		StatsFreq:      fixed.StatsFreq,
		Costs:          CostModel{SlippagePct: fixed.SlippagePct, CommissionFlat: fixed.CommissionFlat},
		Params:         ParamSet{},
	}
	for k, v := range raw {
		if reservedUniverseKeys[k] {
			continue
		}
		var f float64
		if json.Unmarshal(v, &f) == nil {
			u.Params[k] = f
		}
	}
	return nil
}

// OptimizationRequest es el body de POST /optimization/run.
type OptimizationRequest struct {
	Symbol        string     `json:"symbol"`
	StrategyID    string     `json:"strategyId"`
	Ranges        ParamRange `json:"ranges"`
	StartDate     string     `json:"startDate"`
	EndDate       string     `json:"endDate"`
	ScoringMetric string     `json:"scoringMetric"`
	Capital       float64    `json:"initial_capital"`
	TrainWindow   int        `json:"trainWindow"`
	TestWindow    int        `json:"testWindow"`
}

// OOSRequest es el body del endpoint de validación fuera de muestra.
type OOSRequest struct {
	Symbol     string     `json:"symbol"`
	StrategyID string     `json:"strategyId"`
	ParamSets  []ParamSet `json:"paramSets"`
	StartDate  string     `json:"startDate"`
	EndDate    string     `json:"endDate"`
}

// MonteCarloRequest es el body de POST /risk/monte-carlo.
type MonteCarloRequest struct {
	Simulations int `json:"simulations"`
	Days        int `json:"days,omitempty"`
}
