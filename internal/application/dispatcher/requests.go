package dispatcher

import "github.com/alejandrodnm/stratlab/internal/domain"

// BuildWFORequest arma la llamada walk-forward dinámica.
func BuildWFORequest(inst domain.Instrument, req domain.RunRequest, cfg Config) domain.WFORequest {
	return domain.WFORequest{
		Symbol:     inst.Symbol,
		StrategyID: req.Strategy.ID,
		Ranges:     req.Ranges,
		WFOConfig: domain.WFOConfig{
			TrainWindow:    req.WFO.TrainWindow,
			TestWindow:     req.WFO.TestWindow,
			StartDate:      req.Range.Start.Format(domain.DateLayout),
			EndDate:        req.Range.End.Format(domain.DateLayout),
			ScoringMetric:  cfg.ScoringMetric,
			InitialCapital: req.Capital,
		},
		FullResults: true,
	}
}

// BuildBacktestRequest arma la llamada estándar de un instrumento. Los
// parámetros se mezclan con stop/target/sizing, que tienen prioridad.
func BuildBacktestRequest(inst domain.Instrument, req domain.RunRequest, cfg Config) domain.BacktestRunRequest {
	return domain.BacktestRunRequest{
		InstrumentDetails: domain.InstrumentDetails{
			SecurityID:      inst.SecurityID,
			Symbol:          inst.Symbol,
			ExchangeSegment: inst.ExchangeSegment,
			InstrumentType:  inst.InstrumentType,
		},
		Parameters: domain.BacktestParameters{
			Timeframe:      domain.NormalizeTimeframe(string(req.Timeframe)),
			StartDate:      req.Range.Start.Format(domain.DateLayout),
			EndDate:        req.Range.End.Format(domain.DateLayout),
			InitialCapital: req.Capital,
			StatsFreq:      cfg.StatsFreq,
			SlippagePct:    req.Costs.SlippagePct,
			CommissionFlat: req.Costs.CommissionFlat,
			StrategyLogic:  StrategyLogic(req.Strategy, req.Params),
		},
	}
}

// BuildUniverseRequest arma la llamada de universo, por id de universo.
func BuildUniverseRequest(uni domain.Universe, req domain.RunRequest, cfg Config) domain.UniverseRunRequest {
	return domain.UniverseRunRequest{
		UniverseID:     uni.ID,
		Symbols:        uni.Symbols,
		StrategyID:     req.Strategy.ID,
		StrategyName:   req.Strategy.Name,
		Timeframe:      domain.NormalizeTimeframe(string(req.Timeframe)),
		StartDate:      req.Range.Start.Format(domain.DateLayout),
		EndDate:        req.Range.End.Format(domain.DateLayout),
		InitialCapital: req.Capital,
		StatsFreq:      cfg.StatsFreq,
		Costs:          req.Costs,
		Params:         req.Params.Clone(),
	}
}

// StrategyLogic es el bloque strategy_logic que se envía al motor.
func StrategyLogic(s domain.StrategyConfig, params domain.ParamSet) map[string]any {
	logic := make(map[string]any, len(params)+10)
	for k, v := range params {
		logic[k] = v
	}
	logic["stopLossPct"] = s.StopLossPct
	logic["takeProfitPct"] = s.TakeProfitPct
	logic["useTrailingStop"] = s.UseTrailingStop
	logic["pyramiding"] = s.Pyramiding
	logic["positionSizing"] = s.PositionSizing
	logic["positionSizeValue"] = s.PositionSizeValue
	if len(s.EntryRules) > 0 {
		logic["entryRules"] = s.EntryRules
	}
	if len(s.ExitRules) > 0 {
		logic["exitRules"] = s.ExitRules
	}
	logic["id"] = s.ID
	logic["name"] = s.Name
	return logic
}
