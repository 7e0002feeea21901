package domain

import (
	"fmt"
	"math"
	"sort"
)

// PositionSizing indica cómo se dimensiona cada entrada.
type PositionSizing string

const (
	SizingFixedQty     PositionSizing = "FIXED_QTY"
	SizingFixedCapital PositionSizing = "FIXED_CAPITAL"
	SizingPctEquity    PositionSizing = "PCT_EQUITY"
)

// Rule es una condición de entrada o salida tal como la define el editor de estrategias.
type Rule struct {
	Indicator string  `json:"indicator" yaml:"indicator"`
	Operator  string  `json:"operator" yaml:"operator"` // crosses_above, >, <, ...
	Value     float64 `json:"value" yaml:"value"`
}

// StrategyConfig es la estrategia que llega al core. No se modifica durante un run.
type StrategyConfig struct {
	ID                string         `json:"id"`
	Name              string         `json:"name"`
	EntryRules        []Rule         `json:"entryRules"`
	ExitRules         []Rule         `json:"exitRules"`
	StopLossPct       float64        `json:"stopLossPct"`
	TakeProfitPct     float64        `json:"takeProfitPct"`
	UseTrailingStop   bool           `json:"useTrailingStop"`
	Pyramiding        int            `json:"pyramiding"`
	PositionSizing    PositionSizing `json:"positionSizing"`
	PositionSizeValue float64        `json:"positionSizeValue"`
}

// ParamSet mapea nombre de parámetro → valor numérico, p.ej. {period:14, lower:30}.
type ParamSet map[string]float64

// Clone devuelve una copia independiente.
func (p ParamSet) Clone() ParamSet {
	out := make(ParamSet, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Keys devuelve las claves ordenadas (orden estable para logs y tablas).
func (p ParamSet) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// String formatea el set como "lower=30 period=14".
func (p ParamSet) String() string {
	s := ""
	for i, k := range p.Keys() {
		if i > 0 {
			s += " "
		}
		s += fmt.Sprintf("%s=%g", k, p[k])
	}
	return s
}

// Range es el rango de búsqueda de un parámetro.
type Range struct {
	Min  float64 `json:"min" yaml:"min"`
	Max  float64 `json:"max" yaml:"max"`
	Step float64 `json:"step" yaml:"step"`
}

// MaxRangePoints es el máximo de valores que puede generar un rango.
const MaxRangePoints = 1000

// Points devuelve cuántos valores genera el rango, sin expandirlo.
func (rg Range) Points() float64 {
	if rg.Step <= 0 || rg.Min > rg.Max {
		return 0
	}
	return math.Floor((rg.Max-rg.Min)/rg.Step+1e-9) + 1
}

// ParamRange mapea nombre de parámetro → rango.
type ParamRange map[string]Range

// Validate comprueba min ≤ max y step > 0 en cada rango.
func (r ParamRange) Validate() error {
	for name, rg := range r {
		if rg.Min > rg.Max {
			return fmt.Errorf("%w: range %q has min %g > max %g", ErrInvalidRequest, name, rg.Min, rg.Max)
		}
		if rg.Step <= 0 {
			return fmt.Errorf("%w: range %q has non-positive step %g", ErrInvalidRequest, name, rg.Step)
		}
		if n := rg.Points(); n > MaxRangePoints {
			return fmt.Errorf("%w: range %q expands to %.0f values (max %d)", ErrInvalidRequest, name, n, MaxRangePoints)
		}
	}
	return nil
}

// Covers verifica que cada clave del ParamSet exista en los rangos.
// Es el invariante que se exige cuando la optimización está activa.
func (r ParamRange) Covers(p ParamSet) error {
	for _, k := range p.Keys() {
		if _, ok := r[k]; !ok {
			return fmt.Errorf("%w: parameter %q has no optimization range", ErrInvalidRequest, k)
		}
	}
	return nil
}

// Values expande un rango en la lista de valores que recorre el grid, como
// mucho MaxRangePoints.
func (rg Range) Values() []float64 {
	if rg.Step <= 0 || rg.Min > rg.Max {
		return nil
	}
	var out []float64
	for i := 0; i < MaxRangePoints; i++ {
		v := rg.Min + float64(i)*rg.Step
		if v > rg.Max+rg.Step*1e-9 {
			break
		}
		out = append(out, v)
	}
	return out
}

// defaultParams son los parámetros por defecto de cada estrategia conocida.
var defaultParams = map[string]ParamSet{
	"rsi_mean_reversion": {"period": 14, "lower": 30, "upper": 70},
	"sma_crossover":      {"fast": 10, "slow": 50},
	"ema_crossover":      {"fast": 9, "slow": 21},
	"bollinger_breakout": {"period": 20, "std_dev": 2},
	"macd_trend":         {"fast": 12, "slow": 26, "signal": 9},
}

// defaultRanges son los rangos de WFO por defecto de cada estrategia conocida.
var defaultRanges = map[string]ParamRange{
	"rsi_mean_reversion": {
		"period": {Min: 7, Max: 21, Step: 7},
		"lower":  {Min: 20, Max: 35, Step: 5},
		"upper":  {Min: 65, Max: 80, Step: 5},
	},
	"sma_crossover": {
		"fast": {Min: 5, Max: 20, Step: 5},
		"slow": {Min: 30, Max: 90, Step: 20},
	},
	"ema_crossover": {
		"fast": {Min: 5, Max: 15, Step: 2},
		"slow": {Min: 20, Max: 40, Step: 5},
	},
	"bollinger_breakout": {
		"period":  {Min: 10, Max: 30, Step: 5},
		"std_dev": {Min: 1.5, Max: 3, Step: 0.5},
	},
	"macd_trend": {
		"fast":   {Min: 8, Max: 16, Step: 4},
		"slow":   {Min: 20, Max: 32, Step: 6},
		"signal": {Min: 7, Max: 11, Step: 2},
	},
}

// DefaultParams devuelve una copia de los parámetros por defecto de la estrategia.
// Estrategias desconocidas devuelven un set vacío.
func DefaultParams(strategyID string) ParamSet {
	if p, ok := defaultParams[strategyID]; ok {
		return p.Clone()
	}
	return ParamSet{}
}

// DefaultRanges devuelve una copia de los rangos por defecto de la estrategia.
func DefaultRanges(strategyID string) ParamRange {
	src, ok := defaultRanges[strategyID]
	if !ok {
		return ParamRange{}
	}
	out := make(ParamRange, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
