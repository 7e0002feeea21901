package domain

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout es el formato de fecha que usan la API y la CLI.
const DateLayout = "2006-01-02"

// RunMode discrimina entre un instrumento y un universo.
type RunMode string

const (
	ModeSingle   RunMode = "SINGLE"
	ModeUniverse RunMode = "UNIVERSE"
)

// ParseRunMode acepta "single"/"universe" sin distinguir mayúsculas.
func ParseRunMode(s string) (RunMode, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", string(ModeSingle):
		return ModeSingle, nil
	case string(ModeUniverse):
		return ModeUniverse, nil
	}
	return "", fmt.Errorf("%w: unknown run mode %q", ErrInvalidRequest, s)
}

// Instrument es un instrumento ya resuelto por el buscador externo.
type Instrument struct {
	Symbol          string `json:"symbol"`
	DisplayName     string `json:"display_name"`
	SecurityID      string `json:"security_id"`
	ExchangeSegment string `json:"exchange_segment"`
	InstrumentType  string `json:"instrument_type"`
}

// Universe es una cesta de instrumentos identificada por id.
type Universe struct {
	ID      string   `json:"id" yaml:"id"`
	Name    string   `json:"name" yaml:"name"`
	Symbols []string `json:"symbols" yaml:"symbols"`
}

// DateRange es el rango [Start, End] de un run.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// ParseDateRange parsea dos fechas YYYY-MM-DD y valida start < end.
func ParseDateRange(start, end string) (DateRange, error) {
	s, err := time.Parse(DateLayout, start)
	if err != nil {
		return DateRange{}, fmt.Errorf("%w: start date %q: %v", ErrInvalidRequest, start, err)
	}
	e, err := time.Parse(DateLayout, end)
	if err != nil {
		return DateRange{}, fmt.Errorf("%w: end date %q: %v", ErrInvalidRequest, end, err)
	}
	r := DateRange{Start: s, End: e}
	return r, r.Validate()
}

// Validate exige Start < End.
func (r DateRange) Validate() error {
	if !r.Start.Before(r.End) {
		return fmt.Errorf("%w: start date %s is not before end date %s",
			ErrInvalidRequest, r.Start.Format(DateLayout), r.End.Format(DateLayout))
	}
	return nil
}

// Days devuelve la duración del rango en días.
func (r DateRange) Days() float64 {
	return r.End.Sub(r.Start).Hours() / 24
}

func (r DateRange) String() string {
	return r.Start.Format(DateLayout) + ".." + r.End.Format(DateLayout)
}

// CostModel son los costes aplicados por el motor de ejecución.
type CostModel struct {
	SlippagePct    float64 `json:"slippagePct"`
	CommissionFlat float64 `json:"commissionFlat"`
}

// RunRequest es la foto inmutable de la configuración en el momento de lanzar un run.
// Se pasa por valor de Dispatcher → FallbackExecutor → Generator/RemoteClient.
type RunRequest struct {
	Mode       RunMode
	Dynamic    bool
	Instrument *Instrument // nil si no hay instrumento resuelto
	Universe   *Universe
	Strategy   StrategyConfig
	Params     ParamSet
	Ranges     ParamRange
	WFO        WFOWindowConfig
	Timeframe  Timeframe
	Range      DateRange
	Capital    float64
	Costs      CostModel
	DataStatus DataStatus
}

// Symbol devuelve el símbolo o id de universo que identifica el run en logs y errores.
func (r RunRequest) Symbol() string {
	switch {
	case r.Mode == ModeUniverse && r.Universe != nil:
		return r.Universe.ID
	case r.Instrument != nil:
		return r.Instrument.Symbol
	}
	return ""
}

// Validate comprueba los invariantes de valor del request (no las precondiciones del dispatcher).
func (r RunRequest) Validate() error {
	if err := r.Range.Validate(); err != nil {
		return err
	}
	if r.Capital <= 0 {
		return fmt.Errorf("%w: capital must be positive, got %g", ErrInvalidRequest, r.Capital)
	}
	if r.Mode == ModeUniverse && (r.Universe == nil || r.Universe.ID == "") {
		return fmt.Errorf("%w: universe mode without a universe id", ErrInvalidRequest)
	}
	if r.Mode == ModeSingle && r.Dynamic {
		if err := r.Ranges.Validate(); err != nil {
			return err
		}
		if err := r.Ranges.Covers(r.Params); err != nil {
			return err
		}
	}
	return nil
}

// Timeframe es uno de los códigos normalizados que entiende el motor.
type Timeframe string

const (
	TF1m  Timeframe = "1m"
	TF5m  Timeframe = "5m"
	TF15m Timeframe = "15m"
	TF1h  Timeframe = "1h"
	TF1d  Timeframe = "1d"
)

// NormalizeTimeframe traduce las etiquetas habituales al código del motor.
// Códigos desconocidos caen a 1d.
func NormalizeTimeframe(code string) Timeframe {
	switch strings.ToLower(strings.TrimSpace(code)) {
	case "1m", "1", "1min", "minute":
		return TF1m
	case "5m", "5", "5min":
		return TF5m
	case "15m", "15", "15min":
		return TF15m
	case "1h", "60", "60m", "60min", "hour", "h":
		return TF1h
	}
	return TF1d
}

// DataStatus es el estado del loader de datos externo.
type DataStatus string

const (
	DataIdle    DataStatus = "IDLE"
	DataLoading DataStatus = "LOADING"
	DataReady   DataStatus = "READY"
	DataError   DataStatus = "ERROR"
)

// HealthStatus califica la calidad de los datos cargados.
type HealthStatus string

const (
	HealthGood     HealthStatus = "GOOD"
	HealthFair     HealthStatus = "FAIR"
	HealthPoor     HealthStatus = "POOR"
	HealthCritical HealthStatus = "CRITICAL"
)

// DataHealthReport lo produce el loader de datos; el core solo lo lee.
type DataHealthReport struct {
	Status         HealthStatus `json:"status"`
	MissingCandles int          `json:"missingCandles"`
	TotalCandles   int          `json:"totalCandles"`
	Gaps           int          `json:"gaps"`
	Note           string       `json:"note,omitempty"`
}
