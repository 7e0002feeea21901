package domain

import "fmt"

// PathKind identifica cuál de los tres caminos de ejecución toma un run.
type PathKind int

const (
	PathDynamic PathKind = iota + 1
	PathStandard
	PathUniverse
)

func (k PathKind) String() string {
	switch k {
	case PathDynamic:
		return "dynamic_wfo"
	case PathStandard:
		return "standard"
	case PathUniverse:
		return "universe"
	}
	return fmt.Sprintf("PathKind(%d)", int(k))
}

// ExecutionPath es la variante cerrada {Dynamic, Standard, Universe}.
// Solo los tipos de este paquete la implementan.
type ExecutionPath interface {
	Kind() PathKind
	isExecutionPath()
}

// DynamicPath: SINGLE + dynamic, optimiza con walk-forward.
type DynamicPath struct {
	Instrument Instrument
}

// StandardPath: SINGLE sin optimización.
type StandardPath struct {
	Instrument Instrument
}

// UniversePath: backtest sobre un universo completo.
type UniversePath struct {
	Universe Universe
}

func (DynamicPath) Kind() PathKind  { return PathDynamic }
func (StandardPath) Kind() PathKind { return PathStandard }
func (UniversePath) Kind() PathKind { return PathUniverse }

func (DynamicPath) isExecutionPath()  {}
func (StandardPath) isExecutionPath() {}
func (UniversePath) isExecutionPath() {}

// SelectPath es la tabla de decisión sobre (mode, dynamic, instrumento resuelto).
// En modo UNIVERSE el flag dynamic y el instrumento se ignoran.
func SelectPath(req RunRequest) (ExecutionPath, error) {
	switch req.Mode {
	case ModeUniverse:
		if req.Universe == nil {
			return nil, fmt.Errorf("%w: universe mode without a universe", ErrInvalidRequest)
		}
		return UniversePath{Universe: *req.Universe}, nil
	case ModeSingle:
		if req.Instrument == nil {
			return nil, ErrInstrumentNotSelected
		}
		if req.Dynamic {
			return DynamicPath{Instrument: *req.Instrument}, nil
		}
		return StandardPath{Instrument: *req.Instrument}, nil
	}
	return nil, fmt.Errorf("%w: unknown run mode %q", ErrInvalidRequest, req.Mode)
}
