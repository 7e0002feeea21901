package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrRunInProgress         = errors.New("a backtest run is already in progress")
	ErrDataNotReady          = errors.New("market data is not ready")
	ErrInstrumentNotSelected = errors.New("no instrument selected")
	ErrNoCandidateParams     = errors.New("no candidate parameter sets")
	ErrRemoteUnreachable     = errors.New("execution service unreachable")
	ErrRemoteRejected        = errors.New("execution service rejected the request")
	ErrBatchAborted          = errors.New("validation batch aborted")
	ErrFetchInProgress       = errors.New("a data fetch is already in progress")
	ErrInvalidRequest        = errors.New("invalid run request")
)

// RunError añade el contexto accionable (símbolo, estrategia, rango) a un fallo visible.
type RunError struct {
	Op       string
	Symbol   string
	Strategy string
	Range    DateRange
	Err      error
}

func (e *RunError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Op)
	sb.WriteString(": ")
	var ctx []string
	if e.Symbol != "" {
		ctx = append(ctx, "symbol="+e.Symbol)
	}
	if e.Strategy != "" {
		ctx = append(ctx, "strategy="+e.Strategy)
	}
	if !e.Range.Start.IsZero() || !e.Range.End.IsZero() {
		ctx = append(ctx, "range="+e.Range.String())
	}
	if len(ctx) > 0 {
		fmt.Fprintf(&sb, "[%s] ", strings.Join(ctx, " "))
	}
	sb.WriteString(e.Err.Error())
	return sb.String()
}

func (e *RunError) Unwrap() error { return e.Err }

// NewRunError construye un RunError con el contexto del request.
func NewRunError(op string, req RunRequest, err error) *RunError {
	return &RunError{
		Op:       op,
		Symbol:   req.Symbol(),
		Strategy: req.Strategy.ID,
		Range:    req.Range,
		Err:      err,
	}
}
