// Package fallback enruta las llamadas al motor remoto y las sustituye por una
// simulación local cuando el motor no responde.
package fallback

import (
	"context"
	"errors"
	"log/slog"

	"github.com/alejandrodnm/stratlab/internal/domain"
)

// Provenance indica de dónde salió un valor. Solo para diagnóstico.
type Provenance int

const (
	FromRemote Provenance = iota
	FromSimulation
)

func (p Provenance) String() string {
	if p == FromSimulation {
		return "simulation"
	}
	return "remote"
}

// Executor prueba primero la llamada remota y cae a la simulación una sola vez
// si el motor es inalcanzable. Los rechazos de aplicación se propagan.
type Executor struct {
	mockMode bool
	logger   *slog.Logger
}

// New crea un Executor. Con mockMode nunca se llama al motor remoto.
// Un logger nil usa slog.Default().
func New(mockMode bool, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{mockMode: mockMode, logger: logger}
}

// MockMode indica si se saltan las llamadas remotas.
func (e *Executor) MockMode() bool { return e.mockMode }

// Execute ejecuta remote, o simulate si el motor es inalcanzable.
func Execute[T any](
	ctx context.Context,
	e *Executor,
	endpoint string,
	remote func(context.Context) (T, error),
	simulate func() T,
) (T, error) {
	v, _, err := ExecuteWithProvenance(ctx, e, endpoint, remote, simulate)
	return v, err
}

// ExecuteWithProvenance es Execute más el origen del valor.
func ExecuteWithProvenance[T any](
	ctx context.Context,
	e *Executor,
	endpoint string,
	remote func(context.Context) (T, error),
	simulate func() T,
) (T, Provenance, error) {
	if e.mockMode {
		e.logger.Debug("mock mode: simulating", "endpoint", endpoint)
		return simulate(), FromSimulation, nil
	}

	v, err := remote(ctx)
	if err == nil {
		return v, FromRemote, nil
	}

	if !errors.Is(err, domain.ErrRemoteUnreachable) {
		var zero T
		return zero, FromRemote, err
	}

	e.logger.Warn("engine unreachable, falling back to local simulation",
		"endpoint", endpoint,
		"err", err,
	)
	return simulate(), FromSimulation, nil
}
