package ports

import (
	"context"

	"github.com/alejandrodnm/stratlab/internal/domain"
)

// ResultSink recibe los resultados anotados de un run.
// En la implementación de consola, imprime tablas; en storage, guarda el historial.
type ResultSink interface {
	Publish(ctx context.Context, results []domain.BacktestResult) error
}
