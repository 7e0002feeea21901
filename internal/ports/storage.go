package ports

import (
	"context"
	"time"
)

// RunRecord es la fila resumida de un run guardado.
type RunRecord struct {
	ID             string
	StrategyName   string
	Symbol         string
	Timeframe      string
	TotalReturnPct float64
	SharpeRatio    float64
	MaxDrawdownPct float64
	TotalTrades    int
	Simulated      bool
	CreatedAt      time.Time
}

// Storage persiste la configuración de sesión y el historial de runs.
type Storage interface {
	SettingsStore
	ResultSink

	// RecentRuns devuelve los últimos runs guardados, más recientes primero.
	RecentRuns(ctx context.Context, limit int) ([]RunRecord, error)

	// Close cierra la conexión a la base de datos limpiamente.
	Close() error
}
