package storage

// sqlite.go — ajustes de sesión e historial de runs.
//
// Estrategia:
//   - `settings`: una fila por clave con el valor en JSON (UPSERT).
//     Cache en memoria del último JSON guardado: si no cambió, no se escribe.
//   - `runs`: una fila por resultado publicado, con las métricas principales en
//     columnas (para listar) y el resultado completo en `payload`.
//   - Prune automático al arrancar: runs > 90d.

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/alejandrodnm/stratlab/internal/domain"
	"github.com/alejandrodnm/stratlab/internal/ports"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS settings (
    key        TEXT PRIMARY KEY,
    value      TEXT     NOT NULL,
    updated_at TEXT     NOT NULL
);

CREATE TABLE IF NOT EXISTS runs (
    id            TEXT PRIMARY KEY,
    strategy_name TEXT    NOT NULL DEFAULT '',
    symbol        TEXT    NOT NULL DEFAULT '',
    universe      TEXT    NOT NULL DEFAULT '',
    timeframe     TEXT    NOT NULL DEFAULT '',
    total_return  REAL    NOT NULL DEFAULT 0,
    sharpe        REAL    NOT NULL DEFAULT 0,
    max_drawdown  REAL    NOT NULL DEFAULT 0,
    total_trades  INTEGER NOT NULL DEFAULT 0,
    simulated     INTEGER NOT NULL DEFAULT 0,
    payload       TEXT    NOT NULL,
    created_at    TEXT    NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_runs_symbol  ON runs(symbol);
`

const (
	retentionRuns = 90 * 24 * time.Hour

	// ancho fijo para que el orden lexicográfico sea el cronológico
	tsLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

// SQLiteStorage implementa ports.Storage usando SQLite (pure Go, sin CGo).
type SQLiteStorage struct {
	db    *sql.DB
	cache map[string]string // key → JSON guardado
	mu    sync.Mutex
	now   func() time.Time
}

var _ ports.Storage = (*SQLiteStorage)(nil)

// NewSQLiteStorage abre (o crea) la base de datos en la ruta dada.
// Aplica el schema y limpia runs antiguos.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply schema: %w", err)
	}

	s := &SQLiteStorage{
		db:    db,
		cache: make(map[string]string),
		now:   func() time.Time { return time.Now().UTC() },
	}
	s.pruneOld(context.Background())
	return s, nil
}

// Load decodifica el valor JSON guardado bajo key en out.
func (s *SQLiteStorage) Load(ctx context.Context, key string, out any) (bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&raw)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("storage.Load: query %q: %w", key, err)
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return false, fmt.Errorf("storage.Load: decode %q: %w", key, err)
	}

	s.mu.Lock()
	s.cache[key] = raw
	s.mu.Unlock()
	return true, nil
}

// Save guarda v como JSON bajo key. Si el valor no cambió no toca la DB.
func (s *SQLiteStorage) Save(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("storage.Save: encode %q: %w", key, err)
	}
	raw := string(b)

	s.mu.Lock()
	unchanged := s.cache[key] == raw
	s.mu.Unlock()
	if unchanged {
		return nil
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value      = excluded.value,
			updated_at = excluded.updated_at
	`, key, raw, s.now().Format(tsLayout)); err != nil {
		return fmt.Errorf("storage.Save: upsert %q: %w", key, err)
	}

	s.mu.Lock()
	s.cache[key] = raw
	s.mu.Unlock()
	return nil
}

// Publish guarda cada resultado como una fila de historial.
// Resultados sin id reciben uno nuevo.
func (s *SQLiteStorage) Publish(ctx context.Context, results []domain.BacktestResult) error {
	if len(results) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.Publish: begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO runs
			(id, strategy_name, symbol, universe, timeframe, total_return, sharpe,
			 max_drawdown, total_trades, simulated, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			total_return = excluded.total_return,
			sharpe       = excluded.sharpe,
			max_drawdown = excluded.max_drawdown,
			total_trades = excluded.total_trades,
			payload      = excluded.payload
	`)
	if err != nil {
		return fmt.Errorf("storage.Publish: prepare: %w", err)
	}
	defer stmt.Close()

	now := s.now()
	for i, r := range results {
		id := r.ID
		if id == "" {
			id = uuid.NewString()
		}
		payload, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("storage.Publish: encode %s: %w", id, err)
		}
		simulated := 0
		if r.Simulated {
			simulated = 1
		}

		// created_at creciente dentro del lote para conservar el orden de llegada
		at := now.Add(time.Duration(i) * time.Microsecond)
		if _, err := stmt.ExecContext(ctx,
			id,
			r.StrategyName,
			r.Symbol,
			r.Universe,
			string(r.Timeframe),
			r.Metrics.TotalReturnPct,
			r.Metrics.SharpeRatio,
			r.Metrics.MaxDrawdownPct,
			r.Metrics.TotalTrades,
			simulated,
			string(payload),
			at.Format(tsLayout),
		); err != nil {
			return fmt.Errorf("storage.Publish: insert %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.Publish: commit: %w", err)
	}
	return nil
}

// RecentRuns devuelve los últimos runs, más recientes primero.
func (s *SQLiteStorage) RecentRuns(ctx context.Context, limit int) ([]ports.RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, strategy_name, symbol, timeframe, total_return, sharpe,
		       max_drawdown, total_trades, simulated, created_at
		FROM runs
		ORDER BY created_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("storage.RecentRuns: query: %w", err)
	}
	defer rows.Close()

	var out []ports.RunRecord
	for rows.Next() {
		var rec ports.RunRecord
		var createdAt string
		var simulated int
		if err := rows.Scan(
			&rec.ID,
			&rec.StrategyName,
			&rec.Symbol,
			&rec.Timeframe,
			&rec.TotalReturnPct,
			&rec.SharpeRatio,
			&rec.MaxDrawdownPct,
			&rec.TotalTrades,
			&simulated,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("storage.RecentRuns: scan row: %w", err)
		}
		rec.CreatedAt, _ = time.Parse(tsLayout, createdAt)
		rec.Simulated = simulated == 1
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// pruneOld elimina runs antiguos para mantener la DB ligera.
func (s *SQLiteStorage) pruneOld(ctx context.Context) {
	cutoff := s.now().Add(-retentionRuns).Format(tsLayout)
	s.db.ExecContext(ctx, `DELETE FROM runs WHERE created_at < ?`, cutoff)
}
