package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa de stratlab.
type Config struct {
	API       APIConfig       `yaml:"api"`
	Backtest  BacktestConfig  `yaml:"backtest"`
	Simulator SimulatorConfig `yaml:"simulator"`
	Storage   StorageConfig   `yaml:"storage"`
	Log       LogConfig       `yaml:"log"`
	SimEngine SimEngineConfig `yaml:"simengine"`
}

// APIConfig controla el acceso al motor de ejecución remoto.
type APIConfig struct {
	BaseURL        string  `yaml:"base_url"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	RatePerSec     float64 `yaml:"rate_per_sec"`
	MockMode       bool    `yaml:"mock_mode"` // true: nunca se llama al motor, todo es simulado
}

// BacktestConfig son los valores por defecto de un run.
type BacktestConfig struct {
	Capital        float64 `yaml:"capital"`
	Timeframe      string  `yaml:"timeframe"`
	ScoringMetric  string  `yaml:"scoring_metric"`
	StatsFreq      string  `yaml:"stats_freq"`
	OOSTopN        int     `yaml:"oos_top_n"`
	SlippagePct    float64 `yaml:"slippage_pct"`
	CommissionFlat float64 `yaml:"commission_flat"`
}

// SimulatorConfig controla el mercado simulado local.
type SimulatorConfig struct {
	Days         int    `yaml:"days"`
	Seed         uint64 `yaml:"seed"`          // 0 = semilla por reloj
	DeriveRatios bool   `yaml:"derive_ratios"` // calcular Sharpe/Sortino/Calmar en vez de usar las constantes
}

// StorageConfig controla dónde se persisten los datos.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// SimEngineConfig controla el servidor del motor simulado.
type SimEngineConfig struct {
	Addr string `yaml:"addr"`
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Los valores del .env sobreescriben los del YAML para las keys que correspondan.
// Un path vacío usa solo entorno y defaults.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	setDefaults(&cfg)

	return &cfg, nil
}

// Timeout devuelve el timeout HTTP como time.Duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.API.TimeoutSeconds) * time.Second
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("STRATLAB_API_BASE"); v != "" {
		cfg.API.BaseURL = v
	}
	if v := os.Getenv("STRATLAB_MOCK_MODE"); v != "" {
		on, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("STRATLAB_MOCK_MODE=%q: %w", v, err)
		}
		cfg.API.MockMode = on
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	return nil
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = "http://localhost:8000/api/v1"
	}
	cfg.API.BaseURL = strings.TrimRight(cfg.API.BaseURL, "/")
	if cfg.API.TimeoutSeconds <= 0 {
		cfg.API.TimeoutSeconds = 30
	}
	if cfg.API.RatePerSec <= 0 {
		cfg.API.RatePerSec = 5
	}
	if cfg.Backtest.Capital <= 0 {
		cfg.Backtest.Capital = 100000
	}
	if cfg.Backtest.Timeframe == "" {
		cfg.Backtest.Timeframe = "1d"
	}
	if cfg.Backtest.ScoringMetric == "" {
		cfg.Backtest.ScoringMetric = "sharpe"
	}
	if cfg.Backtest.StatsFreq == "" {
		cfg.Backtest.StatsFreq = "D"
	}
	if cfg.Backtest.OOSTopN <= 0 {
		cfg.Backtest.OOSTopN = 5
	}
	if cfg.Simulator.Days <= 0 {
		cfg.Simulator.Days = 250
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "stratlab.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	if cfg.SimEngine.Addr == "" {
		cfg.SimEngine.Addr = ":8000"
	}
}
