package main

import (
	"flag"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/alejandrodnm/stratlab/internal/application/session"
	"github.com/alejandrodnm/stratlab/internal/domain"
)

// cliFlags son los flags de la línea de comandos.
type cliFlags struct {
	configPath string
	mode       string
	dynamic    bool
	symbol     string
	segment    string
	universe   string
	symbols    string
	strategy   string
	params     string
	start      string
	end        string
	capital    float64
	timeframe  string
	trainWin   int
	testWin    int

	optimize   bool
	monteCarlo int
	positions  bool
	history    int
	search     string

	mock    bool
	verbose bool
	format  string
	compact bool
	trades  bool

	// set guarda qué flags se pasaron explícitamente.
	set map[string]bool
}

func parseFlags(args []string) (*cliFlags, error) {
	f := &cliFlags{}
	fs := flag.NewFlagSet("stratlab", flag.ContinueOnError)
	fs.StringVar(&f.configPath, "config", "config/config.yaml", "path to config file")
	fs.StringVar(&f.mode, "mode", "single", "run mode: single|universe")
	fs.BoolVar(&f.dynamic, "dynamic", false, "walk-forward optimization over the parameter ranges")
	fs.StringVar(&f.symbol, "symbol", "", "instrument symbol (single mode)")
	fs.StringVar(&f.segment, "segment", "NSE_EQ", "exchange segment used to resolve -symbol")
	fs.StringVar(&f.universe, "universe", "", "universe id (universe mode)")
	fs.StringVar(&f.symbols, "symbols", "", "comma-separated universe members (optional)")
	fs.StringVar(&f.strategy, "strategy", "rsi_mean_reversion", "strategy id")
	fs.StringVar(&f.params, "params", "", "strategy parameters, e.g. period=14,lower=30")
	fs.StringVar(&f.start, "start", "", "start date YYYY-MM-DD (default: one year before -end)")
	fs.StringVar(&f.end, "end", "", "end date YYYY-MM-DD (default: today)")
	fs.Float64Var(&f.capital, "capital", 0, "initial capital (default from config)")
	fs.StringVar(&f.timeframe, "timeframe", "", "timeframe: 1m|5m|15m|1h|1d (default from config)")
	fs.IntVar(&f.trainWin, "train", 0, "walk-forward train window in months (overrides auto-tuning)")
	fs.IntVar(&f.testWin, "test", 0, "walk-forward test window in months (overrides auto-tuning)")
	fs.BoolVar(&f.optimize, "optimize", false, "run grid optimization and validate the top parameter sets out of sample")
	fs.IntVar(&f.monteCarlo, "montecarlo", 0, "run N Monte Carlo paths and exit")
	fs.BoolVar(&f.positions, "positions", false, "list paper trading positions and exit")
	fs.IntVar(&f.history, "history", 0, "print the last N recorded runs and exit")
	fs.StringVar(&f.search, "search", "", "search instruments and exit")
	fs.BoolVar(&f.mock, "mock", false, "never call the engine, simulate everything")
	fs.BoolVar(&f.verbose, "verbose", false, "set log level to debug")
	fs.StringVar(&f.format, "format", "", "log format: text|json (overrides config)")
	fs.BoolVar(&f.compact, "compact", false, "one line per result instead of tables")
	fs.BoolVar(&f.trades, "trades", false, "print every trade of the result")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	f.set = map[string]bool{}
	fs.Visit(func(fl *flag.Flag) { f.set[fl.Name] = true })
	return f, nil
}

// applyToSession aplica a la sesión los flags pasados explícitamente; el resto
// conserva lo guardado de la sesión anterior.
func (f *cliFlags) applyToSession(s *session.Session, now time.Time) error {
	if f.set["mode"] {
		m, err := domain.ParseRunMode(f.mode)
		if err != nil {
			return err
		}
		s.SetMode(m)
	}
	if f.set["strategy"] || s.Settings().Strategy.ID == "" {
		s.SetStrategy(domain.StrategyConfig{ID: f.strategy, Name: strategyName(f.strategy)})
	}
	if f.set["params"] {
		p, err := parseParams(f.params)
		if err != nil {
			return err
		}
		s.SetParams(p)
	}
	if f.set["capital"] {
		s.SetCapital(f.capital)
	}
	if f.set["timeframe"] {
		s.SetTimeframe(f.timeframe)
	}
	// el orden importa: dynamic antes del rango para que el cambio de rango re-ajuste las ventanas
	if f.set["dynamic"] {
		s.SetDynamic(f.dynamic)
	}
	if f.set["start"] || f.set["end"] || s.Settings().StartDate == "" {
		rg, err := f.dateRange(now)
		if err != nil {
			return err
		}
		if err := s.SetDateRange(rg.Start, rg.End); err != nil {
			return err
		}
	}
	// dinámico sin ventanas previas: se ajustan una vez al rango actual
	if st := s.Settings(); st.Dynamic && st.WFO.TrainWindow <= 0 {
		if rg, err := f.sessionRange(st); err == nil {
			s.SetWFOWindows(domain.TuneWFOWindows(rg.Start, rg.End))
		}
	}
	if f.set["train"] || f.set["test"] {
		cur := s.Settings().WFO
		if f.set["train"] {
			cur.TrainWindow = f.trainWin
		}
		if f.set["test"] {
			cur.TestWindow = f.testWin
		}
		s.SetWFOWindows(cur)
	}
	return nil
}

func (f *cliFlags) dateRange(now time.Time) (domain.DateRange, error) {
	end := now.UTC().Truncate(24 * time.Hour)
	if f.end != "" {
		t, err := time.Parse(domain.DateLayout, f.end)
		if err != nil {
			return domain.DateRange{}, fmt.Errorf("%w: -end %q: %v", domain.ErrInvalidRequest, f.end, err)
		}
		end = t
	}
	start := end.AddDate(-1, 0, 0)
	if f.start != "" {
		t, err := time.Parse(domain.DateLayout, f.start)
		if err != nil {
			return domain.DateRange{}, fmt.Errorf("%w: -start %q: %v", domain.ErrInvalidRequest, f.start, err)
		}
		start = t
	}
	rg := domain.DateRange{Start: start, End: end}
	return rg, rg.Validate()
}

func (f *cliFlags) sessionRange(st session.Settings) (domain.DateRange, error) {
	return domain.ParseDateRange(st.StartDate, st.EndDate)
}

// parseParams parsea "period=14,lower=30".
func parseParams(s string) (domain.ParamSet, error) {
	out := domain.ParamSet{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		k, v, ok := strings.Cut(part, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("%w: parameter %q is not key=value", domain.ErrInvalidRequest, part)
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: parameter %q: %v", domain.ErrInvalidRequest, k, err)
		}
		out[strings.TrimSpace(k)] = f
	}
	return out, nil
}

func splitSymbols(s string) []string {
	var out []string
	for _, sym := range strings.Split(s, ",") {
		if sym = strings.ToUpper(strings.TrimSpace(sym)); sym != "" {
			out = append(out, sym)
		}
	}
	return out
}

// strategyName convierte "rsi_mean_reversion" en "Rsi Mean Reversion".
func strategyName(id string) string {
	words := strings.Fields(strings.ReplaceAll(id, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
