// Package session holds the user's editable run settings and turns them into
// immutable RunRequest snapshots.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alejandrodnm/stratlab/internal/domain"
	"github.com/alejandrodnm/stratlab/internal/ports"
)

// SettingsKey es la clave bajo la que se persisten los ajustes de sesión.
const SettingsKey = "session.settings"

// Settings es la configuración editable de la sesión.
type Settings struct {
	Mode       domain.RunMode         `json:"mode"`
	Dynamic    bool                   `json:"dynamic"`
	Instrument *domain.Instrument     `json:"instrument,omitempty"`
	Universe   *domain.Universe       `json:"universe,omitempty"`
	Strategy   domain.StrategyConfig  `json:"strategy"`
	Params     domain.ParamSet        `json:"params"`
	Ranges     domain.ParamRange      `json:"ranges"`
	WFO        domain.WFOWindowConfig `json:"wfo"`
	Timeframe  domain.Timeframe       `json:"timeframe"`
	StartDate  string                 `json:"startDate"`
	EndDate    string                 `json:"endDate"`
	Capital    float64                `json:"capital"`
	Costs      domain.CostModel       `json:"costs"`
}

// Session guarda los ajustes activos. Los cambios no afectan a runs ya lanzados:
// cada run trabaja sobre su propio Snapshot.
type Session struct {
	mu    sync.RWMutex
	store ports.SettingsStore
	s     Settings
}

// New crea una sesión con los ajustes iniciales dados. store puede ser nil.
func New(store ports.SettingsStore, initial Settings) *Session {
	if initial.Mode == "" {
		initial.Mode = domain.ModeSingle
	}
	if initial.Timeframe == "" {
		initial.Timeframe = domain.TF1d
	}
	return &Session{store: store, s: initial}
}

// Load reemplaza los ajustes por los guardados, si existen.
func (s *Session) Load(ctx context.Context) (bool, error) {
	if s.store == nil {
		return false, nil
	}
	var saved Settings
	found, err := s.store.Load(ctx, SettingsKey, &saved)
	if err != nil {
		return false, fmt.Errorf("session.Load: %w", err)
	}
	if !found {
		return false, nil
	}
	if saved.Mode == "" {
		saved.Mode = domain.ModeSingle
	}
	s.mu.Lock()
	s.s = saved
	s.mu.Unlock()
	slog.Debug("session settings loaded", "key", SettingsKey)
	return true, nil
}

// Save persiste los ajustes actuales.
func (s *Session) Save(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	if err := s.store.Save(ctx, SettingsKey, s.Settings()); err != nil {
		return fmt.Errorf("session.Save: %w", err)
	}
	return nil
}

// Settings devuelve una copia de los ajustes actuales.
func (s *Session) Settings() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.s.clone()
}

// SetDateRange fija el rango. Con el modo dinámico activo recalcula las
// ventanas de walk-forward; en otro caso las deja como están.
func (s *Session) SetDateRange(start, end time.Time) error {
	rg := domain.DateRange{Start: start, End: end}
	if err := rg.Validate(); err != nil {
		return fmt.Errorf("session.SetDateRange: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.s.StartDate = start.Format(domain.DateLayout)
	s.s.EndDate = end.Format(domain.DateLayout)
	if s.s.Dynamic {
		s.s.WFO = domain.TuneWFOWindows(start, end)
		slog.Debug("wfo windows re-tuned",
			"range", rg.String(),
			"train", s.s.WFO.TrainWindow,
			"test", s.s.WFO.TestWindow,
		)
	}
	return nil
}

// SetDynamic activa o desactiva la optimización walk-forward.
// No recalcula ventanas: solo un cambio de rango lo hace.
func (s *Session) SetDynamic(on bool) {
	s.mu.Lock()
	s.s.Dynamic = on
	s.mu.Unlock()
}

// SetWFOWindows fija las ventanas a mano.
func (s *Session) SetWFOWindows(cfg domain.WFOWindowConfig) {
	s.mu.Lock()
	s.s.WFO = cfg
	s.mu.Unlock()
}

// SetStrategy cambia la estrategia. Si no hay parámetros o rangos se cargan
// los de por defecto del id.
func (s *Session) SetStrategy(cfg domain.StrategyConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	changed := s.s.Strategy.ID != cfg.ID
	s.s.Strategy = cfg
	if changed || len(s.s.Params) == 0 {
		s.s.Params = domain.DefaultParams(cfg.ID)
	}
	if changed || len(s.s.Ranges) == 0 {
		s.s.Ranges = domain.DefaultRanges(cfg.ID)
	}
}

// SetParams reemplaza los parámetros base.
func (s *Session) SetParams(p domain.ParamSet) {
	s.mu.Lock()
	s.s.Params = p.Clone()
	s.mu.Unlock()
}

// SetRanges reemplaza los rangos de optimización.
func (s *Session) SetRanges(r domain.ParamRange) {
	s.mu.Lock()
	s.s.Ranges = cloneRanges(r)
	s.mu.Unlock()
}

// SetInstrument selecciona un instrumento y pasa a modo single.
func (s *Session) SetInstrument(in domain.Instrument) {
	s.mu.Lock()
	s.s.Instrument = &in
	s.s.Mode = domain.ModeSingle
	s.mu.Unlock()
}

// SetUniverse selecciona un universo y pasa a modo universe.
func (s *Session) SetUniverse(u domain.Universe) {
	u.Symbols = append([]string(nil), u.Symbols...)
	s.mu.Lock()
	s.s.Universe = &u
	s.s.Mode = domain.ModeUniverse
	s.mu.Unlock()
}

// SetMode cambia el modo sin tocar instrumento ni universo.
func (s *Session) SetMode(m domain.RunMode) {
	s.mu.Lock()
	s.s.Mode = m
	s.mu.Unlock()
}

func (s *Session) SetTimeframe(tf string) {
	s.mu.Lock()
	s.s.Timeframe = domain.NormalizeTimeframe(tf)
	s.mu.Unlock()
}

func (s *Session) SetCapital(c float64) {
	s.mu.Lock()
	s.s.Capital = c
	s.mu.Unlock()
}

func (s *Session) SetCosts(c domain.CostModel) {
	s.mu.Lock()
	s.s.Costs = c
	s.mu.Unlock()
}

// Snapshot congela los ajustes actuales en un RunRequest. Las fechas sin
// parsear quedan a cero y fallan en RunRequest.Validate.
func (s *Session) Snapshot(status domain.DataStatus) domain.RunRequest {
	st := s.Settings()

	var rg domain.DateRange
	if t, err := time.Parse(domain.DateLayout, st.StartDate); err == nil {
		rg.Start = t
	}
	if t, err := time.Parse(domain.DateLayout, st.EndDate); err == nil {
		rg.End = t
	}

	return domain.RunRequest{
		Mode:       st.Mode,
		Dynamic:    st.Dynamic,
		Instrument: st.Instrument,
		Universe:   st.Universe,
		Strategy:   st.Strategy,
		Params:     st.Params,
		Ranges:     st.Ranges,
		WFO:        st.WFO,
		Timeframe:  st.Timeframe,
		Range:      rg,
		Capital:    st.Capital,
		Costs:      st.Costs,
		DataStatus: status,
	}
}

func (st Settings) clone() Settings {
	out := st
	if st.Instrument != nil {
		in := *st.Instrument
		out.Instrument = &in
	}
	if st.Universe != nil {
		u := *st.Universe
		u.Symbols = append([]string(nil), st.Universe.Symbols...)
		out.Universe = &u
	}
	if st.Params != nil {
		out.Params = st.Params.Clone()
	}
	if st.Ranges != nil {
		out.Ranges = cloneRanges(st.Ranges)
	}
	out.Strategy.EntryRules = append([]domain.Rule(nil), st.Strategy.EntryRules...)
	out.Strategy.ExitRules = append([]domain.Rule(nil), st.Strategy.ExitRules...)
	return out
}

func cloneRanges(r domain.ParamRange) domain.ParamRange {
	out := make(domain.ParamRange, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
