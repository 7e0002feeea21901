// Package httpapi serves the execution-engine HTTP contract from the local
// simulator so the CLI can be exercised without the remote engine.
package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/alejandrodnm/stratlab/internal/domain"
	"github.com/alejandrodnm/stratlab/internal/simulate"
	"github.com/gin-gonic/gin"
)

// maxSimulations limita el trabajo de una petición Monte Carlo.
const maxSimulations = 10000

// maxPathDays limita la longitud de cada camino Monte Carlo.
const maxPathDays = 3650

// Server es el motor simulado.
type Server struct {
	sim         *simulate.Generator
	instruments []domain.Instrument
	universes   map[string][]string

	mu        sync.RWMutex
	positions []domain.PaperPosition
}

// Option configura el Server.
type Option func(*Server)

// WithPositions fija las posiciones de paper trading que devuelve el servidor.
func WithPositions(p []domain.PaperPosition) Option {
	return func(s *Server) { s.positions = append([]domain.PaperPosition(nil), p...) }
}

// WithUniverse añade o reemplaza un universo del catálogo.
func WithUniverse(id string, symbols []string) Option {
	return func(s *Server) { s.universes[id] = append([]string(nil), symbols...) }
}

// NewServer crea el motor simulado sobre el generador dado.
func NewServer(sim *simulate.Generator, opts ...Option) *Server {
	s := &Server{
		sim:         sim,
		instruments: defaultInstruments,
		universes:   make(map[string][]string, len(defaultUniverses)),
	}
	for id, syms := range defaultUniverses {
		s.universes[id] = syms
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router monta todas las rutas bajo basePath (p.ej. "/api/v1").
func (s *Server) Router(basePath string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	api := r.Group(basePath)
	{
		api.POST("/optimization/wfo", s.runWFO)
		api.POST("/optimization/run", s.runOptimization)
		api.POST("/optimization/oos", s.validateOOS)
		api.POST("/market/backtest/run", s.runBacktest)
		api.GET("/market/instruments", s.instrumentsSearch)
		api.GET("/market/data/health", s.dataHealth)
		api.POST("/risk/monte-carlo", s.monteCarlo)
		api.GET("/paper-trading/positions", s.paperPositions)
	}
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	return r
}

func (s *Server) runWFO(c *gin.Context) {
	var req domain.WFORequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	rg, err := domain.ParseDateRange(req.WFOConfig.StartDate, req.WFOConfig.EndDate)
	if err != nil {
		badRequest(c, err)
		return
	}
	if err := req.Ranges.Validate(); err != nil {
		badRequest(c, err)
		return
	}

	cfg := s.config(req.WFOConfig.InitialCapital, rg.Start, domain.TF1d)
	wfo := domain.WFOWindowConfig{TrainWindow: req.WFOConfig.TrainWindow, TestWindow: req.WFOConfig.TestWindow}
	res := s.sim.GenerateWFO(req.Symbol, req.StrategyID, cfg, req.Ranges, wfo, rg.End)
	c.JSON(http.StatusOK, res)
}

func (s *Server) runOptimization(c *gin.Context) {
	var req domain.OptimizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	rg, err := domain.ParseDateRange(req.StartDate, req.EndDate)
	if err != nil {
		badRequest(c, err)
		return
	}
	if err := req.Ranges.Validate(); err != nil {
		badRequest(c, err)
		return
	}
	wfo := domain.WFOWindowConfig{TrainWindow: req.TrainWindow, TestWindow: req.TestWindow}
	if wfo.TrainWindow <= 0 || wfo.TestWindow <= 0 {
		wfo = domain.TuneWFOWindows(rg.Start, rg.End)
	}
	c.JSON(http.StatusOK, s.sim.GenerateOptimization(req.Ranges, rg.Start, rg.End, wfo))
}

func (s *Server) validateOOS(c *gin.Context) {
	var req domain.OOSRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	rg, err := domain.ParseDateRange(req.StartDate, req.EndDate)
	if err != nil {
		badRequest(c, err)
		return
	}
	if len(req.ParamSets) == 0 {
		badRequest(c, domain.ErrNoCandidateParams)
		return
	}

	cfg := s.config(0, rg.Start, domain.TF1d)
	results := make([]domain.BacktestResult, 0, len(req.ParamSets))
	for _, ps := range req.ParamSets {
		res := s.sim.Generate(req.Symbol, req.StrategyID, cfg)
		res.Params = ps
		results = append(results, res)
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

// runBacktest atiende tanto el run de un instrumento como el de universo:
// un body con universe_id es un run de universo.
func (s *Server) runBacktest(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		badRequest(c, err)
		return
	}
	var probe struct {
		UniverseID string `json:"universe_id"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		badRequest(c, err)
		return
	}

	if probe.UniverseID != "" {
		s.runUniverse(c, body)
		return
	}

	var req domain.BacktestRunRequest
	if err := json.Unmarshal(body, &req); err != nil {
		badRequest(c, err)
		return
	}
	p := req.Parameters
	rg, err := domain.ParseDateRange(p.StartDate, p.EndDate)
	if err != nil {
		badRequest(c, err)
		return
	}
	if req.InstrumentDetails.Symbol == "" {
		badRequest(c, fmt.Errorf("%w: instrument_details.symbol is required", domain.ErrInvalidRequest))
		return
	}

	strategyID, _ := p.StrategyLogic["id"].(string)
	name, _ := p.StrategyLogic["name"].(string)
	res := s.sim.Generate(req.InstrumentDetails.Symbol, strategyID, s.config(p.InitialCapital, rg.Start, p.Timeframe))
	if name != "" {
		res.StrategyName = name
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) runUniverse(c *gin.Context, body []byte) {
	var req domain.UniverseRunRequest
	if err := json.Unmarshal(body, &req); err != nil {
		badRequest(c, err)
		return
	}
	rg, err := domain.ParseDateRange(req.StartDate, req.EndDate)
	if err != nil {
		badRequest(c, err)
		return
	}

	symbols := req.Symbols
	if len(symbols) == 0 {
		symbols = s.universes[req.UniverseID]
	}
	if len(symbols) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("unknown universe %q", req.UniverseID)})
		return
	}

	cfg := s.config(req.InitialCapital, rg.Start, req.Timeframe)
	results := make([]domain.BacktestResult, 0, len(symbols))
	for _, sym := range symbols {
		res := s.sim.Generate(sym, req.StrategyID, cfg)
		if req.StrategyName != "" {
			res.StrategyName = req.StrategyName
		}
		res.Universe = req.UniverseID
		res.Params = req.Params
		results = append(results, res)
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

func (s *Server) instrumentsSearch(c *gin.Context) {
	c.JSON(http.StatusOK, searchInstruments(s.instruments, c.Query("segment"), c.Query("q")))
}

func (s *Server) dataHealth(c *gin.Context) {
	symbol := c.Query("symbol")
	if symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol is required"})
		return
	}
	rg, err := domain.ParseDateRange(c.Query("start_date"), c.Query("end_date"))
	if err != nil {
		badRequest(c, err)
		return
	}
	c.JSON(http.StatusOK, s.sim.DataHealth(rg))
}

func (s *Server) monteCarlo(c *gin.Context) {
	var req domain.MonteCarloRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if req.Simulations <= 0 || req.Simulations > maxSimulations {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("simulations must be in 1..%d", maxSimulations)})
		return
	}
	if req.Days > maxPathDays {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("days must be at most %d", maxPathDays)})
		return
	}
	c.JSON(http.StatusOK, s.sim.GeneratePaths(req.Simulations, req.Days))
}

func (s *Server) paperPositions(c *gin.Context) {
	s.mu.RLock()
	out := append([]domain.PaperPosition{}, s.positions...)
	s.mu.RUnlock()
	c.JSON(http.StatusOK, out)
}

func (s *Server) config(capital float64, start time.Time, tf domain.Timeframe) simulate.Config {
	if capital <= 0 {
		capital = 100000
	}
	return s.sim.ConfigFor(domain.RunRequest{
		Capital:   capital,
		Range:     domain.DateRange{Start: start},
		Timeframe: domain.NormalizeTimeframe(string(tf)),
	})
}

// badRequest responde 400 con el payload {"error": ...} que el cliente clasifica como rechazo.
func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Debug("simengine request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"elapsed", time.Since(start),
		)
	}
}
