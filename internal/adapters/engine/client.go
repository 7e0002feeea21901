package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/alejandrodnm/stratlab/internal/domain"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "http://localhost:8000/api/v1"
	defaultTimeout = 30 * time.Second

	// El motor es local o de un solo usuario: 5 req/s es de sobra y evita
	// saturarlo cuando la CLI encadena optimización + OOS.
	defaultRatePerSec = 5
	rateBurst         = 5

	maxErrorBody = 64 << 10
)

// Client es el HTTP client del motor de ejecución. Solo transporte y
// clasificación de errores: no reintenta ni hace fallback.
type Client struct {
	http    *http.Client
	baseURL string
	limiter *rate.Limiter
}

// NewClient crea un Client contra baseURL.
// Valores vacíos o no positivos usan los defaults.
func NewClient(baseURL string, timeout time.Duration, ratePerSec float64) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if ratePerSec <= 0 {
		ratePerSec = defaultRatePerSec
	}
	return &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), rateBurst),
	}
}

// BaseURL devuelve la URL base configurada.
func (c *Client) BaseURL() string { return c.baseURL }

// StatusError es una respuesta que el motor marcó como fallida: un status no-2xx
// o un 2xx con campo "error".
type StatusError struct {
	Code    int
	Message string
	// Structured indica que el servidor devolvió un payload de error propio.
	Structured bool
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("engine returned status %d", e.Code)
	}
	return fmt.Sprintf("engine returned status %d: %s", e.Code, e.Message)
}

// Unwrap clasifica el error: con payload estructurado es un rechazo de la
// aplicación; sin él, el servicio se considera no disponible.
func (e *StatusError) Unwrap() error {
	if e.Structured {
		return domain.ErrRemoteRejected
	}
	return domain.ErrRemoteUnreachable
}

// errorPayload son las formas de error que devuelve el motor.
type errorPayload struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Detail  any    `json:"detail"`
}

func (p errorPayload) message() string {
	switch {
	case p.Error != "":
		return p.Error
	case p.Message != "":
		return p.Message
	case p.Detail != nil:
		if s, ok := p.Detail.(string); ok {
			return s
		}
		b, _ := json.Marshal(p.Detail)
		return string(b)
	}
	return ""
}

// get hace un GET con rate limiting.
func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return c.do(ctx, req, out)
}

// post hace un POST JSON con rate limiting.
func (c *Client) post(ctx context.Context, path string, body, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return c.do(ctx, req, out)
}

// do ejecuta la request una sola vez y clasifica el resultado.
func (c *Client) do(ctx context.Context, req *http.Request, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %s %s: %v", domain.ErrRemoteUnreachable, req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	slog.Debug("engine response",
		"method", req.Method,
		"path", req.URL.Path,
		"status", resp.StatusCode,
		"elapsed", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		var p errorPayload
		if json.Unmarshal(body, &p) == nil && p.message() != "" {
			return &StatusError{Code: resp.StatusCode, Message: p.message(), Structured: true}
		}
		return &StatusError{Code: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read response: %v", domain.ErrRemoteUnreachable, err)
	}

	// Un 2xx con "error" es un fallo de aplicación, no de transporte.
	if trimmed := bytes.TrimSpace(body); len(trimmed) > 0 && trimmed[0] == '{' {
		var p struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(trimmed, &p) == nil && p.Error != "" {
			return &StatusError{Code: resp.StatusCode, Message: p.Error, Structured: true}
		}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: decode response: %v", domain.ErrRemoteUnreachable, err)
	}
	return nil
}
