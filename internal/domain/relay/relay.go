// Package relay forwards browser requests to the spreadsheet web app that
// records orders, adding the CORS headers the browser needs.
package relay

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/cors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

const (
	// DefaultContentType is sent upstream when a POST carries none.
	DefaultContentType = "application/x-www-form-urlencoded;charset=UTF-8"

	defaultTimeout  = 30 * time.Second
	maxRequestBody  = 1 << 20
	maxResponseBody = 10 << 20
)

var (
	ErrNoTarget     = errors.New("relay target not configured")
	ErrRateLimited  = errors.New("rate limit exceeded")
	ErrBodyTooLarge = errors.New("request body too large")
)

// Config describes the upstream and the inbound limits.
type Config struct {
	Target        string
	Timeout       time.Duration
	RatePerSecond float64
	Burst         int
}

// Handler relays GET and POST requests to Config.Target.
type Handler struct {
	target  string
	client  *http.Client
	limiter *rate.Limiter
	metrics *Metrics
	tracer  trace.Tracer
	logger  *slog.Logger
}

// Option customizes a Handler.
type Option func(*Handler)

// WithHTTPClient replaces the upstream client.
func WithHTTPClient(c *http.Client) Option {
	return func(h *Handler) { h.client = c }
}

// WithMetrics records request counts and upstream latency.
func WithMetrics(m *Metrics) Option {
	return func(h *Handler) { h.metrics = m }
}

// WithTracer replaces the global otel tracer.
func WithTracer(t trace.Tracer) Option {
	return func(h *Handler) { h.tracer = t }
}

// NewHandler creates a relay. A zero RatePerSecond disables limiting.
func NewHandler(cfg Config, logger *slog.Logger, opts ...Option) *Handler {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	h := &Handler{
		target: cfg.Target,
		client: &http.Client{Timeout: timeout},
		tracer: otel.Tracer("github.com/FACorreiaa/venue-sales-report/internal/domain/relay"),
		logger: logger,
	}
	if cfg.RatePerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		h.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// WithCORS wraps the relay so any origin may call it.
func (h *Handler) WithCORS() http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins:       []string{"*"},
		AllowedMethods:       []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:       []string{"Content-Type"},
		OptionsSuccessStatus: http.StatusOK,
	}).Handler(h)
}

// ServeHTTP forwards the request and writes the upstream status and body.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodOptions:
		h.metrics.observe(r.Method, http.StatusOK)
		w.WriteHeader(http.StatusOK)
		return
	case http.MethodGet, http.MethodPost:
	default:
		h.metrics.observe(r.Method, http.StatusMethodNotAllowed)
		w.Header().Set("Allow", "GET, POST, OPTIONS")
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	if h.limiter != nil && !h.limiter.Allow() {
		h.fail(w, r, http.StatusTooManyRequests, ErrRateLimited)
		return
	}
	if h.target == "" {
		h.fail(w, r, http.StatusInternalServerError, ErrNoTarget)
		return
	}

	ctx, span := h.tracer.Start(r.Context(), "relay.forward",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("http.request.method", r.Method)),
	)
	defer span.End()

	status, body, err := h.forward(r.WithContext(ctx))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "upstream request failed")
		h.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	span.SetAttributes(attribute.Int("http.response.status_code", status))

	h.metrics.observe(r.Method, status)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func (h *Handler) forward(r *http.Request) (int, []byte, error) {
	upstream, err := h.upstreamRequest(r)
	if err != nil {
		return 0, nil, err
	}

	started := time.Now()
	res, err := h.client.Do(upstream)
	h.metrics.timeUpstream(r.Method, started)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to reach relay target: %w", err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBody))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read relay response: %w", err)
	}
	return res.StatusCode, compactJSON(raw), nil
}

func (h *Handler) upstreamRequest(r *http.Request) (*http.Request, error) {
	target, err := url.Parse(h.target)
	if err != nil {
		return nil, fmt.Errorf("failed to parse relay target: %w", err)
	}

	if r.Method == http.MethodGet {
		if q := r.URL.RawQuery; q != "" {
			if target.RawQuery != "" {
				target.RawQuery += "&"
			}
			target.RawQuery += q
		}
		return http.NewRequestWithContext(r.Context(), http.MethodGet, target.String(), nil)
	}

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	if len(payload) > maxRequestBody {
		return nil, ErrBodyTooLarge
	}
	req, err := http.NewRequestWithContext(r.Context(), http.MethodPost, target.String(), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build relay request: %w", err)
	}
	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		contentType = DefaultContentType
	}
	req.Header.Set("Content-Type", contentType)
	return req, nil
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, status int, err error) {
	h.metrics.observe(r.Method, status)
	h.logger.Error("relay request failed",
		slog.String("method", r.Method),
		slog.Int("status", status),
		slog.Any("error", err),
	)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{OK: false, Error: err.Error()})
}

type errorBody struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// compactJSON re-encodes a JSON body without insignificant whitespace.
// Anything else is returned unchanged.
func compactJSON(raw []byte) []byte {
	if !json.Valid(raw) {
		return raw
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return raw
	}
	return buf.Bytes()
}
