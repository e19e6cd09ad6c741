package live

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/decoaromas/decoaromas-admin/internal/availability"
	"github.com/decoaromas/decoaromas-admin/internal/forms"
	"github.com/decoaromas/decoaromas-admin/internal/reports"
)

// Backend is everything live sessions read from or write to the REST backend.
type Backend interface {
	forms.Backend
	reports.Source
}

// Metrics receives session, check and fetch observations.
type Metrics interface {
	availability.Observer
	reports.FetchObserver
	SessionOpened(kind string) func()
}

type noopMetrics struct{}

func (noopMetrics) ObserveCheck(string, string) {}
func (noopMetrics) ObserveFetch(string, error, time.Duration) {}
func (noopMetrics) SessionOpened(string) func() { return func() {} }

// Config tunes live sessions.
type Config struct {
	AllowedOrigins    []string
	Debounce          time.Duration
	ReportConcurrency int
}

// Handler serves the live form and report websockets.
type Handler struct {
	logger   *slog.Logger
	backend  Backend
	cache    *reports.Cache
	metrics  Metrics
	cfg      Config
	upgrader websocket.Upgrader
	now      func() time.Time

	mu      sync.Mutex
	reports map[string]*reports.Orchestrator
}

// NewHandler constructs the live handler. cache and metrics may be nil.
func NewHandler(logger *slog.Logger, backend Backend, cache *reports.Cache, metrics Metrics, cfg Config) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	h := &Handler{
		logger:  logger.With(slog.String("component", "live")),
		backend: backend,
		cache:   cache,
		metrics: metrics,
		cfg:     cfg,
		now:     time.Now,
		reports: map[string]*reports.Orchestrator{},
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// WithNow overrides the report clock for testing.
func (h *Handler) WithNow(fn func() time.Time) {
	if fn != nil {
		h.now = fn
	}
}

// MountRoutes registers the live endpoints onto the router.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	r.Get("/live/forms/{kind}", h.handleForm)
	r.Get("/live/reports", h.handleReports)
	r.Get("/reports/{view}", h.handleReportSnapshot)
}

// RefreshReports refetches every open report screen, e.g. after a cache bump.
func (h *Handler) RefreshReports() {
	h.mu.Lock()
	open := make([]*reports.Orchestrator, 0, len(h.reports))
	for _, o := range h.reports {
		open = append(open, o)
	}
	h.mu.Unlock()
	for _, o := range open {
		_ = o.Refresh()
	}
}

// OpenReportSessions returns the number of connected report screens.
func (h *Handler) OpenReportSessions() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.reports)
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if len(h.cfg.AllowedOrigins) == 0 {
		u, err := url.Parse(origin)
		return err == nil && strings.EqualFold(u.Host, r.Host)
	}
	for _, allowed := range h.cfg.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(strings.TrimSpace(allowed), origin) {
			return true
		}
	}
	return false
}

func (h *Handler) validatorOptions() []availability.Option {
	opts := []availability.Option{availability.WithLogger(h.logger), availability.WithObserver(h.metrics)}
	if h.cfg.Debounce > 0 {
		opts = append(opts, availability.WithDebounce(h.cfg.Debounce))
	}
	return opts
}

func (h *Handler) newOrchestrator(opts ...reports.Option) *reports.Orchestrator {
	descs := reports.CachedAll(h.cache, reports.Catalog(h.backend))
	base := []reports.Option{
		reports.WithLogger(h.logger),
		reports.WithObserver(h.metrics),
		reports.WithClock(h.now),
		reports.WithMaxConcurrency(h.cfg.ReportConcurrency),
	}
	return reports.New(descs, append(base, opts...)...)
}
