// Package report holds the snapshot the dashboard reads from and swaps it on
// reload.
package report

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/FACorreiaa/venue-sales-report/internal/domain/import/service"
	"github.com/FACorreiaa/venue-sales-report/internal/domain/sales"
)

// ErrNotLoaded is returned before the first successful load.
var ErrNotLoaded = errors.New("sales not loaded yet")

// Loader produces snapshots from the configured source or from a payload.
type Loader interface {
	Reload(ctx context.Context) (*service.Snapshot, error)
	LoadBytes(ctx context.Context, data []byte, contentType string) (*service.Snapshot, error)
}

// Store keeps the current snapshot. Readers never block; loads are
// serialized and a failed load keeps the previous snapshot.
type Store struct {
	current atomic.Pointer[service.Snapshot]
	mu      sync.Mutex
	loader  Loader
	logger  *slog.Logger

	loads    *prometheus.CounterVec
	salesNum prometheus.Gauge
	loadedAt prometheus.Gauge
}

// NewStore creates an empty store. Metrics are registered on reg when it is
// not nil.
func NewStore(loader Loader, logger *slog.Logger, reg prometheus.Registerer) *Store {
	factory := promauto.With(reg)
	return &Store{
		loader: loader,
		logger: logger,
		loads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "venue",
			Subsystem: "snapshot",
			Name:      "loads_total",
			Help:      "Snapshot loads by origin and result.",
		}, []string{"origin", "result"}),
		salesNum: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "venue",
			Subsystem: "snapshot",
			Name:      "sales",
			Help:      "Sales in the current snapshot.",
		}),
		loadedAt: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "venue",
			Subsystem: "snapshot",
			Name:      "loaded_timestamp_seconds",
			Help:      "Unix time of the current snapshot load.",
		}),
	}
}

// Current returns the loaded snapshot or nil.
func (s *Store) Current() *service.Snapshot {
	return s.current.Load()
}

// Sales returns the sales of the current snapshot.
func (s *Store) Sales() ([]sales.Sale, error) {
	snap := s.current.Load()
	if snap == nil {
		return nil, ErrNotLoaded
	}
	return snap.Sales, nil
}

// Reload fetches the source and swaps in the new snapshot.
func (s *Store) Reload(ctx context.Context) (*service.Snapshot, error) {
	return s.swap("source", func() (*service.Snapshot, error) {
		return s.loader.Reload(ctx)
	})
}

// Import replaces the snapshot with one built from an uploaded payload.
func (s *Store) Import(ctx context.Context, data []byte, contentType string) (*service.Snapshot, error) {
	return s.swap("import", func() (*service.Snapshot, error) {
		return s.loader.LoadBytes(ctx, data, contentType)
	})
}

// Set installs snap directly.
func (s *Store) Set(snap *service.Snapshot) {
	s.current.Store(snap)
	s.salesNum.Set(float64(len(snap.Sales)))
	s.loadedAt.Set(float64(snap.LoadedAt.Unix()))
}

func (s *Store) swap(origin string, load func() (*service.Snapshot, error)) (*service.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	started := time.Now()
	snap, err := load()
	if err != nil {
		s.loads.WithLabelValues(origin, "error").Inc()
		s.logger.Error("snapshot load failed",
			slog.String("origin", origin),
			slog.Any("error", err),
		)
		return nil, err
	}

	s.Set(snap)
	s.loads.WithLabelValues(origin, "ok").Inc()
	s.logger.Info("snapshot swapped",
		slog.String("origin", origin),
		slog.String("snapshot_id", snap.ID.String()),
		slog.Int("sales", len(snap.Sales)),
		slog.Duration("duration", time.Since(started)),
	)
	return snap, nil
}
