package bootstrap

import (
	"context"
	"time"

	"github.com/wolfman30/clinic-concierge/internal/observability/metrics"
	"github.com/wolfman30/clinic-concierge/internal/session"
	"github.com/wolfman30/clinic-concierge/internal/store"
	"github.com/wolfman30/clinic-concierge/pkg/logging"
)

// Janitor runs the periodic maintenance loop: hard-deleting appointments
// whose time has passed and evicting idle sessions. The cleanup interval is
// hours long, but the loop wakes on a short poll so cancellation is observed
// promptly.
type Janitor struct {
	store    *store.Store
	sessions *session.Store
	logger   *logging.Logger
	metrics  *metrics.ConversationMetrics

	cleanupInterval time.Duration
	evictionPeriod  time.Duration
	poll            time.Duration
}

// JanitorConfig sets the maintenance cadence. Non-positive values get the
// standard defaults.
type JanitorConfig struct {
	CleanupInterval time.Duration
	EvictionPeriod  time.Duration
	Poll            time.Duration
}

// NewJanitor creates the maintenance loop. Metrics may be nil.
func NewJanitor(st *store.Store, sessions *session.Store, cfg JanitorConfig, logger *logging.Logger, m *metrics.ConversationMetrics) *Janitor {
	if st == nil {
		panic("bootstrap: janitor requires store")
	}
	if sessions == nil {
		panic("bootstrap: janitor requires session store")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = 6 * time.Hour
	}
	if cfg.EvictionPeriod <= 0 {
		cfg.EvictionPeriod = 30 * time.Minute
	}
	if cfg.Poll <= 0 {
		cfg.Poll = 30 * time.Second
	}
	return &Janitor{
		store:           st,
		sessions:        sessions,
		logger:          logger.WithComponent("janitor"),
		metrics:         m,
		cleanupInterval: cfg.CleanupInterval,
		evictionPeriod:  cfg.EvictionPeriod,
		poll:            cfg.Poll,
	}
}

// Run blocks until ctx is cancelled.
func (j *Janitor) Run(ctx context.Context) {
	j.logger.Info("janitor started",
		"cleanup_interval", j.cleanupInterval.String(),
		"eviction_period", j.evictionPeriod.String(),
	)

	ticker := time.NewTicker(j.poll)
	defer ticker.Stop()

	nextCleanup := time.Now().Add(j.cleanupInterval)
	nextEviction := time.Now().Add(j.evictionPeriod)

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("janitor stopped")
			return
		case now := <-ticker.C:
			if !now.Before(nextEviction) {
				if evicted := j.sessions.EvictIdle(); evicted > 0 {
					j.logger.Info("evicted idle sessions", "count", evicted)
					j.metrics.ObserveEvictions(evicted)
				}
				nextEviction = now.Add(j.evictionPeriod)
			}
			if !now.Before(nextCleanup) {
				summary := j.store.CleanupExpired()
				if summary.ExpiredCount > 0 {
					j.logger.Info("removed expired appointments", "count", summary.ExpiredCount)
					j.metrics.ObserveCleanup(summary.ExpiredCount)
				}
				nextCleanup = now.Add(j.cleanupInterval)
			}
		}
	}
}
