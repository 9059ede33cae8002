package realtime

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/clinigo/platform/pkg/logging"
)

// RefreshFunc reloads the queue snapshot. It must be idempotent.
type RefreshFunc func(ctx context.Context) error

// Refresher coalesces the three refresh triggers (subscription events, the
// fallback timer and manual requests) into one idempotent operation. A busy
// flag drops triggers that arrive while a refresh is running, so overlapping
// work never piles up.
type Refresher struct {
	refresh  RefreshFunc
	interval time.Duration
	logger   *logging.Logger

	busy     atomic.Bool
	triggers chan string
}

// NewRefresher creates a refresher with a fallback interval. interval <= 0
// defaults to 30 seconds.
func NewRefresher(refresh RefreshFunc, interval time.Duration, logger *logging.Logger) *Refresher {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Refresher{
		refresh:  refresh,
		interval: interval,
		logger:   logger,
		triggers: make(chan string, 1),
	}
}

// Trigger requests a refresh. Returns false when the request was dropped
// because a refresh is already running or queued.
func (r *Refresher) Trigger(source string) bool {
	if r.busy.Load() {
		return false
	}
	select {
	case r.triggers <- source:
		return true
	default:
		return false
	}
}

// Run processes triggers and the fallback timer until the context ends.
func (r *Refresher) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case source := <-r.triggers:
			r.doRefresh(ctx, source)
		case <-ticker.C:
			r.doRefresh(ctx, "timer")
		}
	}
}

func (r *Refresher) doRefresh(ctx context.Context, source string) {
	if !r.busy.CompareAndSwap(false, true) {
		return
	}
	defer r.busy.Store(false)

	if err := r.refresh(ctx); err != nil {
		r.logger.Error("queue refresh failed", "error", err, "source", source)
		return
	}
	r.logger.Debug("queue refreshed", "source", source)
}
