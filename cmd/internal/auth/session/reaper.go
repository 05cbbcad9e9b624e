package session

import (
	"context"
	"log/slog"
	"time"
)

// Reaper periodically purges expired sessions. Lookups reject expired
// sessions on their own; the reaper only reclaims storage.
type Reaper struct {
	store    Store
	interval time.Duration
	timeout  time.Duration
	now      func() time.Time
	log      *slog.Logger
}

// NewReaper returns a Reaper. interval <= 0 makes Run return immediately.
func NewReaper(store Store, interval, timeout time.Duration, log *slog.Logger) *Reaper {
	if log == nil {
		log = slog.Default()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Reaper{
		store:    store,
		interval: interval,
		timeout:  timeout,
		now:      func() time.Time { return time.Now().UTC() },
		log:      log,
	}
}

// Run sweeps every interval until ctx is done.
func (r *Reaper) Run(ctx context.Context) {
	if r.interval <= 0 {
		return
	}

	t := time.NewTicker(r.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if _, err := r.Sweep(ctx); err != nil && ctx.Err() == nil {
				r.log.Warn("session.reap.fail", "err", err)
			}
		}
	}
}

// Sweep deletes expired sessions once.
func (r *Reaper) Sweep(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	n, err := r.store.DeleteExpired(ctx, r.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		r.log.Info("session.reap", "deleted", n)
	}
	return n, nil
}
