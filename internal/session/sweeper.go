package session

import (
	"context"
	"time"

	"github.com/Embucket/embucket-sub001/internal/embucketlog"
)

// Sweeper periodically evicts expired sessions. Modeled as a
// supervised task with an explicit shutdown channel (DESIGN NOTES):
// never rely on process exit to stop it. The first tick completes
// immediately and is skipped (spec §4.8), matching
// original_source/crates/api-snowflake-rest-sessions/src/session.rs's
// continuously_delete_expired.
type Sweeper struct {
	store    *Store
	interval time.Duration
	log      *embucketlog.Logger
	shutdown chan struct{}
	done     chan struct{}
}

func NewSweeper(store *Store, interval time.Duration, log *embucketlog.Logger) *Sweeper {
	return &Sweeper{
		store:    store,
		interval: interval,
		log:      log,
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Run blocks until ctx is cancelled or Stop is called. Intended to be
// launched with `go sweeper.Run(ctx)`.
func (sw *Sweeper) Run(ctx context.Context) {
	defer close(sw.done)
	defer sw.log.HandleUnexpectedPanic()

	ticker := time.NewTicker(sw.interval)
	defer ticker.Stop()

	first := true
	for {
		select {
		case <-ctx.Done():
			return
		case <-sw.shutdown:
			return
		case <-ticker.C:
			if first {
				first = false
				continue
			}
			sw.sweepOnce()
		}
	}
}

func (sw *Sweeper) sweepOnce() {
	defer func() {
		if r := recover(); r != nil {
			sw.log.Error("session sweep failed:", r)
		}
	}()
	n := sw.store.DeleteExpired()
	if n > 0 {
		sw.log.Debug("session sweep evicted", n, "expired sessions")
	}
}

// Stop signals the sweeper to exit and blocks until it has.
func (sw *Sweeper) Stop() {
	close(sw.shutdown)
	<-sw.done
}
