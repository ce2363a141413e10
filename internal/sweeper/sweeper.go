// Package sweeper re-classifies listing pickup statuses on a fixed
// interval and takes expired listings off sale. Each run processes
// listings in bounded batches so no long-held locks or large
// transactions build up, and per-listing errors are logged and
// skipped so one bad row never aborts the rest of the run.
package sweeper

import (
    "context"
    "log"
    "time"

    "github.com/greenbite/surplus-market/internal/model"
    "github.com/greenbite/surplus-market/internal/pickup"
)

// Store is the slice of the listing repository the sweeper needs.
type Store interface {
    SweepBatch(ctx context.Context, afterID uint64, limit int) ([]model.Listing, error)
    UpdatePickupStatus(ctx context.Context, listingID uint64, status string, now time.Time) error
}

// Sweeper periodically recomputes pickup statuses. Both writes it
// issues are idempotent, so running two sweepers concurrently (or
// racing with reservation creation) is safe: a listing going
// UNAVAILABLE mid-reservation simply fails that attempt's
// availability guard.
type Sweeper struct {
    store     Store
    interval  time.Duration
    batchSize int
}

// New returns a Sweeper over the given store. Non-positive interval
// or batch size fall back to the defaults (5 minutes, 200 rows).
func New(store Store, interval time.Duration, batchSize int) *Sweeper {
    if interval <= 0 {
        interval = 5 * time.Minute
    }
    if batchSize <= 0 {
        batchSize = 200
    }
    return &Sweeper{store: store, interval: interval, batchSize: batchSize}
}

// Run sweeps immediately and then on every tick until the context is
// cancelled. Intended to be started as a goroutine from main.
func (s *Sweeper) Run(ctx context.Context) {
    ticker := time.NewTicker(s.interval)
    defer ticker.Stop()
    for {
        if n, err := s.SweepOnce(ctx, time.Now().UTC()); err != nil {
            log.Printf("sweeper: run failed: %v", err)
        } else if n > 0 {
            log.Printf("sweeper: updated pickup status of %d listings", n)
        }
        select {
        case <-ctx.Done():
            return
        case <-ticker.C:
        }
    }
}

// SweepOnce pages through all AVAILABLE, not-yet-expired listings and
// persists every pickup status that changed, returning how many rows
// were updated. It only writes when the recomputed bucket differs
// from the cached one, so a second run with no elapsed time is a
// no-op.
func (s *Sweeper) SweepOnce(ctx context.Context, now time.Time) (int, error) {
    changed := 0
    var afterID uint64
    for {
        batch, err := s.store.SweepBatch(ctx, afterID, s.batchSize)
        if err != nil {
            return changed, err
        }
        if len(batch) == 0 {
            return changed, nil
        }
        for _, l := range batch {
            afterID = l.ID
            status := pickup.Classify(l.PickupEnd, now)
            if status == l.PickupStatus {
                continue
            }
            if err := s.store.UpdatePickupStatus(ctx, l.ID, status, now); err != nil {
                log.Printf("sweeper: listing %d: %v", l.ID, err)
                continue
            }
            changed++
        }
        if len(batch) < s.batchSize {
            return changed, nil
        }
    }
}
