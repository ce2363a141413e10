package sweeper

import (
    "context"
    "errors"
    "testing"
    "time"

    "github.com/greenbite/surplus-market/internal/model"
    "github.com/greenbite/surplus-market/internal/pickup"
)

// fakeStore keeps listings in memory and mimics the paging and
// idempotent update semantics of the listing repository.
type fakeStore struct {
    listings map[uint64]*model.Listing
    updates  int
    failIDs  map[uint64]bool
}

func (f *fakeStore) SweepBatch(ctx context.Context, afterID uint64, limit int) ([]model.Listing, error) {
    out := make([]model.Listing, 0, limit)
    for id := afterID + 1; len(out) < limit; id++ {
        l, ok := f.listings[id]
        if !ok {
            break
        }
        if l.Status != model.ListingAvailable || l.PickupStatus == pickup.StatusExpired {
            continue
        }
        out = append(out, *l)
    }
    return out, nil
}

func (f *fakeStore) UpdatePickupStatus(ctx context.Context, listingID uint64, status string, now time.Time) error {
    if f.failIDs[listingID] {
        return errors.New("simulated write failure")
    }
    l := f.listings[listingID]
    l.PickupStatus = status
    if status == pickup.StatusExpired {
        l.Status = model.ListingUnavailable
    }
    f.updates++
    return nil
}

func newFake(ends ...time.Duration) (*fakeStore, time.Time) {
    now := time.Date(2025, 8, 31, 12, 0, 0, 0, time.UTC)
    f := &fakeStore{listings: map[uint64]*model.Listing{}, failIDs: map[uint64]bool{}}
    for i, d := range ends {
        id := uint64(i + 1)
        f.listings[id] = &model.Listing{
            ID:           id,
            Status:       model.ListingAvailable,
            PickupStatus: pickup.StatusNormal,
            PickupEnd:    now.Add(d),
        }
    }
    return f, now
}

func TestSweepOnceClassifiesAndExpires(t *testing.T) {
    f, now := newFake(6*time.Hour, 3*time.Hour, time.Hour, -time.Minute)
    s := New(f, time.Minute, 2)
    changed, err := s.SweepOnce(context.Background(), now)
    if err != nil {
        t.Fatalf("SweepOnce: %v", err)
    }
    if changed != 3 {
        t.Fatalf("changed = %d, want 3", changed)
    }
    if got := f.listings[1].PickupStatus; got != pickup.StatusNormal {
        t.Fatalf("listing 1 = %q, want normal", got)
    }
    if got := f.listings[2].PickupStatus; got != pickup.StatusWarning {
        t.Fatalf("listing 2 = %q, want warning", got)
    }
    if got := f.listings[3].PickupStatus; got != pickup.StatusUrgent {
        t.Fatalf("listing 3 = %q, want urgent", got)
    }
    if got := f.listings[4]; got.PickupStatus != pickup.StatusExpired || got.Status != model.ListingUnavailable {
        t.Fatalf("listing 4 = %+v, want expired and UNAVAILABLE", got)
    }
}

func TestSweepOnceIdempotent(t *testing.T) {
    f, now := newFake(6*time.Hour, 90*time.Minute, -time.Minute)
    s := New(f, time.Minute, 10)
    if _, err := s.SweepOnce(context.Background(), now); err != nil {
        t.Fatalf("first sweep: %v", err)
    }
    first := f.updates
    changed, err := s.SweepOnce(context.Background(), now)
    if err != nil {
        t.Fatalf("second sweep: %v", err)
    }
    if changed != 0 || f.updates != first {
        t.Fatalf("second sweep changed %d rows (total updates %d, was %d); want none", changed, f.updates, first)
    }
}

func TestSweepOnceContinuesPastFailures(t *testing.T) {
    f, now := newFake(time.Hour, time.Hour, time.Hour)
    f.failIDs[2] = true
    s := New(f, time.Minute, 10)
    changed, err := s.SweepOnce(context.Background(), now)
    if err != nil {
        t.Fatalf("SweepOnce: %v", err)
    }
    if changed != 2 {
        t.Fatalf("changed = %d, want 2 (failed row skipped, siblings processed)", changed)
    }
    if f.listings[2].PickupStatus != pickup.StatusNormal {
        t.Fatalf("failed row must keep its previous status for the next cycle")
    }
}
