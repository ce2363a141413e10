package booking

import (
    "errors"
    "math"
    "testing"
    "time"

    "github.com/greenbite/surplus-market/internal/model"
)

func listing(id, businessID uint64, qty uint32, price uint32, start, end time.Time) model.Listing {
    return model.Listing{
        ID:          id,
        BusinessID:  businessID,
        PriceCents:  price,
        Quantity:    qty,
        PickupStart: start,
        PickupEnd:   end,
        Status:      model.ListingAvailable,
    }
}

func TestGroupByBusinessPreservesOrder(t *testing.T) {
    start := time.Now().UTC()
    end := start.Add(6 * time.Hour)
    lines := []Line{
        {Listing: listing(1, 20, 5, 100, start, end), Quantity: 1},
        {Listing: listing(2, 10, 5, 100, start, end), Quantity: 1},
        {Listing: listing(3, 20, 5, 100, start, end), Quantity: 2},
    }
    groups := GroupByBusiness(lines)
    if len(groups) != 2 {
        t.Fatalf("expected 2 groups, got %d", len(groups))
    }
    if groups[0].BusinessID != 20 || groups[1].BusinessID != 10 {
        t.Fatalf("unexpected group order: %d, %d", groups[0].BusinessID, groups[1].BusinessID)
    }
    if len(groups[0].Lines) != 2 || len(groups[1].Lines) != 1 {
        t.Fatalf("unexpected group sizes: %d, %d", len(groups[0].Lines), len(groups[1].Lines))
    }
}

func TestTotalCents(t *testing.T) {
    start := time.Now().UTC()
    end := start.Add(6 * time.Hour)
    lines := []Line{
        {Listing: listing(1, 1, 3, 500, start, end), Quantity: 2},
        {Listing: listing(2, 1, 3, 250, start, end), Quantity: 1},
    }
    if got := TotalCents(lines); got != 1250 {
        t.Fatalf("TotalCents = %d, want 1250", got)
    }
}

func TestTotalCentsWideAccumulation(t *testing.T) {
    start := time.Now().UTC()
    end := start.Add(6 * time.Hour)
    lines := []Line{
        {Listing: listing(1, 1, 3, math.MaxUint32, start, end), Quantity: 3},
    }
    want := 3 * uint64(math.MaxUint32)
    if got := TotalCents(lines); got != want {
        t.Fatalf("TotalCents = %d, want %d (sum must not wrap at 32 bits)", got, want)
    }
    items := []model.ReservationItem{
        {PriceCents: math.MaxUint32, Quantity: 3},
    }
    if got := ItemTotalCents(items); got != want {
        t.Fatalf("ItemTotalCents = %d, want %d", got, want)
    }
}

func TestValidateForReservation(t *testing.T) {
    start := time.Date(2025, 8, 31, 10, 0, 0, 0, time.UTC)
    end := start.Add(8 * time.Hour)
    pickup := start.Add(2 * time.Hour)

    unavailable := listing(1, 1, 5, 100, start, end)
    unavailable.Status = model.ListingUnavailable

    cases := []struct {
        name   string
        lines  []Line
        pickup time.Time
        multi  bool
        want   error
    }{
        {
            name:   "happy path single business",
            lines:  []Line{{Listing: listing(1, 1, 5, 100, start, end), Quantity: 2}},
            pickup: pickup,
        },
        {
            name:   "listing not available",
            lines:  []Line{{Listing: unavailable, Quantity: 1}},
            pickup: pickup,
            want:   ErrListingUnavailable,
        },
        {
            name:   "insufficient quantity",
            lines:  []Line{{Listing: listing(1, 1, 1, 100, start, end), Quantity: 2}},
            pickup: pickup,
            want:   ErrOutOfStock,
        },
        {
            name:   "zero quantity requested",
            lines:  []Line{{Listing: listing(1, 1, 5, 100, start, end), Quantity: 0}},
            pickup: pickup,
            want:   ErrOutOfStock,
        },
        {
            name:   "pickup before window",
            lines:  []Line{{Listing: listing(1, 1, 5, 100, start, end), Quantity: 1}},
            pickup: start.Add(-time.Hour),
            want:   ErrPickupOutsideWindow,
        },
        {
            name:   "pickup after window",
            lines:  []Line{{Listing: listing(1, 1, 5, 100, start, end), Quantity: 1}},
            pickup: end.Add(time.Minute),
            want:   ErrPickupOutsideWindow,
        },
        {
            name:   "total beyond column bound",
            lines:  []Line{{Listing: listing(1, 1, 2, math.MaxUint32, start, end), Quantity: 2}},
            pickup: pickup,
            want:   ErrTotalTooLarge,
        },
        {
            name: "multi business rejected",
            lines: []Line{
                {Listing: listing(1, 1, 5, 100, start, end), Quantity: 1},
                {Listing: listing(2, 2, 5, 100, start, end), Quantity: 1},
            },
            pickup: pickup,
            want:   ErrMultiBusinessNotAllowed,
        },
        {
            name: "multi business allowed",
            lines: []Line{
                {Listing: listing(1, 1, 5, 100, start, end), Quantity: 1},
                {Listing: listing(2, 2, 5, 100, start, end), Quantity: 1},
            },
            pickup: pickup,
            multi:  true,
        },
    }
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            err := ValidateForReservation(tc.lines, tc.pickup, tc.multi)
            if !errors.Is(err, tc.want) {
                t.Fatalf("ValidateForReservation = %v, want %v", err, tc.want)
            }
        })
    }
}

func TestAllItemsHaveStatus(t *testing.T) {
    items := []model.ReservationItem{
        {Status: model.ItemCompleted},
        {Status: model.ItemCompleted},
    }
    if !AllItemsHaveStatus(items, model.ItemCompleted) {
        t.Fatal("expected all items completed")
    }
    items[1].Status = model.ItemPending
    if AllItemsHaveStatus(items, model.ItemCompleted) {
        t.Fatal("expected mixed statuses to report false")
    }
    if AllItemsHaveStatus(nil, model.ItemCompleted) {
        t.Fatal("empty item set must never be considered resolved")
    }
}

func TestItemsForActor(t *testing.T) {
    b1 := uint64(7)
    b2 := uint64(9)
    items := []model.ReservationItem{
        {ID: 1, BranchID: &b1, Status: model.ItemPending},
        {ID: 2, BranchID: &b2, Status: model.ItemPending},
        {ID: 3, BranchID: &b1, Status: model.ItemCompleted},
        {ID: 4, BranchID: nil, Status: model.ItemPending},
    }
    // Business account: every pending item.
    got := ItemsForActor(items, nil, model.ItemPending)
    if len(got) != 3 {
        t.Fatalf("business scope: got %d items, want 3", len(got))
    }
    // Branch manager: only their branch's pending items.
    got = ItemsForActor(items, &b1, model.ItemPending)
    if len(got) != 1 || got[0].ID != 1 {
        t.Fatalf("branch scope: got %+v, want only item 1", got)
    }
}

func TestItemsInScope(t *testing.T) {
    b1 := uint64(7)
    other := uint64(12)
    items := []model.ReservationItem{
        {ID: 1, BranchID: &b1, Status: model.ItemCompleted},
        {ID: 2, BranchID: &b1, Status: model.ItemCancelled},
        {ID: 3, BranchID: nil, Status: model.ItemPending},
    }
    // Business account: every item regardless of status.
    if got := ItemsInScope(items, nil); len(got) != 3 {
        t.Fatalf("business scope: got %d items, want 3", len(got))
    }
    // Branch manager whose items are all resolved still has standing
    // on the reservation, just nothing pending left to act on.
    if got := ItemsInScope(items, &b1); len(got) != 2 {
        t.Fatalf("branch scope: got %d items, want 2", len(got))
    }
    if got := ItemsForActor(items, &b1, model.ItemPending); len(got) != 0 {
        t.Fatalf("branch pending: got %d items, want 0", len(got))
    }
    // A branch with no items in the reservation has no claim at all.
    if got := ItemsInScope(items, &other); len(got) != 0 {
        t.Fatalf("foreign branch: got %d items, want 0", len(got))
    }
}
