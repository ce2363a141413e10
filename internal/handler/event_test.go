package handler

import (
    "testing"

    "github.com/greenbite/surplus-market/internal/model"
    "github.com/greenbite/surplus-market/internal/notify"
)

func TestCancelledEventItems(t *testing.T) {
    items := []model.ReservationItem{
        {ListingID: 11, Quantity: 2, Status: model.ItemPending},
        {ListingID: 12, Quantity: 1, Status: model.ItemPending},
    }
    titles := map[uint64]string{11: "Bakery surprise bag"}

    got := cancelledEventItems(items, titles)
    if len(got) != 2 {
        t.Fatalf("got %d event items, want 2", len(got))
    }
    if got[0].ListingID != 11 || got[0].Title != "Bakery surprise bag" || got[0].Quantity != 2 {
        t.Fatalf("unexpected first event item: %+v", got[0])
    }
    // An unresolved title leaves the line untitled rather than
    // dropping it from the summary.
    if got[1].ListingID != 12 || got[1].Title != "" {
        t.Fatalf("unexpected second event item: %+v", got[1])
    }
    for _, it := range got {
        if it.Status != model.ItemCancelled {
            t.Fatalf("event item status = %q, want %q", it.Status, model.ItemCancelled)
        }
    }
}

func TestReservationEventCarriesItemsAndReason(t *testing.T) {
    res := model.Reservation{
        ID:                5,
        ReservationNumber: "GRNCAFE-20260831-00001",
        CustomerID:        3,
        BusinessID:        9,
        Status:            model.ReservationCancelled,
    }
    items := cancelledEventItems([]model.ReservationItem{{ListingID: 11, Quantity: 2}}, nil)
    ev := reservationEvent(notify.KindStatusChanged, res, "Green Cafe", "out of stock", items)
    if ev.Reason != "out of stock" {
        t.Fatalf("reason = %q, want %q", ev.Reason, "out of stock")
    }
    if len(ev.Items) != 1 || ev.Items[0].ListingID != 11 {
        t.Fatalf("event items not carried: %+v", ev.Items)
    }
}
