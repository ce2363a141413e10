// Package booking holds the pure rules of the reservation state
// machine: request validation, grouping of checkout lines by
// business, totals and the item→reservation status aggregation.
// Nothing in this package touches storage; handlers feed it loaded
// rows and persist the outcome inside their own transaction.
package booking

import (
    "errors"
    "math"
    "time"

    "github.com/greenbite/surplus-market/internal/model"
)

// Business-rule violations surfaced to the caller with a specific
// kind.  Handlers translate these into stable machine-readable codes;
// none of them is retryable by the client without changing the
// request.
var (
    ErrListingUnavailable       = errors.New("listing is not available")
    ErrOutOfStock               = errors.New("insufficient listing quantity")
    ErrPickupOutsideWindow      = errors.New("pickup time outside listing pickup window")
    ErrMultiBusinessNotAllowed  = errors.New("reservation spans multiple businesses")
    ErrAmountMismatch           = errors.New("payment amount does not match reservation total")
    ErrAlreadyPaid              = errors.New("reservation already has a completed payment")
    ErrPaymentRequired          = errors.New("reservation has no completed payment")
    ErrCancellationWindowClosed = errors.New("reservation can no longer be cancelled by the customer")
    ErrVerificationExpired      = errors.New("confirmation code validity window has elapsed")
    ErrCodeMismatch             = errors.New("confirmation code does not match")
    ErrTotalTooLarge            = errors.New("reservation total exceeds the representable amount")
)

// maxTotalCents is the largest total the reservations.total_amount_cents
// column can hold. ValidateForReservation rejects batches above it so
// the stored total is never a truncated value.
const maxTotalCents = math.MaxUint32

// Line couples a loaded listing with the quantity requested for it.
type Line struct {
    Listing  model.Listing
    Quantity uint32
}

// Group collects the lines of one checkout that belong to a single
// business.  Creating one reservation per group makes the
// all-or-nothing transaction boundary of a multi-business checkout an
// explicit unit instead of an implicit reduce.
type Group struct {
    BusinessID uint64
    Lines      []Line
}

// GroupByBusiness splits checkout lines into per-business groups,
// preserving the order in which each business first appears in the
// request.
func GroupByBusiness(lines []Line) []Group {
    groups := make([]Group, 0, 1)
    index := make(map[uint64]int)
    for _, ln := range lines {
        bid := ln.Listing.BusinessID
        i, ok := index[bid]
        if !ok {
            i = len(groups)
            index[bid] = i
            groups = append(groups, Group{BusinessID: bid})
        }
        groups[i].Lines = append(groups[i].Lines, ln)
    }
    return groups
}

// TotalCents returns the sum of price × quantity across the lines.
// The sum is accumulated in uint64 so an oversized cart widens
// instead of wrapping the 32-bit cent columns it is built from.
func TotalCents(lines []Line) uint64 {
    var total uint64
    for _, ln := range lines {
        total += uint64(ln.Listing.PriceCents) * uint64(ln.Quantity)
    }
    return total
}

// ItemTotalCents returns the sum of price × quantity across
// reservation items, used when validating a payment amount. Like
// TotalCents it accumulates in uint64.
func ItemTotalCents(items []model.ReservationItem) uint64 {
    var total uint64
    for _, it := range items {
        total += uint64(it.PriceCents) * uint64(it.Quantity)
    }
    return total
}

// ValidateForReservation checks every rule that must hold before any
// inventory is touched.  Validation order matches the lifecycle
// contract: listing availability, stock, pickup window, then the
// total bound and finally the multi-business policy.  The first
// violated rule is returned; a nil error means the whole batch may
// proceed to the transactional decrement.
func ValidateForReservation(lines []Line, pickupTime time.Time, allowMultipleBusinesses bool) error {
    for _, ln := range lines {
        if ln.Listing.Status != model.ListingAvailable {
            return ErrListingUnavailable
        }
        if ln.Quantity == 0 || ln.Listing.Quantity < ln.Quantity {
            return ErrOutOfStock
        }
        if pickupTime.Before(ln.Listing.PickupStart) || pickupTime.After(ln.Listing.PickupEnd) {
            return ErrPickupOutsideWindow
        }
    }
    if TotalCents(lines) > maxTotalCents {
        return ErrTotalTooLarge
    }
    if !allowMultipleBusinesses && len(GroupByBusiness(lines)) > 1 {
        return ErrMultiBusinessNotAllowed
    }
    return nil
}

// AllItemsHaveStatus reports whether every item carries the given
// status.  An empty slice reports false: a reservation with no items
// is never considered resolved.
func AllItemsHaveStatus(items []model.ReservationItem, status string) bool {
    if len(items) == 0 {
        return false
    }
    for _, it := range items {
        if it.Status != status {
            return false
        }
    }
    return true
}

// ItemsInScope returns the reservation items within the acting staff
// member's reach regardless of status: every item for a business
// account, only the items snapshotted to their branch for a branch
// manager.  An empty result means the actor has no claim on the
// reservation at all, which handlers treat as an authorization
// failure rather than a state conflict.
func ItemsInScope(items []model.ReservationItem, branchID *uint64) []model.ReservationItem {
    out := make([]model.ReservationItem, 0, len(items))
    for _, it := range items {
        if branchID != nil && (it.BranchID == nil || *it.BranchID != *branchID) {
            continue
        }
        out = append(out, it)
    }
    return out
}

// ItemsForActor narrows ItemsInScope to items carrying the wanted
// status.  Items already in a terminal state fall out of the result so
// verification and cancellation never touch them twice.
func ItemsForActor(items []model.ReservationItem, branchID *uint64, want string) []model.ReservationItem {
    in := ItemsInScope(items, branchID)
    out := make([]model.ReservationItem, 0, len(in))
    for _, it := range in {
        if it.Status != want {
            continue
        }
        out = append(out, it)
    }
    return out
}
