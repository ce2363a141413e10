package model

import "time"

// Reservation status values.  COMPLETED and CANCELLED are terminal;
// no transition ever leaves them.
const (
    ReservationPending   = "PENDING"
    ReservationConfirmed = "CONFIRMED"
    ReservationCompleted = "COMPLETED"
    ReservationCancelled = "CANCELLED"
)

// Reservation item status values.  Items resolve independently of
// each other: a branch manager may complete or cancel only the items
// belonging to their branch, leaving siblings untouched.
const (
    ItemPending   = "PENDING"
    ItemCompleted = "COMPLETED"
    ItemCancelled = "CANCELLED"
)

// Reservation records a customer's claim on listing quantities at a
// single business.  When a checkout spans several businesses, one
// reservation per business is created inside the same transaction.
// It corresponds to a row in the `reservations` table.  The
// reservation-level status is derived from its items: COMPLETED only
// when every item is COMPLETED, CANCELLED only when every item is
// CANCELLED.
//
// Fields:
//  ID                – primary key identifier.
//  ReservationNumber – unique human-readable number
//                      ({BUSINESSCODE}-{YYYYMMDD}-{00001}).
//  CustomerID        – user who made the reservation.
//  BusinessID        – business whose listings are reserved.
//  PickupTime        – agreed pickup time (UTC).
//  TotalAmountCents  – sum of item price × quantity in cents.
//  Status            – PENDING, CONFIRMED, COMPLETED or CANCELLED.
//  ConfirmationCode  – 8-char uppercase alphanumeric code, set after
//                      payment (nullable before).
//  PickupConfirmedAt – stamped on the first transition into the
//                      fully-completed state (nullable).
//  CancellationReason – reason recorded when fully cancelled (nullable).
//  CreatedAt         – creation timestamp.
//  UpdatedAt         – last update timestamp.
type Reservation struct {
    ID                 uint64     // reservations.id
    ReservationNumber  string     // reservations.reservation_number
    CustomerID         uint64     // reservations.customer_id
    BusinessID         uint64     // reservations.business_id
    PickupTime         time.Time  // reservations.pickup_time
    TotalAmountCents   uint32     // reservations.total_amount_cents
    Status             string     // reservations.status
    ConfirmationCode   *string    // reservations.confirmation_code (nullable)
    PickupConfirmedAt  *time.Time // reservations.pickup_confirmed_at (nullable)
    CancellationReason *string    // reservations.cancellation_reason (nullable)
    CreatedAt          time.Time  // reservations.created_at
    UpdatedAt          time.Time  // reservations.updated_at
}

// ReservationItem is one listing × quantity line within a
// reservation.  The price is snapshotted from the listing at
// reservation time and never changes afterwards, so later price edits
// on the listing do not affect committed reservations.
//
// Fields:
//  ID            – primary key identifier.
//  ReservationID – owning reservation.
//  ListingID     – referenced listing.
//  BranchID      – branch the listing belonged to at reservation time (nullable).
//  Quantity      – number of units reserved.
//  PriceCents    – per-unit price snapshot in cents.
//  Status        – PENDING, COMPLETED or CANCELLED.
//  CreatedAt     – creation timestamp.
//  UpdatedAt     – last update timestamp.
type ReservationItem struct {
    ID            uint64    // reservation_items.id
    ReservationID uint64    // reservation_items.reservation_id
    ListingID     uint64    // reservation_items.listing_id
    BranchID      *uint64   // reservation_items.branch_id (nullable)
    Quantity      uint32    // reservation_items.quantity
    PriceCents    uint32    // reservation_items.price_cents
    Status        string    // reservation_items.status
    CreatedAt     time.Time // reservation_items.created_at
    UpdatedAt     time.Time // reservation_items.updated_at
}
