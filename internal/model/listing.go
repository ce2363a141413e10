package model

import "time"

// Listing status values.  A listing is sellable only while AVAILABLE.
// SOLD is entered when a fulfilled pickup depletes the remaining
// quantity; UNAVAILABLE is entered when the pickup window expires or
// the business closes the listing manually.
const (
    ListingAvailable   = "AVAILABLE"
    ListingUnavailable = "UNAVAILABLE"
    ListingSold        = "SOLD"
)

// Listing represents a surplus-food offer published by a business,
// optionally scoped to one of its branches.  It corresponds to a row
// in the `food_listings` table.  Quantity is the contended resource:
// it is decremented when a reservation is created and incremented
// when items are cancelled, always inside a transaction, and must
// never go negative.
//
// Fields:
//  ID                 – primary key identifier.
//  BusinessID         – owning business.
//  BranchID           – owning branch within the business (nullable).
//  Title              – short customer-facing description.
//  PriceCents         – discounted price per unit in cents.
//  OriginalPriceCents – pre-discount price per unit in cents.
//  Quantity           – units still available for reservation (>= 0).
//  PickupStart        – beginning of the pickup window (UTC).
//  PickupEnd          – end of the pickup window (UTC).
//  Status             – AVAILABLE, UNAVAILABLE or SOLD.
//  PickupStatus       – cached urgency bucket derived from PickupEnd.
//  CreatedAt          – creation timestamp.
//  UpdatedAt          – last update timestamp.
type Listing struct {
    ID                 uint64    // food_listings.id
    BusinessID         uint64    // food_listings.business_id
    BranchID           *uint64   // food_listings.branch_id (nullable)
    Title              string    // food_listings.title
    PriceCents         uint32    // food_listings.price_cents
    OriginalPriceCents uint32    // food_listings.original_price_cents
    Quantity           uint32    // food_listings.quantity
    PickupStart        time.Time // food_listings.pickup_start
    PickupEnd          time.Time // food_listings.pickup_end
    Status             string    // food_listings.status
    PickupStatus       string    // food_listings.pickup_status (derived, cached)
    CreatedAt          time.Time // food_listings.created_at
    UpdatedAt          time.Time // food_listings.updated_at
}
