// Package queue defines message payloads exchanged over the message broker.
package queue

// ReservationEventQueue is the durable queue carrying every
// reservation lifecycle event. Consumers filter on the Kind field.
const ReservationEventQueue = "reservation.events"

// EventItem is one reserved listing line inside a ReservationEvent.
type EventItem struct {
    ListingID uint64 `json:"listing_id"`
    Title     string `json:"title"`
    Quantity  uint32 `json:"quantity"`
    Status    string `json:"status"`
}

// ReservationEvent is published on every reservation lifecycle
// transition (created, payment confirmed, pickup confirmed,
// cancelled). It carries enough information for downstream consumers
// to log, notify or feed analytics without querying the primary
// database.
type ReservationEvent struct {
    Kind              string      `json:"kind"`
    ReservationID     uint64      `json:"reservation_id"`
    ReservationNumber string      `json:"reservation_number"`
    CustomerID        uint64      `json:"customer_id"`
    BusinessID        uint64      `json:"business_id"`
    BusinessName      string      `json:"business_name"`
    PickupTime        string      `json:"pickup_time"`
    TotalAmountCents  uint32      `json:"total_amount_cents"`
    Status            string      `json:"status"`
    Items             []EventItem `json:"items,omitempty"`
    Channels          []string    `json:"channels,omitempty"`
    Reason            string      `json:"reason,omitempty"`
    OccurredAt        string      `json:"occurred_at"`
}
