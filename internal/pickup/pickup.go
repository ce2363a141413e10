// Package pickup computes the urgency bucket of a listing from its
// pickup deadline.  The same function backs the public listings feed
// (recomputed lazily on read) and the background sweeper (recomputed
// periodically and persisted), so both paths always agree.
package pickup

import "time"

// Status values ordered by urgency.  Expired listings are taken off
// sale by the sweeper; the remaining buckets only affect how the
// listing is presented to customers.
const (
    StatusNormal  = "normal"
    StatusWarning = "warning"
    StatusUrgent  = "urgent"
    StatusExpired = "expired"
)

// Classify returns the urgency bucket for a listing whose pickup
// window closes at pickupEnd, evaluated at now.  It is deterministic
// and side-effect free: <= 0 hours remaining is expired, (0,2] is
// urgent, (2,4] is warning, everything beyond is normal.
func Classify(pickupEnd, now time.Time) string {
    remaining := pickupEnd.Sub(now)
    switch {
    case remaining <= 0:
        return StatusExpired
    case remaining <= 2*time.Hour:
        return StatusUrgent
    case remaining <= 4*time.Hour:
        return StatusWarning
    default:
        return StatusNormal
    }
}
