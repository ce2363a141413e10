// Package repository defines error values that are reused across
// multiple repositories. These sentinel values allow higher layers
// such as handlers to distinguish between different failure
// scenarios. Storage-level conditions live here; pure business-rule
// violations (amount mismatch, closed cancellation window and so on)
// live in the booking package next to the rules that raise them.
package repository

import "errors"

// ErrForbidden is returned when the caller attempts an operation
// on a resource they do not own, such as a branch manager verifying
// a reservation holding none of their branch's items. Handlers
// should translate this into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrListingNotFound is returned when a referenced food listing does
// not exist. Not-found conditions are non-retryable client errors.
var ErrListingNotFound = errors.New("listing not found")

// ErrReservationNotFound is returned when a reservation id or number
// resolves to no row.
var ErrReservationNotFound = errors.New("reservation not found")

// ErrBusinessNotFound is returned when a referenced business does
// not exist.
var ErrBusinessNotFound = errors.New("business not found")

// ErrDuplicateNumber is returned when inserting a reservation whose
// generated number collided with a concurrent insert for the same
// business on the same day. Callers regenerate the sequence and
// retry inside the same transaction scope.
var ErrDuplicateNumber = errors.New("duplicate reservation number")
