// Package payment abstracts the external payment authority. The
// state machine validates the amount against the reservation total
// before calling Charge and records the outcome as an append-only
// PaymentTransaction; gateway integration details stay behind the
// Authority interface.
package payment

import (
    "context"

    "github.com/google/uuid"
)

// Charge outcome statuses as reported by the authority.
const (
    StatusCompleted = "COMPLETED"
    StatusFailed    = "FAILED"
)

// Result is the authority's answer to a charge request.
type Result struct {
    TransactionRef string
    Status         string
}

// Authority is the collaborator interface the reservation state
// machine charges through. Implementations must be safe for
// concurrent use.
type Authority interface {
    Charge(ctx context.Context, amountCents uint32, currency, method string) (Result, error)
}

// LocalAuthority approves every charge and mints a random
// transaction reference. It stands in for a real gateway in
// development and tests; swapping in a production implementation is
// a wiring change in main.
type LocalAuthority struct{}

// NewLocalAuthority returns an Authority that approves all charges.
func NewLocalAuthority() *LocalAuthority { return &LocalAuthority{} }

// Charge implements Authority.
func (a *LocalAuthority) Charge(ctx context.Context, amountCents uint32, currency, method string) (Result, error) {
    return Result{
        TransactionRef: uuid.NewString(),
        Status:         StatusCompleted,
    }, nil
}
