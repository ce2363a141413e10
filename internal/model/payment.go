package model

import "time"

// Payment transaction status values.  Records are append-only; a
// failed attempt stays in the table next to any later successful one.
const (
    PaymentCompleted = "COMPLETED"
    PaymentFailed    = "FAILED"
)

// PaymentTransaction is an append-only record of one payment attempt
// against a reservation.  The state machine, not the table, enforces
// that at most one COMPLETED transaction exists per reservation.
//
// Fields:
//  ID            – primary key identifier.
//  ReservationID – reservation being paid for.
//  AmountCents   – charged amount in cents.
//  Currency      – ISO currency code (e.g. "USD").
//  Method        – payment method name as given by the client.
//  Status        – COMPLETED or FAILED.
//  TransactionRef – reference returned by the payment authority.
//  CreatedAt     – when the attempt was recorded.
type PaymentTransaction struct {
    ID             uint64    // payment_transactions.id
    ReservationID  uint64    // payment_transactions.reservation_id
    AmountCents    uint32    // payment_transactions.amount_cents
    Currency       string    // payment_transactions.currency
    Method         string    // payment_transactions.method
    Status         string    // payment_transactions.status
    TransactionRef string    // payment_transactions.transaction_ref
    CreatedAt      time.Time // payment_transactions.created_at
}
