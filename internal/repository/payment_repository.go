package repository

import (
    "context"
    "database/sql"

    "github.com/greenbite/surplus-market/internal/model"
)

// PaymentRepo provides access to the append-only
// payment_transactions table. Rows are never updated or deleted; a
// failed attempt stays in the table next to any later successful one.
// The single-completed-payment rule is enforced by the state machine
// reading HasCompletedTx under the reservation's row lock, not by the
// storage layer.
type PaymentRepo struct {
    db *sql.DB
}

// NewPaymentRepo returns a new PaymentRepo bound to the given database.
func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{db: db} }

// CreateTx appends a payment transaction record within the scope of
// an existing transaction and populates the generated ID and
// timestamp on the provided record.
func (r *PaymentRepo) CreateTx(ctx context.Context, tx *sql.Tx, p *model.PaymentTransaction) error {
    const q = `INSERT INTO payment_transactions
               (reservation_id, amount_cents, currency, method, status, transaction_ref)
               VALUES (?, ?, ?, ?, ?, ?)`
    res, err := tx.ExecContext(ctx, q,
        p.ReservationID, p.AmountCents, p.Currency, p.Method, p.Status, p.TransactionRef)
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    p.ID = uint64(id)
    const sel = `SELECT created_at FROM payment_transactions WHERE id = ?`
    return tx.QueryRowContext(ctx, sel, p.ID).Scan(&p.CreatedAt)
}

// HasCompletedTx reports whether the reservation already has a
// COMPLETED payment transaction, evaluated inside the given
// transaction so it cannot race with a concurrent payment attempt
// holding the same reservation lock.
func (r *PaymentRepo) HasCompletedTx(ctx context.Context, tx *sql.Tx, reservationID uint64) (bool, error) {
    var exists bool
    err := tx.QueryRowContext(ctx,
        `SELECT EXISTS(SELECT 1 FROM payment_transactions WHERE reservation_id = ? AND status = ?)`,
        reservationID, model.PaymentCompleted,
    ).Scan(&exists)
    return exists, err
}

// HasCompleted is the non-transactional variant of HasCompletedTx,
// used on read paths that only display payment state.
func (r *PaymentRepo) HasCompleted(ctx context.Context, reservationID uint64) (bool, error) {
    var exists bool
    err := r.db.QueryRowContext(ctx,
        `SELECT EXISTS(SELECT 1 FROM payment_transactions WHERE reservation_id = ? AND status = ?)`,
        reservationID, model.PaymentCompleted,
    ).Scan(&exists)
    return exists, err
}

// ListByReservation returns every payment attempt recorded against a
// reservation, oldest first.
func (r *PaymentRepo) ListByReservation(ctx context.Context, reservationID uint64) ([]model.PaymentTransaction, error) {
    const q = `SELECT id, reservation_id, amount_cents, currency, method, status, transaction_ref, created_at
               FROM payment_transactions WHERE reservation_id = ? ORDER BY id`
    rows, err := r.db.QueryContext(ctx, q, reservationID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]model.PaymentTransaction, 0)
    for rows.Next() {
        var p model.PaymentTransaction
        if err := rows.Scan(&p.ID, &p.ReservationID, &p.AmountCents, &p.Currency,
            &p.Method, &p.Status, &p.TransactionRef, &p.CreatedAt); err != nil {
            return nil, err
        }
        out = append(out, p)
    }
    return out, rows.Err()
}
