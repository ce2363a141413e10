package repository

import (
    "context"
    "database/sql"
    "strings"
    "time"

    "github.com/greenbite/surplus-market/internal/booking"
    "github.com/greenbite/surplus-market/internal/model"
    "github.com/greenbite/surplus-market/internal/pickup"
)

// ListingRepo provides data access to the food_listings table and
// implements the inventory ledger. Quantity is a shared mutable
// resource: every decrement and increment runs inside a caller-owned
// transaction together with the reservation rows that depend on it,
// so a partial failure rolls the whole unit back. All timestamps are
// stored in UTC.
type ListingRepo struct {
    db *sql.DB
}

// NewListingRepo returns a new ListingRepo bound to the given database.
func NewListingRepo(db *sql.DB) *ListingRepo { return &ListingRepo{db: db} }

// DB exposes the underlying handle so handlers can begin transactions
// spanning several repositories.
func (r *ListingRepo) DB() *sql.DB { return r.db }

const listingColumns = `id, business_id, branch_id, title, price_cents, original_price_cents,
       quantity, pickup_start, pickup_end, status, pickup_status, created_at, updated_at`

func scanListing(row interface{ Scan(...interface{}) error }) (model.Listing, error) {
    var l model.Listing
    var branchID sql.NullInt64
    err := row.Scan(
        &l.ID, &l.BusinessID, &branchID, &l.Title, &l.PriceCents, &l.OriginalPriceCents,
        &l.Quantity, &l.PickupStart, &l.PickupEnd, &l.Status, &l.PickupStatus,
        &l.CreatedAt, &l.UpdatedAt,
    )
    if err != nil {
        return model.Listing{}, err
    }
    if branchID.Valid {
        bid := uint64(branchID.Int64)
        l.BranchID = &bid
    }
    return l, nil
}

// GetByID returns a single listing. ErrListingNotFound is returned
// when no row exists.
func (r *ListingRepo) GetByID(ctx context.Context, id uint64) (model.Listing, error) {
    const q = `SELECT ` + listingColumns + ` FROM food_listings WHERE id = ?`
    l, err := scanListing(r.db.QueryRowContext(ctx, q, id))
    if err == sql.ErrNoRows {
        return model.Listing{}, ErrListingNotFound
    }
    return l, err
}

// GetByIDsForUpdateTx loads the requested listings inside the given
// transaction with row locks held until commit. Locking the rows up
// front serializes competing reservation attempts on the same
// listings, so the availability check and the guarded decrement see
// the same quantity. The result preserves the order of ids; a
// missing id yields ErrListingNotFound.
func (r *ListingRepo) GetByIDsForUpdateTx(ctx context.Context, tx *sql.Tx, ids []uint64) ([]model.Listing, error) {
    if len(ids) == 0 {
        return nil, nil
    }
    placeholders := make([]string, 0, len(ids))
    args := make([]interface{}, 0, len(ids))
    for _, id := range ids {
        placeholders = append(placeholders, "?")
        args = append(args, id)
    }
    q := `SELECT ` + listingColumns + ` FROM food_listings WHERE id IN (` +
        strings.Join(placeholders, ",") + `) FOR UPDATE`
    rows, err := tx.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    byID := make(map[uint64]model.Listing, len(ids))
    for rows.Next() {
        l, err := scanListing(rows)
        if err != nil {
            return nil, err
        }
        byID[l.ID] = l
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    out := make([]model.Listing, 0, len(ids))
    for _, id := range ids {
        l, ok := byID[id]
        if !ok {
            return nil, ErrListingNotFound
        }
        out = append(out, l)
    }
    return out, nil
}

// ReserveTx atomically decrements a listing's quantity by qty. The
// guarded UPDATE only matches while the listing is AVAILABLE and has
// at least qty units left, so quantity can never go negative even
// under concurrent attempts. When the guard does not match, the
// listing is re-read once to distinguish a vanished row from an
// inventory race; the race surfaces as booking.ErrOutOfStock and the
// caller aborts the whole reservation transaction.
func (r *ListingRepo) ReserveTx(ctx context.Context, tx *sql.Tx, listingID uint64, qty uint32) error {
    const q = `UPDATE food_listings
               SET quantity = quantity - ?
               WHERE id = ? AND status = ? AND quantity >= ?`
    res, err := tx.ExecContext(ctx, q, qty, listingID, model.ListingAvailable, qty)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        var exists bool
        if err := tx.QueryRowContext(ctx,
            `SELECT EXISTS(SELECT 1 FROM food_listings WHERE id = ?)`, listingID,
        ).Scan(&exists); err != nil {
            return err
        }
        if !exists {
            return ErrListingNotFound
        }
        return booking.ErrOutOfStock
    }
    return nil
}

// ReleaseTx atomically increments a listing's quantity by qty when a
// reservation item is cancelled. A listing that reached SOLD through
// a fulfilled pickup is deliberately not reverted to AVAILABLE here;
// the business re-lists explicitly if it wants the returned units
// back on sale.
func (r *ListingRepo) ReleaseTx(ctx context.Context, tx *sql.Tx, listingID uint64, qty uint32) error {
    res, err := tx.ExecContext(ctx,
        `UPDATE food_listings SET quantity = quantity + ? WHERE id = ?`, qty, listingID)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        return ErrListingNotFound
    }
    return nil
}

// MarkSoldIfDepletedTx transitions an AVAILABLE listing to SOLD once
// its quantity has reached zero. Called after each completed pickup
// item; a no-op while units remain.
func (r *ListingRepo) MarkSoldIfDepletedTx(ctx context.Context, tx *sql.Tx, listingID uint64) error {
    _, err := tx.ExecContext(ctx,
        `UPDATE food_listings SET status = ? WHERE id = ? AND status = ? AND quantity = 0`,
        model.ListingSold, listingID, model.ListingAvailable)
    return err
}

// Create inserts a new listing for a business and populates the
// generated ID and timestamps on the provided record.
func (r *ListingRepo) Create(ctx context.Context, l *model.Listing) error {
    const q = `INSERT INTO food_listings
               (business_id, branch_id, title, price_cents, original_price_cents,
                quantity, pickup_start, pickup_end, status, pickup_status)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
    var branchID interface{}
    if l.BranchID != nil {
        branchID = *l.BranchID
    }
    res, err := r.db.ExecContext(ctx, q,
        l.BusinessID, branchID, l.Title, l.PriceCents, l.OriginalPriceCents,
        l.Quantity, l.PickupStart.UTC(), l.PickupEnd.UTC(), l.Status, l.PickupStatus)
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    l.ID = uint64(id)
    const sel = `SELECT created_at, updated_at FROM food_listings WHERE id = ?`
    return r.db.QueryRowContext(ctx, sel, l.ID).Scan(&l.CreatedAt, &l.UpdatedAt)
}

// UpdateQuantityForBusiness sets the remaining quantity of a listing
// owned by the given business. Used by sellers to correct stock
// outside of the reservation flow. ErrListingNotFound covers both a
// missing row and a listing owned by someone else.
func (r *ListingRepo) UpdateQuantityForBusiness(ctx context.Context, listingID, businessID uint64, qty uint32) error {
    res, err := r.db.ExecContext(ctx,
        `UPDATE food_listings SET quantity = ? WHERE id = ? AND business_id = ?`,
        qty, listingID, businessID)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        return ErrListingNotFound
    }
    return nil
}

// CloseForBusiness marks a listing UNAVAILABLE on behalf of its
// owning business, taking it off sale without touching quantity.
func (r *ListingRepo) CloseForBusiness(ctx context.Context, listingID, businessID uint64) error {
    res, err := r.db.ExecContext(ctx,
        `UPDATE food_listings SET status = ? WHERE id = ? AND business_id = ?`,
        model.ListingUnavailable, listingID, businessID)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        return ErrListingNotFound
    }
    return nil
}

// ListAvailable returns AVAILABLE listings, optionally filtered by
// business, newest first. The pickup_status column holds the value
// cached by the sweeper; read paths re-derive the display value from
// pickup_end so feed consumers never see a stale bucket.
func (r *ListingRepo) ListAvailable(ctx context.Context, businessID uint64, limit int) ([]model.Listing, error) {
    q := `SELECT ` + listingColumns + ` FROM food_listings WHERE status = ?`
    args := []interface{}{model.ListingAvailable}
    if businessID != 0 {
        q += ` AND business_id = ?`
        args = append(args, businessID)
    }
    q += ` ORDER BY created_at DESC LIMIT ?`
    args = append(args, limit)
    rows, err := r.db.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]model.Listing, 0)
    for rows.Next() {
        l, err := scanListing(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, l)
    }
    return out, rows.Err()
}

// SweepBatch returns up to limit AVAILABLE listings with id greater
// than afterID whose cached pickup_status is not yet expired, in id
// order. The sweeper pages through results with the last seen id so
// no long-lived cursor or large transaction is held.
func (r *ListingRepo) SweepBatch(ctx context.Context, afterID uint64, limit int) ([]model.Listing, error) {
    const q = `SELECT ` + listingColumns + ` FROM food_listings
               WHERE status = ? AND pickup_status <> ? AND id > ?
               ORDER BY id LIMIT ?`
    rows, err := r.db.QueryContext(ctx, q, model.ListingAvailable, pickup.StatusExpired, afterID, limit)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]model.Listing, 0, limit)
    for rows.Next() {
        l, err := scanListing(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, l)
    }
    return out, rows.Err()
}

// UpdatePickupStatus persists a recomputed pickup_status. When the
// new status is expired the listing is also taken off sale. Both
// writes are idempotent, so the sweeper may safely race with itself
// and with reservation creation: a listing going UNAVAILABLE
// mid-attempt simply fails that attempt's availability guard.
func (r *ListingRepo) UpdatePickupStatus(ctx context.Context, listingID uint64, status string, now time.Time) error {
    if status == pickup.StatusExpired {
        _, err := r.db.ExecContext(ctx,
            `UPDATE food_listings SET pickup_status = ?, status = ?, updated_at = ? WHERE id = ?`,
            status, model.ListingUnavailable, now.UTC(), listingID)
        return err
    }
    _, err := r.db.ExecContext(ctx,
        `UPDATE food_listings SET pickup_status = ?, updated_at = ? WHERE id = ?`,
        status, now.UTC(), listingID)
    return err
}
