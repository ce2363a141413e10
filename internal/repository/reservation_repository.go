package repository

import (
    "context"
    "database/sql"
    "strings"
    "time"

    "github.com/greenbite/surplus-market/internal/model"
)

// ReservationRepo provides CRUD operations for reservations and
// their items. One reservation groups the items of a single business
// within a customer checkout; a checkout spanning several businesses
// produces several reservations inside one transaction. All
// timestamp fields are stored in UTC.
type ReservationRepo struct {
    db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// DB exposes the underlying handle so handlers can begin transactions
// spanning several repositories.
func (r *ReservationRepo) DB() *sql.DB { return r.db }

// numberAttempts bounds the retry loop for reservation-number
// generation. Concurrent creates for the same business on the same
// day serialize on the prefix lock; the unique constraint is the
// backstop if they do not.
const numberAttempts = 3

// isDuplicateKey reports whether err is a MySQL duplicate-entry
// violation (error 1062).
func isDuplicateKey(err error) bool {
    return err != nil && strings.Contains(strings.ToLower(err.Error()), "1062")
}

// CreateTx inserts a new reservation within the scope of an existing
// transaction, generating its reservation number from the
// lexicographically last number issued to the business today. On a
// unique-constraint collision with a concurrent insert the sequence
// is recomputed and the insert retried, all inside the same
// transaction. The generated ID, number and timestamps are populated
// on the provided record. The caller must commit or roll back.
func (r *ReservationRepo) CreateTx(ctx context.Context, tx *sql.Tx, res *model.Reservation, businessCode string) error {
    now := time.Now().UTC()
    var lastErr error
    for attempt := 0; attempt < numberAttempts; attempt++ {
        prefix := reservationNumberPrefix(businessCode, now)
        var last sql.NullString
        err := tx.QueryRowContext(ctx,
            `SELECT MAX(reservation_number) FROM reservations WHERE reservation_number LIKE ?`,
            prefix+"%",
        ).Scan(&last)
        if err != nil {
            return err
        }
        seq, err := NextSequence(last.String)
        if err != nil {
            return err
        }
        number := FormatReservationNumber(businessCode, now, seq)
        const q = `INSERT INTO reservations
                   (reservation_number, customer_id, business_id, pickup_time, total_amount_cents, status)
                   VALUES (?, ?, ?, ?, ?, ?)`
        result, err := tx.ExecContext(ctx, q,
            number, res.CustomerID, res.BusinessID, res.PickupTime.UTC(), res.TotalAmountCents, res.Status)
        if isDuplicateKey(err) {
            lastErr = ErrDuplicateNumber
            continue
        }
        if err != nil {
            return err
        }
        id, err := result.LastInsertId()
        if err != nil {
            return err
        }
        res.ID = uint64(id)
        res.ReservationNumber = number
        const sel = `SELECT created_at, updated_at FROM reservations WHERE id = ?`
        return tx.QueryRowContext(ctx, sel, res.ID).Scan(&res.CreatedAt, &res.UpdatedAt)
    }
    return lastErr
}

// CreateItemsBulkTx inserts multiple reservation_items rows in a
// single statement. The caller must supply the reservation ID in
// each record. Passing an empty slice has no effect and returns nil.
func (r *ReservationRepo) CreateItemsBulkTx(ctx context.Context, tx *sql.Tx, items []model.ReservationItem) error {
    if len(items) == 0 {
        return nil
    }
    query := `INSERT INTO reservation_items (reservation_id, listing_id, branch_id, quantity, price_cents, status) VALUES `
    args := make([]interface{}, 0, len(items)*6)
    for i, it := range items {
        if i > 0 {
            query += ","
        }
        query += "(?, ?, ?, ?, ?, ?)"
        var branchID interface{}
        if it.BranchID != nil {
            branchID = *it.BranchID
        }
        args = append(args, it.ReservationID, it.ListingID, branchID, it.Quantity, it.PriceCents, it.Status)
    }
    _, err := tx.ExecContext(ctx, query, args...)
    return err
}

const reservationColumns = `id, reservation_number, customer_id, business_id, pickup_time,
       total_amount_cents, status, confirmation_code, pickup_confirmed_at, cancellation_reason,
       created_at, updated_at`

func scanReservation(row interface{ Scan(...interface{}) error }) (model.Reservation, error) {
    var res model.Reservation
    var code, reason sql.NullString
    var confirmedAt sql.NullTime
    err := row.Scan(
        &res.ID, &res.ReservationNumber, &res.CustomerID, &res.BusinessID, &res.PickupTime,
        &res.TotalAmountCents, &res.Status, &code, &confirmedAt, &reason,
        &res.CreatedAt, &res.UpdatedAt,
    )
    if err != nil {
        return model.Reservation{}, err
    }
    if code.Valid {
        c := code.String
        res.ConfirmationCode = &c
    }
    if confirmedAt.Valid {
        t := confirmedAt.Time
        res.PickupConfirmedAt = &t
    }
    if reason.Valid {
        s := reason.String
        res.CancellationReason = &s
    }
    return res, nil
}

// GetByID returns a single reservation. ErrReservationNotFound is
// returned when no row exists.
func (r *ReservationRepo) GetByID(ctx context.Context, id uint64) (model.Reservation, error) {
    const q = `SELECT ` + reservationColumns + ` FROM reservations WHERE id = ?`
    res, err := scanReservation(r.db.QueryRowContext(ctx, q, id))
    if err == sql.ErrNoRows {
        return model.Reservation{}, ErrReservationNotFound
    }
    return res, err
}

// GetByIDForUpdateTx loads a reservation inside the given transaction
// with its row locked until commit, serializing concurrent payment,
// verification and cancellation attempts against the same
// reservation.
func (r *ReservationRepo) GetByIDForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Reservation, error) {
    const q = `SELECT ` + reservationColumns + ` FROM reservations WHERE id = ? FOR UPDATE`
    res, err := scanReservation(tx.QueryRowContext(ctx, q, id))
    if err == sql.ErrNoRows {
        return model.Reservation{}, ErrReservationNotFound
    }
    return res, err
}

const itemColumns = `id, reservation_id, listing_id, branch_id, quantity, price_cents, status, created_at, updated_at`

func scanItem(row interface{ Scan(...interface{}) error }) (model.ReservationItem, error) {
    var it model.ReservationItem
    var branchID sql.NullInt64
    err := row.Scan(&it.ID, &it.ReservationID, &it.ListingID, &branchID,
        &it.Quantity, &it.PriceCents, &it.Status, &it.CreatedAt, &it.UpdatedAt)
    if err != nil {
        return model.ReservationItem{}, err
    }
    if branchID.Valid {
        bid := uint64(branchID.Int64)
        it.BranchID = &bid
    }
    return it, nil
}

// ItemsTx returns all items of a reservation inside the given
// transaction, ordered by id for deterministic output.
func (r *ReservationRepo) ItemsTx(ctx context.Context, tx *sql.Tx, reservationID uint64) ([]model.ReservationItem, error) {
    const q = `SELECT ` + itemColumns + ` FROM reservation_items WHERE reservation_id = ? ORDER BY id`
    rows, err := tx.QueryContext(ctx, q, reservationID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var items []model.ReservationItem
    for rows.Next() {
        it, err := scanItem(rows)
        if err != nil {
            return nil, err
        }
        items = append(items, it)
    }
    return items, rows.Err()
}

// Items returns all items of a reservation outside a transaction.
func (r *ReservationRepo) Items(ctx context.Context, reservationID uint64) ([]model.ReservationItem, error) {
    const q = `SELECT ` + itemColumns + ` FROM reservation_items WHERE reservation_id = ? ORDER BY id`
    rows, err := r.db.QueryContext(ctx, q, reservationID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var items []model.ReservationItem
    for rows.Next() {
        it, err := scanItem(rows)
        if err != nil {
            return nil, err
        }
        items = append(items, it)
    }
    return items, rows.Err()
}

// UpdateStatusTx sets the reservation-level status.
func (r *ReservationRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status string) error {
    _, err := tx.ExecContext(ctx, `UPDATE reservations SET status = ? WHERE id = ?`, status, id)
    return err
}

// SetConfirmationCodeTx stores a freshly issued confirmation code.
func (r *ReservationRepo) SetConfirmationCodeTx(ctx context.Context, tx *sql.Tx, id uint64, code string) error {
    _, err := tx.ExecContext(ctx, `UPDATE reservations SET confirmation_code = ? WHERE id = ?`, code, id)
    return err
}

// MarkCompletedTx transitions a reservation into the terminal
// COMPLETED state and stamps pickup_confirmed_at. The guard on the
// current status makes the stamp first-transition-only: re-verifying
// an already completed reservation never moves the timestamp.
func (r *ReservationRepo) MarkCompletedTx(ctx context.Context, tx *sql.Tx, id uint64, at time.Time) error {
    _, err := tx.ExecContext(ctx,
        `UPDATE reservations SET status = ?, pickup_confirmed_at = ? WHERE id = ? AND status <> ?`,
        model.ReservationCompleted, at.UTC(), id, model.ReservationCompleted)
    return err
}

// MarkCancelledTx transitions a reservation into the terminal
// CANCELLED state and records the cancellation reason.
func (r *ReservationRepo) MarkCancelledTx(ctx context.Context, tx *sql.Tx, id uint64, reason string) error {
    _, err := tx.ExecContext(ctx,
        `UPDATE reservations SET status = ?, cancellation_reason = ? WHERE id = ?`,
        model.ReservationCancelled, reason, id)
    return err
}

// UpdateItemStatusTx sets the status of a single reservation item.
func (r *ReservationRepo) UpdateItemStatusTx(ctx context.Context, tx *sql.Tx, itemID uint64, status string) error {
    _, err := tx.ExecContext(ctx, `UPDATE reservation_items SET status = ? WHERE id = ?`, status, itemID)
    return err
}

// ReservationDetail encapsulates a reservation together with its
// business name and item lines joined against listing titles. It is
// returned by ListByCustomer and GetDetail for display to customers.
type ReservationDetail struct {
    ID                uint64       `json:"id"`
    ReservationNumber string       `json:"reservation_number"`
    BusinessID        uint64       `json:"business_id"`
    BusinessName      string       `json:"business_name"`
    PickupTime        time.Time    `json:"pickup_time"`
    TotalAmountCents  uint32       `json:"total_amount_cents"`
    Status            string       `json:"status"`
    PickupConfirmedAt *time.Time   `json:"pickup_confirmed_at,omitempty"`
    Items             []DetailItem `json:"items"`
}

// DetailItem is one line of a ReservationDetail.
type DetailItem struct {
    ID         uint64  `json:"id"`
    ListingID  uint64  `json:"listing_id"`
    Title      string  `json:"title"`
    BranchID   *uint64 `json:"branch_id,omitempty"`
    Quantity   uint32  `json:"quantity"`
    PriceCents uint32  `json:"price_cents"`
    Status     string  `json:"status"`
}

// ListByCustomer returns all reservations of a customer, newest
// first, with items joined against listing titles populated in a
// single follow-up query. When no reservations exist, an empty slice
// is returned.
func (r *ReservationRepo) ListByCustomer(ctx context.Context, customerID uint64) ([]ReservationDetail, error) {
    const q = `SELECT r.id, r.reservation_number, r.business_id, b.name, r.pickup_time,
                      r.total_amount_cents, r.status, r.pickup_confirmed_at
               FROM reservations r
               JOIN businesses b ON b.id = r.business_id
               WHERE r.customer_id = ?
               ORDER BY r.created_at DESC`
    rows, err := r.db.QueryContext(ctx, q, customerID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    details := make([]ReservationDetail, 0)
    index := make(map[uint64]int)
    for rows.Next() {
        var d ReservationDetail
        var confirmedAt sql.NullTime
        if err := rows.Scan(&d.ID, &d.ReservationNumber, &d.BusinessID, &d.BusinessName,
            &d.PickupTime, &d.TotalAmountCents, &d.Status, &confirmedAt); err != nil {
            return nil, err
        }
        if confirmedAt.Valid {
            t := confirmedAt.Time
            d.PickupConfirmedAt = &t
        }
        d.Items = []DetailItem{}
        index[d.ID] = len(details)
        details = append(details, d)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    if len(details) == 0 {
        return details, nil
    }
    ids := make([]interface{}, 0, len(details))
    placeholders := make([]string, 0, len(details))
    for _, d := range details {
        ids = append(ids, d.ID)
        placeholders = append(placeholders, "?")
    }
    itemQ := `SELECT i.reservation_id, i.id, i.listing_id, l.title, i.branch_id, i.quantity, i.price_cents, i.status
              FROM reservation_items i
              JOIN food_listings l ON l.id = i.listing_id
              WHERE i.reservation_id IN (` + strings.Join(placeholders, ",") + `)
              ORDER BY i.reservation_id, i.id`
    irows, err := r.db.QueryContext(ctx, itemQ, ids...)
    if err != nil {
        return nil, err
    }
    defer irows.Close()
    for irows.Next() {
        var rid uint64
        var it DetailItem
        var branchID sql.NullInt64
        if err := irows.Scan(&rid, &it.ID, &it.ListingID, &it.Title, &branchID,
            &it.Quantity, &it.PriceCents, &it.Status); err != nil {
            return nil, err
        }
        if branchID.Valid {
            bid := uint64(branchID.Int64)
            it.BranchID = &bid
        }
        idx, ok := index[rid]
        if !ok {
            continue
        }
        details[idx].Items = append(details[idx].Items, it)
    }
    return details, irows.Err()
}

// GetDetail returns a single reservation detail for the given
// customer. ErrReservationNotFound covers both a missing row and a
// reservation belonging to another customer.
func (r *ReservationRepo) GetDetail(ctx context.Context, reservationID, customerID uint64) (*ReservationDetail, error) {
    const q = `SELECT r.id, r.reservation_number, r.business_id, b.name, r.pickup_time,
                      r.total_amount_cents, r.status, r.pickup_confirmed_at
               FROM reservations r
               JOIN businesses b ON b.id = r.business_id
               WHERE r.id = ? AND r.customer_id = ?`
    var d ReservationDetail
    var confirmedAt sql.NullTime
    err := r.db.QueryRowContext(ctx, q, reservationID, customerID).Scan(
        &d.ID, &d.ReservationNumber, &d.BusinessID, &d.BusinessName,
        &d.PickupTime, &d.TotalAmountCents, &d.Status, &confirmedAt)
    if err == sql.ErrNoRows {
        return nil, ErrReservationNotFound
    }
    if err != nil {
        return nil, err
    }
    if confirmedAt.Valid {
        t := confirmedAt.Time
        d.PickupConfirmedAt = &t
    }
    d.Items = []DetailItem{}
    const itemQ = `SELECT i.id, i.listing_id, l.title, i.branch_id, i.quantity, i.price_cents, i.status
                   FROM reservation_items i
                   JOIN food_listings l ON l.id = i.listing_id
                   WHERE i.reservation_id = ?
                   ORDER BY i.id`
    rows, err := r.db.QueryContext(ctx, itemQ, d.ID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    for rows.Next() {
        var it DetailItem
        var branchID sql.NullInt64
        if err := rows.Scan(&it.ID, &it.ListingID, &it.Title, &branchID,
            &it.Quantity, &it.PriceCents, &it.Status); err != nil {
            return nil, err
        }
        if branchID.Valid {
            bid := uint64(branchID.Int64)
            it.BranchID = &bid
        }
        d.Items = append(d.Items, it)
    }
    return &d, rows.Err()
}

// ListByBusiness returns the reservations held against a business,
// newest first, for staff dashboards. A branch manager passes their
// branch id to see only reservations containing at least one item of
// that branch.
func (r *ReservationRepo) ListByBusiness(ctx context.Context, businessID uint64, branchID *uint64) ([]model.Reservation, error) {
    q := `SELECT DISTINCT ` + prefixColumns("r", reservationColumns) + `
          FROM reservations r`
    args := []interface{}{}
    if branchID != nil {
        q += ` JOIN reservation_items i ON i.reservation_id = r.id AND i.branch_id = ?`
        args = append(args, *branchID)
    }
    q += ` WHERE r.business_id = ? ORDER BY r.created_at DESC`
    args = append(args, businessID)
    rows, err := r.db.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]model.Reservation, 0)
    for rows.Next() {
        res, err := scanReservation(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, res)
    }
    return out, rows.Err()
}

// prefixColumns rewrites a comma-separated column list to be
// qualified with the given table alias.
func prefixColumns(alias, columns string) string {
    parts := strings.Split(columns, ",")
    for i, p := range parts {
        parts[i] = alias + "." + strings.TrimSpace(p)
    }
    return strings.Join(parts, ", ")
}
