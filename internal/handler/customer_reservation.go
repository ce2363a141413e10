package handler

import (
    "context"  // best-effort lookups after commit
    "net/http" // HTTP status codes
    "strconv"  // parsing path parameters
    "strings"  // code normalization
    "time"     // working with timestamps

    "github.com/labstack/echo/v4"

    "github.com/greenbite/surplus-market/internal/booking"
    "github.com/greenbite/surplus-market/internal/confirm"
    "github.com/greenbite/surplus-market/internal/model"
    "github.com/greenbite/surplus-market/internal/notify"
    "github.com/greenbite/surplus-market/internal/payment"
    "github.com/greenbite/surplus-market/internal/queue"
    "github.com/greenbite/surplus-market/internal/repository"
)

// CustomerHandler groups the collaborators needed to run the
// reservation lifecycle on behalf of customers: creation, payment,
// cancellation and read access with the QR document. All methods
// assume JWT authentication and role validation has already been
// performed by middleware. Every state transition runs inside a
// single transaction owned by the handler so a partial failure rolls
// the whole unit back; notifications are dispatched only after a
// successful commit.
type CustomerHandler struct {
    Listings     *repository.ListingRepo     // inventory ledger
    Reservations *repository.ReservationRepo // reservations and their items
    Payments     *repository.PaymentRepo     // append-only payment attempts
    Businesses   *repository.BusinessRepo    // business codes and branch contacts
    Authority    payment.Authority           // external charge authority
    Notifier     notify.Dispatcher           // lifecycle event dispatch
}

// NewCustomerHandler constructs a new CustomerHandler with the
// provided collaborators. All dependencies must be non-nil.
func NewCustomerHandler(listings *repository.ListingRepo, reservations *repository.ReservationRepo, payments *repository.PaymentRepo, businesses *repository.BusinessRepo, authority payment.Authority, notifier notify.Dispatcher) *CustomerHandler {
    if listings == nil || reservations == nil || payments == nil || businesses == nil || authority == nil || notifier == nil {
        panic("nil dependency passed to NewCustomerHandler")
    }
    return &CustomerHandler{
        Listings:     listings,
        Reservations: reservations,
        Payments:     payments,
        Businesses:   businesses,
        Authority:    authority,
        Notifier:     notifier,
    }
}

// reservationEvent assembles the broker payload for one reservation.
func reservationEvent(kind string, res model.Reservation, businessName, reason string, items []queue.EventItem) queue.ReservationEvent {
    return queue.ReservationEvent{
        Kind:              kind,
        ReservationID:     res.ID,
        ReservationNumber: res.ReservationNumber,
        CustomerID:        res.CustomerID,
        BusinessID:        res.BusinessID,
        BusinessName:      businessName,
        PickupTime:        res.PickupTime.UTC().Format(time.RFC3339),
        TotalAmountCents:  res.TotalAmountCents,
        Status:            res.Status,
        Items:             items,
        Reason:            reason,
        OccurredAt:        time.Now().UTC().Format(time.RFC3339),
    }
}

// cancelledEventItems summarizes just-cancelled reservation items for
// the broker event, joining listing titles the caller resolved. The
// items still carry their pre-cancellation status in memory, so the
// event status is set explicitly.
func cancelledEventItems(items []model.ReservationItem, titles map[uint64]string) []queue.EventItem {
    out := make([]queue.EventItem, 0, len(items))
    for _, it := range items {
        out = append(out, queue.EventItem{
            ListingID: it.ListingID,
            Title:     titles[it.ListingID],
            Quantity:  it.Quantity,
            Status:    model.ItemCancelled,
        })
    }
    return out
}

// listingTitles resolves the listing titles referenced by the items,
// best-effort: a lookup failure leaves that event line untitled
// rather than suppressing the notification.
func listingTitles(ctx context.Context, repo *repository.ListingRepo, items []model.ReservationItem) map[uint64]string {
    titles := make(map[uint64]string, len(items))
    for _, it := range items {
        if _, ok := titles[it.ListingID]; ok {
            continue
        }
        if l, err := repo.GetByID(ctx, it.ListingID); err == nil {
            titles[l.ID] = l.Title
        }
    }
    return titles
}

// CreateReservation handles POST /v1/reservations. The body carries
// the agreed pickup time and the requested listing quantities:
//
//	{"pickup_time": "...", "items": [{"listing_id": 1, "quantity": 2}],
//	 "allow_multiple_businesses": true}
//
// Lines spanning several businesses produce one reservation per
// business, all created atomically: the listing rows are locked up
// front, every rule is validated against the locked quantities, and
// any failure rolls back every decrement and insert of the request.
func (h *CustomerHandler) CreateReservation(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var body struct {
        PickupTime              time.Time `json:"pickup_time"`
        AllowMultipleBusinesses bool      `json:"allow_multiple_businesses"`
        Items                   []struct {
            ListingID uint64 `json:"listing_id"`
            Quantity  uint32 `json:"quantity"`
        } `json:"items"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if len(body.Items) == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "items is required"})
    }
    if body.PickupTime.IsZero() {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "pickup_time is required"})
    }
    pickupTime := body.PickupTime.UTC()

    // Merge duplicate listing ids so one row lock covers the combined
    // quantity.
    ids := make([]uint64, 0, len(body.Items))
    wanted := make(map[uint64]uint32, len(body.Items))
    for _, it := range body.Items {
        if it.ListingID == 0 || it.Quantity == 0 {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "listing_id and quantity must be positive"})
        }
        if _, ok := wanted[it.ListingID]; !ok {
            ids = append(ids, it.ListingID)
        }
        wanted[it.ListingID] += it.Quantity
    }

    ctx := c.Request().Context()
    tx, err := h.Listings.DB().BeginTx(ctx, nil)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    listings, err := h.Listings.GetByIDsForUpdateTx(ctx, tx, ids)
    if err != nil {
        return errorResponse(c, err)
    }
    lines := make([]booking.Line, 0, len(listings))
    for _, l := range listings {
        lines = append(lines, booking.Line{Listing: l, Quantity: wanted[l.ID]})
    }
    if err := booking.ValidateForReservation(lines, pickupTime, body.AllowMultipleBusinesses); err != nil {
        return errorResponse(c, err)
    }

    groups := booking.GroupByBusiness(lines)
    businessIDs := make([]uint64, 0, len(groups))
    for _, g := range groups {
        businessIDs = append(businessIDs, g.BusinessID)
    }
    businesses, err := h.Businesses.GetByIDs(ctx, businessIDs)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load businesses"})
    }

    type createdPart struct {
        ID                uint64 `json:"id"`
        ReservationNumber string `json:"reservation_number"`
        BusinessID        uint64 `json:"business_id"`
        TotalAmountCents  uint32 `json:"total_amount_cents"`
        Status            string `json:"status"`
    }
    created := make([]createdPart, 0, len(groups))
    events := make([]queue.ReservationEvent, 0, len(groups))
    for _, g := range groups {
        biz, ok := businesses[g.BusinessID]
        if !ok {
            return errorResponse(c, repository.ErrBusinessNotFound)
        }
        res := model.Reservation{
            CustomerID: userID,
            BusinessID: g.BusinessID,
            PickupTime: pickupTime,
            // Narrowing is safe: ValidateForReservation bounds the
            // whole batch, so every per-business subtotal fits.
            TotalAmountCents: uint32(booking.TotalCents(g.Lines)),
            Status:           model.ReservationPending,
        }
        if err := h.Reservations.CreateTx(ctx, tx, &res, biz.Code); err != nil {
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create reservation"})
        }
        items := make([]model.ReservationItem, 0, len(g.Lines))
        eventItems := make([]queue.EventItem, 0, len(g.Lines))
        for _, ln := range g.Lines {
            items = append(items, model.ReservationItem{
                ReservationID: res.ID,
                ListingID:     ln.Listing.ID,
                BranchID:      ln.Listing.BranchID,
                Quantity:      ln.Quantity,
                PriceCents:    ln.Listing.PriceCents,
                Status:        model.ItemPending,
            })
            eventItems = append(eventItems, queue.EventItem{
                ListingID: ln.Listing.ID,
                Title:     ln.Listing.Title,
                Quantity:  ln.Quantity,
                Status:    model.ItemPending,
            })
        }
        if err := h.Reservations.CreateItemsBulkTx(ctx, tx, items); err != nil {
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create reservation items"})
        }
        for _, ln := range g.Lines {
            if err := h.Listings.ReserveTx(ctx, tx, ln.Listing.ID, ln.Quantity); err != nil {
                return errorResponse(c, err)
            }
        }
        created = append(created, createdPart{
            ID:                res.ID,
            ReservationNumber: res.ReservationNumber,
            BusinessID:        res.BusinessID,
            TotalAmountCents:  res.TotalAmountCents,
            Status:            res.Status,
        })
        events = append(events, reservationEvent(notify.KindReservationCreated, res, biz.Name, "", eventItems))
    }

    if err := tx.Commit(); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
    }
    committed = true
    for _, ev := range events {
        _ = h.Notifier.Notify(ctx, ev)
    }
    return c.JSON(http.StatusCreated, echo.Map{"reservations": created})
}

// PayReservation handles POST /v1/reservations/:id/pay. The amount
// must equal the sum of the snapshotted item prices; a successful
// charge moves the reservation to CONFIRMED and issues its
// confirmation code. The reservation row is locked for the duration,
// so two concurrent attempts serialize and the loser sees
// already_paid.
func (h *CustomerHandler) PayReservation(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    resID, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || resID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
    }
    var body struct {
        AmountCents uint32 `json:"amount_cents"`
        Currency    string `json:"currency"`
        Method      string `json:"method"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if body.Currency == "" {
        body.Currency = "USD"
    }
    if body.Method == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "method is required"})
    }

    ctx := c.Request().Context()
    tx, err := h.Reservations.DB().BeginTx(ctx, nil)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    res, err := h.Reservations.GetByIDForUpdateTx(ctx, tx, resID)
    if err != nil {
        return errorResponse(c, err)
    }
    if res.CustomerID != userID {
        return errorResponse(c, repository.ErrReservationNotFound)
    }
    switch res.Status {
    case model.ReservationPending:
        // payable
    case model.ReservationConfirmed:
        return errorResponse(c, booking.ErrAlreadyPaid)
    default:
        return c.JSON(http.StatusConflict, echo.Map{"error": "invalid_status"})
    }
    if paid, err := h.Payments.HasCompletedTx(ctx, tx, res.ID); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to check payments"})
    } else if paid {
        return errorResponse(c, booking.ErrAlreadyPaid)
    }
    items, err := h.Reservations.ItemsTx(ctx, tx, res.ID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load items"})
    }
    total := booking.ItemTotalCents(items)
    if uint64(body.AmountCents) != total {
        return errorResponse(c, booking.ErrAmountMismatch)
    }

    // Equality with the 32-bit request amount guarantees total fits.
    result, err := h.Authority.Charge(ctx, uint32(total), body.Currency, body.Method)
    if err != nil {
        return c.JSON(http.StatusBadGateway, echo.Map{"error": "payment_authority_unreachable"})
    }
    txn := model.PaymentTransaction{
        ReservationID:  res.ID,
        AmountCents:    uint32(total),
        Currency:       body.Currency,
        Method:         body.Method,
        Status:         result.Status,
        TransactionRef: result.TransactionRef,
    }
    if err := h.Payments.CreateTx(ctx, tx, &txn); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to record payment"})
    }
    if result.Status != payment.StatusCompleted {
        // Keep the failed attempt on record; the reservation stays
        // PENDING and may be retried.
        if err := tx.Commit(); err != nil {
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
        }
        committed = true
        return c.JSON(http.StatusPaymentRequired, echo.Map{"error": "payment_failed", "transaction_ref": txn.TransactionRef})
    }

    now := time.Now().UTC()
    code, err := confirm.NewCode(res.ID, now)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to issue confirmation code"})
    }
    if err := h.Reservations.UpdateStatusTx(ctx, tx, res.ID, model.ReservationConfirmed); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update reservation"})
    }
    if err := h.Reservations.SetConfirmationCodeTx(ctx, tx, res.ID, code); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to store confirmation code"})
    }
    if err := tx.Commit(); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
    }
    committed = true

    res.Status = model.ReservationConfirmed
    businessName := ""
    if biz, err := h.Businesses.GetByID(ctx, res.BusinessID); err == nil {
        businessName = biz.Name
    }
    _ = h.Notifier.Notify(ctx, reservationEvent(notify.KindPaymentConfirmed, res, businessName, "", nil))

    return c.JSON(http.StatusOK, echo.Map{
        "reservation_id":    res.ID,
        "status":            res.Status,
        "confirmation_code": code,
        "transaction_ref":   txn.TransactionRef,
    })
}

// ListReservations handles GET /v1/my-reservations. It returns all
// reservations of the current customer, newest first, with item lines
// joined against listing titles. An empty array is returned when none
// exist.
func (h *CustomerHandler) ListReservations(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    details, err := h.Reservations.ListByCustomer(c.Request().Context(), userID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load reservations"})
    }
    return c.JSON(http.StatusOK, echo.Map{"items": details})
}

// GetReservation handles GET /v1/reservations/:id. For a CONFIRMED
// reservation the response additionally carries the QR payload
// document: reservation number, confirmation code, pickup time and
// the reserved items grouped by business/branch with contact
// information, usable offline by the customer.
func (h *CustomerHandler) GetReservation(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    resID, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || resID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
    }
    ctx := c.Request().Context()
    res, err := h.Reservations.GetByID(ctx, resID)
    if err != nil {
        return errorResponse(c, err)
    }
    if res.CustomerID != userID {
        return errorResponse(c, repository.ErrReservationNotFound)
    }
    detail, err := h.Reservations.GetDetail(ctx, resID, userID)
    if err != nil {
        return errorResponse(c, err)
    }
    resp := echo.Map{"item": detail}
    if res.Status == model.ReservationConfirmed && res.ConfirmationCode != nil {
        qr, err := h.buildQRPayload(c, res, detail)
        if err != nil {
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to assemble qr payload"})
        }
        resp["qr"] = qr
    }
    return c.JSON(http.StatusOK, resp)
}

// buildQRPayload joins the reservation detail against business and
// branch records and groups the items per branch.
func (h *CustomerHandler) buildQRPayload(c echo.Context, res model.Reservation, detail *repository.ReservationDetail) (confirm.QRPayload, error) {
    ctx := c.Request().Context()
    branches, err := h.Businesses.BranchesByBusiness(ctx, res.BusinessID)
    if err != nil {
        return confirm.QRPayload{}, err
    }
    groups := make([]confirm.QRGroup, 0, 1)
    index := make(map[uint64]int)
    noBranch := -1
    for _, it := range detail.Items {
        qrItem := confirm.QRItem{Title: it.Title, Quantity: it.Quantity, Status: it.Status}
        if it.BranchID == nil {
            if noBranch == -1 {
                noBranch = len(groups)
                groups = append(groups, confirm.QRGroup{BusinessName: detail.BusinessName})
            }
            groups[noBranch].Items = append(groups[noBranch].Items, qrItem)
            continue
        }
        i, ok := index[*it.BranchID]
        if !ok {
            i = len(groups)
            index[*it.BranchID] = i
            g := confirm.QRGroup{BusinessName: detail.BusinessName}
            if br, ok := branches[*it.BranchID]; ok {
                g.BranchName = br.Name
                g.BranchCode = br.Code
                if br.ManagerPhone != nil {
                    g.ManagerPhone = *br.ManagerPhone
                }
            }
            groups = append(groups, g)
        }
        groups[i].Items = append(groups[i].Items, qrItem)
    }
    return confirm.NewQRPayload(res.ReservationNumber, *res.ConfirmationCode,
        res.PickupTime, res.Status, groups, time.Now().UTC()), nil
}

// RefreshCode handles POST /v1/reservations/:id/code. It re-issues
// the confirmation code of a CONFIRMED reservation whose verification
// window has not yet elapsed, invalidating the previous code.
func (h *CustomerHandler) RefreshCode(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    resID, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || resID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
    }
    ctx := c.Request().Context()
    tx, err := h.Reservations.DB().BeginTx(ctx, nil)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()
    res, err := h.Reservations.GetByIDForUpdateTx(ctx, tx, resID)
    if err != nil {
        return errorResponse(c, err)
    }
    if res.CustomerID != userID {
        return errorResponse(c, repository.ErrReservationNotFound)
    }
    switch res.Status {
    case model.ReservationConfirmed:
        // eligible
    case model.ReservationPending:
        return errorResponse(c, booking.ErrPaymentRequired)
    default:
        return c.JSON(http.StatusConflict, echo.Map{"error": "invalid_status"})
    }
    now := time.Now().UTC()
    if confirm.Expired(res.PickupTime, now) {
        return errorResponse(c, booking.ErrVerificationExpired)
    }
    code, err := confirm.NewCode(res.ID, now)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to issue confirmation code"})
    }
    if err := h.Reservations.SetConfirmationCodeTx(ctx, tx, res.ID, code); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to store confirmation code"})
    }
    if err := tx.Commit(); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
    }
    committed = true
    return c.JSON(http.StatusOK, echo.Map{"confirmation_code": code})
}

// CancelReservation handles DELETE /v1/reservations/:id. A customer
// may cancel only while the reservation is PENDING and unpaid; every
// pending item is cancelled and its quantity returned to the listing
// in the same transaction. Returns 204 on success.
func (h *CustomerHandler) CancelReservation(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    resID, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || resID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
    }
    var body struct {
        Reason string `json:"reason"`
    }
    _ = c.Bind(&body)
    reason := strings.TrimSpace(body.Reason)
    if reason == "" {
        reason = "cancelled by customer"
    }

    ctx := c.Request().Context()
    tx, err := h.Reservations.DB().BeginTx(ctx, nil)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()
    res, err := h.Reservations.GetByIDForUpdateTx(ctx, tx, resID)
    if err != nil {
        return errorResponse(c, err)
    }
    if res.CustomerID != userID {
        return errorResponse(c, repository.ErrReservationNotFound)
    }
    switch res.Status {
    case model.ReservationPending:
        // cancellable by the customer
    case model.ReservationConfirmed:
        return errorResponse(c, booking.ErrCancellationWindowClosed)
    default:
        return c.JSON(http.StatusConflict, echo.Map{"error": "invalid_status"})
    }
    if paid, err := h.Payments.HasCompletedTx(ctx, tx, res.ID); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to check payments"})
    } else if paid {
        return errorResponse(c, booking.ErrCancellationWindowClosed)
    }
    items, err := h.Reservations.ItemsTx(ctx, tx, res.ID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load items"})
    }
    cancelled := make([]model.ReservationItem, 0, len(items))
    for _, it := range items {
        if it.Status != model.ItemPending {
            continue
        }
        if err := h.Reservations.UpdateItemStatusTx(ctx, tx, it.ID, model.ItemCancelled); err != nil {
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to cancel item"})
        }
        if err := h.Listings.ReleaseTx(ctx, tx, it.ListingID, it.Quantity); err != nil {
            return errorResponse(c, err)
        }
        cancelled = append(cancelled, it)
    }
    if err := h.Reservations.MarkCancelledTx(ctx, tx, res.ID, reason); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to cancel reservation"})
    }
    if err := tx.Commit(); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
    }
    committed = true

    res.Status = model.ReservationCancelled
    businessName := ""
    if biz, err := h.Businesses.GetByID(ctx, res.BusinessID); err == nil {
        businessName = biz.Name
    }
    eventItems := cancelledEventItems(cancelled, listingTitles(ctx, h.Listings, cancelled))
    _ = h.Notifier.Notify(ctx, reservationEvent(notify.KindStatusChanged, res, businessName, reason, eventItems))
    return c.NoContent(http.StatusNoContent)
}
