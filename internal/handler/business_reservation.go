package handler

import (
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/greenbite/surplus-market/internal/booking"
    "github.com/greenbite/surplus-market/internal/confirm"
    "github.com/greenbite/surplus-market/internal/model"
    "github.com/greenbite/surplus-market/internal/notify"
    "github.com/greenbite/surplus-market/internal/repository"
)

// StaffHandler groups the pickup-side endpoints used by BUSINESS and
// BRANCH_MANAGER accounts: verifying pickups against the confirmation
// code, cancelling unfulfilled items and listing incoming
// reservations. The acting scope always comes from the JWT claims: a
// business account touches every item of its reservations, a branch
// manager only the items snapshotted to their branch.
type StaffHandler struct {
    Listings     *repository.ListingRepo
    Reservations *repository.ReservationRepo
    Businesses   *repository.BusinessRepo
    Notifier     notify.Dispatcher
}

// NewStaffHandler constructs a new StaffHandler with the provided
// collaborators. All dependencies must be non-nil.
func NewStaffHandler(listings *repository.ListingRepo, reservations *repository.ReservationRepo, businesses *repository.BusinessRepo, notifier notify.Dispatcher) *StaffHandler {
    if listings == nil || reservations == nil || businesses == nil || notifier == nil {
        panic("nil dependency passed to NewStaffHandler")
    }
    return &StaffHandler{
        Listings:     listings,
        Reservations: reservations,
        Businesses:   businesses,
        Notifier:     notifier,
    }
}

// VerifyPickup handles POST /v1/business/reservations/:id/verify. The
// confirmation code presented by the customer is checked against the
// stored one and the validity window; every pending item within the
// actor's scope is then marked COMPLETED and its listing flipped to
// SOLD once depleted. The reservation reaches COMPLETED, with
// pickup_confirmed_at stamped exactly once, when its last item
// completes.
func (h *StaffHandler) VerifyPickup(c echo.Context) error {
    businessID, branchID, err := getStaffScope(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    resID, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || resID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
    }
    var body struct {
        ConfirmationCode string `json:"confirmation_code"`
    }
    if err := c.Bind(&body); err != nil || strings.TrimSpace(body.ConfirmationCode) == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "confirmation_code required"})
    }
    code := strings.ToUpper(strings.TrimSpace(body.ConfirmationCode))

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
    if res.BusinessID != businessID {
        return errorResponse(c, repository.ErrForbidden)
    }
    switch res.Status {
    case model.ReservationConfirmed:
        // verifiable
    case model.ReservationPending:
        return errorResponse(c, booking.ErrPaymentRequired)
    default:
        return c.JSON(http.StatusConflict, echo.Map{"error": "invalid_status"})
    }
    if res.ConfirmationCode == nil || *res.ConfirmationCode != code {
        return errorResponse(c, booking.ErrCodeMismatch)
    }
    now := time.Now().UTC()
    if confirm.Expired(res.PickupTime, now) {
        return errorResponse(c, booking.ErrVerificationExpired)
    }

    items, err := h.Reservations.ItemsTx(ctx, tx, res.ID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load items"})
    }
    mine := booking.ItemsForActor(items, branchID, model.ItemPending)
    if len(mine) == 0 {
        // No items at all within the actor's scope means no standing
        // on this reservation; items that exist but are already
        // resolved are a state conflict instead.
        if len(booking.ItemsInScope(items, branchID)) == 0 {
            return errorResponse(c, repository.ErrForbidden)
        }
        return c.JSON(http.StatusConflict, echo.Map{"error": "no_pending_items"})
    }
    completed := make(map[uint64]bool, len(mine))
    for _, it := range mine {
        if err := h.Reservations.UpdateItemStatusTx(ctx, tx, it.ID, model.ItemCompleted); err != nil {
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to complete item"})
        }
        if err := h.Listings.MarkSoldIfDepletedTx(ctx, tx, it.ListingID); err != nil {
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update listing"})
        }
        completed[it.ID] = true
    }
    for i := range items {
        if completed[items[i].ID] {
            items[i].Status = model.ItemCompleted
        }
    }
    allDone := booking.AllItemsHaveStatus(items, model.ItemCompleted)
    if allDone {
        if err := h.Reservations.MarkCompletedTx(ctx, tx, res.ID, now); err != nil {
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to complete reservation"})
        }
        res.Status = model.ReservationCompleted
    }
    if err := tx.Commit(); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
    }
    committed = true

    if allDone {
        businessName := ""
        if biz, err := h.Businesses.GetByID(ctx, res.BusinessID); err == nil {
            businessName = biz.Name
        }
        _ = h.Notifier.Notify(ctx, reservationEvent(notify.KindPickupConfirmed, res, businessName, "", nil))
    }
    return c.JSON(http.StatusOK, echo.Map{
        "verified_items":     len(mine),
        "reservation_status": res.Status,
    })
}

// CancelItems handles POST /v1/business/reservations/:id/cancel. The
// staff side may cancel pending items at any point before pickup;
// each cancelled item returns its quantity to the listing. Once every
// item of the reservation is cancelled the reservation itself is
// marked CANCELLED with the given reason. Listings that already went
// SOLD are not re-opened by the returned stock.
func (h *StaffHandler) CancelItems(c echo.Context) error {
    businessID, branchID, err := getStaffScope(c)
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
        reason = "cancelled by business"
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
    if res.BusinessID != businessID {
        return errorResponse(c, repository.ErrForbidden)
    }
    if res.Status == model.ReservationCompleted || res.Status == model.ReservationCancelled {
        return c.JSON(http.StatusConflict, echo.Map{"error": "invalid_status"})
    }
    items, err := h.Reservations.ItemsTx(ctx, tx, res.ID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load items"})
    }
    mine := booking.ItemsForActor(items, branchID, model.ItemPending)
    if len(mine) == 0 {
        if len(booking.ItemsInScope(items, branchID)) == 0 {
            return errorResponse(c, repository.ErrForbidden)
        }
        return c.JSON(http.StatusConflict, echo.Map{"error": "no_pending_items"})
    }
    cancelled := make(map[uint64]bool, len(mine))
    for _, it := range mine {
        if err := h.Reservations.UpdateItemStatusTx(ctx, tx, it.ID, model.ItemCancelled); err != nil {
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to cancel item"})
        }
        if err := h.Listings.ReleaseTx(ctx, tx, it.ListingID, it.Quantity); err != nil {
            return errorResponse(c, err)
        }
        cancelled[it.ID] = true
    }
    for i := range items {
        if cancelled[items[i].ID] {
            items[i].Status = model.ItemCancelled
        }
    }
    allCancelled := booking.AllItemsHaveStatus(items, model.ItemCancelled)
    if allCancelled {
        if err := h.Reservations.MarkCancelledTx(ctx, tx, res.ID, reason); err != nil {
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to cancel reservation"})
        }
        res.Status = model.ReservationCancelled
    }
    if err := tx.Commit(); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
    }
    committed = true

    businessName := ""
    if biz, err := h.Businesses.GetByID(ctx, res.BusinessID); err == nil {
        businessName = biz.Name
    }
    eventItems := cancelledEventItems(mine, listingTitles(ctx, h.Listings, mine))
    _ = h.Notifier.Notify(ctx, reservationEvent(notify.KindStatusChanged, res, businessName, reason, eventItems))
    return c.JSON(http.StatusOK, echo.Map{
        "cancelled_items":    len(mine),
        "reservation_status": res.Status,
    })
}

// RefreshCode handles POST /v1/business/reservations/:id/code. Staff
// holding items in a CONFIRMED reservation may re-issue its
// confirmation code on the customer's behalf, typically when the
// customer arrives at pickup without the original message. The same
// rules as the customer path apply: CONFIRMED only, and only while
// the verification window is open. The previous code stops working
// the moment the new one is stored.
func (h *StaffHandler) RefreshCode(c echo.Context) error {
    businessID, branchID, err := getStaffScope(c)
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
    if res.BusinessID != businessID {
        return errorResponse(c, repository.ErrForbidden)
    }
    switch res.Status {
    case model.ReservationConfirmed:
        // eligible
    case model.ReservationPending:
        return errorResponse(c, booking.ErrPaymentRequired)
    default:
        return c.JSON(http.StatusConflict, echo.Map{"error": "invalid_status"})
    }
    items, err := h.Reservations.ItemsTx(ctx, tx, res.ID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load items"})
    }
    // A branch manager may only refresh for reservations holding
    // items of their branch.
    if len(booking.ItemsInScope(items, branchID)) == 0 {
        return errorResponse(c, repository.ErrForbidden)
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

// ListReservations handles GET /v1/business/reservations. A business
// account sees every reservation held against it; a branch manager
// only reservations containing at least one item of their branch.
func (h *StaffHandler) ListReservations(c echo.Context) error {
    businessID, branchID, err := getStaffScope(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    reservations, err := h.Reservations.ListByBusiness(c.Request().Context(), businessID, branchID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load reservations"})
    }
    type resPart struct {
        ID                uint64     `json:"id"`
        ReservationNumber string     `json:"reservation_number"`
        CustomerID        uint64     `json:"customer_id"`
        PickupTime        time.Time  `json:"pickup_time"`
        TotalAmountCents  uint32     `json:"total_amount_cents"`
        Status            string     `json:"status"`
        PickupConfirmedAt *time.Time `json:"pickup_confirmed_at,omitempty"`
    }
    items := make([]resPart, 0, len(reservations))
    for _, r := range reservations {
        items = append(items, resPart{
            ID:                r.ID,
            ReservationNumber: r.ReservationNumber,
            CustomerID:        r.CustomerID,
            PickupTime:        r.PickupTime,
            TotalAmountCents:  r.TotalAmountCents,
            Status:            r.Status,
            PickupConfirmedAt: r.PickupConfirmedAt,
        })
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items})
}
