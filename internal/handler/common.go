package handler // handler defines http handlers

import (
    "errors"
    "net/http"
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/greenbite/surplus-market/internal/booking"
    "github.com/greenbite/surplus-market/internal/repository"
)

// getUserID extracts the user_id from echo.Context and converts it to uint64.
func getUserID(c echo.Context) (uint64, error) {
    return contextUint64(c, "user_id")
}

// getStaffScope extracts the business scope of a staff request. The
// business_id claim is mandatory for BUSINESS and BRANCH_MANAGER
// tokens; branch_id is present only on BRANCH_MANAGER tokens and is
// returned as a pointer so callers can pass it straight into the
// item-scoping rules.
func getStaffScope(c echo.Context) (uint64, *uint64, error) {
    businessID, err := contextUint64(c, "business_id")
    if err != nil {
        return 0, nil, err
    }
    if branchID, err := contextUint64(c, "branch_id"); err == nil {
        return businessID, &branchID, nil
    }
    return businessID, nil, nil
}

// contextUint64 reads a numeric context value set by the JWT
// middleware. Claims decoded from JSON arrive as float64; values set
// in tests may be native integers.
func contextUint64(c echo.Context, key string) (uint64, error) {
    switch t := c.Get(key).(type) {
    case uint64:
        return t, nil
    case int:
        return uint64(t), nil
    case int64:
        return uint64(t), nil
    case float64:
        return uint64(t), nil
    case string:
        if n, err := strconv.ParseUint(t, 10, 64); err == nil {
            return n, nil
        }
    }
    return 0, errors.New("invalid " + key + " in context")
}

// errorMappings pairs each sentinel from the rule and storage layers
// with its stable machine-readable code and HTTP status. The sentinel
// message doubles as the human-readable explanation.
var errorMappings = []struct {
    err    error
    status int
    code   string
}{
    {repository.ErrListingNotFound, http.StatusNotFound, "listing_not_found"},
    {repository.ErrReservationNotFound, http.StatusNotFound, "reservation_not_found"},
    {repository.ErrBusinessNotFound, http.StatusNotFound, "business_not_found"},
    {repository.ErrForbidden, http.StatusForbidden, "forbidden"},
    {booking.ErrListingUnavailable, http.StatusConflict, "listing_unavailable"},
    {booking.ErrOutOfStock, http.StatusConflict, "out_of_stock"},
    {booking.ErrPickupOutsideWindow, http.StatusUnprocessableEntity, "pickup_outside_window"},
    {booking.ErrMultiBusinessNotAllowed, http.StatusUnprocessableEntity, "multi_business_not_allowed"},
    {booking.ErrTotalTooLarge, http.StatusUnprocessableEntity, "total_too_large"},
    {booking.ErrAmountMismatch, http.StatusUnprocessableEntity, "amount_mismatch"},
    {booking.ErrAlreadyPaid, http.StatusConflict, "already_paid"},
    {booking.ErrPaymentRequired, http.StatusConflict, "payment_required"},
    {booking.ErrCancellationWindowClosed, http.StatusConflict, "cancellation_window_closed"},
    {booking.ErrVerificationExpired, http.StatusGone, "verification_expired"},
    {booking.ErrCodeMismatch, http.StatusUnprocessableEntity, "code_mismatch"},
}

// errorResponse translates a sentinel error into its stable code and
// message with the matching HTTP status. Anything unrecognized is
// reported as a 500 without leaking the underlying error text.
func errorResponse(c echo.Context, err error) error {
    for _, m := range errorMappings {
        if errors.Is(err, m.err) {
            return c.JSON(m.status, echo.Map{"error": m.code, "message": m.err.Error()})
        }
    }
    return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal_error", "message": "internal error"})
}
