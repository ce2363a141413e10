package handler

import (
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/greenbite/surplus-market/internal/model"
    "github.com/greenbite/surplus-market/internal/pickup"
    "github.com/greenbite/surplus-market/internal/repository"
)

// defaultFeedLimit caps the public feed when the client does not ask
// for a specific page size.
const defaultFeedLimit = 50

// PublicHandler exposes unauthenticated browse endpoints over the
// listing feed. The pickup_status in every response is re-derived
// from pickup_end at request time, so feed consumers never see the
// stale bucket cached between sweeper runs.
type PublicHandler struct {
    Listings *repository.ListingRepo
}

// NewPublicHandler constructs a PublicHandler.
func NewPublicHandler(listings *repository.ListingRepo) *PublicHandler {
    if listings == nil {
        panic("nil repository passed to NewPublicHandler")
    }
    return &PublicHandler{Listings: listings}
}

// listingView is the customer-facing projection of a listing.
type listingView struct {
    ID                 uint64    `json:"id"`
    BusinessID         uint64    `json:"business_id"`
    BranchID           *uint64   `json:"branch_id,omitempty"`
    Title              string    `json:"title"`
    PriceCents         uint32    `json:"price_cents"`
    OriginalPriceCents uint32    `json:"original_price_cents"`
    Quantity           uint32    `json:"quantity"`
    PickupStart        time.Time `json:"pickup_start"`
    PickupEnd          time.Time `json:"pickup_end"`
    Status             string    `json:"status"`
    PickupStatus       string    `json:"pickup_status"`
}

func toListingView(l model.Listing, now time.Time) listingView {
    return listingView{
        ID:                 l.ID,
        BusinessID:         l.BusinessID,
        BranchID:           l.BranchID,
        Title:              l.Title,
        PriceCents:         l.PriceCents,
        OriginalPriceCents: l.OriginalPriceCents,
        Quantity:           l.Quantity,
        PickupStart:        l.PickupStart,
        PickupEnd:          l.PickupEnd,
        Status:             l.Status,
        PickupStatus:       pickup.Classify(l.PickupEnd, now),
    }
}

// ListListings handles GET /v1/listings. It returns AVAILABLE
// listings newest first, optionally filtered by ?business_id and
// ?pickup_status (normal|warning|urgent|expired) and limited by
// ?limit. The pickup-status filter is applied to the freshly derived
// bucket, not the cached column.
func (h *PublicHandler) ListListings(c echo.Context) error {
    var businessID uint64
    if v := c.QueryParam("business_id"); v != "" {
        n, err := strconv.ParseUint(v, 10, 64)
        if err != nil {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid business_id"})
        }
        businessID = n
    }
    limit := defaultFeedLimit
    if v := c.QueryParam("limit"); v != "" {
        n, err := strconv.Atoi(v)
        if err != nil || n <= 0 || n > 200 {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid limit"})
        }
        limit = n
    }
    listings, err := h.Listings.ListAvailable(c.Request().Context(), businessID, limit)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load listings"})
    }
    statusFilter := strings.ToLower(strings.TrimSpace(c.QueryParam("pickup_status")))
    switch statusFilter {
    case "", pickup.StatusNormal, pickup.StatusWarning, pickup.StatusUrgent, pickup.StatusExpired:
    default:
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid pickup_status"})
    }
    now := time.Now().UTC()
    items := make([]listingView, 0, len(listings))
    for _, l := range listings {
        v := toListingView(l, now)
        if statusFilter != "" && v.PickupStatus != statusFilter {
            continue
        }
        items = append(items, v)
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// GetListing handles GET /v1/listings/:id.
func (h *PublicHandler) GetListing(c echo.Context) error {
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || id == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid listing id"})
    }
    l, err := h.Listings.GetByID(c.Request().Context(), id)
    if err != nil {
        return errorResponse(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"item": toListingView(l, time.Now().UTC())})
}

// BusinessListingHandler groups the listing management endpoints used
// by BUSINESS accounts. The acting business is always taken from the
// JWT claims, never from the request body, so an account can only
// touch its own inventory.
type BusinessListingHandler struct {
    Listings *repository.ListingRepo
}

// NewBusinessListingHandler constructs a BusinessListingHandler.
func NewBusinessListingHandler(listings *repository.ListingRepo) *BusinessListingHandler {
    if listings == nil {
        panic("nil repository passed to NewBusinessListingHandler")
    }
    return &BusinessListingHandler{Listings: listings}
}

// CreateListing handles POST /v1/business/listings.
func (h *BusinessListingHandler) CreateListing(c echo.Context) error {
    businessID, _, err := getStaffScope(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var body struct {
        Title              string    `json:"title"`
        PriceCents         uint32    `json:"price_cents"`
        OriginalPriceCents uint32    `json:"original_price_cents"`
        Quantity           uint32    `json:"quantity"`
        PickupStart        time.Time `json:"pickup_start"`
        PickupEnd          time.Time `json:"pickup_end"`
        BranchID           *uint64   `json:"branch_id,omitempty"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if body.Title == "" || body.Quantity == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "title and quantity are required"})
    }
    now := time.Now().UTC()
    if !body.PickupEnd.After(body.PickupStart) || !body.PickupEnd.After(now) {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid pickup window"})
    }
    if body.OriginalPriceCents != 0 && body.OriginalPriceCents < body.PriceCents {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "original price below discounted price"})
    }
    l := model.Listing{
        BusinessID:         businessID,
        BranchID:           body.BranchID,
        Title:              body.Title,
        PriceCents:         body.PriceCents,
        OriginalPriceCents: body.OriginalPriceCents,
        Quantity:           body.Quantity,
        PickupStart:        body.PickupStart.UTC(),
        PickupEnd:          body.PickupEnd.UTC(),
        Status:             model.ListingAvailable,
        PickupStatus:       pickup.Classify(body.PickupEnd, now),
    }
    if err := h.Listings.Create(c.Request().Context(), &l); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create listing"})
    }
    return c.JSON(http.StatusCreated, echo.Map{"item": toListingView(l, now)})
}

// UpdateQuantity handles PATCH /v1/business/listings/:id/quantity. It
// lets a seller correct remaining stock outside the reservation flow.
func (h *BusinessListingHandler) UpdateQuantity(c echo.Context) error {
    businessID, _, err := getStaffScope(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || id == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid listing id"})
    }
    var body struct {
        Quantity uint32 `json:"quantity"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if err := h.Listings.UpdateQuantityForBusiness(c.Request().Context(), id, businessID, body.Quantity); err != nil {
        return errorResponse(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"id": id, "quantity": body.Quantity})
}

// CloseListing handles DELETE /v1/business/listings/:id, taking a
// listing off sale without touching its quantity or any committed
// reservations.
func (h *BusinessListingHandler) CloseListing(c echo.Context) error {
    businessID, _, err := getStaffScope(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || id == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid listing id"})
    }
    if err := h.Listings.CloseForBusiness(c.Request().Context(), id, businessID); err != nil {
        return errorResponse(c, err)
    }
    return c.NoContent(http.StatusNoContent)
}
