package router

import (
    "github.com/labstack/echo/v4"

    "github.com/greenbite/surplus-market/internal/handler"
    "github.com/greenbite/surplus-market/internal/middleware"
    "github.com/greenbite/surplus-market/internal/model"
)

// RegisterStaff registers the staff-side endpoints under
// /v1/business. Pickup verification, item cancellation and the
// incoming-reservation list accept both BUSINESS and BRANCH_MANAGER
// tokens; listing management is restricted to BUSINESS accounts.
func RegisterStaff(e *echo.Echo, s *handler.StaffHandler, l *handler.BusinessListingHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
    write := []echo.MiddlewareFunc{}
    if limiter != nil {
        write = append(write, limiter)
    }

    staff := e.Group(
        "/v1/business",
        middleware.JWTAuth(jwtSecret),
        middleware.RequireRole(model.RoleBusiness, model.RoleBranchManager),
    )
    staff.GET("/reservations", s.ListReservations)
    staff.POST("/reservations/:id/verify", s.VerifyPickup, write...)
    staff.POST("/reservations/:id/cancel", s.CancelItems, write...)
    staff.POST("/reservations/:id/code", s.RefreshCode, write...)

    owner := e.Group(
        "/v1/business",
        middleware.JWTAuth(jwtSecret),
        middleware.RequireRole(model.RoleBusiness),
    )
    owner.POST("/listings", l.CreateListing, write...)
    owner.PATCH("/listings/:id/quantity", l.UpdateQuantity, write...)
    owner.DELETE("/listings/:id", l.CloseListing, write...)
}
