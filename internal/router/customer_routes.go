package router

import (
    "github.com/labstack/echo/v4"

    "github.com/greenbite/surplus-market/internal/handler"
    "github.com/greenbite/surplus-market/internal/middleware"
    "github.com/greenbite/surplus-market/internal/model"
)

// RegisterCustomer registers customer-scoped endpoints under /v1.
// All routes require a valid JWT and the CUSTOMER role. The rate
// limiter is applied to the mutating endpoints only; pass nil to
// disable it.
func RegisterCustomer(e *echo.Echo, h *handler.CustomerHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
    g := e.Group(
        "/v1",
        middleware.JWTAuth(jwtSecret),
        middleware.RequireRole(model.RoleCustomer),
    )
    write := []echo.MiddlewareFunc{}
    if limiter != nil {
        write = append(write, limiter)
    }
    g.POST("/reservations", h.CreateReservation, write...)
    g.POST("/reservations/:id/pay", h.PayReservation, write...)
    g.POST("/reservations/:id/code", h.RefreshCode, write...)
    g.DELETE("/reservations/:id", h.CancelReservation, write...)

    g.GET("/my-reservations", h.ListReservations)
    g.GET("/reservations/:id", h.GetReservation)
}
