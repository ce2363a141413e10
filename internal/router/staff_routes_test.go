package router

import (
    "testing"

    "github.com/labstack/echo/v4"

    "github.com/greenbite/surplus-market/internal/handler"
    "github.com/greenbite/surplus-market/internal/notify"
    "github.com/greenbite/surplus-market/internal/repository"
)

func TestRegisterStaffRoutes(t *testing.T) {
    e := echo.New()
    s := handler.NewStaffHandler(
        repository.NewListingRepo(nil),
        repository.NewReservationRepo(nil),
        repository.NewBusinessRepo(nil),
        notify.NewQueueDispatcher(notify.Preferences{Push: true}),
    )
    l := handler.NewBusinessListingHandler(repository.NewListingRepo(nil))
    RegisterStaff(e, s, l, "secret", nil)

    want := map[string]bool{
        "GET /v1/business/reservations":             false,
        "POST /v1/business/reservations/:id/verify": false,
        "POST /v1/business/reservations/:id/cancel": false,
        "POST /v1/business/reservations/:id/code":   false,
        "POST /v1/business/listings":                false,
        "PATCH /v1/business/listings/:id/quantity":  false,
        "DELETE /v1/business/listings/:id":          false,
    }
    for _, r := range e.Routes() {
        key := r.Method + " " + r.Path
        if _, ok := want[key]; ok {
            want[key] = true
        }
    }
    for key, seen := range want {
        if !seen {
            t.Errorf("route %s not registered", key)
        }
    }
}
