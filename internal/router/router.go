package router // package router defines how HTTP routes are registered for the API

import (
    "github.com/labstack/echo/v4"

    "github.com/greenbite/surplus-market/internal/handler"
    "github.com/greenbite/surplus-market/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication
// on the provided Echo instance. Currently it exposes only a health
// check used by load balancers and monitoring.
func RegisterRoutes(e *echo.Echo) {
    e.GET("/healthz", handler.Health)
}

// RegisterAuth registers all authentication-related routes.
// Unauthenticated operations live under /v1/auth, while protected
// endpoints live under /v1.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
    g := e.Group("/v1/auth")
    g.POST("/register", a.Register)
    g.POST("/login", a.Login)
    // Rotates the refresh token.
    g.POST("/refresh", a.Refresh)
    // Issues a new access token without rotating the refresh token.
    g.POST("/refresh-access", a.RefreshAccess)
    // Logout accepts either a refresh_token body or a Bearer header,
    // so it is deliberately outside the JWT middleware.
    g.POST("/logout", a.Logout)
    e.POST("/v1/logout", a.Logout)

    auth := e.Group("/v1", middleware.JWTAuth(jwtSecret))
    auth.GET("/me", a.Me)
}

// RegisterPublic registers the unauthenticated listing feed. The
// cache middleware is applied here because these are the hottest read
// paths; pass nil to skip caching.
func RegisterPublic(e *echo.Echo, p *handler.PublicHandler, cache echo.MiddlewareFunc) {
    mws := []echo.MiddlewareFunc{}
    if cache != nil {
        mws = append(mws, cache)
    }
    e.GET("/v1/listings", p.ListListings, mws...)
    e.GET("/v1/listings/:id", p.GetListing, mws...)
}
