package middleware // reusable HTTP middleware functions

import (
    "net/http" // HTTP status codes for responses
    "strings"  // prefix checking and trimming

    "github.com/golang-jwt/jwt/v5" // JWT parsing and validation
    "github.com/labstack/echo/v4"  // Echo framework middleware contract
)

// JWTAuth returns an Echo middleware that validates a Bearer access
// token and injects the token's claims into the request context. The
// provided secret must match the one used when issuing tokens. This
// middleware should wrap protected routes so that handlers can read
// the authenticated identity via c.Get("user_id"), c.Get("role") and,
// for staff accounts, c.Get("business_id") / c.Get("branch_id").
func JWTAuth(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            // A valid header is "Bearer " followed by the JWT.
            auth := c.Request().Header.Get("Authorization")
            if !strings.HasPrefix(auth, "Bearer ") {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
            }
            raw := strings.TrimPrefix(auth, "Bearer ")

            // Parse with HS256 and our secret; reject any other
            // signing method.
            tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
                if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
                    return nil, echo.ErrUnauthorized
                }
                return []byte(secret), nil
            })
            if err != nil || !tok.Valid {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
            }

            claims, ok := tok.Claims.(jwt.MapClaims)
            if !ok {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid claims"})
            }

            // Store identity claims in the context. Staff tokens
            // additionally carry the business and branch scope used
            // by verification and cancellation handlers. Type
            // assertions are left to downstream consumers.
            c.Set("user_id", claims["sub"])
            c.Set("role", claims["role"])
            if v, ok := claims["business_id"]; ok {
                c.Set("business_id", v)
            }
            if v, ok := claims["branch_id"]; ok {
                c.Set("branch_id", v)
            }
            return next(c)
        }
    }
}
