package middleware

import (
    "net/http"
    "net/http/httptest"
    "strings"
    "testing"

    "github.com/labstack/echo/v4"

    "github.com/greenbite/surplus-market/internal/config"
)

func feedContext(e *echo.Echo, target string) echo.Context {
    req := httptest.NewRequest(http.MethodGet, target, nil)
    c := e.NewContext(req, httptest.NewRecorder())
    c.SetPath("/v1/listings")
    return c
}

func TestFeedCacheKeySeparatesQueries(t *testing.T) {
    e := echo.New()
    cfg := config.CacheConfig{Prefix: "gb:cache", KeyStrategy: "route_query"}

    plain := feedCacheKey(cfg, feedContext(e, "/v1/listings"))
    filtered := feedCacheKey(cfg, feedContext(e, "/v1/listings?pickup_status=urgent"))
    if plain == filtered {
        t.Fatal("filtered feed must not share a cache slot with the unfiltered one")
    }
    if !strings.HasPrefix(plain, "gb:cache:") {
        t.Fatalf("key %q missing prefix", plain)
    }
    again := feedCacheKey(cfg, feedContext(e, "/v1/listings?pickup_status=urgent"))
    if filtered != again {
        t.Fatal("identical requests must produce identical keys")
    }
}

func TestFeedCacheKeyStrategies(t *testing.T) {
    e := echo.New()
    c := feedContext(e, "/v1/listings?limit=10")

    byRoute := feedCacheKey(config.CacheConfig{Prefix: "p", KeyStrategy: "route"}, c)
    byQuery := feedCacheKey(config.CacheConfig{Prefix: "p", KeyStrategy: "route_query"}, c)
    if byRoute == byQuery {
        t.Fatal("route strategy must ignore the query while route_query keys on it")
    }
}

func TestRecordingWriterBound(t *testing.T) {
    rec := httptest.NewRecorder()
    w := &recordingWriter{ResponseWriter: rec, status: http.StatusOK, maxBytes: 8}

    if _, err := w.Write([]byte("12345678")); err != nil {
        t.Fatalf("write: %v", err)
    }
    if !w.cacheable() {
        t.Fatal("response at the bound should be cacheable")
    }
    if _, err := w.Write([]byte("9")); err != nil {
        t.Fatalf("write: %v", err)
    }
    if w.cacheable() {
        t.Fatal("oversized response must not be cached")
    }
    if got := rec.Body.String(); got != "123456789" {
        t.Fatalf("client saw %q, want the full body", got)
    }
}

func TestNewRedisCachePassThrough(t *testing.T) {
    mw := NewRedisCache(config.CacheConfig{Enabled: false}, nil)
    e := echo.New()
    c := feedContext(e, "/v1/listings")
    called := false
    err := mw(func(echo.Context) error {
        called = true
        return nil
    })(c)
    if err != nil || !called {
        t.Fatalf("disabled cache must invoke the handler directly (err=%v called=%v)", err, called)
    }
    if h := c.Response().Header().Get("X-Cache"); h != "" {
        t.Fatalf("pass-through must not stamp X-Cache, got %q", h)
    }
}
