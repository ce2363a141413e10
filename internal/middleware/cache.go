package middleware

import (
    "bytes"
    "context"
    "crypto/sha1"
    "encoding/json"
    "fmt"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/greenbite/surplus-market/internal/config"
)

// feedEntry is the stored form of a cached feed response. Headers are
// kept alongside the body so a HIT serves byte-identical output,
// including the Content-Type the handler chose.
type feedEntry struct {
    Status int         `json:"status"`
    Header http.Header `json:"header"`
    Body   []byte      `json:"body"`
}

// recordingWriter tees the response into a bounded buffer while
// streaming it unmodified to the client. A response larger than the
// bound still reaches the client in full but is not cached; a feed
// page that big should have used the limit parameter, not a Redis
// slot.
type recordingWriter struct {
    http.ResponseWriter
    status   int
    written  int64
    maxBytes int64
    buf      bytes.Buffer
}

func (w *recordingWriter) WriteHeader(code int) {
    w.status = code
    w.ResponseWriter.WriteHeader(code)
}

func (w *recordingWriter) Write(b []byte) (int, error) {
    w.written += int64(len(b))
    if w.maxBytes <= 0 || w.written <= w.maxBytes {
        w.buf.Write(b)
    }
    return w.ResponseWriter.Write(b)
}

func (w *recordingWriter) cacheable() bool {
    return w.status == http.StatusOK && (w.maxBytes <= 0 || w.written <= w.maxBytes)
}

// feedCacheKey derives the Redis key for a request. The default
// strategy keys on route plus raw query, so the feed filtered by
// business_id or pickup_status occupies a separate slot from the
// unfiltered one; the alternatives exist for deployments whose edge
// rewrites or strips query strings.
func feedCacheKey(cfg config.CacheConfig, c echo.Context) string {
    r := c.Request()
    var scope string
    switch strings.ToLower(cfg.KeyStrategy) {
    case "route":
        scope = c.Path()
    case "method_route":
        scope = r.Method + " " + c.Path()
    case "method_route_query":
        scope = r.Method + " " + c.Path() + "?" + r.URL.RawQuery
    default: // route_query
        scope = c.Path() + "?" + r.URL.RawQuery
    }
    sum := sha1.Sum([]byte(scope))
    return fmt.Sprintf("%s:%x", cfg.Prefix, sum)
}

// NewRedisCache returns a response cache for the public listing
// endpoints. The TTL doubles as the staleness bound on the
// pickup_status buckets carried in feed responses: between sweeper
// runs a cached page may lag the classifier by at most one TTL, so it
// should stay far below the two-hour urgent threshold. Requests
// carrying an Authorization header bypass the cache; only the
// anonymous feed is shared enough to be worth pinning. With caching
// disabled or Redis unreachable the middleware is a pass-through.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
    }
    ttl := cfg.TTL
    if ttl <= 0 {
        ttl = 30 * time.Second
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            req := c.Request()
            if !cfg.Methods[strings.ToUpper(req.Method)] || req.Header.Get("Authorization") != "" {
                return next(c)
            }
            key := feedCacheKey(cfg, c)

            if raw, err := rdb.Get(req.Context(), key).Bytes(); err == nil {
                var entry feedEntry
                if json.Unmarshal(raw, &entry) == nil && entry.Status != 0 {
                    for k, vals := range entry.Header {
                        if strings.EqualFold(k, "Content-Length") {
                            continue
                        }
                        for _, v := range vals {
                            c.Response().Header().Add(k, v)
                        }
                    }
                    c.Response().Header().Set("X-Cache", "HIT")
                    c.Response().WriteHeader(entry.Status)
                    if len(entry.Body) > 0 {
                        _, _ = c.Response().Write(entry.Body)
                    }
                    return nil
                }
            }

            w := &recordingWriter{
                ResponseWriter: c.Response().Writer,
                status:         http.StatusOK,
                maxBytes:       int64(cfg.MaxBodyBytes),
            }
            c.Response().Writer = w
            c.Response().Header().Set("X-Cache", "MISS")
            if err := next(c); err != nil {
                return err
            }
            if !w.cacheable() {
                return nil
            }
            entry := feedEntry{
                Status: w.status,
                Header: make(http.Header, len(c.Response().Header())),
                Body:   w.buf.Bytes(),
            }
            for k, vals := range c.Response().Header() {
                entry.Header[k] = append([]string(nil), vals...)
            }
            if raw, err := json.Marshal(entry); err == nil {
                // Detached context: the client may disconnect right
                // after the response is flushed.
                _ = rdb.SetEx(context.Background(), key, raw, ttl).Err()
            }
            return nil
        }
    }
}
