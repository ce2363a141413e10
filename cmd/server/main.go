package main // Entry point package

import (
    "context"
    "log"
    "os"

    "github.com/labstack/echo/v4"

    "github.com/greenbite/surplus-market/internal/config"
    "github.com/greenbite/surplus-market/internal/database"
    "github.com/greenbite/surplus-market/internal/handler"
    "github.com/greenbite/surplus-market/internal/middleware"
    "github.com/greenbite/surplus-market/internal/notify"
    "github.com/greenbite/surplus-market/internal/payment"
    "github.com/greenbite/surplus-market/internal/queue"
    "github.com/greenbite/surplus-market/internal/repository"
    "github.com/greenbite/surplus-market/internal/router"
    "github.com/greenbite/surplus-market/internal/sweeper"
)

func main() {
    cfg := config.Load()

    db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
    if err != nil {
        log.Fatalf("database: %v", err)
    }
    defer db.Close()

    // Repositories share the single pooled handle; handlers begin
    // transactions spanning several of them.
    userRepo := repository.NewUserRepo(db)
    tokenRepo := repository.NewTokenRepo(db)
    listingRepo := repository.NewListingRepo(db)
    reservationRepo := repository.NewReservationRepo(db)
    paymentRepo := repository.NewPaymentRepo(db)
    businessRepo := repository.NewBusinessRepo(db)

    authority := payment.NewLocalAuthority()
    notifier := notify.NewQueueDispatcher(notify.Preferences{
        Push:  os.Getenv("NOTIFY_PUSH") != "false",
        Email: os.Getenv("NOTIFY_EMAIL") != "false",
        SMS:   os.Getenv("NOTIFY_SMS") == "true",
    })

    ctx, cancel := context.WithCancel(context.Background())
    defer cancel()

    // Background pickup-status sweeper.
    go sweeper.New(listingRepo, cfg.SweepInterval, cfg.SweepBatchSize).Run(ctx)

    // Broker consumer writing reservation events to logs/.
    go func() {
        if err := queue.StartReservationConsumer(); err != nil {
            log.Printf("reservation consumer stopped: %v", err)
        }
    }()

    rdb := config.NewRedisClient()
    limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
    cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

    e := echo.New()
    router.RegisterRoutes(e)
    router.RegisterAuth(e, handler.NewAuthHandler(cfg, userRepo, tokenRepo), cfg.JWTSecret)
    router.RegisterPublic(e, handler.NewPublicHandler(listingRepo), cache)
    router.RegisterCustomer(e,
        handler.NewCustomerHandler(listingRepo, reservationRepo, paymentRepo, businessRepo, authority, notifier),
        cfg.JWTSecret, limiter)
    router.RegisterStaff(e,
        handler.NewStaffHandler(listingRepo, reservationRepo, businessRepo, notifier),
        handler.NewBusinessListingHandler(listingRepo),
        cfg.JWTSecret, limiter)

    addr := ":" + cfg.Port
    log.Printf("listening on %s (env=%s)", addr, cfg.Env)
    if err := e.Start(addr); err != nil {
        log.Fatal(err)
    }
}
