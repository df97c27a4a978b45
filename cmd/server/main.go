package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/boat-boarding/internal/config"
	"github.com/iliyamo/boat-boarding/internal/database"
	"github.com/iliyamo/boat-boarding/internal/handler"
	"github.com/iliyamo/boat-boarding/internal/middleware"
	"github.com/iliyamo/boat-boarding/internal/queue"
	"github.com/iliyamo/boat-boarding/internal/repository"
	"github.com/iliyamo/boat-boarding/internal/router"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	boats := repository.NewBoatRepo(db)
	sessions := repository.NewSessionRepo(db)
	bookings := repository.NewBookingRepo(db)
	logs := repository.NewCheckinLogRepo(db)
	events := repository.NewEventRepo(db)
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)

	authH := handler.NewAuthHandler(cfg, users, tokens)
	sessionH := handler.NewSessionHandler(boats, sessions, bookings)
	checkinH := handler.NewCheckinHandler(boats, sessions, bookings, logs, events)
	bookingH := handler.NewBookingHandler(bookings, events)
	eventH := handler.NewEventHandler(events)
	statsH := handler.NewStatsHandler(boats, bookings, events)

	e := echo.New()
	e.Use(echomw.Recover())

	// Redis is optional: without it rate limiting and the report cache
	// degrade to no-ops.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis: unavailable, rate limiting and caching disabled")
	}
	e.Use(middleware.RateLimit(config.LoadRateLimitConfig(), rdb))
	reportCache := middleware.ReportCache(config.LoadCacheConfig(), middleware.NewRedisCacheStore(rdb))

	router.RegisterRoutes(e)
	router.RegisterAuth(e, authH, cfg.JWTSecret)
	router.RegisterBoarding(e, cfg.JWTSecret, reportCache, sessionH, checkinH, bookingH, eventH, statsH)

	// Background consumer writes the check-in audit feed to logs/checkin.log.
	go func() {
		if err := queue.StartCheckinConsumer(); err != nil {
			log.Printf("checkin-consumer: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
