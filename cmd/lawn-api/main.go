package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kelvins/geocoder"

	httpapi "github.com/bermudabuddy/lawn-api/internal/api/http"
	"github.com/bermudabuddy/lawn-api/internal/config"
	"github.com/bermudabuddy/lawn-api/internal/scheduler"
	"github.com/bermudabuddy/lawn-api/internal/store"
	"github.com/bermudabuddy/lawn-api/internal/weather"
	"github.com/bermudabuddy/lawn-api/internal/weather/providers"
)

const appName = "lawn-api"

func main() {
	startTime := time.Now().UTC()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	openMeteo := providers.NewOpenMeteo(httpClient, cfg.WeatherCacheTTL, nil)

	// NWS is optional: without a user agent the service runs primary-only.
	var wind weather.WindProvider
	var alerts weather.AlertProvider
	if cfg.NWSUserAgent != "" {
		nws, err := providers.NewNWS(httpClient, cfg.NWSUserAgent)
		if err != nil {
			log.Fatalf("failed to configure NWS provider: %v", err)
		}
		wind = nws
		alerts = nws
	} else {
		log.Printf("INFO: NWS_USER_AGENT not set; NWS wind merging and alerts disabled")
	}

	svc := weather.NewService(openMeteo, wind, alerts, nil)

	var st store.Store
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("failed to connect to database: %v", err)
		}
		defer pool.Close()
		st = store.NewPostgres(pool)
	} else {
		log.Printf("INFO: DATABASE_URL not set; using in-memory store")
		st = store.NewMemoryStore()
	}

	if cfg.GoogleGeocoderAPIKey != "" {
		geocoder.ApiKey = cfg.GoogleGeocoderAPIKey
	}

	// Periodically pre-warm forecasts for saved properties.
	sched := scheduler.New(st, cfg.FetchInterval, svc)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               appName,
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          30 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":                 "ok",
			"name":                   appName,
			"version":                cfg.AppVersion,
			"time":                   time.Now().UTC().Format(time.RFC3339),
			"nws_user_agent_present": cfg.NWSUserAgent != "",
		})
	})

	app.Get("/metrics", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"app":        appName,
			"version":    cfg.AppVersion,
			"uptime_sec": int(time.Since(startTime).Seconds()),
		})
	})

	httpapi.RegisterRoutes(app, httpapi.Deps{
		Weather:         svc,
		Store:           st,
		GeocoderEnabled: cfg.GoogleGeocoderAPIKey != "",
	})

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}
