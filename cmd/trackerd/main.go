package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"

	"shift-tracker-backend/config"
	"shift-tracker-backend/internal/api"
	"shift-tracker-backend/internal/background"
	"shift-tracker-backend/internal/db"
	"shift-tracker-backend/internal/history"
	"shift-tracker-backend/internal/location"
	"shift-tracker-backend/internal/metrics"
	"shift-tracker-backend/internal/notification"
	"shift-tracker-backend/internal/store"
	"shift-tracker-backend/internal/tracker"
)

func main() {
	logger := log.New(os.Stdout, "trackerd ", log.LstdFlags)

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Printf("failed to read .env file: %v", err)
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	logger.Printf("configuration loaded successfully from %s", configPath)

	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatalf("failed to initialize database: %v", err)
	}
	logger.Println("database initialized successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clock := clockwork.NewRealClock()
	appStore := store.NewGormStore(gormDB)

	locations, err := history.Load(ctx, appStore)
	if err != nil {
		logger.Printf("failed to restore location history, starting empty: %v", err)
	}

	var locator location.Locator
	switch cfg.Location.Provider {
	case "static":
		locator = &location.StaticLocator{
			Latitude:  cfg.Location.StaticLatitude,
			Longitude: cfg.Location.StaticLongitude,
			Clock:     clock,
		}
	default:
		locator = location.NewHTTPLocator(cfg.Location, clock)
	}
	logger.Printf("using %q location provider", cfg.Location.Provider)

	deps := tracker.Deps{
		Store:   appStore,
		History: locations,
		Locator: locator,
		Clock:   clock,
	}

	var cronTrigger *background.CronTrigger
	if cfg.Background.Enabled {
		cronTrigger, err = background.NewCronTrigger(ctx, clock)
		if err != nil {
			logger.Fatalf("failed to create background trigger: %v", err)
		}
		deps.Trigger = cronTrigger
	}

	var webpushOptions *webpush.Options
	if cfg.Push.Enabled() {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
		pool := notification.NewWorkerPool(cfg.WorkerPool.Size, gormDB, webpushOptions, cfg.Site.Name)
		pool.Start(ctx)
		deps.Notifier = pool
	} else {
		logger.Println("VAPID keys not configured, geofence push alerts disabled")
	}

	promMetrics := metrics.NewPrometheus()
	deps.Metrics = promMetrics

	trackerSvc, err := tracker.NewService(ctx, cfg, deps)
	if err != nil {
		logger.Fatalf("failed to create tracker: %v", err)
	}
	trackerSvc.RestoreOnLaunch(ctx, clock.Now())

	router := api.NewRouter(&cfg.Server, api.NewHandler(trackerSvc, appStore, webpushOptions), promMetrics.Handler())
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Println("Shutdown signal received, stopping services...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Printf("HTTP server Shutdown: %v", err)
	}
	trackerSvc.Shutdown()
	if cronTrigger != nil {
		if err := cronTrigger.Shutdown(); err != nil {
			logger.Printf("background trigger shutdown: %v", err)
		}
	}
	cancel()

	logger.Println("Server gracefully stopped")
}
