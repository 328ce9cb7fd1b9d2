package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/humaidq/arbnco-proxy/internal/api/http"
	"github.com/humaidq/arbnco-proxy/internal/cache"
	"github.com/humaidq/arbnco-proxy/internal/config"
	"github.com/humaidq/arbnco-proxy/internal/scheduler"
	"github.com/humaidq/arbnco-proxy/internal/sensor"
	"github.com/humaidq/arbnco-proxy/internal/sensor/providers"
	"github.com/humaidq/arbnco-proxy/internal/store"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to the TOML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if errors.Is(err, config.ErrPlaceholderKey) {
		fmt.Fprintf(os.Stderr, "Please add the authentication (API) key in the configuration file (%s), and run again.\n", *configPath)
		os.Exit(1)
	}
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Outbound client for the ARBNCO API; the timeout also covers reading the body.
	httpClient := &http.Client{
		Timeout: cfg.UpstreamTimeout.Duration,
	}
	client := providers.NewArbncoClient(httpClient, cfg.UpstreamURL)

	// Bounded history of refreshed readings for /history.
	memStore := store.NewMemoryStore(cfg.HistorySize, 24*time.Hour)

	readings := cache.New(client,
		cache.WithFetchTimeout(cfg.UpstreamTimeout.Duration+time.Second),
		cache.WithOnRefresh(memStore.SaveSnapshot),
	)
	service := sensor.NewService(readings, memStore, cfg.SiteID, cfg.AuthenticationKey)

	sched := scheduler.New(service, cfg.WarmInterval.Duration, readings.TTL(), cfg.UpstreamTimeout.Duration+time.Second)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "arbnco-proxy",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          20 * time.Second,
		ErrorHandler:          httpapi.ErrorHandler,
	})

	app.Use(logger.New())
	app.Use(recover.New())

	httpapi.RegisterRoutes(app, service, httpapi.Credentials{
		Username: cfg.HTTPAuthUsername,
		Password: cfg.HTTPAuthPassword,
	})

	addr := ":" + strconv.Itoa(cfg.Port)
	go func() {
		log.Printf("INFO: serving site %s on %s", cfg.SiteID, addr)
		if err := app.Listen(addr); err != nil {
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
