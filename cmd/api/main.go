package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"itemdocs/internal/catalog"
	"itemdocs/internal/config"
	"itemdocs/internal/database"
	"itemdocs/internal/database/migration"
	handlers "itemdocs/internal/http/handler"
	"itemdocs/internal/http/middleware"
	"itemdocs/internal/logging"
	"itemdocs/internal/metrics"
	"itemdocs/internal/otel"
	"itemdocs/internal/repository/elastic"
	"itemdocs/internal/service"
)

func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()
	log := logging.Setup(cfg.Log, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Init(ctx, "itemdocs-api", log)
	if err != nil {
		fatal(log, "failed to initialize tracing", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rec, err := metrics.New(reg)
	if err != nil {
		fatal(log, "failed to register metrics", err)
	}
	httpMetrics, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		fatal(log, "failed to register http metrics", err)
	}

	// The store handle is built lazily; acquiring it here fails fast on a
	// misconfigured cluster and creates the index if needed.
	store := database.NewManager(cfg.Elastic, database.WithLogger(log))
	es, err := store.Acquire(ctx)
	if err != nil {
		fatal(log, "failed to connect to document store", err)
	}
	if err := migration.EnsureIndex(ctx, es, store.Index(), log); err != nil {
		fatal(log, "failed to prepare index", err)
	}

	refs := catalog.NewClient(cfg.Catalog, catalog.WithMetrics(rec), catalog.WithLogger(log))
	itemRepo := elastic.NewItemElastic(store, elastic.WithMetrics(rec))
	itemSvc := service.NewItemService(refs, itemRepo, log)

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
	})

	// Register global middleware
	app.Use(middleware.RequestID())
	app.Use(otelfiber.Middleware())
	app.Use(middleware.Logger())
	app.Use(httpMetrics.Handler())

	handlers.RegisterRoutes(app, store, itemSvc, reg)

	go func() {
		<-ctx.Done()
		log.Info("shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Error("http shutdown failed", "error", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Info("listening", "addr", addr, "index", store.Index())
	if err := app.Listen(addr); err != nil {
		fatal(log, "failed to start server", err)
	}

	store.Release()
	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdownTracing(flushCtx); err != nil {
		log.Error("tracing shutdown failed", "error", err)
	}
}

func fatal(log *slog.Logger, msg string, err error) {
	log.Error(msg, "error", err)
	os.Exit(1)
}
