package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"itemdocs/internal/catalog"
	"itemdocs/internal/config"
	"itemdocs/internal/console"
	"itemdocs/internal/database"
	"itemdocs/internal/database/migration"
	"itemdocs/internal/logging"
	"itemdocs/internal/otel"
	"itemdocs/internal/repository/elastic"
	"itemdocs/internal/service"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "itemctl:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load()
	// Logs go to stderr so they don't interleave with the menu.
	log := logging.Setup(cfg.Log, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	shutdownTracing, err := otel.Init(ctx, "itemctl", log)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(flushCtx)
	}()

	store := database.NewManager(cfg.Elastic, database.WithLogger(log))
	defer store.Release()
	if err := prepareIndex(ctx, store, log); err != nil {
		// The menu still starts; each operation reports the outage itself.
		log.Warn("document store not ready", "error", err)
	}

	refs := catalog.NewClient(cfg.Catalog, catalog.WithLogger(log))
	itemSvc := service.NewItemService(refs, elastic.NewItemElastic(store), log)

	err = console.New(os.Stdin, os.Stdout, itemSvc, refs, store, log).Run(ctx)
	if errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stdout)
		return nil
	}
	return err
}

func prepareIndex(ctx context.Context, store *database.Manager, log *slog.Logger) error {
	es, err := store.Acquire(ctx)
	if err != nil {
		return err
	}
	defer store.Release()
	return migration.EnsureIndex(ctx, es, store.Index(), log)
}
