package migration

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
)

// itemMapping pins the field types so that price and quantities stay
// integers and ids are matched exactly rather than analyzed.
const itemMapping = `{
  "mappings": {
    "dynamic": "strict",
    "properties": {
      "id":                 { "type": "keyword" },
      "siteId":             { "type": "keyword" },
      "categoryId":         { "type": "keyword" },
      "title":              { "type": "text", "fields": { "raw": { "type": "keyword", "ignore_above": 256 } } },
      "subtitle":           { "type": "text" },
      "sellerId":           { "type": "keyword" },
      "price":              { "type": "long" },
      "currencyId":         { "type": "keyword" },
      "availableQuantity":  { "type": "integer" },
      "condition":          { "type": "keyword" },
      "pictures":           { "type": "keyword", "index": false },
      "acceptsMercadopago": { "type": "boolean" },
      "status":             { "type": "keyword" },
      "dateCreated":        { "type": "date" },
      "lastUpdated":        { "type": "date" }
    }
  }
}`

// EnsureIndex checks whether the item index exists and creates it with the
// item mapping if it doesn't. An existing index is left as is.
func EnsureIndex(ctx context.Context, es *elasticsearch.Client, index string, log *slog.Logger) error {
	start := time.Now()
	log = log.With("component", "database", "index", index)

	log.InfoContext(ctx, "index check", "event", "index_migration_check", "status", "starting")

	res, err := es.Indices.Exists([]string{index}, es.Indices.Exists.WithContext(ctx))
	if err != nil {
		log.ErrorContext(ctx, "index check failed",
			"event", "index_migration_failed",
			"status", "error",
			"error_message", err.Error(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return fmt.Errorf("failed to check index: %w", err)
	}
	res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
		log.InfoContext(ctx, "index already exists, skipping migration",
			"event", "index_migration_skip",
			"status", "success",
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil
	case http.StatusNotFound:
	default:
		return fmt.Errorf("failed to check index: %s", res.Status())
	}

	log.InfoContext(ctx, "creating index", "event", "index_migration_start", "status", "in_progress")

	res, err = es.Indices.Create(index,
		es.Indices.Create.WithContext(ctx),
		es.Indices.Create.WithBody(strings.NewReader(itemMapping)),
	)
	if err != nil {
		log.ErrorContext(ctx, "index creation failed",
			"event", "index_migration_failed",
			"status", "error",
			"error_message", err.Error(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return fmt.Errorf("create index %s: %w", index, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		log.ErrorContext(ctx, "index creation rejected",
			"event", "index_migration_failed",
			"status", "error",
			"error_message", res.String(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return fmt.Errorf("create index %s: %s", index, res.Status())
	}

	log.InfoContext(ctx, "index created",
		"event", "index_migration_success",
		"status", "success",
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}
