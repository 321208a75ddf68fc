package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"itemdocs/internal/model"
	"itemdocs/internal/service"
)

// Pinger reports whether the document store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
func RegisterRoutes(app *fiber.App, store Pinger, itemSvc service.ItemService, gatherer prometheus.Gatherer) {
	app.Get("/health", HealthCheck(store))
	app.Get("/healthz", LivenessProbe())
	if gatherer != nil {
		app.Get("/metrics", Metrics(gatherer))
	}

	items := app.Group("/items")
	items.Post("/", CreateItem(itemSvc))
	items.Get("/:id", GetItem(itemSvc))
	items.Patch("/:id", UpdateItem(itemSvc))
	items.Delete("/:id", DeleteItem(itemSvc))
}

// HealthCheck checks document store connectivity only.
func HealthCheck(store Pinger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := store.Ping(ctx); err != nil {
			return writeError(c, fiber.StatusServiceUnavailable, "STORE_UNAVAILABLE", "document store unavailable")
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	}
}

// LivenessProbe answers 200 as long as the process serves requests.
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}

// Metrics exposes the registry in the Prometheus text format.
func Metrics(g prometheus.Gatherer) fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
}

// CreateItem validates the item's references and stores it.
func CreateItem(svc service.ItemService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var item model.Item
		if err := c.BodyParser(&item); err != nil {
			return writeError(c, fiber.StatusBadRequest, "BAD_REQUEST", "invalid item body")
		}
		stored, err := svc.Create(c.UserContext(), &item)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(stored)
	}
}

// GetItem returns a single item by id.
func GetItem(svc service.ItemService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		item, err := svc.Get(c.UserContext(), c.Params("id"))
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(item)
	}
}

// UpdateItem merges the submitted fields into the stored item.
func UpdateItem(svc service.ItemService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var patch model.ItemPatch
		if err := c.BodyParser(&patch); err != nil {
			return writeError(c, fiber.StatusBadRequest, "BAD_REQUEST", "invalid patch body")
		}
		item, err := svc.Update(c.UserContext(), c.Params("id"), patch)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(item)
	}
}

// DeleteItem removes an item. Deleting a missing item still answers 204.
func DeleteItem(svc service.ItemService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := svc.Delete(c.UserContext(), c.Params("id")); err != nil {
			return writeServiceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
