package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"itemdocs/internal/http/middleware"
	"itemdocs/internal/model"
	"itemdocs/internal/repository"
	"itemdocs/internal/service"
	serviceMocks "itemdocs/internal/service/mocks"
)

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeError(t *testing.T, resp *http.Response) errorPayload {
	t.Helper()
	var body errorPayload
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestHealthCheck(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		app := fiber.New()
		app.Get("/health", HealthCheck(stubPinger{}))

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var body map[string]string
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "healthy", body["status"])
	})

	t.Run("unhealthy", func(t *testing.T) {
		app := fiber.New()
		app.Get("/health", HealthCheck(stubPinger{err: errors.New("connection refused")}))

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
		require.NoError(t, err)

		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		assert.Equal(t, "STORE_UNAVAILABLE", decodeError(t, resp).Error.Code)
	})
}

func TestLivenessProbe(t *testing.T) {
	app := fiber.New()
	app.Get("/healthz", LivenessProbe())

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "probe_total", Help: "test"})
	reg.MustRegister(c)
	c.Inc()

	app := fiber.New()
	app.Get("/metrics", Metrics(reg))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	b, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(b), "probe_total 1")
}

func TestCreateItem(t *testing.T) {
	mockSvc := new(serviceMocks.MockItemService)
	app := fiber.New()
	app.Use(middleware.RequestID())
	app.Post("/items", CreateItem(mockSvc))

	t.Run("success", func(t *testing.T) {
		want := &model.Item{ID: "MLA1", SiteID: "MLA", CategoryID: "MLA1055", Title: "Phone", Price: 100}
		mockSvc.On("Create", mock.Anything, want).Return(want, nil).Once()

		resp, err := app.Test(jsonRequest(http.MethodPost, "/items",
			`{"id":"MLA1","siteId":"MLA","categoryId":"MLA1055","title":"Phone","price":100}`))
		require.NoError(t, err)

		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		var got model.Item
		json.NewDecoder(resp.Body).Decode(&got)
		assert.Equal(t, "MLA1", got.ID)
		assert.Equal(t, int64(100), got.Price)
		mockSvc.AssertExpectations(t)
	})

	t.Run("malformed body", func(t *testing.T) {
		resp, err := app.Test(jsonRequest(http.MethodPost, "/items", `{"id":`))
		require.NoError(t, err)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "BAD_REQUEST", decodeError(t, resp).Error.Code)
	})

	t.Run("rejected site", func(t *testing.T) {
		mockSvc.On("Create", mock.Anything, mock.Anything).
			Return(nil, &service.ValidationError{Field: "siteId", Value: "XXX"}).Once()

		req := jsonRequest(http.MethodPost, "/items", `{"id":"MLA1","siteId":"XXX"}`)
		req.Header.Set(middleware.RequestIDHeader, "req-1")
		resp, err := app.Test(req)
		require.NoError(t, err)

		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
		body := decodeError(t, resp)
		assert.Equal(t, "VALIDATION_FAILED", body.Error.Code)
		assert.Contains(t, body.Error.Message, "XXX")
		assert.Equal(t, "req-1", body.RequestID)
	})

	t.Run("missing id", func(t *testing.T) {
		mockSvc.On("Create", mock.Anything, mock.Anything).Return(nil, service.ErrIDRequired).Once()

		resp, err := app.Test(jsonRequest(http.MethodPost, "/items", `{"title":"x"}`))
		require.NoError(t, err)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "ID_REQUIRED", decodeError(t, resp).Error.Code)
	})
}

func TestGetItem(t *testing.T) {
	mockSvc := new(serviceMocks.MockItemService)
	app := fiber.New()
	app.Get("/items/:id", GetItem(mockSvc))

	t.Run("success", func(t *testing.T) {
		mockSvc.On("Get", mock.Anything, "MLA1").Return(&model.Item{ID: "MLA1", Title: "Phone"}, nil).Once()

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/items/MLA1", nil))
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var got model.Item
		json.NewDecoder(resp.Body).Decode(&got)
		assert.Equal(t, "Phone", got.Title)
	})

	t.Run("not found", func(t *testing.T) {
		mockSvc.On("Get", mock.Anything, "missing").Return(nil, service.ErrNotFound).Once()

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/items/missing", nil))
		require.NoError(t, err)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "NOT_FOUND", decodeError(t, resp).Error.Code)
	})

	t.Run("store unavailable", func(t *testing.T) {
		mockSvc.On("Get", mock.Anything, "MLA2").
			Return(nil, &repository.ConnectionError{Op: "get", Err: errors.New("refused")}).Once()

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/items/MLA2", nil))
		require.NoError(t, err)

		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		assert.Equal(t, "STORE_UNAVAILABLE", decodeError(t, resp).Error.Code)
	})

	t.Run("unexpected error does not leak", func(t *testing.T) {
		mockSvc.On("Get", mock.Anything, "MLA3").Return(nil, errors.New("secret detail")).Once()

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/items/MLA3", nil))
		require.NoError(t, err)

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		body := decodeError(t, resp)
		assert.Equal(t, "INTERNAL_ERROR", body.Error.Code)
		assert.NotContains(t, body.Error.Message, "secret")
	})

	mockSvc.AssertExpectations(t)
}

func TestUpdateItem(t *testing.T) {
	mockSvc := new(serviceMocks.MockItemService)
	app := fiber.New()
	app.Patch("/items/:id", UpdateItem(mockSvc))

	t.Run("only submitted fields reach the service", func(t *testing.T) {
		price := int64(150)
		mockSvc.On("Update", mock.Anything, "MLA1", model.ItemPatch{Price: &price}).
			Return(&model.Item{ID: "MLA1", Title: "Phone", Price: 150}, nil).Once()

		resp, err := app.Test(jsonRequest(http.MethodPatch, "/items/MLA1", `{"price":150}`))
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var got model.Item
		json.NewDecoder(resp.Body).Decode(&got)
		assert.Equal(t, "Phone", got.Title)
		assert.Equal(t, int64(150), got.Price)
	})

	t.Run("not found", func(t *testing.T) {
		mockSvc.On("Update", mock.Anything, "ghost", mock.Anything).Return(nil, service.ErrNotFound).Once()

		resp, err := app.Test(jsonRequest(http.MethodPatch, "/items/ghost", `{"title":"x"}`))
		require.NoError(t, err)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("malformed body", func(t *testing.T) {
		resp, err := app.Test(jsonRequest(http.MethodPatch, "/items/MLA1", `not json`))
		require.NoError(t, err)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "BAD_REQUEST", decodeError(t, resp).Error.Code)
	})

	mockSvc.AssertExpectations(t)
}

func TestDeleteItem(t *testing.T) {
	mockSvc := new(serviceMocks.MockItemService)
	app := fiber.New()
	app.Delete("/items/:id", DeleteItem(mockSvc))

	t.Run("success", func(t *testing.T) {
		mockSvc.On("Delete", mock.Anything, "MLA1").Return(nil).Once()

		resp, err := app.Test(httptest.NewRequest(http.MethodDelete, "/items/MLA1", nil))
		require.NoError(t, err)

		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	})

	t.Run("service error", func(t *testing.T) {
		mockSvc.On("Delete", mock.Anything, "MLA2").Return(errors.New("delete item: boom")).Once()

		resp, err := app.Test(httptest.NewRequest(http.MethodDelete, "/items/MLA2", nil))
		require.NoError(t, err)

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	})

	mockSvc.AssertExpectations(t)
}

func TestRouting(t *testing.T) {
	app := fiber.New(fiber.Config{
		ErrorHandler: ErrorHandler(),
	})
	RegisterRoutes(app, stubPinger{}, new(serviceMocks.MockItemService), prometheus.NewRegistry())

	t.Run("not found", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/non-existent", nil))
		require.NoError(t, err)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "NOT_FOUND", decodeError(t, resp).Error.Code)
	})

	t.Run("method not allowed", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/health", nil))
		require.NoError(t, err)

		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
		assert.Equal(t, "METHOD_NOT_ALLOWED", decodeError(t, resp).Error.Code)
	})

	t.Run("metrics endpoint", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}
