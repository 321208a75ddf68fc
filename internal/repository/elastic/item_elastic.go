package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"itemdocs/internal/metrics"
	"itemdocs/internal/model"
	"itemdocs/internal/repository"
)

// Conn hands out the shared store handle. *database.Manager implements it.
type Conn interface {
	Acquire(ctx context.Context) (*elasticsearch.Client, error)
	Index() string
	RequestTimeout() time.Duration
}

// ItemElastic is the document store implementation of repository.ItemRepository.
// It keeps no state of its own; every call runs against the handle currently
// held by Conn. Ids are path-escaped, since the client puts them into the
// request path verbatim.
type ItemElastic struct {
	conn    Conn
	now     func() time.Time
	metrics *metrics.Recorder
	tracer  trace.Tracer
}

// Option customizes an ItemElastic.
type Option func(*ItemElastic)

// WithClock overrides the time source used for dateCreated/lastUpdated.
func WithClock(now func() time.Time) Option {
	return func(r *ItemElastic) { r.now = now }
}

// WithMetrics records every store call on m.
func WithMetrics(m *metrics.Recorder) Option {
	return func(r *ItemElastic) { r.metrics = m }
}

// NewItemElastic creates a new ItemElastic repository.
func NewItemElastic(conn Conn, opts ...Option) *ItemElastic {
	r := &ItemElastic{
		conn:   conn,
		now:    time.Now,
		tracer: otel.Tracer("itemdocs/repository"),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

var _ repository.ItemRepository = (*ItemElastic)(nil)

// Insert indexes every item field under item.ID.
func (r *ItemElastic) Insert(ctx context.Context, item *model.Item) (out *model.Item, err error) {
	if item == nil || item.ID == "" {
		return nil, repository.ErrIDRequired
	}
	ctx, done := r.begin(ctx, "index", item.ID)
	defer func() { done(err) }()

	stored := *item
	now := r.now().UTC()
	stored.DateCreated, stored.LastUpdated = now, now

	body, err := json.Marshal(toSource(&stored))
	if err != nil {
		return nil, &repository.SerializationError{Op: "index", Err: err}
	}

	es, err := r.conn.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	res, err := es.Index(r.conn.Index(), bytes.NewReader(body),
		es.Index.WithDocumentID(url.PathEscape(item.ID)),
		es.Index.WithContext(ctx),
	)
	if err != nil {
		return nil, connectionError(ctx, "index", err)
	}
	defer closeBody(res)

	if res.IsError() {
		return nil, storeError("index", res)
	}
	return &stored, nil
}

// FindByID fetches a single item by its id.
func (r *ItemElastic) FindByID(ctx context.Context, id string) (out *model.Item, err error) {
	if id == "" {
		return nil, repository.ErrIDRequired
	}
	ctx, done := r.begin(ctx, "get", id)
	defer func() { done(err) }()

	es, err := r.conn.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	res, err := es.Get(r.conn.Index(), url.PathEscape(id), es.Get.WithContext(ctx))
	if err != nil {
		return nil, connectionError(ctx, "get", err)
	}
	defer closeBody(res)

	if res.StatusCode == http.StatusNotFound {
		return nil, repository.ErrNotFound
	}
	if res.IsError() {
		return nil, storeError("get", res)
	}

	var body struct {
		ID     string          `json:"_id"`
		Found  bool            `json:"found"`
		Source json.RawMessage `json:"_source"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, &repository.SerializationError{Op: "get", Err: err}
	}
	if !body.Found {
		return nil, repository.ErrNotFound
	}
	return fromSource("get", id, body.Source)
}

// UpdateByID sends only the submitted patch fields as a partial document and
// asks the store to return the merged result.
func (r *ItemElastic) UpdateByID(ctx context.Context, id string, patch model.ItemPatch) (out *model.Item, err error) {
	if id == "" {
		return nil, repository.ErrIDRequired
	}
	ctx, done := r.begin(ctx, "update", id)
	defer func() { done(err) }()

	doc := patchSource(patch)
	doc["lastUpdated"] = r.now().UTC()
	body, err := json.Marshal(map[string]any{"doc": doc})
	if err != nil {
		return nil, &repository.SerializationError{Op: "update", Err: err}
	}

	es, err := r.conn.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	res, err := es.Update(r.conn.Index(), url.PathEscape(id), bytes.NewReader(body),
		es.Update.WithContext(ctx),
		es.Update.WithSource("true"),
	)
	if err != nil {
		return nil, connectionError(ctx, "update", err)
	}
	defer closeBody(res)

	if res.StatusCode == http.StatusNotFound {
		return nil, repository.ErrNotFound
	}
	if res.IsError() {
		return nil, storeError("update", res)
	}

	var result struct {
		Get struct {
			Found  bool            `json:"found"`
			Source json.RawMessage `json:"_source"`
		} `json:"get"`
	}
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, &repository.SerializationError{Op: "update", Err: err}
	}
	if !result.Get.Found || len(result.Get.Source) == 0 {
		return nil, &repository.SerializationError{Op: "update", Err: errors.New("response carried no document")}
	}
	return fromSource("update", id, result.Get.Source)
}

// DeleteByID removes a document. The store answering 404 counts as success.
func (r *ItemElastic) DeleteByID(ctx context.Context, id string) (err error) {
	if id == "" {
		return repository.ErrIDRequired
	}
	ctx, done := r.begin(ctx, "delete", id)
	defer func() { done(err) }()

	es, err := r.conn.Acquire(ctx)
	if err != nil {
		return err
	}
	res, err := es.Delete(r.conn.Index(), url.PathEscape(id), es.Delete.WithContext(ctx))
	if err != nil {
		return connectionError(ctx, "delete", err)
	}
	defer closeBody(res)

	if res.StatusCode == http.StatusNotFound {
		return nil
	}
	if res.IsError() {
		return storeError("delete", res)
	}
	return nil
}

// begin bounds the call by the request timeout and opens its span. The
// returned func must be called exactly once with the call's final error.
func (r *ItemElastic) begin(ctx context.Context, op, id string) (context.Context, func(error)) {
	ctx, cancel := context.WithTimeout(ctx, r.conn.RequestTimeout())
	ctx, span := r.tracer.Start(ctx, "repository."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "elasticsearch"),
			attribute.String("db.operation", op),
			attribute.String("item.id", id),
		),
	)
	start := time.Now()

	return ctx, func(err error) {
		outcome := "ok"
		switch {
		case errors.Is(err, repository.ErrNotFound):
			outcome = "not_found"
		case err != nil:
			outcome = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		cancel()
		r.metrics.ObserveStoreOp(op, outcome, time.Since(start))
	}
}

func connectionError(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		err = fmt.Errorf("%w: %v", ctxErr, err)
	}
	return &repository.ConnectionError{Op: op, Err: err}
}

func storeError(op string, res *esapi.Response) error {
	se := &repository.StoreError{Op: op, Status: res.StatusCode}
	var body struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil || len(body.Error) == 0 {
		return se
	}
	var detail struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	}
	if err := json.Unmarshal(body.Error, &detail); err == nil {
		se.Type, se.Reason = detail.Type, detail.Reason
	} else {
		var reason string
		if json.Unmarshal(body.Error, &reason) == nil {
			se.Reason = reason
		}
	}
	return se
}

// closeBody drains what is left so the connection can be reused.
func closeBody(res *esapi.Response) {
	io.Copy(io.Discard, res.Body)
	res.Body.Close()
}
