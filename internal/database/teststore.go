package database

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"itemdocs/internal/config"
)

// TestStore is an in-memory stand-in for the document store's HTTP API. It
// understands the handful of endpoints the repository and index setup use:
// info, index exists/create, and document index/get/update/delete.
type TestStore struct {
	Server *httptest.Server

	mu       sync.Mutex
	indices  map[string]json.RawMessage
	docs     map[string]map[string]map[string]any
	versions map[string]int
	requests []string
	delay    time.Duration
	fail     *storeFailure
}

type storeFailure struct {
	status      int
	typ, reason string
}

// NewTestStore starts a TestStore and returns it together with a config
// pointing at it. The server is closed when the test ends.
func NewTestStore(t *testing.T) (*TestStore, config.ElasticConfig) {
	t.Helper()

	s := &TestStore{
		indices:  make(map[string]json.RawMessage),
		docs:     make(map[string]map[string]map[string]any),
		versions: make(map[string]int),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Server.Close)

	u, err := url.Parse(s.Server.URL)
	if err != nil {
		t.Fatalf("parsing test store url: %v", err)
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil {
		t.Fatalf("parsing test store port: %v", err)
	}

	return s, config.ElasticConfig{
		Host:           u.Hostname(),
		Ports:          []int{port},
		Scheme:         "http",
		Index:          "itemdata",
		RequestTimeout: 2 * time.Second,
	}
}

// SetDelay makes every subsequent request wait d before answering.
func (s *TestStore) SetDelay(d time.Duration) {
	s.mu.Lock()
	s.delay = d
	s.mu.Unlock()
}

// FailNext makes the next request answer with the given store error.
func (s *TestStore) FailNext(status int, typ, reason string) {
	s.mu.Lock()
	s.fail = &storeFailure{status: status, typ: typ, reason: reason}
	s.mu.Unlock()
}

// Put stores a raw document, bypassing the HTTP API.
func (s *TestStore) Put(index, id string, source map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bucket(index)[id] = source
}

// Source returns a copy of a stored document.
func (s *TestStore) Source(index, id string) (map[string]any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[index][id]
	if !ok {
		return nil, false
	}
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out, true
}

// Mapping returns the body an index was created with.
func (s *TestStore) Mapping(index string) (json.RawMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.indices[index]
	return m, ok
}

// Requests lists every request received as "METHOD /path".
func (s *TestStore) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

func (s *TestStore) bucket(index string) map[string]map[string]any {
	b, ok := s.docs[index]
	if !ok {
		b = make(map[string]map[string]any)
		s.docs[index] = b
	}
	return b
}

func (s *TestStore) serve(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.requests = append(s.requests, r.Method+" "+r.URL.EscapedPath())
	delay := s.delay
	fail := s.fail
	s.fail = nil
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}

	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")

	if fail != nil {
		writeError(w, fail.status, fail.typ, fail.reason)
		return
	}

	parts, err := splitPath(r.URL.EscapedPath())
	if err != nil {
		writeError(w, http.StatusBadRequest, "illegal_argument_exception", err.Error())
		return
	}
	switch {
	case r.URL.Path == "/" && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{
			"name":         "test-node",
			"cluster_name": "itemdocs-test",
			"version":      map[string]any{"number": "8.17.0", "build_flavor": "default"},
			"tagline":      "You Know, for Search",
		})
	case len(parts) == 1:
		s.serveIndex(w, r, parts[0])
	case len(parts) == 3 && parts[1] == "_doc":
		s.serveDoc(w, r, parts[0], parts[2])
	case len(parts) == 3 && parts[1] == "_update" && r.Method == http.MethodPost:
		s.serveUpdate(w, r, parts[0], parts[2])
	default:
		writeError(w, http.StatusBadRequest, "illegal_argument_exception", "unsupported request "+r.Method+" "+r.URL.Path)
	}
}

func (s *TestStore) serveIndex(w http.ResponseWriter, r *http.Request, index string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, exists := s.indices[index]
	switch r.Method {
	case http.MethodHead:
		if exists {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusNotFound)
		}
	case http.MethodPut:
		if exists {
			writeError(w, http.StatusBadRequest, "resource_already_exists_exception", "index ["+index+"] already exists")
			return
		}
		var body bytes.Buffer
		body.ReadFrom(r.Body)
		s.indices[index] = json.RawMessage(body.Bytes())
		writeJSON(w, http.StatusOK, map[string]any{"acknowledged": true, "index": index})
	default:
		writeError(w, http.StatusMethodNotAllowed, "illegal_argument_exception", "method not allowed")
	}
}

func (s *TestStore) serveDoc(w http.ResponseWriter, r *http.Request, index, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := index + "/" + id
	docs := s.bucket(index)
	_, exists := docs[id]
	meta := map[string]any{"_index": index, "_id": id}

	switch r.Method {
	case http.MethodPut, http.MethodPost:
		source, err := decodeSource(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "mapper_parsing_exception", err.Error())
			return
		}
		docs[id] = source
		s.versions[key]++
		meta["_version"] = s.versions[key]
		if exists {
			meta["result"] = "updated"
			writeJSON(w, http.StatusOK, meta)
		} else {
			meta["result"] = "created"
			writeJSON(w, http.StatusCreated, meta)
		}
	case http.MethodGet:
		if !exists {
			meta["found"] = false
			writeJSON(w, http.StatusNotFound, meta)
			return
		}
		meta["found"] = true
		meta["_version"] = s.versions[key]
		meta["_source"] = docs[id]
		writeJSON(w, http.StatusOK, meta)
	case http.MethodDelete:
		if !exists {
			meta["result"] = "not_found"
			writeJSON(w, http.StatusNotFound, meta)
			return
		}
		delete(docs, id)
		meta["result"] = "deleted"
		writeJSON(w, http.StatusOK, meta)
	default:
		writeError(w, http.StatusMethodNotAllowed, "illegal_argument_exception", "method not allowed")
	}
}

func (s *TestStore) serveUpdate(w http.ResponseWriter, r *http.Request, index, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs := s.bucket(index)
	current, exists := docs[id]
	if !exists {
		writeError(w, http.StatusNotFound, "document_missing_exception", fmt.Sprintf("[%s]: document missing", id))
		return
	}

	body, err := decodeSource(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "x_content_parse_exception", err.Error())
		return
	}
	partial, ok := body["doc"].(map[string]any)
	if !ok {
		writeError(w, http.StatusBadRequest, "action_request_validation_exception", "script or doc is missing")
		return
	}
	for k, v := range partial {
		current[k] = v
	}

	key := index + "/" + id
	s.versions[key]++
	res := map[string]any{
		"_index":   index,
		"_id":      id,
		"_version": s.versions[key],
		"result":   "updated",
	}
	if src := r.URL.Query().Get("_source"); src == "true" {
		res["get"] = map[string]any{"found": true, "_source": current}
	}
	writeJSON(w, http.StatusOK, res)
}

// splitPath splits on the escaped path so that an escaped slash stays part of
// its segment, then unescapes each segment.
func splitPath(escaped string) ([]string, error) {
	parts := strings.Split(strings.Trim(escaped, "/"), "/")
	for i, p := range parts {
		u, err := url.PathUnescape(p)
		if err != nil {
			return nil, err
		}
		parts[i] = u
	}
	return parts, nil
}

func decodeSource(r *http.Request) (map[string]any, error) {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	var out map[string]any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, typ, reason string) {
	writeJSON(w, status, map[string]any{
		"error":  map[string]any{"type": typ, "reason": reason},
		"status": status,
	})
}
