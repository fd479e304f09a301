package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/hyperjump/vecsearch/internal/config"
	"github.com/hyperjump/vecsearch/internal/dataset"
	"github.com/hyperjump/vecsearch/internal/indexer"
	"github.com/hyperjump/vecsearch/internal/metadata"
	"github.com/hyperjump/vecsearch/internal/models"
	"github.com/hyperjump/vecsearch/internal/search"
	"github.com/hyperjump/vecsearch/internal/transform"
	"github.com/hyperjump/vecsearch/internal/vector"
)

type tableEncoder struct {
	vectors map[string][]float32
}

func (e *tableEncoder) Encode(ctx context.Context, text string) ([]float32, error) {
	v, ok := e.vectors[text]
	if !ok {
		return nil, fmt.Errorf("no vector for %q", text)
	}
	return append([]float32(nil), v...), nil
}

func (e *tableEncoder) EncodeBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.Encode(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (e *tableEncoder) Dimensions() int { return 4 }
func (e *tableEncoder) ID() string      { return "table" }
func (e *tableEncoder) Close() error    { return nil }

func newEncoder() *tableEncoder {
	return &tableEncoder{vectors: map[string][]float32{
		"alpha": {1, 0, 0, 0},
		"beta":  {0, 1, 0, 0},
		"gamma": {0, 0, 1, 0},
		"query": {0.9, 0.1, 0, 0},
	}}
}

func testServer(t *testing.T) (*Server, string) {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()
	var items []models.Item
	for _, txt := range []string{"alpha", "beta", "gamma"} {
		items = append(items, models.Item{Text: txt, Title: txt, Link: "https://de.wikipedia.org/wiki/" + txt})
	}
	idx := indexer.NewIndexer(newEncoder(), transform.Pipeline{})
	if _, err := idx.EncodeCorpus(ctx, &indexer.SliceSource{Items: items}, dir); err != nil {
		t.Fatal(err)
	}
	if _, err := idx.BuildIndex(ctx, dir, vector.BackendGraph); err != nil {
		t.Fatal(err)
	}
	ds, err := dataset.Open(ctx, dir)
	if err != nil {
		t.Fatal(err)
	}
	engine, err := search.NewEngine(ds, newEncoder(), nil, search.Config{KDisplay: 2, KCandidates: 3})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = engine.Close() })
	return NewServer(engine, &config.ServerConfig{Port: 8080}, zap.NewNop()), dir
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	r := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestHandleSearch(t *testing.T) {
	srv, _ := testServer(t)
	w := doJSON(t, srv.Handler(), http.MethodPost, "/api/v1/search", map[string]any{"query": "query"})
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", w.Code, w.Body.String())
	}
	var resp models.SearchResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 2 || resp.Results[0].Ordinal != 0 || resp.Results[1].Ordinal != 1 {
		t.Errorf("results = %+v", resp.Results)
	}
	if resp.Results[0].Title != "alpha" || resp.Backend != "graph" {
		t.Errorf("response = %+v", resp)
	}
}

func TestHandleSearch_Errors(t *testing.T) {
	srv, _ := testServer(t)
	h := srv.Handler()
	tests := []struct {
		name string
		body any
		want int
	}{
		{"empty query", map[string]any{"query": ""}, http.StatusBadRequest},
		{"candidates not above k", map[string]any{"query": "query", "k": 5, "k_candidates": 5}, http.StatusBadRequest},
		{"unknown text", map[string]any{"query": "nothing"}, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, h, http.MethodPost, "/api/v1/search", tt.body)
			if w.Code != tt.want {
				t.Errorf("status: got %d, want %d (%s)", w.Code, tt.want, w.Body.String())
			}
		})
	}

	r := httptest.NewRequest(http.MethodPost, "/api/v1/search", bytes.NewBufferString("{not json"))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid body status: got %d", w.Code)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{models.ErrEmptyQuery, http.StatusBadRequest},
		{fmt.Errorf("wrapped: %w", &vector.DimensionMismatchError{Expected: 4, Actual: 3}), http.StatusBadRequest},
		{fmt.Errorf("join: %w", metadata.ErrUnknownOrdinal), http.StatusInternalServerError},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{search.ErrNoDataset, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestHandleStatus(t *testing.T) {
	srv, dir := testServer(t)
	w := doJSON(t, srv.Handler(), http.MethodGet, "/api/v1/status", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var out struct {
		Dir        string `json:"dir"`
		Descriptor struct {
			Dim        int    `json:"dim"`
			NumSamples int    `json:"num_samples"`
			Backend    string `json:"index_backend"`
		} `json:"descriptor"`
		Metadata  int    `json:"metadata_entries"`
		IndexSize int    `json:"index_size"`
		Metric    string `json:"metric"`
		Files     []struct {
			Name   string `json:"name"`
			Exists bool   `json:"exists"`
		} `json:"files"`
		DiskUsageBytes int64 `json:"disk_usage_bytes"`
	}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Dir != dir || out.Descriptor.Dim != 4 || out.Descriptor.NumSamples != 3 || out.Descriptor.Backend != "graph" {
		t.Errorf("status = %+v", out)
	}
	if out.Metadata != 3 || out.IndexSize != 3 {
		t.Errorf("counts = %d, %d", out.Metadata, out.IndexSize)
	}
	if out.DiskUsageBytes <= 0 {
		t.Errorf("disk usage = %d", out.DiskUsageBytes)
	}
	exists := map[string]bool{}
	for _, f := range out.Files {
		exists[f.Name] = f.Exists
	}
	if !exists["features.bin"] || !exists["index.deg"] || exists["index.hnsw"] {
		t.Errorf("files = %+v", out.Files)
	}
}

func TestHandleHealth(t *testing.T) {
	srv, _ := testServer(t)
	w := doJSON(t, srv.Handler(), http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Errorf("status: got %d", w.Code)
	}
}

func TestRequestID(t *testing.T) {
	srv, _ := testServer(t)
	h := srv.Handler()

	w := doJSON(t, h, http.MethodGet, "/health", nil)
	if len(w.Header().Get(RequestIDHeader)) != 36 {
		t.Errorf("generated request id = %q", w.Header().Get(RequestIDHeader))
	}

	r := httptest.NewRequest(http.MethodGet, "/health", nil)
	r.Header.Set(RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	if got := rec.Header().Get(RequestIDHeader); got != "abc-123" {
		t.Errorf("propagated request id = %q", got)
	}
}

func TestHandleReload(t *testing.T) {
	srv, dir := testServer(t)
	idx := indexer.NewIndexer(nil, transform.Pipeline{})
	if _, err := idx.BuildIndex(context.Background(), dir, vector.BackendHNSW); err != nil {
		t.Fatal(err)
	}

	h := srv.Handler()
	w := doJSON(t, h, http.MethodPost, "/api/v1/reload", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("reload status: got %d, body %s", w.Code, w.Body.String())
	}
	w = doJSON(t, h, http.MethodPost, "/api/v1/search", map[string]any{"query": "query"})
	var resp models.SearchResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Backend != "hnsw" || len(resp.Results) == 0 || resp.Results[0].Ordinal != 0 {
		t.Errorf("after reload = %+v", resp)
	}
}
