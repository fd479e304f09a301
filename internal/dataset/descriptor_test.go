package dataset

import (
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperjump/vecsearch/internal/transform"
	"github.com/hyperjump/vecsearch/internal/vector"
)

func writeRaw(t *testing.T, dir, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, DescriptorFile), []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestDescriptorRoundTrip(t *testing.T) {
	dir := t.TempDir()
	in := &Descriptor{
		Dim:          768,
		NumSamples:   42,
		EncoderID:    "mock-768",
		Normalize:    true,
		Quantize:     true,
		QuantizeMax:  0.4,
		IndexBackend: vector.BackendHNSW,
		ChunkSize:    1024,
		CreatedAt:    time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC),
	}
	if err := WriteDescriptor(dir, in); err != nil {
		t.Fatalf("WriteDescriptor: %v", err)
	}
	out, err := ReadDescriptor(dir)
	if err != nil {
		t.Fatalf("ReadDescriptor: %v", err)
	}
	if err := out.Require(QueryFields...); err != nil {
		t.Errorf("Require: %v", err)
	}
	if out.Dim != in.Dim || out.NumSamples != in.NumSamples || out.EncoderID != in.EncoderID ||
		out.Normalize != in.Normalize || out.Quantize != in.Quantize || out.QuantizeMax != in.QuantizeMax ||
		out.IndexBackend != in.IndexBackend || !out.CreatedAt.Equal(in.CreatedAt) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", out, in)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("expected only %s in dir, found %d entries", DescriptorFile, len(entries))
	}
}

func TestReadDescriptorMissing(t *testing.T) {
	_, err := ReadDescriptor(t.TempDir())
	if !errors.Is(err, ErrMissingDescriptor) {
		t.Errorf("err = %v, want ErrMissingDescriptor", err)
	}
}

func TestRequireOlderDescriptor(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		missing string
	}{
		{"no encoder_id", `{"dim": 4, "num_samples": 3, "normalize": false, "quantize": false, "index_backend": "graph"}`, FieldEncoderID},
		{"only dim and count", `{"dim": 4, "num_samples": 3}`, FieldEncoderID},
		{"no backend", `{"dim": 4, "num_samples": 3, "encoder_id": "x", "normalize": true, "quantize": false}`, FieldIndexBackend},
		{"no quantize", `{"dim": 4, "num_samples": 3, "encoder_id": "x", "normalize": true, "index_backend": "hnsw"}`, FieldQuantize},
		{"null encoder_id", `{"dim": 4, "num_samples": 3, "encoder_id": null, "normalize": true, "quantize": false, "index_backend": "hnsw"}`, FieldEncoderID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeRaw(t, dir, tt.body)
			d, err := ReadDescriptor(dir)
			if err != nil {
				t.Fatalf("ReadDescriptor: %v", err)
			}
			err = d.Require(QueryFields...)
			var se *SchemaError
			if !errors.As(err, &se) {
				t.Fatalf("err = %v, want SchemaError", err)
			}
			if se.Field != tt.missing {
				t.Errorf("missing field = %q, want %q", se.Field, tt.missing)
			}
		})
	}
}

func TestLegacyKeys(t *testing.T) {
	dir := t.TempDir()
	writeRaw(t, dir, `{"dim": 8, "num_samples": 1, "model": "T-Systems-onsite/cross-en-de-roberta-sentence-transformer",
		"normalize": false, "quantize": false, "index_type": "deglib"}`)
	d, err := ReadDescriptor(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Require(QueryFields...); err != nil {
		t.Fatalf("Require: %v", err)
	}
	if d.IndexBackend != vector.BackendGraph {
		t.Errorf("IndexBackend = %q, want graph", d.IndexBackend)
	}
	if d.EncoderID == "" {
		t.Error("EncoderID not taken from legacy model key")
	}
	if d.QuantizeRange() != 0.4 {
		t.Errorf("QuantizeRange = %f, want default 0.4", d.QuantizeRange())
	}
}

func TestReadDescriptorInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `dim=4`},
		{"zero dim", `{"dim": 0}`},
		{"string dim", `{"dim": "4"}`},
		{"bad backend", `{"dim": 4, "index_backend": "annoy"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeRaw(t, dir, tt.body)
			if _, err := ReadDescriptor(dir); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestPipelineFollowsDescriptor(t *testing.T) {
	d := &Descriptor{Dim: 2, Normalize: true, Quantize: true, QuantizeMax: 4}
	p := d.Pipeline()
	if !p.Normalize() || !p.Quantize() || p.QuantizeMax() != 4 {
		t.Errorf("pipeline = %+v", p)
	}
	if d.Metric() != vector.MetricEuclidean {
		t.Errorf("Metric = %v, want euclidean", d.Metric())
	}
	if Elem(d).Size() != 1 {
		t.Errorf("Elem size = %d, want 1", Elem(d).Size())
	}
}

func TestDescriptorMetric(t *testing.T) {
	tests := []struct {
		normalize, quantize bool
		want                vector.Metric
	}{
		{false, false, vector.MetricEuclidean},
		{true, false, vector.MetricCosine},
		{false, true, vector.MetricEuclidean},
		{true, true, vector.MetricEuclidean},
	}
	for _, tt := range tests {
		d := &Descriptor{Normalize: tt.normalize, Quantize: tt.quantize}
		if got := d.Metric(); got != tt.want {
			t.Errorf("normalize=%t quantize=%t: Metric = %v, want %v", tt.normalize, tt.quantize, got, tt.want)
		}
	}
}

// Ranking quantized unit vectors in byte space must agree with cosine ranking of the
// float vectors they came from.
func TestQuantizedMetricKeepsCosineOrder(t *testing.T) {
	const n, dim, k = 2000, 32, 10
	d := &Descriptor{Dim: dim, Normalize: true, Quantize: true, QuantizeMax: 0.4}
	p := d.Pipeline()
	rng := rand.New(rand.NewSource(11))

	unit := func() []float32 {
		v := make([]float32, dim)
		for i := range v {
			v[i] = float32(rng.NormFloat64())
		}
		u, err := transform.NormalizeVector(v)
		if err != nil {
			t.Fatal(err)
		}
		return u
	}
	encode := func(v []float32) []float32 {
		out, err := p.Apply(v)
		if err != nil {
			t.Fatal(err)
		}
		return out.ANN()
	}

	floats := make([][]float32, n)
	widened := make([][]float32, n)
	for i := range floats {
		floats[i] = unit()
		widened[i] = encode(floats[i])
	}

	var total float64
	const queries = 30
	for range queries {
		q := unit()
		want := vector.Exact(floats, 0, q, k, vector.MetricCosine)
		got := vector.Exact(widened, 0, encode(q), k, d.Metric())
		total += vector.Recall(got, want)
	}
	if avg := total / queries; avg < 0.9 {
		t.Errorf("byte-space agreement with cosine top-%d = %.2f, want >= 0.9", k, avg)
	}
}
