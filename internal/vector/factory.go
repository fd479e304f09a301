package vector

import (
	"fmt"
	"strings"
)

// ParseBackend maps a name to a Backend. "deglib" is accepted for datasets written
// by older tooling.
func ParseBackend(s string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "graph", "deglib":
		return BackendGraph, nil
	case "hnsw":
		return BackendHNSW, nil
	default:
		return "", fmt.Errorf("%w: %q (supported: graph, hnsw)", ErrUnknownBackend, s)
	}
}

// IndexFile returns the file name an index of backend b is stored under.
func IndexFile(b Backend) string {
	if b == BackendHNSW {
		return "index.hnsw"
	}
	return "index.deg"
}

// NewBuilder returns a builder for numSamples vectors of dim components.
func NewBuilder(backend Backend, dim, numSamples int, metric Metric, params Params) (Builder, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	if numSamples < 0 {
		return nil, fmt.Errorf("invalid sample count %d", numSamples)
	}
	params = params.withDefaults()
	switch backend {
	case BackendGraph:
		return newGraphBuilder(dim, numSamples, metric, params), nil
	case BackendHNSW:
		return newHNSWBuilder(dim, numSamples, metric, params), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
}

// Load opens a persisted index. Any failure is returned as *IndexLoadError.
func Load(backend Backend, path string, metric Metric, params Params) (Index, error) {
	params = params.withDefaults()
	var (
		idx Index
		err error
	)
	switch backend {
	case BackendGraph:
		idx, err = loadGraph(path, params)
	case BackendHNSW:
		idx, err = loadHNSW(path, params)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
	if err != nil {
		return nil, &IndexLoadError{Path: path, Err: err}
	}
	if idx.Metric() != metric {
		idx.Close()
		return nil, &IndexLoadError{Path: path, Err: fmt.Errorf("index metric %s, dataset expects %s", idx.Metric(), metric)}
	}
	return idx, nil
}

// labelCursor validates that Add receives contiguous labels.
type labelCursor struct {
	next uint32
	cap  int
}

func (c *labelCursor) advance(labels []uint32, n int) error {
	if len(labels) != n {
		return fmt.Errorf("labels and rows length mismatch: %d vs %d", len(labels), n)
	}
	for i, l := range labels {
		if l != c.next+uint32(i) {
			return fmt.Errorf("%w: got %d, want %d", ErrLabelOrder, l, c.next+uint32(i))
		}
	}
	if int(c.next)+n > c.cap {
		return fmt.Errorf("builder capacity %d exceeded", c.cap)
	}
	c.next += uint32(n)
	return nil
}
