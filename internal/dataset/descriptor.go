// Package dataset defines the on-disk layout of a dataset directory and its
// descriptor, the record that ties the vector file, metadata and index together.
package dataset

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hyperjump/vecsearch/internal/transform"
	"github.com/hyperjump/vecsearch/internal/vector"
)

// Descriptor field names as they appear in description.json.
const (
	FieldDim          = "dim"
	FieldNumSamples   = "num_samples"
	FieldEncoderID    = "encoder_id"
	FieldNormalize    = "normalize"
	FieldQuantize     = "quantize"
	FieldQuantizeMax  = "quantize_max"
	FieldIndexBackend = "index_backend"
	FieldChunkSize    = "chunk_size"
	FieldCreatedAt    = "created_at"
)

// BuildFields are required before an index can be built over the vector file.
var BuildFields = []string{FieldDim, FieldNumSamples, FieldNormalize, FieldQuantize}

// QueryFields are required before a dataset can be queried.
var QueryFields = []string{FieldDim, FieldNumSamples, FieldEncoderID, FieldNormalize, FieldQuantize, FieldIndexBackend}

// Descriptor is the contract between the build and query stages. It is the only
// source of the vector dimension and of the transforms applied to stored vectors.
type Descriptor struct {
	Dim          int            `json:"dim"`
	NumSamples   int            `json:"num_samples"`
	EncoderID    string         `json:"encoder_id"`
	Normalize    bool           `json:"normalize"`
	Quantize     bool           `json:"quantize"`
	QuantizeMax  float32        `json:"quantize_max,omitempty"`
	IndexBackend vector.Backend `json:"index_backend,omitempty"`
	ChunkSize    int            `json:"chunk_size,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`

	// present is nil for descriptors built in memory.
	present map[string]bool
}

// NormalizeEnabled, QuantizeEnabled and QuantizeRange expose the transform flags.
func (d *Descriptor) NormalizeEnabled() bool { return d.Normalize }

func (d *Descriptor) QuantizeEnabled() bool { return d.Quantize }

func (d *Descriptor) QuantizeRange() float32 {
	if d.QuantizeMax <= 0 {
		return transform.DefaultQuantizeMax
	}
	return d.QuantizeMax
}

// Pipeline returns the transforms recorded in d.
func (d *Descriptor) Pipeline() transform.Pipeline {
	return transform.FromDescriptor(d)
}

// Metric returns the distance metric implied by the normalize and quantize flags.
func (d *Descriptor) Metric() vector.Metric {
	return vector.MetricFor(d.Normalize, d.Quantize)
}

// Has reports whether field was present when the descriptor was read. For a
// descriptor constructed in memory it reports whether the field holds a value.
func (d *Descriptor) Has(field string) bool {
	if d.present != nil {
		return d.present[field]
	}
	switch field {
	case FieldDim:
		return d.Dim > 0
	case FieldEncoderID:
		return d.EncoderID != ""
	case FieldIndexBackend:
		return d.IndexBackend != ""
	case FieldQuantizeMax:
		return d.QuantizeMax > 0
	case FieldChunkSize:
		return d.ChunkSize > 0
	case FieldCreatedAt:
		return !d.CreatedAt.IsZero()
	default:
		return true
	}
}

// Require returns a *SchemaError for the first field that is absent.
func (d *Descriptor) Require(fields ...string) error {
	for _, f := range fields {
		if !d.Has(f) {
			return &SchemaError{Field: f}
		}
	}
	return nil
}

// UnmarshalJSON records which fields were present and accepts the key names used
// by older tooling ("model" for encoder_id, "index_type" for index_backend).
func (d *Descriptor) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if v, ok := raw["model"]; ok {
		if _, has := raw[FieldEncoderID]; !has {
			raw[FieldEncoderID] = v
		}
	}
	if v, ok := raw["index_type"]; ok {
		if _, has := raw[FieldIndexBackend]; !has {
			raw[FieldIndexBackend] = v
		}
	}

	type plain Descriptor
	var p plain
	present := make(map[string]bool, len(raw))
	for key, v := range raw {
		var target any
		switch key {
		case FieldDim:
			target = &p.Dim
		case FieldNumSamples:
			target = &p.NumSamples
		case FieldEncoderID:
			target = &p.EncoderID
		case FieldNormalize:
			target = &p.Normalize
		case FieldQuantize:
			target = &p.Quantize
		case FieldQuantizeMax:
			target = &p.QuantizeMax
		case FieldChunkSize:
			target = &p.ChunkSize
		case FieldCreatedAt:
			target = &p.CreatedAt
		case FieldIndexBackend:
			var s string
			if err := json.Unmarshal(v, &s); err != nil {
				return &FieldError{Field: key, Err: err}
			}
			b, err := vector.ParseBackend(s)
			if err != nil {
				return &FieldError{Field: key, Err: err}
			}
			p.IndexBackend = b
			present[key] = true
			continue
		default:
			continue
		}
		if string(v) == "null" {
			continue
		}
		if err := json.Unmarshal(v, target); err != nil {
			return &FieldError{Field: key, Err: err}
		}
		present[key] = true
	}
	*d = Descriptor(p)
	d.present = present
	return nil
}

// Validate checks the values of the fields that are present.
func (d *Descriptor) Validate() error {
	if d.Has(FieldDim) && d.Dim <= 0 {
		return &FieldError{Field: FieldDim, Err: fmt.Errorf("must be positive, got %d", d.Dim)}
	}
	if d.Has(FieldNumSamples) && d.NumSamples < 0 {
		return &FieldError{Field: FieldNumSamples, Err: fmt.Errorf("must not be negative, got %d", d.NumSamples)}
	}
	if d.Has(FieldQuantizeMax) && d.QuantizeMax < 0 {
		return &FieldError{Field: FieldQuantizeMax, Err: fmt.Errorf("must be positive, got %g", d.QuantizeMax)}
	}
	return nil
}

// ReadDescriptor loads description.json from dir.
func ReadDescriptor(dir string) (*Descriptor, error) {
	path := filepath.Join(dir, DescriptorFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissingDescriptor, path)
		}
		return nil, fmt.Errorf("failed to read descriptor: %w", err)
	}
	var d Descriptor
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("failed to parse descriptor %s: %w", path, err)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// WriteDescriptor atomically writes d as description.json in dir.
func WriteDescriptor(dir string, d *Descriptor) error {
	if err := d.Validate(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode descriptor: %w", err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(dir, DescriptorFile+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write descriptor: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync descriptor: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), filepath.Join(dir, DescriptorFile))
}
