// Package storage persists dataset metadata outside the JSON table and reports disk
// usage of dataset files.
package storage

import (
	"context"

	"github.com/hyperjump/vecsearch/internal/metadata"
)

// MetadataStore persists metadata entries keyed by ordinal.
type MetadataStore interface {
	// ReplaceEntries drops existing rows and writes entries as ordinals 0..len-1.
	ReplaceEntries(ctx context.Context, entries []metadata.Entry) error
	GetEntry(ctx context.Context, ordinal int) (metadata.Entry, error)
	// LoadTable reads every entry in ordinal order.
	LoadTable(ctx context.Context) (*metadata.Table, error)
	CountEntries(ctx context.Context) (int64, error)
	// SearchTitles returns ordinals whose title starts with prefix, case-insensitively.
	SearchTitles(ctx context.Context, prefix string, limit int) ([]int, error)
	Close() error
}
