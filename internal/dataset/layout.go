package dataset

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/hyperjump/vecsearch/internal/vecstore"
	"github.com/hyperjump/vecsearch/internal/vector"
)

// File names inside a dataset directory.
const (
	DescriptorFile = "description.json"
	FeaturesFile   = "features.bin"
	MetadataFile   = "meta.json"
	MetadataDBFile = "meta.db"
)

// Layout resolves dataset file paths relative to Dir.
type Layout struct {
	Dir string
}

func (l Layout) Descriptor() string { return filepath.Join(l.Dir, DescriptorFile) }
func (l Layout) Features() string   { return filepath.Join(l.Dir, FeaturesFile) }
func (l Layout) Metadata() string   { return filepath.Join(l.Dir, MetadataFile) }
func (l Layout) MetadataDB() string { return filepath.Join(l.Dir, MetadataDBFile) }

// Index returns the index path for backend b.
func (l Layout) Index(b vector.Backend) string {
	return filepath.Join(l.Dir, vector.IndexFile(b))
}

// Files lists every file name a dataset may contain, for usage reports.
func (l Layout) Files() []string {
	return []string{
		DescriptorFile,
		FeaturesFile,
		MetadataFile,
		MetadataDBFile,
		vector.IndexFile(vector.BackendGraph),
		vector.IndexFile(vector.BackendHNSW),
	}
}

// Invalidate removes the descriptor and any built index from the dataset directory so
// that no reader pairs them with a store that is about to be replaced. The descriptor
// goes first. Missing files are ignored.
func (l Layout) Invalidate() error {
	paths := []string{
		l.Descriptor(),
		l.Index(vector.BackendGraph),
		l.Index(vector.BackendHNSW),
	}
	for _, path := range paths {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to invalidate %s: %w", path, err)
		}
	}
	return nil
}

// Elem returns the vector file element type recorded by d.
func Elem(d *Descriptor) vecstore.ElemType {
	return vecstore.ElemFor(d.Quantize)
}
