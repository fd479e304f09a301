package metadata

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// SaveJSON writes the table as a JSON list in ordinal order. The file is written
// to a temp path and renamed into place.
func SaveJSON(path string, t *Table) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriterSize(tmp, 256*1024)
	if _, err := w.WriteString("["); err != nil {
		tmp.Close()
		return err
	}
	for i, e := range t.entries {
		if i > 0 {
			w.WriteString(",")
		}
		b, err := json.Marshal(e)
		if err != nil {
			tmp.Close()
			return fmt.Errorf("failed to encode entry %d: %w", i, err)
		}
		w.Write(b)
	}
	w.WriteString("]\n")
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write metadata: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// LoadJSON reads a table written by SaveJSON. Entries are decoded one at a time.
func LoadJSON(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := json.NewDecoder(bufio.NewReaderSize(f, 256*1024))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '[' {
		return nil, fmt.Errorf("metadata must be a JSON list")
	}
	var entries []Entry
	for dec.More() {
		var e Entry
		if err := dec.Decode(&e); err != nil {
			return nil, fmt.Errorf("failed to decode entry %d: %w", len(entries), err)
		}
		entries = append(entries, e)
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}
	return NewTable(entries), nil
}
