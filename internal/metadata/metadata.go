// Package metadata maps dataset ordinals to the human-facing record of each item.
package metadata

import (
	"errors"
	"fmt"
)

// ErrUnknownOrdinal is returned for an ordinal outside [0, Len()).
var ErrUnknownOrdinal = errors.New("unknown ordinal")

// Entry is the record stored for one vector. Its ordinal is its position in the table.
type Entry struct {
	Title string `json:"title"`
	Link  string `json:"link"`
	Views int64  `json:"views"`
}

// Table is an immutable, ordered list of entries.
type Table struct {
	entries []Entry
}

// NewTable wraps entries. The slice is owned by the table afterwards.
func NewTable(entries []Entry) *Table {
	return &Table{entries: entries}
}

// Len returns the number of entries.
func (t *Table) Len() int { return len(t.entries) }

// Resolve returns the entry at ordinal.
func (t *Table) Resolve(ordinal int) (Entry, error) {
	if ordinal < 0 || ordinal >= len(t.entries) {
		return Entry{}, fmt.Errorf("%w: %d not in [0,%d)", ErrUnknownOrdinal, ordinal, len(t.entries))
	}
	return t.entries[ordinal], nil
}

// Entries returns the backing slice. Callers must not modify it.
func (t *Table) Entries() []Entry { return t.entries }

// Builder appends entries during ingestion, in the same order vectors are written.
type Builder struct {
	entries []Entry
}

// Append adds e and returns its ordinal.
func (b *Builder) Append(e Entry) int {
	b.entries = append(b.entries, e)
	return len(b.entries) - 1
}

// Len returns the number of entries appended.
func (b *Builder) Len() int { return len(b.entries) }

// Table returns the entries appended so far.
func (b *Builder) Table() *Table {
	out := make([]Entry, len(b.entries))
	copy(out, b.entries)
	return NewTable(out)
}
