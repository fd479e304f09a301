package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/hyperjump/vecsearch/internal/metadata"
)

func TestSQLiteStorage_Entries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "meta.db")
	store, err := NewSQLiteStorage(path)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	ctx := context.Background()

	entries := []metadata.Entry{
		{Title: "Berlin", Link: "https://de.wikipedia.org/wiki/Berlin", Views: 10},
		{Title: "Bern", Link: "https://de.wikipedia.org/wiki/Bern", Views: 30},
		{Title: "Hamburg", Link: "https://de.wikipedia.org/wiki/Hamburg", Views: 20},
	}
	if err := store.ReplaceEntries(ctx, entries); err != nil {
		t.Fatal(err)
	}

	got, err := store.GetEntry(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if got != entries[2] {
		t.Errorf("GetEntry(2) = %+v, want %+v", got, entries[2])
	}
	if _, err := store.GetEntry(ctx, 3); !errors.Is(err, metadata.ErrUnknownOrdinal) {
		t.Errorf("GetEntry(3) err = %v, want ErrUnknownOrdinal", err)
	}

	n, err := store.CountEntries(ctx)
	if err != nil || n != 3 {
		t.Errorf("CountEntries = %d, %v", n, err)
	}

	table, err := store.LoadTable(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if table.Len() != 3 {
		t.Fatalf("LoadTable Len = %d", table.Len())
	}
	for i, e := range table.Entries() {
		if e != entries[i] {
			t.Errorf("entry %d = %+v, want %+v", i, e, entries[i])
		}
	}

	ids, err := store.SearchTitles(ctx, "be", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 2 || ids[0] != 1 || ids[1] != 0 {
		t.Errorf("SearchTitles(be) = %v, want [1 0]", ids)
	}
}

func TestSQLiteStorage_ReplaceDropsOldRows(t *testing.T) {
	store, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "meta.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	ctx := context.Background()

	if err := store.ReplaceEntries(ctx, []metadata.Entry{{Title: "a"}, {Title: "b"}}); err != nil {
		t.Fatal(err)
	}
	if err := store.ReplaceEntries(ctx, []metadata.Entry{{Title: "c"}}); err != nil {
		t.Fatal(err)
	}
	n, _ := store.CountEntries(ctx)
	if n != 1 {
		t.Errorf("CountEntries = %d, want 1", n)
	}
}

func TestSearchTitlesEscapesWildcards(t *testing.T) {
	store, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "meta.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	ctx := context.Background()

	if err := store.ReplaceEntries(ctx, []metadata.Entry{{Title: "100%"}, {Title: "1000"}}); err != nil {
		t.Fatal(err)
	}
	ids, err := store.SearchTitles(ctx, "100%", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 1 || ids[0] != 0 {
		t.Errorf("SearchTitles(100%%) = %v, want [0]", ids)
	}
}
