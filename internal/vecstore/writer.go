package vecstore

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
)

// Writer appends vectors to a store file. Output goes to a temporary file in the same
// directory and is renamed into place by Close.
type Writer struct {
	path  string
	tmp   *os.File
	buf   *bufio.Writer
	dim   int
	elem  ElemType
	count int
	row   []byte
}

// Create starts a new store at path.
func Create(path string, dim int, elem ElemType) (*Writer, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("invalid dimension %d", dim)
	}
	if elem != Float32 && elem != Uint8 {
		return nil, fmt.Errorf("%w: %s", ErrElemType, elem)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	return &Writer{
		path: path,
		tmp:  tmp,
		buf:  bufio.NewWriterSize(tmp, 256*1024),
		dim:  dim,
		elem: elem,
		row:  make([]byte, dim*elem.Size()),
	}, nil
}

// Dim returns the row dimension.
func (w *Writer) Dim() int { return w.dim }

// Count returns the number of rows written so far.
func (w *Writer) Count() int { return w.count }

// WriteChunk appends float32 rows.
func (w *Writer) WriteChunk(rows [][]float32) error {
	if w.tmp == nil {
		return ErrClosed
	}
	if w.elem != Float32 {
		return fmt.Errorf("%w: store holds %s, got float32 rows", ErrElemType, w.elem)
	}
	for i, r := range rows {
		if len(r) != w.dim {
			return fmt.Errorf("%w: row %d has %d components, want %d", ErrDimensionMismatch, w.count+i, len(r), w.dim)
		}
	}
	for _, r := range rows {
		for j, x := range r {
			binary.LittleEndian.PutUint32(w.row[j*4:], math.Float32bits(x))
		}
		if _, err := w.buf.Write(w.row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", w.count, err)
		}
		w.count++
	}
	return nil
}

// WriteQuantizedChunk appends uint8 rows.
func (w *Writer) WriteQuantizedChunk(rows [][]uint8) error {
	if w.tmp == nil {
		return ErrClosed
	}
	if w.elem != Uint8 {
		return fmt.Errorf("%w: store holds %s, got uint8 rows", ErrElemType, w.elem)
	}
	for i, r := range rows {
		if len(r) != w.dim {
			return fmt.Errorf("%w: row %d has %d components, want %d", ErrDimensionMismatch, w.count+i, len(r), w.dim)
		}
	}
	for _, r := range rows {
		if _, err := w.buf.Write(r); err != nil {
			return fmt.Errorf("failed to write row %d: %w", w.count, err)
		}
		w.count++
	}
	return nil
}

// Close flushes, syncs and renames the store into place.
func (w *Writer) Close() error {
	if w.tmp == nil {
		return nil
	}
	tmp := w.tmp
	w.tmp = nil

	if err := w.buf.Flush(); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to flush: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close: %w", err)
	}
	if err := os.Rename(tmp.Name(), w.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to rename: %w", err)
	}
	return nil
}

// Abort discards everything written. It is a no-op after Close.
func (w *Writer) Abort() {
	if w.tmp == nil {
		return
	}
	w.tmp.Close()
	os.Remove(w.tmp.Name())
	w.tmp = nil
}
