package vecstore

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"

	"github.com/edsrzf/mmap-go"
)

// MmapReader gives random access to stored vectors through a read-only mapping.
type MmapReader struct {
	f    *os.File
	data mmap.MMap
	dim  int
	n    int
	elem ElemType
}

// OpenMmap maps the store at path. The file size must equal numSamples*dim*elem.
func OpenMmap(path string, dim, numSamples int, elem ElemType) (*MmapReader, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("invalid dimension %d", dim)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open vector file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat vector file: %w", err)
	}
	want := ExpectedSize(numSamples, dim, elem)
	if info.Size() != want {
		f.Close()
		return nil, fmt.Errorf("%w: %d bytes, want %d", ErrSizeMismatch, info.Size(), want)
	}
	r := &MmapReader{f: f, dim: dim, n: numSamples, elem: elem}
	if want == 0 {
		return r, nil
	}
	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to map vector file: %w", err)
	}
	r.data = m
	return r, nil
}

// Len returns the number of vectors.
func (r *MmapReader) Len() int { return r.n }

// Dim returns the vector dimension.
func (r *MmapReader) Dim() int { return r.dim }

// Elem returns the stored element type.
func (r *MmapReader) Elem() ElemType { return r.elem }

func (r *MmapReader) span(i int) ([]byte, error) {
	if r.f == nil {
		return nil, ErrClosed
	}
	if i < 0 || i >= r.n {
		return nil, fmt.Errorf("%w: %d not in [0,%d)", ErrOutOfRange, i, r.n)
	}
	width := r.dim * r.elem.Size()
	return r.data[i*width : (i+1)*width], nil
}

// Vector returns a copy of vector i as float32. Quantized components are widened.
func (r *MmapReader) Vector(i int) ([]float32, error) {
	b, err := r.span(i)
	if err != nil {
		return nil, err
	}
	out := make([]float32, r.dim)
	if r.elem == Uint8 {
		for j, x := range b {
			out[j] = float32(x)
		}
		return out, nil
	}
	for j := range out {
		out[j] = math.Float32frombits(binary.LittleEndian.Uint32(b[j*4:]))
	}
	return out, nil
}

// Quantized returns a copy of vector i from a uint8 store.
func (r *MmapReader) Quantized(i int) ([]uint8, error) {
	if r.elem != Uint8 {
		return nil, fmt.Errorf("%w: store holds %s", ErrElemType, r.elem)
	}
	b, err := r.span(i)
	if err != nil {
		return nil, err
	}
	out := make([]uint8, len(b))
	copy(out, b)
	return out, nil
}

// Close unmaps the file and closes it.
func (r *MmapReader) Close() error {
	if r.data != nil {
		if err := r.data.Unmap(); err != nil {
			return err
		}
		r.data = nil
	}
	if r.f != nil {
		err := r.f.Close()
		r.f = nil
		return err
	}
	return nil
}
