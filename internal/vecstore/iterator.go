package vecstore

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
)

// Chunk is a contiguous run of rows starting at Offset. Exactly one of Rows or
// Quantized is populated, depending on the store element type.
type Chunk struct {
	Offset    int
	Rows      [][]float32
	Quantized [][]uint8
}

// Len returns the number of rows in the chunk.
func (c Chunk) Len() int {
	if c.Quantized != nil {
		return len(c.Quantized)
	}
	return len(c.Rows)
}

// Float returns the chunk rows as float32, widening quantized components.
func (c Chunk) Float() [][]float32 {
	if c.Quantized == nil {
		return c.Rows
	}
	out := make([][]float32, len(c.Quantized))
	for i, q := range c.Quantized {
		f := make([]float32, len(q))
		for j, b := range q {
			f[j] = float32(b)
		}
		out[i] = f
	}
	return out
}

// Iterator reads a store sequentially in fixed-size chunks.
type Iterator struct {
	f         *os.File
	r         *bufio.Reader
	dim       int
	n         int
	elem      ElemType
	chunkSize int
	offset    int
	cur       Chunk
	err       error
	raw       []byte
}

// Open returns an iterator over numSamples vectors of dim components. A chunkSize of
// zero selects DefaultChunkSize.
func Open(path string, dim, numSamples int, elem ElemType, chunkSize int) (*Iterator, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("invalid dimension %d", dim)
	}
	if numSamples < 0 {
		return nil, fmt.Errorf("invalid sample count %d", numSamples)
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open vector file: %w", err)
	}
	return &Iterator{
		f:         f,
		r:         bufio.NewReaderSize(f, 256*1024),
		dim:       dim,
		n:         numSamples,
		elem:      elem,
		chunkSize: chunkSize,
		raw:       make([]byte, dim*elem.Size()),
	}, nil
}

// Next advances to the next chunk. It returns false at the end of the sequence or on
// error; check Err to tell them apart.
func (it *Iterator) Next() bool {
	if it.err != nil || it.f == nil || it.offset >= it.n {
		return false
	}
	size := min(it.chunkSize, it.n-it.offset)
	c := Chunk{Offset: it.offset}
	if it.elem == Uint8 {
		c.Quantized = make([][]uint8, size)
	} else {
		c.Rows = make([][]float32, size)
	}
	for i := 0; i < size; i++ {
		if _, err := io.ReadFull(it.r, it.raw); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				it.err = fmt.Errorf("%w: row %d of %d", ErrShortRead, it.offset+i, it.n)
			} else {
				it.err = fmt.Errorf("failed to read row %d: %w", it.offset+i, err)
			}
			return false
		}
		if it.elem == Uint8 {
			row := make([]uint8, it.dim)
			copy(row, it.raw)
			c.Quantized[i] = row
			continue
		}
		row := make([]float32, it.dim)
		for j := range row {
			row[j] = math.Float32frombits(binary.LittleEndian.Uint32(it.raw[j*4:]))
		}
		c.Rows[i] = row
	}
	it.offset += size
	it.cur = c
	return true
}

// Chunk returns the chunk produced by the last successful Next.
func (it *Iterator) Chunk() Chunk { return it.cur }

// Err returns the first error encountered, or nil at a clean end of sequence.
func (it *Iterator) Err() error { return it.err }

// Close releases the file handle.
func (it *Iterator) Close() error {
	if it.f == nil {
		return nil
	}
	err := it.f.Close()
	it.f = nil
	return err
}
