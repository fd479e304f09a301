package transform

// Flags is the subset of a dataset descriptor that decides which transforms apply.
type Flags interface {
	NormalizeEnabled() bool
	QuantizeEnabled() bool
	QuantizeRange() float32
}

// Pipeline applies the transforms recorded for a dataset. Its fields are unexported so
// the only way to obtain one is from a descriptor; build and query therefore cannot
// diverge.
type Pipeline struct {
	normalize   bool
	quantize    bool
	quantizeMax float32
}

// FromDescriptor returns the pipeline recorded in f.
func FromDescriptor(f Flags) Pipeline {
	max := f.QuantizeRange()
	if max <= 0 {
		max = DefaultQuantizeMax
	}
	return Pipeline{
		normalize:   f.NormalizeEnabled(),
		quantize:    f.QuantizeEnabled(),
		quantizeMax: max,
	}
}

func (p Pipeline) Normalize() bool      { return p.normalize }
func (p Pipeline) Quantize() bool       { return p.quantize }
func (p Pipeline) QuantizeMax() float32 { return p.quantizeMax }

// Vector is the output of a Pipeline: exactly one of Float or Bytes is set.
type Vector struct {
	Float []float32
	Bytes []uint8
}

// Quantized reports whether the payload is uint8.
func (v Vector) Quantized() bool { return v.Bytes != nil }

// Len returns the number of components.
func (v Vector) Len() int {
	if v.Bytes != nil {
		return len(v.Bytes)
	}
	return len(v.Float)
}

// ANN returns the representation handed to index backends. Quantized vectors are
// widened so distance is computed in byte space.
func (v Vector) ANN() []float32 {
	if v.Bytes != nil {
		return BytesToFloat32(v.Bytes)
	}
	return v.Float
}

// Apply transforms a single vector.
func (p Pipeline) Apply(v []float32) (Vector, error) {
	out := v
	if p.normalize {
		n, err := NormalizeVector(v)
		if err != nil {
			return Vector{}, err
		}
		out = n
	}
	if p.quantize {
		return Vector{Bytes: QuantizeVector(out, p.quantizeMax)}, nil
	}
	return Vector{Float: out}, nil
}

// ApplyBatch transforms rows and returns them split by payload type. Only one of the
// returned slices is non-nil.
func (p Pipeline) ApplyBatch(rows [][]float32) ([][]float32, [][]uint8, error) {
	in := rows
	if p.normalize {
		n, err := Normalize(rows)
		if err != nil {
			return nil, nil, err
		}
		in = n
	}
	if p.quantize {
		return nil, Quantize(in, p.quantizeMax), nil
	}
	return in, nil, nil
}
