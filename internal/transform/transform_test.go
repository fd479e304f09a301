package transform

import (
	"errors"
	"math"
	"testing"
)

type flags struct {
	norm, quant bool
	max         float32
}

func (f flags) NormalizeEnabled() bool { return f.norm }
func (f flags) QuantizeEnabled() bool  { return f.quant }
func (f flags) QuantizeRange() float32 { return f.max }

func TestNormalizeVector(t *testing.T) {
	tests := []struct {
		name string
		in   []float32
	}{
		{"axis", []float32{3, 0, 0}},
		{"mixed", []float32{1, -2, 3, -4}},
		{"small", []float32{1e-3, 2e-3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := NormalizeVector(tt.in)
			if err != nil {
				t.Fatalf("NormalizeVector: %v", err)
			}
			var sum float64
			for _, x := range out {
				sum += float64(x) * float64(x)
			}
			if math.Abs(math.Sqrt(sum)-1) > 1e-5 {
				t.Errorf("norm = %f, want 1", math.Sqrt(sum))
			}
		})
	}
}

func TestNormalizeDoesNotMutateInput(t *testing.T) {
	in := []float32{3, 4}
	if _, err := NormalizeVector(in); err != nil {
		t.Fatal(err)
	}
	if in[0] != 3 || in[1] != 4 {
		t.Errorf("input modified: %v", in)
	}
}

func TestNormalizeZeroVector(t *testing.T) {
	_, err := Normalize([][]float32{{1, 0}, {0, 0}})
	if !errors.Is(err, ErrZeroVector) {
		t.Fatalf("err = %v, want ErrZeroVector", err)
	}
	var rowErr *RowError
	if !errors.As(err, &rowErr) || rowErr.Row != 1 {
		t.Errorf("err = %v, want RowError for row 1", err)
	}
}

func TestQuantizeRoundTrip(t *testing.T) {
	const max = 0.4
	in := []float32{-0.4, -0.31, -0.1, 0, 0.05, 0.2, 0.399, 0.4}
	q := QuantizeVector(in, max)
	back := Dequantize(q, max)
	step := Step(max)
	for i := range in {
		if d := math.Abs(float64(in[i] - back[i])); d > float64(step)+1e-6 {
			t.Errorf("component %d: |%f - %f| = %f > step %f", i, in[i], back[i], d, step)
		}
	}
}

func TestQuantizeSaturates(t *testing.T) {
	q := QuantizeVector([]float32{-10, 10, 0}, 0.4)
	if q[0] != 0 || q[1] != 255 {
		t.Errorf("got %v, want saturation at 0 and 255", q)
	}
	if q[2] != 128 {
		// (0+0.4)/0.8*255 = 127.5 rounds half away from zero
		t.Errorf("zero maps to %d, want 128", q[2])
	}
}

func TestQuantizeInvalidRange(t *testing.T) {
	in := []float32{-0.4, 0, 0.4}
	want := QuantizeVector(in, DefaultQuantizeMax)
	for _, maxVal := range []float32{0, -1, float32(math.NaN()), float32(math.Inf(1))} {
		got := QuantizeVector(in, maxVal)
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("max %v: got %v, want %v", maxVal, got, want)
				break
			}
		}
		if s := Step(maxVal); s != Step(DefaultQuantizeMax) {
			t.Errorf("Step(%v) = %v", maxVal, s)
		}
	}

	q := QuantizeVector([]float32{float32(math.NaN())}, 0.4)
	if q[0] != 0 {
		t.Errorf("NaN maps to %d, want 0", q[0])
	}
}

func TestPipelineApply(t *testing.T) {
	tests := []struct {
		name      string
		f         flags
		quantized bool
	}{
		{"raw", flags{}, false},
		{"normalize", flags{norm: true}, false},
		{"quantize", flags{quant: true, max: 4}, true},
		{"both", flags{norm: true, quant: true}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := FromDescriptor(tt.f)
			v, err := p.Apply([]float32{0.3, 0.4})
			if err != nil {
				t.Fatal(err)
			}
			if v.Quantized() != tt.quantized {
				t.Errorf("Quantized() = %v, want %v", v.Quantized(), tt.quantized)
			}
			if v.Len() != 2 || len(v.ANN()) != 2 {
				t.Errorf("Len = %d, ANN len = %d", v.Len(), len(v.ANN()))
			}
		})
	}
}

func TestPipelineDefaultRange(t *testing.T) {
	p := FromDescriptor(flags{quant: true})
	if p.QuantizeMax() != DefaultQuantizeMax {
		t.Errorf("QuantizeMax = %f, want %f", p.QuantizeMax(), DefaultQuantizeMax)
	}
}

func TestApplyBatchMatchesApply(t *testing.T) {
	p := FromDescriptor(flags{norm: true, quant: true, max: 0.4})
	rows := [][]float32{{1, 2, 3}, {-1, 0, 1}}
	_, batch, err := p.ApplyBatch(rows)
	if err != nil {
		t.Fatal(err)
	}
	for i, row := range rows {
		v, err := p.Apply(row)
		if err != nil {
			t.Fatal(err)
		}
		for j := range v.Bytes {
			if v.Bytes[j] != batch[i][j] {
				t.Fatalf("row %d differs: %v vs %v", i, v.Bytes, batch[i])
			}
		}
	}
}
