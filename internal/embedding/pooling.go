package embedding

// MeanPool averages token vectors of dimension dim whose attention mask is set.
// hidden is laid out [token][dim]. An all-zero mask yields a zero vector.
func MeanPool(hidden []float32, mask []int64, dim int) []float32 {
	out := make([]float32, dim)
	var count float32
	for t, m := range mask {
		if m == 0 {
			continue
		}
		if (t+1)*dim > len(hidden) {
			break
		}
		row := hidden[t*dim : (t+1)*dim]
		for j, v := range row {
			out[j] += v
		}
		count++
	}
	if count == 0 {
		return out
	}
	for j := range out {
		out[j] /= count
	}
	return out
}
