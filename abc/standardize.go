package abc

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Standardizer centers and scales features using statistics fitted once on a
// training matrix. It is read-only after FitStandardizer and safe to share.
type Standardizer struct {
	mean  []float64
	scale []float64
}

// FitStandardizer computes the per-column mean and population standard
// deviation of data. Constant columns get unit scale so they pass through
// centering unchanged.
func FitStandardizer(data *mat.Dense) *Standardizer {
	n, p := data.Dims()
	s := &Standardizer{
		mean:  make([]float64, p),
		scale: make([]float64, p),
	}
	col := make([]float64, n)
	for j := 0; j < p; j++ {
		mat.Col(col, j, data)
		s.mean[j] = stat.Mean(col, nil)
		sd := stat.PopStdDev(col, nil)
		if sd == 0 {
			sd = 1
		}
		s.scale[j] = sd
	}
	return s
}

// NumFeatures returns the number of features the standardizer was fitted on.
func (s *Standardizer) NumFeatures() int { return len(s.mean) }

// Transform returns a centered and scaled copy of data.
func (s *Standardizer) Transform(data *mat.Dense) (*mat.Dense, error) {
	m, p := data.Dims()
	if p != len(s.mean) {
		return nil, &DimensionError{Expected: len(s.mean), Actual: p}
	}
	out := mat.NewDense(m, p, nil)
	for i := 0; i < m; i++ {
		src := data.RawRowView(i)
		dst := out.RawRowView(i)
		for j := range src {
			dst[j] = (src[j] - s.mean[j]) / s.scale[j]
		}
	}
	return out, nil
}

// InverseTransform undoes Transform.
func (s *Standardizer) InverseTransform(data *mat.Dense) (*mat.Dense, error) {
	m, p := data.Dims()
	if p != len(s.mean) {
		return nil, &DimensionError{Expected: len(s.mean), Actual: p}
	}
	out := mat.NewDense(m, p, nil)
	for i := 0; i < m; i++ {
		src := data.RawRowView(i)
		dst := out.RawRowView(i)
		for j := range src {
			dst[j] = src[j]*s.scale[j] + s.mean[j]
		}
	}
	return out, nil
}
