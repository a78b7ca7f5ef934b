// Package semiauto implements semi-automatic approximate Bayesian
// computation: an ordinary least-squares regression of parameters on raw
// data features is fitted once, and its prediction function is used as the
// compressor of a nearest-neighbor sampler. The compressed feature space then
// has one dimension per parameter.
package semiauto

import (
	"fmt"
	"math"

	"github.com/n0madic/go-abc/abc"
	"github.com/n0madic/go-abc/knn"
	"gonum.org/v1/gonum/mat"
)

// Linear is a nearest-neighbor sampler whose compressor is a fitted linear
// map from p raw features to q parameters.
type Linear struct {
	*knn.Compressed
	coef        *mat.Dense // (p+1) x q; row 0 holds the intercepts
	rawFeatures int
}

var (
	_ abc.Algorithm          = (*Linear)(nil)
	_ abc.CompressorProvider = (*Linear)(nil)
)

// New fits the linear compressor on table and builds the composite sampler.
// All q parameters are fitted jointly with an intercept term. Standardization
// of the compressed features is usually unnecessary because the linear map
// already normalizes scale; pass standardize=true to override.
//
// Fitting fails with a numerical error when the design matrix is
// rank-deficient; degenerate coefficients are never returned silently.
func New(table *abc.ReferenceTable, standardize bool) (*Linear, error) {
	if table == nil {
		return nil, fmt.Errorf("semiauto: nil reference table")
	}
	n, p := table.Len(), table.NumFeatures()
	if n < p+1 {
		return nil, fmt.Errorf("semiauto: %d rows cannot determine %d regression coefficients", n, p+1)
	}

	design := mat.NewDense(n, p+1, nil)
	for i := 0; i < n; i++ {
		row := design.RawRowView(i)
		row[0] = 1
		copy(row[1:], table.Data().RawRowView(i))
	}

	var qr mat.QR
	qr.Factorize(design)

	// A vanishing diagonal in R signals a rank-deficient design; the
	// normal equations are singular and the fit must fail rather than
	// return degenerate coefficients.
	var r mat.Dense
	qr.RTo(&r)
	var minDiag, maxDiag float64
	for j := 0; j <= p; j++ {
		d := math.Abs(r.At(j, j))
		if j == 0 || d < minDiag {
			minDiag = d
		}
		if d > maxDiag {
			maxDiag = d
		}
	}
	if minDiag <= 1e-12*maxDiag {
		return nil, fmt.Errorf("semiauto: rank-deficient design matrix (singular normal equations)")
	}

	var coef mat.Dense
	if err := qr.SolveTo(&coef, false, table.Params()); err != nil {
		return nil, fmt.Errorf("semiauto: least-squares fit failed: %w", err)
	}

	a := &Linear{coef: &coef, rawFeatures: p}
	inner, err := knn.NewCompressed(table, a.predict, standardize)
	if err != nil {
		return nil, err
	}
	a.Compressed = inner
	return a, nil
}

// Predict applies the fitted linear map to an (m x p) batch of raw data,
// returning the (m x q) predicted parameters.
func (a *Linear) Predict(data *mat.Dense) (*mat.Dense, error) {
	return a.predict(data)
}

func (a *Linear) predict(data *mat.Dense) (*mat.Dense, error) {
	m, p := data.Dims()
	if p != a.rawFeatures {
		return nil, &abc.DimensionError{Expected: a.rawFeatures, Actual: p}
	}
	_, q := a.coef.Dims()
	out := mat.NewDense(m, q, nil)
	for i := 0; i < m; i++ {
		row := data.RawRowView(i)
		dst := out.RawRowView(i)
		for k := 0; k < q; k++ {
			v := a.coef.At(0, k)
			for j, x := range row {
				v += x * a.coef.At(j+1, k)
			}
			dst[k] = v
		}
	}
	return out, nil
}
