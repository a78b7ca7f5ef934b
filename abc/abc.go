// Package abc provides the shared contracts and data model for approximate
// Bayesian computation (ABC): likelihood-free inference that approximates the
// posterior by retaining simulations whose data resemble the observation.
//
// The concrete samplers live in sibling packages (knn, subset, semi-auto) and
// all speak the same Algorithm interface defined here.
package abc

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Compressor maps raw data with p features per row to a summary
// representation with p' features per row. Compressors are pure: fitted (if
// at all) once before first use and stateless across calls.
type Compressor func(data *mat.Dense) (*mat.Dense, error)

// Algorithm is the interface implemented by all inference algorithms.
type Algorithm interface {
	// Sample draws posterior samples given the observed data.
	//
	// data is an (m x p) matrix of m independent observations, or a
	// p-length vector treated as a single observation. numSamples is the
	// number of posterior draws per observation.
	//
	// samples[i] is a (numSamples x q) matrix of parameter draws for
	// observation i. diag carries auxiliary diagnostic output; it is
	// purely observational and never consumed by the algorithms
	// themselves.
	Sample(data mat.Matrix, numSamples int) (samples []*mat.Dense, diag *Diagnostics, err error)

	// NumParams returns the number of model parameters q.
	NumParams() int
}

// CompressorProvider is implemented by algorithms able to expose a possibly
// data-dependent compression function.
type CompressorProvider interface {
	// Compressor returns a compression function. Static providers require
	// data to be nil; providers that only resolve compression per Sample
	// call return ErrCompressorUnsupported.
	Compressor(data *mat.Dense) (Compressor, error)
}

// Diagnostics carries auxiliary output produced alongside posterior samples.
// Consumers (plotting, reporting) only read it; no field feeds back into the
// inference itself. Fields not populated by a given algorithm are left zero.
type Diagnostics struct {
	// Indices[i] holds the reference table rows of the nearest neighbors
	// of observation i, in ascending distance order.
	Indices [][]int
	// Distances is the (m x numSamples) matrix of Euclidean distances
	// matching Indices.
	Distances *mat.Dense
	// CompressedData is the compressor output for the query batch.
	CompressedData *mat.Dense
	// BestMask[i] is the winning feature mask for observation i.
	BestMask [][]bool
	// BestLoss[i] is the loss achieved by BestMask[i].
	BestLoss []float64
	// Masks lists every evaluated feature mask in enumeration order.
	Masks [][]bool
	// Losses is the (len(Masks) x m) matrix of per-mask, per-observation
	// losses.
	Losses *mat.Dense
}

// AsBatch normalizes query input to an (m x p) batch. A vector of length
// numFeatures becomes a single-row batch; matrices are validated against
// numFeatures and copied so callers retain ownership of their input.
func AsBatch(data mat.Matrix, numFeatures int) (*mat.Dense, error) {
	if data == nil {
		return nil, fmt.Errorf("abc: nil query data")
	}
	if v, ok := data.(mat.Vector); ok {
		if v.Len() != numFeatures {
			return nil, &DimensionError{Expected: numFeatures, Actual: v.Len()}
		}
		row := make([]float64, numFeatures)
		for i := range row {
			row[i] = v.AtVec(i)
		}
		return mat.NewDense(1, numFeatures, row), nil
	}
	rows, cols := data.Dims()
	if cols != numFeatures {
		return nil, &DimensionError{Expected: numFeatures, Actual: cols}
	}
	if rows == 0 {
		return nil, fmt.Errorf("abc: empty query batch")
	}
	return mat.DenseCopyOf(data), nil
}
