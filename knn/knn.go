// Package knn implements distance-based posterior sampling for approximate
// Bayesian computation: a reference table of simulated (data, parameter)
// pairs is wrapped in a kd-tree, and posterior samples for an observation are
// the parameter rows of its nearest simulations in feature space.
//
// The tree is built once at construction in O(n log n); queries cost
// O(log n) amortized per observation and neighbor. All state is read-only
// after construction, so a sampler may serve concurrent callers.
package knn

import (
	"fmt"

	"github.com/n0madic/go-abc/abc"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/kdtree"
)

// NearestNeighbor draws posterior samples by Euclidean nearest-neighbor
// matching against a reference table.
type NearestNeighbor struct {
	table  *abc.ReferenceTable
	scaler *abc.Standardizer // nil when standardization is disabled
	tree   *kdtree.Tree
}

var (
	_ abc.Algorithm = (*NearestNeighbor)(nil)
)

// New builds a sampler over table. When standardize is true, a per-feature
// standardizer is fitted on the table's data and applied to the indexed
// features and to every query.
func New(table *abc.ReferenceTable, standardize bool) (*NearestNeighbor, error) {
	if table == nil {
		return nil, fmt.Errorf("knn: nil reference table")
	}
	a := &NearestNeighbor{table: table}
	indexed := table.Data()
	if standardize {
		a.scaler = abc.FitStandardizer(indexed)
		transformed, err := a.scaler.Transform(indexed)
		if err != nil {
			return nil, err
		}
		indexed = transformed
	}
	a.tree = buildTree(indexed)
	return a, nil
}

// NumParams returns the number of model parameters q.
func (a *NearestNeighbor) NumParams() int { return a.table.NumParams() }

// Standardizer returns the fitted standardizer, or nil when standardization
// is disabled.
func (a *NearestNeighbor) Standardizer() *abc.Standardizer { return a.scaler }

// Sample returns, for each observation, the parameter rows of the numSamples
// nearest reference entries ordered by increasing distance. Diagnostics carry
// the neighbor indices and distances.
func (a *NearestNeighbor) Sample(data mat.Matrix, numSamples int) ([]*mat.Dense, *abc.Diagnostics, error) {
	batch, err := abc.AsBatch(data, a.table.NumFeatures())
	if err != nil {
		return nil, nil, err
	}
	n := a.table.Len()
	if numSamples < 1 || numSamples > n {
		return nil, nil, fmt.Errorf("%w: %d (reference table has %d rows)", abc.ErrInvalidNumSamples, numSamples, n)
	}
	if a.scaler != nil {
		batch, err = a.scaler.Transform(batch)
		if err != nil {
			return nil, nil, err
		}
	}

	m, _ := batch.Dims()
	samples := make([]*mat.Dense, m)
	indices := make([][]int, m)
	distances := mat.NewDense(m, numSamples, nil)
	for i := 0; i < m; i++ {
		neighbors := nearest(a.tree, batch.RawRowView(i), numSamples)
		rows := make([]int, len(neighbors))
		for j, nb := range neighbors {
			rows[j] = nb.row
			distances.Set(i, j, nb.dist)
		}
		indices[i] = rows
		samples[i] = a.table.ParamRows(rows)
	}

	return samples, &abc.Diagnostics{Indices: indices, Distances: distances}, nil
}
