// Package entropy estimates differential entropy from samples using the
// Kozachenko-Leonenko nearest-neighbor estimator.
package entropy

import (
	"errors"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/mathext"
	"gonum.org/v1/gonum/spatial/kdtree"
)

// Estimate returns the Kozachenko-Leonenko estimate of the differential
// entropy (in nats) of the distribution underlying points, an (m x d) matrix
// of samples.
//
// The estimator is deterministic given points. At least two samples are
// required. Duplicate points produce a -Inf estimate, reflecting a
// degenerate, perfectly concentrated sample set.
func Estimate(points *mat.Dense) (float64, error) {
	if points == nil {
		return 0, errors.New("entropy: nil sample matrix")
	}
	m, d := points.Dims()
	if m < 2 {
		return 0, errors.New("entropy: need at least two samples")
	}

	ps := make(kdtree.Points, m)
	for i := 0; i < m; i++ {
		ps[i] = kdtree.Point(points.RawRowView(i))
	}
	tree := kdtree.New(ps, false)

	// Sum of log nearest-neighbor distances, excluding each point itself.
	var sumLog float64
	for i := 0; i < m; i++ {
		keeper := kdtree.NewNKeeper(2)
		tree.NearestSet(keeper, ps[i])

		dists := make([]float64, 0, 2)
		for _, cd := range keeper.Heap {
			if cd.Comparable == nil {
				continue
			}
			dists = append(dists, cd.Dist)
		}
		sort.Float64s(dists)
		// The nearest hit is the query point itself at distance zero;
		// the second entry is the true neighbor. kdtree distances are
		// squared.
		r := math.Sqrt(dists[len(dists)-1])
		sumLog += math.Log(r)
	}

	dim := float64(d)
	logUnitBallVolume := dim/2*math.Log(math.Pi) - lgamma(dim/2+1)
	return mathext.Digamma(float64(m)) - mathext.Digamma(1) + logUnitBallVolume + dim/float64(m)*sumLog, nil
}

func lgamma(x float64) float64 {
	v, _ := math.Lgamma(x)
	return v
}
