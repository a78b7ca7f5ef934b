package knn

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/kdtree"
)

// rowPoint is a kd-tree node that remembers which reference table row it
// came from.
type rowPoint struct {
	vec []float64
	row int
}

func (p rowPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(rowPoint)
	return p.vec[d] - q.vec[d]
}

func (p rowPoint) Dims() int { return len(p.vec) }

// Distance returns the squared Euclidean distance, matching the convention
// of kdtree.Point.
func (p rowPoint) Distance(c kdtree.Comparable) float64 {
	q := c.(rowPoint)
	var sum float64
	for i, v := range p.vec {
		d := v - q.vec[i]
		sum += d * d
	}
	return sum
}

// rowPoints implements kdtree.Interface over a set of rowPoint values.
type rowPoints []rowPoint

func (p rowPoints) Index(i int) kdtree.Comparable { return p[i] }
func (p rowPoints) Len() int                      { return len(p) }
func (p rowPoints) Pivot(d kdtree.Dim) int        { return rowPlane{rowPoints: p, Dim: d}.Pivot() }
func (p rowPoints) Slice(start, end int) kdtree.Interface {
	return p[start:end]
}

// rowPlane is the sorting construct used during tree building, following the
// kdtree.Plane pattern.
type rowPlane struct {
	rowPoints
	kdtree.Dim
}

func (p rowPlane) Less(i, j int) bool {
	return p.rowPoints[i].vec[p.Dim] < p.rowPoints[j].vec[p.Dim]
}

func (p rowPlane) Pivot() int { return kdtree.Partition(p, kdtree.MedianOfMedians(p)) }

func (p rowPlane) Slice(start, end int) kdtree.SortSlicer {
	p.rowPoints = p.rowPoints[start:end]
	return p
}

func (p rowPlane) Swap(i, j int) {
	p.rowPoints[i], p.rowPoints[j] = p.rowPoints[j], p.rowPoints[i]
}

// buildTree indexes the rows of data. The tree is read-only once built and
// may be queried concurrently.
func buildTree(data *mat.Dense) *kdtree.Tree {
	n, _ := data.Dims()
	points := make(rowPoints, n)
	for i := 0; i < n; i++ {
		points[i] = rowPoint{vec: data.RawRowView(i), row: i}
	}
	return kdtree.New(points, false)
}

// neighbor pairs a reference table row with its Euclidean distance to the
// query.
type neighbor struct {
	row  int
	dist float64
}

// nearest returns the k nearest rows to query in ascending distance order.
// Exact distance ties are broken by row index for determinism.
func nearest(tree *kdtree.Tree, query []float64, k int) []neighbor {
	keeper := kdtree.NewNKeeper(k)
	tree.NearestSet(keeper, rowPoint{vec: query, row: -1})

	out := make([]neighbor, 0, k)
	for _, cd := range keeper.Heap {
		if cd.Comparable == nil {
			continue
		}
		p := cd.Comparable.(rowPoint)
		out = append(out, neighbor{row: p.row, dist: math.Sqrt(cd.Dist)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].dist != out[j].dist {
			return out[i].dist < out[j].dist
		}
		return out[i].row < out[j].row
	})
	return out
}
