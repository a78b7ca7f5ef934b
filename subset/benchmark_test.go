package subset

import (
	"math/rand"
	"testing"

	"github.com/n0madic/go-abc/abc"
	"gonum.org/v1/gonum/mat"
)

func benchmarkSearch(b *testing.B, parallelism int) {
	const (
		n          = 500
		p          = 6
		numSamples = 25
	)
	rng := rand.New(rand.NewSource(1))
	data := mat.NewDense(n, p, nil)
	params := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		theta := rng.Float64()
		params.Set(i, 0, theta)
		data.Set(i, 0, theta+0.01*rng.NormFloat64())
		for j := 1; j < p; j++ {
			data.Set(i, j, rng.NormFloat64())
		}
	}
	table, err := abc.NewReferenceTable(data, params)
	if err != nil {
		b.Fatal(err)
	}
	s, err := New(table, true, WithParallelism(parallelism))
	if err != nil {
		b.Fatal(err)
	}
	query := mat.NewDense(1, p, []float64{0.5, 0, 0, 0, 0, 0})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, _, err := s.Sample(query, numSamples); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkSearchSequential(b *testing.B) { benchmarkSearch(b, 1) }
func BenchmarkSearchParallel(b *testing.B)   { benchmarkSearch(b, 4) }
