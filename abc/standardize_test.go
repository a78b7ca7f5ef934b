package abc

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestStandardizerRoundTrip(t *testing.T) {
	const (
		rows = 50
		cols = 4
		tol  = 1e-12
	)
	rng := rand.New(rand.NewSource(7))
	data := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			data.Set(i, j, 10*rng.NormFloat64()+float64(j))
		}
	}

	s := FitStandardizer(data)
	transformed, err := s.Transform(data)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	restored, err := s.InverseTransform(transformed)
	if err != nil {
		t.Fatalf("InverseTransform: %v", err)
	}
	if !mat.EqualApprox(restored, data, tol) {
		t.Error("inverse transform does not reproduce the original data")
	}
}

func TestStandardizerStatistics(t *testing.T) {
	const tol = 1e-12
	data := mat.NewDense(4, 1, []float64{2, 4, 6, 8})
	s := FitStandardizer(data)
	transformed, err := s.Transform(data)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}

	// Mean 5, population standard deviation sqrt(5).
	want := []float64{-3, -1, 1, 3}
	sd := math.Sqrt(5)
	for i, w := range want {
		if got := transformed.At(i, 0); math.Abs(got-w/sd) > tol {
			t.Errorf("transformed[%d] = %v, want %v", i, got, w/sd)
		}
	}
}

func TestStandardizerConstantColumn(t *testing.T) {
	const tol = 1e-12
	data := mat.NewDense(3, 2, []float64{
		5, 1,
		5, 2,
		5, 3,
	})
	s := FitStandardizer(data)
	transformed, err := s.Transform(data)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	// A constant column is centered with unit scale, not divided by zero.
	for i := 0; i < 3; i++ {
		if got := transformed.At(i, 0); math.Abs(got) > tol {
			t.Errorf("constant column row %d = %v, want 0", i, got)
		}
	}
}

func TestStandardizerDimensionError(t *testing.T) {
	s := FitStandardizer(mat.NewDense(3, 2, nil))
	var dimErr *DimensionError
	if _, err := s.Transform(mat.NewDense(3, 5, nil)); !errors.As(err, &dimErr) {
		t.Errorf("Transform error = %v, want DimensionError", err)
	}
	if _, err := s.InverseTransform(mat.NewDense(3, 5, nil)); !errors.As(err, &dimErr) {
		t.Errorf("InverseTransform error = %v, want DimensionError", err)
	}
}
