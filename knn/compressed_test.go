package knn

import (
	"errors"
	"math"
	"testing"

	"github.com/n0madic/go-abc/abc"
	"gonum.org/v1/gonum/mat"
)

func identityCompressor(data *mat.Dense) (*mat.Dense, error) {
	return mat.DenseCopyOf(data), nil
}

// sumCompressor collapses each row to the sum of its features.
func sumCompressor(data *mat.Dense) (*mat.Dense, error) {
	m, _ := data.Dims()
	out := mat.NewDense(m, 1, nil)
	for i := 0; i < m; i++ {
		var s float64
		for _, v := range data.RawRowView(i) {
			s += v
		}
		out.Set(i, 0, s)
	}
	return out, nil
}

func TestCompressedStaticContract(t *testing.T) {
	a, err := NewCompressed(fixtureTable(t), identityCompressor, false)
	if err != nil {
		t.Fatalf("NewCompressed: %v", err)
	}

	// A non-nil data argument violates the static compressor contract.
	if _, err := a.Compressor(mat.NewDense(1, 2, nil)); !errors.Is(err, abc.ErrStaticCompressorData) {
		t.Errorf("Compressor(non-nil) error = %v, want ErrStaticCompressorData", err)
	}

	// A nil argument returns the captured function.
	comp, err := a.Compressor(nil)
	if err != nil {
		t.Fatalf("Compressor(nil): %v", err)
	}
	in := mat.NewDense(1, 2, []float64{3, 4})
	out, err := comp(in)
	if err != nil {
		t.Fatalf("captured compressor: %v", err)
	}
	if !mat.EqualApprox(out, in, 0) {
		t.Error("captured identity compressor changed the data")
	}
}

func TestCompressedIdentityMatchesPlain(t *testing.T) {
	table := fixtureTable(t)
	plain, err := New(table, false)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	compressed, err := NewCompressed(table, identityCompressor, false)
	if err != nil {
		t.Fatalf("NewCompressed: %v", err)
	}

	query := mat.NewDense(2, 2, []float64{0.1, 0.1, 1.6, 1.9})
	a, da, err := plain.Sample(query, 2)
	if err != nil {
		t.Fatalf("plain Sample: %v", err)
	}
	b, db, err := compressed.Sample(query, 2)
	if err != nil {
		t.Fatalf("compressed Sample: %v", err)
	}
	for i := range a {
		if !mat.EqualApprox(a[i], b[i], 0) {
			t.Errorf("observation %d: identity-compressed samples differ from plain", i)
		}
	}
	if !mat.EqualApprox(da.Distances, db.Distances, 0) {
		t.Error("identity-compressed distances differ from plain")
	}
}

func TestCompressedProjection(t *testing.T) {
	const tol = 1e-12
	a, err := NewCompressed(fixtureTable(t), sumCompressor, false)
	if err != nil {
		t.Fatalf("NewCompressed: %v", err)
	}

	// In the summed space the query 0.9+0.9=1.8 is closest to rows with
	// feature sum 2 (rows 3 has sum 2, row 4 has sum 4, rows 1,2 sum 1).
	samples, diag, err := a.Sample(mat.NewDense(1, 2, []float64{0.9, 0.9}), 1)
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if got := samples[0].At(0, 0); math.Abs(got-3) > tol {
		t.Errorf("nearest parameter in compressed space = %v, want 3", got)
	}

	// The compressed query must be reported for diagnostics.
	if diag.CompressedData == nil {
		t.Fatal("CompressedData diagnostic missing")
	}
	if got := diag.CompressedData.At(0, 0); math.Abs(got-1.8) > tol {
		t.Errorf("CompressedData = %v, want 1.8", got)
	}
}

func TestCompressedCompressorError(t *testing.T) {
	failing := func(data *mat.Dense) (*mat.Dense, error) {
		return nil, errors.New("broken transform")
	}
	if _, err := NewCompressed(fixtureTable(t), failing, false); err == nil {
		t.Error("construction with failing compressor did not surface the error")
	}
}
