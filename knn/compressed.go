package knn

import (
	"fmt"

	"github.com/n0madic/go-abc/abc"
	"gonum.org/v1/gonum/mat"
)

// Compressed is a nearest-neighbor sampler with a static compressor: the
// compressor is applied once to the training data at construction and exactly
// once to every query batch, never refit. Standardization, if enabled, is
// fitted on the compressed features.
type Compressed struct {
	inner       *NearestNeighbor
	compressor  abc.Compressor
	rawFeatures int
}

var (
	_ abc.Algorithm          = (*Compressed)(nil)
	_ abc.CompressorProvider = (*Compressed)(nil)
)

// NewCompressed builds a sampler over table with data projected through
// compressor before indexing and distance computation.
func NewCompressed(table *abc.ReferenceTable, compressor abc.Compressor, standardize bool) (*Compressed, error) {
	if table == nil {
		return nil, fmt.Errorf("knn: nil reference table")
	}
	if compressor == nil {
		return nil, fmt.Errorf("knn: nil compressor")
	}
	compressed, err := compressor(table.Data())
	if err != nil {
		return nil, fmt.Errorf("knn: compress training data: %w", err)
	}
	ctable, err := abc.NewReferenceTable(compressed, table.Params())
	if err != nil {
		return nil, err
	}
	inner, err := New(ctable, standardize)
	if err != nil {
		return nil, err
	}
	return &Compressed{
		inner:       inner,
		compressor:  compressor,
		rawFeatures: table.NumFeatures(),
	}, nil
}

// NumParams returns the number of model parameters q.
func (a *Compressed) NumParams() int { return a.inner.NumParams() }

// Compressor returns the captured compression function. data must be nil;
// static compressors are not data-dependent.
func (a *Compressed) Compressor(data *mat.Dense) (abc.Compressor, error) {
	if data != nil {
		return nil, abc.ErrStaticCompressorData
	}
	return a.compressor, nil
}

// Sample compresses the query batch, delegates to the inner nearest-neighbor
// sampler, and records the compressed data in the diagnostics.
func (a *Compressed) Sample(data mat.Matrix, numSamples int) ([]*mat.Dense, *abc.Diagnostics, error) {
	batch, err := abc.AsBatch(data, a.rawFeatures)
	if err != nil {
		return nil, nil, err
	}
	compressed, err := a.compressor(batch)
	if err != nil {
		return nil, nil, fmt.Errorf("knn: compress query data: %w", err)
	}
	samples, diag, err := a.inner.Sample(compressed, numSamples)
	if err != nil {
		return nil, nil, err
	}
	diag.CompressedData = compressed
	return samples, diag, nil
}
