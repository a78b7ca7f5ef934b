// Package subset implements posterior sampling with exhaustive feature
// subset selection: every non-empty subset of the data features is tried as
// the distance space for nearest-neighbor matching, and each observation
// independently keeps the subset minimizing a pluggable loss.
//
// The candidate space has 2^p - 1 masks for p features, so the search is
// exponential in p. It is intended for small feature counts (p <= 20 or so);
// the per-mask work is independent and can be spread across goroutines with
// WithParallelism.
package subset

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/n0madic/go-abc/abc"
	"github.com/n0madic/go-abc/knn"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

// Search enumerates feature subsets and delegates each candidate to a
// nearest-neighbor sampler over the masked reference table.
type Search struct {
	table  *abc.ReferenceTable
	scaler *abc.Standardizer
	loss   Loss

	parallelism      int
	childStandardize bool
	progress         func(done, total int)
	logger           *slog.Logger
}

var (
	_ abc.Algorithm          = (*Search)(nil)
	_ abc.CompressorProvider = (*Search)(nil)
)

// Option configures optional Search behavior.
type Option func(*Search)

// WithLoss replaces the default entropy-minimizing loss.
func WithLoss(l Loss) Option {
	return func(s *Search) {
		if l != nil {
			s.loss = l
		}
	}
}

// WithParallelism evaluates masks on up to n goroutines. Results are
// identical to the sequential search: exact loss ties are resolved in favor
// of the first-enumerated mask regardless of completion order.
func WithParallelism(n int) Option {
	return func(s *Search) {
		if n > 1 {
			s.parallelism = n
		}
	}
}

// WithChildStandardize re-fits per-subset feature statistics on every child
// sampler instead of relying on the single global standardization pass.
func WithChildStandardize(enabled bool) Option {
	return func(s *Search) {
		s.childStandardize = enabled
	}
}

// WithProgress installs a best-effort progress callback invoked after each
// evaluated mask. It has no effect on the returned values.
func WithProgress(fn func(done, total int)) Option {
	return func(s *Search) {
		s.progress = fn
	}
}

// WithLogger enables structured logging of the search.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Search) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New builds a subset-selection search over table. When standardize is true
// the features are standardized once, globally, before any mask is applied;
// child samplers then run on the already-standardized columns.
func New(table *abc.ReferenceTable, standardize bool, opts ...Option) (*Search, error) {
	if table == nil {
		return nil, fmt.Errorf("subset: nil reference table")
	}
	s := &Search{
		table:       table,
		loss:        EntropyLoss{},
		parallelism: 1,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	if standardize {
		s.scaler = abc.FitStandardizer(table.Data())
		transformed, err := s.scaler.Transform(table.Data())
		if err != nil {
			return nil, err
		}
		standardized, err := abc.NewReferenceTable(transformed, table.Params())
		if err != nil {
			return nil, err
		}
		s.table = standardized
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// NumParams returns the number of model parameters q.
func (s *Search) NumParams() int { return s.table.NumParams() }

// Compressor always fails: the winning feature subset is observation
// dependent and only resolved during Sample, so no closed-form compression
// function exists. The per-call result is reported in Diagnostics.BestMask.
func (s *Search) Compressor(data *mat.Dense) (abc.Compressor, error) {
	return nil, abc.ErrCompressorUnsupported
}

// EnumerateMasks returns all 2^p - 1 non-empty boolean masks over p
// features, ordered lexicographically with the first feature as the most
// significant position.
func EnumerateMasks(numFeatures int) [][]bool {
	total := 1 << numFeatures
	masks := make([][]bool, 0, total-1)
	for m := 1; m < total; m++ {
		mask := make([]bool, numFeatures)
		for j := 0; j < numFeatures; j++ {
			mask[j] = m&(1<<(numFeatures-1-j)) != 0
		}
		masks = append(masks, mask)
	}
	return masks
}

// maskResult is the outcome of evaluating one candidate mask.
type maskResult struct {
	samples []*mat.Dense
	loss    []float64
}

// Sample evaluates every non-empty feature mask and returns, for each
// observation independently, the candidate samples achieving the lowest
// loss. Diagnostics report the winning mask and loss per observation plus
// the full per-mask loss matrix. A failure on any mask aborts the search;
// partial results from a failed subset are not trustworthy for comparison.
func (s *Search) Sample(data mat.Matrix, numSamples int) ([]*mat.Dense, *abc.Diagnostics, error) {
	batch, err := abc.AsBatch(data, s.table.NumFeatures())
	if err != nil {
		return nil, nil, err
	}
	if s.scaler != nil {
		batch, err = s.scaler.Transform(batch)
		if err != nil {
			return nil, nil, err
		}
	}

	masks := EnumerateMasks(s.table.NumFeatures())
	total := len(masks)
	numObs, _ := batch.Dims()

	bestSamples := make([]*mat.Dense, numObs)
	bestLoss := make([]float64, numObs)
	bestMaskIdx := make([]int, numObs)
	for i := range bestMaskIdx {
		bestMaskIdx[i] = -1
	}
	losses := mat.NewDense(total, numObs, nil)

	// update folds one mask's result into the per-observation running best.
	// Strict comparison keeps the first-enumerated mask on equal loss; the
	// explicit index tie-break makes the fold order independent for the
	// parallel path.
	update := func(idx int, res maskResult) {
		losses.SetRow(idx, res.loss)
		for i := 0; i < numObs; i++ {
			if bestMaskIdx[i] < 0 ||
				res.loss[i] < bestLoss[i] ||
				(res.loss[i] == bestLoss[i] && idx < bestMaskIdx[i]) {
				bestMaskIdx[i] = idx
				bestLoss[i] = res.loss[i]
				bestSamples[i] = res.samples[i]
			}
		}
	}

	if s.parallelism <= 1 {
		for idx, mask := range masks {
			res, err := s.evaluateMask(batch, mask, numSamples, numObs)
			if err != nil {
				return nil, nil, fmt.Errorf("subset: mask %d/%d: %w", idx+1, total, err)
			}
			update(idx, res)
			s.logger.Debug("mask evaluated", "mask", idx+1, "total", total)
			if s.progress != nil {
				s.progress(idx+1, total)
			}
		}
	} else {
		g, ctx := errgroup.WithContext(context.Background())
		g.SetLimit(s.parallelism)
		var mu sync.Mutex
		done := 0
		for idx, mask := range masks {
			g.Go(func() error {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				res, err := s.evaluateMask(batch, mask, numSamples, numObs)
				if err != nil {
					return fmt.Errorf("subset: mask %d/%d: %w", idx+1, total, err)
				}
				mu.Lock()
				update(idx, res)
				done++
				completed := done
				mu.Unlock()
				s.logger.Debug("mask evaluated", "mask", idx+1, "total", total)
				if s.progress != nil {
					s.progress(completed, total)
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, nil, err
		}
	}

	bestMask := make([][]bool, numObs)
	for i, idx := range bestMaskIdx {
		bestMask[i] = masks[idx]
	}
	s.logger.Info("subset search complete", "masks", total, "observations", numObs)

	return bestSamples, &abc.Diagnostics{
		BestMask: bestMask,
		BestLoss: bestLoss,
		Masks:    masks,
		Losses:   losses,
	}, nil
}

// evaluateMask builds a child nearest-neighbor sampler over the masked
// columns, draws candidate samples, and scores them with the loss.
func (s *Search) evaluateMask(batch *mat.Dense, mask []bool, numSamples, numObs int) (maskResult, error) {
	childTable, err := s.table.SelectFeatures(mask)
	if err != nil {
		return maskResult{}, err
	}
	child, err := knn.New(childTable, s.childStandardize)
	if err != nil {
		return maskResult{}, err
	}
	maskedBatch, err := abc.SelectColumns(batch, mask)
	if err != nil {
		return maskResult{}, err
	}
	samples, _, err := child.Sample(maskedBatch, numSamples)
	if err != nil {
		return maskResult{}, err
	}
	loss, err := s.loss.Evaluate(samples)
	if err != nil {
		return maskResult{}, err
	}
	if len(loss) != numObs {
		return maskResult{}, fmt.Errorf("loss returned %d values for %d observations", len(loss), numObs)
	}
	return maskResult{samples: samples, loss: loss}, nil
}
