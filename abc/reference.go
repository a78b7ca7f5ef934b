package abc

import (
	"encoding/gob"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"gonum.org/v1/gonum/mat"
)

// ReferenceTable is an immutable pair of simulated data and parameter
// matrices used as the candidate pool for nearest-neighbor matching.
//
// Both matrices are deep-copied at construction and never mutated afterwards,
// so a table may be shared freely between algorithm instances and queried
// concurrently without synchronization.
type ReferenceTable struct {
	data   *mat.Dense // n x p simulated features
	params *mat.Dense // n x q simulated parameters
}

// NewReferenceTable validates and copies the training matrices. trainData is
// (n x p), trainParams is (n x q); the row counts must match and no dimension
// may be zero.
func NewReferenceTable(trainData, trainParams mat.Matrix) (*ReferenceTable, error) {
	if trainData == nil || trainParams == nil {
		return nil, errors.New("abc: reference table requires both data and parameters")
	}
	n, p := trainData.Dims()
	np, q := trainParams.Dims()
	if n == 0 || p == 0 {
		return nil, fmt.Errorf("abc: train data must be a non-empty 2-D matrix, got %dx%d", n, p)
	}
	if np == 0 || q == 0 {
		return nil, fmt.Errorf("abc: train params must be a non-empty 2-D matrix, got %dx%d", np, q)
	}
	if n != np {
		return nil, fmt.Errorf("abc: row count mismatch: %d data rows vs %d parameter rows", n, np)
	}
	return &ReferenceTable{
		data:   mat.DenseCopyOf(trainData),
		params: mat.DenseCopyOf(trainParams),
	}, nil
}

// Len returns the number of simulations n.
func (t *ReferenceTable) Len() int {
	n, _ := t.data.Dims()
	return n
}

// NumFeatures returns the number of data features p.
func (t *ReferenceTable) NumFeatures() int {
	_, p := t.data.Dims()
	return p
}

// NumParams returns the number of model parameters q.
func (t *ReferenceTable) NumParams() int {
	_, q := t.params.Dims()
	return q
}

// Data returns the (n x p) simulated data matrix. The returned matrix must
// not be modified.
func (t *ReferenceTable) Data() *mat.Dense { return t.data }

// Params returns the (n x q) simulated parameter matrix. The returned matrix
// must not be modified.
func (t *ReferenceTable) Params() *mat.Dense { return t.params }

// SelectFeatures returns a table restricted to the columns where mask is
// true. The parameter matrix is shared with the receiver; immutability makes
// the sharing safe.
func (t *ReferenceTable) SelectFeatures(mask []bool) (*ReferenceTable, error) {
	n, p := t.data.Dims()
	if len(mask) != p {
		return nil, &DimensionError{Expected: p, Actual: len(mask)}
	}
	keep := 0
	for _, m := range mask {
		if m {
			keep++
		}
	}
	if keep == 0 {
		return nil, ErrEmptyMask
	}
	sub := mat.NewDense(n, keep, nil)
	for i := 0; i < n; i++ {
		src := t.data.RawRowView(i)
		dst := sub.RawRowView(i)
		k := 0
		for j, m := range mask {
			if m {
				dst[k] = src[j]
				k++
			}
		}
	}
	return &ReferenceTable{data: sub, params: t.params}, nil
}

// SelectColumns applies mask to an arbitrary (m x p) batch, returning the
// masked copy. It is the query-side counterpart of SelectFeatures.
func SelectColumns(data *mat.Dense, mask []bool) (*mat.Dense, error) {
	m, p := data.Dims()
	if len(mask) != p {
		return nil, &DimensionError{Expected: p, Actual: len(mask)}
	}
	keep := 0
	for _, b := range mask {
		if b {
			keep++
		}
	}
	if keep == 0 {
		return nil, ErrEmptyMask
	}
	sub := mat.NewDense(m, keep, nil)
	for i := 0; i < m; i++ {
		src := data.RawRowView(i)
		dst := sub.RawRowView(i)
		k := 0
		for j, b := range mask {
			if b {
				dst[k] = src[j]
				k++
			}
		}
	}
	return sub, nil
}

// ParamRows gathers the given parameter rows into a fresh (len(rows) x q)
// matrix.
func (t *ReferenceTable) ParamRows(rows []int) *mat.Dense {
	_, q := t.params.Dims()
	out := mat.NewDense(len(rows), q, nil)
	for i, r := range rows {
		copy(out.RawRowView(i), t.params.RawRowView(r))
	}
	return out
}

// referenceTableState is the serializable snapshot of a ReferenceTable.
type referenceTableState struct {
	Version  int
	Rows     int
	Features int
	Params   int
	Data     []float64 // row-major (Rows x Features)
	ParData  []float64 // row-major (Rows x Params)
}

const snapshotVersion = 1

// Save writes a compressed snapshot of the table to w.
func (t *ReferenceTable) Save(w io.Writer) error {
	n, p := t.data.Dims()
	_, q := t.params.Dims()

	state := referenceTableState{
		Version:  snapshotVersion,
		Rows:     n,
		Features: p,
		Params:   q,
		Data:     make([]float64, 0, n*p),
		ParData:  make([]float64, 0, n*q),
	}
	for i := 0; i < n; i++ {
		state.Data = append(state.Data, t.data.RawRowView(i)...)
		state.ParData = append(state.ParData, t.params.RawRowView(i)...)
	}

	zw, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("abc: create snapshot writer: %w", err)
	}
	if err := gob.NewEncoder(zw).Encode(state); err != nil {
		zw.Close()
		return fmt.Errorf("abc: encode snapshot: %w", err)
	}
	return zw.Close()
}

// LoadReferenceTable reads a snapshot previously written with Save.
func LoadReferenceTable(r io.Reader) (*ReferenceTable, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("abc: open snapshot reader: %w", err)
	}
	defer zr.Close()

	var state referenceTableState
	if err := gob.NewDecoder(zr).Decode(&state); err != nil {
		return nil, fmt.Errorf("abc: decode snapshot: %w", err)
	}
	if state.Version != snapshotVersion {
		return nil, fmt.Errorf("abc: unsupported snapshot version %d", state.Version)
	}
	if len(state.Data) != state.Rows*state.Features || len(state.ParData) != state.Rows*state.Params {
		return nil, errors.New("abc: snapshot data length mismatch")
	}
	return NewReferenceTable(
		mat.NewDense(state.Rows, state.Features, state.Data),
		mat.NewDense(state.Rows, state.Params, state.ParData),
	)
}
