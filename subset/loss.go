package subset

import (
	"fmt"

	"github.com/n0madic/go-abc/entropy"
	"gonum.org/v1/gonum/mat"
)

// Loss scores candidate posterior samples, one scalar per observation. Lower
// is better. Implementations must be pure functions of the samples.
type Loss interface {
	// Evaluate receives one (numSamples x q) matrix per observation and
	// returns one loss value per observation.
	Evaluate(samples []*mat.Dense) ([]float64, error)
}

// LossFunc adapts a plain function to the Loss interface.
type LossFunc func(samples []*mat.Dense) ([]float64, error)

// Evaluate calls f.
func (f LossFunc) Evaluate(samples []*mat.Dense) ([]float64, error) { return f(samples) }

// EntropyLoss scores each observation's candidate samples by their estimated
// differential entropy. Lower entropy means the feature subset concentrates
// the posterior more tightly and is therefore preferred.
type EntropyLoss struct{}

// Evaluate estimates the entropy of each observation's sample set
// independently.
func (EntropyLoss) Evaluate(samples []*mat.Dense) ([]float64, error) {
	out := make([]float64, len(samples))
	for i, s := range samples {
		h, err := entropy.Estimate(s)
		if err != nil {
			return nil, fmt.Errorf("entropy loss for observation %d: %w", i, err)
		}
		out[i] = h
	}
	return out, nil
}
