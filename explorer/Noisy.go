package explorer

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/argmaxrl/argmax/network"
)

// NoisyParams configures a Noisy explorer
type NoisyParams struct {
	// StdInit scales the initial deviation of the stochastic weights
	StdInit float64

	// ResetNoiseEvery is the number of training steps between noise
	// resamples
	ResetNoiseEvery int
}

// Validate returns an error describing an invalid configuration
func (p NoisyParams) Validate() error {
	if p.StdInit <= 0 {
		return errors.Errorf("noise deviation must be > 0, got %v", p.StdInit)
	}
	if p.ResetNoiseEvery < 1 {
		return errors.Errorf("noise reset interval must be >= 1, got %v",
			p.ResetNoiseEvery)
	}
	return nil
}

// Noisy injects exploration into the model itself by having the
// model's head layers carry stochastic weights. Action selection is
// always greedy over the (noisy) predicted values; the injected noise
// is resampled every ResetNoiseEvery training steps.
//
// Noisy satisfies network.Wrapper so that agents can place it on the
// model-wrapper chain, where it verifies that the built model is in
// fact noise-capable and primes its first noise sample.
type Noisy struct {
	ep   NoisyParams
	seed uint64
}

// NewNoisy creates and returns a new noise-injection explorer
func NewNoisy(p NoisyParams, seed uint64) (*Noisy, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Noisy{ep: p, seed: seed}, nil
}

// Capabilities describes how the explorer interacts with training
func (n *Noisy) Capabilities() Capabilities {
	return Capabilities{Noisy: true}
}

// SelectAction returns the greedy action. Exploration comes from the
// noise injected into the model's layers, not from the call site.
func (n *Noisy) SelectAction(actionValues mat.Vector) int {
	return greedy(actionValues)
}

// ResetNoiseEvery returns the number of training steps between noise
// resamples
func (n *Noisy) ResetNoiseEvery() int {
	return n.ep.ResetNoiseEvery
}

// LayerFactory returns the factory that builds the noise-capable
// layers the explorer relies on
func (n *Noisy) LayerFactory() network.LayerFactory {
	return network.NewNoisyFactory(n.ep.StdInit, n.seed)
}

// Wrap verifies that a freshly built model carries noisy layers and
// resamples their first noise. A noisy explorer paired with a model
// that has no noisy layers is a configuration error, surfaced here at
// model construction rather than silently training without
// exploration.
func (n *Noisy) Wrap(net network.NeuralNet) (network.NeuralNet, error) {
	resetter, ok := net.(network.NoiseResetter)
	if !ok {
		return nil, errors.New("wrap: model does not support noise " +
			"injection")
	}
	if err := resetter.ResetNoise(); err != nil {
		return nil, errors.Wrap(err, "wrap: could not prime model noise")
	}
	return net, nil
}
