package explorer

import (
	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

// RandomParams configures a Random explorer
type RandomParams struct {
	// InitEp is the starting exploration rate
	InitEp float64

	// FinalEp is the floor that the exploration rate decays toward and
	// never drops below
	FinalEp float64

	// DecayEp is the multiplicative factor applied to epsilon on every
	// Decay() call
	DecayEp float64
}

// Validate returns an error describing an invalid configuration
func (p RandomParams) Validate() error {
	if p.InitEp < 0 || p.InitEp > 1 {
		return errors.Errorf("initial epsilon must be in [0, 1], got %v",
			p.InitEp)
	}
	if p.FinalEp < 0 || p.FinalEp > p.InitEp {
		return errors.Errorf("final epsilon must be in [0, %v], got %v",
			p.InitEp, p.FinalEp)
	}
	if p.DecayEp <= 0 || p.DecayEp > 1 {
		return errors.Errorf("epsilon decay factor must be in (0, 1], got %v",
			p.DecayEp)
	}
	return nil
}

// Random implements epsilon-greedy action selection: a uniformly
// random action with probability epsilon, otherwise the greedy action
// from the model's predicted values. Epsilon decays multiplicatively
// toward a configured floor, one Decay() call per training step.
type Random struct {
	ep      RandomParams
	epsilon float64
	rng     *rand.Rand
}

// NewRandom creates and returns a new epsilon-greedy explorer
func NewRandom(p RandomParams, seed uint64) (*Random, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	return &Random{
		ep:      p,
		epsilon: p.InitEp,
		rng:     rand.New(rand.NewSource(seed)),
	}, nil
}

// Capabilities describes how the explorer interacts with training
func (r *Random) Capabilities() Capabilities {
	return Capabilities{Decays: true}
}

// SelectAction returns a random action with probability epsilon and
// the greedy action otherwise
func (r *Random) SelectAction(actionValues mat.Vector) int {
	if r.rng.Float64() < r.epsilon {
		return r.rng.Intn(actionValues.Len())
	}
	return greedy(actionValues)
}

// Decay multiplies epsilon by the decay factor, clamping at the
// configured floor
func (r *Random) Decay() {
	r.epsilon *= r.ep.DecayEp
	if r.epsilon < r.ep.FinalEp {
		r.epsilon = r.ep.FinalEp
	}
}

// Epsilon returns the current exploration rate
func (r *Random) Epsilon() float64 {
	return r.epsilon
}
