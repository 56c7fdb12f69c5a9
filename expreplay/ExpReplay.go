// Package expreplay implements experience replay buffers for storing
// and sampling environment transitions
package expreplay

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// minPriority is added to every updated priority so that no entry ever
// starves with a zero sampling probability
const minPriority = 1e-7

// Entry is a single transition held by a replay buffer. Entries are
// immutable once added.
//
// Index and Weight are populated on sampled entries by buffers that
// support prioritized sampling: Index identifies the slot to address
// in a later UpdatePriorities call, and Weight holds the
// importance-sampling correction for the entry.
type Entry struct {
	State     mat.Vector
	NextState mat.Vector
	Action    int
	Reward    float64
	Terminal  bool

	Index  int
	Weight float64
}

// NewEntry packages a transition into an Entry
func NewEntry(state, nextState mat.Vector, action int, reward float64,
	terminal bool) Entry {
	return Entry{
		State:     state,
		NextState: nextState,
		Action:    action,
		Reward:    reward,
		Terminal:  terminal,
		Weight:    1.0,
	}
}

// Capabilities declares what a replay buffer supports so that agents
// can link priority and n-step behaviour without inspecting concrete
// buffer types. NStep is the folding window length; values below 2
// mean no folding is performed.
type Capabilities struct {
	Prioritized bool
	NStep       int
}

// Buffer implements an experience replay buffer
type Buffer interface {
	// Add inserts an entry into the buffer, evicting the oldest entry
	// when the buffer is at capacity
	Add(Entry) error

	// Sample draws a batch of entries from the buffer. Sampling fails
	// with an insufficient-data error when the buffer holds fewer
	// entries than the requested batch size.
	Sample(batchSize int) ([]Entry, error)

	// Len returns the current number of entries in the buffer
	Len() int

	// Cap returns the maximum number of entries the buffer can hold
	Cap() int

	// Clear empties the buffer and resets its internal counters
	Clear()

	Capabilities() Capabilities
}

// PrioritySampler is a Buffer that weights sampled entries by their
// last observed error magnitude
type PrioritySampler interface {
	Buffer

	// UpdatePriorities sets the priority of each indexed slot from the
	// corresponding error magnitude
	UpdatePriorities(indices []int, tdErrors []float64) error

	// IncreaseBeta anneals the importance-sampling exponent toward its
	// final value
	IncreaseBeta()

	// Beta returns the current importance-sampling exponent
	Beta() float64
}

// Params configures the bounded capacity of a replay buffer
type Params struct {
	MaxLen int
}

// Validate returns an error describing an invalid configuration
func (p Params) Validate() error {
	if p.MaxLen < 1 {
		return errors.Errorf("replay buffer max length must be >= 1, got %v",
			p.MaxLen)
	}
	return nil
}

// PrioritizedParams configures a prioritized replay buffer
type PrioritizedParams struct {
	Params

	// Alpha is the priority exponent: sampling probability is
	// proportional to priority^Alpha
	Alpha float64

	// InitBeta, FinalBeta and IncreaseBeta control the annealing of
	// the importance-sampling exponent: every IncreaseBeta() call
	// multiplies beta by the IncreaseBeta factor, clamped at FinalBeta
	InitBeta     float64
	FinalBeta    float64
	IncreaseBeta float64
}

// Validate returns an error describing an invalid configuration
func (p PrioritizedParams) Validate() error {
	if err := p.Params.Validate(); err != nil {
		return err
	}
	if p.Alpha < 0 {
		return errors.Errorf("priority exponent alpha must be >= 0, got %v",
			p.Alpha)
	}
	if p.InitBeta <= 0 || p.InitBeta > p.FinalBeta {
		return errors.Errorf("invalid beta annealing range [%v, %v]",
			p.InitBeta, p.FinalBeta)
	}
	if p.IncreaseBeta < 1 {
		return errors.Errorf("beta increase factor must be >= 1, got %v",
			p.IncreaseBeta)
	}
	return nil
}

// NStepParams configures n-step transition folding
type NStepParams struct {
	// NStep is the number of raw transitions folded into one effective
	// transition
	NStep int

	// Gamma is the per-step discount used to accumulate rewards over
	// the folding window
	Gamma float64
}

// Validate returns an error describing an invalid configuration
func (p NStepParams) Validate() error {
	if p.NStep < 1 {
		return errors.Errorf("n-step window must be >= 1, got %v", p.NStep)
	}
	if p.Gamma < 0 || p.Gamma > 1 {
		return errors.Errorf("discount must be in [0, 1], got %v", p.Gamma)
	}
	return nil
}
