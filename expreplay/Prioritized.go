package expreplay

import (
	"math"
	"sort"

	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
)

// Prioritized is a bounded ring buffer of transitions whose sampling
// probability is proportional to priority^alpha. Each slot keeps a
// priority alongside its entry; evicted entries lose their priority
// slot. New entries are inserted at the running maximum priority so
// that unseen transitions are sampled at least once.
type Prioritized struct {
	entries    []Entry
	priorities []float64
	next       int
	full       bool

	alpha       float64
	beta        float64
	finalBeta   float64
	betaFactor  float64
	maxPriority float64

	rng *rand.Rand
}

// NewPrioritized creates and returns a new prioritized replay buffer
func NewPrioritized(p PrioritizedParams, seed uint64) (*Prioritized, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	return &Prioritized{
		entries:     make([]Entry, 0, p.MaxLen),
		priorities:  make([]float64, 0, p.MaxLen),
		alpha:       p.Alpha,
		beta:        p.InitBeta,
		finalBeta:   p.FinalBeta,
		betaFactor:  p.IncreaseBeta,
		maxPriority: 1.0,
		rng:         rand.New(rand.NewSource(seed)),
	}, nil
}

// Capabilities describes what the buffer supports
func (p *Prioritized) Capabilities() Capabilities {
	return Capabilities{Prioritized: true}
}

// Add inserts an entry at the running maximum priority, evicting the
// oldest entry and its priority slot when full
func (p *Prioritized) Add(e Entry) error {
	if p.full {
		p.entries[p.next] = e
		p.priorities[p.next] = p.maxPriority
		p.next = (p.next + 1) % cap(p.entries)
		return nil
	}

	p.entries = append(p.entries, e)
	p.priorities = append(p.priorities, p.maxPriority)
	if len(p.entries) == cap(p.entries) {
		p.full = true
		p.next = 0
	}
	return nil
}

// Sample draws batchSize entries with probability proportional to
// priority^alpha. Sampled entries carry their slot index for later
// priority updates and an importance-sampling weight (N * P(i))^-beta,
// normalized by the largest weight in the batch.
func (p *Prioritized) Sample(batchSize int) ([]Entry, error) {
	if p.Len() == 0 {
		return nil, &BufferError{Op: "sample", Err: errEmptyBuffer}
	}
	if p.Len() < batchSize {
		return nil, &BufferError{Op: "sample", Err: errInsufficientData}
	}

	// Cumulative sum of priority^alpha over the occupied slots
	cumulative := make([]float64, p.Len())
	total := 0.0
	for i, priority := range p.priorities {
		total += math.Pow(priority, p.alpha)
		cumulative[i] = total
	}

	batch := make([]Entry, batchSize)
	maxWeight := 0.0
	for i := range batch {
		target := p.rng.Float64() * total
		index := sort.SearchFloat64s(cumulative, target)
		if index >= p.Len() {
			index = p.Len() - 1
		}

		prob := math.Pow(p.priorities[index], p.alpha) / total
		weight := math.Pow(float64(p.Len())*prob, -p.beta)

		batch[i] = p.entries[index]
		batch[i].Index = index
		batch[i].Weight = weight
		if weight > maxWeight {
			maxWeight = weight
		}
	}

	// Normalize weights so that updates are only ever scaled down
	for i := range batch {
		batch[i].Weight /= maxWeight
	}
	return batch, nil
}

// UpdatePriorities sets the priority of each indexed slot to the
// corresponding error magnitude, floored away from zero so that no
// entry starves
func (p *Prioritized) UpdatePriorities(indices []int, tdErrors []float64) error {
	if len(indices) != len(tdErrors) {
		return errors.Errorf("updatepriorities: got %v indices for %v errors",
			len(indices), len(tdErrors))
	}

	for i, index := range indices {
		if index < 0 || index >= p.Len() {
			return errors.Errorf("updatepriorities: index %v out of range [0"+
				", %v)", index, p.Len())
		}

		priority := math.Abs(tdErrors[i]) + minPriority
		p.priorities[index] = priority
		if priority > p.maxPriority {
			p.maxPriority = priority
		}
	}
	return nil
}

// IncreaseBeta anneals the importance-sampling exponent toward its
// final value, clamping once it is reached
func (p *Prioritized) IncreaseBeta() {
	p.beta = math.Min(p.beta*p.betaFactor, p.finalBeta)
}

// Beta returns the current importance-sampling exponent
func (p *Prioritized) Beta() float64 {
	return p.beta
}

// Len returns the current number of entries in the buffer
func (p *Prioritized) Len() int {
	return len(p.entries)
}

// Cap returns the maximum number of entries the buffer can hold
func (p *Prioritized) Cap() int {
	return cap(p.entries)
}

// Clear empties the buffer and resets the eviction cursor and priority
// slots. The beta annealing schedule is left untouched: it tracks
// training progress, not buffer contents.
func (p *Prioritized) Clear() {
	p.entries = p.entries[:0]
	p.priorities = p.priorities[:0]
	p.next = 0
	p.full = false
	p.maxPriority = 1.0
}
