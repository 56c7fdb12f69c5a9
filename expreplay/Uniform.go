package expreplay

import (
	"golang.org/x/exp/rand"
)

// Uniform is a bounded ring buffer of transitions with uniform random
// sampling. The oldest entry is evicted once the buffer is full.
type Uniform struct {
	entries []Entry
	next    int // next slot to write to
	full    bool
	rng     *rand.Rand
}

// NewUniform creates and returns a new uniformly sampled replay buffer
func NewUniform(p Params, seed uint64) (*Uniform, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	return &Uniform{
		entries: make([]Entry, 0, p.MaxLen),
		rng:     rand.New(rand.NewSource(seed)),
	}, nil
}

// Capabilities describes what the buffer supports
func (u *Uniform) Capabilities() Capabilities {
	return Capabilities{}
}

// Add inserts an entry, evicting the oldest entry when full
func (u *Uniform) Add(e Entry) error {
	if u.full {
		u.entries[u.next] = e
		u.next = (u.next + 1) % cap(u.entries)
		return nil
	}

	u.entries = append(u.entries, e)
	if len(u.entries) == cap(u.entries) {
		u.full = true
		u.next = 0
	}
	return nil
}

// Sample draws batchSize entries uniformly without replacement
func (u *Uniform) Sample(batchSize int) ([]Entry, error) {
	if u.Len() == 0 {
		return nil, &BufferError{Op: "sample", Err: errEmptyBuffer}
	}
	if u.Len() < batchSize {
		return nil, &BufferError{Op: "sample", Err: errInsufficientData}
	}

	batch := make([]Entry, batchSize)
	for i, index := range u.rng.Perm(u.Len())[:batchSize] {
		batch[i] = u.entries[index]
		batch[i].Index = index
	}
	return batch, nil
}

// Len returns the current number of entries in the buffer
func (u *Uniform) Len() int {
	return len(u.entries)
}

// Cap returns the maximum number of entries the buffer can hold
func (u *Uniform) Cap() int {
	return cap(u.entries)
}

// Clear empties the buffer and resets the eviction cursor
func (u *Uniform) Clear() {
	u.entries = u.entries[:0]
	u.next = 0
	u.full = false
}
