package expreplay

// NStep folds windows of n consecutive transitions into single
// effective transitions before committing them to a wrapped buffer.
// The folded entry keeps the first transition's state and action, the
// discounted sum of rewards over the window, and the next state and
// terminal flag of the final transition in the window. Folding stops
// early at the first terminal transition.
//
// NStep composes with any Buffer: wrapping a Prioritized buffer yields
// an n-step prioritized replay buffer, with priority maintenance
// delegated to the wrapped buffer.
type NStep struct {
	inner  Buffer
	n      int
	gamma  float64
	window []Entry
}

// NewNStep creates and returns a new n-step view over an existing
// buffer
func NewNStep(inner Buffer, p NStepParams) (*NStep, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	return &NStep{
		inner:  inner,
		n:      p.NStep,
		gamma:  p.Gamma,
		window: make([]Entry, 0, p.NStep),
	}, nil
}

// Capabilities describes what the buffer supports, merging the wrapped
// buffer's capabilities with the folding window
func (b *NStep) Capabilities() Capabilities {
	caps := b.inner.Capabilities()
	caps.NStep = b.n
	return caps
}

// Add accumulates raw transitions and commits folded entries to the
// wrapped buffer once the window is full. A terminal transition
// flushes the whole window so that no tail transitions are lost at
// episode boundaries.
func (b *NStep) Add(e Entry) error {
	b.window = append(b.window, e)

	if e.Terminal {
		for len(b.window) > 0 {
			if err := b.inner.Add(b.fold()); err != nil {
				return err
			}
			b.window = b.window[1:]
		}
		return nil
	}

	if len(b.window) < b.n {
		return nil
	}

	err := b.inner.Add(b.fold())
	b.window = b.window[1:]
	return err
}

// fold collapses the current window into one effective transition,
// stopping at the first terminal transition
func (b *NStep) fold() Entry {
	folded := b.window[0]

	reward, discount := 0.0, 1.0
	for _, e := range b.window {
		reward += discount * e.Reward
		discount *= b.gamma

		folded.NextState = e.NextState
		folded.Terminal = e.Terminal
		if e.Terminal {
			break
		}
	}

	folded.Reward = reward
	return folded
}

// Sample draws a batch from the wrapped buffer
func (b *NStep) Sample(batchSize int) ([]Entry, error) {
	return b.inner.Sample(batchSize)
}

// UpdatePriorities delegates a priority update to the wrapped buffer
func (b *NStep) UpdatePriorities(indices []int, tdErrors []float64) error {
	sampler, ok := b.inner.(PrioritySampler)
	if !ok {
		return &BufferError{Op: "updatepriorities", Err: errNoPrioritySupport}
	}
	return sampler.UpdatePriorities(indices, tdErrors)
}

// IncreaseBeta delegates beta annealing to the wrapped buffer. It is a
// no-op when the wrapped buffer is not prioritized.
func (b *NStep) IncreaseBeta() {
	if sampler, ok := b.inner.(PrioritySampler); ok {
		sampler.IncreaseBeta()
	}
}

// Beta returns the wrapped buffer's importance-sampling exponent, or 0
// when the wrapped buffer is not prioritized
func (b *NStep) Beta() float64 {
	if sampler, ok := b.inner.(PrioritySampler); ok {
		return sampler.Beta()
	}
	return 0
}

// Len returns the number of committed entries available for sampling.
// Transitions still being folded in the window are not counted.
func (b *NStep) Len() int {
	return b.inner.Len()
}

// Cap returns the maximum number of entries the wrapped buffer can
// hold
func (b *NStep) Cap() int {
	return b.inner.Cap()
}

// Clear empties the wrapped buffer and discards the folding window
func (b *NStep) Clear() {
	b.inner.Clear()
	b.window = b.window[:0]
}
