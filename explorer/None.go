package explorer

import (
	"gonum.org/v1/gonum/mat"
)

// None is the identity exploration strategy: always greedy, with no
// per-step housekeeping to link
type None struct{}

// NewNone creates and returns a purely greedy explorer
func NewNone() *None {
	return &None{}
}

// Capabilities describes how the explorer interacts with training
func (n *None) Capabilities() Capabilities {
	return Capabilities{}
}

// SelectAction returns the greedy action
func (n *None) SelectAction(actionValues mat.Vector) int {
	return greedy(actionValues)
}
