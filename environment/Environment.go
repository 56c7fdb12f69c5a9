// Package environment outlines the interfaces and structs needed to implement
// concrete environments
package environment

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Starter implements a distribution of starting states and samples starting
// states for environments
type Starter interface {
	Start() mat.Vector
}

// Space describes the layout and bounds of the observations or actions
// of an environment. For discrete action spaces, N holds the number of
// legal actions and Low/High are unused.
type Space struct {
	Dims int
	Low  mat.Vector
	High mat.Vector
	N    int
}

// NewDiscreteSpace returns the Space of a discrete set of n choices
func NewDiscreteSpace(n int) Space {
	return Space{Dims: 1, N: n}
}

// NewContinuousSpace returns the Space of a continuous vector bounded
// elementwise by low and high
func NewContinuousSpace(low, high mat.Vector) Space {
	if low.Len() != high.Len() {
		panic(fmt.Sprintf("newcontinuousspace: bound length mismatch "+
			"\n\twant(%v)\n\thave(%v)", low.Len(), high.Len()))
	}
	return Space{Dims: low.Len(), Low: low, High: high}
}

// Environment implements a simulated environment that an agent
// interacts with. The environment's name, returned by String(), is
// used when laying out save folders for training runs.
type Environment interface {
	fmt.Stringer

	// Reset resets the environment between episodes and returns the
	// starting observation
	Reset() (mat.Vector, error)

	// Step takes a single discrete action in the environment and
	// returns the next observation, the reward, and whether the
	// episode has ended
	Step(action int) (mat.Vector, float64, bool, error)

	ObservationSpace() Space
	ActionSpace() Space
}
