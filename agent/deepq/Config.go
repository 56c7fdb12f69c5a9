// Package deepq implements the deep Q-learning family of agents. One
// DQN type covers the plain, double, and dueling variants through
// configuration, and picks up prioritized, n-step, and noisy behavior
// from the replay buffer and exploration policy it is composed with.
package deepq

import (
	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"

	"github.com/argmaxrl/argmax/network"
)

// Config describes the model and learning variant of a DQN agent
type Config struct {
	// Hidden is the number of units in each hidden layer of the
	// action-value network
	Hidden []int

	// Activations are the activation functions of the hidden layers,
	// one per layer
	Activations []network.Activation

	// InitWFn initializes the network weights. Nil defaults to Glorot
	// uniform initialization.
	InitWFn G.InitWFn

	// Solver adapts the online network's weights. Nil defaults to
	// Adam with the agent's learning rate.
	Solver G.Solver

	// Double selects the update target's action with the online
	// network instead of the target network
	Double bool

	// Dueling splits the network head into value and advantage
	// streams
	Dueling bool
}

// Validate returns an error describing an invalid configuration
func (c Config) Validate() error {
	if len(c.Hidden) != len(c.Activations) {
		return errors.Errorf("invalid number of activations "+
			"\n\twant(%d)\n\thave(%d)", len(c.Hidden), len(c.Activations))
	}
	for i, units := range c.Hidden {
		if units < 1 {
			return errors.Errorf("hidden layer %d must have >= 1 unit, "+
				"got %v", i, units)
		}
	}
	return nil
}

// name returns the agent name of the configured variant
func (c Config) name() string {
	switch {
	case c.Double && c.Dueling:
		return "DoubleDuelingDQN"
	case c.Double:
		return "DoubleDQN"
	case c.Dueling:
		return "DuelingDQN"
	default:
		return "DQN"
	}
}
