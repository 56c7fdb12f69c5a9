// Package network implements action-value neural networks on top of
// Gorgonia computational graphs
package network

import (
	G "gorgonia.org/gorgonia"
)

// NeuralNet is a feedforward action-value network. A NeuralNet is tied
// to a single computational graph with a fixed batch size; separate
// batch sizes (e.g. batch-1 action selection versus batched learning)
// are obtained with CloneWithBatch.
type NeuralNet interface {
	// Graph returns the computational graph that holds the network
	Graph() *G.ExprGraph

	// CloneWithBatch clones the network onto a fresh graph with a new
	// batch size, sharing no nodes with the original
	CloneWithBatch(batch int) (NeuralNet, error)

	BatchSize() int
	Features() int
	Outputs() int

	// SetInput sets the value of the input node before the graph is
	// run. The input holds BatchSize() observation vectors in row
	// major order.
	SetInput([]float64) error

	// Set copies the weights of another network into this one
	Set(NeuralNet) error

	// Learnables returns the nodes holding learnable weights
	Learnables() G.Nodes

	// Model returns the learnable nodes with their gradients, for use
	// with a Gorgonia solver
	Model() []G.ValueGrad

	// Prediction returns the node holding the predicted action values
	Prediction() *G.Node

	// Output returns the predicted action values after the graph has
	// been run
	Output() G.Value
}

// NoiseResetter is a NeuralNet with stochastic-weight layers whose
// injected noise can be resampled
type NoiseResetter interface {
	NeuralNet

	// ResetNoise resamples the noise of every noisy layer in the
	// network. It fails if the network has no noisy layers.
	ResetNoise() error
}

// Wrapper transforms a freshly built network before it is used.
// Wrappers are registered with an agent and applied, in registration
// order, exactly once at model construction.
type Wrapper interface {
	Wrap(NeuralNet) (NeuralNet, error)
}
