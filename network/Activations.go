package network

import (
	G "gorgonia.org/gorgonia"
)

// Activation represents an activation function type
type Activation func(x *G.Node) (*G.Node, error)

// ReLU is the rectified linear unit activation
func ReLU(x *G.Node) (*G.Node, error) {
	return G.Rectify(x)
}

// TanH is the hyperbolic tangent activation
func TanH(x *G.Node) (*G.Node, error) {
	return G.Tanh(x)
}

// Identity passes action values through unchanged
func Identity(x *G.Node) (*G.Node, error) {
	return x, nil
}
