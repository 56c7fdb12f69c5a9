package network

import (
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Layer is a single layer of a NeuralNet
type Layer interface {
	// Fwd adds the forward pass of the layer to the computational
	// graph
	Fwd(x *G.Node) (*G.Node, error)

	// CloneTo clones the layer to a new computational graph
	CloneTo(g *G.ExprGraph) Layer

	// Learnables returns the layer's learnable weight nodes
	Learnables() G.Nodes
}

// LayerFactory constructs a layer of a given shape on a graph. The
// factory decides the kind of layer built, which lets agents pick a
// noise-capable head layer when the exploration strategy calls for one
// without the network architecture knowing about exploration.
type LayerFactory func(g *G.ExprGraph, in, out int, init G.InitWFn,
	name string) (Layer, error)

// fcLayer implements a fully connected layer of a feedforward neural
// network
type fcLayer struct {
	weights *G.Node
	bias    *G.Node
	act     Activation
}

// NewLinearFactory returns a LayerFactory that builds plain fully
// connected layers with a bias unit and the given activation
func NewLinearFactory(act Activation) LayerFactory {
	return func(g *G.ExprGraph, in, out int, init G.InitWFn,
		name string) (Layer, error) {
		weights := G.NewMatrix(
			g,
			tensor.Float64,
			G.WithShape(in, out),
			G.WithName(name+"_W"),
			G.WithInit(init),
		)
		bias := G.NewVector(
			g,
			tensor.Float64,
			G.WithShape(out),
			G.WithName(name+"_B"),
			G.WithInit(G.Zeroes()),
		)

		return &fcLayer{weights: weights, bias: bias, act: act}, nil
	}
}

// Fwd adds the forward pass of the fcLayer to the computational graph
func (f *fcLayer) Fwd(x *G.Node) (*G.Node, error) {
	x, err := G.Mul(x, f.weights)
	if err != nil {
		return nil, err
	}

	// Broadcast the bias weights to all samples along the batch
	// dimension
	x, err = G.BroadcastAdd(x, f.bias, nil, []byte{0})
	if err != nil {
		return nil, err
	}

	if f.act == nil {
		return x, nil
	}
	return f.act(x)
}

// CloneTo clones an fcLayer to a new computational graph
func (f *fcLayer) CloneTo(g *G.ExprGraph) Layer {
	return &fcLayer{
		weights: f.weights.CloneTo(g),
		bias:    f.bias.CloneTo(g),
		act:     f.act,
	}
}

// Learnables returns the layer's learnable weight nodes
func (f *fcLayer) Learnables() G.Nodes {
	return G.Nodes{f.weights, f.bias}
}
