package network

import (
	"fmt"

	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// qNetwork implements a multi-layered perceptron predicting one action
// value per discrete action. The head of the network is built by a
// LayerFactory so that callers decide whether the final layers are
// plain or noise-injecting, and whether the network uses a dueling
// architecture (separate value and advantage heads recombined as
// Q = V + A - mean(A)).
type qNetwork struct {
	g      *G.ExprGraph
	input  *G.Node
	layers []Layer

	// Head layers: one output layer, or a value and an advantage
	// layer when dueling
	heads   []Layer
	dueling bool

	prediction *G.Node
	predVal    G.Value

	batchSize int
	features  int
	outputs   int

	learnables G.Nodes
	model      []G.ValueGrad
}

// NewQNetwork creates and returns a new action-value network with
// len(hidden) fully connected hidden layers and a head built by the
// head LayerFactory. For index i, hidden[i] is the number of units in
// hidden layer i and activations[i] is its activation function.
func NewQNetwork(features, batch, outputs int, hidden []int,
	activations []Activation, init G.InitWFn, dueling bool,
	head LayerFactory) (NeuralNet, error) {
	if len(hidden) != len(activations) {
		return nil, errors.Errorf("newqnetwork: invalid number of "+
			"activations \n\twant(%d)\n\thave(%d)", len(hidden),
			len(activations))
	}
	if features < 1 || batch < 1 || outputs < 1 {
		return nil, errors.Errorf("newqnetwork: invalid shape (%v features"+
			", %v batch, %v outputs)", features, batch, outputs)
	}

	g := G.NewGraph()
	input := G.NewMatrix(
		g,
		tensor.Float64,
		G.WithShape(batch, features),
		G.WithName("input"),
		G.WithInit(G.Zeroes()),
	)

	// Hidden fully connected layers
	layers := make([]Layer, len(hidden))
	in := features
	for i, out := range hidden {
		layer, err := NewLinearFactory(activations[i])(g, in, out, init,
			fmt.Sprintf("hidden%d", i))
		if err != nil {
			return nil, errors.Wrapf(err, "newqnetwork: could not build "+
				"hidden layer %d", i)
		}
		layers[i] = layer
		in = out
	}

	// Head layers built by the caller's factory
	var heads []Layer
	if dueling {
		value, err := head(g, in, 1, init, "value")
		if err != nil {
			return nil, errors.Wrap(err, "newqnetwork: could not build "+
				"value head")
		}
		advantage, err := head(g, in, outputs, init, "advantage")
		if err != nil {
			return nil, errors.Wrap(err, "newqnetwork: could not build "+
				"advantage head")
		}
		heads = []Layer{value, advantage}
	} else {
		output, err := head(g, in, outputs, init, "output")
		if err != nil {
			return nil, errors.Wrap(err, "newqnetwork: could not build "+
				"output layer")
		}
		heads = []Layer{output}
	}

	q := &qNetwork{
		g:         g,
		input:     input,
		layers:    layers,
		heads:     heads,
		dueling:   dueling,
		batchSize: batch,
		features:  features,
		outputs:   outputs,
	}
	if err := q.fwd(); err != nil {
		return nil, errors.Wrap(err, "newqnetwork: could not compute "+
			"forward pass")
	}
	return q, nil
}

// fwd adds the forward pass of the network to the computational graph
func (q *qNetwork) fwd() error {
	x := q.input
	var err error
	for i, l := range q.layers {
		if x, err = l.Fwd(x); err != nil {
			return errors.Wrapf(err, "fwd: hidden layer %d", i)
		}
	}

	var pred *G.Node
	if q.dueling {
		value, err := q.heads[0].Fwd(x)
		if err != nil {
			return errors.Wrap(err, "fwd: value head")
		}
		advantage, err := q.heads[1].Fwd(x)
		if err != nil {
			return errors.Wrap(err, "fwd: advantage head")
		}

		// Q = V + A - mean(A), the mean subtraction keeping the value
		// and advantage streams identifiable
		meanAdvantage, err := G.Mean(advantage, 1)
		if err != nil {
			return err
		}
		meanAdvantage, err = G.Reshape(meanAdvantage,
			tensor.Shape{q.batchSize, 1})
		if err != nil {
			return err
		}
		centered, err := G.BroadcastSub(advantage, meanAdvantage, nil,
			[]byte{1})
		if err != nil {
			return err
		}
		pred, err = G.BroadcastAdd(centered, value, nil, []byte{1})
		if err != nil {
			return err
		}
	} else {
		pred, err = q.heads[0].Fwd(x)
		if err != nil {
			return errors.Wrap(err, "fwd: output layer")
		}
	}

	q.prediction = pred
	G.Read(q.prediction, &q.predVal)
	return nil
}

// Graph returns the computational graph of the qNetwork
func (q *qNetwork) Graph() *G.ExprGraph {
	return q.g
}

// CloneWithBatch clones the qNetwork onto a fresh graph with a new
// batch size
func (q *qNetwork) CloneWithBatch(batch int) (NeuralNet, error) {
	if batch < 1 {
		return nil, errors.Errorf("clonewithbatch: batch size must be >= 1"+
			", got %v", batch)
	}

	g := G.NewGraph()
	input := G.NewMatrix(
		g,
		tensor.Float64,
		G.WithShape(batch, q.features),
		G.WithName("input"),
		G.WithInit(G.Zeroes()),
	)

	layers := make([]Layer, len(q.layers))
	for i := range q.layers {
		layers[i] = q.layers[i].CloneTo(g)
	}
	heads := make([]Layer, len(q.heads))
	for i := range q.heads {
		heads[i] = q.heads[i].CloneTo(g)
	}

	clone := &qNetwork{
		g:         g,
		input:     input,
		layers:    layers,
		heads:     heads,
		dueling:   q.dueling,
		batchSize: batch,
		features:  q.features,
		outputs:   q.outputs,
	}
	if err := clone.fwd(); err != nil {
		return nil, errors.Wrap(err, "clonewithbatch: could not compute "+
			"forward pass")
	}
	return clone, nil
}

// BatchSize returns the number of observation vectors the network
// takes as input at once
func (q *qNetwork) BatchSize() int {
	return q.batchSize
}

// Features returns the number of features in a single observation
// vector that the network takes as input
func (q *qNetwork) Features() int {
	return q.features
}

// Outputs returns the number of action values the network predicts
// per observation
func (q *qNetwork) Outputs() int {
	return q.outputs
}

// SetInput sets the value of the input node before running the forward
// pass
func (q *qNetwork) SetInput(input []float64) error {
	if len(input) != q.features*q.batchSize {
		return errors.Errorf("setinput: invalid number of inputs "+
			"\n\twant(%v)\n\thave(%v)", q.features*q.batchSize, len(input))
	}
	inputTensor := tensor.New(
		tensor.WithBacking(input),
		tensor.WithShape(q.input.Shape()...),
	)
	return G.Let(q.input, inputTensor)
}

// Set sets the weights of the qNetwork to be equal to the weights of
// another network
func (q *qNetwork) Set(source NeuralNet) error {
	sourceNodes := source.Learnables()
	nodes := q.Learnables()
	if len(sourceNodes) != len(nodes) {
		return errors.Errorf("set: source network has %v learnables, "+
			"want %v", len(sourceNodes), len(nodes))
	}

	for i, learnable := range nodes {
		clone := sourceNodes[i].Clone()
		if err := G.Let(learnable, clone.(*G.Node).Value()); err != nil {
			return err
		}
	}
	return nil
}

// ResetNoise resamples the injected noise of every noisy layer in the
// network
func (q *qNetwork) ResetNoise() error {
	reset := 0
	for _, l := range append(q.layers[:len(q.layers):len(q.layers)],
		q.heads...) {
		if noisy, ok := l.(noiseLayer); ok {
			if err := noisy.resetNoise(); err != nil {
				return err
			}
			reset++
		}
	}

	if reset == 0 {
		return errors.New("resetnoise: network has no noisy layers")
	}
	return nil
}

// Learnables returns the learnable nodes in the qNetwork
func (q *qNetwork) Learnables() G.Nodes {
	// Lazy instantiation
	if q.learnables == nil {
		for _, l := range q.layers {
			q.learnables = append(q.learnables, l.Learnables()...)
		}
		for _, l := range q.heads {
			q.learnables = append(q.learnables, l.Learnables()...)
		}
	}
	return q.learnables
}

// Model returns the learnable nodes with their gradients
func (q *qNetwork) Model() []G.ValueGrad {
	// Lazy instantiation
	if q.model == nil {
		for _, node := range q.Learnables() {
			q.model = append(q.model, node)
		}
	}
	return q.model
}

// Prediction returns the node of the computational graph that stores
// the predicted action values
func (q *qNetwork) Prediction() *G.Node {
	return q.prediction
}

// Output returns the predicted action values after the graph has been
// run
func (q *qNetwork) Output() G.Value {
	return q.predVal
}
