package deepq

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/argmaxrl/argmax/agent"
	"github.com/argmaxrl/argmax/environment"
	"github.com/argmaxrl/argmax/experiment"
	"github.com/argmaxrl/argmax/expreplay"
	"github.com/argmaxrl/argmax/explorer"
	"github.com/argmaxrl/argmax/network"
	"github.com/argmaxrl/argmax/utils/floatutils"
)

// DQN implements the deep Q-learning algorithm with a target network.
// The agent maintains three copies of its action-value network: an
// online network trained at the batch size, a target network providing
// update targets, and a batch-1 policy network selecting actions. With
// Double configured, a fourth selection network mirrors the online
// weights to pick the update target's action.
type DQN struct {
	*agent.Base
	config Config

	features   int
	numActions int
	batchSize  int

	online   network.NeuralNet
	onlineVM G.VM
	solver   G.Solver

	target   network.NeuralNet
	targetVM G.VM

	policy   network.NeuralNet
	policyVM G.VM

	selection   network.NeuralNet
	selectionVM G.VM

	// Input nodes of the loss on the online network's graph
	selectedActions *G.Node
	targets         *G.Node
	weights         *G.Node

	learnSteps int
}

// New creates and returns a new DQN agent acting in env, composed
// from a replay buffer and an exploration policy
func New(env environment.Environment, config Config,
	buffer expreplay.Buffer, expl explorer.Explorer,
	hyper agent.Hyperparams, training agent.TrainingParams,
	opts agent.Options) (*DQN, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "new: invalid configuration")
	}
	if env.ActionSpace().N < 2 {
		return nil, errors.Errorf("new: need >= 2 discrete actions, got %v",
			env.ActionSpace().N)
	}
	if config.InitWFn == nil {
		config.InitWFn = G.GlorotU(1.0)
	}

	base, err := agent.NewBase(config.name(), buffer, expl, hyper, training,
		opts)
	if err != nil {
		return nil, err
	}

	d := &DQN{
		Base:       base,
		config:     config,
		features:   env.ObservationSpace().Dims,
		numActions: env.ActionSpace().N,
		batchSize:  training.BatchSize,
		solver:     config.Solver,
	}
	if d.solver == nil {
		d.solver = G.NewAdamSolver(
			G.WithLearnRate(hyper.LearningRate),
			G.WithBatchSize(float64(training.BatchSize)),
		)
	}
	if err := base.Bind(d); err != nil {
		return nil, err
	}

	// Online network, threaded through the agent's wrapper chain
	if d.online, err = base.BuildModel(); err != nil {
		return nil, err
	}
	if err := d.buildLoss(); err != nil {
		return nil, errors.Wrap(err, "new: could not build loss")
	}
	d.onlineVM = G.NewTapeMachine(
		d.online.Graph(),
		G.BindDualValues(d.online.Learnables()...),
	)

	// Target network providing update targets
	if d.target, err = d.online.CloneWithBatch(training.BatchSize); err != nil {
		return nil, errors.Wrap(err, "new: could not clone target network")
	}
	base.RegisterModel(d.target)
	d.targetVM = G.NewTapeMachine(d.target.Graph())

	// Batch-1 policy network for action selection
	if d.policy, err = d.online.CloneWithBatch(1); err != nil {
		return nil, errors.Wrap(err, "new: could not clone policy network")
	}
	base.RegisterModel(d.policy)
	d.policyVM = G.NewTapeMachine(d.policy.Graph())

	// Selection network for double Q-learning's action choice
	if config.Double {
		d.selection, err = d.online.CloneWithBatch(training.BatchSize)
		if err != nil {
			return nil, errors.Wrap(err, "new: could not clone selection "+
				"network")
		}
		base.RegisterModel(d.selection)
		d.selectionVM = G.NewTapeMachine(d.selection.Graph())
	}

	return d, nil
}

// buildLoss adds the importance-weighted mean squared TD error and its
// gradient to the online network's graph
func (d *DQN) buildLoss() error {
	g := d.online.Graph()
	d.selectedActions = G.NewMatrix(g, tensor.Float64,
		G.WithShape(d.batchSize, d.numActions), G.WithName("selectedActions"))
	d.targets = G.NewVector(g, tensor.Float64, G.WithShape(d.batchSize),
		G.WithName("targets"))
	d.weights = G.NewVector(g, tensor.Float64, G.WithShape(d.batchSize),
		G.WithName("isWeights"))

	// Action value of the selected action in each sampled state
	selectedValue, err := G.HadamardProd(d.online.Prediction(),
		d.selectedActions)
	if err != nil {
		return err
	}
	if selectedValue, err = G.Sum(selectedValue, 1); err != nil {
		return err
	}

	// Importance-weighted mean squared TD error
	losses, err := G.Sub(d.targets, selectedValue)
	if err != nil {
		return err
	}
	if losses, err = G.Square(losses); err != nil {
		return err
	}
	if losses, err = G.HadamardProd(losses, d.weights); err != nil {
		return err
	}
	cost, err := G.Mean(losses)
	if err != nil {
		return err
	}

	_, err = G.Grad(cost, d.online.Learnables()...)
	return err
}

// ModelFactory builds the online action-value network
func (d *DQN) ModelFactory() (network.NeuralNet, error) {
	return network.NewQNetwork(
		d.features,
		d.batchSize,
		d.numActions,
		d.config.Hidden,
		d.config.Activations,
		d.config.InitWFn,
		d.config.Dueling,
		d.LastLayerFactory(),
	)
}

// Preprocess converts an environment observation into the flat
// feature vector the networks consume
func (d *DQN) Preprocess(obs mat.Vector) ([]float64, error) {
	if obs == nil || obs.Len() != d.features {
		length := 0
		if obs != nil {
			length = obs.Len()
		}
		return nil, errors.Errorf("preprocess: invalid observation length "+
			"\n\twant(%v)\n\thave(%v)", d.features, length)
	}

	features := make([]float64, d.features)
	for i := range features {
		features[i] = obs.AtVec(i)
	}
	return features, nil
}

// Postprocess selects the action to take from predicted action values
func (d *DQN) Postprocess(actionValues []float64) int {
	return d.SelectAction(actionValues)
}

// Infer selects an action for a single observation using the policy
// network
func (d *DQN) Infer(obs mat.Vector) (int, error) {
	features, err := d.Preprocess(obs)
	if err != nil {
		return 0, errors.Wrap(err, "infer")
	}

	if err := d.policy.SetInput(features); err != nil {
		return 0, errors.Wrap(err, "infer: could not set policy input")
	}
	if err := d.policyVM.RunAll(); err != nil {
		return 0, errors.Wrap(err, "infer: could not run policy network")
	}
	actionValues := append([]float64(nil), valueData(d.policy.Output())...)
	d.policyVM.Reset()

	return d.Postprocess(actionValues), nil
}

// Learn updates the online network from a batch of replayed
// transitions and returns the learning event with the predicted and
// target action values aligned with the batch. Batches smaller than
// the training batch size are padded by cycling their entries; only
// the original entries appear in the returned event.
func (d *DQN) Learn(batch []expreplay.Entry) (agent.LearningStep, error) {
	if len(batch) == 0 {
		return agent.LearningStep{}, errors.New("learn: empty batch")
	}
	if len(batch) > d.batchSize {
		return agent.LearningStep{}, errors.Errorf("learn: batch too large "+
			"\n\twant(<= %v)\n\thave(%v)", d.batchSize, len(batch))
	}
	full := padBatch(batch, d.batchSize)

	states := make([]float64, 0, d.batchSize*d.features)
	nextStates := make([]float64, 0, d.batchSize*d.features)
	for _, t := range full {
		s, err := d.Preprocess(t.State)
		if err != nil {
			return agent.LearningStep{}, errors.Wrap(err, "learn")
		}
		next, err := d.Preprocess(t.NextState)
		if err != nil {
			return agent.LearningStep{}, errors.Wrap(err, "learn")
		}
		states = append(states, s...)
		nextStates = append(nextStates, next...)
	}

	targets, err := d.computeTargets(full, nextStates)
	if err != nil {
		return agent.LearningStep{}, errors.Wrap(err, "learn")
	}

	// One-hot actions and importance weights
	onehot := make([]float64, d.batchSize*d.numActions)
	weights := make([]float64, d.batchSize)
	for i, t := range full {
		onehot[i*d.numActions+t.Action] = 1.0
		weights[i] = t.Weight
	}

	if err := d.online.SetInput(states); err != nil {
		return agent.LearningStep{}, errors.Wrap(err, "learn: could not set "+
			"online input")
	}
	if err := G.Let(d.selectedActions, tensor.New(
		tensor.WithShape(d.batchSize, d.numActions),
		tensor.WithBacking(onehot))); err != nil {
		return agent.LearningStep{}, errors.Wrap(err, "learn: could not set "+
			"selected actions")
	}
	if err := G.Let(d.targets, tensor.New(tensor.WithShape(d.batchSize),
		tensor.WithBacking(targets))); err != nil {
		return agent.LearningStep{}, errors.Wrap(err, "learn: could not set "+
			"targets")
	}
	if err := G.Let(d.weights, tensor.New(tensor.WithShape(d.batchSize),
		tensor.WithBacking(weights))); err != nil {
		return agent.LearningStep{}, errors.Wrap(err, "learn: could not set "+
			"importance weights")
	}

	if err := d.onlineVM.RunAll(); err != nil {
		return agent.LearningStep{}, errors.Wrap(err, "learn: could not run "+
			"online network")
	}
	predictedAll := append([]float64(nil), valueData(d.online.Output())...)
	if err := d.solver.Step(d.online.Model()); err != nil {
		return agent.LearningStep{}, errors.Wrap(err, "learn: could not step "+
			"solver")
	}
	d.onlineVM.Reset()
	d.learnSteps++

	// Hard target synchronization on the configured schedule; the
	// policy network always follows the online weights
	if d.learnSteps%d.Params().EnsureEvery == 0 {
		if err := d.target.Set(d.online); err != nil {
			return agent.LearningStep{}, errors.Wrap(err, "learn: could not "+
				"sync target network")
		}
	}
	if err := d.policy.Set(d.online); err != nil {
		return agent.LearningStep{}, errors.Wrap(err, "learn: could not "+
			"sync policy network")
	}

	predicted := make([]float64, len(batch))
	for i, t := range batch {
		predicted[i] = predictedAll[i*d.numActions+t.Action]
	}
	return agent.LearningStep{
		Batch:     batch,
		Predicted: predicted,
		Target:    targets[:len(batch)],
	}, nil
}

// computeTargets runs the target network (and, for double Q-learning,
// the selection network) on the next states and folds the results
// into per-transition TD targets
func (d *DQN) computeTargets(full []expreplay.Entry,
	nextStates []float64) ([]float64, error) {
	if err := d.target.SetInput(nextStates); err != nil {
		return nil, errors.Wrap(err, "could not set target input")
	}
	if err := d.targetVM.RunAll(); err != nil {
		return nil, errors.Wrap(err, "could not run target network")
	}
	nextQ := append([]float64(nil), valueData(d.target.Output())...)
	d.targetVM.Reset()

	var selectionQ []float64
	if d.config.Double {
		if err := d.selection.Set(d.online); err != nil {
			return nil, errors.Wrap(err, "could not sync selection network")
		}
		if err := d.selection.SetInput(nextStates); err != nil {
			return nil, errors.Wrap(err, "could not set selection input")
		}
		if err := d.selectionVM.RunAll(); err != nil {
			return nil, errors.Wrap(err, "could not run selection network")
		}
		selectionQ = append([]float64(nil), valueData(d.selection.Output())...)
		d.selectionVM.Reset()
	}

	return tdTargets(full, nextQ, selectionQ, d.numActions, d.Gamma()), nil
}

// tdTargets computes the TD target of each transition: the reward
// plus the discounted value of the next state, zero beyond terminals.
// When selectionQ is non-nil, the next action is chosen by its values
// and evaluated by nextQ (double Q-learning).
func tdTargets(batch []expreplay.Entry, nextQ, selectionQ []float64,
	numActions int, gamma float64) []float64 {
	targets := make([]float64, len(batch))
	for i, t := range batch {
		targets[i] = t.Reward
		if t.Terminal {
			continue
		}

		row := nextQ[i*numActions : (i+1)*numActions]
		if selectionQ == nil {
			best, _ := floatutils.MaxSlice(row)
			targets[i] += gamma * best
		} else {
			best := floatutils.ArgMax(
				selectionQ[i*numActions : (i+1)*numActions]...)
			targets[i] += gamma * row[best]
		}
	}
	return targets
}

// padBatch cycles the entries of batch until it reaches size
func padBatch(batch []expreplay.Entry, size int) []expreplay.Entry {
	if len(batch) >= size {
		return batch
	}
	full := make([]expreplay.Entry, 0, size)
	full = append(full, batch...)
	for i := len(batch); i < size; i++ {
		full = append(full, batch[i%len(batch)])
	}
	return full
}

// valueData extracts the float64 backing of a graph value
func valueData(value G.Value) []float64 {
	switch data := value.Data().(type) {
	case []float64:
		return data
	case float64:
		return []float64{data}
	default:
		return nil
	}
}

// Train runs the training loop against env. HealthCheck should be run
// first so that broken wiring fails the run before any data is
// collected.
func (d *DQN) Train(env environment.Environment) error {
	trainer := experiment.NewTrainer(d.Logger(), true)
	return trainer.Run(d, env)
}
