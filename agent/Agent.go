package agent

import (
	"gonum.org/v1/gonum/mat"

	"github.com/argmaxrl/argmax/environment"
	"github.com/argmaxrl/argmax/expreplay"
	"github.com/argmaxrl/argmax/network"
)

// Algorithm is the learning-specific part of an agent: everything a
// concrete algorithm must provide on top of the shared Base core
type Algorithm interface {
	// ModelFactory builds the algorithm's learned model. The Base
	// calls it exactly once and threads the result through the
	// registered model wrappers.
	ModelFactory() (network.NeuralNet, error)

	// Preprocess converts an environment observation into the flat
	// feature vector the model consumes
	Preprocess(obs mat.Vector) ([]float64, error)

	// Postprocess converts the model's predicted action values into
	// the action to take
	Postprocess(actionValues []float64) int

	// Infer selects an action for a single observation
	Infer(obs mat.Vector) (int, error)

	// Learn updates the model from a batch of replayed transitions
	Learn(batch []expreplay.Entry) (LearningStep, error)
}

// Agent is a complete reinforcement learning agent
type Agent interface {
	Algorithm

	// HealthCheck exercises the agent's full wiring on env before any
	// real training happens
	HealthCheck(env environment.Environment) error

	// Train runs the training loop against env
	Train(env environment.Environment) error
}

// Trainable is the surface the training loop drives. A concrete
// algorithm bound to a Base satisfies it.
type Trainable interface {
	// Infer selects an action for a single observation
	Infer(obs mat.Vector) (int, error)

	// Remember stores one environment transition for later replay
	Remember(t expreplay.Entry) error

	// ReadyToLearn reports whether the replay buffer holds enough
	// transitions for a parameter update
	ReadyToLearn() bool

	// LearnFromReplay samples a batch from the replay buffer, updates
	// the model from it, and fires the learn callbacks
	LearnFromReplay() error

	// Params returns the parameters the training loop honors
	Params() TrainingParams

	// EmitStep fires the step callbacks
	EmitStep(event TrainingStep)

	// EmitProgress fires the progress callbacks and returns whether
	// any requested a training stop
	EmitProgress(event TrainingProgress) bool
}
