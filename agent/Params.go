package agent

import (
	"github.com/pkg/errors"
)

// Hyperparams describes the learning hyperparameters shared by all
// agents
type Hyperparams struct {
	// LearningRate is the step size of the model's solver
	LearningRate float64

	// Gamma is the per-step discount factor
	Gamma float64
}

// Validate returns an error describing an invalid configuration
func (h Hyperparams) Validate() error {
	if h.LearningRate <= 0 {
		return errors.Errorf("learning rate must be > 0, got %v",
			h.LearningRate)
	}
	if h.Gamma < 0 || h.Gamma > 1 {
		return errors.Errorf("discount factor must be in [0, 1], got %v",
			h.Gamma)
	}
	return nil
}

// TrainingParams describes how the training loop drives an agent
type TrainingParams struct {
	// LearnEvery is the number of environment interactions between
	// parameter updates
	LearnEvery int

	// EnsureEvery is the number of parameter updates between hard
	// target model synchronizations
	EnsureEvery int

	// BatchSize is the number of replayed transitions per parameter
	// update
	BatchSize int

	// Episodes is the number of episodes to train for
	Episodes int
}

// Validate returns an error describing an invalid configuration
func (t TrainingParams) Validate() error {
	if t.LearnEvery < 1 {
		return errors.Errorf("learn interval must be >= 1, got %v",
			t.LearnEvery)
	}
	if t.EnsureEvery < 1 {
		return errors.Errorf("target sync interval must be >= 1, got %v",
			t.EnsureEvery)
	}
	if t.BatchSize < 1 {
		return errors.Errorf("batch size must be >= 1, got %v", t.BatchSize)
	}
	if t.Episodes < 1 {
		return errors.Errorf("episode count must be >= 1, got %v", t.Episodes)
	}
	return nil
}
