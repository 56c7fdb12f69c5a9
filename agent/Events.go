// Package agent provides the interfaces and shared machinery for
// building reinforcement learning agents out of composable parts: an
// exploration policy, a replay buffer, a learned model, and labeled
// callbacks that link the parts together at construction time.
package agent

import (
	"github.com/argmaxrl/argmax/expreplay"
)

// TrainingStep is emitted after every environment interaction
type TrainingStep struct {
	// Step is the total number of environment interactions so far
	Step int `json:"step"`
}

// TrainingProgress is emitted after every finished episode. It is the
// payload persisted by checkpoint callbacks, so it marshals to JSON.
type TrainingProgress struct {
	Episode     int     `json:"episode"`
	TotalReward float64 `json:"total_reward"`
}

// LearningStep is emitted after every parameter update. Predicted and
// Target hold the action values the model predicted for the batch and
// the temporal difference targets it was regressed toward, aligned
// with Batch.
type LearningStep struct {
	Batch     []expreplay.Entry
	Predicted []float64
	Target    []float64
}
