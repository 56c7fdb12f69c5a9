package experiment

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/argmaxrl/argmax/agent"
	"github.com/argmaxrl/argmax/environment"
	"github.com/argmaxrl/argmax/expreplay"
)

// loopEnv is a deterministic environment whose episodes end after a
// fixed number of steps
type loopEnv struct {
	steps     int
	stepLimit int
}

func (l *loopEnv) String() string { return "Loop" }

func (l *loopEnv) Reset() (mat.Vector, error) {
	l.steps = 0
	return mat.NewVecDense(1, []float64{0}), nil
}

func (l *loopEnv) Step(int) (mat.Vector, float64, bool, error) {
	l.steps++
	next := mat.NewVecDense(1, []float64{float64(l.steps)})
	return next, 1.0, l.steps >= l.stepLimit, nil
}

func (l *loopEnv) ObservationSpace() environment.Space {
	bound := mat.NewVecDense(1, []float64{100})
	return environment.NewContinuousSpace(bound, bound)
}

func (l *loopEnv) ActionSpace() environment.Space {
	return environment.NewDiscreteSpace(2)
}

// countingAgent is a Trainable that records how the loop drives it
type countingAgent struct {
	params agent.TrainingParams

	remembered int
	learned    int
	steps      []int
	progress   []agent.TrainingProgress

	stopAfter int // episode on which to request a stop, -1 for never
}

func (c *countingAgent) Infer(mat.Vector) (int, error) { return 1, nil }

func (c *countingAgent) Remember(expreplay.Entry) error {
	c.remembered++
	return nil
}

func (c *countingAgent) ReadyToLearn() bool {
	return c.remembered >= c.params.BatchSize
}

func (c *countingAgent) LearnFromReplay() error {
	c.learned++
	return nil
}

func (c *countingAgent) Params() agent.TrainingParams { return c.params }

func (c *countingAgent) EmitStep(event agent.TrainingStep) {
	c.steps = append(c.steps, event.Step)
}

func (c *countingAgent) EmitProgress(event agent.TrainingProgress) bool {
	c.progress = append(c.progress, event)
	return event.Episode == c.stopAfter
}

func newCountingAgent(episodes int) *countingAgent {
	return &countingAgent{
		params: agent.TrainingParams{
			LearnEvery:  2,
			EnsureEvery: 1,
			BatchSize:   3,
			Episodes:    episodes,
		},
		stopAfter: -1,
	}
}

func TestTrainerRunsConfiguredEpisodes(t *testing.T) {
	a := newCountingAgent(4)
	trainer := NewTrainer(zerolog.Nop(), false)

	require.NoError(t, trainer.Run(a, &loopEnv{stepLimit: 5}))

	// Four episodes of five steps each, with a progress event and
	// total reward per episode
	require.Len(t, a.progress, 4)
	for i, p := range a.progress {
		assert.Equal(t, i, p.Episode)
		assert.Equal(t, 5.0, p.TotalReward)
	}
	assert.Equal(t, 20, a.remembered)

	// Step events carry the global step count
	require.Len(t, a.steps, 20)
	assert.Equal(t, 1, a.steps[0])
	assert.Equal(t, 20, a.steps[19])
}

func TestTrainerLearnCadence(t *testing.T) {
	a := newCountingAgent(4)
	trainer := NewTrainer(zerolog.Nop(), false)

	require.NoError(t, trainer.Run(a, &loopEnv{stepLimit: 5}))

	// Learning happens every second step, once the buffer holds a
	// batch: steps 4, 6, 8, ..., 20
	assert.Equal(t, 9, a.learned)
}

func TestTrainerDisplaysProgress(t *testing.T) {
	a := newCountingAgent(2)
	trainer := NewTrainer(zerolog.Nop(), true)

	// The progress bar path must not disturb the training loop
	require.NoError(t, trainer.Run(a, &loopEnv{stepLimit: 3}))
	assert.Len(t, a.progress, 2)
}

func TestTrainerStopsWhenProgressRequests(t *testing.T) {
	a := newCountingAgent(10)
	a.stopAfter = 1
	trainer := NewTrainer(zerolog.Nop(), false)

	require.NoError(t, trainer.Run(a, &loopEnv{stepLimit: 5}))

	// The stop request after episode 1 ends training early
	assert.Len(t, a.progress, 2)
}
