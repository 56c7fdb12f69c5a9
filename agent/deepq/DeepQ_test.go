package deepq

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/argmaxrl/argmax/agent"
	"github.com/argmaxrl/argmax/environment"
	"github.com/argmaxrl/argmax/expreplay"
	"github.com/argmaxrl/argmax/explorer"
	"github.com/argmaxrl/argmax/network"
)

// gridEnv is a deterministic environment whose episodes end after a
// fixed number of steps
type gridEnv struct {
	steps     int
	stepLimit int
}

func (g *gridEnv) String() string { return "Grid" }

func (g *gridEnv) Reset() (mat.Vector, error) {
	g.steps = 0
	return mat.NewVecDense(3, []float64{0, 0, 0}), nil
}

func (g *gridEnv) Step(action int) (mat.Vector, float64, bool, error) {
	g.steps++
	next := mat.NewVecDense(3, []float64{
		float64(g.steps) / 10, float64(action), 1,
	})
	return next, 1.0, g.steps >= g.stepLimit, nil
}

func (g *gridEnv) ObservationSpace() environment.Space {
	low := mat.NewVecDense(3, []float64{0, 0, 0})
	high := mat.NewVecDense(3, []float64{10, 10, 10})
	return environment.NewContinuousSpace(low, high)
}

func (g *gridEnv) ActionSpace() environment.Space {
	return environment.NewDiscreteSpace(2)
}

func transition(action int, reward float64, terminal bool) expreplay.Entry {
	state := mat.NewVecDense(2, []float64{0, 0})
	next := mat.NewVecDense(2, []float64{1, 1})
	return expreplay.NewEntry(state, next, action, reward, terminal)
}

func TestTDTargetsMaxOverNextValues(t *testing.T) {
	batch := []expreplay.Entry{
		transition(0, 1.0, false),
		transition(1, 2.0, false),
	}
	nextQ := []float64{
		0.5, 1.5, // max 1.5
		3.0, -1.0, // max 3.0
	}

	targets := tdTargets(batch, nextQ, nil, 2, 0.9)
	assert.InDelta(t, 1.0+0.9*1.5, targets[0], 1e-12)
	assert.InDelta(t, 2.0+0.9*3.0, targets[1], 1e-12)
}

func TestTDTargetsTerminalDropsBootstrap(t *testing.T) {
	batch := []expreplay.Entry{
		transition(0, 5.0, true),
		transition(0, 1.0, false),
	}
	nextQ := []float64{
		10.0, 10.0,
		2.0, 1.0,
	}

	targets := tdTargets(batch, nextQ, nil, 2, 0.9)
	assert.Equal(t, 5.0, targets[0])
	assert.InDelta(t, 1.0+0.9*2.0, targets[1], 1e-12)
}

func TestTDTargetsDoubleSelection(t *testing.T) {
	batch := []expreplay.Entry{transition(0, 1.0, false)}

	// The selection values pick action 0; the target values evaluate
	// it, even though the target's own maximum is action 1
	nextQ := []float64{0.5, 4.0}
	selectionQ := []float64{2.0, 1.0}

	targets := tdTargets(batch, nextQ, selectionQ, 2, 0.9)
	assert.InDelta(t, 1.0+0.9*0.5, targets[0], 1e-12)
}

func TestPadBatchCyclesEntries(t *testing.T) {
	batch := []expreplay.Entry{
		transition(0, 1.0, false),
		transition(1, 2.0, false),
	}

	full := padBatch(batch, 5)
	require.Len(t, full, 5)
	assert.Equal(t, 1.0, full[0].Reward)
	assert.Equal(t, 2.0, full[1].Reward)
	assert.Equal(t, 1.0, full[2].Reward)
	assert.Equal(t, 2.0, full[3].Reward)
	assert.Equal(t, 1.0, full[4].Reward)

	// Full batches come back untouched
	same := padBatch(batch, 2)
	assert.Len(t, same, 2)
}

func smallConfig(double, dueling bool) Config {
	return Config{
		Hidden:      []int{8},
		Activations: []network.Activation{network.ReLU},
		Double:      double,
		Dueling:     dueling,
	}
}

func smallTraining(batchSize int) agent.TrainingParams {
	return agent.TrainingParams{
		LearnEvery:  2,
		EnsureEvery: 2,
		BatchSize:   batchSize,
		Episodes:    2,
	}
}

func TestDQNVariantsHealthCheckAndTrain(t *testing.T) {
	tests := []struct {
		name   string
		config Config
		buffer func(t *testing.T) expreplay.Buffer
		expl   func(t *testing.T) explorer.Explorer
	}{
		{
			name:   "uniform replay with epsilon greedy",
			config: smallConfig(false, false),
			buffer: func(t *testing.T) expreplay.Buffer {
				buffer, err := expreplay.NewUniform(
					expreplay.Params{MaxLen: 100}, 7)
				require.NoError(t, err)
				return buffer
			},
			expl: func(t *testing.T) explorer.Explorer {
				expl, err := explorer.NewRandom(explorer.RandomParams{
					InitEp:  1.0,
					FinalEp: 0.1,
					DecayEp: 0.9,
				}, 7)
				require.NoError(t, err)
				return expl
			},
		},
		{
			name:   "double dueling with noisy n-step prioritized replay",
			config: smallConfig(true, true),
			buffer: func(t *testing.T) expreplay.Buffer {
				buffer, err := expreplay.NewPrioritized(
					expreplay.PrioritizedParams{
						Params:       expreplay.Params{MaxLen: 100},
						Alpha:        0.6,
						InitBeta:     0.4,
						FinalBeta:    1.0,
						IncreaseBeta: 1.01,
					}, 7)
				require.NoError(t, err)

				nstep, err := expreplay.NewNStep(buffer,
					expreplay.NStepParams{NStep: 2, Gamma: 0.9})
				require.NoError(t, err)
				return nstep
			},
			expl: func(t *testing.T) explorer.Explorer {
				expl, err := explorer.NewNoisy(explorer.NoisyParams{
					StdInit:         0.5,
					ResetNoiseEvery: 2,
				}, 7)
				require.NoError(t, err)
				return expl
			},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			env := &gridEnv{stepLimit: 5}
			dqn, err := New(env, test.config, test.buffer(t), test.expl(t),
				agent.Hyperparams{LearningRate: 0.01, Gamma: 0.9},
				smallTraining(4), agent.Options{})
			require.NoError(t, err)
			defer func() { assert.NoError(t, dqn.Close()) }()

			require.NoError(t, dqn.HealthCheck(env))
			require.NoError(t, dqn.Train(env))

			// The trained policy still maps observations to legal
			// actions
			obs, err := env.Reset()
			require.NoError(t, err)
			action, err := dqn.Infer(obs)
			require.NoError(t, err)
			assert.Contains(t, []int{0, 1}, action)
		})
	}
}

func TestDQNHealthCheckWithUnitBatchSize(t *testing.T) {
	env := &gridEnv{stepLimit: 5}
	buffer, err := expreplay.NewUniform(expreplay.Params{MaxLen: 100}, 7)
	require.NoError(t, err)

	dqn, err := New(env, smallConfig(false, false), buffer,
		explorer.NewNone(), agent.Hyperparams{LearningRate: 0.01, Gamma: 0.9},
		smallTraining(1), agent.Options{})
	require.NoError(t, err)

	assert.NoError(t, dqn.HealthCheck(env))
}

func TestConfigValidate(t *testing.T) {
	valid := Config{
		Hidden:      []int{32, 32},
		Activations: []network.Activation{network.ReLU, network.ReLU},
	}
	assert.NoError(t, valid.Validate())

	mismatched := Config{
		Hidden:      []int{32, 32},
		Activations: []network.Activation{network.ReLU},
	}
	assert.Error(t, mismatched.Validate())

	empty := Config{Hidden: []int{0},
		Activations: []network.Activation{network.ReLU}}
	assert.Error(t, empty.Validate())
}

func TestConfigName(t *testing.T) {
	assert.Equal(t, "DQN", Config{}.name())
	assert.Equal(t, "DoubleDQN", Config{Double: true}.name())
	assert.Equal(t, "DuelingDQN", Config{Dueling: true}.name())
	assert.Equal(t, "DoubleDuelingDQN",
		Config{Double: true, Dueling: true}.name())
}
