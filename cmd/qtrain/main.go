// Command qtrain trains a deep Q-learning agent on the cartpole
// environment. All composition happens here: flags and QTRAIN_
// environment variables pick the replay buffer, the exploration
// policy, and the learning variant, and the wired agent is health
// checked before training starts.
package main

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/argmaxrl/argmax/agent"
	"github.com/argmaxrl/argmax/agent/deepq"
	"github.com/argmaxrl/argmax/environment/cartpole"
	"github.com/argmaxrl/argmax/expreplay"
	"github.com/argmaxrl/argmax/explorer"
	"github.com/argmaxrl/argmax/network"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:          "qtrain",
		Short:        "Train a deep Q-learning agent on cartpole",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(v)
		},
	}

	flags := cmd.Flags()
	flags.Int("episodes", 200, "number of training episodes")
	flags.Int("batch-size", 32, "transitions per parameter update")
	flags.Int("capacity", 10000, "replay buffer capacity")
	flags.String("buffer", "uniform", "replay buffer: uniform or prioritized")
	flags.Int("n-step", 1, "n-step bootstrapping horizon")
	flags.String("explorer", "random", "exploration: random, noisy or none")
	flags.Bool("double", false, "use double Q-learning")
	flags.Bool("dueling", false, "use a dueling network head")
	flags.Float64("learning-rate", 0.001, "solver learning rate")
	flags.Float64("gamma", 0.99, "discount factor")
	flags.Int("learn-every", 4, "environment steps between updates")
	flags.Int("ensure-every", 100, "updates between target network syncs")
	flags.String("save-dir", "", "folder for persisted runs, empty disables")
	flags.Bool("save-progress", false, "persist checkpoints and metrics")
	flags.String("log-level", "info", "log level: debug, info, warn or error")
	flags.Uint64("seed", 42, "random seed")

	v.SetEnvPrefix("QTRAIN")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(flags); err != nil {
		panic(err)
	}
	return cmd
}

func run(v *viper.Viper) error {
	level, err := zerolog.ParseLevel(v.GetString("log-level"))
	if err != nil {
		return errors.Wrap(err, "invalid log level")
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).With().Timestamp().Logger()

	seed := v.GetUint64("seed")
	env := cartpole.New(seed)

	buffer, err := buildBuffer(v, seed)
	if err != nil {
		return errors.Wrap(err, "could not create replay buffer")
	}
	expl, err := buildExplorer(v, seed)
	if err != nil {
		return errors.Wrap(err, "could not create explorer")
	}

	config := deepq.Config{
		Hidden:      []int{64, 64},
		Activations: []network.Activation{network.ReLU, network.ReLU},
		Double:      v.GetBool("double"),
		Dueling:     v.GetBool("dueling"),
	}
	hyper := agent.Hyperparams{
		LearningRate: v.GetFloat64("learning-rate"),
		Gamma:        v.GetFloat64("gamma"),
	}
	training := agent.TrainingParams{
		LearnEvery:  v.GetInt("learn-every"),
		EnsureEvery: v.GetInt("ensure-every"),
		BatchSize:   v.GetInt("batch-size"),
		Episodes:    v.GetInt("episodes"),
	}
	opts := agent.Options{
		Logger:       &log,
		SaveDir:      v.GetString("save-dir"),
		SaveProgress: v.GetBool("save-progress"),
	}

	dqn, err := deepq.New(env, config, buffer, expl, hyper, training, opts)
	if err != nil {
		return errors.Wrap(err, "could not create agent")
	}
	defer func() {
		if err := dqn.Close(); err != nil {
			log.Error().Err(err).Msg("could not close agent")
		}
	}()

	if err := dqn.HealthCheck(env); err != nil {
		return errors.Wrap(err, "agent failed its health check")
	}
	return dqn.Train(env)
}

// buildBuffer composes the replay buffer from the buffer and n-step
// flags
func buildBuffer(v *viper.Viper, seed uint64) (expreplay.Buffer, error) {
	capacity := v.GetInt("capacity")

	var buffer expreplay.Buffer
	var err error
	switch kind := v.GetString("buffer"); kind {
	case "uniform":
		buffer, err = expreplay.NewUniform(
			expreplay.Params{MaxLen: capacity}, seed)
	case "prioritized":
		buffer, err = expreplay.NewPrioritized(expreplay.PrioritizedParams{
			Params:       expreplay.Params{MaxLen: capacity},
			Alpha:        0.6,
			InitBeta:     0.4,
			FinalBeta:    1.0,
			IncreaseBeta: 1.0001,
		}, seed)
	default:
		return nil, errors.Errorf("unknown buffer %q", kind)
	}
	if err != nil {
		return nil, err
	}

	if n := v.GetInt("n-step"); n > 1 {
		buffer, err = expreplay.NewNStep(buffer, expreplay.NStepParams{
			NStep: n,
			Gamma: v.GetFloat64("gamma"),
		})
		if err != nil {
			return nil, err
		}
	}
	return buffer, nil
}

// buildExplorer composes the exploration policy from the explorer
// flag
func buildExplorer(v *viper.Viper, seed uint64) (explorer.Explorer, error) {
	switch kind := v.GetString("explorer"); kind {
	case "random":
		return explorer.NewRandom(explorer.RandomParams{
			InitEp:  1.0,
			FinalEp: 0.01,
			DecayEp: 0.999,
		}, seed)
	case "noisy":
		return explorer.NewNoisy(explorer.NoisyParams{
			StdInit:         0.5,
			ResetNoiseEvery: 4,
		}, seed)
	case "none":
		return explorer.NewNone(), nil
	default:
		return nil, errors.Errorf("unknown explorer %q", kind)
	}
}
