// Package experiment implements the training loop driving an agent
// against an environment
package experiment

import (
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/samuelfneumann/progressbar"

	"github.com/argmaxrl/argmax/agent"
	"github.com/argmaxrl/argmax/environment"
	"github.com/argmaxrl/argmax/expreplay"
)

// Trainer runs an agent against an environment episode by episode.
// Per environment interaction it selects an action, stores the
// transition for replay, updates the agent on the configured
// schedule, and fires the agent's step callbacks. Per finished
// episode it fires the agent's progress callbacks, stopping early
// when one of them requests it.
//
// A Trainer is single threaded and drives one agent at a time.
type Trainer struct {
	log          zerolog.Logger
	showProgress bool
}

// NewTrainer creates and returns a new Trainer. When showProgress is
// set, a progress bar displays episode completion on the terminal.
func NewTrainer(log zerolog.Logger, showProgress bool) *Trainer {
	return &Trainer{log: log, showProgress: showProgress}
}

// Run trains a for the configured number of episodes on env
func (t *Trainer) Run(a agent.Trainable, env environment.Environment) error {
	params := a.Params()
	t.log.Info().Str("environment", env.String()).
		Int("episodes", params.Episodes).Msg("starting training")

	var bar *progressbar.ProgressBar
	if t.showProgress {
		bar = progressbar.New(65, params.Episodes, time.Second, false)
		bar.Display()
		defer bar.Close()
	}

	step := 0
	for episode := 0; episode < params.Episodes; episode++ {
		total, err := t.runEpisode(a, env, params, &step)
		if err != nil {
			return errors.Wrapf(err, "run: episode %d", episode)
		}

		stop := a.EmitProgress(agent.TrainingProgress{
			Episode:     episode,
			TotalReward: total,
		})
		if bar != nil {
			bar.Increment()
		}
		t.log.Debug().Int("episode", episode).Float64("reward", total).
			Int("steps", step).Msg("finished episode")

		if stop {
			t.log.Warn().Int("episode", episode).
				Msg("stopping training early")
			break
		}
	}

	t.log.Info().Int("steps", step).Msg("finished training")
	return nil
}

// runEpisode runs a single episode and returns its total reward
func (t *Trainer) runEpisode(a agent.Trainable, env environment.Environment,
	params agent.TrainingParams, step *int) (float64, error) {
	obs, err := env.Reset()
	if err != nil {
		return 0, errors.Wrap(err, "could not reset environment")
	}

	total := 0.0
	for {
		action, err := a.Infer(obs)
		if err != nil {
			return total, errors.Wrap(err, "could not select action")
		}

		next, reward, done, err := env.Step(action)
		if err != nil {
			return total, errors.Wrap(err, "could not step environment")
		}
		total += reward

		if err := a.Remember(expreplay.NewEntry(obs, next, action, reward,
			done)); err != nil {
			return total, errors.Wrap(err, "could not store transition")
		}

		*step++
		if *step%params.LearnEvery == 0 && a.ReadyToLearn() {
			if err := a.LearnFromReplay(); err != nil {
				return total, errors.Wrap(err, "could not learn")
			}
		}
		a.EmitStep(agent.TrainingStep{Step: *step})

		if done {
			return total, nil
		}
		obs = next
	}
}
