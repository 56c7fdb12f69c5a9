package agent

import (
	"github.com/rs/zerolog"
)

// StepCallback runs after every environment interaction
type StepCallback func(TrainingStep)

// ProgressCallback runs after every finished episode. Returning true
// requests that training stop once every callback of the episode has
// run.
type ProgressCallback func(TrainingProgress) bool

// LearnCallback runs after every parameter update
type LearnCallback func(LearningStep)

type stepEntry struct {
	label string
	cb    StepCallback
}

type progressEntry struct {
	label string
	cb    ProgressCallback
}

type learnEntry struct {
	label string
	cb    LearnCallback
}

// Callbacks holds the three labeled callback registries of an agent.
// Callbacks run in registration order; registering a label twice
// replaces the earlier callback in place, keeping its position.
// Callbacks are trusted agent wiring, so errors and panics inside
// them are not caught.
type Callbacks struct {
	log      zerolog.Logger
	step     []stepEntry
	progress []progressEntry
	learn    []learnEntry
}

// NewCallbacks creates and returns a new set of callback registries
func NewCallbacks(log zerolog.Logger) *Callbacks {
	return &Callbacks{log: log}
}

// OnStep registers a labeled callback to run after every environment
// interaction
func (c *Callbacks) OnStep(label string, cb StepCallback) {
	for i := range c.step {
		if c.step[i].label == label {
			c.log.Warn().Str("label", label).
				Msg("overwriting registered step callback")
			c.step[i].cb = cb
			return
		}
	}
	c.step = append(c.step, stepEntry{label: label, cb: cb})
}

// OnProgress registers a labeled callback to run after every finished
// episode
func (c *Callbacks) OnProgress(label string, cb ProgressCallback) {
	for i := range c.progress {
		if c.progress[i].label == label {
			c.log.Warn().Str("label", label).
				Msg("overwriting registered progress callback")
			c.progress[i].cb = cb
			return
		}
	}
	c.progress = append(c.progress, progressEntry{label: label, cb: cb})
}

// OnLearn registers a labeled callback to run after every parameter
// update
func (c *Callbacks) OnLearn(label string, cb LearnCallback) {
	for i := range c.learn {
		if c.learn[i].label == label {
			c.log.Warn().Str("label", label).
				Msg("overwriting registered learn callback")
			c.learn[i].cb = cb
			return
		}
	}
	c.learn = append(c.learn, learnEntry{label: label, cb: cb})
}

// EmitStep runs every step callback in registration order
func (c *Callbacks) EmitStep(event TrainingStep) {
	for _, entry := range c.step {
		entry.cb(event)
	}
}

// EmitProgress runs every progress callback in registration order and
// returns whether any of them requested that training stop. Every
// callback runs even after one requests a stop, so trackers never
// miss the final episode.
func (c *Callbacks) EmitProgress(event TrainingProgress) bool {
	stop := false
	for _, entry := range c.progress {
		if entry.cb(event) {
			c.log.Warn().Str("label", entry.label).
				Int("episode", event.Episode).
				Msg("callback requested training stop")
			stop = true
		}
	}
	return stop
}

// EmitLearn runs every learn callback in registration order
func (c *Callbacks) EmitLearn(event LearningStep) {
	for _, entry := range c.learn {
		entry.cb(event)
	}
}
