package agent

import (
	"math"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	"github.com/argmaxrl/argmax/environment"
	"github.com/argmaxrl/argmax/experiment/tracker"
	"github.com/argmaxrl/argmax/expreplay"
	"github.com/argmaxrl/argmax/explorer"
	"github.com/argmaxrl/argmax/metrics"
	"github.com/argmaxrl/argmax/network"
)

// healthCheckBatch is the number of transitions a health check learns
// on, clamped to the configured batch size
const healthCheckBatch = 2

// noiseExplorer is an exploration policy that injects noise into the
// model itself
type noiseExplorer interface {
	network.Wrapper
	ResetNoiseEvery() int
	LayerFactory() network.LayerFactory
}

// Options configures the ambient concerns of a Base: logging, metrics
// and persistence. The zero value disables all of them.
type Options struct {
	// Logger receives the agent's structured log events. When nil the
	// agent logs nowhere.
	Logger *zerolog.Logger

	// SaveDir is the folder under which training runs are persisted.
	// Empty disables persistence.
	SaveDir string

	// SaveProgress persists a checkpoint per episode and scalar
	// metrics inside the run folder. Requires SaveDir.
	SaveProgress bool

	// Metrics receives scalar training metrics. When nil and
	// SaveProgress is set, a JSONL sink is created inside the run
	// folder; otherwise metrics are discarded.
	Metrics metrics.Sink
}

// Base is the shared core of every agent. It owns the exploration
// policy, the replay buffer, the callback registries, the model
// registry and the model-wrapper chain, and links them together at
// construction time from the capabilities the parts declare. Concrete
// algorithms embed a Base and bind themselves to it.
//
// A Base and everything built on it is single threaded.
type Base struct {
	name string
	algo Algorithm

	expl   explorer.Explorer
	buffer expreplay.Buffer

	hyper Hyperparams
	tp    TrainingParams

	// gamma is the effective discount: the configured discount raised
	// to the replay buffer's n-step horizon
	gamma float64

	*Callbacks

	wrappers []network.Wrapper
	models   []network.NeuralNet

	log  zerolog.Logger
	sink metrics.Sink

	saveDir      string
	saveProgress bool
	ownSink      bool
	run          *tracker.Run
}

// NewBase creates a new agent core from an exploration policy and a
// replay buffer and links the two to the agent's callbacks according
// to the capabilities they declare. NewBase fails when the training
// batch size exceeds the buffer's capacity, since such an agent could
// never learn.
func NewBase(name string, buffer expreplay.Buffer, expl explorer.Explorer,
	hyper Hyperparams, tp TrainingParams, opts Options) (*Base, error) {
	if err := hyper.Validate(); err != nil {
		return nil, errors.Wrap(err, "newbase: invalid hyperparameters")
	}
	if err := tp.Validate(); err != nil {
		return nil, errors.Wrap(err, "newbase: invalid training parameters")
	}
	if tp.BatchSize > buffer.Cap() {
		return nil, errors.Errorf("newbase: batch size (%v) exceeds replay "+
			"buffer capacity (%v)", tp.BatchSize, buffer.Cap())
	}
	if opts.SaveProgress && opts.SaveDir == "" {
		return nil, errors.New("newbase: saving progress requires a save " +
			"folder")
	}

	log := zerolog.Nop()
	if opts.Logger != nil {
		log = opts.Logger.With().Str("agent", name).Logger()
	}

	sink := opts.Metrics
	ownSink := sink == nil
	if sink == nil {
		sink = metrics.Nop()
	}

	b := &Base{
		name:         name,
		expl:         expl,
		buffer:       buffer,
		hyper:        hyper,
		tp:           tp,
		gamma:        hyper.Gamma,
		Callbacks:    NewCallbacks(log),
		log:          log,
		sink:         sink,
		saveDir:      opts.SaveDir,
		saveProgress: opts.SaveProgress,
		ownSink:      ownSink,
	}

	b.OnProgress("episode-reward", func(event TrainingProgress) bool {
		if err := b.sink.Scalar("reward", event.TotalReward,
			event.Episode); err != nil {
			b.log.Error().Err(err).Msg("could not record episode reward")
		}
		return false
	})

	if err := b.linkBuffer(); err != nil {
		return nil, err
	}
	if err := b.linkExplorer(); err != nil {
		return nil, err
	}
	return b, nil
}

// linkBuffer wires the replay buffer's declared capabilities to the
// agent's callbacks
func (b *Base) linkBuffer() error {
	caps := b.buffer.Capabilities()

	if n := caps.NStep; n > 1 {
		b.gamma = math.Pow(b.hyper.Gamma, float64(n))
		b.log.Info().Int("n", n).Float64("gamma", b.gamma).
			Msg("linked n-step replay, discounting over the horizon")
	}

	if !caps.Prioritized {
		return nil
	}
	sampler, ok := b.buffer.(expreplay.PrioritySampler)
	if !ok {
		return errors.New("linkbuffer: buffer declares prioritized " +
			"sampling but does not implement it")
	}

	b.OnLearn("update-priorities", func(event LearningStep) {
		indices := make([]int, len(event.Batch))
		priorities := make([]float64, len(event.Batch))
		for i, t := range event.Batch {
			indices[i] = t.Index
			priorities[i] = math.Abs(event.Predicted[i] - event.Target[i])
		}
		if err := sampler.UpdatePriorities(indices, priorities); err != nil {
			b.log.Error().Err(err).Msg("could not update replay priorities")
		}
	})
	b.OnStep("increase-beta", func(TrainingStep) {
		sampler.IncreaseBeta()
	})
	b.OnProgress("beta", func(event TrainingProgress) bool {
		if err := b.sink.Scalar("beta", sampler.Beta(),
			event.Episode); err != nil {
			b.log.Error().Err(err).Msg("could not record beta")
		}
		return false
	})

	b.log.Info().Msg("linked prioritized replay")
	return nil
}

// linkExplorer wires the exploration policy's declared capabilities
// to the agent's callbacks and model-wrapper chain
func (b *Base) linkExplorer() error {
	caps := b.expl.Capabilities()

	if caps.Decays {
		decayer, ok := b.expl.(explorer.Decayer)
		if !ok {
			return errors.New("linkexplorer: explorer declares decay but " +
				"does not implement it")
		}

		b.OnStep("decay-epsilon", func(TrainingStep) {
			decayer.Decay()
		})
		b.OnProgress("epsilon", func(event TrainingProgress) bool {
			if err := b.sink.Scalar("epsilon", decayer.Epsilon(),
				event.Episode); err != nil {
				b.log.Error().Err(err).Msg("could not record epsilon")
			}
			return false
		})
		b.log.Info().Msg("linked decaying exploration")
	}

	if caps.Noisy {
		noisy, ok := b.expl.(noiseExplorer)
		if !ok {
			return errors.New("linkexplorer: explorer declares noise " +
				"injection but does not implement it")
		}

		b.wrappers = append(b.wrappers, noisy)
		every := noisy.ResetNoiseEvery()
		b.OnStep("reset-noise", func(event TrainingStep) {
			if event.Step%every != 0 {
				return
			}
			for _, model := range b.models {
				resetter, ok := model.(network.NoiseResetter)
				if !ok {
					continue
				}
				if err := resetter.ResetNoise(); err != nil {
					b.log.Error().Err(err).Msg("could not reset model noise")
				}
			}
		})
		b.log.Info().Int("resetNoiseEvery", every).
			Msg("linked noise-injection exploration")
	}
	return nil
}

// Bind attaches the concrete algorithm the Base drives. It must be
// called exactly once, before the algorithm builds its models.
func (b *Base) Bind(algo Algorithm) error {
	if b.algo != nil {
		return errors.New("bind: agent core is already bound")
	}
	b.algo = algo
	return nil
}

// BuildModel builds the bound algorithm's model, threads it through
// the model-wrapper chain in registration order, and registers the
// result
func (b *Base) BuildModel() (network.NeuralNet, error) {
	if b.algo == nil {
		return nil, errors.New("buildmodel: agent core is not bound")
	}

	model, err := b.algo.ModelFactory()
	if err != nil {
		return nil, errors.Wrap(err, "buildmodel: could not build model")
	}
	for _, wrapper := range b.wrappers {
		if model, err = wrapper.Wrap(model); err != nil {
			return nil, errors.Wrap(err, "buildmodel: could not wrap model")
		}
	}

	b.RegisterModel(model)
	return model, nil
}

// RegisterModel adds a model to the registry of models the agent's
// linked callbacks operate on
func (b *Base) RegisterModel(model network.NeuralNet) {
	b.models = append(b.models, model)
}

// LastLayerFactory returns the factory the model should build its
// output layers with: noise capable when the exploration policy
// injects noise, plain linear otherwise
func (b *Base) LastLayerFactory() network.LayerFactory {
	if noisy, ok := b.expl.(noiseExplorer); ok {
		return noisy.LayerFactory()
	}
	return network.NewLinearFactory(network.Identity)
}

// SelectAction delegates action selection over predicted action
// values to the exploration policy
func (b *Base) SelectAction(actionValues []float64) int {
	return b.expl.SelectAction(mat.NewVecDense(len(actionValues),
		actionValues))
}

// Gamma returns the effective discount factor, accounting for the
// replay buffer's n-step horizon
func (b *Base) Gamma() float64 {
	return b.gamma
}

// Hyper returns the learning hyperparameters
func (b *Base) Hyper() Hyperparams {
	return b.hyper
}

// Params returns the parameters the training loop honors
func (b *Base) Params() TrainingParams {
	return b.tp
}

// Name returns the agent's name, used in log events and save paths
func (b *Base) Name() string {
	return b.name
}

// Logger returns the agent's logger
func (b *Base) Logger() zerolog.Logger {
	return b.log
}

// Run returns the persisted run of the agent, or nil when persistence
// is disabled or the health check has not run yet
func (b *Base) Run() *tracker.Run {
	return b.run
}

// Close releases the metrics sink the agent created for itself during
// the health check. Injected sinks are left open for their owner to
// close. Close is safe to call more than once.
func (b *Base) Close() error {
	if !b.ownSink {
		return nil
	}
	sink := b.sink
	b.sink = metrics.Nop()
	b.ownSink = false
	return errors.Wrap(sink.Close(), "close: could not close metrics sink")
}

// Remember stores one environment transition for later replay
func (b *Base) Remember(t expreplay.Entry) error {
	return errors.Wrap(b.buffer.Add(t), "remember")
}

// ReadyToLearn reports whether the replay buffer holds enough
// transitions for a parameter update
func (b *Base) ReadyToLearn() bool {
	return b.buffer.Len() >= b.tp.BatchSize
}

// LearnFromReplay samples a batch of transitions, updates the bound
// algorithm's model from it, and fires the learn callbacks
func (b *Base) LearnFromReplay() error {
	batch, err := b.buffer.Sample(b.tp.BatchSize)
	if err != nil {
		return errors.Wrap(err, "learnfromreplay: could not sample batch")
	}

	event, err := b.algo.Learn(batch)
	if err != nil {
		b.log.Error().Err(err).Msg("parameter update failed")
		return errors.Wrap(err, "learnfromreplay")
	}

	b.EmitLearn(event)
	return nil
}

// HealthCheck exercises the agent's full wiring against env before
// any real training happens: preprocessing an observation, inferring
// an action, and learning from a small batch of collected
// transitions. Any failure is fatal and reported with the phase that
// broke. Afterward the replay buffer is cleared of the transitions
// the check collected and the run's persistence is initialized, so
// the check must run before real data collection begins.
func (b *Base) HealthCheck(env environment.Environment) error {
	if b.algo == nil {
		return errors.New("healthcheck: agent core is not bound")
	}
	b.log.Info().Str("environment", env.String()).Msg("running health check")

	obs, err := env.Reset()
	if err != nil {
		return errors.Wrap(err, "healthcheck: could not reset environment")
	}

	if _, err := b.algo.Preprocess(obs); err != nil {
		return b.failCheck(PhasePreprocess, err)
	}
	if _, err := b.algo.Infer(obs); err != nil {
		return b.failCheck(PhaseInference, err)
	}

	// Collect transitions with a fixed action until the buffer can
	// serve a small batch, no larger than the batch size the algorithm
	// was built for. An n-step buffer may withhold transitions until
	// its window fills, so the loop is bounded by interactions, not
	// additions.
	size := healthCheckBatch
	if b.tp.BatchSize < size {
		size = b.tp.BatchSize
	}
	for i := 0; b.buffer.Len() < size; i++ {
		if i >= 100 {
			return b.failCheck(PhaseLearning, errors.New(
				"replay buffer yielded no transitions after 100 interactions"))
		}
		next, reward, done, err := env.Step(0)
		if err != nil {
			return b.failCheck(PhaseLearning, err)
		}
		add := expreplay.NewEntry(obs, next, 0, reward, done)
		if err := b.buffer.Add(add); err != nil {
			return b.failCheck(PhaseLearning, err)
		}
		obs = next
		if done {
			if obs, err = env.Reset(); err != nil {
				return b.failCheck(PhaseLearning, err)
			}
		}
	}

	batch, err := b.buffer.Sample(size)
	if err != nil {
		return b.failCheck(PhaseLearning, err)
	}
	if _, err := b.algo.Learn(batch); err != nil {
		return b.failCheck(PhaseLearning, err)
	}

	b.buffer.Clear()
	b.log.Info().Msg("health check passed")

	return b.initPersistence(env)
}

// failCheck logs and wraps a health check failure with the phase it
// surfaced in
func (b *Base) failCheck(phase string, err error) error {
	hcErr := &HealthCheckError{Phase: phase, Err: err}
	b.log.Error().Err(err).Str("phase", phase).Msg("health check failed")
	return hcErr
}

// runInfo is the static agent snapshot persisted to agent.json
type runInfo struct {
	ID          string         `json:"id"`
	Agent       string         `json:"agent"`
	Environment string         `json:"environment"`
	Started     time.Time      `json:"started"`
	Hyper       Hyperparams    `json:"hyperparameters"`
	Training    TrainingParams `json:"training"`
}

// initPersistence creates the run folder, saves the static agent
// snapshot, and attaches the checkpoint callback and metrics sink
func (b *Base) initPersistence(env environment.Environment) error {
	if b.saveDir == "" {
		return nil
	}

	run, err := tracker.NewRun(b.saveDir, b.name, env.String())
	if err != nil {
		return errors.Wrap(err, "healthcheck: could not initialize run")
	}
	b.run = run

	info := runInfo{
		ID:          uuid.NewString(),
		Agent:       b.name,
		Environment: env.String(),
		Started:     time.Now(),
		Hyper:       b.hyper,
		Training:    b.tp,
	}
	if err := run.SaveInfo(info); err != nil {
		return errors.Wrap(err, "healthcheck: could not save agent snapshot")
	}
	b.log.Info().Str("run", info.ID).Str("dir", run.Dir()).
		Msg("initialized run folder")

	if !b.saveProgress {
		return nil
	}

	if b.ownSink {
		sink, err := metrics.NewJSONL(filepath.Join(run.Dir(),
			"metrics.jsonl"))
		if err != nil {
			return errors.Wrap(err, "healthcheck: could not create metrics "+
				"sink")
		}
		b.sink = sink
	}

	b.OnProgress("checkpoint", func(event TrainingProgress) bool {
		if err := run.SaveCheckpoint(event); err != nil {
			b.log.Error().Err(err).Int("episode", event.Episode).
				Msg("could not save checkpoint")
		}
		return false
	})
	return nil
}
