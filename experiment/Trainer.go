package experiment

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"github.com/buwituze/formative3-group2-dqn-agent/agent"
	"github.com/buwituze/formative3-group2-dqn-agent/agent/deepq"
	env "github.com/buwituze/formative3-group2-dqn-agent/environment"
	"github.com/buwituze/formative3-group2-dqn-agent/experiment/checkpointer"
	"github.com/buwituze/formative3-group2-dqn-agent/experiment/tracker"
	"github.com/buwituze/formative3-group2-dqn-agent/exploration"
	"github.com/buwituze/formative3-group2-dqn-agent/hyperparams"
	"github.com/buwituze/formative3-group2-dqn-agent/utils/progressbar"
)

const (
	progressWidth = 40
	displayEvery  = 100
)

// LearnerMaker constructs the learner trained on an environment
type LearnerMaker func(e env.Environment, c agent.Config) (agent.Learner,
	error)

// DeepQ is the default LearnerMaker
func DeepQ(e env.Environment, c agent.Config) (agent.Learner, error) {
	d, err := deepq.New(e, c)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// Trainer trains a fresh agent for a fixed number of environment steps.
// A Trainer never evaluates or saves the agents it trains, other than
// optional checkpoints.
type Trainer struct {
	base       agent.Config
	newLearner LearnerMaker
	logger     *log.Entry
	progress   io.Writer

	checkpointEvery int
	checkpointDir   string
	returnsDir      string
}

// TrainerOption configures a Trainer
type TrainerOption func(*Trainer)

// WithLearner sets the LearnerMaker of the Trainer
func WithLearner(m LearnerMaker) TrainerOption {
	return func(t *Trainer) {
		t.newLearner = m
	}
}

// WithTrainerLogger sets the logger of the Trainer
func WithTrainerLogger(l *log.Entry) TrainerOption {
	return func(t *Trainer) {
		t.logger = l
	}
}

// WithProgress prints a progress bar of each training run to w
func WithProgress(w io.Writer) TrainerOption {
	return func(t *Trainer) {
		t.progress = w
	}
}

// WithCheckpoints saves the agent to dir every n training steps
func WithCheckpoints(n int, dir string) TrainerOption {
	return func(t *Trainer) {
		t.checkpointEvery = n
		t.checkpointDir = dir
	}
}

// WithReturns saves the returns of the training episodes of each
// experiment to dir
func WithReturns(dir string) TrainerOption {
	return func(t *Trainer) {
		t.returnsDir = dir
	}
}

// NewTrainer returns a new Trainer. Hyperparameters not covered by a
// hyperparameter set are taken from base.
func NewTrainer(base agent.Config, opts ...TrainerOption) *Trainer {
	t := &Trainer{
		base:       base,
		newLearner: DeepQ,
		logger:     log.NewEntry(log.StandardLogger()),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// AgentConfig returns the learner configuration of a hyperparameter set.
// Each experiment is seeded with the base seed offset by its id.
func (t *Trainer) AgentConfig(params hyperparams.Set) agent.Config {
	c := t.base
	c.Policy = params.Policy
	c.LearningRate = params.LearningRate
	c.Gamma = params.Gamma
	c.BatchSize = params.BatchSize
	if c.BufferSize < c.BatchSize {
		c.BufferSize = c.BatchSize
	}
	c.Seed = t.base.Seed + uint64(params.ID)
	return c
}

// Train trains a new agent on e for exactly totalSteps environment
// steps. Exploration decays linearly from the initial to the final
// exploration rate of params over fraction of the steps. The
// environment is reset whenever an episode ends and is not closed.
func (t *Trainer) Train(e env.Environment, params hyperparams.Set,
	fraction float64, totalSteps int) (agent.Agent, error) {
	if totalSteps <= 0 {
		return nil, fmt.Errorf("train: total steps must be positive "+
			"\n\twant(>0)\n\thave(%v)", totalSteps)
	}

	learner, err := t.newLearner(e, t.AgentConfig(params))
	if err != nil {
		return nil, fmt.Errorf("train: could not create agent: %w", err)
	}
	schedule := exploration.NewLinear(params, fraction, totalSteps)
	logger := t.logger.WithField("exp_id", params.ID)

	var check checkpointer.Checkpointer
	if t.checkpointEvery > 0 {
		name := filepath.Join(t.checkpointDir,
			fmt.Sprintf("dqn_model_exp%d_checkpoint", params.ID))
		check, err = checkpointer.NewNStep(t.checkpointEvery, learner,
			checkpointer.FilenameEnumerator(0, name, ".zip"))
		if err != nil {
			return nil, fmt.Errorf("train: %w", err)
		}
	}

	var bar *progressbar.ManualProgressBar
	if t.progress != nil {
		bar = progressbar.NewManualProgressBar(t.progress, progressWidth,
			totalSteps)
		defer bar.Close()
	}

	returns := tracker.NewReturn()
	step, err := e.Reset()
	if err != nil {
		return nil, fmt.Errorf("train: %w", err)
	}
	if err := learner.ObserveFirst(step); err != nil {
		return nil, fmt.Errorf("train: %w", err)
	}
	returns.Track(step)

	for i := 0; i < totalSteps; i++ {
		action, err := learner.SelectAction(step, schedule.Value(i))
		if err != nil {
			return nil, fmt.Errorf("train: step %d: %w", i, err)
		}
		next, done, err := e.Step(action)
		if err != nil {
			return nil, fmt.Errorf("train: step %d: %w", i, err)
		}
		returns.Track(next)

		if err := learner.Observe(action, next); err != nil {
			return nil, fmt.Errorf("train: step %d: %w", i, err)
		}
		if err := learner.Step(); err != nil {
			return nil, fmt.Errorf("train: step %d: %w", i, err)
		}

		if check != nil {
			if err := check.Checkpoint(i + 1); err != nil {
				return nil, fmt.Errorf("train: checkpoint: %w", err)
			}
		}
		if bar != nil {
			bar.Increment()
			if (i+1)%displayEvery == 0 || i+1 == totalSteps {
				bar.Display()
			}
		}

		step = next
		if !done {
			continue
		}

		episodes := returns.Returns()
		logger.WithFields(log.Fields{
			"step":    i + 1,
			"episode": len(episodes),
			"return":  episodes[len(episodes)-1],
			"epsilon": schedule.Value(i),
		}).Debug("training episode finished")

		if i+1 < totalSteps {
			if step, err = e.Reset(); err != nil {
				return nil, fmt.Errorf("train: %w", err)
			}
			if err := learner.ObserveFirst(step); err != nil {
				return nil, fmt.Errorf("train: %w", err)
			}
			returns.Track(step)
		}
	}

	if t.returnsDir != "" {
		if err := os.MkdirAll(t.returnsDir, 0o755); err != nil {
			return nil, fmt.Errorf("train: %w", err)
		}
		path := filepath.Join(t.returnsDir,
			fmt.Sprintf("train_returns_exp%d.bin", params.ID))
		if err := returns.Save(path); err != nil {
			return nil, fmt.Errorf("train: could not save returns: %w", err)
		}
	}

	logger.WithField("episodes", len(returns.Returns())).Info(
		"training finished")
	return learner, nil
}
