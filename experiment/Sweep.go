package experiment

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/buwituze/formative3-group2-dqn-agent/agent"
	env "github.com/buwituze/formative3-group2-dqn-agent/environment"
	"github.com/buwituze/formative3-group2-dqn-agent/environment/envconfig"
	"github.com/buwituze/formative3-group2-dqn-agent/exploration"
	"github.com/buwituze/formative3-group2-dqn-agent/hyperparams"
	"github.com/buwituze/formative3-group2-dqn-agent/metrics"
	"github.com/buwituze/formative3-group2-dqn-agent/results"
	"github.com/buwituze/formative3-group2-dqn-agent/storage"
)

// evalSeedOffset separates the seeds of evaluation environments from
// those of training environments
const evalSeedOffset = 1 << 20

// Factory creates the environments used by a sweep
type Factory interface {
	Create(opts ...envconfig.CreateOption) (env.Environment, error)
}

// Config configures a Sweep
type Config struct {
	TotalSteps    int
	EvalEpisodes  int
	ModelDir      string
	ResultsPath   string // Results are not written to file if empty
	MetricsPath   string // Metrics are not written if empty
	Seed          uint64
	FailurePolicy FailurePolicy
}

// DefaultConfig returns the default sweep configuration
func DefaultConfig() Config {
	return Config{
		TotalSteps:    200_000,
		EvalEpisodes:  5,
		ModelDir:      ".",
		ResultsPath:   "results.csv",
		FailurePolicy: SkipAndContinue,
	}
}

// Validate returns an error if the Config is invalid
func (c Config) Validate() error {
	if c.TotalSteps < 1 {
		return fmt.Errorf("validate: total steps must be positive "+
			"\n\twant(>0)\n\thave(%v)", c.TotalSteps)
	}
	if c.EvalEpisodes < 1 {
		return fmt.Errorf("validate: evaluation episodes must be positive "+
			"\n\twant(>0)\n\thave(%v)", c.EvalEpisodes)
	}
	if _, err := ParseFailurePolicy(string(c.FailurePolicy)); err != nil {
		return fmt.Errorf("validate: %w", err)
	}
	return nil
}

// Sweep trains and evaluates one agent per hyperparameter set, strictly
// one experiment at a time
type Sweep struct {
	factory   Factory
	trainer   *Trainer
	evaluator *Evaluator
	config    Config

	store   storage.Store
	metrics *metrics.Sweep
	logger  *log.Entry
}

// SweepOption configures a Sweep
type SweepOption func(*Sweep)

// WithStore mirrors the result table of the sweep into store. The store
// must already be initialized.
func WithStore(store storage.Store) SweepOption {
	return func(s *Sweep) {
		s.store = store
	}
}

// WithMetrics records the progress of the sweep in m
func WithMetrics(m *metrics.Sweep) SweepOption {
	return func(s *Sweep) {
		s.metrics = m
	}
}

// WithLogger sets the logger of the Sweep
func WithLogger(l *log.Entry) SweepOption {
	return func(s *Sweep) {
		s.logger = l
	}
}

// NewSweep returns a new Sweep
func NewSweep(factory Factory, trainer *Trainer, evaluator *Evaluator,
	config Config, opts ...SweepOption) (*Sweep, error) {
	if config.FailurePolicy == "" {
		config.FailurePolicy = SkipAndContinue
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("newSweep: %w", err)
	}

	s := &Sweep{
		factory:   factory,
		trainer:   trainer,
		evaluator: evaluator,
		config:    config,
		metrics:   metrics.New(),
		logger:    log.NewEntry(log.StandardLogger()),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Metrics returns the metrics of the sweep
func (s *Sweep) Metrics() *metrics.Sweep {
	return s.metrics
}

// Run runs one experiment per hyperparameter set in the order given and
// returns the table of results. Sets with duplicate ids are rejected
// before any experiment is run.
//
// A failed experiment is recorded in the Failures of the table as an
// *ExperimentError. Under SkipAndContinue the sweep moves on to the
// next set; under AbortSweep the table of experiments completed so far
// is persisted and returned along with the error. The table is written
// once, after the last experiment. The context is only used by the
// store.
func (s *Sweep) Run(ctx context.Context, sets []hyperparams.Set) (
	*results.Table, error) {
	if err := hyperparams.CheckUnique(sets); err != nil {
		return nil, fmt.Errorf("run: %w", err)
	}

	table := results.NewTable()
	logger := s.logger.WithField("sweep_id", table.ID)
	logger.WithField("experiments", len(sets)).Info("starting sweep")

	for i, params := range sets {
		expLogger := logger.WithField("exp_id", params.ID)
		expLogger.WithFields(log.Fields{
			"learning_rate": params.LearningRate,
			"gamma":         params.Gamma,
			"batch_size":    params.BatchSize,
			"eps_start":     params.EpsStart,
			"eps_end":       params.EpsEnd,
			"eps_fraction":  params.EpsFraction.String(),
			"eps_decay":     params.EpsDecay.String(),
			"policy":        params.Policy,
		}).Infof("running experiment %d/%d", i+1, len(sets))

		row, err := s.runExperiment(params, expLogger)
		if err == nil {
			err = table.Append(row)
		}
		if err != nil {
			s.metrics.ExperimentFailed(params.ID)
			table.Failures = append(table.Failures, err)
			expLogger.WithError(err).Error("experiment failed")

			if s.config.FailurePolicy == AbortSweep {
				if perr := s.persist(ctx, table); perr != nil {
					logger.WithError(perr).Error("could not persist results")
				}
				return table, fmt.Errorf("run: %w", err)
			}
			continue
		}

		s.metrics.ExperimentSucceeded(params.ID, row.MeanReward)
		expLogger.Infof("Experiment %d Avg Reward = %.2f ± %.2f", params.ID,
			row.MeanReward, row.StdReward)
	}

	if err := s.persist(ctx, table); err != nil {
		return table, fmt.Errorf("run: %w", err)
	}
	logger.WithFields(log.Fields{
		"succeeded": len(table.Rows),
		"failed":    len(table.Failures),
	}).Info("sweep finished")
	return table, nil
}

// runExperiment trains, saves, and evaluates the agent of a single
// hyperparameter set. Failures are returned as an *ExperimentError.
func (s *Sweep) runExperiment(params hyperparams.Set,
	logger *log.Entry) (results.Row, error) {
	fail := func(p Phase, err error) (results.Row, error) {
		return results.Row{}, &ExperimentError{ID: params.ID, Phase: p,
			Err: err}
	}

	start := time.Now()
	e, err := s.factory.Create(envconfig.WithSeed(s.seed(params)))
	if err != nil {
		return fail(PhaseTrain, err)
	}

	fraction, err := exploration.ComputeFraction(params, s.config.TotalSteps)
	if err != nil {
		e.Close()
		return fail(PhaseSchedule, err)
	}
	logger.WithField("fraction", fraction).Debug("computed exploration " +
		"fraction")

	trained, err := s.train(e, params, fraction)
	if err != nil {
		return fail(PhaseTrain, err)
	}
	s.metrics.AddSteps(s.config.TotalSteps)
	s.metrics.ObservePhase(string(PhaseTrain), time.Since(start))

	start = time.Now()
	path := agent.ArtifactPath(s.config.ModelDir, params.ID)
	if err := trained.Save(path); err != nil {
		return fail(PhaseSave, err)
	}
	s.metrics.ObservePhase(string(PhaseSave), time.Since(start))
	logger.WithField("path", path).Info("saved agent")

	start = time.Now()
	outcomes, err := s.evaluate(params, trained)
	if err != nil {
		return fail(PhaseEvaluate, err)
	}
	s.metrics.ObservePhase(string(PhaseEvaluate), time.Since(start))

	summary := Summarize(outcomes)
	return results.Row{
		Params:            params,
		ComputedFraction:  fraction,
		MeanReward:        summary.Mean,
		StdReward:         summary.Std,
		MinReward:         summary.Min,
		MaxReward:         summary.Max,
		Rewards:           summary.Rewards,
		MeanEpisodeLength: summary.MeanLength,
		TotalTimesteps:    s.config.TotalSteps,
		ModelPath:         path,
	}, nil
}

// train trains an agent on the training environment e, which is closed
// before returning
func (s *Sweep) train(e env.Environment, params hyperparams.Set,
	fraction float64) (a agent.Agent, err error) {
	defer func() {
		if cerr := e.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("could not close training environment: %w", cerr)
		}
	}()

	return s.trainer.Train(e, params, fraction, s.config.TotalSteps)
}

// evaluate evaluates an agent on a new environment which is closed
// before returning
func (s *Sweep) evaluate(params hyperparams.Set, a agent.Policy) (
	o []EpisodeOutcome, err error) {
	e, err := s.factory.Create(envconfig.WithSeed(s.seed(params) +
		evalSeedOffset))
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := e.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("could not close evaluation environment: %w",
				cerr)
		}
	}()

	return s.evaluator.Evaluate(a, e, s.config.EvalEpisodes)
}

func (s *Sweep) seed(params hyperparams.Set) uint64 {
	return s.config.Seed + uint64(params.ID)
}

// persist writes the table to the results file, the store, and the
// metrics file, whichever are configured
func (s *Sweep) persist(ctx context.Context, table *results.Table) error {
	if s.config.ResultsPath != "" {
		if err := table.WriteCSV(s.config.ResultsPath); err != nil {
			return err
		}
		s.logger.WithField("path", s.config.ResultsPath).Info("wrote results")
	}
	if s.store != nil {
		if err := s.store.SaveTable(ctx, table); err != nil {
			return fmt.Errorf("could not store results: %w", err)
		}
	}
	if s.config.MetricsPath != "" {
		if err := s.metrics.WriteToTextfile(s.config.MetricsPath); err != nil {
			return fmt.Errorf("could not write metrics: %w", err)
		}
	}
	return nil
}
