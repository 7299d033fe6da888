package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/buwituze/formative3-group2-dqn-agent/agent"
	"github.com/buwituze/formative3-group2-dqn-agent/environment/envconfig"
	"github.com/buwituze/formative3-group2-dqn-agent/environment/gym"
	"github.com/buwituze/formative3-group2-dqn-agent/experiment"
	"github.com/buwituze/formative3-group2-dqn-agent/hyperparams"
	"github.com/buwituze/formative3-group2-dqn-agent/metrics"
	"github.com/buwituze/formative3-group2-dqn-agent/results"
	"github.com/buwituze/formative3-group2-dqn-agent/storage"
)

type trainFlags struct {
	hyperparameters string
	timesteps       int
	evalEpisodes    int
	output          string
	modelDir        string
	failurePolicy   string
	seed            uint64
	store           string
	sqlitePath      string
	metricsFile     string
	agentConfig     string
	checkpointEvery int
	returnsDir      string
	progress        bool
}

func newTrainCmd() *cobra.Command {
	var f trainFlags
	defaults := experiment.DefaultConfig()

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train and evaluate one agent per hyperparameter set",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTrain(cmd.Context(), f)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.hyperparameters, "hyperparameters",
		envString("DQN_HYPERPARAMETERS", ""), "CSV file of hyperparameter sets")
	flags.IntVar(&f.timesteps, "timesteps",
		envInt("DQN_TIMESTEPS", defaults.TotalSteps),
		"training steps per experiment")
	flags.IntVar(&f.evalEpisodes, "eval-episodes",
		envInt("DQN_EVAL_EPISODES", defaults.EvalEpisodes),
		"evaluation episodes per experiment")
	flags.StringVar(&f.output, "output",
		envString("DQN_OUTPUT", defaults.ResultsPath), "results CSV file")
	flags.StringVar(&f.modelDir, "model-dir",
		envString("DQN_MODEL_DIR", defaults.ModelDir),
		"directory of saved agents")
	flags.StringVar(&f.failurePolicy, "failure-policy",
		envString("DQN_FAILURE_POLICY", string(defaults.FailurePolicy)),
		"what to do when an experiment fails: skip or abort")
	flags.Uint64Var(&f.seed, "seed", envUint("DQN_SEED", 0), "base seed")
	flags.StringVar(&f.store, "store", envString("DQN_STORE", "memory"),
		"result store backend: memory or sqlite")
	flags.StringVar(&f.sqlitePath, "sqlite-path",
		envString("DQN_SQLITE_PATH", "sweeps.db"), "SQLite database file")
	flags.StringVar(&f.metricsFile, "metrics-file",
		envString("DQN_METRICS_FILE", ""), "Prometheus textfile to write")
	flags.StringVar(&f.agentConfig, "agent-config",
		envString("DQN_AGENT_CONFIG", ""), "JSON file of agent settings")
	flags.IntVar(&f.checkpointEvery, "checkpoint-every",
		envInt("DQN_CHECKPOINT_EVERY", 0),
		"save agents every this many training steps")
	flags.StringVar(&f.returnsDir, "returns-dir",
		envString("DQN_RETURNS_DIR", ""),
		"directory to save training returns in")
	flags.BoolVar(&f.progress, "progress", envBool("DQN_PROGRESS", true),
		"display training progress")

	return cmd
}

func runTrain(ctx context.Context, f trainFlags) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if f.hyperparameters == "" {
		return fmt.Errorf("train: --hyperparameters is required")
	}

	sets, err := hyperparams.LoadCSV(f.hyperparameters)
	if err != nil {
		return fmt.Errorf("train: %w", err)
	}
	log.WithField("experiments", len(sets)).Info("loaded hyperparameters")

	base, err := loadAgentConfig(f.agentConfig)
	if err != nil {
		return fmt.Errorf("train: %w", err)
	}
	base.Seed = f.seed

	failure, err := experiment.ParseFailurePolicy(f.failurePolicy)
	if err != nil {
		return fmt.Errorf("train: %w", err)
	}

	store, err := storage.NewStore(f.store, f.sqlitePath)
	if err != nil {
		return fmt.Errorf("train: %w", err)
	}
	if err := store.Init(ctx); err != nil {
		return fmt.Errorf("train: could not initialize store: %w", err)
	}
	defer storage.CloseIfSupported(store)

	logger := log.NewEntry(log.StandardLogger())
	opts := []experiment.TrainerOption{experiment.WithTrainerLogger(logger)}
	if f.progress {
		opts = append(opts, experiment.WithProgress(os.Stderr))
	}
	if f.checkpointEvery > 0 {
		opts = append(opts, experiment.WithCheckpoints(f.checkpointEvery,
			f.modelDir))
	}
	if f.returnsDir != "" {
		opts = append(opts, experiment.WithReturns(f.returnsDir))
	}

	config := experiment.Config{
		TotalSteps:    f.timesteps,
		EvalEpisodes:  f.evalEpisodes,
		ModelDir:      f.modelDir,
		ResultsPath:   f.output,
		MetricsPath:   f.metricsFile,
		Seed:          f.seed,
		FailurePolicy: failure,
	}
	factory := envconfig.NewFactory(gym.Make, envconfig.DefaultConfig())
	sweep, err := experiment.NewSweep(factory,
		experiment.NewTrainer(base, opts...), experiment.NewEvaluator(),
		config, experiment.WithStore(store),
		experiment.WithMetrics(metrics.New()),
		experiment.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("train: %w", err)
	}

	table, err := sweep.Run(ctx, sets)
	if table != nil {
		report(table)
	}
	return err
}

// loadAgentConfig returns the default agent configuration overridden by
// the JSON file at path, if path is not empty
func loadAgentConfig(path string) (agent.Config, error) {
	c := agent.DefaultConfig()
	if path == "" {
		return c, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return agent.Config{}, fmt.Errorf("loadAgentConfig: %w", err)
	}
	if err := json.Unmarshal(data, &c); err != nil {
		return agent.Config{}, fmt.Errorf("loadAgentConfig: %v: %w", path, err)
	}
	return c, nil
}

// report prints the results of a sweep
func report(table *results.Table) {
	fmt.Printf("\nSweep %v: %d succeeded, %d failed\n", table.ID,
		len(table.Rows), len(table.Failures))
	for _, r := range table.Rows {
		fmt.Printf("Experiment %d Avg Reward = %.2f ± %.2f\n", r.Params.ID,
			r.MeanReward, r.StdReward)
	}
	for _, err := range table.Failures {
		fmt.Printf("  %v\n", err)
	}

	if len(table.Rows) == 0 {
		return
	}
	best := table.Rows[0]
	for _, r := range table.Rows[1:] {
		if r.MeanReward > best.MeanReward {
			best = r
		}
	}
	fmt.Printf("Best: experiment %d (%.2f), saved to %v\n", best.Params.ID,
		best.MeanReward, best.ModelPath)
}
