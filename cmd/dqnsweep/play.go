package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/buwituze/formative3-group2-dqn-agent/agent"
	"github.com/buwituze/formative3-group2-dqn-agent/agent/deepq"
	env "github.com/buwituze/formative3-group2-dqn-agent/environment"
	"github.com/buwituze/formative3-group2-dqn-agent/environment/envconfig"
	"github.com/buwituze/formative3-group2-dqn-agent/environment/gym"
	"github.com/buwituze/formative3-group2-dqn-agent/experiment"
)

// playBufferSize is the replay buffer size of agents loaded for
// playback
const playBufferSize = 1000

type playFlags struct {
	model      string
	episodes   int
	noRender   bool
	frameDelay time.Duration
	seed       uint64
}

func newPlayCmd() *cobra.Command {
	var f playFlags

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play back a trained agent greedily",
		RunE: func(*cobra.Command, []string) error {
			return runPlay(f)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.model, "model", envString("DQN_MODEL", "dqn_model.zip"),
		"saved agent to play")
	flags.IntVar(&f.episodes, "episodes", envInt("DQN_EPISODES", 5),
		"number of episodes")
	flags.BoolVar(&f.noRender, "no-render", envBool("DQN_NO_RENDER", false),
		"do not draw the game")
	flags.DurationVar(&f.frameDelay, "frame-delay",
		envDuration("DQN_FRAME_DELAY", 20*time.Millisecond),
		"delay between rendered frames")
	flags.Uint64Var(&f.seed, "seed", envUint("DQN_SEED", 0),
		"environment seed")

	return cmd
}

func runPlay(f playFlags) error {
	if _, err := os.Stat(f.model); errors.Is(err, fs.ErrNotExist) {
		listModels(filepath.Dir(f.model))
		return fmt.Errorf("play: %w", &agent.LoadError{Path: f.model,
			Err: err})
	}

	trained, err := deepq.Load(f.model, deepq.WithBufferSize(playBufferSize))
	if err != nil {
		return fmt.Errorf("play: %w", err)
	}
	log.WithFields(log.Fields{
		"model":  f.model,
		"policy": trained.Type(),
	}).Info("loaded agent")

	mode := env.RenderInteractive
	if f.noRender {
		mode = env.RenderNone
	}
	factory := envconfig.NewFactory(gym.Make, envconfig.DefaultConfig())
	e, err := factory.Create(envconfig.WithRenderMode(mode),
		envconfig.WithFrameDelay(f.frameDelay), envconfig.WithSeed(f.seed))
	if err != nil {
		return fmt.Errorf("play: %w", err)
	}
	defer e.Close()

	evaluator := experiment.NewEvaluator(experiment.WithEpisodeCallback(
		func(i int, o experiment.EpisodeOutcome) {
			fmt.Printf("Episode %d: reward = %.2f, steps = %d\n", i, o.Reward,
				o.Steps)
		}))
	outcomes, err := evaluator.Evaluate(trained, e, f.episodes)
	if err != nil {
		return fmt.Errorf("play: %w", err)
	}

	s := experiment.Summarize(outcomes)
	fmt.Printf("\nPlayed %d episodes of %v\n", len(outcomes), factory.ID())
	fmt.Printf("Mean reward: %.2f ± %.2f\n", s.Mean, s.Std)
	fmt.Printf("Best episode: %.2f\n", s.Max)
	fmt.Printf("Worst episode: %.2f\n", s.Min)
	fmt.Printf("Average length: %.1f steps\n", s.MeanLength)
	fmt.Printf("Rewards: %v\n", s.Rewards)
	return nil
}

// listModels prints the saved agents in dir
func listModels(dir string) {
	models, err := filepath.Glob(filepath.Join(dir, "*.zip"))
	if err != nil || len(models) == 0 {
		fmt.Printf("No saved agents found in %v\n", dir)
		return
	}
	fmt.Printf("Available agents in %v:\n", dir)
	for _, m := range models {
		fmt.Printf("  %v\n", m)
	}
}
