package experiment

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	log "github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"gonum.org/v1/gonum/mat"

	"github.com/buwituze/formative3-group2-dqn-agent/agent"
	env "github.com/buwituze/formative3-group2-dqn-agent/environment"
	"github.com/buwituze/formative3-group2-dqn-agent/environment/envconfig"
	"github.com/buwituze/formative3-group2-dqn-agent/environment/gridworld"
	"github.com/buwituze/formative3-group2-dqn-agent/environment/wrappers"
	"github.com/buwituze/formative3-group2-dqn-agent/experiment/tracker"
	"github.com/buwituze/formative3-group2-dqn-agent/hyperparams"
	"github.com/buwituze/formative3-group2-dqn-agent/results"
	"github.com/buwituze/formative3-group2-dqn-agent/storage"
	ts "github.com/buwituze/formative3-group2-dqn-agent/timestep"
)

const rows, cols = 3, 5

// corridor returns a single row gridworld with the goal three cells to
// the right of the start. Moving right reaches the goal with a return
// of -1 - 1 + 10 = 8.
func corridor(t *testing.T) *gridworld.GridWorld {
	t.Helper()
	start, err := gridworld.NewSingleStart(0, 0, 1, 4)
	if err != nil {
		t.Fatal(err)
	}
	g, err := gridworld.New(gridworld.Config{
		Rows:       1,
		Cols:       4,
		GoalX:      []int{3},
		GoalY:      []int{0},
		StepReward: -1,
		GoalReward: 10,
		Discount:   1,
	}, start)
	if err != nil {
		t.Fatal(err)
	}
	return g
}

// scripted is a Learner which always takes the same action and records
// how it is driven
type scripted struct {
	action   int
	epsilons []float64
	firsts   int
	observed int
	steps    int
	saved    []string
}

func (s *scripted) SelectAction(_ ts.TimeStep, ε float64) (*mat.VecDense,
	error) {
	s.epsilons = append(s.epsilons, ε)
	return mat.NewVecDense(1, []float64{float64(s.action)}), nil
}

func (s *scripted) Type() agent.PolicyType { return agent.LinearPolicy }

func (s *scripted) Save(path string) error {
	s.saved = append(s.saved, path)
	return nil
}

func (s *scripted) ObserveFirst(ts.TimeStep) error {
	s.firsts++
	return nil
}

func (s *scripted) Observe(*mat.VecDense, ts.TimeStep) error {
	s.observed++
	return nil
}

func (s *scripted) Step() error {
	s.steps++
	return nil
}

func params(id int) hyperparams.Set {
	return hyperparams.Set{
		ID:           id,
		LearningRate: 0.1,
		Gamma:        0.9,
		BatchSize:    8,
		EpsStart:     1,
		EpsEnd:       0,
		EpsFraction:  hyperparams.Some(0.5),
		Policy:       agent.LinearPolicy,
	}
}

func baseConfig() agent.Config {
	c := agent.DefaultConfig()
	c.Policy = agent.LinearPolicy
	c.BufferSize = 500
	c.LearningStarts = 16
	c.TrainFreq = 1
	c.TargetUpdateInterval = 20
	c.MaxGradNorm = 0
	c.Seed = 100
	return c
}

func TestAgentConfig(t *testing.T) {
	trainer := NewTrainer(baseConfig())
	p := params(4)
	p.BatchSize = 1000
	p.Policy = agent.MlpPolicy

	c := trainer.AgentConfig(p)
	if c.LearningRate != 0.1 || c.Gamma != 0.9 || c.Policy != agent.MlpPolicy {
		t.Errorf("hyperparameters not applied: %+v", c)
	}
	if c.BatchSize != 1000 || c.BufferSize != 1000 {
		t.Errorf("want batch and buffer size 1000, have (%v, %v)",
			c.BatchSize, c.BufferSize)
	}
	if c.Seed != 104 {
		t.Errorf("want seed 104, have %v", c.Seed)
	}
	if c.TargetUpdateInterval != 20 {
		t.Error("base configuration not kept")
	}
}

func TestTrain(t *testing.T) {
	learner := &scripted{action: gridworld.Right}
	dir := t.TempDir()
	var progress bytes.Buffer

	trainer := NewTrainer(baseConfig(),
		WithLearner(func(env.Environment, agent.Config) (agent.Learner,
			error) {
			return learner, nil
		}),
		WithProgress(&progress),
		WithCheckpoints(4, dir),
		WithReturns(dir),
	)

	trained, err := trainer.Train(corridor(t), params(1), 0.5, 10)
	if err != nil {
		t.Fatal(err)
	}
	if trained != learner {
		t.Error("want the trained learner to be returned")
	}

	// Episodes end after steps 3, 6, and 9. No reset follows the last
	// step.
	if learner.observed != 10 || learner.steps != 10 || learner.firsts != 4 {
		t.Errorf("want (10, 10, 4) observed, steps, firsts, have (%v, %v, %v)",
			learner.observed, learner.steps, learner.firsts)
	}

	want := []float64{1, 0.8, 0.6, 0.4, 0.2, 0, 0, 0, 0, 0}
	if diff := cmp.Diff(want, learner.epsilons,
		cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Errorf("epsilon mismatch (-want +have):\n%v", diff)
	}

	wantSaved := []string{
		filepath.Join(dir, "dqn_model_exp1_checkpoint1.zip"),
		filepath.Join(dir, "dqn_model_exp1_checkpoint2.zip"),
	}
	if diff := cmp.Diff(wantSaved, learner.saved); diff != "" {
		t.Errorf("checkpoint mismatch (-want +have):\n%v", diff)
	}

	returns, err := tracker.LoadData(filepath.Join(dir,
		"train_returns_exp1.bin"))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]float64{8, 8, 8}, returns); diff != "" {
		t.Errorf("returns mismatch (-want +have):\n%v", diff)
	}

	if progress.Len() == 0 {
		t.Error("want progress to be displayed")
	}
}

func TestTrainInvalidSteps(t *testing.T) {
	trainer := NewTrainer(baseConfig())
	if _, err := trainer.Train(corridor(t), params(1), 0.1, 0); err == nil {
		t.Error("expected error training for zero steps")
	}
}

func TestEvaluate(t *testing.T) {
	policy := &scripted{action: gridworld.Right}
	var episodes []int
	evaluator := NewEvaluator(WithEpisodeCallback(
		func(i int, o EpisodeOutcome) {
			episodes = append(episodes, i)
		}))

	g := corridor(t)
	outcomes, err := evaluator.Evaluate(policy, g, 3)
	if err != nil {
		t.Fatal(err)
	}

	want := []EpisodeOutcome{{8, 3}, {8, 3}, {8, 3}}
	if diff := cmp.Diff(want, outcomes); diff != "" {
		t.Errorf("outcome mismatch (-want +have):\n%v", diff)
	}
	if diff := cmp.Diff([]int{1, 2, 3}, episodes); diff != "" {
		t.Errorf("callback mismatch (-want +have):\n%v", diff)
	}
	for _, ε := range policy.epsilons {
		if ε != 0 {
			t.Fatalf("evaluation must be greedy, have epsilon %v", ε)
		}
	}
	if g.Closed() {
		t.Error("evaluate should not close the environment")
	}

	if _, err := evaluator.Evaluate(policy, g, 0); err == nil {
		t.Error("expected error evaluating zero episodes")
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize([]EpisodeOutcome{{10, 1}, {20, 2}, {30, 6}})
	if s.Mean != 20 || s.Min != 10 || s.Max != 30 || s.MeanLength != 3 {
		t.Errorf("unexpected summary %+v", s)
	}
	if want := math.Sqrt(200.0 / 3.0); math.Abs(s.Std-want) > 1e-9 {
		t.Errorf("want population std %v, have %v", want, s.Std)
	}

	if s := Summarize([]EpisodeOutcome{{5, 1}}); s.Std != 0 || s.Mean != 5 {
		t.Errorf("single episode: unexpected summary %+v", s)
	}
	if s := Summarize(nil); s.Mean != 0 || s.Rewards != nil {
		t.Errorf("no episodes: unexpected summary %+v", s)
	}
}

func TestParseFailurePolicy(t *testing.T) {
	for in, want := range map[string]FailurePolicy{
		"":         SkipAndContinue,
		"skip":     SkipAndContinue,
		"Continue": SkipAndContinue,
		"ABORT":    AbortSweep,
	} {
		have, err := ParseFailurePolicy(in)
		if err != nil || have != want {
			t.Errorf("%q: want %v, have (%v, %v)", in, want, have, err)
		}
	}
	if _, err := ParseFailurePolicy("retry"); err == nil {
		t.Error("expected error for unknown failure policy")
	}
}

// gridFactory creates preprocessed gridworlds. Creation fails with
// fail for the seeds in failSeeds.
type gridFactory struct {
	*envconfig.Factory
	made []*gridworld.GridWorld
}

func newGridFactory(t *testing.T, fail error,
	failSeeds ...uint64) *gridFactory {
	f := &gridFactory{}
	maker := func(id string, mode env.RenderMode, seed uint64) (
		env.Environment, error) {
		for _, s := range failSeeds {
			if seed == s {
				return nil, fail
			}
		}
		start, err := gridworld.NewSingleStart(0, 1, rows, cols)
		if err != nil {
			return nil, err
		}
		g, err := gridworld.New(gridworld.Config{
			Rows:       rows,
			Cols:       cols,
			GoalX:      []int{cols - 1},
			GoalY:      []int{1},
			StepReward: -1,
			GoalReward: 1,
			Discount:   0.99,
		}, start)
		if err != nil {
			return nil, err
		}
		f.made = append(f.made, g)
		return g, nil
	}

	c := envconfig.DefaultConfig()
	c.Atari.Screen = wrappers.FrameShape{Height: rows, Width: cols,
		Channels: 1}
	c.Atari.FrameHeight = rows
	c.Atari.FrameWidth = cols
	c.Atari.NoopMax = 2
	c.Atari.FrameSkip = 1
	c.Atari.FrameStack = 2
	c.Atari.MaxEpisodeSteps = 12
	f.Factory = envconfig.NewFactory(maker, c)
	return f
}

func (f *gridFactory) checkClosed(t *testing.T) {
	t.Helper()
	for i, g := range f.made {
		if !g.Closed() {
			t.Errorf("environment %d was not closed", i)
		}
	}
}

func sweepConfig(t *testing.T) Config {
	dir := t.TempDir()
	c := DefaultConfig()
	c.TotalSteps = 150
	c.EvalEpisodes = 2
	c.ModelDir = filepath.Join(dir, "models")
	c.ResultsPath = filepath.Join(dir, "results.csv")
	c.MetricsPath = filepath.Join(dir, "sweep.prom")
	return c
}

func sets(n int) []hyperparams.Set {
	s := make([]hyperparams.Set, n)
	for i := range s {
		s[i] = params(i + 1)
		s[i].LearningRate = 0.05 * float64(i+1)
	}
	s[1].EpsFraction = hyperparams.None()
	s[1].EpsDecay = hyperparams.Some(0.01)
	return s
}

func ids(rows []results.Row) []int {
	out := make([]int, len(rows))
	for i, r := range rows {
		out[i] = r.Params.ID
	}
	return out
}

func TestSweep(t *testing.T) {
	factory := newGridFactory(t, nil)
	config := sweepConfig(t)
	store := storage.NewMemoryStore()
	if err := store.Init(context.Background()); err != nil {
		t.Fatal(err)
	}

	sweep, err := NewSweep(factory, NewTrainer(baseConfig()), NewEvaluator(),
		config, WithStore(store))
	if err != nil {
		t.Fatal(err)
	}
	table, err := sweep.Run(context.Background(), sets(3))
	if err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff([]int{1, 2, 3}, ids(table.Rows)); diff != "" {
		t.Errorf("id mismatch (-want +have):\n%v", diff)
	}
	// Two environments per experiment
	if len(factory.made) != 6 {
		t.Errorf("want 6 environments, have %d", len(factory.made))
	}
	factory.checkClosed(t)

	for _, r := range table.Rows {
		if len(r.Rewards) != config.EvalEpisodes {
			t.Errorf("experiment %d: want %d rewards, have %d", r.Params.ID,
				config.EvalEpisodes, len(r.Rewards))
		}
		if r.ModelPath != agent.ArtifactPath(config.ModelDir, r.Params.ID) {
			t.Errorf("experiment %d: unexpected model path %v", r.Params.ID,
				r.ModelPath)
		}
		if _, _, err := agent.ReadArtifact(r.ModelPath); err != nil {
			t.Errorf("experiment %d: %v", r.Params.ID, err)
		}
		if r.TotalTimesteps != config.TotalSteps {
			t.Errorf("experiment %d: want %d timesteps, have %d",
				r.Params.ID, config.TotalSteps, r.TotalTimesteps)
		}
	}
	if f := table.Rows[1].ComputedFraction; math.Abs(f-1.0/1.5) > 1e-12 {
		t.Errorf("want derived fraction %v, have %v", 1.0/1.5, f)
	}

	written, err := results.ReadCSV(config.ResultsPath)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(ids(table.Rows), ids(written.Rows)); diff != "" {
		t.Errorf("written ids mismatch (-want +have):\n%v", diff)
	}

	stored, ok, err := store.GetTable(context.Background(), table.ID)
	if err != nil || !ok {
		t.Fatalf("table not stored: %v, %v", ok, err)
	}
	if len(stored.Rows) != 3 {
		t.Errorf("want 3 stored rows, have %d", len(stored.Rows))
	}
}

func TestSweepDeterministic(t *testing.T) {
	for _, p := range []agent.PolicyType{agent.LinearPolicy, agent.MlpPolicy} {
		t.Run(string(p), func(t *testing.T) {
			base := baseConfig()
			base.HiddenSizes = []int{16}

			run := func() *results.Table {
				sweep, err := NewSweep(newGridFactory(t, nil), NewTrainer(base),
					NewEvaluator(), sweepConfig(t))
				if err != nil {
					t.Fatal(err)
				}
				s := sets(2)
				for i := range s {
					s[i].Policy = p
				}
				table, err := sweep.Run(context.Background(), s)
				if err != nil {
					t.Fatal(err)
				}
				if len(table.Rows) != len(s) {
					t.Fatalf("want %d rows, have %d: %v", len(s),
						len(table.Rows), table.Failures)
				}
				return table
			}

			first, second := run(), run()
			opts := []cmp.Option{
				cmpopts.IgnoreFields(results.Row{}, "ModelPath"),
				cmp.AllowUnexported(hyperparams.Optional{}),
				cmpopts.EquateNaNs(),
			}
			if diff := cmp.Diff(first.Rows, second.Rows, opts...); diff != "" {
				t.Errorf("sweeps differ (-first +second):\n%v", diff)
			}
		})
	}
}

func TestSweepSkipsFailures(t *testing.T) {
	config := sweepConfig(t)
	unavailable := fmt.Errorf("namespace ALE: %w", env.ErrNamespaceNotFound)
	factory := newGridFactory(t, unavailable, config.Seed+3)

	sweep, err := NewSweep(factory, NewTrainer(baseConfig()), NewEvaluator(),
		config)
	if err != nil {
		t.Fatal(err)
	}
	table, err := sweep.Run(context.Background(), sets(5))
	if err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff([]int{1, 2, 4, 5}, ids(table.Rows)); diff != "" {
		t.Errorf("id mismatch (-want +have):\n%v", diff)
	}
	if len(table.Failures) != 1 {
		t.Fatalf("want 1 failure, have %d", len(table.Failures))
	}

	var expErr *ExperimentError
	if !errors.As(table.Failures[0], &expErr) {
		t.Fatalf("want *ExperimentError, have %T", table.Failures[0])
	}
	if expErr.ID != 3 || expErr.Phase != PhaseTrain {
		t.Errorf("want failure of experiment 3 in %v, have %v in %v",
			PhaseTrain, expErr.ID, expErr.Phase)
	}
	if !env.IsUnavailable(table.Failures[0]) {
		t.Error("unavailable error should be preserved")
	}
	factory.checkClosed(t)

	written, err := results.ReadCSV(config.ResultsPath)
	if err != nil {
		t.Fatal(err)
	}
	if len(written.Rows) != 4 {
		t.Errorf("want 4 written rows, have %d", len(written.Rows))
	}
}

func TestSweepAborts(t *testing.T) {
	config := sweepConfig(t)
	config.FailurePolicy = AbortSweep
	factory := newGridFactory(t, errors.New("ROM not found"), config.Seed+3)

	sweep, err := NewSweep(factory, NewTrainer(baseConfig()), NewEvaluator(),
		config)
	if err != nil {
		t.Fatal(err)
	}
	table, err := sweep.Run(context.Background(), sets(5))
	if !IsExperimentError(err) {
		t.Fatalf("want experiment error, have %v", err)
	}
	if !env.IsConstruction(err) {
		t.Error("construction error should be preserved")
	}
	if diff := cmp.Diff([]int{1, 2}, ids(table.Rows)); diff != "" {
		t.Errorf("id mismatch (-want +have):\n%v", diff)
	}
	factory.checkClosed(t)

	written, err := results.ReadCSV(config.ResultsPath)
	if err != nil {
		t.Fatal(err)
	}
	if len(written.Rows) != 2 {
		t.Errorf("want completed rows to be written, have %d",
			len(written.Rows))
	}
}

func TestSweepCreatesEnvironmentBeforeSchedule(t *testing.T) {
	config := sweepConfig(t)
	factory := newGridFactory(t, errors.New("ROM not found"), config.Seed+1)
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(log.DebugLevel)

	sweep, err := NewSweep(factory, NewTrainer(baseConfig()), NewEvaluator(),
		config, WithLogger(log.NewEntry(logger)))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := sweep.Run(context.Background(), sets(2)); err != nil {
		t.Fatal(err)
	}

	scheduled := make(map[interface{}]bool)
	for _, entry := range hook.AllEntries() {
		if _, ok := entry.Data["fraction"]; ok {
			scheduled[entry.Data["exp_id"]] = true
		}
	}
	if scheduled[1] {
		t.Error("exploration schedule computed without a training environment")
	}
	if !scheduled[2] {
		t.Error("exploration schedule of experiment 2 not computed")
	}
	factory.checkClosed(t)
}

func TestSweepRejectsDuplicateIDs(t *testing.T) {
	factory := newGridFactory(t, nil)
	sweep, err := NewSweep(factory, NewTrainer(baseConfig()), NewEvaluator(),
		sweepConfig(t))
	if err != nil {
		t.Fatal(err)
	}

	s := sets(3)
	s[2].ID = 1
	if _, err := sweep.Run(context.Background(), s); err == nil {
		t.Fatal("expected error for duplicate ids")
	}
	if len(factory.made) != 0 {
		t.Error("no experiment should run when ids are duplicated")
	}
}

func TestNewSweepInvalidConfig(t *testing.T) {
	config := sweepConfig(t)
	config.EvalEpisodes = 0
	if _, err := NewSweep(newGridFactory(t, nil), NewTrainer(baseConfig()),
		NewEvaluator(), config); err == nil {
		t.Error("expected error for zero evaluation episodes")
	}
}
