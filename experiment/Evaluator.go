package experiment

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/buwituze/formative3-group2-dqn-agent/agent"
	env "github.com/buwituze/formative3-group2-dqn-agent/environment"
	"github.com/buwituze/formative3-group2-dqn-agent/experiment/tracker"
)

// EpisodeOutcome is the result of a single evaluation episode
type EpisodeOutcome struct {
	Reward float64
	Steps  int
}

// Evaluator runs a policy greedily for a number of episodes
type Evaluator struct {
	onEpisode func(episode int, o EpisodeOutcome)
}

// EvaluatorOption configures an Evaluator
type EvaluatorOption func(*Evaluator)

// WithEpisodeCallback calls f with the outcome of each episode as soon
// as it finishes. Episodes are numbered from 1.
func WithEpisodeCallback(f func(episode int, o EpisodeOutcome)) EvaluatorOption {
	return func(e *Evaluator) {
		e.onEpisode = f
	}
}

// NewEvaluator returns a new Evaluator
func NewEvaluator(opts ...EvaluatorOption) *Evaluator {
	e := &Evaluator{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate runs episodes sequential episodes of p on e, always taking
// the greedy action. Each episode lasts until it terminates or is
// truncated. The environment is not closed.
func (ev *Evaluator) Evaluate(p agent.Policy, e env.Environment,
	episodes int) ([]EpisodeOutcome, error) {
	if episodes < 1 {
		return nil, fmt.Errorf("evaluate: number of episodes must be "+
			"positive \n\twant(>0)\n\thave(%v)", episodes)
	}

	returns := tracker.NewReturn()
	lengths := tracker.NewEpisodeLength()
	trackers := []tracker.Tracker{returns, lengths}

	outcomes := make([]EpisodeOutcome, 0, episodes)
	for i := 0; i < episodes; i++ {
		step, err := e.Reset()
		if err != nil {
			return nil, fmt.Errorf("evaluate: episode %d: %w", i+1, err)
		}
		for _, t := range trackers {
			t.Track(step)
		}

		for done := false; !done; {
			action, err := p.SelectAction(step, 0)
			if err != nil {
				return nil, fmt.Errorf("evaluate: episode %d: %w", i+1, err)
			}
			if step, done, err = e.Step(action); err != nil {
				return nil, fmt.Errorf("evaluate: episode %d: %w", i+1, err)
			}
			for _, t := range trackers {
				t.Track(step)
			}
		}

		r, l := returns.Returns(), lengths.Lengths()
		o := EpisodeOutcome{Reward: r[len(r)-1], Steps: int(l[len(l)-1])}
		outcomes = append(outcomes, o)
		if ev.onEpisode != nil {
			ev.onEpisode(i+1, o)
		}
	}
	return outcomes, nil
}

// Summary summarizes the outcomes of an evaluation
type Summary struct {
	Mean       float64
	Std        float64 // Population standard deviation
	Min        float64
	Max        float64
	MeanLength float64
	Rewards    []float64
}

// Summarize returns the Summary of a set of outcomes. The Summary of no
// outcomes is zero.
func Summarize(outcomes []EpisodeOutcome) Summary {
	if len(outcomes) == 0 {
		return Summary{}
	}

	rewards := make([]float64, len(outcomes))
	lengths := make([]float64, len(outcomes))
	for i, o := range outcomes {
		rewards[i] = o.Reward
		lengths[i] = float64(o.Steps)
	}

	mean, variance := stat.PopMeanVariance(rewards, nil)
	return Summary{
		Mean:       mean,
		Std:        math.Sqrt(variance),
		Min:        floats.Min(rewards),
		Max:        floats.Max(rewards),
		MeanLength: stat.Mean(lengths, nil),
		Rewards:    rewards,
	}
}
