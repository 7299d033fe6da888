// Package deepq implements the deep Q-learning algorithm
package deepq

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/buwituze/formative3-group2-dqn-agent/agent"
	env "github.com/buwituze/formative3-group2-dqn-agent/environment"
	"github.com/buwituze/formative3-group2-dqn-agent/expreplay"
	ts "github.com/buwituze/formative3-group2-dqn-agent/timestep"
	"github.com/buwituze/formative3-group2-dqn-agent/utils/floatutils"
)

// DeepQ implements the deep Q-learning algorithm with experience replay
// and a target network. This algorithm is conceptually similar to DQN,
// but uses the MSE loss.
//
// The update target of a transition (s, a, r, s') is
//
//	r + γ * d * max[Q_target(s', a')]
//
// where d is zero if s' is terminal and one otherwise.
type DeepQ struct {
	config   agent.Config
	q        QFunction
	replay   expreplay.ExperienceReplayer
	features int
	actions  int
	source   rand.Source // Source for exploratory action selection

	// Keep track of previous states to add to replay buffer
	prevStep  ts.TimeStep
	inEpisode bool

	steps         int // Environment transitions observed
	updatedAt     int // Value of steps when Step was last called
	gradientSteps int
	loss          float64
}

// New creates and returns a new DeepQ agent for an environment
func New(e env.Environment, c agent.Config) (*DeepQ, error) {
	// Ensure environment has discrete actions
	if e.ActionSpec().Cardinality != env.Discrete {
		return nil, fmt.Errorf("new: cannot use non-discrete actions")
	}

	// Ensure actions are one-dimensional
	if e.ActionSpec().LowerBound.Len() > 1 {
		return nil, fmt.Errorf("new: actions must be 1-dimensional")
	}

	// Ensure actions are enumerated from 0
	if e.ActionSpec().LowerBound.AtVec(0) != 0.0 {
		return nil, fmt.Errorf("new: actions must be enumerated starting " +
			"from 0")
	}

	return newDeepQ(c, env.NumFeatures(e), env.NumActions(e))
}

func newDeepQ(c agent.Config, features, actions int) (*DeepQ, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("new: %w", err)
	}

	q, err := newQFunction(c, features, actions)
	if err != nil {
		return nil, fmt.Errorf("new: %w", err)
	}

	replay, err := expreplay.Config{
		MinCapacity: c.BatchSize,
		MaxCapacity: c.BufferSize,
		BatchSize:   c.BatchSize,
	}.Create(features, c.Seed)
	if err != nil {
		msg := "new: could not create experience replay buffer: %w"
		return nil, fmt.Errorf(msg, err)
	}

	return &DeepQ{
		config:   c,
		q:        q,
		replay:   replay,
		features: features,
		actions:  actions,
		source:   rand.NewSource(c.Seed + 1),
	}, nil
}

// Type returns the policy architecture of the agent
func (d *DeepQ) Type() agent.PolicyType {
	return d.config.Policy
}

// Config returns the configuration of the agent
func (d *DeepQ) Config() agent.Config {
	return d.config
}

// Steps returns the number of environment transitions observed
func (d *DeepQ) Steps() int {
	return d.steps
}

// GradientSteps returns the number of gradient steps taken
func (d *DeepQ) GradientSteps() int {
	return d.gradientSteps
}

// Loss returns the loss of the most recent gradient step
func (d *DeepQ) Loss() float64 {
	return d.loss
}

// SelectAction selects an action ε-greedily with respect to the online
// action values. Ties between greedy actions are broken in favour of the
// lowest action.
func (d *DeepQ) SelectAction(t ts.TimeStep, ε float64) (*mat.VecDense,
	error) {
	if !(ε >= 0 && ε <= 1) {
		return nil, fmt.Errorf("selectAction: ε must be in [0, 1]"+
			"\n\thave(%v)", ε)
	}
	if t.Observation == nil {
		return nil, fmt.Errorf("selectAction: timestep has no observation")
	}

	values, err := d.q.Values(t.Observation.RawVector().Data)
	if err != nil {
		return nil, fmt.Errorf("selectAction: %w", err)
	}
	greedyAction := floatutils.Argmax(values)
	if ε == 0 {
		return mat.NewVecDense(1, []float64{float64(greedyAction)}), nil
	}

	// Calculate the ε probability of choosing any action at random
	prob := ε / float64(d.actions)
	actionProbabilities := make([]float64, d.actions)
	for i := range actionProbabilities {
		actionProbabilities[i] = prob
	}

	// Adjust the probability of choosing the greedy action
	actionProbabilities[greedyAction] += 1.0 - ε

	dist := distuv.NewCategorical(actionProbabilities, d.source)
	return mat.NewVecDense(1, []float64{dist.Rand()}), nil
}

// ObserveFirst observes and records the first episodic timestep
func (d *DeepQ) ObserveFirst(t ts.TimeStep) error {
	if !t.First() {
		log.WithField("step", t.Number).Warn("ObserveFirst() should only " +
			"be called on the first timestep")
	}
	if t.Observation == nil || t.Observation.Len() != d.features {
		return fmt.Errorf("observeFirst: invalid observation")
	}
	d.prevStep = t
	d.inEpisode = true
	return nil
}

// Observe observes and records any timestep other than the first timestep
func (d *DeepQ) Observe(action *mat.VecDense, nextStep ts.TimeStep) error {
	if !d.inEpisode {
		return fmt.Errorf("observe: no episode in progress, ObserveFirst() " +
			"must be called first")
	}
	if action.Len() != 1 {
		log.WithField("dim", action.Len()).Warn("value-based methods " +
			"should not have multi-dimensional actions")
	}

	a := int(action.AtVec(0))
	if a < 0 || a >= d.actions {
		return fmt.Errorf("observe: illegal action %v", a)
	}

	transition := ts.NewTransition(d.prevStep, a, nextStep)
	if err := d.replay.Add(transition); err != nil {
		return fmt.Errorf("observe: %w", err)
	}

	d.prevStep = nextStep
	d.inEpisode = !nextStep.Last()
	d.steps++
	return nil
}

// Step updates the target network and takes gradient steps on the
// learning network according to the update schedule of the agent's
// configuration. Calling Step more than once per observed transition has
// no effect.
func (d *DeepQ) Step() error {
	if d.steps == d.updatedAt {
		return nil
	}
	d.updatedAt = d.steps

	if d.steps%d.config.TargetUpdateInterval == 0 {
		if err := d.q.SyncTarget(d.config.Tau); err != nil {
			return fmt.Errorf("step: could not update target: %w", err)
		}
	}

	if d.steps < d.config.LearningStarts || d.steps%d.config.TrainFreq != 0 {
		return nil
	}

	for i := 0; i < d.config.GradientSteps; i++ {
		// Don't update if replay buffer is empty or has insufficient
		// samples to sample
		batch, err := d.replay.Sample()
		if expreplay.IsEmptyBuffer(err) || expreplay.IsInsufficientSamples(err) {
			return nil
		} else if err != nil {
			return fmt.Errorf("step: %w", err)
		}

		targets, err := d.updateTargets(batch)
		if err != nil {
			return fmt.Errorf("step: %w", err)
		}

		loss, err := d.q.Train(batch.States, batch.Actions, targets)
		if err != nil {
			return fmt.Errorf("step: %w", err)
		}
		d.loss = loss
		d.gradientSteps++
	}
	return nil
}

// updateTargets computes the update target r + γ * d * max[Q(s', a')]
// of each transition in batch
func (d *DeepQ) updateTargets(batch expreplay.Batch) ([]float64, error) {
	nextValues, err := d.q.TargetValues(batch.NextStates)
	if err != nil {
		return nil, err
	}
	if len(nextValues) != batch.Size*d.actions {
		return nil, fmt.Errorf("updateTargets: invalid number of next "+
			"action values \n\twant(%v)\n\thave(%v)", batch.Size*d.actions,
			len(nextValues))
	}

	targets := make([]float64, batch.Size)
	for i := range targets {
		best, _ := floatutils.MaxSlice(nextValues[i*d.actions : (i+1)*d.actions])
		targets[i] = batch.Rewards[i] + d.config.Gamma*batch.Discounts[i]*best
	}
	return targets, nil
}

// Save writes the agent to an artifact at path
func (d *DeepQ) Save(path string) error {
	meta := agent.Metadata{
		Policy:   d.config.Policy,
		Config:   d.config,
		Features: d.features,
		Actions:  d.actions,
	}
	if err := agent.WriteArtifact(path, meta, d.q.Weights()); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	return nil
}
