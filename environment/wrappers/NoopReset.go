package wrappers

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"

	env "github.com/buwituze/formative3-group2-dqn-agent/environment"
	ts "github.com/buwituze/formative3-group2-dqn-agent/timestep"
)

// NoopAction is the action index that leaves the game unchanged
const NoopAction = 0

// NoopReset takes a random number of no-op actions after each reset so
// that episodes do not all start from the same frame.
type NoopReset struct {
	env.Environment

	maxNoops int
	rng      *rand.Rand
	noop     *mat.VecDense
}

// NewNoopReset returns a new NoopReset environment wrapper which takes
// between 1 and maxNoops no-op actions after each reset
func NewNoopReset(e env.Environment, maxNoops int, seed uint64) (*NoopReset,
	error) {
	if maxNoops < 1 {
		return nil, fmt.Errorf("newNoopReset: maxNoops must be positive "+
			"\n\twant(>0)\n\thave(%v)", maxNoops)
	}

	return &NoopReset{
		Environment: e,
		maxNoops:    maxNoops,
		rng:         rand.New(rand.NewSource(seed)),
		noop:        mat.NewVecDense(1, []float64{NoopAction}),
	}, nil
}

// Reset resets the embedded environment and then takes a random number
// of no-op actions. If the episode ends during the no-ops, the embedded
// environment is reset once more.
func (n *NoopReset) Reset() (ts.TimeStep, error) {
	step, err := n.Environment.Reset()
	if err != nil {
		return ts.TimeStep{}, err
	}

	noops := n.rng.Intn(n.maxNoops) + 1
	for i := 0; i < noops; i++ {
		next, done, err := n.Environment.Step(n.noop)
		if err != nil {
			return ts.TimeStep{}, fmt.Errorf("reset: could not take no-op "+
				"action: %w", err)
		}
		if done {
			if step, err = n.Environment.Reset(); err != nil {
				return ts.TimeStep{}, err
			}
			continue
		}
		step = next
	}

	// The returned step starts the agent's episode regardless of how many
	// frames were skipped
	step.StepType = ts.First
	step.Reward = 0
	step.Number = 0
	return step, nil
}
