package wrappers

import (
	"gonum.org/v1/gonum/mat"

	env "github.com/buwituze/formative3-group2-dqn-agent/environment"
	ts "github.com/buwituze/formative3-group2-dqn-agent/timestep"
)

// ClipReward replaces each reward by its sign, so that rewards are one
// of -1, 0, or +1.
type ClipReward struct {
	env.Environment
}

// NewClipReward returns a new ClipReward environment wrapper
func NewClipReward(e env.Environment) *ClipReward {
	return &ClipReward{e}
}

// Step takes one environmental step given some action
func (c *ClipReward) Step(action *mat.VecDense) (ts.TimeStep, bool, error) {
	step, done, err := c.Environment.Step(action)
	if err != nil {
		return ts.TimeStep{}, true, err
	}

	step.Reward = sign(step.Reward)
	return step, done, nil
}

func sign(x float64) float64 {
	switch {
	case x > 0:
		return 1.0
	case x < 0:
		return -1.0
	default:
		return 0.0
	}
}
