package wrappers

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	env "github.com/buwituze/formative3-group2-dqn-agent/environment"
	ts "github.com/buwituze/formative3-group2-dqn-agent/timestep"
)

// MaxAndSkip repeats each action for a number of frames, summing the
// rewards, and returns the element-wise maximum of the last two frames.
// Taking the maximum removes flickering of sprites which are only drawn
// on alternate frames.
type MaxAndSkip struct {
	env.Environment

	skip   int
	number int
}

// NewMaxAndSkip returns a new MaxAndSkip environment wrapper
func NewMaxAndSkip(e env.Environment, skip int) (*MaxAndSkip, error) {
	if skip < 1 {
		return nil, fmt.Errorf("newMaxAndSkip: skip must be positive "+
			"\n\twant(>0)\n\thave(%v)", skip)
	}
	return &MaxAndSkip{Environment: e, skip: skip}, nil
}

// Reset resets the environment to some starting state
func (m *MaxAndSkip) Reset() (ts.TimeStep, error) {
	step, err := m.Environment.Reset()
	if err != nil {
		return ts.TimeStep{}, err
	}

	m.number = 0
	step.Number = 0
	return step, nil
}

// Step repeats action skip times, or until the episode ends
func (m *MaxAndSkip) Step(action *mat.VecDense) (ts.TimeStep, bool, error) {
	var last, secondLast *mat.VecDense
	var step ts.TimeStep
	var done bool
	var err error
	total := 0.0

	for i := 0; i < m.skip; i++ {
		step, done, err = m.Environment.Step(action)
		if err != nil {
			return ts.TimeStep{}, true, err
		}

		total += step.Reward
		secondLast, last = last, step.Observation

		if done {
			break
		}
	}

	if secondLast != nil {
		step.Observation = maxFrames(secondLast, last)
	}
	m.number++
	step.Reward = total
	step.Number = m.number

	return step, done, nil
}

// maxFrames returns the element-wise maximum of two frames
func maxFrames(a, b *mat.VecDense) *mat.VecDense {
	out := mat.NewVecDense(a.Len(), nil)
	for i := 0; i < a.Len(); i++ {
		out.SetVec(i, math.Max(a.AtVec(i), b.AtVec(i)))
	}
	return out
}
