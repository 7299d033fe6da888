package wrappers

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	env "github.com/buwituze/formative3-group2-dqn-agent/environment"
	ts "github.com/buwituze/formative3-group2-dqn-agent/timestep"
)

// TimeLimit truncates episodes which run for more than a fixed number of
// steps. A truncated episode ends with a Last TimeStep whose Truncated
// field is set, so that learners may still bootstrap from it.
type TimeLimit struct {
	env.Environment

	episodeSteps int
	elapsed      int
}

// NewTimeLimit returns a new TimeLimit environment wrapper
func NewTimeLimit(e env.Environment, episodeSteps int) (*TimeLimit, error) {
	if episodeSteps < 1 {
		return nil, fmt.Errorf("newTimeLimit: episode steps must be "+
			"positive \n\twant(>0)\n\thave(%v)", episodeSteps)
	}
	return &TimeLimit{Environment: e, episodeSteps: episodeSteps}, nil
}

// Reset resets the environment to some starting state
func (t *TimeLimit) Reset() (ts.TimeStep, error) {
	t.elapsed = 0
	return t.Environment.Reset()
}

// Step takes one environmental step given some action
func (t *TimeLimit) Step(action *mat.VecDense) (ts.TimeStep, bool, error) {
	step, done, err := t.Environment.Step(action)
	if err != nil {
		return ts.TimeStep{}, true, err
	}

	t.elapsed++
	if !done && t.elapsed >= t.episodeSteps {
		step.StepType = ts.Last
		step.Truncated = true
		done = true
	}
	return step, done, nil
}
